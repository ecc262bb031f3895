package halali

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// Size is the board width and height.
const Size = 7

type Team int

const (
	// Either is the designation of a non-networked engine: it plays
	// both sides. It is never the owner of a card type.
	Either Team = iota
	Animals
	Humans
)

func (t Team) String() string {
	switch t {
	case Animals:
		return "animals"
	case Humans:
		return "humans"
	default:
		return "either"
	}
}

// Opponent returns the other concrete team. Either has no opponent.
func (t Team) Opponent() Team {
	switch t {
	case Animals:
		return Humans
	case Humans:
		return Animals
	default:
		return Either
	}
}

// Matches reports whether t may act as o. Either matches both teams.
func (t Team) Matches(o Team) bool {
	return t == Either || o == Either || t == o
}

func (t Team) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Team) UnmarshalText(b []byte) error {
	switch string(b) {
	case "animals":
		*t = Animals
	case "humans":
		*t = Humans
	case "either":
		*t = Either
	default:
		return fmt.Errorf("unknown team %q", b)
	}
	return nil
}

type Kind string

const (
	Fox        Kind = "fox"
	Bear       Kind = "bear"
	Duck       Kind = "duck"
	Pheasant   Kind = "pheasant"
	Hunter     Kind = "hunter"
	Lumberjack Kind = "lumberjack"
	Tree       Kind = "tree"
)

// Movement directions, also the rule-affecting hunter variants.
const (
	DirUp    = "up"
	DirDown  = "down"
	DirLeft  = "left"
	DirRight = "right"
)

type CardType struct {
	Count       int
	Team        Team // Either for neutral kinds
	Points      int
	Eats        []Kind
	Slow        bool
	Immovable   bool
	Variants    []string
	Directional bool
}

func (ct CardType) eats(k Kind) bool {
	for _, e := range ct.Eats {
		if e == k {
			return true
		}
	}
	return false
}

// Types is the card catalogue. The counts sum to Size*Size-1.
var Types = map[Kind]CardType{
	Fox: {
		Count:  6,
		Team:   Animals,
		Points: 5,
		Eats:   []Kind{Duck, Pheasant},
	},
	Bear: {
		Count:  2,
		Team:   Animals,
		Points: 10,
		Eats:   []Kind{Hunter, Lumberjack},
		Slow:   true,
	},
	Duck: {
		Count:  7,
		Points: 2,
	},
	Pheasant: {
		Count:  8,
		Points: 3,
	},
	Hunter: {
		Count:       8,
		Team:        Humans,
		Points:      5,
		Eats:        []Kind{Duck, Pheasant, Fox, Bear},
		Variants:    []string{DirUp, DirDown, DirLeft, DirRight},
		Directional: true,
	},
	Lumberjack: {
		Count:  2,
		Team:   Humans,
		Points: 5,
		Eats:   []Kind{Tree},
		Slow:   true,
	},
	Tree: {
		Count:     15,
		Points:    2,
		Immovable: true,
		Variants:  []string{"oak", "spruce"},
	},
}

// kinds fixes the catalogue iteration order so that a deal is fully
// determined by its seed.
var kinds = [...]Kind{Fox, Bear, Duck, Pheasant, Hunter, Lumberjack, Tree}

// MovableBy reports whether the given team is allowed to move cards of
// this kind. Neutral kinds are movable by either team.
func MovableBy(k Kind, t Team) bool {
	ct := Types[k]
	if ct.Immovable {
		return false
	}
	return ct.Team == Either || ct.Team == t
}

type Facing string

const (
	FaceDown Facing = "down"
	FaceUp   Facing = "up"
)

type Card struct {
	Kind    Kind   `json:"kind"`
	Variant string `json:"variant,omitempty"`
	Facing  Facing `json:"facing"`
}

// Loc is a board coordinate. X runs left to right, Y bottom to top.
// It is serialized as a two-element array to match the wire format.
type Loc struct {
	X, Y int
}

func (l Loc) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{l.X, l.Y})
}

func (l *Loc) UnmarshalJSON(b []byte) error {
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	l.X, l.Y = pair[0], pair[1]
	return nil
}

func (l Loc) String() string {
	return fmt.Sprintf("(%d,%d)", l.X, l.Y)
}

func (l Loc) onBoard() bool {
	return l.X >= 0 && l.X < Size && l.Y >= 0 && l.Y < Size
}

// generatePile builds the shuffled deal. Variants are picked per copy.
func generatePile(rng *rand.Rand) []Card {
	var pile []Card
	for _, k := range kinds {
		ct := Types[k]
		for i := 0; i < ct.Count; i++ {
			c := Card{Kind: k, Facing: FaceDown}
			if len(ct.Variants) > 0 {
				c.Variant = ct.Variants[rng.Intn(len(ct.Variants))]
			}
			pile = append(pile, c)
		}
	}
	rng.Shuffle(len(pile), func(i, j int) {
		pile[i], pile[j] = pile[j], pile[i]
	})
	return pile
}
