// Package ai implements the single-player opponent. It enumerates the
// legal operations for whichever side is to play through the engine's
// own legality queries and picks uniformly among the best-ranked ones.
package ai

import (
	"log"
	"math/rand"
	"time"

	"github.com/L3viathan/halali/pkg/halali"
)

// Delay is the artificial thinking time before a chosen operation is
// applied, so the opponent doesn't respond instantly.
const Delay = 700 * time.Millisecond

// Candidate priorities. Rescues beat captures beat plain moves beat
// reveals; the choice is uniform within the best class present.
const (
	prioReveal  = 0
	prioMove    = 1
	prioCapture = 2
	prioRescue  = 3
)

type OpKind int

const (
	OpReveal OpKind = iota
	OpMove
	OpRescue
)

// Op is one chosen operation.
type Op struct {
	Kind     OpKind
	From, To halali.Loc

	priority int
}

// Apply executes the operation against the engine on the opponent's
// behalf, i.e. with the for-enemy consistency check.
func (o Op) Apply(g *halali.Game) error {
	switch o.Kind {
	case OpMove:
		return g.Move(o.From, o.To, true)
	case OpRescue:
		return g.Rescue(o.From, true)
	default:
		return g.Reveal(o.From, true)
	}
}

// Choose enumerates every candidate operation for the side to play and
// picks uniformly at random among those sharing the highest priority.
// ok is false when no operation is possible (a stalemate for that
// side, which the caller should log).
func Choose(g *halali.Game, rng *rand.Rand) (op Op, ok bool) {
	acting := g.ToPlay()
	best := -1
	var candidates []Op

	add := func(o Op) {
		if o.priority > best {
			best = o.priority
			candidates = candidates[:0]
		}
		if o.priority == best {
			candidates = append(candidates, o)
		}
	}

	for x := 0; x < halali.Size; x++ {
		for y := 0; y < halali.Size; y++ {
			loc := halali.Loc{X: x, Y: y}
			card, found := g.CardAt(loc)
			if !found {
				continue
			}
			if card.Facing == halali.FaceDown {
				add(Op{Kind: OpReveal, From: loc, priority: prioReveal})
				continue
			}
			if !halali.MovableBy(card.Kind, acting) {
				continue
			}
			for _, to := range g.AvailableMoves(loc) {
				if _, occupied := g.CardAt(to); occupied {
					add(Op{Kind: OpMove, From: loc, To: to, priority: prioCapture})
				} else {
					add(Op{Kind: OpMove, From: loc, To: to, priority: prioMove})
				}
			}
			if g.Endgame() && g.ValidateRescue(loc) == nil {
				add(Op{Kind: OpRescue, From: loc, priority: prioRescue})
			}
		}
	}

	if len(candidates) == 0 {
		log.Printf("no possible operation for %s", acting)
		return Op{}, false
	}
	return candidates[rng.Intn(len(candidates))], true
}
