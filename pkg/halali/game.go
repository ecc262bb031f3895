package halali

import (
	"errors"
	"fmt"
	"math/rand"
)

// The endgame grants both sides a shared budget of five turns,
// counted down in half-turns.
const endgameHalfTurns = 10

const eventQueueSize = 64

// ErrGameOver is returned when an operation is attempted after the
// endgame turn budget has been spent.
var ErrGameOver = errors.New("game over")

// InvalidMove rejects an illegal operation. It is always recoverable:
// the game state is untouched and the caller simply drops the attempt.
type InvalidMove struct {
	Reason string
}

func (e *InvalidMove) Error() string {
	return "invalid move: " + e.Reason
}

func invalid(format string, args ...interface{}) *InvalidMove {
	return &InvalidMove{Reason: fmt.Sprintf(format, args...)}
}

// exitLocs are the four exit cells, one beyond the middle of each board
// edge. They exist only once the endgame has begun.
var exitLocs = [4]Loc{
	{-1, Size / 2},
	{Size, Size / 2},
	{Size / 2, -1},
	{Size / 2, Size},
}

// Game is the rules engine: one board, the turn state and the score.
// All operations validate fully before mutating anything.
type Game struct {
	// Team is this engine's designation. A networked engine is pinned
	// to one concrete team; Either plays both sides locally.
	Team Team
	// TieBreak wins a drawn match. Defaults to Humans, matching the
	// original game; kept configurable because that default looks like
	// a placeholder rather than intended design.
	TieBreak Team
	// Events receives a notification for every committed operation,
	// local or peer-applied. Consumers drain it once per frame; sends
	// never block.
	Events chan interface{}

	cards     [Size][Size]*Card
	toPlay    Team
	points    map[Team]int
	tilesLeft int
	endgame   bool
	turnsLeft int // half-turns remaining, valid once endgame is true
}

// NewEmpty returns an engine with no cards dealt, for a joining client
// that will be fed the authoritative snapshot by its peer.
func NewEmpty() *Game {
	return &Game{
		Team:      Either,
		TieBreak:  Humans,
		Events:    make(chan interface{}, eventQueueSize),
		toPlay:    Animals,
		points:    map[Team]int{Animals: 0, Humans: 0},
		tilesLeft: Size*Size - 1,
	}
}

// New deals a fresh board from the given seed. Every cell except the
// center receives exactly one card from the shuffled catalogue, so two
// engines dealt from the same seed are identical.
func New(seed int64) *Game {
	g := NewEmpty()
	pile := generatePile(rand.New(rand.NewSource(seed)))
	i := 0
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			if x == Size/2 && y == Size/2 {
				continue
			}
			c := pile[i]
			i++
			g.cards[x][y] = &c
		}
	}
	return g
}

func (g *Game) ToPlay() Team   { return g.toPlay }
func (g *Game) TilesLeft() int { return g.tilesLeft }

func (g *Game) Points(t Team) int { return g.points[t] }

// CanPlay reports whether it is this engine's turn.
func (g *Game) CanPlay() bool { return g.Team.Matches(g.toPlay) }

// TurnsLeft returns the remaining endgame turn budget. ok is false
// during the reveal phase.
func (g *Game) TurnsLeft() (turns float64, ok bool) {
	if !g.endgame {
		return 0, false
	}
	return float64(g.turnsLeft) / 2, true
}

func (g *Game) Endgame() bool { return g.endgame }

// Over reports whether the endgame budget has been spent. The next
// attempted operation will fail with ErrGameOver.
func (g *Game) Over() bool { return g.endgame && g.turnsLeft <= 0 }

// Winner compares the final scores; a tie goes to TieBreak.
func (g *Game) Winner() Team {
	switch {
	case g.points[Animals] > g.points[Humans]:
		return Animals
	case g.points[Humans] > g.points[Animals]:
		return Humans
	default:
		return g.TieBreak
	}
}

// CardAt returns a copy of the card at loc, if any.
func (g *Game) CardAt(loc Loc) (Card, bool) {
	if !loc.onBoard() || g.cards[loc.X][loc.Y] == nil {
		return Card{}, false
	}
	return *g.cards[loc.X][loc.Y], true
}

// Exits returns the four exit cells, or nil before the endgame.
func (g *Game) Exits() []Loc {
	if !g.endgame {
		return nil
	}
	return exitLocs[:]
}

// Snapshot is the full board contents, indexed [x][y]. It is what a
// host transmits once to a joining client; afterwards both engines stay
// identical by replaying the same operation stream.
type Snapshot [][]*Card

func (g *Game) Snapshot() Snapshot {
	s := make(Snapshot, Size)
	for x := 0; x < Size; x++ {
		s[x] = make([]*Card, Size)
		for y := 0; y < Size; y++ {
			if c := g.cards[x][y]; c != nil {
				copied := *c
				s[x][y] = &copied
			}
		}
	}
	return s
}

// Restore replaces the board with the given snapshot and recounts the
// hidden cells.
func (g *Game) Restore(s Snapshot) error {
	if len(s) != Size {
		return fmt.Errorf("snapshot has %d columns, want %d", len(s), Size)
	}
	for x := range s {
		if len(s[x]) != Size {
			return fmt.Errorf("snapshot column %d has %d cells, want %d", x, len(s[x]), Size)
		}
	}
	g.tilesLeft = 0
	for x := 0; x < Size; x++ {
		for y := 0; y < Size; y++ {
			g.cards[x][y] = nil
			if c := s[x][y]; c != nil {
				copied := *c
				g.cards[x][y] = &copied
				if copied.Facing == FaceDown {
					g.tilesLeft++
				}
			}
		}
	}
	return nil
}

// SyncStatus overwrites the turn state from a peer's status report.
// turnsLeft is nil while the peer is still in the reveal phase.
func (g *Game) SyncStatus(toPlay Team, points map[Team]int, turnsLeft *float64) {
	g.toPlay = toPlay
	for t, p := range points {
		g.points[t] = p
	}
	if turnsLeft != nil {
		g.endgame = true
		g.turnsLeft = int(*turnsLeft * 2)
	}
}

// Reveal flips the face-down card at loc, which costs the turn.
func (g *Game) Reveal(loc Loc, forEnemy bool) error {
	if err := g.checkTurn(forEnemy); err != nil {
		return err
	}
	if err := g.ValidateReveal(loc); err != nil {
		return err
	}
	g.cards[loc.X][loc.Y].Facing = FaceUp
	g.tilesLeft--
	g.swapTeams()
	g.emit(RevealEvent{Loc: loc})
	return nil
}

func (g *Game) ValidateReveal(loc Loc) error {
	if !loc.onBoard() {
		return invalid("%s is outside the board", loc)
	}
	card := g.cards[loc.X][loc.Y]
	if card == nil {
		return invalid("can't reveal an empty spot")
	}
	if card.Facing == FaceUp {
		return invalid("can't reveal a face-up card")
	}
	return nil
}

// Move slides the card at from to to, capturing whatever face-up card
// the mover is allowed to eat there.
func (g *Game) Move(from, to Loc, forEnemy bool) error {
	if err := g.checkTurn(forEnemy); err != nil {
		return err
	}
	if err := g.ValidateMove(from, to); err != nil {
		return err
	}
	if target := g.cards[to.X][to.Y]; target != nil {
		g.points[g.toPlay] += Types[target.Kind].Points
	}
	g.cards[to.X][to.Y] = g.cards[from.X][from.Y]
	g.cards[from.X][from.Y] = nil
	g.swapTeams()
	g.emit(MoveEvent{From: from, To: to})
	return nil
}

func (g *Game) ValidateMove(from, to Loc) error {
	if !to.onBoard() {
		return invalid("%s is outside the board", to)
	}
	return g.validateMove(from, to, false)
}

// validateMove shares the path, ownership and speed rules between moves
// and rescues. A rescue targets an exit cell one step beyond the board
// edge; exits hold no card, so the capture rules are skipped.
func (g *Game) validateMove(from, to Loc, toExit bool) error {
	if !from.onBoard() {
		return invalid("%s is outside the board", from)
	}
	if from == to {
		return invalid("didn't move")
	}
	if from.X != to.X && from.Y != to.Y {
		return invalid("can't move diagonally")
	}
	card := g.cards[from.X][from.Y]
	if card == nil {
		return invalid("can't move an empty tile")
	}
	ct := Types[card.Kind]
	if ct.Immovable {
		return invalid("%s can't move", card.Kind)
	}
	if card.Facing != FaceUp {
		return invalid("can't move a face-down card")
	}
	if !MovableBy(card.Kind, g.toPlay) {
		return invalid("team %s can't move %s", g.toPlay, card.Kind)
	}
	dir, dist := travel(from, to)
	for _, cell := range between(from, to) {
		if g.cards[cell.X][cell.Y] != nil {
			return invalid("path obstructed")
		}
	}
	if ct.Slow && dist > 1 {
		return invalid("%s can only move one tile", card.Kind)
	}
	if toExit {
		return nil
	}
	if target := g.cards[to.X][to.Y]; target != nil {
		if target.Facing != FaceUp {
			return invalid("can't move onto a face-down card")
		}
		if !ct.eats(target.Kind) {
			return invalid("%s can't eat %s", card.Kind, target.Kind)
		}
		if ct.Directional && dir != card.Variant {
			return invalid("%s can only capture moving %s", card.Kind, card.Variant)
		}
	}
	return nil
}

// Rescue removes the acting team's card at loc through an exit cell,
// awarding its points. Only legal during the endgame.
func (g *Game) Rescue(loc Loc, forEnemy bool) error {
	if err := g.checkTurn(forEnemy); err != nil {
		return err
	}
	if err := g.ValidateRescue(loc); err != nil {
		return err
	}
	card := g.cards[loc.X][loc.Y]
	g.cards[loc.X][loc.Y] = nil
	g.points[g.toPlay] += Types[card.Kind].Points
	g.swapTeams()
	g.emit(RescueEvent{Loc: loc})
	return nil
}

func (g *Game) ValidateRescue(loc Loc) error {
	if !g.endgame {
		return invalid("no exits before every tile is revealed")
	}
	if !loc.onBoard() {
		return invalid("%s is outside the board", loc)
	}
	card := g.cards[loc.X][loc.Y]
	if card == nil {
		return invalid("can't rescue an empty tile")
	}
	if Types[card.Kind].Team != g.toPlay {
		return invalid("can't rescue neutral pieces")
	}
	// Each exit is reachable only along its own axis; a straight,
	// unobstructed path to any one of them suffices.
	for _, exit := range exitLocs {
		if g.validateMove(loc, exit, true) == nil {
			return nil
		}
	}
	return invalid("can't escape from this place")
}

// AvailableMoves enumerates every legal destination for the card at
// loc, for move indicators and the computer opponent.
func (g *Game) AvailableMoves(loc Loc) []Loc {
	var out []Loc
	for x := 0; x < Size; x++ {
		if to := (Loc{x, loc.Y}); g.ValidateMove(loc, to) == nil {
			out = append(out, to)
		}
	}
	for y := 0; y < Size; y++ {
		if to := (Loc{loc.X, y}); g.ValidateMove(loc, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

// checkTurn guards every operation. For a peer-reported operation the
// turn must belong to the other side; that assertion plus replaying the
// full validation is what keeps the two engines in lockstep.
func (g *Game) checkTurn(forEnemy bool) error {
	if g.Over() {
		return ErrGameOver
	}
	if forEnemy {
		if g.CanPlay() {
			return invalid("not the other player's turn")
		}
	} else if !g.CanPlay() {
		return invalid("not your turn")
	}
	return nil
}

// swapTeams is the shared turn bookkeeping: tick the endgame budget,
// or enter the endgame the moment the last tile was revealed, then
// hand the turn over.
func (g *Game) swapTeams() {
	if g.endgame {
		g.turnsLeft--
	} else if g.tilesLeft == 0 {
		g.endgame = true
		g.turnsLeft = endgameHalfTurns
	}
	g.toPlay = g.toPlay.Opponent()
}

func (g *Game) emit(e interface{}) {
	if g.Events == nil {
		return
	}
	select {
	case g.Events <- e:
	default:
	}
}

func travel(from, to Loc) (dir string, dist int) {
	if from.Y == to.Y {
		if to.X > from.X {
			return DirRight, to.X - from.X
		}
		return DirLeft, from.X - to.X
	}
	if to.Y > from.Y {
		return DirUp, to.Y - from.Y
	}
	return DirDown, from.Y - to.Y
}

// between lists the cells strictly between from and to along a straight
// line. For an exit destination this includes the board-edge cell the
// card passes through on its way out.
func between(from, to Loc) []Loc {
	var cells []Loc
	if from.Y == to.Y {
		lo, hi := from.X, to.X
		if lo > hi {
			lo, hi = hi, lo
		}
		for x := lo + 1; x < hi; x++ {
			cells = append(cells, Loc{x, from.Y})
		}
	} else {
		lo, hi := from.Y, to.Y
		if lo > hi {
			lo, hi = hi, lo
		}
		for y := lo + 1; y < hi; y++ {
			cells = append(cells, Loc{from.X, y})
		}
	}
	return cells
}
