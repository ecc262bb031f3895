package halali

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// testGame builds a position directly, bypassing the deal.
func testGame(cards map[Loc]Card) *Game {
	g := NewEmpty()
	g.tilesLeft = 0
	for loc, c := range cards {
		card := c
		g.cards[loc.X][loc.Y] = &card
		if card.Facing == FaceDown {
			g.tilesLeft++
		}
	}
	return g
}

func up(kind Kind) Card   { return Card{Kind: kind, Facing: FaceUp} }
func down(kind Kind) Card { return Card{Kind: kind, Facing: FaceDown} }

func hunter(dir string) Card {
	return Card{Kind: Hunter, Variant: dir, Facing: FaceUp}
}

func wantInvalid(t *testing.T, err error, substr string) {
	t.Helper()
	var im *InvalidMove
	if !errors.As(err, &im) {
		t.Fatalf("got %v, want an invalid-move error", err)
	}
	if !strings.Contains(im.Reason, substr) {
		t.Errorf("reason %q does not mention %q", im.Reason, substr)
	}
}

func TestFoxEatsDuck(t *testing.T) {
	g := testGame(map[Loc]Card{
		{0, 0}: up(Duck),
		{3, 0}: up(Fox),
	})

	if err := g.Move(Loc{3, 0}, Loc{0, 0}, false); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if got := g.Points(Animals); got != 2 {
		t.Errorf("animals have %d points, want 2", got)
	}
	if card, ok := g.CardAt(Loc{0, 0}); !ok || card.Kind != Fox {
		t.Errorf("cell (0,0) holds %v, want the fox", card)
	}
	if _, ok := g.CardAt(Loc{3, 0}); ok {
		t.Error("cell (3,0) should be empty")
	}
	if g.ToPlay() != Humans {
		t.Errorf("to play is %s, want humans", g.ToPlay())
	}
}

func TestMoveRejections(t *testing.T) {
	tests := []struct {
		name     string
		cards    map[Loc]Card
		from, to Loc
		reason   string
	}{
		{
			name:   "diagonal",
			cards:  map[Loc]Card{{0, 0}: up(Fox)},
			from:   Loc{0, 0},
			to:     Loc{2, 2},
			reason: "diagonally",
		},
		{
			name:   "no movement",
			cards:  map[Loc]Card{{0, 0}: up(Fox)},
			from:   Loc{0, 0},
			to:     Loc{0, 0},
			reason: "didn't move",
		},
		{
			name:   "empty source",
			cards:  map[Loc]Card{},
			from:   Loc{0, 0},
			to:     Loc{0, 3},
			reason: "empty tile",
		},
		{
			name: "obstructed path",
			cards: map[Loc]Card{
				{0, 0}: up(Fox),
				{2, 0}: up(Tree),
			},
			from:   Loc{0, 0},
			to:     Loc{4, 0},
			reason: "obstructed",
		},
		{
			name:   "immovable tree",
			cards:  map[Loc]Card{{1, 1}: up(Tree)},
			from:   Loc{1, 1},
			to:     Loc{1, 3},
			reason: "can't move",
		},
		{
			name:   "face-down source",
			cards:  map[Loc]Card{{1, 1}: down(Fox)},
			from:   Loc{1, 1},
			to:     Loc{1, 3},
			reason: "face-down",
		},
		{
			name: "face-down target",
			cards: map[Loc]Card{
				{1, 1}: up(Fox),
				{1, 4}: down(Duck),
			},
			from:   Loc{1, 1},
			to:     Loc{1, 4},
			reason: "face-down",
		},
		{
			name:   "enemy piece",
			cards:  map[Loc]Card{{1, 1}: hunter(DirUp)},
			from:   Loc{1, 1},
			to:     Loc{1, 3},
			reason: "can't move hunter",
		},
		{
			name:   "slow bear",
			cards:  map[Loc]Card{{1, 1}: up(Bear)},
			from:   Loc{1, 1},
			to:     Loc{1, 4},
			reason: "one tile",
		},
		{
			name: "not edible",
			cards: map[Loc]Card{
				{1, 1}: up(Fox),
				{1, 3}: up(Tree),
			},
			from:   Loc{1, 1},
			to:     Loc{1, 3},
			reason: "can't eat",
		},
		{
			name:   "off the board",
			cards:  map[Loc]Card{{0, 0}: up(Fox)},
			from:   Loc{0, 0},
			to:     Loc{0, 9},
			reason: "outside the board",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGame(tt.cards)
			before := g.Snapshot()
			err := g.Move(tt.from, tt.to, false)
			wantInvalid(t, err, tt.reason)
			if !reflect.DeepEqual(before, g.Snapshot()) {
				t.Error("rejected move mutated the board")
			}
			if g.ToPlay() != Animals {
				t.Error("rejected move swapped the turn")
			}
		})
	}
}

func TestSlowMoveWithinRange(t *testing.T) {
	g := testGame(map[Loc]Card{
		{1, 1}: up(Bear),
		{1, 2}: hunter(DirUp),
	})

	if err := g.Move(Loc{1, 1}, Loc{1, 2}, false); err != nil {
		t.Fatalf("bear capture at distance one failed: %v", err)
	}
	if got := g.Points(Animals); got != 5 {
		t.Errorf("animals have %d points, want 5", got)
	}
}

func TestHunterDirectionalCapture(t *testing.T) {
	g := testGame(map[Loc]Card{
		{2, 2}: hunter(DirRight),
		{5, 2}: up(Fox),
	})
	g.toPlay = Humans

	if err := g.Move(Loc{2, 2}, Loc{5, 2}, false); err != nil {
		t.Fatalf("rightward capture failed: %v", err)
	}

	// Mirrored: the target sits to the hunter's left.
	g = testGame(map[Loc]Card{
		{5, 2}: hunter(DirRight),
		{2, 2}: up(Fox),
	})
	g.toPlay = Humans

	err := g.Move(Loc{5, 2}, Loc{2, 2}, false)
	wantInvalid(t, err, "can only capture moving right")
}

func TestHunterMovesFreelyWithoutCapture(t *testing.T) {
	g := testGame(map[Loc]Card{{5, 2}: hunter(DirRight)})
	g.toPlay = Humans

	// Direction only constrains captures, not plain moves.
	if err := g.Move(Loc{5, 2}, Loc{2, 2}, false); err != nil {
		t.Fatalf("plain leftward move failed: %v", err)
	}
}

func TestRevealTwice(t *testing.T) {
	g := testGame(map[Loc]Card{
		{1, 1}: down(Duck),
		{2, 2}: down(Duck),
	})

	if err := g.Reveal(Loc{1, 1}, false); err != nil {
		t.Fatalf("first reveal failed: %v", err)
	}
	if g.ToPlay() != Humans {
		t.Error("reveal did not swap the turn")
	}
	err := g.Reveal(Loc{1, 1}, false)
	wantInvalid(t, err, "face-up")
}

func TestRevealRejections(t *testing.T) {
	g := testGame(map[Loc]Card{{1, 1}: up(Duck)})

	wantInvalid(t, g.Reveal(Loc{3, 3}, false), "empty")
	wantInvalid(t, g.Reveal(Loc{1, 1}, false), "face-up")
}

func TestEndgameTransition(t *testing.T) {
	g := testGame(map[Loc]Card{
		{1, 1}: down(Duck),
		{2, 2}: hunter(DirUp),
	})

	if g.Exits() != nil {
		t.Error("exits exist before the endgame")
	}
	if _, ok := g.TurnsLeft(); ok {
		t.Error("turn budget exists before the endgame")
	}

	if err := g.Reveal(Loc{1, 1}, false); err != nil {
		t.Fatal(err)
	}

	if g.TilesLeft() != 0 {
		t.Errorf("tiles left is %d, want 0", g.TilesLeft())
	}
	if !g.Endgame() {
		t.Fatal("revealing the last tile did not start the endgame")
	}
	if turns, ok := g.TurnsLeft(); !ok || turns != 5 {
		t.Errorf("turn budget is %v, want 5", turns)
	}
	if len(g.Exits()) != 4 {
		t.Errorf("%d exits, want 4", len(g.Exits()))
	}

	// Further operations tick the budget but never re-create exits.
	exits := g.Exits()
	if err := g.Move(Loc{2, 2}, Loc{2, 4}, false); err != nil {
		t.Fatal(err)
	}
	if turns, _ := g.TurnsLeft(); turns != 4.5 {
		t.Errorf("turn budget is %v, want 4.5", turns)
	}
	if !reflect.DeepEqual(exits, g.Exits()) {
		t.Error("exits changed after the endgame began")
	}
}

func TestGameOver(t *testing.T) {
	g := testGame(map[Loc]Card{
		{2, 2}: up(Fox),
		{4, 4}: hunter(DirUp),
	})
	g.endgame = true
	g.turnsLeft = 1 // half a turn left

	if err := g.Move(Loc{2, 2}, Loc{2, 4}, false); err != nil {
		t.Fatalf("last operation failed: %v", err)
	}
	if !g.Over() {
		t.Fatal("budget spent but game not over")
	}

	before := g.Snapshot()
	if err := g.Move(Loc{4, 4}, Loc{4, 6}, false); !errors.Is(err, ErrGameOver) {
		t.Errorf("got %v, want ErrGameOver", err)
	}
	if !reflect.DeepEqual(before, g.Snapshot()) {
		t.Error("operation after game over mutated the board")
	}
}

func TestRescue(t *testing.T) {
	g := testGame(map[Loc]Card{{0, 3}: up(Fox)})
	g.endgame = true
	g.turnsLeft = endgameHalfTurns

	if err := g.Rescue(Loc{0, 3}, false); err != nil {
		t.Fatalf("rescue failed: %v", err)
	}
	if got := g.Points(Animals); got != 5 {
		t.Errorf("animals have %d points, want 5", got)
	}
	if _, ok := g.CardAt(Loc{0, 3}); ok {
		t.Error("rescued card still on the board")
	}
	if g.ToPlay() != Humans {
		t.Error("rescue did not swap the turn")
	}
	if turns, _ := g.TurnsLeft(); turns != 4.5 {
		t.Errorf("turn budget is %v, want 4.5", turns)
	}
}

func TestRescueAlongClearPath(t *testing.T) {
	// Fox on the middle row, with the right exit blocked by a tree:
	// it can still escape through the left exit.
	g := testGame(map[Loc]Card{
		{5, 3}: up(Fox),
		{6, 3}: up(Tree),
	})
	g.endgame = true
	g.turnsLeft = endgameHalfTurns

	if err := g.Rescue(Loc{5, 3}, false); err != nil {
		t.Fatalf("rescue failed: %v", err)
	}

	// Both directions blocked.
	g = testGame(map[Loc]Card{
		{5, 3}: up(Fox),
		{6, 3}: up(Tree),
		{4, 3}: up(Tree),
	})
	g.endgame = true
	g.turnsLeft = endgameHalfTurns

	wantInvalid(t, g.Rescue(Loc{5, 3}, false), "can't escape")
}

func TestRescueRejections(t *testing.T) {
	tests := []struct {
		name    string
		cards   map[Loc]Card
		endgame bool
		toPlay  Team
		loc     Loc
		reason  string
	}{
		{
			name:    "before the endgame",
			cards:   map[Loc]Card{{0, 3}: up(Fox), {1, 1}: down(Duck)},
			endgame: false,
			toPlay:  Animals,
			loc:     Loc{0, 3},
			reason:  "no exits",
		},
		{
			name:    "neutral piece",
			cards:   map[Loc]Card{{0, 3}: up(Duck)},
			endgame: true,
			toPlay:  Animals,
			loc:     Loc{0, 3},
			reason:  "neutral",
		},
		{
			name:    "enemy piece",
			cards:   map[Loc]Card{{0, 3}: up(Fox)},
			endgame: true,
			toPlay:  Humans,
			loc:     Loc{0, 3},
			reason:  "neutral",
		},
		{
			name:    "empty cell",
			cards:   map[Loc]Card{},
			endgame: true,
			toPlay:  Animals,
			loc:     Loc{0, 3},
			reason:  "empty",
		},
		{
			name:    "off any exit line",
			cards:   map[Loc]Card{{1, 1}: up(Fox)},
			endgame: true,
			toPlay:  Animals,
			loc:     Loc{1, 1},
			reason:  "can't escape",
		},
		{
			name:    "face-down card on an edge cell",
			cards:   map[Loc]Card{{0, 3}: down(Fox)},
			endgame: true,
			toPlay:  Animals,
			loc:     Loc{0, 3},
			reason:  "can't escape",
		},
		{
			name:    "slow bear too far from the exit",
			cards:   map[Loc]Card{{3, 1}: up(Bear)},
			endgame: true,
			toPlay:  Animals,
			loc:     Loc{3, 1},
			reason:  "can't escape",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGame(tt.cards)
			if tt.endgame {
				g.endgame = true
				g.turnsLeft = endgameHalfTurns
			}
			g.toPlay = tt.toPlay
			wantInvalid(t, g.Rescue(tt.loc, false), tt.reason)
		})
	}
}

func TestSlowRescueFromEdgeCell(t *testing.T) {
	g := testGame(map[Loc]Card{{3, 0}: up(Bear)})
	g.endgame = true
	g.turnsLeft = endgameHalfTurns

	if err := g.Rescue(Loc{3, 0}, false); err != nil {
		t.Fatalf("bear on the edge cell should escape: %v", err)
	}
	if got := g.Points(Animals); got != 10 {
		t.Errorf("animals have %d points, want 10", got)
	}
}

func TestForEnemyConsistencyCheck(t *testing.T) {
	g := testGame(map[Loc]Card{
		{1, 1}: down(Duck),
		{2, 2}: down(Duck),
		{3, 3}: down(Duck),
	})
	g.Team = Animals

	// It is our turn: a peer-reported operation must be rejected.
	wantInvalid(t, g.Reveal(Loc{1, 1}, true), "not the other player's turn")

	if err := g.Reveal(Loc{1, 1}, false); err != nil {
		t.Fatal(err)
	}

	// Now it is theirs: a local operation must be rejected.
	wantInvalid(t, g.Reveal(Loc{2, 2}, false), "not your turn")
	if err := g.Reveal(Loc{2, 2}, true); err != nil {
		t.Fatal(err)
	}
}

func TestReplayIdenticalBoards(t *testing.T) {
	a, b := New(99), New(99)

	ops := []func(g *Game) error{
		func(g *Game) error { return g.Reveal(Loc{0, 0}, false) },
		func(g *Game) error { return g.Reveal(Loc{6, 6}, false) },
		func(g *Game) error { return g.Reveal(Loc{0, 1}, false) },
		func(g *Game) error { return g.Reveal(Loc{5, 5}, false) },
	}
	for i, op := range ops {
		if err := op(a); err != nil {
			t.Fatalf("op %d on a: %v", i, err)
		}
		if err := op(b); err != nil {
			t.Fatalf("op %d on b: %v", i, err)
		}
	}

	if !reflect.DeepEqual(a.Snapshot(), b.Snapshot()) {
		t.Error("replaying the same operations diverged the boards")
	}
	if a.ToPlay() != b.ToPlay() || a.TilesLeft() != b.TilesLeft() {
		t.Error("replaying the same operations diverged the turn state")
	}
}

func TestSnapshotRestore(t *testing.T) {
	a := New(5)
	if err := a.Reveal(Loc{0, 0}, false); err != nil {
		t.Fatal(err)
	}

	b := NewEmpty()
	if err := b.Restore(a.Snapshot()); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Snapshot(), b.Snapshot()) {
		t.Error("restored board differs from the original")
	}
	if b.TilesLeft() != a.TilesLeft() {
		t.Errorf("restored %d hidden tiles, want %d", b.TilesLeft(), a.TilesLeft())
	}

	if err := b.Restore(Snapshot{}); err == nil {
		t.Error("restoring a malformed snapshot succeeded")
	}
}

func TestAvailableMoves(t *testing.T) {
	g := testGame(map[Loc]Card{{3, 3}: up(Fox)})
	if got := len(g.AvailableMoves(Loc{3, 3})); got != 12 {
		t.Errorf("fox in the open has %d moves, want 12", got)
	}

	g = testGame(map[Loc]Card{
		{3, 3}: up(Fox),
		{3, 5}: up(Tree),
	})
	// The tree is not edible and blocks everything behind it.
	got := g.AvailableMoves(Loc{3, 3})
	if len(got) != 10 {
		t.Errorf("fox has %d moves, want 10: %v", len(got), got)
	}
	for _, to := range got {
		if to == (Loc{3, 5}) || to == (Loc{3, 6}) {
			t.Errorf("move to %s should be blocked", to)
		}
	}
}

func TestWinnerTieBreak(t *testing.T) {
	g := NewEmpty()
	if g.Winner() != Humans {
		t.Error("a tie defaults to humans")
	}
	g.TieBreak = Animals
	if g.Winner() != Animals {
		t.Error("configured tie-break ignored")
	}
	g.points[Animals] = 3
	if g.Winner() != Animals {
		t.Error("higher score must win")
	}
	g.points[Humans] = 5
	if g.Winner() != Humans {
		t.Error("higher score must win")
	}
}

func TestEventsEmitted(t *testing.T) {
	g := testGame(map[Loc]Card{
		{1, 1}: down(Duck),
		{2, 2}: hunter(DirUp),
	})

	if err := g.Reveal(Loc{1, 1}, false); err != nil {
		t.Fatal(err)
	}
	select {
	case e := <-g.Events:
		if ev, ok := e.(RevealEvent); !ok || ev.Loc != (Loc{1, 1}) {
			t.Errorf("got %v, want a reveal of (1,1)", e)
		}
	default:
		t.Fatal("no event emitted for a committed reveal")
	}

	if err := g.Move(Loc{2, 2}, Loc{2, 0}, false); err != nil {
		t.Fatal(err)
	}
	select {
	case e := <-g.Events:
		if ev, ok := e.(MoveEvent); !ok || ev.From != (Loc{2, 2}) || ev.To != (Loc{2, 0}) {
			t.Errorf("got %v, want a move event", e)
		}
	default:
		t.Fatal("no event emitted for a committed move")
	}
}
