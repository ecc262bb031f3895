package main

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/L3viathan/halali/pkg/ai"
	"github.com/L3viathan/halali/pkg/halali"
	"github.com/L3viathan/halali/pkg/netplay"
)

const updateInterval = 100 * time.Millisecond

var (
	colorAnimals = tcell.ColorBlue
	colorHumans  = tcell.ColorOrange
	colorNeutral = tcell.ColorWhite
	colorTree    = tcell.ColorGreen
	colorHidden  = tcell.ColorGray
	colorExit    = tcell.ColorGreenYellow
	colorBoard   = tcell.ColorDarkOliveGreen
	colorPicked  = tcell.ColorRed
)

type GUI struct {
	app   *tview.Application
	board *tview.Table
	hud   *tview.TextView
	msg   *tview.TextView

	game *halali.Game
	net  *netplay.NetGame

	aiActive  bool
	aiPending bool
	aiDelay   time.Duration
	rng       *rand.Rand

	selecting bool
	selected  halali.Loc

	finished bool
	fatalErr error
}

func NewGUI(g *halali.Game, ng *netplay.NetGame, aiDelay time.Duration, single bool) *GUI {
	ui := &GUI{
		app:      tview.NewApplication(),
		board:    tview.NewTable(),
		hud:      tview.NewTextView().SetDynamicColors(true),
		msg:      tview.NewTextView(),
		game:     g,
		net:      ng,
		aiActive: single,
		aiDelay:  aiDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	ui.board.SetSelectable(true, true)
	ui.board.Select(halali.Size/2+1, halali.Size/2+1)
	ui.board.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEscape {
			ui.app.Stop()
		}
	})
	ui.board.SetSelectedFunc(ui.selectCell)
	ui.board.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Rune() == 'r' && ui.selecting {
			ui.attemptRescue(ui.selected)
			ui.selecting = false
			ui.render()
			return nil
		}
		return ev
	})

	layout := tview.NewGrid().
		SetRows(-1, 2*(halali.Size+2), -1).
		SetColumns(-1, 8*(halali.Size+2), 28, -1).
		AddItem(ui.board, 1, 1, 1, 1, 0, 0, true).
		AddItem(ui.hud, 1, 2, 1, 1, 0, 0, false).
		AddItem(ui.msg, 2, 1, 1, 2, 0, 0, false)

	ui.app.SetRoot(layout, true).EnableMouse(true)
	ui.render()
	return ui
}

// Run drives the game loop: a background ticker drains the network and
// event queues and re-renders, everything else happens in tview input
// handlers on the same logical thread.
func (ui *GUI) Run() error {
	stop := make(chan struct{})
	go func() {
		t := time.NewTicker(updateInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				ui.app.QueueUpdateDraw(ui.update)
			case <-stop:
				return
			}
		}
	}()
	err := ui.app.Run()
	close(stop)
	if err != nil {
		return err
	}
	return ui.fatalErr
}

func (ui *GUI) update() {
	if ui.net != nil {
		if err := ui.net.Update(); err != nil {
			ui.fatalErr = err
			ui.app.Stop()
			return
		}
		if ui.net.PeerGone() && !ui.finished {
			ui.say("peer disconnected; remote play is paused")
		}
	}
	ui.drainEvents()
	switch {
	case ui.game.Over():
		ui.finish()
	case ui.aiActive && !ui.game.CanPlay() && !ui.aiPending:
		ui.scheduleAI()
	}
	ui.render()
}

func (ui *GUI) drainEvents() {
	for {
		select {
		case e := <-ui.game.Events:
			switch ev := e.(type) {
			case halali.RevealEvent:
				ui.say(fmt.Sprintf("revealed %s", ev.Loc))
			case halali.MoveEvent:
				ui.say(fmt.Sprintf("moved %s to %s", ev.From, ev.To))
			case halali.RescueEvent:
				ui.say(fmt.Sprintf("rescued %s", ev.Loc))
			}
		default:
			return
		}
	}
}

func (ui *GUI) scheduleAI() {
	ui.aiPending = true
	time.AfterFunc(ui.aiDelay, func() {
		ui.app.QueueUpdateDraw(func() {
			ui.aiPending = false
			if ui.game.Over() || ui.game.CanPlay() {
				return
			}
			op, ok := ai.Choose(ui.game, ui.rng)
			if !ok {
				ui.say("the computer has no possible move")
				return
			}
			if err := op.Apply(ui.game); err != nil {
				log.Printf("rejecting computer move: %v", err)
			}
			ui.render()
		})
	})
}

func (ui *GUI) selectCell(row, col int) {
	defer ui.render()
	loc := cellToLoc(row, col)
	if !inBoard(loc) {
		if ui.selecting && isExit(loc, ui.game.Exits()) {
			ui.attemptRescue(ui.selected)
			ui.selecting = false
		}
		return
	}
	if ui.selecting {
		if loc == ui.selected {
			ui.selecting = false
			return
		}
		ui.attemptMove(ui.selected, loc)
		ui.selecting = false
		return
	}
	card, ok := ui.game.CardAt(loc)
	if !ok {
		return
	}
	if !ui.game.CanPlay() {
		ui.say("not your turn")
		return
	}
	if card.Facing == halali.FaceDown {
		ui.attemptReveal(loc)
		return
	}
	if !halali.MovableBy(card.Kind, ui.game.ToPlay()) {
		ui.say(fmt.Sprintf("team %s can't move %s", ui.game.ToPlay(), card.Kind))
		return
	}
	ui.selected = loc
	ui.selecting = true
}

func (ui *GUI) attemptReveal(loc halali.Loc) {
	if ui.net != nil {
		ui.report(ui.net.Reveal(loc))
		return
	}
	ui.report(ui.game.Reveal(loc, false))
}

func (ui *GUI) attemptMove(from, to halali.Loc) {
	if ui.net != nil {
		ui.report(ui.net.Move(from, to))
		return
	}
	ui.report(ui.game.Move(from, to, false))
}

func (ui *GUI) attemptRescue(loc halali.Loc) {
	if ui.net != nil {
		ui.report(ui.net.Rescue(loc))
		return
	}
	ui.report(ui.game.Rescue(loc, false))
}

func (ui *GUI) report(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, halali.ErrGameOver) {
		ui.finish()
		return
	}
	ui.say(err.Error())
}

func (ui *GUI) say(text string) {
	ui.msg.SetText(text)
}

func (ui *GUI) finish() {
	if ui.finished {
		return
	}
	ui.finished = true
	ui.app.Stop()
}

func (ui *GUI) render() {
	exits := make(map[halali.Loc]bool)
	for _, e := range ui.game.Exits() {
		exits[e] = true
	}
	avail := make(map[halali.Loc]bool)
	if ui.selecting {
		for _, to := range ui.game.AvailableMoves(ui.selected) {
			avail[to] = true
		}
	}

	for row := 0; row < halali.Size+2; row++ {
		for col := 0; col < halali.Size+2; col++ {
			loc := cellToLoc(row, col)
			cell := tview.NewTableCell("        ").SetAlign(tview.AlignCenter)
			switch {
			case inBoard(loc):
				bg := colorBoard
				if ui.selecting && loc == ui.selected {
					bg = colorPicked
				} else if avail[loc] {
					bg = tcell.ColorDarkSlateGray
				}
				cell.SetBackgroundColor(bg)
				if card, ok := ui.game.CardAt(loc); ok {
					label, fg := cardLabel(card)
					cell.SetText(" " + label + " ").SetTextColor(fg)
				}
			case exits[loc]:
				cell.SetText("  EXIT  ").SetBackgroundColor(colorExit).SetTextColor(tcell.ColorBlack)
			default:
				cell.SetSelectable(false)
			}
			ui.board.SetCell(row, col, cell)
		}
	}
	ui.renderHUD()
}

func (ui *GUI) renderHUD() {
	text := fmt.Sprintf("[blue]Animals: %d[-]\n[orange]Humans: %d[-]\n\nto play: %s\n",
		ui.game.Points(halali.Animals),
		ui.game.Points(halali.Humans),
		ui.game.ToPlay(),
	)
	if ui.game.Team != halali.Either {
		text += fmt.Sprintf("you are: %s\n", ui.game.Team)
	}
	if turns, ok := ui.game.TurnsLeft(); ok {
		text += fmt.Sprintf("\n%.1f turns left\n", turns)
	} else {
		text += fmt.Sprintf("\n%d tiles hidden\n", ui.game.TilesLeft())
	}
	if ui.selecting {
		text += "\npress r to rescue\nthe selected card\n"
	}
	ui.hud.SetText(text)
}

func cardLabel(c halali.Card) (string, tcell.Color) {
	if c.Facing == halali.FaceDown {
		return "░░░░░░", colorHidden
	}
	switch c.Kind {
	case halali.Fox:
		return " FOX  ", colorAnimals
	case halali.Bear:
		return " BEAR ", colorAnimals
	case halali.Duck:
		return " DUCK ", colorNeutral
	case halali.Pheasant:
		return "PHEAS.", colorNeutral
	case halali.Hunter:
		return "HUNT" + arrow(c.Variant) + " ", colorHumans
	case halali.Lumberjack:
		return "LUMBER", colorHumans
	case halali.Tree:
		return " TREE ", colorTree
	}
	return string(c.Kind), colorNeutral
}

func arrow(dir string) string {
	switch dir {
	case halali.DirUp:
		return "↑"
	case halali.DirDown:
		return "↓"
	case halali.DirLeft:
		return "←"
	case halali.DirRight:
		return "→"
	}
	return "?"
}

// The table is the board plus a one-cell border where the exits
// appear. Y runs bottom to top, table rows top to bottom.
func cellToLoc(row, col int) halali.Loc {
	return halali.Loc{X: col - 1, Y: halali.Size - row}
}

func inBoard(loc halali.Loc) bool {
	return loc.X >= 0 && loc.X < halali.Size && loc.Y >= 0 && loc.Y < halali.Size
}

func isExit(loc halali.Loc, exits []halali.Loc) bool {
	for _, e := range exits {
		if e == loc {
			return true
		}
	}
	return false
}
