package main

import (
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flipcard/internal/deck"
	"github.com/robalobadob/flipcard/internal/game"
)

const winPage = "win"

// Renderer draws the board into a tview table.
//
// The controller calls in from timer goroutines and, through key handlers,
// from the UI goroutine itself, always with its lock held. QueueUpdateDraw
// blocks until the event loop runs the update, so widget changes are queued
// in order and handed to the application by a single pump goroutine instead.
type Renderer struct {
	app     *tview.Application
	table   *tview.Table
	summary *tview.TextView
	pages   *tview.Pages
	modal   *tview.Modal

	mu       sync.Mutex
	cards    []deck.Card
	cols     int
	onSelect func(int) error

	qmu     sync.Mutex
	pending []func()
	wake    chan struct{}
}

// NewRenderer builds the widgets. onPlayAgain runs when the player picks
// "Play again" on the win dialog.
func NewRenderer(app *tview.Application, onPlayAgain func()) *Renderer {
	r := &Renderer{
		app:     app,
		table:   tview.NewTable(),
		summary: tview.NewTextView().SetDynamicColors(true),
		pages:   tview.NewPages(),
		modal:   tview.NewModal(),
		wake:    make(chan struct{}, 1),
	}
	r.table.SetBorders(true).SetSelectable(true, true)
	r.table.SetSelectedFunc(r.selected)

	r.modal.AddButtons([]string{"Play again", "Close"}).
		SetDoneFunc(func(_ int, label string) {
			r.pages.HidePage(winPage)
			r.app.SetFocus(r.table)
			if label == "Play again" {
				onPlayAgain()
			}
		})

	r.pages.AddPage("board", r.table, true, true)
	r.pages.AddPage(winPage, r.modal, false, false)
	go r.pump()
	return r
}

// update queues f to run on the UI goroutine. It never blocks.
func (r *Renderer) update(f func()) {
	r.qmu.Lock()
	r.pending = append(r.pending, f)
	r.qmu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// pump forwards queued updates to the application in batches, oldest first.
func (r *Renderer) pump() {
	for range r.wake {
		for {
			r.qmu.Lock()
			batch := r.pending
			r.pending = nil
			r.qmu.Unlock()
			if len(batch) == 0 {
				break
			}
			r.app.QueueUpdateDraw(func() {
				for _, f := range batch {
					f()
				}
			})
		}
	}
}

// Root is the primitive to hand to tview.Application.SetRoot.
func (r *Renderer) Root() tview.Primitive {
	return tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(r.pages, 0, 1, true).
		AddItem(r.summary, 1, 0, false)
}

var _ game.Renderer = (*Renderer)(nil)

func (r *Renderer) Render(cards []deck.Card, onSelect func(int) error) {
	r.mu.Lock()
	r.cards = cards
	r.cols = columns(len(cards))
	r.onSelect = onSelect
	cols := r.cols
	r.mu.Unlock()

	r.update(func() {
		r.table.Clear()
		for i, c := range cards {
			r.table.SetCell(i/cols, i%cols, cell(c, game.CardHidden))
		}
		r.table.Select(0, 0)
	})
}

func (r *Renderer) Mark(id int, st game.CardState) {
	r.mu.Lock()
	pos, card, ok := r.find(id)
	cols := r.cols
	r.mu.Unlock()
	if !ok {
		return
	}
	r.update(func() {
		r.table.SetCell(pos/cols, pos%cols, cell(card, st))
	})
}

func (r *Renderer) ShowSummary(score, moves int) {
	text := summaryText(score, moves)
	r.update(func() { r.summary.SetText(text) })
}

func (r *Renderer) ShowWin(score, moves int) {
	text := fmt.Sprintf("You found every pair!\n\nScore: %d   Moves: %d", score, moves)
	r.update(func() {
		r.modal.SetText(text)
		r.pages.ShowPage(winPage)
	})
}

func (r *Renderer) HideWin() {
	r.update(func() {
		r.pages.HidePage(winPage)
		r.app.SetFocus(r.table)
	})
}

// selected runs on the UI goroutine when Enter is pressed on a cell.
func (r *Renderer) selected(row, col int) {
	r.mu.Lock()
	pos := row*r.cols + col
	var id int
	ok := pos >= 0 && pos < len(r.cards)
	if ok {
		id = r.cards[pos].ID
	}
	fn := r.onSelect
	r.mu.Unlock()

	if !ok || fn == nil {
		return
	}
	if err := fn(id); err != nil {
		log.Debug().Err(err).Int("card", id).Msg("reveal rejected")
	}
}

// find returns the board position of card id. Called with r.mu held.
func (r *Renderer) find(id int) (int, deck.Card, bool) {
	for i, c := range r.cards {
		if c.ID == id {
			return i, c, true
		}
	}
	return 0, deck.Card{}, false
}

// columns picks a near-square grid width for n cards.
func columns(n int) int {
	if n <= 0 {
		return 1
	}
	return int(math.Ceil(math.Sqrt(float64(n))))
}

// cell draws one card in the given state.
func cell(c deck.Card, st game.CardState) *tview.TableCell {
	accent := tcell.GetColor(c.Def.Color)
	switch st {
	case game.CardRevealed:
		return tview.NewTableCell(" " + c.Def.Label + " ").
			SetAlign(tview.AlignCenter).
			SetTextColor(accent).
			SetAttributes(tcell.AttrBold).
			SetExpansion(1)
	case game.CardMatched:
		return tview.NewTableCell(" " + c.Def.Label + " ").
			SetAlign(tview.AlignCenter).
			SetTextColor(accent).
			SetAttributes(tcell.AttrDim).
			SetSelectable(false).
			SetExpansion(1)
	default:
		return tview.NewTableCell(" ? ").
			SetAlign(tview.AlignCenter).
			SetTextColor(accent).
			SetExpansion(1)
	}
}

func summaryText(score, moves int) string {
	return fmt.Sprintf("Score: [yellow]%d[-]   Moves: [yellow]%d[-]   Enter: flip   r: new round   q: quit", score, moves)
}
