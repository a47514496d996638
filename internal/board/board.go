// internal/board/board.go
//
// In-memory game.Renderer for HTTP clients.
// The controller draws into a Board; handlers read it back as a View and
// forward player clicks through Select.
//
// Card faces (label, image) are only exposed once a card is face up, so a
// client cannot read the layout of a hidden board.

package board

import (
	"errors"
	"sync"

	"github.com/robalobadob/flipcard/internal/deck"
	"github.com/robalobadob/flipcard/internal/game"
)

// ErrNotRendered is returned by Select before the first Render.
var ErrNotRendered = errors.New("board not rendered")

// CardView is one placeholder as seen by the client.
type CardView struct {
	ID    int            `json:"id"`
	State game.CardState `json:"state"`
	Color string         `json:"color"`
	Label string         `json:"label,omitempty"`
	Image string         `json:"image,omitempty"`
}

// Overlay is the dismissible win screen.
type Overlay struct {
	Visible bool `json:"visible"`
	Score   int  `json:"score"`
	Moves   int  `json:"moves"`
}

// View is the full board as drawn.
type View struct {
	Cards   []CardView `json:"cards"`
	Score   int        `json:"score"`
	Moves   int        `json:"moves"`
	Overlay Overlay    `json:"overlay"`
}

// Board implements game.Renderer.
type Board struct {
	mu       sync.RWMutex
	cards    []CardView
	pos      map[int]int // card ID -> index in cards
	onSelect func(int) error
	score    int
	moves    int
	overlay  Overlay
}

// New returns an empty board.
func New() *Board { return &Board{} }

var _ game.Renderer = (*Board)(nil)

func (b *Board) Render(cards []deck.Card, onSelect func(int) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cards = make([]CardView, len(cards))
	b.pos = make(map[int]int, len(cards))
	for i, c := range cards {
		b.cards[i] = CardView{
			ID:    c.ID,
			State: game.CardHidden,
			Color: c.Def.Color,
			Label: c.Def.Label,
			Image: c.Def.Image,
		}
		b.pos[c.ID] = i
	}
	b.onSelect = onSelect
}

func (b *Board) Mark(id int, st game.CardState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.pos[id]; ok {
		b.cards[i].State = st
	}
}

func (b *Board) ShowSummary(score, moves int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.score, b.moves = score, moves
}

func (b *Board) ShowWin(score, moves int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overlay = Overlay{Visible: true, Score: score, Moves: moves}
}

func (b *Board) HideWin() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overlay = Overlay{}
}

// Dismiss closes the win overlay without starting a new round.
func (b *Board) Dismiss() { b.HideWin() }

// Select forwards a click on card id to the selection callback.
func (b *Board) Select(id int) error {
	b.mu.RLock()
	fn := b.onSelect
	b.mu.RUnlock()
	if fn == nil {
		return ErrNotRendered
	}
	return fn(id)
}

// View returns the board as drawn, with faces of hidden cards blanked.
func (b *Board) View() View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := View{
		Cards:   make([]CardView, len(b.cards)),
		Score:   b.score,
		Moves:   b.moves,
		Overlay: b.overlay,
	}
	for i, c := range b.cards {
		if c.State == game.CardHidden {
			c.Label, c.Image = "", ""
		}
		out.Cards[i] = c
	}
	return out
}
