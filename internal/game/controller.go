// internal/game/controller.go
//
// Controller runs one memory-matching board.
// Responsibilities:
//   - Build and shuffle a deck per round and hand it to the Renderer.
//   - Accept reveals, lock the board while a pair is being evaluated.
//   - Score matches, hide mismatches, detect the win.
//   - Play card, match and win sounds through the SoundPlayer.
//
// Notes:
//   - Every entry point (Reveal, NewRound, timer callbacks, State) runs under
//     one mutex, so the board behaves as if driven from a single thread.
//   - Scheduled callbacks carry the round generation they were created in and
//     do nothing once NewRound has moved the generation on.
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flipcard/internal/deck"
)

const (
	DefaultReward        = 10
	DefaultSoundDelay    = 300 * time.Millisecond
	DefaultEvaluateDelay = 800 * time.Millisecond
	DefaultWinDelay      = 500 * time.Millisecond
)

// Rejected reveals. The round state is unchanged when Reveal returns one of these.
var (
	ErrLocked          = errors.New("board locked")
	ErrAlreadyRevealed = errors.New("card already revealed")
	ErrUnknownCard     = errors.New("unknown card")
)

// Options tunes a Controller. Zero values fall back to the defaults above,
// a crypto-seeded random source and TimerScheduler.
type Options struct {
	Rand          *rand.Rand
	Scheduler     Scheduler
	Reward        int
	SoundDelay    time.Duration
	EvaluateDelay time.Duration
	WinDelay      time.Duration

	// OnChange, if set, runs after a timer has resolved a pair or shown the
	// win, outside the controller lock.
	OnChange func()
}

func (o Options) withDefaults() Options {
	if o.Rand == nil {
		o.Rand = deck.NewRand(0)
	}
	if o.Scheduler == nil {
		o.Scheduler = TimerScheduler()
	}
	if o.Reward == 0 {
		o.Reward = DefaultReward
	}
	if o.SoundDelay == 0 {
		o.SoundDelay = DefaultSoundDelay
	}
	if o.EvaluateDelay == 0 {
		o.EvaluateDelay = DefaultEvaluateDelay
	}
	if o.WinDelay == 0 {
		o.WinDelay = DefaultWinDelay
	}
	return o
}

// Controller owns the deck and round state of one board.
type Controller struct {
	mu       sync.Mutex
	defs     []deck.Definition
	renderer Renderer
	sound    SoundPlayer
	opts     Options

	generation uint64
	cards      []deck.Card
	byID       map[int]deck.Card
	states     []CardState
	revealed   []int
	matched    int
	moves      int
	score      int
	locked     bool
	winShown   bool
	changed    bool // set by timer callbacks, consumed by after
}

// NewController wires a controller to its collaborators. No round exists
// until NewRound or Restore is called.
func NewController(defs []deck.Definition, r Renderer, s SoundPlayer, opts Options) *Controller {
	return &Controller{
		defs:     slices.Clone(defs),
		renderer: r,
		sound:    s,
		opts:     opts.withDefaults(),
	}
}

// NewRound discards the current round, shuffles a fresh deck and redraws the
// board. Safe to call at any point, including mid-evaluation.
func (c *Controller) NewRound() { c.newRound(c.opts.Rand) }

// NewRoundFrom is NewRound with the deck shuffled by src. Later rounds go
// back to the controller's own random source.
func (c *Controller) NewRoundFrom(src *rand.Rand) { c.newRound(src) }

func (c *Controller) newRound(src *rand.Rand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.cards = deck.New(c.defs, src)
	c.states = make([]CardState, len(c.cards))
	for i := range c.states {
		c.states[i] = CardHidden
	}
	c.revealed = c.revealed[:0]
	c.matched, c.moves, c.score = 0, 0, 0
	c.locked, c.winShown = false, false
	c.index()

	c.renderer.HideWin()
	c.renderer.ShowSummary(0, 0)
	c.renderer.Render(slices.Clone(c.cards), c.Reveal)
	log.Debug().Uint64("generation", c.generation).Int("cards", len(c.cards)).Msg("new round")
}

// Reveal flips the card with the given ID face up. The second reveal of a
// pair attempt counts a move, locks the board and schedules evaluation.
func (c *Controller) Reveal(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.locked {
		return ErrLocked
	}
	card, ok := c.byID[id]
	if !ok {
		return ErrUnknownCard
	}
	if len(c.revealed) == 1 && c.revealed[0] == id {
		return ErrAlreadyRevealed
	}
	if c.states[id] != CardHidden {
		return ErrAlreadyRevealed
	}

	c.states[id] = CardRevealed
	c.revealed = append(c.revealed, id)
	c.renderer.Mark(id, CardRevealed)

	ref := card.Def.Sound
	c.after(c.opts.SoundDelay, func() { c.play(ref) })

	if len(c.revealed) == 2 {
		c.moves++
		c.locked = true
		c.renderer.ShowSummary(c.score, c.moves)
		c.after(c.opts.EvaluateDelay, c.evaluate)
	}
	return nil
}

// evaluate resolves the pending pair. Called with c.mu held.
func (c *Controller) evaluate() {
	if len(c.revealed) != 2 {
		return
	}
	a, b := c.byID[c.revealed[0]], c.byID[c.revealed[1]]

	if a.Matches(b) {
		c.states[a.ID], c.states[b.ID] = CardMatched, CardMatched
		c.renderer.Mark(a.ID, CardMatched)
		c.renderer.Mark(b.ID, CardMatched)
		c.score += c.opts.Reward
		c.matched++
		c.play(SoundMatch)
	} else {
		c.states[a.ID], c.states[b.ID] = CardHidden, CardHidden
		c.renderer.Mark(a.ID, CardHidden)
		c.renderer.Mark(b.ID, CardHidden)
	}
	c.revealed = c.revealed[:0]
	c.locked = false
	c.changed = true
	c.renderer.ShowSummary(c.score, c.moves)

	if c.matched == len(c.defs) {
		log.Info().Int("score", c.score).Int("moves", c.moves).Msg("round won")
		c.after(c.opts.WinDelay, c.win)
	}
}

// win plays the completion sound and shows the overlay, once per round.
func (c *Controller) win() {
	if c.winShown {
		return
	}
	c.winShown = true
	c.changed = true
	c.play(SoundWin)
	c.renderer.ShowWin(c.score, c.moves)
}

// after schedules f under the controller lock, bound to the current round.
// OnChange runs once the lock is released if f changed the round.
func (c *Controller) after(d time.Duration, f func()) {
	gen := c.generation
	c.opts.Scheduler.AfterFunc(d, func() {
		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return
		}
		f()
		notify := c.changed
		c.changed = false
		c.mu.Unlock()

		if notify && c.opts.OnChange != nil {
			c.opts.OnChange()
		}
	})
}

func (c *Controller) play(ref string) {
	if c.sound == nil || ref == "" {
		return
	}
	if err := c.sound.Play(ref); err != nil {
		log.Warn().Err(err).Str("sound", ref).Msg("sound playback failed")
	}
}

func (c *Controller) index() {
	c.byID = make(map[int]deck.Card, len(c.cards))
	for _, card := range c.cards {
		c.byID[card.ID] = card
	}
}

func (c *Controller) phase() Phase {
	switch {
	case len(c.cards) > 0 && c.matched == len(c.defs):
		return PhaseWon
	case c.locked:
		return PhaseLocked
	case len(c.revealed) == 1:
		return PhaseOneRevealed
	default:
		return PhaseIdle
	}
}

// State returns a copy of the current round progress.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	cards := make(map[int]CardState, len(c.states))
	for id, st := range c.states {
		cards[id] = st
	}
	return State{
		Generation: c.generation,
		Phase:      c.phase(),
		Revealed:   append([]int{}, c.revealed...),
		Cards:      cards,
		Matched:    c.matched,
		TotalPairs: len(c.defs),
		Moves:      c.moves,
		Score:      c.score,
		Locked:     c.locked,
		WinShown:   c.winShown,
	}
}

// Deck returns the current deck in board order.
func (c *Controller) Deck() []deck.Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cards)
}

// Snapshot captures the current round.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Deck:     slices.Clone(c.cards),
		States:   slices.Clone(c.states),
		Revealed: slices.Clone(c.revealed),
		Matched:  c.matched,
		Moves:    c.moves,
		Score:    c.score,
		WinShown: c.winShown,
	}
}

// Restore replaces the current round with snap and redraws the board.
// A pair that was awaiting evaluation is evaluated again after the usual
// delay; a round whose win overlay was already shown shows it again without
// replaying the win sound.
func (c *Controller) Restore(snap Snapshot) error {
	if err := c.validate(snap); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.cards = slices.Clone(snap.Deck)
	c.states = slices.Clone(snap.States)
	c.revealed = slices.Clone(snap.Revealed)
	c.matched, c.moves, c.score = snap.Matched, snap.Moves, snap.Score
	c.winShown = snap.WinShown
	c.locked = len(c.revealed) == 2
	c.index()

	c.renderer.HideWin()
	c.renderer.Render(slices.Clone(c.cards), c.Reveal)
	for id, st := range c.states {
		if st != CardHidden {
			c.renderer.Mark(id, st)
		}
	}
	c.renderer.ShowSummary(c.score, c.moves)

	switch {
	case c.locked:
		c.after(c.opts.EvaluateDelay, c.evaluate)
	case c.winShown:
		c.renderer.ShowWin(c.score, c.moves)
	case c.matched == len(c.defs):
		c.after(c.opts.WinDelay, c.win)
	}
	return nil
}

func (c *Controller) validate(snap Snapshot) error {
	n := 2 * len(c.defs)
	if len(snap.Deck) != n || len(snap.States) != n {
		return fmt.Errorf("snapshot: deck of %d cards, want %d", len(snap.Deck), n)
	}
	if len(snap.Revealed) > 2 {
		return fmt.Errorf("snapshot: %d revealed cards", len(snap.Revealed))
	}
	if snap.Matched < 0 || snap.Matched > len(c.defs) {
		return fmt.Errorf("snapshot: matched %d out of range", snap.Matched)
	}
	for _, card := range snap.Deck {
		if card.ID < 0 || card.ID >= n {
			return fmt.Errorf("snapshot: card id %d out of range", card.ID)
		}
	}
	for _, id := range snap.Revealed {
		if id < 0 || id >= n || snap.States[id] != CardRevealed {
			return fmt.Errorf("snapshot: revealed card %d is not face up", id)
		}
	}
	return nil
}
