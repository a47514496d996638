// internal/game/types.go
//
// Core type definitions for the flip card controller.
// Defines:
//   - CardState: visual state of a single card (hidden/revealed/matched).
//   - Phase: where the current pair attempt stands.
//   - State: read-only copy of the round progress.
//   - Snapshot: everything needed to rebuild a round after a restart.
//   - Renderer, SoundPlayer, Scheduler: collaborators the controller drives.

package game

import (
	"time"

	"github.com/robalobadob/flipcard/internal/deck"
)

// CardState is the visual state of one card.
type CardState string

const (
	CardHidden   CardState = "hidden"
	CardRevealed CardState = "revealed"
	CardMatched  CardState = "matched"
)

// Phase of the current pair attempt.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseOneRevealed Phase = "one_revealed"
	PhaseLocked      Phase = "locked"
	PhaseWon         Phase = "won"
)

// Sound clips played by the controller itself, next to each card's own clip.
const (
	SoundMatch = "match-sound"
	SoundWin   = "win-sound"
)

// State is a copy of the round progress.
type State struct {
	Generation uint64            `json:"generation"`
	Phase      Phase             `json:"phase"`
	Revealed   []int             `json:"revealed"`
	Cards      map[int]CardState `json:"cards"`
	Matched    int               `json:"matched"`
	TotalPairs int               `json:"totalPairs"`
	Moves      int               `json:"moves"`
	Score      int               `json:"score"`
	Locked     bool              `json:"locked"`
	WinShown   bool              `json:"winShown"`
}

// Snapshot captures a round so it can be restored by another controller.
type Snapshot struct {
	Deck     []deck.Card `json:"deck"`
	States   []CardState `json:"states"` // indexed by card ID
	Revealed []int       `json:"revealed"`
	Matched  int         `json:"matched"`
	Moves    int         `json:"moves"`
	Score    int         `json:"score"`
	WinShown bool        `json:"winShown"`
}

// Renderer draws the board. Implementations are called with the controller's
// lock held and must not call back into the controller synchronously.
type Renderer interface {
	// Render replaces the board with one placeholder per card, in deck order.
	// onSelect is invoked with a card ID when the player picks a placeholder.
	Render(cards []deck.Card, onSelect func(id int) error)
	Mark(id int, st CardState)
	ShowSummary(score, moves int)
	ShowWin(score, moves int)
	HideWin()
}

// SoundPlayer plays a clip. Errors are logged by the controller and never
// interrupt the round.
type SoundPlayer interface {
	Play(ref string) error
}

// Scheduler runs f once after d. f must run on another goroutine, never
// inside AfterFunc itself.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}
