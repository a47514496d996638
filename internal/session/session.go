// internal/session/session.go
//
// A Session is one player's board: a game.Controller drawing into a
// board.Board and playing into a sound.Queue, addressed by an opaque ID.
//
// Sessions are built by a Factory so every store hands out identically
// configured controllers, and can be flattened into a Record and rebuilt
// from one after a restart.

package session

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/flipcard/internal/board"
	"github.com/robalobadob/flipcard/internal/deck"
	"github.com/robalobadob/flipcard/internal/game"
	"github.com/robalobadob/flipcard/internal/sound"
)

// Session bundles the controller with the surfaces it draws on.
type Session struct {
	ID        string
	CreatedAt time.Time
	Ctrl      *game.Controller
	Board     *board.Board
	Sounds    *sound.Queue

	updated atomic.Int64 // unix nanos
}

// Touch records activity on the session.
func (s *Session) Touch() { s.updated.Store(time.Now().UTC().UnixNano()) }

// UpdatedAt is the time of the last Touch.
func (s *Session) UpdatedAt() time.Time { return time.Unix(0, s.updated.Load()).UTC() }

// Record is the persisted form of a session.
type Record struct {
	ID        string        `json:"id"`
	Snapshot  game.Snapshot `json:"snapshot"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Record captures the session's current round.
func (s *Session) Record() Record {
	return Record{
		ID:        s.ID,
		Snapshot:  s.Ctrl.Snapshot(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt(),
	}
}

// Factory creates sessions that share a card table and controller tuning.
type Factory struct {
	Defs []deck.Definition
	// Seed, when non-zero, makes the n-th session's shuffles reproducible.
	Seed      uint64
	Scheduler game.Scheduler
	// SoundCapacity bounds each session's sound queue.
	SoundCapacity int
	// OnChange, if set, is called after a timer has changed a session's round
	// (a pair resolved, the win shown). Set it before creating sessions.
	OnChange func(*Session)

	count atomic.Uint64
}

// New creates a session with a fresh round already dealt.
func (f *Factory) New() *Session {
	s := f.build(uuid.NewString(), time.Now().UTC(), f.nextSeed())
	s.Ctrl.NewRound()
	return s
}

// NewSeeded creates a session whose first round is shuffled from seed, so
// equal seeds deal equal boards. Later rounds are dealt like New's.
func (f *Factory) NewSeeded(seed uint64) *Session {
	s := f.build(uuid.NewString(), time.Now().UTC(), f.nextSeed())
	s.Ctrl.NewRoundFrom(deck.NewRand(seed))
	return s
}

// Restore rebuilds a session from its record.
func (f *Factory) Restore(rec Record) (*Session, error) {
	s := f.build(rec.ID, rec.CreatedAt, f.nextSeed())
	if err := s.Ctrl.Restore(rec.Snapshot); err != nil {
		return nil, fmt.Errorf("restore session %s: %w", rec.ID, err)
	}
	s.updated.Store(rec.UpdatedAt.UnixNano())
	return s, nil
}

func (f *Factory) nextSeed() uint64 {
	if f.Seed == 0 {
		return 0
	}
	return f.Seed + f.count.Add(1)
}

func (f *Factory) changed(s *Session) {
	if f.OnChange != nil {
		f.OnChange(s)
	}
}

func (f *Factory) build(id string, created time.Time, seed uint64) *Session {
	b := board.New()
	q := sound.NewQueue(f.SoundCapacity)
	s := &Session{
		ID:        id,
		CreatedAt: created,
		Board:     b,
		Sounds:    q,
	}
	s.Ctrl = game.NewController(f.Defs, b, q, game.Options{
		Rand:      deck.NewRand(seed),
		Scheduler: f.Scheduler,
		OnChange:  func() { f.changed(s) },
	})
	s.Touch()
	return s
}
