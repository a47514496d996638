package game

import (
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/flipcard/internal/deck"
)

// manualScheduler queues callbacks until the test fires them.
type manualScheduler struct {
	mu      sync.Mutex
	pending []pendingCall
}

type pendingCall struct {
	d time.Duration
	f func()
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, pendingCall{d: d, f: f})
}

func (m *manualScheduler) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Run fires the queued callbacks scheduled with delay d.
func (m *manualScheduler) Run(d time.Duration) {
	m.mu.Lock()
	var due, keep []pendingCall
	for _, p := range m.pending {
		if p.d == d {
			due = append(due, p)
		} else {
			keep = append(keep, p)
		}
	}
	m.pending = keep
	m.mu.Unlock()
	for _, p := range due {
		p.f()
	}
}

// RunAll fires callbacks until none are left, including ones queued while running.
func (m *manualScheduler) RunAll() {
	for {
		m.mu.Lock()
		due := m.pending
		m.pending = nil
		m.mu.Unlock()
		if len(due) == 0 {
			return
		}
		for _, p := range due {
			p.f()
		}
	}
}

type recordingRenderer struct {
	mu       sync.Mutex
	cards    []deck.Card
	onSelect func(int) error
	marks    map[int]CardState
	renders  int
	score    int
	moves    int
	wins     int
	winShown bool
}

func (r *recordingRenderer) Render(cards []deck.Card, onSelect func(int) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards = cards
	r.onSelect = onSelect
	r.marks = make(map[int]CardState)
	r.renders++
}

func (r *recordingRenderer) Mark(id int, st CardState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marks[id] = st
}

func (r *recordingRenderer) ShowSummary(score, moves int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.score, r.moves = score, moves
}

func (r *recordingRenderer) ShowWin(score, moves int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wins++
	r.winShown = true
	r.score, r.moves = score, moves
}

func (r *recordingRenderer) HideWin() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.winShown = false
}

func (r *recordingRenderer) mark(id int) CardState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.marks[id]; ok {
		return st
	}
	return CardHidden
}

type fakeSound struct {
	mu     sync.Mutex
	played []string
	fail   bool
}

var errBlocked = errors.New("autoplay blocked")

func (s *fakeSound) Play(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errBlocked
	}
	s.played = append(s.played, ref)
	return nil
}

func (s *fakeSound) count(ref string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.played {
		if p == ref {
			n++
		}
	}
	return n
}

func (s *fakeSound) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}
