// Package sound holds game.SoundPlayer implementations that do not touch
// audio hardware themselves.
package sound

import (
	"errors"
	"sync"
)

// DefaultCapacity bounds a Queue when no capacity is given.
const DefaultCapacity = 32

var (
	ErrEmptyRef  = errors.New("sound: empty clip reference")
	ErrQueueFull = errors.New("sound: queue full")
)

// Queue collects clip references for a remote client to play. The client
// drains it on every poll; clips that arrive while it is full are rejected.
type Queue struct {
	mu      sync.Mutex
	pending []string
	cap     int
}

// NewQueue returns a queue holding at most capacity clips.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{cap: capacity}
}

// Play enqueues ref.
func (q *Queue) Play(ref string) error {
	if ref == "" {
		return ErrEmptyRef
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) >= q.cap {
		return ErrQueueFull
	}
	q.pending = append(q.pending, ref)
	return nil
}

// Drain returns the queued clips in play order and empties the queue.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	if out == nil {
		out = []string{}
	}
	return out
}

// Len reports how many clips are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
