package main

import (
	"errors"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/robalobadob/flipcard/internal/game"
)

var errNoScreen = errors.New("terminal not ready")

// Bell plays every clip as a terminal bell; the win clip rings twice.
type Bell struct {
	mu     sync.Mutex
	screen tcell.Screen
}

// Attach records the screen to ring. It is wired as a before-draw hook, so it
// returns false to let drawing continue.
func (b *Bell) Attach(s tcell.Screen) bool {
	b.mu.Lock()
	b.screen = s
	b.mu.Unlock()
	return false
}

func (b *Bell) Play(ref string) error {
	b.mu.Lock()
	s := b.screen
	b.mu.Unlock()
	if s == nil {
		return errNoScreen
	}
	if err := s.Beep(); err != nil {
		return err
	}
	if ref == game.SoundWin {
		return s.Beep()
	}
	return nil
}
