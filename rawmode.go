package main

import (
	"fmt"
	"sync"

	"golang.org/x/term"
)

// rawMode holds the user's terminal in raw mode for the length of a
// session. Restore puts the saved mode back and may be called any number
// of times from any goroutine; only the first call has an effect.
type rawMode struct {
	fd    int
	state *term.State
	once  sync.Once
	err   error
}

// enterRawMode switches fd to raw mode: no echo, no line buffering, no
// signal keys, so every keystroke reaches the hosted program as typed.
func enterRawMode(fd int) (*rawMode, error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("set terminal raw mode: %w", err)
	}
	return &rawMode{fd: fd, state: state}, nil
}

// Restore returns the terminal to the mode it had before enterRawMode.
func (r *rawMode) Restore() error {
	if r == nil {
		return nil
	}
	r.once.Do(func() {
		if err := term.Restore(r.fd, r.state); err != nil {
			r.err = fmt.Errorf("restore terminal mode: %w", err)
		}
	})
	return r.err
}
