// Package interrupt implements the Interruption Manager: a single
// turn-scoped cancellation token with idempotent callbacks, polled at the
// three suspension points of a turn iteration (spec.md §4.9, §5
// "Suspension points"). Grounded on the teacher's context.WithCancel +
// cancelFunc pattern in internal/tui/handlers_input.go, generalized away
// from bubbletea's model-field storage into a standalone object the Turn
// Controller owns per turn.
package interrupt

import "sync"

// Token is a process-wide boolean cancellation flag scoped to one turn.
// It is safe for concurrent use; Set, IsSet and AddCallback may all be
// called from different goroutines (the LLM transport, an executing
// tool, and a user "abort" event on the bus).
type Token struct {
	mu        sync.Mutex
	set       bool
	callbacks []func()
	ran       map[int]bool
}

// New creates a cleared token.
func New() *Token {
	return &Token{ran: make(map[int]bool)}
}

// Reset clears the flag and discards all registered callbacks. Called by
// the Turn Controller at the start of send_message (spec.md §4.8 step 1).
func (t *Token) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set = false
	t.callbacks = nil
	t.ran = make(map[int]bool)
}

// IsSet reports whether the token has been interrupted.
func (t *Token) IsSet() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.set
}

// AddCallback registers an idempotent cancel callback, invoked once by
// Set (or immediately, if the token is already set). Returns a remove
// function for callers whose suspension point completed normally and no
// longer need to be notified.
func (t *Token) AddCallback(cb func()) (remove func()) {
	t.mu.Lock()
	idx := len(t.callbacks)
	t.callbacks = append(t.callbacks, cb)
	alreadySet := t.set
	t.mu.Unlock()

	if alreadySet {
		t.runOnce(idx, cb)
	}

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.ran[idx] = true // mark as already handled so Set skips it
	}
}

// Set marks the token interrupted and runs every registered callback
// exactly once (spec.md §4.9 "interrupt() sets the flag and runs the
// callbacks"). Safe to call more than once; later calls are no-ops for
// callbacks already run.
func (t *Token) Set() {
	t.mu.Lock()
	t.set = true
	callbacks := append([]func(){}, t.callbacks...)
	t.mu.Unlock()

	for i, cb := range callbacks {
		t.runOnce(i, cb)
	}
}

func (t *Token) runOnce(idx int, cb func()) {
	t.mu.Lock()
	if t.ran[idx] {
		t.mu.Unlock()
		return
	}
	t.ran[idx] = true
	t.mu.Unlock()
	cb()
}
