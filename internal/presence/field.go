package presence

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// field is the reconciliation state of one profile value.
//
// Every method takes mu for its whole read-modify-write, so a monitor tick never interleaves with
// show or hide on the same field.
type field[T comparable] struct {
	mu      sync.Mutex
	name    string
	equal   func(a, b T) bool
	read    func(ctx context.Context) (T, error)
	write   func(ctx context.Context, v T) error
	logger  *log.Logger
	def     T
	overlay T
	// lastWritten is the overlay most recently pushed, nil while no overlay is active.
	lastWritten *T
	active      bool
	// dirty is set when the last push failed.
	dirty bool
	// stale holds the values failed pushes were meant to replace. While dirty, reading one of
	// them back means the remote never changed, not that the user edited it.
	stale []T
}

// FieldState is a copy of one field's reconciliation state.
type FieldState[T comparable] struct {
	Default T
	Overlay T
	Active  bool
	// Pending reports a failed write still waiting for the next tick.
	Pending bool
}

// seed replaces the default with v and drops any overlay.
func (f *field[T]) seed(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var zero T
	f.def = v
	f.overlay = zero
	f.lastWritten = nil
	f.active = false
	f.settle()
}

func (f *field[T]) show(ctx context.Context, v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.expected()
	f.overlay = v
	f.active = true
	f.lastWritten = &v
	f.push(ctx, v, prev)
}

func (f *field[T]) hide(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.expected()
	var zero T
	f.overlay = zero
	f.active = false
	f.lastWritten = nil
	f.push(ctx, f.def, prev)
}

// expected returns the value the remote profile should be showing. Caller holds mu.
func (f *field[T]) expected() T {
	if f.active && f.lastWritten != nil {
		return *f.lastWritten
	}
	return f.def
}

// push writes v over prev and swallows the error, remembering prev as stale on failure. Caller holds mu.
func (f *field[T]) push(ctx context.Context, v, prev T) bool {
	if err := f.write(ctx, v); err != nil {
		f.dirty = true
		if !f.isStale(prev) {
			f.stale = append(f.stale, prev)
		}
		f.logger.Warn("profile write failed", "value", v, "err", err)
		return false
	}
	f.settle()
	return true
}

// settle marks the remote as matching the expected value. Caller holds mu.
func (f *field[T]) settle() {
	f.dirty = false
	f.stale = nil
}

func (f *field[T]) isStale(v T) bool {
	for _, s := range f.stale {
		if f.equal(v, s) {
			return true
		}
	}
	return false
}

// reconcile runs one monitor tick and reports whether a user edit was recorded.
//
// After a failed push the remote is read first: a stale value gets the expected value pushed
// again, anything else is classified like any other tick.
func (f *field[T]) reconcile(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.read(ctx)
	if err != nil {
		f.logger.Debug("profile read failed, skipping tick", "err", err)
		return false
	}

	if f.dirty {
		switch {
		case f.equal(v, f.expected()):
			f.settle()
			return false
		case f.isStale(v):
			f.push(ctx, f.expected(), v)
			return false
		}
	}

	if f.equal(v, f.def) {
		return false
	}
	if f.active && f.lastWritten != nil && f.equal(v, *f.lastWritten) {
		return false
	}

	f.logger.Info("user edit detected", "old", f.def, "new", v)
	f.def = v
	f.stale = nil

	if f.active && f.lastWritten != nil {
		f.push(ctx, *f.lastWritten, v)
	} else {
		f.settle()
	}
	return true
}

func (f *field[T]) state() FieldState[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FieldState[T]{Default: f.def, Overlay: f.overlay, Active: f.active, Pending: f.dirty}
}
