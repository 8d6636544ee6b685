package application

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrSuperseded is returned to a debounced caller replaced by a newer call.
	ErrSuperseded = errors.New("superseded by a newer call")
	// ErrDebouncerStopped is returned once the debouncer has been stopped.
	ErrDebouncerStopped = errors.New("debouncer stopped")
)

type pendingCall struct {
	timer *time.Timer
	done  chan error
}

// Debouncer coalesces rapid calls: each call restarts the quiet period and only
// the last call within it goes through.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending *pendingCall
	stopped bool
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Wait blocks until the quiet period elapses with no newer call. It returns
// ErrSuperseded when a newer call replaced this one, ErrDebouncerStopped after
// Stop, or the context's error.
func (d *Debouncer) Wait(ctx context.Context) error {
	p := &pendingCall{done: make(chan error, 1)}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrDebouncerStopped
	}
	d.cancelLocked(ErrSuperseded)
	d.pending = p
	p.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.pending == p {
			d.pending = nil
			p.done <- nil
		}
	})
	d.mu.Unlock()

	select {
	case err := <-p.done:
		return err
	case <-ctx.Done():
		d.mu.Lock()
		if d.pending == p {
			p.timer.Stop()
			d.pending = nil
		}
		d.mu.Unlock()
		return ctx.Err()
	}
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.cancelLocked(ErrSuperseded)
	d.mu.Unlock()
}

// Stop cancels the pending call and rejects all later calls.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.cancelLocked(ErrDebouncerStopped)
	d.mu.Unlock()
}

func (d *Debouncer) cancelLocked(reason error) {
	if d.pending == nil {
		return
	}
	d.pending.timer.Stop()
	d.pending.done <- reason
	d.pending = nil
}

// IsSuperseded reports whether err means a debounced call was replaced.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded) || errors.Is(err, ErrDebouncerStopped)
}
