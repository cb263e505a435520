package geo

import (
	"context"
	"sync"
	"time"
)

type pendingCall struct {
	timer      *time.Timer
	fired      chan struct{}
	superseded chan struct{}
}

// Debouncer lets only the last of a burst of calls through once no new
// call arrived for the wait interval.
type Debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	pending *pendingCall
}

func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Wait blocks until the interval passed without a newer call. It returns
// ErrSuperseded when a newer call arrived first.
func (d *Debouncer) Wait(ctx context.Context) error {
	call := &pendingCall{
		fired:      make(chan struct{}),
		superseded: make(chan struct{}),
	}

	d.mu.Lock()
	if prev := d.pending; prev != nil {
		prev.timer.Stop()
		close(prev.superseded)
	}
	call.timer = time.AfterFunc(d.wait, func() { close(call.fired) })
	d.pending = call
	d.mu.Unlock()

	select {
	case <-call.superseded:
		return ErrSuperseded
	case <-call.fired:
		d.mu.Lock()
		defer d.mu.Unlock()
		select {
		case <-call.superseded:
			return ErrSuperseded
		default:
		}
		if d.pending == call {
			d.pending = nil
		}
		return nil
	case <-ctx.Done():
		d.mu.Lock()
		if d.pending == call {
			call.timer.Stop()
			d.pending = nil
		}
		d.mu.Unlock()
		return ctx.Err()
	}
}

// Cancel supersedes the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil {
		d.pending.timer.Stop()
		close(d.pending.superseded)
		d.pending = nil
	}
}
