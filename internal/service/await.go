package service

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotAwaiting is returned when a submission arrives for a slot that is
// not waiting for input: already answered, expired or never opened.
var ErrNotAwaiting = errors.New("not awaiting input")

// Await is a single-use slot filled by an inbound submission or expired by
// its deadline. The deadline can be moved while the slot is open, which is
// how sub-prompts get their own time limits.
type Await[T any] struct {
	mu       sync.Mutex
	deadline time.Time
	value    T
	resolved bool
	closed   bool
	done     chan struct{}
	moved    chan struct{}
}

// NewAwait opens a slot expiring after d.
func NewAwait[T any](d time.Duration) *Await[T] {
	return &Await[T]{
		deadline: time.Now().Add(d),
		done:     make(chan struct{}),
		moved:    make(chan struct{}, 1),
	}
}

// Resolve fills the slot. Only the first call on an open slot succeeds.
func (a *Await[T]) Resolve(v T) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resolved || a.closed {
		return ErrNotAwaiting
	}
	a.value = v
	a.resolved = true
	close(a.done)
	return nil
}

// Extend replaces the deadline with now+d and returns it.
func (a *Await[T]) Extend(d time.Duration) (time.Time, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.resolved || a.closed {
		return time.Time{}, ErrNotAwaiting
	}
	a.deadline = time.Now().Add(d)
	select {
	case a.moved <- struct{}{}:
	default:
	}
	return a.deadline, nil
}

// Deadline returns the current deadline.
func (a *Await[T]) Deadline() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deadline
}

// Open reports whether the slot still accepts a submission.
func (a *Await[T]) Open() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.resolved && !a.closed
}

// Close expires the slot early. Later Resolve calls fail.
func (a *Await[T]) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}

// Wait blocks until the slot is resolved, its deadline passes or ctx is
// done. ok is false when no value arrived in time; err is only set when ctx
// ended the wait.
func (a *Await[T]) Wait(ctx context.Context) (v T, ok bool, err error) {
	for {
		timer := time.NewTimer(time.Until(a.Deadline()))
		select {
		case <-a.done:
			timer.Stop()
			return a.value, true, nil
		case <-a.moved:
			timer.Stop()
		case <-timer.C:
			a.mu.Lock()
			if a.resolved {
				a.mu.Unlock()
				return a.value, true, nil
			}
			if time.Now().Before(a.deadline) {
				a.mu.Unlock()
				continue
			}
			a.closed = true
			a.mu.Unlock()
			var zero T
			return zero, false, nil
		case <-ctx.Done():
			timer.Stop()
			a.Close()
			a.mu.Lock()
			defer a.mu.Unlock()
			if a.resolved {
				return a.value, true, nil
			}
			var zero T
			return zero, false, ctx.Err()
		}
	}
}
