package events

import (
	"context"
	"errors"
	"sync"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/logging"
)

// LogPublisher writes events to the structured log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	logging.Debug("duel event", logging.Fields{"session_id": e.SessionID, "kind": string(e.Kind)})
	return nil
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu      sync.Mutex
	events  []Event
	changed chan struct{}
}

func NewRecorder() *Recorder {
	return &Recorder{changed: make(chan struct{})}
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	close(r.changed)
	r.changed = make(chan struct{})
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfKind returns the recorded events of kind k.
func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

// WaitFor blocks until an event of kind k for sessionID has been recorded
// or ctx is done. An empty sessionID matches any session.
func (r *Recorder) WaitFor(ctx context.Context, sessionID string, k Kind) (Event, error) {
	return r.WaitForNth(ctx, sessionID, k, 1)
}

// WaitForNth is WaitFor for the n-th matching event, counting from 1.
func (r *Recorder) WaitForNth(ctx context.Context, sessionID string, k Kind, n int) (Event, error) {
	for {
		r.mu.Lock()
		seen := 0
		for _, e := range r.events {
			if e.Kind == k && (sessionID == "" || e.SessionID == sessionID) {
				seen++
				if seen == n {
					r.mu.Unlock()
					return e, nil
				}
			}
		}
		ch := r.changed
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-ch:
		}
	}
}
