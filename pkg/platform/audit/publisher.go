package audit

import (
	"context"
	"sync"
	"time"
)

// Publisher delivers audit events to a sink. Implementations must be safe for
// concurrent use; a publish failure must never fail the domain operation that
// emitted the event.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// MemoryPublisher retains events in memory. Used by tests and as the default
// sink when no broker is configured.
type MemoryPublisher struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// ByAction filters published events by action.
func (p *MemoryPublisher) ByAction(action Action) []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Event
	for _, e := range p.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
