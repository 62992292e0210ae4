// Package memory contains an in-process publisher for tests.
package memory

import (
	"context"
	"sync"
)

// PublishedEvent captures one publish call.
type PublishedEvent struct {
	SourceID  string
	ItemCount int
}

// Publisher records published events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records the event.
func (p *Publisher) Publish(_ context.Context, sourceID string, itemCount int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{SourceID: sourceID, ItemCount: itemCount})
	return nil
}

// Close implements the publisher contract.
func (p *Publisher) Close() error { return nil }

// Events returns the recorded publishes.
func (p *Publisher) Events() []PublishedEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedEvent, len(p.events))
	copy(out, p.events)
	return out
}
