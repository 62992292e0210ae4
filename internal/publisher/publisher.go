// Package publisher defines the collection-completed event payload and a
// no-op implementation for deployments without a broker.
package publisher

import (
	"context"
	"time"
)

// Event is the payload published after a successful collection.
type Event struct {
	SourceID    string    `json:"source_id"`
	ItemCount   int       `json:"item_count"`
	CollectedAt time.Time `json:"collected_at"`
}

// Noop drops events.
type Noop struct{}

// NewNoop returns a publisher that discards everything.
func NewNoop() *Noop {
	return &Noop{}
}

// Publish implements the publisher contract and does nothing.
func (n *Noop) Publish(context.Context, string, int) error { return nil }

// Close implements the publisher contract and does nothing.
func (n *Noop) Close() error { return nil }
