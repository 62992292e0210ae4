package collector

import (
	"context"
	"time"
)

// Fetcher is the contract every source-type implementation satisfies. Each
// variant owns the protocol and parsing detail for one source type and is
// otherwise interchangeable.
type Fetcher interface {
	// Collect fetches the source and returns a tagged outcome. Manual marks a
	// user-triggered run as opposed to a scheduled one.
	Collect(ctx context.Context, source Source, manual bool) Outcome

	// Preview runs the same fetch without mutating any externally visible
	// state: no status updates, no watermark bookkeeping. It is used to
	// validate a source configuration before it is saved.
	Preview(ctx context.Context, source Source) Outcome
}

// CoreClient talks to the control plane that owns source configuration and
// source health status.
type CoreClient interface {
	// GetSource resolves a source configuration by id. A missing source is
	// reported via ErrSourceNotFound; transport failures via *TransportError
	// (both defined in the client package).
	GetSource(ctx context.Context, id string) (Source, error)

	// UpdateStatus reports a source health status. Best effort: a delivery
	// failure is logged by the implementation and must not fail the task.
	UpdateStatus(ctx context.Context, id string, status SourceStatus)

	// TriggerDownstream starts post-collection processing for a source. It
	// does not await downstream completion.
	TriggerDownstream(ctx context.Context, id string) error
}

// SourceStatus is the health payload reported to the control plane.
type SourceStatus struct {
	Error string `json:"error"`
}

// ResultStore persists task records for result tracking.
type ResultStore interface {
	Create(ctx context.Context, rec TaskRecord) error
	MarkStarted(ctx context.Context, taskID string, at time.Time) error
	Complete(ctx context.Context, rec TaskRecord) error
	Get(ctx context.Context, taskID string) (TaskRecord, error)
}

// Archive stores raw fetched payloads and returns a URI.
type Archive interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes collection-completed events to a broker.
type Publisher interface {
	Publish(ctx context.Context, sourceID string, itemCount int) error
	Close() error
}

// Clock returns the current time (a seam for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces task IDs.
type IDGenerator interface {
	NewID() (string, error)
}
