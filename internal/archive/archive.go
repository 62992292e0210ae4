// Package archive provides the no-op raw payload archive used when
// archiving is disabled.
package archive

import "context"

// Noop discards payloads. Fetchers treat an empty URI as "not archived".
type Noop struct{}

// NewNoop returns a discard-everything archive.
func NewNoop() *Noop {
	return &Noop{}
}

// Put drops the payload and returns an empty URI.
func (n *Noop) Put(context.Context, string, string, []byte) (string, error) {
	return "", nil
}
