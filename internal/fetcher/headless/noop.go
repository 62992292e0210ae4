package headless

import (
	"context"
	"errors"
)

// Noop satisfies the renderer contract but always fails, for builds where
// headless rendering is not available.
type Noop struct{}

// NewNoop creates a Noop renderer.
func NewNoop() *Noop {
	return &Noop{}
}

// Render returns an error since this is a stub implementation.
func (Noop) Render(context.Context, string) (string, error) {
	return "", errors.New("headless renderer not configured")
}
