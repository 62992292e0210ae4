// Package results persists task records. Collection task results are
// discarded by policy; preview results are retained for interactive callers,
// including a started marker so "not yet picked up" and "running" are
// distinguishable.
package results

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/intelforge/collector-worker/internal/collector"
)

// ErrTaskNotFound is returned when no record exists for a task id.
var ErrTaskNotFound = errors.New("task not found")

// MemoryStore is an in-process ResultStore for single-node deployments and
// tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]collector.TaskRecord
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]collector.TaskRecord)}
}

// Create stores a pending task record.
func (s *MemoryStore) Create(_ context.Context, rec collector.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.TaskID] = rec
	return nil
}

// MarkStarted flips a record to started and stamps the start time.
func (s *MemoryStore) MarkStarted(_ context.Context, taskID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	rec.Status = collector.TaskStatusStarted
	rec.StartedAt = &at
	s.records[taskID] = rec
	return nil
}

// Complete records the final state of a task.
func (s *MemoryStore) Complete(_ context.Context, rec collector.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[rec.TaskID]
	if !ok {
		return ErrTaskNotFound
	}
	if rec.StartedAt == nil {
		rec.StartedAt = existing.StartedAt
	}
	s.records[rec.TaskID] = rec
	return nil
}

// Get returns the record for a task id.
func (s *MemoryStore) Get(_ context.Context, taskID string) (collector.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[taskID]
	if !ok {
		return collector.TaskRecord{}, ErrTaskNotFound
	}
	return rec, nil
}
