// Package collector defines the core domain types shared across subsystems:
// sources, normalized items, fetch outcomes and the fetcher contract.
package collector

import "time"

// Source is a point-in-time snapshot of a source configuration owned by the
// control plane. It is resolved per task execution and never cached, so
// configuration changes take effect on the next scheduled run.
type Source struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	Name            string            `json:"name,omitempty"`
	URL             string            `json:"url"`
	Parameters      map[string]string `json:"parameters,omitempty"`
	LastAttempted   time.Time         `json:"last_attempted,omitempty"`
	LastModified    time.Time         `json:"last_modified,omitempty"`
	LastContentHash string            `json:"last_content_hash,omitempty"`
}

// Param returns a named fetch parameter or a fallback when unset.
func (s Source) Param(key, fallback string) string {
	if v, ok := s.Parameters[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Item is one normalized entry produced by a fetch (a feed entry, a page, a
// ticket). Downstream processing consumes items in this shape regardless of
// the source type that produced them.
type Item struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Author    string    `json:"author,omitempty"`
	Content   string    `json:"content,omitempty"`
	Published time.Time `json:"published,omitempty"`
	Hash      string    `json:"hash,omitempty"`
}

// TaskName identifies a task entry point on the queue.
type TaskName string

// Task names consumed from the queue surface.
const (
	TaskCollect TaskName = "collector_task"
	TaskPreview TaskName = "collector_preview"
)

// TaskStatus represents the lifecycle state of a queued task.
type TaskStatus string

// Task status values recorded in the result store.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusStarted   TaskStatus = "started"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusSkipped   TaskStatus = "skipped"
)

// TaskRecord is the persisted view of a task execution, retained for preview
// tasks so interactive callers can poll for the result and distinguish "not
// yet picked up" from "running".
type TaskRecord struct {
	TaskID     string     `json:"task_id"`
	Name       TaskName   `json:"name"`
	SourceID   string     `json:"source_id"`
	Status     TaskStatus `json:"status"`
	Result     string     `json:"result,omitempty"`
	Items      []Item     `json:"items,omitempty"`
	Attempts   int        `json:"attempts"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
