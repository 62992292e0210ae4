package results

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/intelforge/collector-worker/internal/collector"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	rec := collector.TaskRecord{
		TaskID:     "t1",
		Name:       collector.TaskPreview,
		SourceID:   "s1",
		Status:     collector.TaskStatusPending,
		EnqueuedAt: time.Now(),
	}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != collector.TaskStatusPending {
		t.Fatalf("status = %q, want pending", got.Status)
	}
	if got.StartedAt != nil {
		t.Fatal("pending task must not have a start time")
	}

	started := time.Now()
	if err := store.MarkStarted(ctx, "t1", started); err != nil {
		t.Fatalf("MarkStarted() error = %v", err)
	}
	got, err = store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != collector.TaskStatusStarted {
		t.Fatalf("status = %q, want started", got.Status)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Fatal("start time not recorded")
	}

	finished := time.Now()
	rec.Status = collector.TaskStatusSucceeded
	rec.Result = "Previewed source s1: 2 items"
	rec.Items = []collector.Item{{ID: "a"}, {ID: "b"}}
	rec.FinishedAt = &finished
	if err := store.Complete(ctx, rec); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	got, err = store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != collector.TaskStatusSucceeded {
		t.Fatalf("status = %q, want succeeded", got.Status)
	}
	if len(got.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(got.Items))
	}
	if got.StartedAt == nil {
		t.Fatal("Complete must preserve the started timestamp")
	}
}

func TestMemoryStoreUnknownTask(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("Get() error = %v, want ErrTaskNotFound", err)
	}
	if err := store.MarkStarted(ctx, "nope", time.Now()); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("MarkStarted() error = %v, want ErrTaskNotFound", err)
	}
	if err := store.Complete(ctx, collector.TaskRecord{TaskID: "nope"}); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("Complete() error = %v, want ErrTaskNotFound", err)
	}
}
