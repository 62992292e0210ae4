package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/queue"
)

func TestHigherPriorityDequeuesFirst(t *testing.T) {
	t.Parallel()

	q := NewQueue(8)
	ctx := context.Background()

	collect := queue.TaskMessage{TaskID: "t1", Name: collector.TaskCollect, Priority: 5}
	preview := queue.TaskMessage{TaskID: "t2", Name: collector.TaskPreview, Priority: 8}

	if err := q.Enqueue(ctx, collect); err != nil {
		t.Fatalf("enqueue collect: %v", err)
	}
	if err := q.Enqueue(ctx, preview); err != nil {
		t.Fatalf("enqueue preview: %v", err)
	}

	first, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if first.TaskID != "t2" {
		t.Fatalf("first dequeued = %s, want the preview task", first.TaskID)
	}

	second, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if second.TaskID != "t1" {
		t.Fatalf("second dequeued = %s, want the collection task", second.TaskID)
	}
}

func TestEqualPriorityIsFIFO(t *testing.T) {
	t.Parallel()

	q := NewQueue(8)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, queue.TaskMessage{TaskID: id, Priority: 5}); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		msg, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue: %v", err)
		}
		if msg.TaskID != want {
			t.Fatalf("dequeued %s, want %s", msg.TaskID, want)
		}
	}
}

func TestDelayedMessageHeldUntilDue(t *testing.T) {
	t.Parallel()

	q := NewQueue(8)
	ctx := context.Background()

	delay := 60 * time.Millisecond
	retry := queue.TaskMessage{TaskID: "retry", Priority: 5, NotBefore: time.Now().Add(delay)}
	if err := q.Enqueue(ctx, retry); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := q.Dequeue(shortCtx); err == nil {
		t.Fatal("delayed message delivered before its NotBefore")
	}

	start := time.Now()
	msg, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if msg.TaskID != "retry" {
		t.Fatalf("dequeued %s", msg.TaskID)
	}
	if waited := time.Since(start); waited > 5*time.Second {
		t.Fatalf("dequeue took too long: %v", waited)
	}
}

func TestDelayedMessageDoesNotBlockReadyOnes(t *testing.T) {
	t.Parallel()

	q := NewQueue(8)
	ctx := context.Background()

	if err := q.Enqueue(ctx, queue.TaskMessage{TaskID: "parked", Priority: 9, NotBefore: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, queue.TaskMessage{TaskID: "ready", Priority: 1}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	msg, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if msg.TaskID != "ready" {
		t.Fatalf("dequeued %s, want the ready message", msg.TaskID)
	}
}

func TestDequeueRespectsContext(t *testing.T) {
	t.Parallel()

	q := NewQueue(8)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after context cancel")
	}
}

func TestEnqueueAtCapacity(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(ctx, queue.TaskMessage{TaskID: "x"}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Enqueue(ctx, queue.TaskMessage{TaskID: "overflow"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if q.Depth() != 2 {
		t.Fatalf("depth = %d, want 2", q.Depth())
	}
}

func TestCloseWakesBlockedDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueClosed) {
			t.Fatalf("err = %v, want ErrQueueClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after close")
	}
}
