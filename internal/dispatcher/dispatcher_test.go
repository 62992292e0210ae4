package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/intelforge/collector-worker/internal/collector"
	"github.com/intelforge/collector-worker/internal/core"
)

type fakeCore struct {
	mu           sync.Mutex
	sources      map[string]collector.Source
	transportErr error
	statusCalls  []collector.SourceStatus
	statusIDs    []string
	triggerIDs   []string
}

func (f *fakeCore) GetSource(_ context.Context, id string) (collector.Source, error) {
	if f.transportErr != nil {
		return collector.Source{}, f.transportErr
	}
	source, ok := f.sources[id]
	if !ok {
		return collector.Source{}, core.ErrSourceNotFound
	}
	return source, nil
}

func (f *fakeCore) UpdateStatus(_ context.Context, id string, status collector.SourceStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusIDs = append(f.statusIDs, id)
	f.statusCalls = append(f.statusCalls, status)
}

func (f *fakeCore) TriggerDownstream(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggerIDs = append(f.triggerIDs, id)
	return nil
}

func (f *fakeCore) statusCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.statusCalls)
}

type fakeFetcher struct {
	mu       sync.Mutex
	outcome  collector.Outcome
	collects int
	previews int
	manual   bool
}

func (f *fakeFetcher) Collect(_ context.Context, _ collector.Source, manual bool) collector.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collects++
	f.manual = manual
	return f.outcome
}

func (f *fakeFetcher) Preview(_ context.Context, _ collector.Source) collector.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.previews++
	return f.outcome
}

func newFixture(outcome collector.Outcome) (*Dispatcher, *fakeCore, *fakeFetcher) {
	fetcher := &fakeFetcher{outcome: outcome}
	coreClient := &fakeCore{
		sources: map[string]collector.Source{
			"s1": {ID: "s1", Type: "rss_collector", URL: "https://example.com/feed.xml"},
			"s2": {ID: "s2", Type: "rss_collector", URL: "https://example.com/feed.xml"},
			"s4": {ID: "s4", Type: "unknown_type"},
			"s5": {ID: "s5"},
		},
	}
	registry := collector.NewRegistry(map[string]collector.Fetcher{
		"rss_collector": fetcher,
	})
	return New(coreClient, registry, zap.NewNop()), coreClient, fetcher
}

func TestDispatchSuccess(t *testing.T) {
	t.Parallel()

	items := []collector.Item{{ID: "item1"}, {ID: "item2"}}
	d, coreClient, fetcher := newFixture(collector.Success(items))

	result, err := d.Dispatch(context.Background(), "s1", false)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if result.Status != StatusSucceeded {
		t.Fatalf("status = %q, want succeeded", result.Status)
	}
	if len(result.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(result.Items))
	}
	if fetcher.collects != 1 {
		t.Fatalf("collect invocations = %d, want 1", fetcher.collects)
	}
	if coreClient.statusCallCount() != 0 {
		t.Fatal("success must not report a status update")
	}
}

func TestDispatchSkipIsNotReported(t *testing.T) {
	t.Parallel()

	d, coreClient, _ := newFixture(collector.Skip(collector.SkipUnchanged))

	result, err := d.Dispatch(context.Background(), "s2", false)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if result.Status != StatusSkipped {
		t.Fatalf("status = %q, want skipped", result.Status)
	}
	if result.Message != "Skipping source" {
		t.Fatalf("message = %q, want %q", result.Message, "Skipping source")
	}
	if coreClient.statusCallCount() != 0 {
		t.Fatal("skip must never trigger a status report")
	}
}

func TestDispatchErrorReportsStatusExactlyOnce(t *testing.T) {
	t.Parallel()

	d, coreClient, _ := newFixture(collector.Failure("feed returned 403", false))

	result, err := d.Dispatch(context.Background(), "s1", true)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if result.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", result.Status)
	}
	if result.Message != "feed returned 403" {
		t.Fatalf("message = %q", result.Message)
	}
	if got := coreClient.statusCallCount(); got != 1 {
		t.Fatalf("status updates = %d, want exactly 1", got)
	}
	if coreClient.statusCalls[0].Error != "feed returned 403" {
		t.Fatalf("reported error = %q", coreClient.statusCalls[0].Error)
	}
	if coreClient.statusIDs[0] != "s1" {
		t.Fatalf("reported source = %q, want s1", coreClient.statusIDs[0])
	}
}

func TestDispatchSourceNotFound(t *testing.T) {
	t.Parallel()

	d, coreClient, fetcher := newFixture(collector.Success(nil))

	result, err := d.Dispatch(context.Background(), "s3", false)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if result.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", result.Status)
	}
	if result.Message != "Source with id s3 not found" {
		t.Fatalf("message = %q", result.Message)
	}
	if fetcher.collects != 0 {
		t.Fatal("fetcher must not run for a missing source")
	}
	if coreClient.statusCallCount() != 0 {
		t.Fatal("missing source must not report a status update")
	}
}

func TestDispatchUnknownCollectorType(t *testing.T) {
	t.Parallel()

	for _, manual := range []bool{false, true} {
		d, coreClient, fetcher := newFixture(collector.Success(nil))

		result, err := d.Dispatch(context.Background(), "s4", manual)
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		if result.Message != "Collector unknown_type not implemented" {
			t.Fatalf("message = %q", result.Message)
		}
		if result.Status != StatusFailed {
			t.Fatalf("status = %q, want failed", result.Status)
		}
		if fetcher.collects != 0 {
			t.Fatal("fetcher must not run for an unknown type")
		}
		if coreClient.statusCallCount() != 0 {
			t.Fatal("unknown collector type must not report a status update")
		}
	}
}

func TestDispatchSourceWithoutType(t *testing.T) {
	t.Parallel()

	d, _, _ := newFixture(collector.Success(nil))

	result, err := d.Dispatch(context.Background(), "s5", false)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if result.Message != "Source s5 has no collector type" {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestDispatchTransportErrorSurfacesAsError(t *testing.T) {
	t.Parallel()

	d, coreClient, fetcher := newFixture(collector.Success(nil))
	coreClient.transportErr = &core.TransportError{
		Endpoint: "get_source",
		Err:      errors.New("connection refused"),
	}

	_, err := d.Dispatch(context.Background(), "s1", false)
	if err == nil {
		t.Fatal("expected transport error to surface")
	}
	var transportErr *core.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("error %v is not a TransportError", err)
	}
	if fetcher.collects != 0 {
		t.Fatal("fetcher must not run when config resolution fails")
	}
	if coreClient.statusCallCount() != 0 {
		t.Fatal("transport failure must not report a status update")
	}
}

func TestPreviewNeverReportsStatus(t *testing.T) {
	t.Parallel()

	outcomes := []collector.Outcome{
		collector.Success([]collector.Item{{ID: "a"}}),
		collector.Skip(collector.SkipUnchanged),
		collector.Failure("bad credentials", false),
	}

	for _, outcome := range outcomes {
		d, coreClient, fetcher := newFixture(outcome)

		if _, err := d.Preview(context.Background(), "s1"); err != nil {
			t.Fatalf("Preview() error = %v", err)
		}
		if coreClient.statusCallCount() != 0 {
			t.Fatalf("preview reported status for outcome %q", outcome.Status)
		}
		if len(coreClient.triggerIDs) != 0 {
			t.Fatal("preview must never trigger downstream processing")
		}
		if fetcher.previews != 1 || fetcher.collects != 0 {
			t.Fatalf("preview ran collect path: previews=%d collects=%d", fetcher.previews, fetcher.collects)
		}
	}
}

func TestPreviewReturnsItems(t *testing.T) {
	t.Parallel()

	d, _, _ := newFixture(collector.Success([]collector.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}))

	result, err := d.Preview(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if result.Status != StatusSucceeded {
		t.Fatalf("status = %q", result.Status)
	}
	if len(result.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(result.Items))
	}
}

func TestDispatchPassesManualFlag(t *testing.T) {
	t.Parallel()

	d, _, fetcher := newFixture(collector.Success(nil))

	if _, err := d.Dispatch(context.Background(), "s1", true); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if !fetcher.manual {
		t.Fatal("manual flag was not passed through to the fetcher")
	}
}
