package results

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/intelforge/collector-worker/internal/collector"
)

func TestPostgresCreateInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	enqueued := time.Unix(1700000000, 0).UTC()

	rec := collector.TaskRecord{
		TaskID:     "task-1",
		Name:       collector.TaskPreview,
		SourceID:   "s1",
		Status:     collector.TaskStatusPending,
		EnqueuedAt: enqueued,
	}

	mock.ExpectExec("INSERT INTO collector_tasks").
		WithArgs("task-1", "collector_preview", "s1", "pending", 0, enqueued).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Create(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkStarted(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	at := time.Unix(1700000100, 0).UTC()

	mock.ExpectExec("UPDATE collector_tasks").
		WithArgs("task-1", "started", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.MarkStarted(context.Background(), "task-1", at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkStartedUnknownTask(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectExec("UPDATE collector_tasks").
		WithArgs("ghost", "started", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.MarkStarted(context.Background(), "ghost", time.Now())
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestPostgresCompleteSerializesItems(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	finished := time.Unix(1700000200, 0).UTC()

	rec := collector.TaskRecord{
		TaskID:     "task-1",
		Status:     collector.TaskStatusSucceeded,
		Result:     "Previewed source s1: 1 items",
		Items:      []collector.Item{{ID: "a", SourceID: "s1", Title: "hello"}},
		Attempts:   1,
		FinishedAt: &finished,
	}

	mock.ExpectExec("UPDATE collector_tasks").
		WithArgs("task-1", "succeeded", rec.Result, pgxmock.AnyArg(), 1, &finished).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.Complete(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRoundTrip(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	enqueued := time.Unix(1700000000, 0).UTC()
	started := time.Unix(1700000100, 0).UTC()

	rows := pgxmock.NewRows([]string{
		"task_id", "name", "source_id", "status", "result",
		"items", "attempts", "enqueued_at", "started_at", "finished_at",
	}).AddRow(
		"task-1", "collector_preview", "s1", "started", "",
		[]byte(`[{"id":"a","source_id":"s1","title":"hello","link":""}]`),
		0, enqueued, &started, (*time.Time)(nil),
	)

	mock.ExpectQuery("SELECT task_id, name, source_id, status").
		WithArgs("task-1").
		WillReturnRows(rows)

	rec, err := store.Get(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, collector.TaskPreview, rec.Name)
	require.Equal(t, collector.TaskStatusStarted, rec.Status)
	require.Len(t, rec.Items, 1)
	require.Equal(t, "hello", rec.Items[0].Title)
	require.NotNil(t, rec.StartedAt)
	require.Nil(t, rec.FinishedAt)
}
