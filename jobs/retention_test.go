package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	_ "github.com/helios-crm/helios-crm/testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeExecer struct {
	queries []string
	cutoffs []time.Time
	err     error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	f.queries = append(f.queries, sql)
	if len(args) == 1 {
		if cutoff, ok := args[0].(time.Time); ok {
			f.cutoffs = append(f.cutoffs, cutoff)
		}
	}
	return pgconn.NewCommandTag("DELETE 2"), nil
}

func TestRetentionRunPurgesAllTables(t *testing.T) {
	db := &fakeExecer{}
	job := NewRetentionJob(db, 30*24*time.Hour, testLogger())

	require.NoError(t, job.Run(context.Background(), 0))
	require.Len(t, db.queries, len(purgeTables))
	require.Contains(t, db.queries[0], "DELETE FROM leads")
	require.Contains(t, db.queries[1], "DELETE FROM deals")

	wantCutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	for _, cutoff := range db.cutoffs {
		require.WithinDuration(t, wantCutoff, cutoff, time.Minute)
	}
}

func TestRetentionRunPayloadWindowWins(t *testing.T) {
	db := &fakeExecer{}
	job := NewRetentionJob(db, 30*24*time.Hour, testLogger())

	require.NoError(t, job.Run(context.Background(), time.Hour))
	wantCutoff := time.Now().UTC().Add(-time.Hour)
	require.WithinDuration(t, wantCutoff, db.cutoffs[0], time.Minute)
}

func TestRetentionRunReportsFirstError(t *testing.T) {
	db := &fakeExecer{err: errors.New("relation missing")}
	job := NewRetentionJob(db, time.Hour, testLogger())

	require.Error(t, job.Run(context.Background(), 0))
}

func TestRetentionHandle(t *testing.T) {
	db := &fakeExecer{}
	job := NewRetentionJob(db, time.Hour, testLogger())

	task, err := NewRetentionPurgeTask(RetentionPurgePayload{OlderThan: 2 * time.Hour})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, db.queries, len(purgeTables))

	bad := asynq.NewTask(TaskRetentionPurge, []byte("{not json"))
	require.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}
