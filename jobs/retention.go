package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgconn"
)

// purgeTables lists the soft-deleting tables covered by retention.
var purgeTables = []string{"leads", "deals"}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RetentionJob hard-deletes rows whose soft-delete timestamp has aged
// past the configured window.
type RetentionJob struct {
	db     execer
	window time.Duration
	logger *slog.Logger
}

// NewRetentionJob constructs a retention purge job.
func NewRetentionJob(db execer, window time.Duration, logger *slog.Logger) *RetentionJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionJob{db: db, window: window, logger: logger}
}

// Run purges every covered table in one pass. A failure on one table is
// logged and does not stop the remaining tables.
func (j *RetentionJob) Run(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		olderThan = j.window
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	var firstErr error
	for _, table := range purgeTables {
		tag, err := j.db.Exec(ctx, "DELETE FROM "+table+" WHERE deleted_at IS NOT NULL AND deleted_at < $1", cutoff)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			j.logger.Error("retention purge failed", slog.String("table", table), slog.Any("error", err))
			continue
		}
		j.logger.Info("retention purge completed",
			slog.String("table", table),
			slog.Int64("rows", tag.RowsAffected()),
			slog.Time("cutoff", cutoff))
	}
	return firstErr
}

// Handle processes TaskRetentionPurge tasks.
func (j *RetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload RetentionPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	return j.Run(ctx, payload.OlderThan)
}
