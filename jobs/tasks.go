package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRetentionPurge is the task type for purging soft-deleted records.
	TaskRetentionPurge = "retention:purge"
)

// RetentionPurgePayload describes a purge run over soft-deleted rows.
type RetentionPurgePayload struct {
	OlderThan time.Duration `json:"olderThan"`
}

// NewRetentionPurgeTask constructs an Asynq task.
func NewRetentionPurgeTask(payload RetentionPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRetentionPurge, data), nil
}
