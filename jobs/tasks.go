package jobs

import (
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-campus/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionPurge removes login session records past their expiry.
	TaskSessionPurge = "auth:sessions:purge"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NewSessionPurgeTask constructs an Asynq task for the session purge routine.
// The task carries no payload; the cutoff is evaluated when it runs.
func NewSessionPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskSessionPurge, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(3))
}
