package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-campus/internal/jobs"
)

// SessionPurger deletes expired login session records.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// SessionPurgeJob runs the session purge on behalf of the worker.
type SessionPurgeJob struct {
	Purger  SessionPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSessionPurgeJob constructs the job handler.
func NewSessionPurgeJob(purger SessionPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionPurgeJob {
	return &SessionPurgeJob{
		Purger:  purger,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the purge.
func (j *SessionPurgeJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Purger == nil {
		return errors.New("session purge: dependencies not configured")
	}

	tracker := j.metrics().Track(TaskSessionPurge)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	start := j.now()
	removed, err := j.Purger.PurgeExpiredSessions(ctx)
	if err != nil {
		resultErr = err
		j.log().Error("purge sessions", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddAffected(TaskSessionPurge, removed)
	j.log().Info("purged expired sessions", slog.Int64("removed", removed), slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *SessionPurgeJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SessionPurgeJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSessionPurge))
	}
	return slog.Default().With(slog.String("job", TaskSessionPurge))
}

func (j *SessionPurgeJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *SessionPurgeJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
