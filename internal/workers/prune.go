package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/shuportal/portal/internal/models"
	"github.com/shuportal/portal/internal/tasks"
)

// HandlePruneLoginAttempts deletes login attempts recorded before the payload's cutoff
func HandlePruneLoginAttempts(ctx context.Context, t *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	payload, err := tasks.ParsePrunePayload(t)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w: %w", err, asynq.SkipRetry)
	}

	result := db.WithContext(ctx).Where("at < ?", payload.Before).Delete(&models.LoginAttempt{})
	if result.Error != nil {
		return fmt.Errorf("failed to prune login attempts: %w", result.Error)
	}

	logger.Info().
		Time("before", payload.Before).
		Int64("deleted", result.RowsAffected).
		Msg("Pruned login attempts")

	return nil
}

// NewPruneScheduler returns a started cron that enqueues a prune task on
// schedule, keeping the last retention worth of attempts. Stop it on shutdown.
func NewPruneScheduler(client tasks.Enqueuer, schedule string, retention time.Duration, logger zerolog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLogger(cronLogger{log: logger}))

	_, err := c.AddFunc(schedule, func() {
		enqueuePrune(client, time.Now().Add(-retention), logger)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}

	c.Start()
	return c, nil
}

func enqueuePrune(client tasks.Enqueuer, before time.Time, logger zerolog.Logger) {
	task, err := tasks.NewPruneLoginAttemptsTask(before)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create prune task")
		return
	}

	// One prune per cutoff minute is enough
	_, err = client.Enqueue(task, asynq.TaskID(fmt.Sprintf("prune-%d", before.Unix()/60)))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to enqueue prune task")
		return
	}

	logger.Debug().Time("before", before).Msg("Prune task enqueued")
}

// cronLogger adapts zerolog to cron's logger interface
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
