package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypeSendMail           = "mail:send"
	TypePruneLoginAttempts = "login_attempts:prune"
)

// Enqueuer is the part of *asynq.Client used to schedule work
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// MailPayload is a plain text notification to one recipient
type MailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// PrunePayload asks for login attempts older than Before to be removed
type PrunePayload struct {
	Before time.Time `json:"before"`
}

// NewSendMailTask creates a task to deliver a notification mail
func NewSendMailTask(mail MailPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(mail)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeSendMail, payload, asynq.MaxRetry(5)), nil
}

// NewPruneLoginAttemptsTask creates a task to delete attempts recorded before before
func NewPruneLoginAttemptsTask(before time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(PrunePayload{
		Before: before,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypePruneLoginAttempts, payload, asynq.Queue("low")), nil
}

// ParseMailPayload parses a mail task payload
func ParseMailPayload(task *asynq.Task) (MailPayload, error) {
	var payload MailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.To == "" {
		return payload, fmt.Errorf("mail payload has no recipient")
	}
	return payload, nil
}

// ParsePrunePayload parses a prune task payload
func ParsePrunePayload(task *asynq.Task) (PrunePayload, error) {
	var payload PrunePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}
