package tasks

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMailTask(t *testing.T) {
	task, err := NewSendMailTask(MailPayload{To: "alice@example.com", Subject: "Hi", Body: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, TypeSendMail, task.Type())

	payload, err := ParseMailPayload(task)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", payload.To)
	assert.Equal(t, "Hello", payload.Body)
}

func TestParseMailPayload_Invalid(t *testing.T) {
	_, err := ParseMailPayload(asynq.NewTask(TypeSendMail, []byte("{")))
	assert.Error(t, err)

	_, err = ParseMailPayload(asynq.NewTask(TypeSendMail, []byte(`{"subject":"no one"}`)))
	assert.ErrorContains(t, err, "no recipient")
}

func TestPruneTask(t *testing.T) {
	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	task, err := NewPruneLoginAttemptsTask(before)
	require.NoError(t, err)
	assert.Equal(t, TypePruneLoginAttempts, task.Type())

	payload, err := ParsePrunePayload(task)
	require.NoError(t, err)
	assert.True(t, before.Equal(payload.Before))
}
