package server

import (
	"fmt"

	"github.com/shuportal/portal/internal/tasks"
)

func (s *Server) sendMail(to, subject, body string) error {
	task, err := tasks.NewSendMailTask(tasks.MailPayload{
		To:      to,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return err
	}

	info, err := s.mailer.Enqueue(task)
	if err != nil {
		return fmt.Errorf("failed to enqueue mail: %w", err)
	}

	s.logger.Debug().Str("task_id", info.ID).Str("subject", subject).Msg("Mail queued")
	return nil
}
