// Package email delivers the outbound mail the notification outbox queues:
// batched solicitor reminders and escalation alerts for the fallback team.
package email

import (
	"context"
	"time"

	"legalsearch_backend/platform/config"
)

// ReminderData is the content of a batched reminder to one solicitor.
type ReminderData struct {
	SolicitorName string
	CaseNumbers   []string
	OldestSince   time.Time
}

// EscalationData is the content of an escalation alert to the fallback team.
type EscalationData struct {
	Title      string
	Message    string
	CaseNumber string
}

type Sender interface {
	SendSolicitorReminderEmail(ctx context.Context, toEmail string, data ReminderData) error
	SendEscalationAlertEmail(ctx context.Context, toEmail string, data EscalationData) error
}

// NoopSender is used when email delivery is disabled; notifications stay
// in-app only.
type NoopSender struct{}

func (NoopSender) SendSolicitorReminderEmail(ctx context.Context, toEmail string, data ReminderData) error {
	return nil
}

func (NoopSender) SendEscalationAlertEmail(ctx context.Context, toEmail string, data EscalationData) error {
	return nil
}

// NewFromConfig returns the configured sender, or a NoopSender when email is
// disabled or the SMTP host is missing.
func NewFromConfig(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
