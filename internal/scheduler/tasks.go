package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskRerouteSweep = "rotation.sweep.reroute"

const TaskReminderSweep = "rotation.sweep.reminder"

const TaskSLASweep = "rotation.sweep.sla_elapsed"

const TaskOutboxEmailDue = "notification.outbox.email_due"

type OutboxEmailDuePayload struct {
	OutboxID string `json:"outboxId"`
}

// ReminderEmailPayload is the outbox payload for a batched solicitor
// reminder, as written by the notification dispatcher.
type ReminderEmailPayload struct {
	Email       string    `json:"email"`
	RequestIDs  []string  `json:"requestIds"`
	OldestSince time.Time `json:"oldestSince"`
}

// EscalationEmailPayload is the outbox payload for an escalation alert to
// the fallback team.
type EscalationEmailPayload struct {
	Recipients []string       `json:"recipients"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata"`
}

func NewSweepTask(taskType string) *asynq.Task {
	return asynq.NewTask(taskType, nil)
}

func NewOutboxEmailDueTask(payload OutboxEmailDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutboxEmailDue, data), nil
}

func ParseOutboxEmailDuePayload(task *asynq.Task) (OutboxEmailDuePayload, error) {
	var payload OutboxEmailDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OutboxEmailDuePayload{}, err
	}
	return payload, nil
}
