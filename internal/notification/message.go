// Package notification turns domain events into persisted and delivered
// notifications for both audiences of the routing engine: the solicitor
// receiving a request and the branch that originated it.
package notification

import "github.com/google/uuid"

// Notification categories. The mirror table in mirrors.go is keyed on these.
const (
	CategoryAssignment = "solicitor_assignment"
	CategoryEscalation = "rotation_escalation"
	CategoryReminder   = "solicitor_reminder"
	CategoryAccepted   = "request_accepted"
	CategoryRejected   = "request_rejected"
	CategoryReturned   = "request_returned"
	CategoryCompleted  = "request_completed"
)

// Message is the in-memory notification payload handed to the dispatcher.
// Metadata carries a structured snapshot of the triggering request so a
// client can render the notification without a second fetch.
type Message struct {
	Title    string
	Category string
	Body     string
	Metadata map[string]any
	// BranchID correlates broadcast notifications back to the originating
	// branch.
	BranchID uuid.UUID
}
