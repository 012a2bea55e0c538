// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"legalsearch_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Request Lifecycle Events
// =============================================================================

// RequestCreated is published when a branch officer submits a new
// legal-search request, before any solicitor has been matched.
type RequestCreated struct {
	BaseEvent
	RequestID  uuid.UUID `json:"requestId"`
	BranchID   uuid.UUID `json:"branchId"`
	OfficerID  uuid.UUID `json:"officerId"`
	CaseNumber string    `json:"caseNumber"`
}

func (e RequestCreated) EventName() string { return "requests.request.created" }

// RequestRouted is published after the rotation scheduler hands a request to
// a solicitor (initial routing or a reroute).
type RequestRouted struct {
	BaseEvent
	RequestID     uuid.UUID `json:"requestId"`
	BranchID      uuid.UUID `json:"branchId"`
	SolicitorID   uuid.UUID `json:"solicitorId"`
	RotationOrder int       `json:"rotationOrder"`
}

func (e RequestRouted) EventName() string { return "requests.request.routed" }

// RotationExhausted is published when a request runs out of candidates and
// is escalated to the fallback team.
type RotationExhausted struct {
	BaseEvent
	RequestID  uuid.UUID `json:"requestId"`
	BranchID   uuid.UUID `json:"branchId"`
	CaseNumber string    `json:"caseNumber"`
}

func (e RotationExhausted) EventName() string { return "requests.rotation.exhausted" }

// SolicitorAccepted is published when the assigned solicitor accepts a request.
type SolicitorAccepted struct {
	BaseEvent
	RequestID   uuid.UUID `json:"requestId"`
	BranchID    uuid.UUID `json:"branchId"`
	OfficerID   uuid.UUID `json:"officerId"`
	SolicitorID uuid.UUID `json:"solicitorId"`
	CaseNumber  string    `json:"caseNumber"`
}

func (e SolicitorAccepted) EventName() string { return "requests.solicitor.accepted" }

// SolicitorRejected is published when the assigned solicitor declines a
// request; the rotation re-enters at the next order.
type SolicitorRejected struct {
	BaseEvent
	RequestID     uuid.UUID `json:"requestId"`
	BranchID      uuid.UUID `json:"branchId"`
	OfficerID     uuid.UUID `json:"officerId"`
	SolicitorID   uuid.UUID `json:"solicitorId"`
	CaseNumber    string    `json:"caseNumber"`
	RotationOrder int       `json:"rotationOrder"`
	Reason        string    `json:"reason,omitempty"`
}

func (e SolicitorRejected) EventName() string { return "requests.solicitor.rejected" }

// RequestReturned is published when a solicitor sends a request back to the
// originating officer for more information.
type RequestReturned struct {
	BaseEvent
	RequestID   uuid.UUID `json:"requestId"`
	BranchID    uuid.UUID `json:"branchId"`
	OfficerID   uuid.UUID `json:"officerId"`
	SolicitorID uuid.UUID `json:"solicitorId"`
	CaseNumber  string    `json:"caseNumber"`
	Remarks     string    `json:"remarks,omitempty"`
}

func (e RequestReturned) EventName() string { return "requests.request.returned" }

// RequestCompleted is published when the accepted solicitor submits the
// verification report.
type RequestCompleted struct {
	BaseEvent
	RequestID   uuid.UUID `json:"requestId"`
	BranchID    uuid.UUID `json:"branchId"`
	OfficerID   uuid.UUID `json:"officerId"`
	SolicitorID uuid.UUID `json:"solicitorId"`
	CaseNumber  string    `json:"caseNumber"`
	ReportRef   string    `json:"reportRef"`
}

func (e RequestCompleted) EventName() string { return "requests.request.completed" }

// SolicitorReminderDue is published by the reminder sweep for each solicitor
// holding accepted-but-idle requests past the reminder threshold.
type SolicitorReminderDue struct {
	BaseEvent
	SolicitorID    uuid.UUID   `json:"solicitorId"`
	SolicitorEmail string      `json:"solicitorEmail"`
	RequestIDs     []uuid.UUID `json:"requestIds"`
	OldestSince    time.Time   `json:"oldestSince"`
}

func (e SolicitorReminderDue) EventName() string { return "requests.solicitor.reminder_due" }
