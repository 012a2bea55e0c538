// Package domain provides core business rules for the legal-search request
// bounded context: the request status state machine and its transitions.
package domain

// Status is the lifecycle state of a legal-search request.
type Status string

const (
	// StatusInitiated is the state of a freshly created request before any
	// solicitor has been matched.
	StatusInitiated Status = "Initiated"
	// StatusLawyer means the request is pending with the currently assigned
	// solicitor.
	StatusLawyer Status = "Lawyer"
	// StatusLawyerAccepted means the assigned solicitor accepted the request.
	StatusLawyerAccepted Status = "LawyerAccepted"
	// StatusLawyerRejected means the assigned solicitor declined; the rotation
	// re-enters at the next order.
	StatusLawyerRejected Status = "LawyerRejected"
	// StatusReturned means the solicitor sent the request back to the
	// originating officer for more information.
	StatusReturned Status = "Returned"
	// StatusCompleted means the verification report was submitted. Terminal.
	StatusCompleted Status = "Completed"
	// StatusUnAssigned means the rotation was exhausted (or never seeded) and
	// the request was escalated to the fallback team. Terminal for the engine.
	StatusUnAssigned Status = "UnAssigned"
)

var terminal = map[Status]bool{
	StatusCompleted:  true,
	StatusUnAssigned: true,
}

// transitions lists the allowed next states for each state.
var transitions = map[Status][]Status{
	StatusInitiated:      {StatusLawyer, StatusUnAssigned},
	StatusLawyer:         {StatusLawyer, StatusLawyerAccepted, StatusLawyerRejected, StatusReturned, StatusUnAssigned},
	StatusLawyerAccepted: {StatusCompleted, StatusReturned},
	StatusLawyerRejected: {StatusLawyer, StatusUnAssigned},
	StatusReturned:       {StatusLawyer, StatusUnAssigned},
}

// IsTerminal reports whether the engine may still act on a request in this
// state. Once a request is Completed or UnAssigned no sweep advances it
// without an external re-seed.
func (s Status) IsTerminal() bool {
	return terminal[s]
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Reroutable reports whether a request in this state may be handed to the
// next rotation candidate by a sweep.
func (s Status) Reroutable() bool {
	return s == StatusLawyer || s == StatusLawyerRejected
}

// Valid reports whether the status value is one the engine knows about.
func (s Status) Valid() bool {
	switch s {
	case StatusInitiated, StatusLawyer, StatusLawyerAccepted, StatusLawyerRejected,
		StatusReturned, StatusCompleted, StatusUnAssigned:
		return true
	}
	return false
}
