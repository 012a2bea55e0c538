package domain

import "testing"

func TestTerminalStatesAcceptNoTransitions(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusUnAssigned} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
		for _, next := range []Status{StatusInitiated, StatusLawyer, StatusLawyerAccepted, StatusCompleted, StatusUnAssigned} {
			if s.CanTransition(next) {
				t.Fatalf("terminal state %s must not transition to %s", s, next)
			}
		}
	}
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusInitiated, StatusLawyer, true},
		{StatusInitiated, StatusUnAssigned, true},
		{StatusInitiated, StatusLawyerAccepted, false},
		{StatusLawyer, StatusLawyer, true}, // reroute re-stamps with a new solicitor
		{StatusLawyer, StatusLawyerAccepted, true},
		{StatusLawyer, StatusLawyerRejected, true},
		{StatusLawyer, StatusReturned, true},
		{StatusLawyer, StatusUnAssigned, true},
		{StatusLawyer, StatusCompleted, false},
		{StatusLawyerAccepted, StatusCompleted, true},
		{StatusLawyerAccepted, StatusReturned, true},
		{StatusLawyerAccepted, StatusLawyer, false},
		{StatusLawyerRejected, StatusLawyer, true},
		{StatusLawyerRejected, StatusUnAssigned, true},
		{StatusReturned, StatusLawyer, true},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestReroutable(t *testing.T) {
	if !StatusLawyer.Reroutable() {
		t.Fatal("Lawyer must be reroutable")
	}
	if !StatusLawyerRejected.Reroutable() {
		t.Fatal("LawyerRejected must be reroutable")
	}
	for _, s := range []Status{StatusInitiated, StatusLawyerAccepted, StatusReturned, StatusCompleted, StatusUnAssigned} {
		if s.Reroutable() {
			t.Fatalf("%s must not be reroutable", s)
		}
	}
}

func TestValid(t *testing.T) {
	if Status("Lost").Valid() {
		t.Fatal("unknown status must not be valid")
	}
	if !StatusReturned.Valid() {
		t.Fatal("Returned must be valid")
	}
}
