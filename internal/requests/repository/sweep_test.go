package repository

import (
	"testing"

	"legalsearch_backend/internal/requests/domain"
)

func TestRerouteStatusesTrackReroutable(t *testing.T) {
	all := []domain.Status{
		domain.StatusInitiated,
		domain.StatusLawyer,
		domain.StatusLawyerAccepted,
		domain.StatusLawyerRejected,
		domain.StatusReturned,
		domain.StatusCompleted,
		domain.StatusUnAssigned,
	}

	for _, status := range all {
		inFilter := false
		for _, candidate := range rerouteStatuses {
			if candidate == string(status) {
				inFilter = true
			}
		}
		if inFilter != status.Reroutable() {
			t.Errorf("status %s: sweep filter includes = %v, Reroutable() = %v", status, inFilter, status.Reroutable())
		}
	}
}
