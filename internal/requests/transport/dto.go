// Package transport defines the request/response DTOs for the requests API.
package transport

import (
	"time"

	"legalsearch_backend/internal/requests/repository"

	"github.com/google/uuid"
)

// CreateRequestRequest is the payload a branch officer submits to register a
// new legal search request.
type CreateRequestRequest struct {
	CaseNumber           string     `json:"caseNumber" validate:"required,max=64"`
	BusinessRegionID     uuid.UUID  `json:"businessRegionId" validate:"required"`
	RegistrationRegionID uuid.UUID  `json:"registrationRegionId" validate:"required"`
	RegisteredAt         *time.Time `json:"registeredAt"`
}

// RejectRequest carries the optional reason a solicitor declines a request.
type RejectRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ReturnRequest carries the remarks a solicitor sends back to the officer.
type ReturnRequest struct {
	Remarks string `json:"remarks" validate:"required,max=2000"`
}

// CompleteRequest carries the verification report reference.
type CompleteRequest struct {
	ReportRef string `json:"reportRef" validate:"required,max=255"`
}

// ListQuery holds common paging parameters.
type ListQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// RequestResponse is the API representation of a request.
type RequestResponse struct {
	ID                   uuid.UUID  `json:"id"`
	CaseNumber           string     `json:"caseNumber"`
	BranchID             uuid.UUID  `json:"branchId"`
	OfficerID            uuid.UUID  `json:"officerId"`
	BusinessRegionID     uuid.UUID  `json:"businessRegionId"`
	RegistrationRegionID uuid.UUID  `json:"registrationRegionId"`
	Status               string     `json:"status"`
	AssignedSolicitorID  *uuid.UUID `json:"assignedSolicitorId,omitempty"`
	ReportRef            *string    `json:"reportRef,omitempty"`
	RegisteredAt         time.Time  `json:"registeredAt"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// RotationEntryResponse is one step of a request's rotation history.
type RotationEntryResponse struct {
	SolicitorID uuid.UUID  `json:"solicitorId"`
	Order       int        `json:"order"`
	AssignedAt  *time.Time `json:"assignedAt,omitempty"`
	Accepted    bool       `json:"accepted"`
}

// ListRequestsResponse wraps a page of requests.
type ListRequestsResponse struct {
	Items []RequestResponse `json:"items"`
}

// ToRequestResponse maps a repository row to its API shape.
func ToRequestResponse(req repository.Request) RequestResponse {
	return RequestResponse{
		ID:                   req.ID,
		CaseNumber:           req.CaseNumber,
		BranchID:             req.BranchID,
		OfficerID:            req.OfficerID,
		BusinessRegionID:     req.BusinessRegionID,
		RegistrationRegionID: req.RegistrationRegionID,
		Status:               string(req.Status),
		AssignedSolicitorID:  req.AssignedSolicitorID,
		ReportRef:            req.ReportRef,
		RegisteredAt:         req.RegisteredAt,
		CreatedAt:            req.CreatedAt,
		UpdatedAt:            req.UpdatedAt,
	}
}

// ToRequestResponses maps a page of rows.
func ToRequestResponses(rows []repository.Request) []RequestResponse {
	items := make([]RequestResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, ToRequestResponse(row))
	}
	return items
}

// ToRotationResponses maps rotation entries to their API shape.
func ToRotationResponses(entries []repository.RotationEntry) []RotationEntryResponse {
	items := make([]RotationEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, RotationEntryResponse{
			SolicitorID: e.SolicitorID,
			Order:       e.Order,
			AssignedAt:  e.AssignedAt,
			Accepted:    e.Accepted,
		})
	}
	return items
}
