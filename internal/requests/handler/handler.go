// Package handler exposes the requests API over HTTP.
package handler

import (
	"net/http"

	"legalsearch_backend/internal/requests/service"
	"legalsearch_backend/internal/requests/transport"
	"legalsearch_backend/platform/httpkit"
	"legalsearch_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for legal search requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new requests handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the request routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.ListForBranch)
	rg.GET("/assigned", h.ListForSolicitor)
	rg.GET("/:id", h.GetByID)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/rotation", h.Rotation)
	rg.POST("/:id/accept", h.Accept)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/return", h.Return)
	rg.POST("/:id/resubmit", h.Resubmit)
	rg.POST("/:id/complete", h.Complete)
}

func viewerFrom(identity httpkit.Identity) service.Viewer {
	return service.Viewer{
		UserID:   identity.UserID(),
		BranchID: identity.BranchID(),
		Roles:    identity.Roles(),
	}
}

// Create handles POST /api/requests
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), viewerFrom(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, result)
}

// ListForBranch handles GET /api/requests
func (h *Handler) ListForBranch(c *gin.Context) {
	var q transport.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListForBranch(c.Request.Context(), viewerFrom(identity), q)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// ListForSolicitor handles GET /api/requests/assigned
func (h *Handler) ListForSolicitor(c *gin.Context) {
	var q transport.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.ListForSolicitor(c.Request.Context(), viewerFrom(identity), q)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetByID handles GET /api/requests/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), viewerFrom(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Rotation handles GET /api/requests/:id/rotation
func (h *Handler) Rotation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Rotation(c.Request.Context(), viewerFrom(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Accept handles POST /api/requests/:id/accept
func (h *Handler) Accept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Accept(c.Request.Context(), identity.UserID(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Reject handles POST /api/requests/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Reject(c.Request.Context(), identity.UserID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Return handles POST /api/requests/:id/return
func (h *Handler) Return(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Return(c.Request.Context(), identity.UserID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Resubmit handles POST /api/requests/:id/resubmit
func (h *Handler) Resubmit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Resubmit(c.Request.Context(), viewerFrom(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Complete handles POST /api/requests/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Complete(c.Request.Context(), identity.UserID(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// Delete handles DELETE /api/requests/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), viewerFrom(identity), id); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}
