// Package handler exposes the in-app notification read surface and the SSE
// stream.
package handler

import (
	"net/http"
	"strconv"

	"legalsearch_backend/internal/notification/inapp"
	"legalsearch_backend/internal/notification/sse"
	"legalsearch_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler handles HTTP requests for notifications.
type Handler struct {
	svc *inapp.Service
	sse *sse.Service
}

// New creates a new notifications handler.
func New(svc *inapp.Service, sseService *sse.Service) *Handler {
	return &Handler{svc: svc, sse: sseService}
}

// RegisterRoutes registers the notification routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread-count", h.UnreadCount)
	rg.POST("/:id/read", h.MarkRead)
	rg.POST("/read-all", h.MarkAllRead)
	rg.GET("/stream", h.Stream)
}

// List handles GET /api/v1/notifications
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	items, total, err := h.svc.List(c.Request.Context(), identity.UserID(), identity.Roles(), page, pageSize)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"items": items,
		"total": total,
	})
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *Handler) UnreadCount(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), identity.UserID(), identity.Roles())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"count": count})
}

// MarkRead handles POST /api/v1/notifications/:id/read
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid notification id", nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), identity.UserID(), id); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *Handler) MarkAllRead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.MarkAllRead(c.Request.Context(), identity.UserID()); httpkit.HandleError(c, err) {
		return
	}

	c.Status(http.StatusNoContent)
}

// Stream handles GET /api/v1/notifications/stream (SSE)
func (h *Handler) Stream(c *gin.Context) {
	if h.sse == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	h.sse.StreamFor(c, identity.UserID(), identity.Roles())
}
