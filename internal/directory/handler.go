package directory

import (
	"net/http"

	"legalsearch_backend/platform/httpkit"
	"legalsearch_backend/platform/phone"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes read-only directory lookups.
type Handler struct {
	repo *Repository
}

// NewHandler creates a new directory handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers the directory routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/regions", h.ListRegions)
	rg.GET("/solicitors", h.ListSolicitors)
}

type regionResponse struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	ParentRegionID *uuid.UUID `json:"parentRegionId,omitempty"`
}

type solicitorResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone,omitempty"`
	RegionID uuid.UUID `json:"regionId"`
}

func solicitorPhone(s Solicitor) string {
	if s.Phone == nil {
		return ""
	}
	return phone.NormalizeE164(*s.Phone)
}

// ListRegions handles GET /api/v1/directory/regions
func (h *Handler) ListRegions(c *gin.Context) {
	regions, err := h.repo.ListRegions(c.Request.Context())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to list regions", nil)
		return
	}

	items := make([]regionResponse, 0, len(regions))
	for _, region := range regions {
		items = append(items, regionResponse{
			ID:             region.ID,
			Name:           region.Name,
			ParentRegionID: region.ParentRegionID,
		})
	}
	httpkit.OK(c, gin.H{"items": items})
}

// ListSolicitors handles GET /api/v1/directory/solicitors?regionId=
func (h *Handler) ListSolicitors(c *gin.Context) {
	regionID, err := uuid.Parse(c.Query("regionId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "regionId is required", nil)
		return
	}

	solicitors, err := h.repo.SolicitorsInRegion(c.Request.Context(), regionID)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to list solicitors", nil)
		return
	}

	items := make([]solicitorResponse, 0, len(solicitors))
	for _, s := range solicitors {
		items = append(items, solicitorResponse{
			ID:       s.ID,
			FullName: s.FullName,
			Email:    s.Email,
			Phone:    solicitorPhone(s),
			RegionID: s.RegionID,
		})
	}
	httpkit.OK(c, gin.H{"items": items})
}
