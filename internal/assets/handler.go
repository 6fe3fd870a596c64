package assets

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/shared/server/middleware"
	"secknow-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the asset service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches asset routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/workspaces/:id/assets", h.create)
	rg.GET("/workspaces/:id/assets", h.list)
	rg.GET("/assets/:id", h.get)
	rg.PATCH("/assets/:id", h.update)
	rg.PUT("/assets/:id/associations", h.setAssociations)
	rg.DELETE("/assets/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	workspaceID := strings.TrimSpace(c.Param("id"))
	c.Set("workspaceId", workspaceID)
	var req AssetInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	view, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), workspaceID, req)
	if err != nil {
		writeError(c, err, "failed to create asset")
		return
	}
	c.Set("assetId", view.ID)
	respond.Created(c, view)
}

func (h *Handler) list(c *gin.Context) {
	workspaceID := strings.TrimSpace(c.Param("id"))
	c.Set("workspaceId", workspaceID)
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), workspaceID, c.Query("programId"))
	if err != nil {
		writeError(c, err, "failed to list assets")
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) get(c *gin.Context) {
	assetID := strings.TrimSpace(c.Param("id"))
	c.Set("assetId", assetID)
	view, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), assetID)
	if err != nil {
		writeError(c, err, "failed to fetch asset")
		return
	}
	c.Set("workspaceId", view.WorkspaceID)
	respond.OK(c, view)
}

func (h *Handler) update(c *gin.Context) {
	assetID := strings.TrimSpace(c.Param("id"))
	c.Set("assetId", assetID)
	var req AssetPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	view, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), assetID, req)
	if err != nil {
		writeError(c, err, "failed to update asset")
		return
	}
	c.Set("workspaceId", view.WorkspaceID)
	respond.OK(c, view)
}

func (h *Handler) setAssociations(c *gin.Context) {
	assetID := strings.TrimSpace(c.Param("id"))
	c.Set("assetId", assetID)
	var req Associations
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	view, err := h.Svc.SetAssociations(c.Request.Context(), middleware.UserIDFromContext(c), assetID, req)
	if err != nil {
		writeError(c, err, "failed to update associations")
		return
	}
	c.Set("workspaceId", view.WorkspaceID)
	respond.OK(c, view)
}

func (h *Handler) delete(c *gin.Context) {
	assetID := strings.TrimSpace(c.Param("id"))
	c.Set("assetId", assetID)
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), assetID); err != nil {
		writeError(c, err, "failed to delete asset")
		return
	}
	respond.NoContent(c)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "asset not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
