package library

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/shared/server/middleware"
	"secknow-backend/internal/shared/server/respond"
	"secknow-backend/internal/suggestions"
)

// Handler wires HTTP handlers to the library service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches library routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/workspaces/:id/library", h.create)
	rg.GET("/workspaces/:id/library", h.list)
	rg.GET("/library/:id", h.get)
	rg.PATCH("/library/:id", h.update)
	rg.DELETE("/library/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	workspaceID := strings.TrimSpace(c.Param("id"))
	c.Set("workspaceId", workspaceID)
	var req ItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	item, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), workspaceID, req)
	if err != nil {
		writeError(c, err, "failed to create library item")
		return
	}
	respond.Created(c, item)
}

func (h *Handler) list(c *gin.Context) {
	workspaceID := strings.TrimSpace(c.Param("id"))
	c.Set("workspaceId", workspaceID)

	filter := ListFilter{
		Tag:   c.Query("tag"),
		Query: c.Query("q"),
	}
	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		kind, err := suggestions.ParseType(raw)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unknown kind", []map[string]string{
				{"field": "kind", "issue": "invalid"},
			})
			return
		}
		filter.Kind = kind
	}

	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), workspaceID, filter)
	if err != nil {
		writeError(c, err, "failed to list library items")
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) get(c *gin.Context) {
	item, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch library item")
		return
	}
	c.Set("workspaceId", item.WorkspaceID)
	respond.OK(c, item)
}

func (h *Handler) update(c *gin.Context) {
	var req ItemPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	item, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "failed to update library item")
		return
	}
	c.Set("workspaceId", item.WorkspaceID)
	respond.OK(c, item)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete library item")
		return
	}
	respond.NoContent(c)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "library item not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
