package workspaces

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/shared/server/middleware"
	"secknow-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the workspaces service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches workspace and program routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/workspaces", h.createWorkspace)
	rg.GET("/workspaces", h.listWorkspaces)
	rg.GET("/workspaces/:id", h.getWorkspace)
	rg.PATCH("/workspaces/:id", h.updateWorkspace)
	rg.DELETE("/workspaces/:id", h.deleteWorkspace)

	rg.POST("/workspaces/:id/programs", h.createProgram)
	rg.GET("/workspaces/:id/programs", h.listPrograms)
	rg.GET("/programs/:id", h.getProgram)
	rg.PATCH("/programs/:id", h.updateProgram)
	rg.DELETE("/programs/:id", h.deleteProgram)
}

func (h *Handler) createWorkspace(c *gin.Context) {
	var req WorkspaceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ws, err := h.Svc.CreateWorkspace(c.Request.Context(), middleware.UserIDFromContext(c), req)
	if err != nil {
		writeError(c, err, "failed to create workspace")
		return
	}
	c.Set("workspaceId", ws.ID)
	respond.Created(c, ws)
}

func (h *Handler) listWorkspaces(c *gin.Context) {
	items, err := h.Svc.ListWorkspaces(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list workspaces")
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) getWorkspace(c *gin.Context) {
	workspaceID := pathID(c)
	c.Set("workspaceId", workspaceID)
	ws, err := h.Svc.GetWorkspace(c.Request.Context(), middleware.UserIDFromContext(c), workspaceID)
	if err != nil {
		writeError(c, err, "failed to fetch workspace")
		return
	}
	respond.OK(c, ws)
}

func (h *Handler) updateWorkspace(c *gin.Context) {
	workspaceID := pathID(c)
	c.Set("workspaceId", workspaceID)
	var req WorkspacePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ws, err := h.Svc.UpdateWorkspace(c.Request.Context(), middleware.UserIDFromContext(c), workspaceID, req)
	if err != nil {
		writeError(c, err, "failed to update workspace")
		return
	}
	respond.OK(c, ws)
}

func (h *Handler) deleteWorkspace(c *gin.Context) {
	workspaceID := pathID(c)
	c.Set("workspaceId", workspaceID)
	if err := h.Svc.DeleteWorkspace(c.Request.Context(), middleware.UserIDFromContext(c), workspaceID); err != nil {
		writeError(c, err, "failed to delete workspace")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) createProgram(c *gin.Context) {
	workspaceID := pathID(c)
	c.Set("workspaceId", workspaceID)
	var req ProgramInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	p, err := h.Svc.CreateProgram(c.Request.Context(), middleware.UserIDFromContext(c), workspaceID, req)
	if err != nil {
		writeError(c, err, "failed to create program")
		return
	}
	respond.Created(c, p)
}

func (h *Handler) listPrograms(c *gin.Context) {
	workspaceID := pathID(c)
	c.Set("workspaceId", workspaceID)
	items, err := h.Svc.ListPrograms(c.Request.Context(), middleware.UserIDFromContext(c), workspaceID)
	if err != nil {
		writeError(c, err, "failed to list programs")
		return
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) getProgram(c *gin.Context) {
	p, err := h.Svc.GetProgram(c.Request.Context(), middleware.UserIDFromContext(c), pathID(c))
	if err != nil {
		writeError(c, err, "failed to fetch program")
		return
	}
	c.Set("workspaceId", p.WorkspaceID)
	respond.OK(c, p)
}

func (h *Handler) updateProgram(c *gin.Context) {
	var req ProgramPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	p, err := h.Svc.UpdateProgram(c.Request.Context(), middleware.UserIDFromContext(c), pathID(c), req)
	if err != nil {
		writeError(c, err, "failed to update program")
		return
	}
	c.Set("workspaceId", p.WorkspaceID)
	respond.OK(c, p)
}

func (h *Handler) deleteProgram(c *gin.Context) {
	if err := h.Svc.DeleteProgram(c.Request.Context(), middleware.UserIDFromContext(c), pathID(c)); err != nil {
		writeError(c, err, "failed to delete program")
		return
	}
	respond.NoContent(c)
}

func pathID(c *gin.Context) string {
	return strings.TrimSpace(c.Param("id"))
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
