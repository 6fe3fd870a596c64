package suggestions

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/shared/server/middleware"
	"secknow-backend/internal/shared/server/respond"
)

// ErrUnknownAsset is returned by a ContextSource when the asset does not exist or is not
// visible to the caller.
var ErrUnknownAsset = errors.New("asset not found")

// ContextSource builds the suggestion context for an asset the user can see.
type ContextSource interface {
	SuggestionContext(ctx context.Context, userID, assetID string) (*Context, error)
}

// Handler wires HTTP handlers to the engine and the per-asset hub.
type Handler struct {
	Engine         *Engine
	Hub            *Hub
	Source         ContextSource
	MaxSuggestions int
}

// NewHandler constructs a Handler.
func NewHandler(engine *Engine, hub *Hub, source ContextSource, maxSuggestions int) *Handler {
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}
	return &Handler{Engine: engine, Hub: hub, Source: source, MaxSuggestions: maxSuggestions}
}

// RegisterRoutes attaches suggestion routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/assets/:id/suggestions", h.generate)
	rg.GET("/assets/:id/suggestions/live", h.live)
	rg.DELETE("/assets/:id/suggestions/live/error", h.clearLiveError)
	rg.GET("/suggestions/rules", h.rules)
	rg.POST("/suggestions/preview", h.preview)
}

type generateResponse struct {
	AssetID     string       `json:"assetId"`
	Suggestions []Suggestion `json:"suggestions"`
	Stats       Stats        `json:"stats"`
}

type liveResponse struct {
	AssetID string `json:"assetId"`
	Snapshot
}

type ruleSummary struct {
	ID         string   `json:"id"`
	Type       Type     `json:"type"`
	Priority   Priority `json:"priority"`
	Title      string   `json:"title"`
	Confidence int      `json:"confidence"`
	Condition  string   `json:"condition,omitempty"`
}

func (h *Handler) generate(c *gin.Context) {
	assetID := strings.TrimSpace(c.Param("id"))
	c.Set("assetId", assetID)

	filter, details := h.parseFilter(c)
	if len(details) > 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid suggestion filter", details)
		return
	}

	sctx, ok := h.loadContext(c, assetID)
	if !ok {
		return
	}

	items, err := h.Engine.Generate(sctx)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "suggestion_error", "unable to generate suggestions", nil)
		return
	}
	items = filter.Apply(items)

	respond.OK(c, generateResponse{
		AssetID:     assetID,
		Suggestions: items,
		Stats:       ComputeStats(items),
	})
}

func (h *Handler) live(c *gin.Context) {
	assetID := strings.TrimSpace(c.Param("id"))
	c.Set("assetId", assetID)

	sctx, ok := h.loadContext(c, assetID)
	if !ok {
		return
	}

	// First read after a restart: nothing has pushed a context for this asset yet.
	if _, exists := h.Hub.Snapshot(assetID); !exists {
		h.Hub.Prime(assetID, sctx)
	}
	snap, exists := h.Hub.Snapshot(assetID)
	if !exists {
		respond.Error(c, http.StatusServiceUnavailable, "unavailable", "suggestions are shutting down", nil)
		return
	}
	c.Set("suggestionState", string(snap.State))

	respond.OK(c, liveResponse{AssetID: assetID, Snapshot: snap})
}

func (h *Handler) clearLiveError(c *gin.Context) {
	assetID := strings.TrimSpace(c.Param("id"))
	c.Set("assetId", assetID)

	if _, ok := h.loadContext(c, assetID); !ok {
		return
	}
	h.Hub.ClearError(assetID)
	respond.NoContent(c)
}

func (h *Handler) rules(c *gin.Context) {
	rules := h.Engine.Rules().Rules()
	byType := make(map[Type]int)
	out := make([]ruleSummary, 0, len(rules))
	for _, r := range rules {
		byType[r.Template.Type]++
		out = append(out, ruleSummary{
			ID:         r.ID,
			Type:       r.Template.Type,
			Priority:   r.Template.Priority,
			Title:      r.Template.Title,
			Confidence: r.Template.Confidence,
			Condition:  r.Condition,
		})
	}
	respond.OK(c, gin.H{
		"count":  len(out),
		"byType": byType,
		"rules":  out,
	})
}

func (h *Handler) preview(c *gin.Context) {
	filter, details := h.parseFilter(c)
	if len(details) > 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid suggestion filter", details)
		return
	}

	var req Context
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	items, err := h.Engine.Generate(&req)
	if err != nil {
		respond.Error(c, http.StatusUnprocessableEntity, "suggestion_error", "unable to generate suggestions", []map[string]string{
			{"field": "context", "issue": err.Error()},
		})
		return
	}
	items = filter.Apply(items)

	respond.OK(c, gin.H{
		"suggestions": items,
		"stats":       ComputeStats(items),
	})
}

func (h *Handler) loadContext(c *gin.Context, assetID string) (*Context, bool) {
	if assetID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "asset id is required", nil)
		return nil, false
	}
	userID := middleware.UserIDFromContext(c)
	sctx, err := h.Source.SuggestionContext(c.Request.Context(), userID, assetID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownAsset):
			respond.Error(c, http.StatusNotFound, "not_found", "asset not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load asset", nil)
		}
		return nil, false
	}
	return sctx, true
}

// parseFilter reads type, priority, minConfidence and limit. type and priority may repeat
// or carry comma-separated values.
func (h *Handler) parseFilter(c *gin.Context) (Filter, []map[string]string) {
	var details []map[string]string
	filter := Filter{Max: h.MaxSuggestions}

	for _, raw := range splitQuery(c.QueryArray("type")) {
		t, err := ParseType(raw)
		if err != nil {
			details = append(details, map[string]string{"field": "type", "issue": "unknown type " + raw})
			continue
		}
		filter.Types = append(filter.Types, t)
	}
	for _, raw := range splitQuery(c.QueryArray("priority")) {
		p, err := ParsePriority(raw)
		if err != nil {
			details = append(details, map[string]string{"field": "priority", "issue": "unknown priority " + raw})
			continue
		}
		filter.Priorities = append(filter.Priorities, p)
	}
	if v := strings.TrimSpace(c.Query("minConfidence")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < MinConfidence || n > MaxConfidence {
			details = append(details, map[string]string{"field": "minConfidence", "issue": "must be an integer between 0 and 100"})
		} else {
			filter.MinConfidence = n
		}
	}
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			details = append(details, map[string]string{"field": "limit", "issue": "must be a positive integer"})
		} else if n < filter.Max {
			filter.Max = n
		}
	}
	return filter, details
}

func splitQuery(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
