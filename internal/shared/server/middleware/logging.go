package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/shared/metrics"
	"secknow-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		reqID := RequestIDFromContext(c)

		userID, _ := c.Get(userIDKey)
		isGuest, _ := c.Get("isGuest")
		workspaceID, _ := c.Get("workspaceId")
		assetID, _ := c.Get("assetId")
		suggestionState := ""
		if raw, ok := c.Get("suggestionState"); ok {
			if s, ok := raw.(string); ok {
				suggestionState = s
			}
		}
		metrics.IncHTTPRequest(c.Request.Method, status)

		telemetry.Info("request.complete", map[string]any{
			"request_id":       reqID,
			"method":           c.Request.Method,
			"path":             c.Request.URL.Path,
			"status":           status,
			"suggestion_state": suggestionState,
			"duration_ms":      float64(latency.Microseconds()) / 1000.0,
			"user_id":          userID,
			"workspace_id":     workspaceID,
			"asset_id":         assetID,
			"is_guest":         isGuest,
			"client_ip":        c.ClientIP(),
			"user_agent":       c.Request.UserAgent(),
		})
	}
}
