package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/shared/server/respond"
	"secknow-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 "internal" error carrying the request id. If
// the handler already started writing, the response is only aborted.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			reqID := RequestIDFromContext(c)
			telemetry.Error("http.panic", map[string]any{
				"request_id":   reqID,
				"user_id":      UserIDFromContext(c),
				"workspace_id": c.GetString("workspaceId"),
				"asset_id":     c.GetString("assetId"),
				"panic":        rec,
				"stack":        string(debug.Stack()),
				"route":        c.FullPath(),
				"method":       c.Request.Method,
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error",
				map[string]string{"requestId": reqID})
		}()
		c.Next()
	}
}
