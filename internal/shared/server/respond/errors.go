package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/shared/telemetry"
)

// ErrorBody is the payload under "error" in every failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs the failure and aborts with {"error": {code, message, details}}. Client errors
// log at warn, server errors at error.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	for key, field := range map[string]string{
		"userId":      "user_id",
		"workspaceId": "workspace_id",
		"assetId":     "asset_id",
	} {
		if v := c.GetString(key); v != "" {
			fields[field] = v
		}
	}
	if isGuest, ok := c.Get("isGuest"); ok {
		fields["is_guest"] = isGuest
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
