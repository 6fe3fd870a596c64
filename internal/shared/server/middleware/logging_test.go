package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestID(), Auth("dev"), Logging())
	router.GET("/api/v1/test", func(c *gin.Context) {
		c.Set("workspaceId", "ws-1")
		c.Set("assetId", "asset-1")
		c.Set("suggestionState", "ready")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = origStdout
	}()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
	req.Header.Set("X-Guest-Id", "guest1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	_ = w.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read log output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		t.Fatalf("expected log output")
	}
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}

	required := []string{"request_id", "user_id", "workspace_id", "asset_id", "duration_ms", "status", "suggestion_state"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["user_id"] != "guest:guest1" {
		t.Fatalf("unexpected user_id: %v", payload["user_id"])
	}
	if payload["workspace_id"] != "ws-1" {
		t.Fatalf("unexpected workspace_id: %v", payload["workspace_id"])
	}
	if payload["asset_id"] != "asset-1" {
		t.Fatalf("unexpected asset_id: %v", payload["asset_id"])
	}
	if payload["suggestion_state"] != "ready" {
		t.Fatalf("unexpected suggestion_state: %v", payload["suggestion_state"])
	}
}
