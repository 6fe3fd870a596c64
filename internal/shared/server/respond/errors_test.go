package respond

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

func captureStdout(t *testing.T, fn func()) []map[string]any {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read log output: %v", err)
	}
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func errorRouter(status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/assets/:id", func(c *gin.Context) {
		c.Set("userId", "guest:abc")
		c.Set("assetId", c.Param("id"))
		Error(c, status, "not_found", "asset not found", []map[string]string{{"field": "id", "issue": "unknown"}})
	})
	return r
}

func TestErrorWritesEnvelope(t *testing.T) {
	var rec *httptest.ResponseRecorder
	captureStdout(t, func() {
		rec = httptest.NewRecorder()
		errorRouter(http.StatusNotFound).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/a1", nil))
	})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "not_found" || body.Error.Message != "asset not found" || body.Error.Details == nil {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestErrorLogLevelFollowsStatus(t *testing.T) {
	cases := map[int]string{
		http.StatusNotFound:            "WARN",
		http.StatusInternalServerError: "ERROR",
	}
	for status, level := range cases {
		entries := captureStdout(t, func() {
			errorRouter(status).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assets/a1", nil))
		})
		if len(entries) != 1 {
			t.Fatalf("status %d: expected one log line, got %d", status, len(entries))
		}
		entry := entries[0]
		if entry["level"] != level || entry["msg"] != "http.error" {
			t.Fatalf("status %d: unexpected entry %v", status, entry)
		}
		if entry["asset_id"] != "a1" || entry["user_id"] != "guest:abc" {
			t.Fatalf("status %d: missing identity fields %v", status, entry)
		}
		if _, ok := entry["workspace_id"]; ok {
			t.Fatalf("status %d: unset workspace_id should be omitted", status)
		}
	}
}
