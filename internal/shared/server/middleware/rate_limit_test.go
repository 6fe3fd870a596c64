package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)}
}

// limitedRouter throttles /api/v1/* at one request per second. X-Test-User stands in for
// the auth middleware and X-Test-Group selects the rate limit group.
func limitedRouter(clock *fakeClock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user := c.GetHeader("X-Test-User"); user != "" {
			c.Set("userId", user)
		}
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		GroupFor: func(c *gin.Context) string { return c.GetHeader("X-Test-Group") },
		Limiter:  NewRateLimiter(clock.Now),
		Rules: map[string]RateLimitRule{
			defaultRateLimitGroup: {Rate: 1, Burst: 1},
		},
	}))
	r.GET("/api/v1/workspaces", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func limitedRequest(r http.Handler, user, group, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspaces", nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	if group != "" {
		req.Header.Set("X-Test-Group", group)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitKeysByPrincipal(t *testing.T) {
	r := limitedRouter(newFakeClock())

	if rec := limitedRequest(r, "guest:a", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("first request for guest:a expected 200, got %d", rec.Code)
	}
	if rec := limitedRequest(r, "guest:a", "", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request for guest:a expected 429, got %d", rec.Code)
	}
	if rec := limitedRequest(r, "google:b", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("google:b has its own bucket, got %d", rec.Code)
	}
}

func TestRateLimitFallsBackToClientIP(t *testing.T) {
	r := limitedRouter(newFakeClock())

	if rec := limitedRequest(r, "", "", "10.0.0.1:5000"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := limitedRequest(r, "", "", "10.0.0.1:5001"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("same client IP expected 429, got %d", rec.Code)
	}
	if rec := limitedRequest(r, "", "", "10.0.0.2:5000"); rec.Code != http.StatusOK {
		t.Fatalf("other client IP expected 200, got %d", rec.Code)
	}
}

func TestRateLimitUnlistedGroupPasses(t *testing.T) {
	r := limitedRouter(newFakeClock())

	for i := 0; i < 5; i++ {
		if rec := limitedRequest(r, "guest:a", "EXPORT", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d in group without rule expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimitRefillsWithClock(t *testing.T) {
	clock := newFakeClock()
	r := limitedRouter(clock)

	limitedRequest(r, "guest:a", "", "")
	if rec := limitedRequest(r, "guest:a", "", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 before refill, got %d", rec.Code)
	}
	clock.now = clock.now.Add(time.Second)
	if rec := limitedRequest(r, "guest:a", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after refill, got %d", rec.Code)
	}
}

func TestRateLimitRejectionUsesErrorEnvelope(t *testing.T) {
	r := limitedRouter(newFakeClock())

	limitedRequest(r, "guest:a", "", "")
	rec := limitedRequest(r, "guest:a", "", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After 1, got %q", got)
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Group        string `json:"group"`
				RetryAfterMs int64  `json:"retryAfterMs"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error.Code != "rate_limited" || body.Error.Details.Group != defaultRateLimitGroup {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if body.Error.Details.RetryAfterMs != 1000 {
		t.Fatalf("expected retryAfterMs 1000, got %d", body.Error.Details.RetryAfterMs)
	}
}
