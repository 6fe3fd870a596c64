package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestStateStoreConsumesOnce(t *testing.T) {
	store := newStateStore()
	store.put("abc", time.Now().Add(time.Minute))

	if !store.consume("abc") {
		t.Fatalf("expected first consume to succeed")
	}
	if store.consume("abc") {
		t.Fatalf("expected second consume to fail")
	}
}

func TestStateStoreRejectsExpired(t *testing.T) {
	store := newStateStore()
	store.put("old", time.Now().Add(-time.Second))
	if store.consume("old") {
		t.Fatalf("expected expired state to be rejected")
	}

	store.put("stale", time.Now().Add(-time.Second))
	store.put("fresh", time.Now().Add(time.Minute))
	if _, ok := store.items["stale"]; ok {
		t.Fatalf("expected expired state to be pruned")
	}
}

func TestAppendToken(t *testing.T) {
	got, err := appendToken("https://app.example.com/auth?next=%2Fassets", "tok")
	if err != nil {
		t.Fatalf("appendToken: %v", err)
	}
	if !strings.Contains(got, "token=tok") || !strings.Contains(got, "next=%2Fassets") {
		t.Fatalf("unexpected url %q", got)
	}
	if _, err := appendToken("", "tok"); err == nil {
		t.Fatalf("expected error for empty redirect")
	}
}

func TestStartRequiresConfiguration(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewGoogleService("", "", "", "", nil).RegisterRoutes(r.Group("/api/v1"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestStartRedirectsWithState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc := NewGoogleService("client", "secret", "https://api.example.com/cb", "https://app.example.com", nil)
	svc.RegisterRoutes(r.Group("/api/v1"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "state=") {
		t.Fatalf("expected state in redirect, got %q", loc)
	}
	if len(svc.stateStore.items) != 1 {
		t.Fatalf("expected one pending state, got %d", len(svc.stateStore.items))
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewGoogleService("client", "secret", "https://api.example.com/cb", "https://app.example.com", nil).RegisterRoutes(r.Group("/api/v1"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=nope&code=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
