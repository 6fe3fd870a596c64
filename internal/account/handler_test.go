package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/workspaces"
)

func newRouter(svc *Service, userID string, guest bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", guest)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func claim(router http.Handler, guestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	if guestID != "" {
		req.Header.Set("X-Guest-Id", guestID)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestClaimGuestMigratesWorkspaces(t *testing.T) {
	wsSvc := workspaces.NewService(workspaces.NewMemoryRepo())
	router := newRouter(NewService(wsSvc), "user-1", false)

	guestID := "11111111-1111-1111-1111-111111111111"
	if _, err := wsSvc.CreateWorkspace(context.Background(), "guest:"+guestID, workspaces.WorkspaceInput{Name: "Recon"}); err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}

	resp := claim(router, guestID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var result ClaimResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MigratedWorkspaces != 1 {
		t.Fatalf("expected 1 migrated workspace, got %d", result.MigratedWorkspaces)
	}

	owned, err := wsSvc.ListWorkspaces(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListWorkspaces: %v", err)
	}
	if len(owned) != 1 {
		t.Fatalf("expected 1 workspace for user-1, got %d", len(owned))
	}
}

func TestClaimGuestIdempotentAndIsolated(t *testing.T) {
	wsSvc := workspaces.NewService(workspaces.NewMemoryRepo())
	router := newRouter(NewService(wsSvc), "user-1", false)

	guestID := "22222222-2222-2222-2222-222222222222"
	if _, err := wsSvc.CreateWorkspace(context.Background(), "guest:"+guestID, workspaces.WorkspaceInput{Name: "Recon"}); err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}

	if resp := claim(router, guestID); resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	resp := claim(router, guestID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 on idempotent call, got %d", resp.Code)
	}
	var result ClaimResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MigratedWorkspaces != 0 {
		t.Fatalf("expected nothing left to migrate, got %d", result.MigratedWorkspaces)
	}

	other, err := wsSvc.ListWorkspaces(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("ListWorkspaces: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no workspaces for other user, got %d", len(other))
	}
}

func TestClaimGuestValidation(t *testing.T) {
	wsSvc := workspaces.NewService(workspaces.NewMemoryRepo())

	if resp := claim(newRouter(NewService(wsSvc), "guest:abc", true), "11111111-1111-1111-1111-111111111111"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for guest caller, got %d", resp.Code)
	}
	router := newRouter(NewService(wsSvc), "user-1", false)
	if resp := claim(router, ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without header, got %d", resp.Code)
	}
	if resp := claim(router, "not-a-uuid"); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid guest id, got %d", resp.Code)
	}
}
