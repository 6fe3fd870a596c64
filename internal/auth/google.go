package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "secknow-backend/internal/shared/auth"
	"secknow-backend/internal/shared/server/respond"
	"secknow-backend/internal/shared/telemetry"
	"secknow-backend/internal/users"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// UserStore persists identities after a successful login. *users.Service implements it.
type UserStore interface {
	UpsertFromAuth(ctx context.Context, user users.User) error
}

// GoogleService handles Google OAuth flows.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	stateTTL    time.Duration
	stateStore  *stateStore
	users       UserStore
}

// NewGoogleService builds a GoogleService. store may be nil, in which case logins are not recorded.
func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, store UserStore) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect: uiRedirect,
		stateTTL:   5 * time.Minute,
		stateStore: newStateStore(),
		users:      store,
	}
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) configured() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != ""
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	s.stateStore.put(state, time.Now().Add(s.stateTTL))

	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	if !s.stateStore.consume(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	info, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		telemetry.Warn("auth.userinfo_failed", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}
	if info.Sub == "" {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "invalid user profile", nil)
		return
	}

	userID := "google:" + info.Sub
	if s.users != nil {
		if err := s.users.UpsertFromAuth(ctx, users.User{
			ID:         userID,
			Email:      info.Email,
			FullName:   info.Name,
			GivenName:  info.GivenName,
			FamilyName: info.FamilyName,
			PictureURL: info.Picture,
		}); err != nil {
			telemetry.Error("auth.user_upsert_failed", map[string]any{"user_id": userID, "error": err.Error()})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to record user", nil)
			return
		}
	}

	jwt, err := sharedauth.SignJWT(sharedauth.Claims{
		Sub:     userID,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	redirectURL, err := appendToken(s.uiRedirect, jwt)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}

	c.Redirect(http.StatusFound, redirectURL)
}

type googleUserInfo struct {
	Sub        string `json:"sub"`
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get(userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}

	// v2 userinfo returns "id" rather than "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

type stateStore struct {
	items map[string]time.Time
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

// put prunes expired states before storing the new one.
func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, v := range s.items {
		if now.After(v) {
			delete(s.items, k)
		}
	}
	s.items[state] = exp
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	if ok {
		delete(s.items, state)
	}
	s.mu.Unlock()
	return ok && !time.Now().After(exp)
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
