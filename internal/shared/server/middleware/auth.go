package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/shared/auth"
	"secknow-backend/internal/shared/server/respond"
)

const (
	userIDKey      = "userId"
	userEmailKey   = "userEmail"
	userNameKey    = "userName"
	userPictureKey = "userPicture"
	isGuestKey     = "isGuest"

	guestPrefix = "guest:"
)

// publicPrefixes bypass identity checks entirely.
var publicPrefixes = []string{
	"/api/v1/auth/google/",
	"/api/v1/health",
	"/metrics",
}

// Auth validates JWTs or guest headers and stores identity in context.
func Auth(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(userIDKey, claims.Sub)
			if claims.Email != "" {
				c.Set(userEmailKey, claims.Email)
			}
			if claims.Name != "" {
				c.Set(userNameKey, claims.Name)
			}
			if claims.Picture != "" {
				c.Set(userPictureKey, claims.Picture)
			}
			c.Set(isGuestKey, false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(userIDKey, guestPrefix+guestID)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// GuestUserID returns the principal a guest header maps to.
func GuestUserID(guestID string) string {
	return guestPrefix + strings.TrimSpace(guestID)
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringFromContext(c, userEmailKey)
}

// UserNameFromContext fetches the user name set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return stringFromContext(c, userNameKey)
}

// UserPictureFromContext fetches the user picture set by the auth middleware.
func UserPictureFromContext(c *gin.Context) string {
	return stringFromContext(c, userPictureKey)
}

// IsGuest reports whether the request is authenticated only by a guest header.
func IsGuest(c *gin.Context) bool {
	if c == nil {
		return false
	}
	val, ok := c.Get(isGuestKey)
	if !ok {
		return false
	}
	guest, _ := val.(bool)
	return guest
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
