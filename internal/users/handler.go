package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/shared/server/middleware"
	"secknow-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// me reports who the caller is. Guests get their principal back without a profile.
func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if middleware.IsGuest(c) {
		respond.OK(c, gin.H{"id": userID, "guest": true})
		return
	}
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Token is valid but the user row is gone; fall back to the claims.
			respond.OK(c, gin.H{
				"id":         userID,
				"guest":      false,
				"email":      middleware.UserEmailFromContext(c),
				"fullName":   middleware.UserNameFromContext(c),
				"pictureUrl": middleware.UserPictureFromContext(c),
			})
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
		return
	}
	respond.OK(c, gin.H{
		"id":          user.ID,
		"guest":       false,
		"email":       user.Email,
		"fullName":    user.FullName,
		"pictureUrl":  user.PictureURL,
		"lastLoginAt": user.LastLoginAt,
	})
}
