package users

import (
	"context"
	"errors"
	"strings"

	"secknow-backend/internal/shared/telemetry"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth records the identity returned by the OAuth provider and stamps the login.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	user.ID = strings.TrimSpace(user.ID)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID == "" || user.Email == "" {
		return errors.New("user id and email are required")
	}
	if strings.HasPrefix(user.ID, "guest:") {
		return errors.New("guest identities are not persisted")
	}
	if err := s.Repo.Upsert(ctx, user); err != nil {
		return err
	}
	telemetry.Info("users.login", map[string]any{"user_id": user.ID})
	return nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}
