package account

import (
	"context"
	"errors"
	"strings"
)

// GuestClaimer moves guest-owned workspaces to a user. *workspaces.Service implements it.
// Programs, assets and library items follow their workspace.
type GuestClaimer interface {
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

type Service struct {
	Workspaces GuestClaimer
}

type ClaimResult struct {
	MigratedWorkspaces int `json:"migratedWorkspaces"`
}

func NewService(ws GuestClaimer) *Service {
	return &Service{Workspaces: ws}
}

func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}
	if s.Workspaces == nil {
		return ClaimResult{}, errors.New("account service not configured")
	}
	moved, err := s.Workspaces.ClaimGuest(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedWorkspaces: moved}, nil
}
