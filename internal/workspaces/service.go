package workspaces

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"secknow-backend/internal/shared/telemetry"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 4000
)

// Dependent is told when a workspace or program it hangs off is deleted.
type Dependent interface {
	WorkspaceDeleted(ctx context.Context, workspaceID string) error
	ProgramDeleted(ctx context.Context, workspaceID, programID string) error
}

type Service struct {
	Repo       Repo
	dependents []Dependent
	now        func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Notify registers d for delete notifications.
func (s *Service) Notify(d Dependent) {
	if d != nil {
		s.dependents = append(s.dependents, d)
	}
}

type WorkspaceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// WorkspacePatch carries optional fields; nil leaves a field unchanged.
type WorkspacePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type ProgramInput struct {
	Name       string        `json:"name"`
	Platform   string        `json:"platform"`
	ScopeNotes string        `json:"scopeNotes"`
	Status     ProgramStatus `json:"status"`
}

type ProgramPatch struct {
	Name       *string        `json:"name"`
	Platform   *string        `json:"platform"`
	ScopeNotes *string        `json:"scopeNotes"`
	Status     *ProgramStatus `json:"status"`
}

func (s *Service) CreateWorkspace(ctx context.Context, ownerID string, in WorkspaceInput) (Workspace, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Workspace{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	name, err := cleanName(in.Name)
	if err != nil {
		return Workspace{}, err
	}
	description, err := cleanDescription(in.Description)
	if err != nil {
		return Workspace{}, err
	}
	now := s.now()
	ws := Workspace{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.CreateWorkspace(ctx, ws); err != nil {
		return Workspace{}, err
	}
	return ws, nil
}

// GetWorkspace returns ErrNotFound for workspaces owned by someone else.
func (s *Service) GetWorkspace(ctx context.Context, ownerID, workspaceID string) (Workspace, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return Workspace{}, ErrNotFound
	}
	return s.Repo.GetWorkspace(ctx, ownerID, workspaceID)
}

func (s *Service) ListWorkspaces(ctx context.Context, ownerID string) ([]Workspace, error) {
	return s.Repo.ListWorkspaces(ctx, ownerID)
}

func (s *Service) UpdateWorkspace(ctx context.Context, ownerID, workspaceID string, patch WorkspacePatch) (Workspace, error) {
	ws, err := s.GetWorkspace(ctx, ownerID, workspaceID)
	if err != nil {
		return Workspace{}, err
	}
	if patch.Name != nil {
		if ws.Name, err = cleanName(*patch.Name); err != nil {
			return Workspace{}, err
		}
	}
	if patch.Description != nil {
		if ws.Description, err = cleanDescription(*patch.Description); err != nil {
			return Workspace{}, err
		}
	}
	ws.UpdatedAt = s.now()
	if err := s.Repo.UpdateWorkspace(ctx, ws); err != nil {
		return Workspace{}, err
	}
	return ws, nil
}

func (s *Service) DeleteWorkspace(ctx context.Context, ownerID, workspaceID string) error {
	if _, err := s.GetWorkspace(ctx, ownerID, workspaceID); err != nil {
		return err
	}
	for _, d := range s.dependents {
		if err := d.WorkspaceDeleted(ctx, workspaceID); err != nil {
			return fmt.Errorf("release workspace dependents: %w", err)
		}
	}
	return s.Repo.DeleteWorkspace(ctx, ownerID, workspaceID)
}

// Authorize reports ErrNotFound unless ownerID owns workspaceID.
func (s *Service) Authorize(ctx context.Context, ownerID, workspaceID string) error {
	_, err := s.GetWorkspace(ctx, ownerID, workspaceID)
	return err
}

func (s *Service) CreateProgram(ctx context.Context, ownerID, workspaceID string, in ProgramInput) (Program, error) {
	if err := s.Authorize(ctx, ownerID, workspaceID); err != nil {
		return Program{}, err
	}
	name, err := cleanName(in.Name)
	if err != nil {
		return Program{}, err
	}
	status := in.Status
	if status == "" {
		status = ProgramActive
	}
	if !status.Valid() {
		return Program{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	now := s.now()
	p := Program{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        name,
		Platform:    strings.TrimSpace(in.Platform),
		ScopeNotes:  strings.TrimSpace(in.ScopeNotes),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.CreateProgram(ctx, p); err != nil {
		return Program{}, err
	}
	return p, nil
}

func (s *Service) ListPrograms(ctx context.Context, ownerID, workspaceID string) ([]Program, error) {
	if err := s.Authorize(ctx, ownerID, workspaceID); err != nil {
		return nil, err
	}
	return s.Repo.ListPrograms(ctx, workspaceID)
}

// GetProgram returns ErrNotFound when the program's workspace is not owned by ownerID.
func (s *Service) GetProgram(ctx context.Context, ownerID, programID string) (Program, error) {
	if strings.TrimSpace(programID) == "" {
		return Program{}, ErrNotFound
	}
	p, err := s.Repo.GetProgram(ctx, programID)
	if err != nil {
		return Program{}, err
	}
	if err := s.Authorize(ctx, ownerID, p.WorkspaceID); err != nil {
		return Program{}, err
	}
	return p, nil
}

func (s *Service) UpdateProgram(ctx context.Context, ownerID, programID string, patch ProgramPatch) (Program, error) {
	p, err := s.GetProgram(ctx, ownerID, programID)
	if err != nil {
		return Program{}, err
	}
	if patch.Name != nil {
		if p.Name, err = cleanName(*patch.Name); err != nil {
			return Program{}, err
		}
	}
	if patch.Platform != nil {
		p.Platform = strings.TrimSpace(*patch.Platform)
	}
	if patch.ScopeNotes != nil {
		p.ScopeNotes = strings.TrimSpace(*patch.ScopeNotes)
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return Program{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *patch.Status)
		}
		p.Status = *patch.Status
	}
	p.UpdatedAt = s.now()
	if err := s.Repo.UpdateProgram(ctx, p); err != nil {
		return Program{}, err
	}
	return p, nil
}

func (s *Service) DeleteProgram(ctx context.Context, ownerID, programID string) error {
	p, err := s.GetProgram(ctx, ownerID, programID)
	if err != nil {
		return err
	}
	for _, d := range s.dependents {
		if err := d.ProgramDeleted(ctx, p.WorkspaceID, p.ID); err != nil {
			return fmt.Errorf("release program dependents: %w", err)
		}
	}
	return s.Repo.DeleteProgram(ctx, programID)
}

// ClaimGuest hands a guest's workspaces to the signed-in user.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return 0, errors.New("guestUserID and authedUserID are required")
	}
	moved, err := s.Repo.ClaimGuest(ctx, guestUserID, authedUserID)
	if err != nil {
		return 0, err
	}
	telemetry.Info("workspaces.claimed", map[string]any{
		"guest_user_id": guestUserID,
		"user_id":       authedUserID,
		"workspaces":    moved,
	})
	return moved, nil
}

func cleanName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > maxNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxNameLength)
	}
	return name, nil
}

func cleanDescription(raw string) (string, error) {
	description := strings.TrimSpace(raw)
	if len(description) > maxDescriptionLength {
		return "", fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, maxDescriptionLength)
	}
	return description, nil
}
