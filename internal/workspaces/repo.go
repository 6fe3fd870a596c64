package workspaces

import "context"

// Repo persists workspaces and their programs.
type Repo interface {
	CreateWorkspace(ctx context.Context, ws Workspace) error
	GetWorkspace(ctx context.Context, ownerID, workspaceID string) (Workspace, error)
	ListWorkspaces(ctx context.Context, ownerID string) ([]Workspace, error)
	UpdateWorkspace(ctx context.Context, ws Workspace) error
	DeleteWorkspace(ctx context.Context, ownerID, workspaceID string) error

	CreateProgram(ctx context.Context, p Program) error
	GetProgram(ctx context.Context, programID string) (Program, error)
	ListPrograms(ctx context.Context, workspaceID string) ([]Program, error)
	UpdateProgram(ctx context.Context, p Program) error
	DeleteProgram(ctx context.Context, programID string) error

	// ClaimGuest moves every workspace owned by guestUserID to authedUserID.
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}
