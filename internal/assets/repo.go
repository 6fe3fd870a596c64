package assets

import "context"

// Repo persists assets.
type Repo interface {
	Create(ctx context.Context, a Asset) error
	Get(ctx context.Context, assetID string) (Asset, error)
	// List returns the workspace's assets; a non-empty programID restricts to that program.
	List(ctx context.Context, workspaceID, programID string) ([]Asset, error)
	Update(ctx context.Context, a Asset) error
	Delete(ctx context.Context, assetID string) error
	// DeleteByWorkspace removes every asset in the workspace and returns their ids.
	DeleteByWorkspace(ctx context.Context, workspaceID string) ([]string, error)
	ClearProgram(ctx context.Context, programID string) error
	// ListReferencing returns the workspace's assets associated with itemID.
	ListReferencing(ctx context.Context, workspaceID, itemID string) ([]Asset, error)
}
