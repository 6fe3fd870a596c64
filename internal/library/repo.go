package library

import "context"

// Repo persists library items.
type Repo interface {
	Create(ctx context.Context, item Item) error
	Get(ctx context.Context, itemID string) (Item, error)
	List(ctx context.Context, workspaceID string, filter ListFilter) ([]Item, error)
	// GetMany returns the workspace's items among ids, keyed by id. Unknown ids are absent.
	GetMany(ctx context.Context, workspaceID string, ids []string) (map[string]Item, error)
	Update(ctx context.Context, item Item) error
	Delete(ctx context.Context, itemID string) error
	DeleteByWorkspace(ctx context.Context, workspaceID string) (int, error)
}
