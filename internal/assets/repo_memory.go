package assets

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu     sync.RWMutex
	assets map[string]Asset
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{assets: make(map[string]Asset)}
}

func (r *MemoryRepo) Create(ctx context.Context, a Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[a.ID] = cloneAsset(a)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, assetID string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[assetID]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return cloneAsset(a), nil
}

// List returns assets ordered by name.
func (r *MemoryRepo) List(ctx context.Context, workspaceID, programID string) ([]Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.collect(func(a Asset) bool {
		return a.WorkspaceID == workspaceID && (programID == "" || a.ProgramID == programID)
	})
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, a Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[a.ID]; !ok {
		return ErrNotFound
	}
	r.assets[a.ID] = cloneAsset(a)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, assetID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[assetID]; !ok {
		return ErrNotFound
	}
	delete(r.assets, assetID)
	return nil
}

func (r *MemoryRepo) DeleteByWorkspace(ctx context.Context, workspaceID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := make([]string, 0)
	for id, a := range r.assets {
		if a.WorkspaceID == workspaceID {
			delete(r.assets, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed, nil
}

func (r *MemoryRepo) ClearProgram(ctx context.Context, programID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.assets {
		if a.ProgramID == programID {
			a.ProgramID = ""
			r.assets[id] = a
		}
	}
	return nil
}

func (r *MemoryRepo) ListReferencing(ctx context.Context, workspaceID, itemID string) ([]Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.collect(func(a Asset) bool {
		return a.WorkspaceID == workspaceID && a.references(itemID)
	})
	return out, nil
}

func (r *MemoryRepo) collect(keep func(Asset) bool) []Asset {
	r.mu.RLock()
	out := make([]Asset, 0)
	for _, a := range r.assets {
		if keep(a) {
			out = append(out, cloneAsset(a))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

var _ Repo = (*MemoryRepo)(nil)
