package workspaces

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu         sync.RWMutex
	workspaces map[string]Workspace
	programs   map[string]Program
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		workspaces: make(map[string]Workspace),
		programs:   make(map[string]Program),
	}
}

func (r *MemoryRepo) CreateWorkspace(ctx context.Context, ws Workspace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workspaces[ws.ID] = ws
	return nil
}

func (r *MemoryRepo) GetWorkspace(ctx context.Context, ownerID, workspaceID string) (Workspace, error) {
	if err := ctx.Err(); err != nil {
		return Workspace{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.workspaces[workspaceID]
	if !ok || ws.OwnerID != ownerID {
		return Workspace{}, ErrNotFound
	}
	return ws, nil
}

// ListWorkspaces returns the owner's workspaces, newest first.
func (r *MemoryRepo) ListWorkspaces(ctx context.Context, ownerID string) ([]Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Workspace, 0)
	for _, ws := range r.workspaces {
		if ws.OwnerID == ownerID {
			out = append(out, ws)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) UpdateWorkspace(ctx context.Context, ws Workspace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.workspaces[ws.ID]
	if !ok || existing.OwnerID != ws.OwnerID {
		return ErrNotFound
	}
	r.workspaces[ws.ID] = ws
	return nil
}

// DeleteWorkspace removes the workspace and its programs.
func (r *MemoryRepo) DeleteWorkspace(ctx context.Context, ownerID, workspaceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[workspaceID]
	if !ok || ws.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.workspaces, workspaceID)
	for id, p := range r.programs {
		if p.WorkspaceID == workspaceID {
			delete(r.programs, id)
		}
	}
	return nil
}

func (r *MemoryRepo) CreateProgram(ctx context.Context, p Program) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workspaces[p.WorkspaceID]; !ok {
		return ErrNotFound
	}
	r.programs[p.ID] = p
	return nil
}

func (r *MemoryRepo) GetProgram(ctx context.Context, programID string) (Program, error) {
	if err := ctx.Err(); err != nil {
		return Program{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.programs[programID]
	if !ok {
		return Program{}, ErrNotFound
	}
	return p, nil
}

// ListPrograms returns the workspace's programs ordered by name.
func (r *MemoryRepo) ListPrograms(ctx context.Context, workspaceID string) ([]Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Program, 0)
	for _, p := range r.programs {
		if p.WorkspaceID == workspaceID {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) UpdateProgram(ctx context.Context, p Program) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.programs[p.ID]; !ok {
		return ErrNotFound
	}
	r.programs[p.ID] = p
	return nil
}

func (r *MemoryRepo) DeleteProgram(ctx context.Context, programID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.programs[programID]; !ok {
		return ErrNotFound
	}
	delete(r.programs, programID)
	return nil
}

func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	moved := 0
	for id, ws := range r.workspaces {
		if ws.OwnerID == guestUserID {
			ws.OwnerID = authedUserID
			r.workspaces[id] = ws
			moved++
		}
	}
	return moved, nil
}

var _ Repo = (*MemoryRepo)(nil)
