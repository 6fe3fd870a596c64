package library

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[string]Item)}
}

func (r *MemoryRepo) Create(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, itemID string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[itemID]
	if !ok {
		return Item{}, ErrNotFound
	}
	return cloneItem(item), nil
}

// List returns matching items ordered by kind then name.
func (r *MemoryRepo) List(ctx context.Context, workspaceID string, filter ListFilter) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tag := strings.ToLower(strings.TrimSpace(filter.Tag))
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	r.mu.RLock()
	out := make([]Item, 0)
	for _, item := range r.items {
		if item.WorkspaceID != workspaceID {
			continue
		}
		if filter.Kind != "" && item.Kind != filter.Kind {
			continue
		}
		if tag != "" && !hasTag(item.Tags, tag) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Name), query) &&
			!strings.Contains(strings.ToLower(item.Description), query) {
			continue
		}
		out = append(out, cloneItem(item))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) GetMany(ctx context.Context, workspaceID string, ids []string) (map[string]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Item, len(ids))
	for _, id := range ids {
		item, ok := r.items[id]
		if ok && item.WorkspaceID == workspaceID {
			out[id] = cloneItem(item)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Update(ctx context.Context, item Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return ErrNotFound
	}
	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[itemID]; !ok {
		return ErrNotFound
	}
	delete(r.items, itemID)
	return nil
}

func (r *MemoryRepo) DeleteByWorkspace(ctx context.Context, workspaceID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, item := range r.items {
		if item.WorkspaceID == workspaceID {
			delete(r.items, id)
			removed++
		}
	}
	return removed, nil
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func cloneItem(item Item) Item {
	item.Tags = append([]string{}, item.Tags...)
	return item
}

var _ Repo = (*MemoryRepo)(nil)
