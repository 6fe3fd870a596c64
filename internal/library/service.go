package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"secknow-backend/internal/shared/telemetry"
	"secknow-backend/internal/suggestions"
	"secknow-backend/internal/workspaces"
)

const (
	maxNameLength    = 200
	maxContentLength = 64 << 10
	maxTags          = 32
)

// Authorizer checks workspace ownership. *workspaces.Service implements it.
type Authorizer interface {
	Authorize(ctx context.Context, ownerID, workspaceID string) error
}

// ItemWatcher is told after an item is renamed, retagged or deleted.
type ItemWatcher interface {
	LibraryItemChanged(ctx context.Context, item Item, deleted bool) error
}

type Service struct {
	Repo       Repo
	Workspaces Authorizer
	watchers   []ItemWatcher
	now        func() time.Time
}

func NewService(repo Repo, ws Authorizer) *Service {
	return &Service{Repo: repo, Workspaces: ws, now: func() time.Time { return time.Now().UTC() }}
}

// Watch registers w for item change notifications.
func (s *Service) Watch(w ItemWatcher) {
	if w != nil {
		s.watchers = append(s.watchers, w)
	}
}

type ItemInput struct {
	Kind        string   `json:"kind"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Content     string   `json:"content"`
}

// ItemPatch carries optional fields. Kind cannot change after creation.
type ItemPatch struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Tags        *[]string `json:"tags"`
	Content     *string   `json:"content"`
}

func (s *Service) Create(ctx context.Context, ownerID, workspaceID string, in ItemInput) (Item, error) {
	if err := s.authorize(ctx, ownerID, workspaceID); err != nil {
		return Item{}, err
	}
	kind, err := suggestions.ParseType(in.Kind)
	if err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	item := Item{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Kind:        kind,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Content:     in.Content,
	}
	if item.Name, err = cleanName(in.Name); err != nil {
		return Item{}, err
	}
	if item.Tags, err = cleanTags(in.Tags); err != nil {
		return Item{}, err
	}
	if len(item.Content) > maxContentLength {
		return Item{}, fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidInput, maxContentLength)
	}
	now := s.now()
	item.CreatedAt = now
	item.UpdatedAt = now
	if err := s.Repo.Create(ctx, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Get returns ErrNotFound when the item's workspace is not owned by ownerID.
func (s *Service) Get(ctx context.Context, ownerID, itemID string) (Item, error) {
	if strings.TrimSpace(itemID) == "" {
		return Item{}, ErrNotFound
	}
	item, err := s.Repo.Get(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if err := s.authorize(ctx, ownerID, item.WorkspaceID); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, ownerID, workspaceID string, filter ListFilter) ([]Item, error) {
	if err := s.authorize(ctx, ownerID, workspaceID); err != nil {
		return nil, err
	}
	return s.Repo.List(ctx, workspaceID, filter)
}

// Resolve returns the workspace's items among ids without an ownership check; callers have
// already authorized the workspace.
func (s *Service) Resolve(ctx context.Context, workspaceID string, ids []string) (map[string]Item, error) {
	return s.Repo.GetMany(ctx, workspaceID, ids)
}

func (s *Service) Update(ctx context.Context, ownerID, itemID string, patch ItemPatch) (Item, error) {
	item, err := s.Get(ctx, ownerID, itemID)
	if err != nil {
		return Item{}, err
	}
	if patch.Name != nil {
		if item.Name, err = cleanName(*patch.Name); err != nil {
			return Item{}, err
		}
	}
	if patch.Description != nil {
		item.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		item.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Tags != nil {
		if item.Tags, err = cleanTags(*patch.Tags); err != nil {
			return Item{}, err
		}
	}
	if patch.Content != nil {
		if len(*patch.Content) > maxContentLength {
			return Item{}, fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidInput, maxContentLength)
		}
		item.Content = *patch.Content
	}
	item.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, item); err != nil {
		return Item{}, err
	}
	s.notify(ctx, item, false)
	return item, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, itemID string) error {
	item, err := s.Get(ctx, ownerID, itemID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, itemID); err != nil {
		return err
	}
	s.notify(ctx, item, true)
	return nil
}

// WorkspaceDeleted drops every item in the workspace.
func (s *Service) WorkspaceDeleted(ctx context.Context, workspaceID string) error {
	_, err := s.Repo.DeleteByWorkspace(ctx, workspaceID)
	return err
}

// ProgramDeleted is a no-op; library items are not program scoped.
func (s *Service) ProgramDeleted(context.Context, string, string) error {
	return nil
}

func (s *Service) authorize(ctx context.Context, ownerID, workspaceID string) error {
	if s.Workspaces == nil {
		return errors.New("library service not configured")
	}
	if err := s.Workspaces.Authorize(ctx, ownerID, workspaceID); err != nil {
		if errors.Is(err, workspaces.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// notify runs after the change is persisted. Watcher errors are logged, not returned.
func (s *Service) notify(ctx context.Context, item Item, deleted bool) {
	for _, w := range s.watchers {
		if err := w.LibraryItemChanged(ctx, item, deleted); err != nil {
			telemetry.Warn("library.watcher_failed", map[string]any{
				"item_id":      item.ID,
				"workspace_id": item.WorkspaceID,
				"deleted":      deleted,
				"error":        err.Error(),
			})
		}
	}
}

// NormalizeTags lower-cases, trims and de-duplicates tags, keeping first occurrence order.
func NormalizeTags(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, t := range raw {
		tag := strings.ToLower(strings.TrimSpace(t))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func cleanTags(raw []string) ([]string, error) {
	tags := NormalizeTags(raw)
	if len(tags) > maxTags {
		return nil, fmt.Errorf("%w: at most %d tags", ErrInvalidInput, maxTags)
	}
	return tags, nil
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
