package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"secknow-backend/internal/library"
	"secknow-backend/internal/shared/telemetry"
	"secknow-backend/internal/suggestions"
	"secknow-backend/internal/workspaces"
)

const (
	maxNameLength          = 200
	maxTargetLength        = 2048
	maxAssociationsPerKind = 100
	maxTags                = 32
)

// WorkspaceAccess is the slice of *workspaces.Service assets depend on.
type WorkspaceAccess interface {
	Authorize(ctx context.Context, ownerID, workspaceID string) error
	GetProgram(ctx context.Context, ownerID, programID string) (workspaces.Program, error)
}

// ItemResolver looks up library items. *library.Service implements it.
type ItemResolver interface {
	Resolve(ctx context.Context, workspaceID string, ids []string) (map[string]library.Item, error)
}

// ContextSink receives rebuilt suggestion contexts. *suggestions.Hub implements it.
type ContextSink interface {
	Update(assetID string, c *suggestions.Context)
	Remove(assetID string)
}

type Service struct {
	Repo       Repo
	Workspaces WorkspaceAccess
	Library    ItemResolver
	Sink       ContextSink
	now        func() time.Time
}

func NewService(repo Repo, ws WorkspaceAccess, lib ItemResolver, sink ContextSink) *Service {
	return &Service{
		Repo:       repo,
		Workspaces: ws,
		Library:    lib,
		Sink:       sink,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type AssetInput struct {
	Name      string    `json:"name"`
	Type      AssetType `json:"type"`
	Target    string    `json:"target"`
	ProgramID string    `json:"programId"`
	Associations
}

// AssetPatch carries optional fields. An empty ProgramID detaches the asset from its program.
type AssetPatch struct {
	Name      *string    `json:"name"`
	Type      *AssetType `json:"type"`
	Target    *string    `json:"target"`
	ProgramID *string    `json:"programId"`
}

// Associations replaces an asset's attribute links and tags wholesale.
type Associations struct {
	TechnologyIDs    []string `json:"technologyIds"`
	FunctionalityIDs []string `json:"functionalityIds"`
	BehaviorIDs      []string `json:"behaviorIds"`
	Tags             []string `json:"tags"`
}

func (s *Service) Create(ctx context.Context, ownerID, workspaceID string, in AssetInput) (View, error) {
	if err := s.authorize(ctx, ownerID, workspaceID); err != nil {
		return View{}, err
	}
	a := Asset{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Type:        in.Type,
	}
	if a.Type == "" {
		a.Type = TypeWeb
	}
	if !a.Type.Valid() {
		return View{}, fmt.Errorf("%w: unknown asset type %q", ErrInvalidInput, in.Type)
	}
	var err error
	if a.Name, err = cleanName(in.Name); err != nil {
		return View{}, err
	}
	if a.Target, err = cleanTarget(in.Target); err != nil {
		return View{}, err
	}
	if a.ProgramID, err = s.checkProgram(ctx, ownerID, workspaceID, in.ProgramID); err != nil {
		return View{}, err
	}
	items, err := s.applyAssociations(ctx, &a, in.Associations)
	if err != nil {
		return View{}, err
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.Repo.Create(ctx, a); err != nil {
		return View{}, err
	}
	view := buildView(a, items)
	s.push(view)
	return view, nil
}

func (s *Service) Get(ctx context.Context, ownerID, assetID string) (View, error) {
	a, err := s.load(ctx, ownerID, assetID)
	if err != nil {
		return View{}, err
	}
	return s.view(ctx, a)
}

func (s *Service) List(ctx context.Context, ownerID, workspaceID, programID string) ([]Asset, error) {
	if err := s.authorize(ctx, ownerID, workspaceID); err != nil {
		return nil, err
	}
	return s.Repo.List(ctx, workspaceID, strings.TrimSpace(programID))
}

func (s *Service) Update(ctx context.Context, ownerID, assetID string, patch AssetPatch) (View, error) {
	a, err := s.load(ctx, ownerID, assetID)
	if err != nil {
		return View{}, err
	}
	if patch.Name != nil {
		if a.Name, err = cleanName(*patch.Name); err != nil {
			return View{}, err
		}
	}
	if patch.Type != nil {
		if !patch.Type.Valid() {
			return View{}, fmt.Errorf("%w: unknown asset type %q", ErrInvalidInput, *patch.Type)
		}
		a.Type = *patch.Type
	}
	if patch.Target != nil {
		if a.Target, err = cleanTarget(*patch.Target); err != nil {
			return View{}, err
		}
	}
	if patch.ProgramID != nil {
		if a.ProgramID, err = s.checkProgram(ctx, ownerID, a.WorkspaceID, *patch.ProgramID); err != nil {
			return View{}, err
		}
	}
	a.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, a); err != nil {
		return View{}, err
	}
	view, err := s.view(ctx, a)
	if err != nil {
		return View{}, err
	}
	s.push(view)
	return view, nil
}

// SetAssociations replaces the asset's technologies, functionalities, behaviors and tags and
// pushes the rebuilt context to the sink.
func (s *Service) SetAssociations(ctx context.Context, ownerID, assetID string, in Associations) (View, error) {
	a, err := s.load(ctx, ownerID, assetID)
	if err != nil {
		return View{}, err
	}
	items, err := s.applyAssociations(ctx, &a, in)
	if err != nil {
		return View{}, err
	}
	a.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, a); err != nil {
		return View{}, err
	}
	view := buildView(a, items)
	s.push(view)
	return view, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, assetID string) error {
	if _, err := s.load(ctx, ownerID, assetID); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, assetID); err != nil {
		return err
	}
	if s.Sink != nil {
		s.Sink.Remove(assetID)
	}
	return nil
}

// SuggestionContext builds the engine input for an asset the user can see.
func (s *Service) SuggestionContext(ctx context.Context, userID, assetID string) (*suggestions.Context, error) {
	a, err := s.load(ctx, userID, assetID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, suggestions.ErrUnknownAsset
		}
		return nil, err
	}
	view, err := s.view(ctx, a)
	if err != nil {
		return nil, err
	}
	return toContext(view), nil
}

// WorkspaceDeleted drops the workspace's assets and their live suggestion state.
func (s *Service) WorkspaceDeleted(ctx context.Context, workspaceID string) error {
	removed, err := s.Repo.DeleteByWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if s.Sink != nil {
		for _, id := range removed {
			s.Sink.Remove(id)
		}
	}
	return nil
}

// ProgramDeleted detaches assets from the program; they stay in the workspace.
func (s *Service) ProgramDeleted(ctx context.Context, _ string, programID string) error {
	return s.Repo.ClearProgram(ctx, programID)
}

// LibraryItemChanged refreshes every asset associated with item. A deleted item is also
// dropped from the assets' association lists.
func (s *Service) LibraryItemChanged(ctx context.Context, item library.Item, deleted bool) error {
	if kindField(item.Kind) == "" {
		return nil
	}
	affected, err := s.Repo.ListReferencing(ctx, item.WorkspaceID, item.ID)
	if err != nil {
		return err
	}
	for _, a := range affected {
		if deleted {
			a.TechnologyIDs = without(a.TechnologyIDs, item.ID)
			a.FunctionalityIDs = without(a.FunctionalityIDs, item.ID)
			a.BehaviorIDs = without(a.BehaviorIDs, item.ID)
			a.UpdatedAt = s.now()
			if err := s.Repo.Update(ctx, a); err != nil {
				return err
			}
		}
		view, err := s.view(ctx, a)
		if err != nil {
			return err
		}
		s.push(view)
	}
	return nil
}

func (s *Service) load(ctx context.Context, ownerID, assetID string) (Asset, error) {
	if strings.TrimSpace(assetID) == "" {
		return Asset{}, ErrNotFound
	}
	a, err := s.Repo.Get(ctx, assetID)
	if err != nil {
		return Asset{}, err
	}
	if err := s.authorize(ctx, ownerID, a.WorkspaceID); err != nil {
		return Asset{}, err
	}
	return a, nil
}

func (s *Service) authorize(ctx context.Context, ownerID, workspaceID string) error {
	if s.Workspaces == nil {
		return errors.New("assets service not configured")
	}
	if err := s.Workspaces.Authorize(ctx, ownerID, workspaceID); err != nil {
		if errors.Is(err, workspaces.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) checkProgram(ctx context.Context, ownerID, workspaceID, programID string) (string, error) {
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return "", nil
	}
	p, err := s.Workspaces.GetProgram(ctx, ownerID, programID)
	if err != nil {
		if errors.Is(err, workspaces.ErrNotFound) {
			return "", fmt.Errorf("%w: program %s not found", ErrInvalidInput, programID)
		}
		return "", err
	}
	if p.WorkspaceID != workspaceID {
		return "", fmt.Errorf("%w: program %s belongs to another workspace", ErrInvalidInput, programID)
	}
	return p.ID, nil
}

// applyAssociations validates in against the asset's workspace library and copies it onto a.
func (s *Service) applyAssociations(ctx context.Context, a *Asset, in Associations) (map[string]library.Item, error) {
	next := Asset{
		TechnologyIDs:    dedupeIDs(in.TechnologyIDs),
		FunctionalityIDs: dedupeIDs(in.FunctionalityIDs),
		BehaviorIDs:      dedupeIDs(in.BehaviorIDs),
	}
	for field, ids := range map[string][]string{
		"technologyIds":    next.TechnologyIDs,
		"functionalityIds": next.FunctionalityIDs,
		"behaviorIds":      next.BehaviorIDs,
	} {
		if len(ids) > maxAssociationsPerKind {
			return nil, fmt.Errorf("%w: %s allows at most %d entries", ErrInvalidInput, field, maxAssociationsPerKind)
		}
	}
	tags := library.NormalizeTags(in.Tags)
	if len(tags) > maxTags {
		return nil, fmt.Errorf("%w: at most %d tags", ErrInvalidInput, maxTags)
	}

	items, err := s.resolve(ctx, a.WorkspaceID, next.associationIDs())
	if err != nil {
		return nil, err
	}
	checks := []struct {
		ids  []string
		kind suggestions.Type
	}{
		{next.TechnologyIDs, suggestions.TypeTechnology},
		{next.FunctionalityIDs, suggestions.TypeFunctionality},
		{next.BehaviorIDs, suggestions.TypeBehavior},
	}
	for _, check := range checks {
		for _, id := range check.ids {
			item, ok := items[id]
			if !ok || item.Kind != check.kind {
				return nil, fmt.Errorf("%w: %s: %s is not a %s in this workspace",
					ErrInvalidInput, kindField(check.kind), id, check.kind)
			}
		}
	}

	a.TechnologyIDs = next.TechnologyIDs
	a.FunctionalityIDs = next.FunctionalityIDs
	a.BehaviorIDs = next.BehaviorIDs
	a.Tags = tags
	return items, nil
}

func (s *Service) resolve(ctx context.Context, workspaceID string, ids []string) (map[string]library.Item, error) {
	if len(ids) == 0 {
		return map[string]library.Item{}, nil
	}
	if s.Library == nil {
		return nil, errors.New("assets service not configured")
	}
	return s.Library.Resolve(ctx, workspaceID, ids)
}

func (s *Service) view(ctx context.Context, a Asset) (View, error) {
	items, err := s.resolve(ctx, a.WorkspaceID, a.associationIDs())
	if err != nil {
		return View{}, err
	}
	return buildView(a, items), nil
}

func (s *Service) push(view View) {
	if s.Sink == nil {
		return
	}
	s.Sink.Update(view.ID, toContext(view))
	telemetry.Info("assets.context_pushed", map[string]any{
		"asset_id":        view.ID,
		"workspace_id":    view.WorkspaceID,
		"technologies":    len(view.Technologies),
		"functionalities": len(view.Functionalities),
		"behaviors":       len(view.Behaviors),
		"tags":            len(view.Tags),
	})
}

// buildView resolves ids through items, dropping ids that no longer resolve.
func buildView(a Asset, items map[string]library.Item) View {
	return View{
		Asset:           a,
		Technologies:    attributes(a.TechnologyIDs, items),
		Functionalities: attributes(a.FunctionalityIDs, items),
		Behaviors:       attributes(a.BehaviorIDs, items),
	}
}

func attributes(ids []string, items map[string]library.Item) []suggestions.Attribute {
	out := make([]suggestions.Attribute, 0, len(ids))
	for _, id := range ids {
		item, ok := items[id]
		if !ok {
			continue
		}
		out = append(out, suggestions.Attribute{ID: item.ID, Name: item.Name, Category: item.Category})
	}
	return out
}

func toContext(view View) *suggestions.Context {
	return &suggestions.Context{
		AssetID:         view.ID,
		AssetType:       string(view.Type),
		Technologies:    append([]suggestions.Attribute{}, view.Technologies...),
		Functionalities: append([]suggestions.Attribute{}, view.Functionalities...),
		Behaviors:       append([]suggestions.Attribute{}, view.Behaviors...),
		Tags:            append([]string{}, view.Tags...),
	}
}

func kindField(kind suggestions.Type) string {
	switch kind {
	case suggestions.TypeTechnology:
		return "technologyIds"
	case suggestions.TypeFunctionality:
		return "functionalityIds"
	case suggestions.TypeBehavior:
		return "behaviorIds"
	default:
		return ""
	}
}

func dedupeIDs(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
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

func cleanTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if len(target) > maxTargetLength {
		return "", fmt.Errorf("%w: target exceeds %d characters", ErrInvalidInput, maxTargetLength)
	}
	return target, nil
}
