package assets

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"secknow-backend/internal/library"
	"secknow-backend/internal/suggestions"
	"secknow-backend/internal/workspaces"
)

type recordingSink struct {
	mu      sync.Mutex
	latest  map[string]*suggestions.Context
	removed []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{latest: make(map[string]*suggestions.Context)}
}

func (s *recordingSink) Update(assetID string, c *suggestions.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[assetID] = c
}

func (s *recordingSink) Remove(assetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, assetID)
	s.removed = append(s.removed, assetID)
}

func (s *recordingSink) context(assetID string) *suggestions.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[assetID]
}

type fixture struct {
	svc     *Service
	ws      *workspaces.Service
	lib     *library.Service
	sink    *recordingSink
	wsID    string
	owner   string
	itemIDs map[string]string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	wsSvc := workspaces.NewService(workspaces.NewMemoryRepo())
	libSvc := library.NewService(library.NewMemoryRepo(), wsSvc)
	sink := newRecordingSink()
	svc := NewService(NewMemoryRepo(), wsSvc, libSvc, sink)
	wsSvc.Notify(svc)
	wsSvc.Notify(libSvc)
	libSvc.Watch(svc)

	ws, err := wsSvc.CreateWorkspace(ctx, "user-1", workspaces.WorkspaceInput{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	f := &fixture{svc: svc, ws: wsSvc, lib: libSvc, sink: sink, wsID: ws.ID, owner: "user-1", itemIDs: map[string]string{}}
	for _, in := range []library.ItemInput{
		{Kind: "technology", Name: "WordPress", Category: "CMS"},
		{Kind: "technology", Name: "nginx"},
		{Kind: "functionality", Name: "File upload"},
		{Kind: "behavior", Name: "Verbose errors"},
		{Kind: "technique", Name: "Plugin enumeration"},
	} {
		item, err := libSvc.Create(ctx, "user-1", ws.ID, in)
		if err != nil {
			t.Fatalf("library Create %s: %v", in.Name, err)
		}
		f.itemIDs[in.Name] = item.ID
	}
	return f
}

func TestCreateBuildsViewAndPushesContext(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	view, err := f.svc.Create(ctx, f.owner, f.wsID, AssetInput{
		Name:   " shop.acme.test ",
		Type:   TypeWeb,
		Target: "https://shop.acme.test",
		Associations: Associations{
			TechnologyIDs:    []string{f.itemIDs["WordPress"], f.itemIDs["WordPress"], f.itemIDs["nginx"]},
			FunctionalityIDs: []string{f.itemIDs["File upload"]},
			Tags:             []string{"Prod", "prod"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if view.Name != "shop.acme.test" {
		t.Fatalf("expected trimmed name, got %q", view.Name)
	}
	if len(view.TechnologyIDs) != 2 {
		t.Fatalf("expected deduped technology ids, got %v", view.TechnologyIDs)
	}
	if len(view.Technologies) != 2 || view.Technologies[0].Name != "WordPress" || view.Technologies[0].Category != "CMS" {
		t.Fatalf("unexpected technologies %+v", view.Technologies)
	}

	pushed := f.sink.context(view.ID)
	if pushed == nil {
		t.Fatalf("expected context pushed for %s", view.ID)
	}
	if pushed.AssetType != "web" || len(pushed.Functionalities) != 1 || pushed.Functionalities[0].Name != "File upload" {
		t.Fatalf("unexpected pushed context %+v", pushed)
	}
	if len(pushed.Tags) != 1 || pushed.Tags[0] != "prod" {
		t.Fatalf("unexpected tags %v", pushed.Tags)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cases := map[string]AssetInput{
		"empty name":         {Name: " "},
		"unknown type":       {Name: "x", Type: "satellite"},
		"unknown item":       {Name: "x", Associations: Associations{TechnologyIDs: []string{"missing"}}},
		"wrong kind":         {Name: "x", Associations: Associations{TechnologyIDs: []string{f.itemIDs["File upload"]}}},
		"non-attribute kind": {Name: "x", Associations: Associations{BehaviorIDs: []string{f.itemIDs["Plugin enumeration"]}}},
		"unknown program":    {Name: "x", ProgramID: "missing"},
		"too many tags":      {Name: "x", Associations: Associations{Tags: numberedTags(maxTags + 1)}},
	}
	for name, in := range cases {
		if _, err := f.svc.Create(ctx, f.owner, f.wsID, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
	if _, err := f.svc.Create(ctx, "user-2", f.wsID, AssetInput{Name: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign workspace, got %v", err)
	}
}

func TestCreateAcceptsTagLimit(t *testing.T) {
	f := setup(t)

	view, err := f.svc.Create(context.Background(), f.owner, f.wsID, AssetInput{
		Name:         "edge",
		Associations: Associations{Tags: append(numberedTags(maxTags), "tag-0", " TAG-1 ")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(view.Tags) != maxTags {
		t.Fatalf("expected %d tags after dedupe, got %d", maxTags, len(view.Tags))
	}
}

func numberedTags(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, "tag-"+strconv.Itoa(i))
	}
	return out
}

func TestCreateRejectsProgramFromOtherWorkspace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	other, err := f.ws.CreateWorkspace(ctx, f.owner, workspaces.WorkspaceInput{Name: "Other"})
	if err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	program, err := f.ws.CreateProgram(ctx, f.owner, other.ID, workspaces.ProgramInput{Name: "Bounty"})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if _, err := f.svc.Create(ctx, f.owner, f.wsID, AssetInput{Name: "x", ProgramID: program.ID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSetAssociationsReplacesAndPushes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	view, err := f.svc.Create(ctx, f.owner, f.wsID, AssetInput{
		Name:         "api",
		Type:         TypeAPI,
		Associations: Associations{TechnologyIDs: []string{f.itemIDs["nginx"]}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	view, err = f.svc.SetAssociations(ctx, f.owner, view.ID, Associations{
		BehaviorIDs: []string{f.itemIDs["Verbose errors"]},
	})
	if err != nil {
		t.Fatalf("SetAssociations: %v", err)
	}
	if len(view.TechnologyIDs) != 0 || len(view.Behaviors) != 1 {
		t.Fatalf("unexpected associations %+v", view)
	}
	pushed := f.sink.context(view.ID)
	if len(pushed.Technologies) != 0 || len(pushed.Behaviors) != 1 || pushed.Behaviors[0].Name != "Verbose errors" {
		t.Fatalf("unexpected pushed context %+v", pushed)
	}

	if _, err := f.svc.SetAssociations(ctx, f.owner, view.ID, Associations{FunctionalityIDs: []string{"missing"}}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	got, err := f.svc.Get(ctx, f.owner, view.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.BehaviorIDs) != 1 {
		t.Fatalf("rejected update must not change the asset, got %+v", got)
	}
}

func TestUpdatePatchesFields(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	program, err := f.ws.CreateProgram(ctx, f.owner, f.wsID, workspaces.ProgramInput{Name: "Bounty"})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	view, err := f.svc.Create(ctx, f.owner, f.wsID, AssetInput{Name: "api", Type: TypeAPI})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	mobile := TypeMobile
	programID := program.ID
	view, err = f.svc.Update(ctx, f.owner, view.ID, AssetPatch{Type: &mobile, ProgramID: &programID})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if view.Type != TypeMobile || view.ProgramID != program.ID || view.Name != "api" {
		t.Fatalf("unexpected view %+v", view)
	}
	if got := f.sink.context(view.ID); got.AssetType != "mobile" {
		t.Fatalf("expected pushed asset type mobile, got %q", got.AssetType)
	}

	bad := AssetType("satellite")
	if _, err := f.svc.Update(ctx, f.owner, view.ID, AssetPatch{Type: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	listed, err := f.svc.List(ctx, f.owner, f.wsID, program.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 asset in program, got %d", len(listed))
	}
}

func TestSuggestionContextMapsNotFound(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.svc.SuggestionContext(ctx, f.owner, "missing"); !errors.Is(err, suggestions.ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
	view, err := f.svc.Create(ctx, f.owner, f.wsID, AssetInput{
		Name:         "shop",
		Associations: Associations{TechnologyIDs: []string{f.itemIDs["WordPress"]}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.SuggestionContext(ctx, "user-2", view.ID); !errors.Is(err, suggestions.ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset for another user, got %v", err)
	}
	sctx, err := f.svc.SuggestionContext(ctx, f.owner, view.ID)
	if err != nil {
		t.Fatalf("SuggestionContext: %v", err)
	}
	if sctx.AssetID != view.ID || len(sctx.Technologies) != 1 || sctx.Technologies[0].Name != "WordPress" {
		t.Fatalf("unexpected context %+v", sctx)
	}
}

func TestLibraryRenameAndDeleteRefreshAssets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	view, err := f.svc.Create(ctx, f.owner, f.wsID, AssetInput{
		Name:         "shop",
		Associations: Associations{TechnologyIDs: []string{f.itemIDs["WordPress"], f.itemIDs["nginx"]}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	renamed := "WordPress 6"
	if _, err := f.lib.Update(ctx, f.owner, f.itemIDs["WordPress"], library.ItemPatch{Name: &renamed}); err != nil {
		t.Fatalf("library Update: %v", err)
	}
	if got := f.sink.context(view.ID); got.Technologies[0].Name != "WordPress 6" {
		t.Fatalf("expected renamed technology in context, got %+v", got.Technologies)
	}

	if err := f.lib.Delete(ctx, f.owner, f.itemIDs["nginx"]); err != nil {
		t.Fatalf("library Delete: %v", err)
	}
	got, err := f.svc.Get(ctx, f.owner, view.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.TechnologyIDs) != 1 || got.TechnologyIDs[0] != f.itemIDs["WordPress"] {
		t.Fatalf("expected deleted item stripped, got %v", got.TechnologyIDs)
	}
	if pushed := f.sink.context(view.ID); len(pushed.Technologies) != 1 {
		t.Fatalf("expected one technology in pushed context, got %+v", pushed.Technologies)
	}
}

func TestDeleteCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	program, err := f.ws.CreateProgram(ctx, f.owner, f.wsID, workspaces.ProgramInput{Name: "Bounty"})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	first, err := f.svc.Create(ctx, f.owner, f.wsID, AssetInput{Name: "a", ProgramID: program.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := f.svc.Create(ctx, f.owner, f.wsID, AssetInput{Name: "b"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := f.ws.DeleteProgram(ctx, f.owner, program.ID); err != nil {
		t.Fatalf("DeleteProgram: %v", err)
	}
	got, err := f.svc.Get(ctx, f.owner, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ProgramID != "" {
		t.Fatalf("expected program cleared, got %q", got.ProgramID)
	}

	if err := f.svc.Delete(ctx, f.owner, second.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.sink.context(second.ID) != nil {
		t.Fatalf("expected sink entry removed for %s", second.ID)
	}

	if err := f.ws.DeleteWorkspace(ctx, f.owner, f.wsID); err != nil {
		t.Fatalf("DeleteWorkspace: %v", err)
	}
	if _, err := f.svc.Repo.Get(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected asset removed with workspace, got %v", err)
	}
	if f.sink.context(first.ID) != nil {
		t.Fatalf("expected sink entry removed for %s", first.ID)
	}
}
