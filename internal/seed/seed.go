package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"secknow-backend/internal/assets"
	"secknow-backend/internal/library"
	"secknow-backend/internal/shared/telemetry"
	"secknow-backend/internal/workspaces"
)

//go:embed fixture.yaml
var defaultFixture []byte

// Fixture is a knowledge base to load into one workspace.
type Fixture struct {
	Workspace struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	} `yaml:"workspace"`
	Programs []ProgramFixture `yaml:"programs"`
	Library  []ItemFixture    `yaml:"library"`
	Assets   []AssetFixture   `yaml:"assets"`
}

type ProgramFixture struct {
	Key        string `yaml:"key"`
	Name       string `yaml:"name"`
	Platform   string `yaml:"platform"`
	ScopeNotes string `yaml:"scopeNotes"`
	Status     string `yaml:"status"`
}

type ItemFixture struct {
	Key         string   `yaml:"key"`
	Kind        string   `yaml:"kind"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Tags        []string `yaml:"tags"`
	Content     string   `yaml:"content"`
}

// AssetFixture references programs and library items by key.
type AssetFixture struct {
	Name            string   `yaml:"name"`
	Type            string   `yaml:"type"`
	Target          string   `yaml:"target"`
	Program         string   `yaml:"program"`
	Technologies    []string `yaml:"technologies"`
	Functionalities []string `yaml:"functionalities"`
	Behaviors       []string `yaml:"behaviors"`
	Tags            []string `yaml:"tags"`
}

// Result reports what Run created.
type Result struct {
	WorkspaceID string
	Programs    int
	Items       int
	Assets      int
}

// Parse decodes a fixture, rejecting unknown fields and dangling keys.
func Parse(r io.Reader) (Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// Default returns the embedded sample fixture.
func Default() (Fixture, error) {
	return Parse(bytes.NewReader(defaultFixture))
}

// LoadFile parses the fixture at path.
func LoadFile(path string) (Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return Fixture{}, err
	}
	defer file.Close()
	return Parse(file)
}

func (f Fixture) validate() error {
	if strings.TrimSpace(f.Workspace.Name) == "" {
		return errors.New("fixture: workspace.name is required")
	}
	programs := make(map[string]bool, len(f.Programs))
	for _, p := range f.Programs {
		if p.Key == "" || programs[p.Key] {
			return fmt.Errorf("fixture: program key %q is empty or duplicated", p.Key)
		}
		programs[p.Key] = true
	}
	items := make(map[string]bool, len(f.Library))
	for _, it := range f.Library {
		if it.Key == "" || items[it.Key] {
			return fmt.Errorf("fixture: library key %q is empty or duplicated", it.Key)
		}
		items[it.Key] = true
	}
	for _, a := range f.Assets {
		if a.Program != "" && !programs[a.Program] {
			return fmt.Errorf("fixture: asset %q references unknown program %q", a.Name, a.Program)
		}
		for _, refs := range [][]string{a.Technologies, a.Functionalities, a.Behaviors} {
			for _, key := range refs {
				if !items[key] {
					return fmt.Errorf("fixture: asset %q references unknown library key %q", a.Name, key)
				}
			}
		}
	}
	return nil
}

// Seeder loads fixtures through the same services the API uses.
type Seeder struct {
	Workspaces *workspaces.Service
	Library    *library.Service
	Assets     *assets.Service
}

// Run creates a new workspace for owner and fills it from f.
func (s *Seeder) Run(ctx context.Context, owner string, f Fixture) (Result, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return Result{}, errors.New("owner is required")
	}

	ws, err := s.Workspaces.CreateWorkspace(ctx, owner, workspaces.WorkspaceInput{
		Name:        f.Workspace.Name,
		Description: f.Workspace.Description,
	})
	if err != nil {
		return Result{}, fmt.Errorf("create workspace: %w", err)
	}
	res := Result{WorkspaceID: ws.ID}

	programIDs := make(map[string]string, len(f.Programs))
	for _, p := range f.Programs {
		created, err := s.Workspaces.CreateProgram(ctx, owner, ws.ID, workspaces.ProgramInput{
			Name:       p.Name,
			Platform:   p.Platform,
			ScopeNotes: p.ScopeNotes,
			Status:     workspaces.ProgramStatus(p.Status),
		})
		if err != nil {
			return res, fmt.Errorf("create program %s: %w", p.Key, err)
		}
		programIDs[p.Key] = created.ID
		res.Programs++
	}

	itemIDs := make(map[string]string, len(f.Library))
	for _, it := range f.Library {
		created, err := s.Library.Create(ctx, owner, ws.ID, library.ItemInput{
			Kind:        it.Kind,
			Name:        it.Name,
			Description: it.Description,
			Category:    it.Category,
			Tags:        it.Tags,
			Content:     it.Content,
		})
		if err != nil {
			return res, fmt.Errorf("create library item %s: %w", it.Key, err)
		}
		itemIDs[it.Key] = created.ID
		res.Items++
	}

	for _, a := range f.Assets {
		_, err := s.Assets.Create(ctx, owner, ws.ID, assets.AssetInput{
			Name:      a.Name,
			Type:      assets.AssetType(a.Type),
			Target:    a.Target,
			ProgramID: programIDs[a.Program],
			Associations: assets.Associations{
				TechnologyIDs:    lookup(itemIDs, a.Technologies),
				FunctionalityIDs: lookup(itemIDs, a.Functionalities),
				BehaviorIDs:      lookup(itemIDs, a.Behaviors),
				Tags:             a.Tags,
			},
		})
		if err != nil {
			return res, fmt.Errorf("create asset %s: %w", a.Name, err)
		}
		res.Assets++
	}

	telemetry.Info("seed.completed", map[string]any{
		"owner":        owner,
		"workspace_id": ws.ID,
		"programs":     res.Programs,
		"items":        res.Items,
		"assets":       res.Assets,
	})
	return res, nil
}

func lookup(ids map[string]string, keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, ids[k])
	}
	return out
}
