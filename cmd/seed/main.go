// Command seed loads a sample knowledge base into a new workspace:
//
//	go run ./cmd/seed -owner google:1234
//	go run ./cmd/seed -owner guest:<uuid> -file ./my-fixture.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"secknow-backend/internal/bootstrap"
	"secknow-backend/internal/seed"
	"secknow-backend/internal/shared/config"
)

var errUsage = errors.New("-owner is required")

func main() {
	owner := flag.String("owner", "", "principal that will own the seeded workspace (google:<sub> or guest:<uuid>)")
	file := flag.String("file", "", "fixture YAML; defaults to the embedded sample")
	flag.Parse()

	if err := run(context.Background(), *owner, *file); err != nil {
		log.Printf("%v", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run owns every deferred cleanup; main only maps its error to an exit code.
func run(ctx context.Context, owner, file string) error {
	if owner == "" {
		return errUsage
	}

	fixture, err := loadFixture(file)
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}

	cfg := config.Load()
	if cfg.UsesMemoryStore() {
		log.Printf("DATABASE_URL is empty; seeded data will not outlive this process")
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	seeder := &seed.Seeder{
		Workspaces: app.WorkspacesService,
		Library:    app.LibraryService,
		Assets:     app.AssetsService,
	}
	res, err := seeder.Run(ctx, owner, fixture)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	log.Printf("seeded workspace %s: %d programs, %d library items, %d assets",
		res.WorkspaceID, res.Programs, res.Items, res.Assets)
	return nil
}

func loadFixture(path string) (seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.LoadFile(path)
}
