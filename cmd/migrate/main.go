// Command migrate applies the embedded database migrations:
//
//	go run ./cmd/migrate            # up
//	go run ./cmd/migrate -cmd status
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"secknow-backend/internal/shared/config"
	"secknow-backend/internal/shared/storage/db"
)

func main() {
	command := flag.String("cmd", "up", "goose command: up, down, status, version, reset")
	flag.Parse()

	if err := run(context.Background(), *command); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string) error {
	cfg := config.Load()

	opts := db.OptionsFromEnv(db.DefaultCLIOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, command); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}
