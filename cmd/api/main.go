package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"secknow-backend/internal/bootstrap"
	"secknow-backend/internal/shared/config"
	"secknow-backend/internal/shared/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting API server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := app.Close(); err != nil {
		log.Printf("close app: %v", err)
	}
}
