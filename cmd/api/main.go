package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notehub/internal/auth"
	"notehub/internal/config"
	"notehub/internal/handlers"
	"notehub/internal/logger"
	"notehub/internal/middleware"
	"notehub/internal/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %v", err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Parse()
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	logr, err := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := postgres.Connect(ctx, logr, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer store.Close()

	tokens := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.AccessTTL)
	authn := middleware.NewAuthenticator(tokens, store, logr)
	h := handlers.New(store, tokens, logr)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      h.Routes(authn),
		ReadTimeout:  cfg.HTTP.Timeout,
		WriteTimeout: cfg.HTTP.Timeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logr.Info("server exited")
	return nil
}
