// Package main provides the flowlogic HTTP service: wiring resolution,
// bundle generation and artifact retrieval over JSON, plus health and
// Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowgraph/flowlogic/internal/adapters/repository"
	"github.com/flowgraph/flowlogic/internal/app/services"
	"github.com/flowgraph/flowlogic/internal/app/usecases"
	"github.com/flowgraph/flowlogic/internal/config"
	"github.com/flowgraph/flowlogic/internal/infrastructure/metrics"
	"github.com/flowgraph/flowlogic/pkg/flowlogic"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stdout).With(
		"service", "flowlogic-server",
		"version", flowlogic.Version,
		"pid", os.Getpid(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}
	defer store.Close()

	m := metrics.New()
	opts := []usecases.Option{
		usecases.WithLogger(logger),
		usecases.WithMetrics(m),
		usecases.WithValidationConfig(cfg.ValidationConfig()),
	}
	if store.Saver != nil {
		opts = append(opts, usecases.WithStore(services.NewArtifactService(store.Saver, logger, m)))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newServer(usecases.NewGenerator(opts...), m, logger, cfg.Persist).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr, "store", store.Kind, "persist", cfg.Persist)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
