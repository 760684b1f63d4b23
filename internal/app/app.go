// Package app wires the result store, evaluator and REST server together.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/thermalcomfort/internal/controllers/restserver"
	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/internal/storage/backend"
	"github.com/chrissnell/thermalcomfort/pkg/comfort"
	"github.com/chrissnell/thermalcomfort/pkg/config"
)

// healthInterval is how often the store is pinged
const healthInterval = time.Minute

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	variant, err := comfort.ParseVariant(cfg.Model.Variant)
	if err != nil {
		return err
	}

	store, backendName, err := backend.New(ctx, &cfg.Storage, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	health := storage.NewHealthManager()
	storage.StartHealthMonitor(ctx, &wg, backendName, store, health, healthInterval, a.logger)

	ctrl, err := restserver.NewController(ctx, &wg, cfg.REST, restserver.Options{
		Store:   store,
		Health:  health,
		Variant: variant,
		Workers: cfg.Evaluator.Workers,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("could not create REST server: %w", err)
	}
	if err := ctrl.StartController(); err != nil {
		return err
	}

	a.logger.Infow("application started successfully", "variant", variant, "storage", backendName, "workers", cfg.Evaluator.Workers)

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		a.logger.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return nil
}
