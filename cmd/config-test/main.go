// config-test validates a configuration file, prints the effective settings
// after defaults are applied and optionally checks that the storage backend
// can be reached.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/internal/storage/backend"
	"github.com/chrissnell/thermalcomfort/pkg/config"
)

func main() {
	var (
		yamlFile = flag.String("config", "config.yaml", "Path to YAML configuration file")
		connect  = flag.Bool("connect", false, "Also open the configured storage backend and ping it")
	)
	flag.Parse()

	fmt.Println("Configuration Test")
	fmt.Println("==================")
	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)

	cfg, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Configuration is valid")

	printConfig(cfg)

	if *connect {
		fmt.Println("\nStorage Connection:")
		if err := checkStorage(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("\nTest completed!")
}

func printConfig(cfg *config.ConfigData) {
	fmt.Println("\nModel:")
	fmt.Printf("  variant:  %s\n", cfg.Model.Variant)
	fmt.Printf("  workers:  %d\n", cfg.Evaluator.Workers)

	fmt.Println("\nStorage:")
	switch {
	case cfg.Storage.TimescaleDB != nil:
		fmt.Println("  backend:  timescaledb")
	case cfg.Storage.SQLite != nil:
		fmt.Println("  backend:  sqlite")
		fmt.Printf("  path:     %s\n", cfg.Storage.SQLite.Path)
	}

	fmt.Println("\nREST Server:")
	fmt.Printf("  listen:   %s:%d\n", cfg.REST.ListenAddr, cfg.REST.Port)
	if cfg.REST.TLSCertPath != "" {
		fmt.Printf("  tls cert: %s\n", cfg.REST.TLSCertPath)
		fmt.Printf("  tls key:  %s\n", cfg.REST.TLSKeyPath)
	}
}

func checkStorage(cfg *config.ConfigData) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, name, err := backend.New(ctx, &cfg.Storage, zap.NewNop().Sugar())
	if err != nil {
		return err
	}
	defer store.Close()

	h := storage.CheckHealth(ctx, store)
	if h.Status != storage.StatusHealthy {
		return fmt.Errorf("%s: %s", name, h.Error)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("✓ %s reachable, %d stored runs\n", name, len(runs))
	return nil
}
