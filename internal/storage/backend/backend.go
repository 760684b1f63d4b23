// Package backend opens whichever result store the configuration selects.
package backend

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/internal/storage/sqlite"
	"github.com/chrissnell/thermalcomfort/internal/storage/timescaledb"
	"github.com/chrissnell/thermalcomfort/pkg/config"
)

const (
	SQLite      = "sqlite"
	TimescaleDB = "timescaledb"
)

// New opens the configured store and returns it with its backend name
func New(ctx context.Context, cfg *config.StorageData, logger *zap.SugaredLogger) (storage.Store, string, error) {
	switch {
	case cfg.TimescaleDB != nil:
		s, err := timescaledb.New(ctx, cfg.TimescaleDB.ConnectionString, logger)
		if err != nil {
			return nil, "", fmt.Errorf("could not open TimescaleDB store: %w", err)
		}
		return s, TimescaleDB, nil
	case cfg.SQLite != nil:
		s, err := sqlite.New(ctx, cfg.SQLite.Path, logger)
		if err != nil {
			return nil, "", fmt.Errorf("could not open SQLite store: %w", err)
		}
		return s, SQLite, nil
	default:
		return nil, "", fmt.Errorf("no storage backend configured")
	}
}
