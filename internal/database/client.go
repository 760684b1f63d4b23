// Package database holds the gorm connection and models for the TimescaleDB
// result store.
package database

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/thermalcomfort/internal/log"
)

// CreateConnection opens a gorm connection to TimescaleDB with gorm's own
// logging routed through zap
func CreateConnection(connectionString string, l *zap.SugaredLogger) (*gorm.DB, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Missing runs are reported by the store
			Colorful:                  false,
		},
	)

	l.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		l.Warnf("unable to create a TimescaleDB connection: %v", err)
		return nil, err
	}
	l.Info("TimescaleDB connection successful")

	return db, nil
}
