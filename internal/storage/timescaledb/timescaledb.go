// Package timescaledb stores comfort runs in TimescaleDB through gorm.
package timescaledb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chrissnell/thermalcomfort/internal/database"
	"github.com/chrissnell/thermalcomfort/internal/evaluator"
	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/pkg/jos3"
)

const (
	createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE`

	// Step is an integer dimension, so each chunk covers a range of steps
	// rather than a span of wall-clock time.
	createHypertableSQL = `SELECT create_hypertable('comfort_result_segments', 'step',
		chunk_time_interval => 100000, if_not_exists => TRUE, migrate_data => TRUE)`

	batchSize = 500
)

// Store implements storage.Store on TimescaleDB
type Store struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New connects to TimescaleDB and migrates the schema
func New(ctx context.Context, connectionString string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := database.CreateConnection(connectionString, logger)
	if err != nil {
		return nil, err
	}
	return newStore(ctx, db, logger)
}

func newStore(ctx context.Context, db *gorm.DB, logger *zap.SugaredLogger) (*Store, error) {
	logger.Info("creating TimescaleDB extension...")
	if err := db.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		// Plain PostgreSQL works too, only without hypertables.
		logger.Warnf("could not create TimescaleDB extension, continuing without hypertables: %v", err)
	}

	logger.Info("migrating result tables...")
	if err := db.WithContext(ctx).AutoMigrate(database.Models()...); err != nil {
		return nil, fmt.Errorf("could not migrate result tables: %w", err)
	}

	logger.Info("creating hypertable...")
	if err := db.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		logger.Warnf("could not create hypertable: %v", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// CreateRun registers a new, empty run
func (t *Store) CreateRun(ctx context.Context, name, variant string) (*storage.Run, error) {
	run := storage.NewRun(name, variant)
	model := database.FromRun(run)
	if err := t.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, fmt.Errorf("could not store run: %w", err)
	}
	return run, nil
}

// GetRun returns one run
func (t *Store) GetRun(ctx context.Context, id uuid.UUID) (*storage.Run, error) {
	return t.getRun(t.db.WithContext(ctx), id)
}

func (t *Store) getRun(db *gorm.DB, id uuid.UUID) (*storage.Run, error) {
	var model database.Run
	err := db.Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", id, storage.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying database for run: %w", err)
	}
	return model.ToRun(), nil
}

// ListRuns returns every run, newest first
func (t *Store) ListRuns(ctx context.Context) ([]storage.Run, error) {
	var models []database.Run
	if err := t.db.WithContext(ctx).Order("created_at DESC, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("error querying database for runs: %w", err)
	}

	runs := make([]storage.Run, 0, len(models))
	for _, m := range models {
		runs = append(runs, *m.ToRun())
	}
	return runs, nil
}

// SaveSamples replaces the stored simulator records of a run
func (t *Store) SaveSamples(ctx context.Context, id uuid.UUID, records []jos3.Record) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := t.getRun(tx, id); err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&database.SampleZone{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&database.Sample{}).Error; err != nil {
			return err
		}
		if err := createSamples(tx, id, records); err != nil {
			return err
		}
		t.logger.Debugf("saved %d samples for run %s", len(records), id)
		return nil
	})
}

func createSamples(tx *gorm.DB, id uuid.UUID, records []jos3.Record) error {
	sampleRows, zoneRows := storage.FlattenSamples(records)

	samples := make([]database.Sample, len(sampleRows))
	for i, r := range sampleRows {
		samples[i] = database.Sample{RunID: id, SampleRow: r}
	}
	zones := make([]database.SampleZone, len(zoneRows))
	for i, z := range zoneRows {
		zones[i] = database.SampleZone{RunID: id, ZoneRow: z}
	}

	if len(samples) > 0 {
		if err := tx.CreateInBatches(samples, batchSize).Error; err != nil {
			return fmt.Errorf("could not store samples: %w", err)
		}
	}
	if len(zones) > 0 {
		if err := tx.CreateInBatches(zones, batchSize).Error; err != nil {
			return fmt.Errorf("could not store sample zones: %w", err)
		}
	}
	return nil
}

// LoadSamples returns the stored simulator records of a run in time order
func (t *Store) LoadSamples(ctx context.Context, id uuid.UUID) ([]jos3.Record, error) {
	db := t.db.WithContext(ctx)
	if _, err := t.getRun(db, id); err != nil {
		return nil, err
	}

	var samples []database.Sample
	if err := db.Where("run_id = ?", id).Order("step").Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("error querying database for samples: %w", err)
	}
	var zones []database.SampleZone
	if err := db.Where("run_id = ?", id).Find(&zones).Error; err != nil {
		return nil, fmt.Errorf("error querying database for sample zones: %w", err)
	}

	return storage.AssembleSamples(SampleRows(samples), ZoneRows(zones))
}

// SaveResults replaces the stored results of a run and updates its step count
func (t *Store) SaveResults(ctx context.Context, id uuid.UUID, results []evaluator.StepResult) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := t.getRun(tx, id); err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&database.ResultSegment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&database.Result{}).Error; err != nil {
			return err
		}
		if err := createResults(tx, id, results); err != nil {
			return err
		}
		if err := tx.Model(&database.Run{}).Where("id = ?", id).Update("steps", len(results)).Error; err != nil {
			return fmt.Errorf("could not update run: %w", err)
		}
		t.logger.Debugf("saved %d results for run %s", len(results), id)
		return nil
	})
}

func createResults(tx *gorm.DB, id uuid.UUID, results []evaluator.StepResult) error {
	resultRows, segmentRows := storage.FlattenResults(results)

	rows := make([]database.Result, len(resultRows))
	for i, r := range resultRows {
		rows[i] = database.Result{RunID: id, ResultRow: r}
	}
	segments := make([]database.ResultSegment, len(segmentRows))
	for i, s := range segmentRows {
		segments[i] = database.ResultSegment{RunID: id, SegmentRow: s}
	}

	if len(rows) > 0 {
		if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
			return fmt.Errorf("could not store results: %w", err)
		}
	}
	if len(segments) > 0 {
		if err := tx.CreateInBatches(segments, batchSize).Error; err != nil {
			return fmt.Errorf("could not store result segments: %w", err)
		}
	}
	return nil
}

// SaveRun inserts run with its samples and results in a single transaction
func (t *Store) SaveRun(ctx context.Context, run *storage.Run, records []jos3.Record, results []evaluator.StepResult) error {
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored := *run
		stored.Steps = len(results)
		model := database.FromRun(&stored)
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("could not store run: %w", err)
		}
		if err := createSamples(tx, run.ID, records); err != nil {
			return err
		}
		return createResults(tx, run.ID, results)
	})
	if err != nil {
		return err
	}

	run.Steps = len(results)
	t.logger.Debugf("saved run %s with %d samples and %d results", run.ID, len(records), len(results))
	return nil
}

// LoadResults returns the stored results of a run in step order
func (t *Store) LoadResults(ctx context.Context, id uuid.UUID) ([]evaluator.StepResult, error) {
	db := t.db.WithContext(ctx)
	if _, err := t.getRun(db, id); err != nil {
		return nil, err
	}

	var rows []database.Result
	if err := db.Where("run_id = ?", id).Order("step").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error querying database for results: %w", err)
	}
	var segments []database.ResultSegment
	if err := db.Where("run_id = ?", id).Find(&segments).Error; err != nil {
		return nil, fmt.Errorf("error querying database for result segments: %w", err)
	}

	return storage.AssembleResults(ResultRows(rows), SegmentRows(segments))
}

// Ping checks the database connection
func (t *Store) Ping(ctx context.Context) error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool
func (t *Store) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SampleRows strips the run key from sample models
func SampleRows(models []database.Sample) []storage.SampleRow {
	out := make([]storage.SampleRow, len(models))
	for i, m := range models {
		out[i] = m.SampleRow
	}
	return out
}

// ZoneRows strips the run key from sample zone models
func ZoneRows(models []database.SampleZone) []storage.ZoneRow {
	out := make([]storage.ZoneRow, len(models))
	for i, m := range models {
		out[i] = m.ZoneRow
	}
	return out
}

// ResultRows strips the run key from result models
func ResultRows(models []database.Result) []storage.ResultRow {
	out := make([]storage.ResultRow, len(models))
	for i, m := range models {
		out[i] = m.ResultRow
	}
	return out
}

// SegmentRows strips the run key from result segment models
func SegmentRows(models []database.ResultSegment) []storage.SegmentRow {
	out := make([]storage.SegmentRow, len(models))
	for i, m := range models {
		out[i] = m.SegmentRow
	}
	return out
}
