// Package sqlite stores comfort runs in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chrissnell/thermalcomfort/internal/evaluator"
	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/pkg/jos3"
	"github.com/chrissnell/thermalcomfort/pkg/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigrationTable tracks the applied schema version
const MigrationTable = "schema_migrations"

// NewMigrator returns a migrator for the result-store schema on db
func NewMigrator(db *sql.DB, logger *zap.SugaredLogger) *migrate.Migrator {
	provider := migrate.NewFSProvider(migrations, "migrations", MigrationTable, "sqlite")
	return migrate.NewMigrator(db, provider, logger)
}

// Store implements storage.Store on SQLite
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
}

// New opens (or creates) the database at path and migrates it to the latest schema
func New(ctx context.Context, path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite serialises writers; a single connection also keeps :memory:
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := NewMigrator(db, logger).MigrateUp(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.Infof("opened SQLite result store at %s", path)
	return &Store{db: db, path: path, logger: logger}, nil
}

// CreateRun registers a new, empty run
func (s *Store) CreateRun(ctx context.Context, name, variant string) (*storage.Run, error) {
	run := storage.NewRun(name, variant)
	if err := insertRun(ctx, s.db, run); err != nil {
		return nil, err
	}
	return run, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRun(ctx context.Context, db execer, run *storage.Run) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO runs (id, name, variant, created_at, steps) VALUES (?, ?, ?, ?, ?)`,
		run.ID.String(), run.Name, run.Variant, run.CreatedAt.UnixNano(), run.Steps)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// SaveRun inserts run with its samples and results in a single transaction
func (s *Store) SaveRun(ctx context.Context, run *storage.Run, records []jos3.Record, results []evaluator.StepResult) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stored := *run
		stored.Steps = len(results)
		if err := insertRun(ctx, tx, &stored); err != nil {
			return err
		}
		if err := insertSamples(ctx, tx, run.ID, records); err != nil {
			return err
		}
		return insertResults(ctx, tx, run.ID, results)
	})
	if err != nil {
		return err
	}

	run.Steps = len(results)
	s.logger.Debugf("saved run %s with %d samples and %d results", run.ID, len(records), len(results))
	return nil
}

func scanRun(row interface{ Scan(...any) error }) (*storage.Run, error) {
	var (
		run       storage.Run
		id        string
		createdAt int64
	)
	if err := row.Scan(&id, &run.Name, &run.Variant, &createdAt, &run.Steps); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("stored run id %q: %w", id, err)
	}
	run.ID = parsed
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	return &run, nil
}

// GetRun returns one run
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*storage.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, variant, created_at, steps FROM runs WHERE id = ?`, id.String())

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, storage.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// ListRuns returns every run, newest first
func (s *Store) ListRuns(ctx context.Context) ([]storage.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, variant, created_at, steps FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []storage.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func (s *Store) ensureRun(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id.String()).Scan(&n); err != nil {
		return fmt.Errorf("failed to query run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, storage.ErrRunNotFound)
	}
	return nil
}

// withTx runs fn in a transaction, committing only when fn succeeds
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SaveSamples replaces the stored simulator records of a run
func (s *Store) SaveSamples(ctx context.Context, id uuid.UUID, records []jos3.Record) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.ensureRun(ctx, tx, id); err != nil {
			return err
		}
		for _, q := range []string{`DELETE FROM sample_zones WHERE run_id = ?`, `DELETE FROM samples WHERE run_id = ?`} {
			if _, err := tx.ExecContext(ctx, q, id.String()); err != nil {
				return fmt.Errorf("failed to clear samples: %w", err)
			}
		}

		if err := insertSamples(ctx, tx, id, records); err != nil {
			return err
		}

		s.logger.Debugf("saved %d samples for run %s", len(records), id)
		return nil
	})
}

func insertSamples(ctx context.Context, tx *sql.Tx, id uuid.UUID, records []jos3.Record) error {
	samples, zones := storage.FlattenSamples(records)

	for _, r := range samples {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO samples (run_id, step, time, mean_skin) VALUES (?, ?, ?, ?)`,
			id.String(), r.Step, r.Time, r.MeanSkin); err != nil {
			return fmt.Errorf("failed to insert sample %d: %w", r.Step, err)
		}
	}
	for _, z := range zones {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sample_zones (run_id, step, zone, skin, core) VALUES (?, ?, ?, ?, ?)`,
			id.String(), z.Step, z.Zone, z.Skin, z.Core); err != nil {
			return fmt.Errorf("failed to insert sample %d zone %s: %w", z.Step, z.Zone, err)
		}
	}
	return nil
}

// LoadSamples returns the stored simulator records of a run in time order
func (s *Store) LoadSamples(ctx context.Context, id uuid.UUID) ([]jos3.Record, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, time, mean_skin FROM samples WHERE run_id = ? ORDER BY step`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	var samples []storage.SampleRow
	for rows.Next() {
		var r storage.SampleRow
		if err := rows.Scan(&r.Step, &r.Time, &r.MeanSkin); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sample row: %w", err)
		}
		samples = append(samples, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT step, zone, skin, core FROM sample_zones WHERE run_id = ?`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query sample zones: %w", err)
	}
	defer rows.Close()
	var zones []storage.ZoneRow
	for rows.Next() {
		var z storage.ZoneRow
		if err := rows.Scan(&z.Step, &z.Zone, &z.Skin, &z.Core); err != nil {
			return nil, fmt.Errorf("failed to scan sample zone row: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return storage.AssembleSamples(samples, zones)
}

// SaveResults replaces the stored results of a run and updates its step count
func (s *Store) SaveResults(ctx context.Context, id uuid.UUID, results []evaluator.StepResult) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.ensureRun(ctx, tx, id); err != nil {
			return err
		}
		for _, q := range []string{`DELETE FROM result_segments WHERE run_id = ?`, `DELETE FROM results WHERE run_id = ?`} {
			if _, err := tx.ExecContext(ctx, q, id.String()); err != nil {
				return fmt.Errorf("failed to clear results: %w", err)
			}
		}

		if err := insertResults(ctx, tx, id, results); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE runs SET steps = ? WHERE id = ?`, len(results), id.String()); err != nil {
			return fmt.Errorf("failed to update run: %w", err)
		}

		s.logger.Debugf("saved %d results for run %s", len(results), id)
		return nil
	})
}

func insertResults(ctx context.Context, tx *sql.Tx, id uuid.UUID, results []evaluator.StepResult) error {
	rows, segments := storage.FlattenResults(results)

	for _, r := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO results (run_id, step, time, overall_sensation, overall_comfort, regime, selected, degenerate)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id.String(), r.Step, r.Time, r.OverallSensation, r.OverallComfort, r.Regime, r.Selected, r.Degenerate); err != nil {
			return fmt.Errorf("failed to insert result %d: %w", r.Step, err)
		}
	}
	for _, seg := range segments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO result_segments (run_id, step, segment, sensation, comfort) VALUES (?, ?, ?, ?, ?)`,
			id.String(), seg.Step, seg.Segment, seg.Sensation, seg.Comfort); err != nil {
			return fmt.Errorf("failed to insert result %d segment %s: %w", seg.Step, seg.Segment, err)
		}
	}
	return nil
}

// LoadResults returns the stored results of a run in step order
func (s *Store) LoadResults(ctx context.Context, id uuid.UUID) ([]evaluator.StepResult, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, time, overall_sensation, overall_comfort, regime, selected, degenerate
		 FROM results WHERE run_id = ? ORDER BY step`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	var results []storage.ResultRow
	for rows.Next() {
		var r storage.ResultRow
		if err := rows.Scan(&r.Step, &r.Time, &r.OverallSensation, &r.OverallComfort, &r.Regime, &r.Selected, &r.Degenerate); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		results = append(results, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT step, segment, sensation, comfort FROM result_segments WHERE run_id = ?`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query result segments: %w", err)
	}
	defer rows.Close()
	var segments []storage.SegmentRow
	for rows.Next() {
		var seg storage.SegmentRow
		if err := rows.Scan(&seg.Step, &seg.Segment, &seg.Sensation, &seg.Comfort); err != nil {
			return nil, fmt.Errorf("failed to scan result segment row: %w", err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return storage.AssembleResults(results, segments)
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
