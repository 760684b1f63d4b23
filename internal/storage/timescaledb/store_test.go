package timescaledb

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/chrissnell/thermalcomfort/internal/database"
	"github.com/chrissnell/thermalcomfort/internal/evaluator"
	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/pkg/comfort"
	"github.com/chrissnell/thermalcomfort/pkg/jos3"
)

// These tests need a PostgreSQL or TimescaleDB server, for example
// TIMESCALEDB_TEST_DSN="host=localhost user=postgres dbname=comfort_test sslmode=disable".

func openStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TIMESCALEDB_TEST_DSN")
	if dsn == "" {
		t.Skip("TIMESCALEDB_TEST_DSN not set")
	}

	s, err := New(context.Background(), dsn, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// purge removes every row of the given runs once the test ends
func purge(t *testing.T, s *Store, ids ...uuid.UUID) {
	t.Cleanup(func() {
		for _, id := range ids {
			for _, m := range []any{&database.ResultSegment{}, &database.Result{}, &database.SampleZone{}, &database.Sample{}} {
				s.db.Where("run_id = ?", id).Delete(m)
			}
			s.db.Where("id = ?", id).Delete(&database.Run{})
		}
	})
}

func testRecords() []jos3.Record {
	var out []jos3.Record
	for i, skin := range []float64{33, 32.6, 32.1, 31.9} {
		r := jos3.Record{
			Time:     float64(i) * 60,
			MeanSkin: skin,
			Skin:     make(map[jos3.Zone]float64),
			Core:     make(map[jos3.Zone]float64),
		}
		for j, z := range jos3.Zones() {
			r.Skin[z] = skin - 0.05*float64(j)
			r.Core[z] = 37 - 0.02*float64(i)
		}
		out = append(out, r)
	}
	return out
}

func testResults(t *testing.T) []evaluator.StepResult {
	t.Helper()
	ev := evaluator.New(comfort.ReferenceTables(), 2, zaptest.NewLogger(t).Sugar())
	results, err := ev.EvaluateRecords(context.Background(), testRecords())
	if err != nil {
		t.Fatalf("EvaluateRecords: %v", err)
	}
	return results
}

func TestStoreRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	run, err := s.CreateRun(ctx, "cold cabin", "calibrated")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	purge(t, s, run.ID)

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Name != "cold cabin" || got.Variant != "calibrated" || got.Steps != 0 {
		t.Errorf("GetRun = %+v", got)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	found := false
	for _, r := range runs {
		found = found || r.ID == run.ID
	}
	if !found {
		t.Errorf("ListRuns does not include %s", run.ID)
	}

	if _, err := s.GetRun(ctx, uuid.New()); !errors.Is(err, storage.ErrRunNotFound) {
		t.Errorf("GetRun(unknown) = %v, expected ErrRunNotFound", err)
	}
	if err := s.SaveSamples(ctx, uuid.New(), testRecords()); !errors.Is(err, storage.ErrRunNotFound) {
		t.Errorf("SaveSamples(unknown) = %v, expected ErrRunNotFound", err)
	}
}

func TestStoreSamplesAndResults(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	run, err := s.CreateRun(ctx, "round trip", "baseline")
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	purge(t, s, run.ID)

	records := testRecords()
	// saving twice replaces the first set
	if err := s.SaveSamples(ctx, run.ID, records[:2]); err != nil {
		t.Fatalf("SaveSamples: %v", err)
	}
	if err := s.SaveSamples(ctx, run.ID, records); err != nil {
		t.Fatalf("SaveSamples: %v", err)
	}
	loaded, err := s.LoadSamples(ctx, run.ID)
	if err != nil {
		t.Fatalf("LoadSamples: %v", err)
	}
	if len(loaded) != len(records) {
		t.Fatalf("loaded %d records, expected %d", len(loaded), len(records))
	}
	for i := range records {
		if loaded[i].Time != records[i].Time || loaded[i].Skin[jos3.LFoot] != records[i].Skin[jos3.LFoot] {
			t.Errorf("record %d = %+v", i, loaded[i])
		}
	}

	results := testResults(t)
	if err := s.SaveResults(ctx, run.ID, results); err != nil {
		t.Fatalf("SaveResults: %v", err)
	}
	got, err := s.GetRun(ctx, run.ID)
	if err != nil || got.Steps != len(results) {
		t.Fatalf("GetRun = %+v, %v", got, err)
	}

	out, err := s.LoadResults(ctx, run.ID)
	if err != nil {
		t.Fatalf("LoadResults: %v", err)
	}
	if len(out) != len(results) {
		t.Fatalf("loaded %d results, expected %d", len(out), len(results))
	}
	for i := range results {
		if out[i].Time != results[i].Time || out[i].OverallComfort != results[i].OverallComfort ||
			out[i].Regime != results[i].Regime || len(out[i].LocalComfort) != len(results[i].LocalComfort) {
			t.Errorf("result %d = %+v, expected %+v", i, out[i].Result, results[i].Result)
		}
	}
}

func TestStoreSaveRun(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	results := testResults(t)

	run := storage.NewRun("atomic", "calibrated")
	purge(t, s, run.ID)
	if err := s.SaveRun(ctx, run, testRecords(), results); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if run.Steps != len(results) {
		t.Errorf("run.Steps = %d, expected %d", run.Steps, len(results))
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil || got.Steps != len(results) {
		t.Fatalf("GetRun = %+v, %v", got, err)
	}
	if out, err := s.LoadResults(ctx, run.ID); err != nil || len(out) != len(results) {
		t.Errorf("LoadResults = %d results, %v", len(out), err)
	}
}

func TestStoreSaveRunRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	run := storage.NewRun("doomed", "calibrated")
	purge(t, s, run.ID)

	// A segment row already holding the first result's key makes the last insert fail.
	conflict := database.ResultSegment{RunID: run.ID, SegmentRow: storage.SegmentRow{Step: 1, Segment: string(comfort.Head)}}
	if err := s.db.Create(&conflict).Error; err != nil {
		t.Fatalf("planting conflicting row: %v", err)
	}

	if err := s.SaveRun(ctx, run, testRecords(), testResults(t)); err == nil {
		t.Fatal("expected SaveRun to fail")
	}
	if _, err := s.GetRun(ctx, run.ID); !errors.Is(err, storage.ErrRunNotFound) {
		t.Errorf("GetRun after failed save = %v, expected ErrRunNotFound", err)
	}

	var samples int64
	if err := s.db.Model(&database.Sample{}).Where("run_id = ?", run.ID).Count(&samples).Error; err != nil {
		t.Fatalf("counting samples: %v", err)
	}
	if samples != 0 {
		t.Errorf("failed save left %d samples behind", samples)
	}
}
