// run-backup exports stored runs to a msgpack archive and imports them back,
// possibly into a different storage backend. Imported runs are re-evaluated
// from their samples under the variant they were stored with.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/thermalcomfort/internal/constants"
	"github.com/chrissnell/thermalcomfort/internal/evaluator"
	"github.com/chrissnell/thermalcomfort/internal/log"
	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/internal/storage/backend"
	"github.com/chrissnell/thermalcomfort/pkg/comfort"
	"github.com/chrissnell/thermalcomfort/pkg/config"
	"github.com/chrissnell/thermalcomfort/pkg/jos3"
)

// Archive is the on-disk backup format
type Archive struct {
	Version   int           `msgpack:"version"`
	CreatedAt time.Time     `msgpack:"created_at"`
	Runs      []ArchivedRun `msgpack:"runs"`
}

// ArchivedRun is one run and the samples it was evaluated from
type ArchivedRun struct {
	ID        string        `msgpack:"id"`
	Name      string        `msgpack:"name"`
	Variant   string        `msgpack:"variant"`
	CreatedAt time.Time     `msgpack:"created_at"`
	Records   []jos3.Record `msgpack:"records"`
}

func main() {
	var (
		cfgFile    = flag.String("config", "config.yaml", "Path to the YAML configuration file")
		exportFile = flag.String("export", "", "Write an archive of stored runs to this file")
		importFile = flag.String("import", "", "Restore runs from this archive")
		runs       = flag.String("runs", "", "Comma-separated run IDs to export; default is every run")
		debug      = flag.Bool("debug", false, "Turn on debugging output")
	)
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if (*exportFile == "") == (*importFile == "") {
		log.Fatalf("exactly one of -export or -import is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filename, _ := filepath.Abs(*cfgFile)
	cfg, err := config.NewYAMLProvider(filename).LoadConfig()
	if err != nil {
		log.Fatalf("error reading config file: %v", err)
	}

	store, backendName, err := backend.New(ctx, &cfg.Storage, log.GetSugaredLogger())
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer store.Close()

	if *exportFile != "" {
		ids, err := parseIDs(*runs)
		if err != nil {
			log.Fatalf("%v", err)
		}
		f, err := os.Create(*exportFile)
		if err != nil {
			log.Fatalf("error creating archive: %v", err)
		}
		n, err := exportRuns(ctx, store, ids, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			log.Fatalf("export failed: %v", err)
		}
		fmt.Printf("exported %d runs from %s to %s\n", n, backendName, *exportFile)
		return
	}

	f, err := os.Open(*importFile)
	if err != nil {
		log.Fatalf("error opening archive: %v", err)
	}
	defer f.Close()

	restored, err := importRuns(ctx, store, f, cfg.Evaluator.Workers)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}
	for _, r := range restored {
		fmt.Printf("restored %s (%s, %s variant, %d steps)\n", r.ID, r.Name, r.Variant, r.Steps)
	}
}

func parseIDs(s string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid run id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// exportRuns writes the named runs, or every run when ids is empty, to w
func exportRuns(ctx context.Context, store storage.Store, ids []uuid.UUID, w io.Writer) (int, error) {
	if len(ids) == 0 {
		runs, err := store.ListRuns(ctx)
		if err != nil {
			return 0, err
		}
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
	}

	archive := Archive{Version: constants.ArchiveVersion, CreatedAt: time.Now().UTC()}
	for _, id := range ids {
		run, err := store.GetRun(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("run %s: %w", id, err)
		}
		records, err := store.LoadSamples(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("run %s samples: %w", id, err)
		}
		archive.Runs = append(archive.Runs, ArchivedRun{
			ID:        run.ID.String(),
			Name:      run.Name,
			Variant:   run.Variant,
			CreatedAt: run.CreatedAt,
			Records:   records,
		})
		log.Debugf("archived run %s with %d samples", run.ID, len(records))
	}

	if err := msgpack.NewEncoder(w).Encode(&archive); err != nil {
		return 0, fmt.Errorf("error encoding archive: %w", err)
	}
	return len(archive.Runs), nil
}

// importRuns stores every run in the archive read from r under a new ID
func importRuns(ctx context.Context, store storage.Store, r io.Reader, workers int) ([]*storage.Run, error) {
	var archive Archive
	if err := msgpack.NewDecoder(r).Decode(&archive); err != nil {
		return nil, fmt.Errorf("error decoding archive: %w", err)
	}
	if archive.Version != constants.ArchiveVersion {
		return nil, fmt.Errorf("unsupported archive version %d", archive.Version)
	}

	evaluators := make(map[comfort.Variant]*evaluator.Evaluator)
	var restored []*storage.Run
	for _, ar := range archive.Runs {
		v, err := comfort.ParseVariant(ar.Variant)
		if err != nil {
			return restored, fmt.Errorf("run %s: %w", ar.ID, err)
		}
		ev, ok := evaluators[v]
		if !ok {
			tables, err := comfort.TablesFor(v)
			if err != nil {
				return restored, err
			}
			ev = evaluator.New(tables, workers, log.GetSugaredLogger())
			evaluators[v] = ev
		}

		var results []evaluator.StepResult
		if len(ar.Records) > 0 {
			results, err = ev.EvaluateRecords(ctx, ar.Records)
			if err != nil && !errors.Is(err, jos3.ErrTooFewRecords) {
				return restored, fmt.Errorf("run %s: %w", ar.ID, err)
			}
		}

		run := storage.NewRun(ar.Name, string(v))
		if err := store.SaveRun(ctx, run, ar.Records, results); err != nil {
			return restored, fmt.Errorf("run %s: %w", ar.ID, err)
		}

		log.Infof("restored run %s as %s", ar.ID, run.ID)
		restored = append(restored, run)
	}
	return restored, nil
}
