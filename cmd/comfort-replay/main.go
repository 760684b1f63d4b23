// comfort-replay re-evaluates the samples of a stored run, optionally under a
// different comfort-transfer calibration, and stores the outcome as a new run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/thermalcomfort/internal/evaluator"
	"github.com/chrissnell/thermalcomfort/internal/log"
	"github.com/chrissnell/thermalcomfort/internal/storage"
	"github.com/chrissnell/thermalcomfort/internal/storage/backend"
	"github.com/chrissnell/thermalcomfort/pkg/comfort"
	"github.com/chrissnell/thermalcomfort/pkg/config"
)

func main() {
	var (
		cfgFile = flag.String("config", "config.yaml", "Path to the YAML configuration file")
		runFlag = flag.String("run", "", "ID of the run to replay")
		variant = flag.String("variant", "", "Comfort-transfer calibration for the replay; default is the configured one")
		name    = flag.String("name", "", "Name of the new run; default is derived from the source run")
		list    = flag.Bool("list", false, "List stored runs and exit")
		debug   = flag.Bool("debug", false, "Turn on debugging output")
	)
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filename, _ := filepath.Abs(*cfgFile)
	cfg, err := config.NewYAMLProvider(filename).LoadConfig()
	if err != nil {
		log.Fatalf("error reading config file: %v", err)
	}

	store, _, err := backend.New(ctx, &cfg.Storage, log.GetSugaredLogger())
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer store.Close()

	if *list {
		if err := listRuns(ctx, store); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if *runFlag == "" {
		log.Fatalf("-run is required (use -list to see stored runs)")
	}
	id, err := uuid.Parse(*runFlag)
	if err != nil {
		log.Fatalf("invalid run id %q: %v", *runFlag, err)
	}

	v := *variant
	if v == "" {
		v = cfg.Model.Variant
	}
	run, summary, err := replay(ctx, store, id, v, *name, cfg.Evaluator.Workers)
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}

	fmt.Printf("stored run %s (%s, %s variant, %d steps)\n", run.ID, run.Name, run.Variant, run.Steps)
	fmt.Printf("mean sensation %.3f, mean comfort %.3f, comfort range [%.3f, %.3f]\n",
		summary.MeanSensation, summary.MeanComfort, summary.MinComfort, summary.MaxComfort)
	fmt.Printf("%d transient steps, %d degenerate steps\n", summary.TransientSteps, summary.DegenerateSteps)
}

func replay(ctx context.Context, store storage.Store, id uuid.UUID, variant, name string, workers int) (*storage.Run, evaluator.Summary, error) {
	source, err := store.GetRun(ctx, id)
	if err != nil {
		return nil, evaluator.Summary{}, err
	}

	v, err := comfort.ParseVariant(variant)
	if err != nil {
		return nil, evaluator.Summary{}, err
	}
	tables, err := comfort.TablesFor(v)
	if err != nil {
		return nil, evaluator.Summary{}, err
	}

	records, err := store.LoadSamples(ctx, id)
	if err != nil {
		return nil, evaluator.Summary{}, err
	}
	log.Infof("replaying %d samples of run %s under the %s variant", len(records), source.Name, v)

	results, err := evaluator.New(tables, workers, log.GetSugaredLogger()).EvaluateRecords(ctx, records)
	if err != nil {
		return nil, evaluator.Summary{}, err
	}

	if name == "" {
		name = fmt.Sprintf("%s (replay, %s)", source.Name, v)
	}
	run := storage.NewRun(name, string(v))
	if err := store.SaveRun(ctx, run, records, results); err != nil {
		return nil, evaluator.Summary{}, err
	}

	return run, evaluator.Summarize(results), nil
}

func listRuns(ctx context.Context, store storage.Store) error {
	runs, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVARIANT\tSTEPS\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", r.ID, r.Name, r.Variant, r.Steps, r.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
