// Package evaluator runs the comfort model over whole simulation time series.
package evaluator

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/thermalcomfort/pkg/comfort"
	"github.com/chrissnell/thermalcomfort/pkg/jos3"
)

// StepResult is the comfort model output at one time step
type StepResult struct {
	Time float64 `json:"time"`
	*comfort.Result
}

// Evaluator evaluates time series of comfort inputs. Every step is an
// independent evaluation against the same read-only tables.
type Evaluator struct {
	tables  *comfort.Tables
	workers int
	logger  *zap.SugaredLogger
}

// New creates an Evaluator. workers <= 0 means one worker per CPU.
func New(tables *comfort.Tables, workers int, logger *zap.SugaredLogger) *Evaluator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Evaluator{
		tables:  tables,
		workers: workers,
		logger:  logger,
	}
}

// Tables returns the coefficient tables the evaluator reads
func (e *Evaluator) Tables() *comfort.Tables {
	return e.tables
}

// EvaluateSteps evaluates every step and returns the results in step order. The
// first failing step cancels the rest.
func (e *Evaluator) EvaluateSteps(ctx context.Context, steps []jos3.Step) ([]StepResult, error) {
	results := make([]StepResult, len(steps))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range steps {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := comfort.Evaluate(e.tables, steps[i].Input)
			if err != nil {
				return fmt.Errorf("step %d (t=%gs): %w", i, steps[i].Time, err)
			}
			if res.Degenerate {
				e.logger.Debugw("overall sensation fell back to the unweighted mean",
					"time", steps[i].Time, "overall_sensation", res.OverallSensation)
			}
			results[i] = StepResult{Time: steps[i].Time, Result: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Debugf("evaluated %d steps with %d workers", len(steps), e.workers)
	return results, nil
}

// EvaluateRecords differentiates a JOS-3 record series and evaluates every step
func (e *Evaluator) EvaluateRecords(ctx context.Context, records []jos3.Record) ([]StepResult, error) {
	steps, err := jos3.Steps(records)
	if err != nil {
		return nil, err
	}
	return e.EvaluateSteps(ctx, steps)
}
