// Package sweep runs a processor simulation across a grid of structural
// configurations and picks a cheapest configuration that stays within a
// target fraction of the best throughput.
package sweep

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/sarchlab/procsim/insts"
	"github.com/sarchlab/procsim/timing/core"
	"github.com/sarchlab/procsim/timing/pipeline"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run is the outcome of one simulated configuration.
type Run struct {
	Config pipeline.Config

	// IPC is the average number of instructions retired per cycle.
	IPC float64

	// PredictionAccuracy is the branch-prediction accuracy of the run.
	PredictionAccuracy float64
}

// Cost is the hardware-cost proxy used to rank near-optimal candidates.
func (r Run) Cost() int {
	return r.Config.J + r.Config.K + r.Config.L + r.Config.R
}

// Result summarises a sweep over one trace.
type Result struct {
	// Trace is the trace name the sweep ran on.
	Trace string

	// Runs holds every configuration outcome in grid order.
	Runs []Run

	// Best is the run with the highest IPC.
	Best Run

	// Candidates are the runs within the target ratio of Best, ordered by
	// descending IPC.
	Candidates []Run

	// Cheapest is the candidate with the lowest hardware cost.
	Cheapest Run
}

// Sweep simulates the whole grid over a decoded trace. Each configuration
// owns its own pipeline and shares nothing, so simulations fan out across
// workers.
func Sweep(
	ctx context.Context,
	trace string,
	program []insts.Instruction,
	config *Config,
	logger *zap.Logger,
) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	grid := config.Grid()
	runs := make([]Run, len(grid))

	logger.Info("sweeping trace",
		zap.String("trace", trace),
		zap.Int("configurations", len(grid)))

	g, ctx := errgroup.WithContext(ctx)
	if config.Workers > 0 {
		g.SetLimit(config.Workers)
	}

	for i, pipeConfig := range grid {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			c, err := core.NewCore(program, pipeConfig)
			if err != nil {
				return err
			}

			stats := c.Run()
			runs[i] = Run{
				Config:             pipeConfig,
				IPC:                stats.AvgRetiredPerCycle,
				PredictionAccuracy: stats.PredictionAccuracy,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := rank(trace, runs, config.TargetRatio)

	logger.Info("sweep finished",
		zap.String("trace", trace),
		zap.Float64("best_ipc", result.Best.IPC),
		zap.Any("cheapest", result.Cheapest.Config))

	return result, nil
}

// rank sorts the runs by IPC, keeps the near-optimal candidates, and picks
// the cheapest among them. Ties break by grid order so results stay
// deterministic.
func rank(trace string, runs []Run, targetRatio float64) *Result {
	result := &Result{Trace: trace, Runs: runs}

	byIPC := make([]Run, len(runs))
	copy(byIPC, runs)
	sort.SliceStable(byIPC, func(i, j int) bool {
		return byIPC[i].IPC > byIPC[j].IPC
	})
	result.Best = byIPC[0]

	for _, r := range byIPC {
		if r.IPC > targetRatio*result.Best.IPC {
			result.Candidates = append(result.Candidates, r)
		}
	}

	cheapest := result.Candidates[0]
	for _, r := range result.Candidates[1:] {
		if r.Cost() < cheapest.Cost() {
			cheapest = r
		}
	}
	result.Cheapest = cheapest

	return result
}

// WriteReport renders the per-trace sweep summaries.
func WriteReport(w io.Writer, results []*Result) error {
	for _, result := range results {
		if err := writeResult(w, result); err != nil {
			return err
		}
	}
	return nil
}

func writeResult(w io.Writer, result *Result) error {
	if _, err := fmt.Fprintf(w, "# Results for %s\n", result.Trace); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w,
		"====================================================\n\n"); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "* Near-best configurations (best IPC %f)\n",
		result.Best.IPC); err != nil {
		return err
	}
	for _, r := range result.Candidates {
		if err := writeRun(w, r, result.Best.IPC); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "\n* Cheapest Configuration\n"); err != nil {
		return err
	}
	if err := writeRun(w, result.Cheapest, result.Best.IPC); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w,
		"====================================================\n\n")
	return err
}

func writeRun(w io.Writer, r Run, bestIPC float64) error {
	_, err := fmt.Fprintf(w,
		"- F: %d J: %d K: %d L: %d R: %d\n"+
			"--- Prediction accuracy: %.2f%%\n"+
			"--- IPC: %f (%.2f%% of best)\n",
		r.Config.F, r.Config.J, r.Config.K, r.Config.L, r.Config.R,
		r.PredictionAccuracy*100,
		r.IPC, r.IPC/bestIPC*100)
	return err
}
