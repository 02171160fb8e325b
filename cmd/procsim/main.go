// Package main provides the entry point for the procsim simulator.
// It runs one pipeline configuration over a trace and writes the timing
// report next to the trace file.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/sarchlab/procsim/insts"
	"github.com/sarchlab/procsim/report"
	"github.com/sarchlab/procsim/timing/core"
	"github.com/sarchlab/procsim/timing/pipeline"
)

func main() {
	app := &cli.App{
		Name:      "procsim",
		Usage:     "cycle-accurate trace-driven out-of-order pipeline simulator",
		ArgsUsage: "[trace file]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "r", Usage: "result bus count", Required: true},
			&cli.IntFlag{Name: "f", Usage: "fetch and dispatch width", Required: true},
			&cli.IntFlag{Name: "j", Usage: "count of type-0 functional units", Required: true},
			&cli.IntFlag{Name: "k", Usage: "count of type-1 functional units", Required: true},
			&cli.IntFlag{Name: "l", Usage: "count of type-2 functional units", Required: true},
			&cli.StringFlag{Name: "i", Usage: "trace file path"},
			&cli.BoolFlag{Name: "v", Usage: "verbose output"},
			&cli.BoolFlag{Name: "check", Usage: "verify pipeline invariants every cycle"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	tracePath := c.String("i")
	if tracePath == "" && c.NArg() > 0 {
		tracePath = c.Args().Get(c.NArg() - 1)
	}
	if tracePath == "" {
		return errors.New("no trace file specified; use -i or a positional argument")
	}

	config := pipeline.Config{
		R: c.Int("r"),
		F: c.Int("f"),
		J: c.Int("j"),
		K: c.Int("k"),
		L: c.Int("l"),
	}

	program, err := insts.NewDecoder().DecodeFile(tracePath)
	if err != nil {
		return err
	}

	var opts []pipeline.Option
	if c.Bool("check") {
		opts = append(opts, pipeline.WithInvariantChecks())
	}

	simCore, err := core.NewCore(program, config, opts...)
	if err != nil {
		return err
	}

	stats := simCore.Run()

	outPath := tracePath + ".out"
	if err := report.WriteFile(outPath, config, simCore.Timelines(), stats); err != nil {
		return err
	}

	if c.Bool("v") {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()

		logger.Info("simulation complete",
			zap.String("trace", tracePath),
			zap.String("report", outPath),
			zap.Uint64("cycles", stats.Cycles),
			zap.Uint64("retired", stats.Retired),
			zap.Float64("ipc", stats.AvgRetiredPerCycle),
			zap.Float64("prediction_accuracy", stats.PredictionAccuracy))
	}

	return nil
}
