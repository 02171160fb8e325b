// Package main provides the parameter-sweep optimizer. It runs every
// configuration of a sweep grid over one or more traces and reports a
// cheapest near-optimal configuration per trace.
package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/sarchlab/procsim/insts"
	"github.com/sarchlab/procsim/sweep"
)

func main() {
	app := &cli.App{
		Name:      "procopt",
		Usage:     "sweep pipeline configurations to find a cheapest near-optimal one",
		ArgsUsage: "<trace file>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a sweep grid JSON file",
			},
			&cli.StringFlag{
				Name:  "o",
				Value: "procopt.out",
				Usage: "output report path",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no trace files specified")
	}

	config := sweep.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if config, err = sweep.LoadConfig(path); err != nil {
			return err
		}
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	decoder := insts.NewDecoder()

	var results []*sweep.Result
	for _, tracePath := range c.Args().Slice() {
		program, err := decoder.DecodeFile(tracePath)
		if err != nil {
			return err
		}

		result, err := sweep.Sweep(c.Context, tracePath, program, config, logger)
		if err != nil {
			return errors.Wrapf(err, "sweeping %s", tracePath)
		}

		results = append(results, result)
	}

	out, err := os.Create(c.String("o"))
	if err != nil {
		return errors.Wrap(err, "creating sweep report")
	}
	defer out.Close()

	return sweep.WriteReport(out, results)
}
