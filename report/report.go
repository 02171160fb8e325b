// Package report renders the per-instruction timing table and the aggregate
// statistics block written next to the input trace.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sarchlab/procsim/timing/pipeline"
)

// Write renders the full report: the processor settings header, one line
// per retired instruction with one-based stage cycles, and the statistics
// block. Identical runs produce byte-identical output.
func Write(
	w io.Writer,
	config pipeline.Config,
	timelines []pipeline.Timeline,
	stats pipeline.Stats,
) error {
	if err := writeSettings(w, config); err != nil {
		return err
	}
	if err := writeTable(w, timelines); err != nil {
		return err
	}
	return writeStats(w, stats)
}

// WriteFile writes the report to the given path.
func WriteFile(
	path string,
	config pipeline.Config,
	timelines []pipeline.Timeline,
	stats pipeline.Stats,
) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating report file")
	}

	if err := Write(f, config, timelines, stats); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing report %s", path)
	}

	return errors.Wrapf(f.Close(), "closing report %s", path)
}

func writeSettings(w io.Writer, config pipeline.Config) error {
	_, err := fmt.Fprintf(w,
		"Processor Settings\nR: %d\nk0: %d\nk1: %d\nk2: %d\nF: %d\n\n",
		config.R, config.J, config.K, config.L, config.F)
	return err
}

func writeTable(w io.Writer, timelines []pipeline.Timeline) error {
	if _, err := fmt.Fprintf(w, "INST\tFETCH\tDISP\tSCHED\tEXEC\tSTATE\n"); err != nil {
		return err
	}

	for i, t := range timelines {
		if _, err := fmt.Fprintf(w, "%d", i+1); err != nil {
			return err
		}

		for stage := pipeline.StageFetch; stage < pipeline.NumStages; stage++ {
			if err := writeCycle(w, t.Cycles[stage]); err != nil {
				return err
			}
		}

		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w)
	return err
}

// writeCycle prints a one-based stage cycle, or the sentinel for a stage
// that was never reached.
func writeCycle(w io.Writer, cycle int64) error {
	if cycle == pipeline.CycleNone {
		_, err := fmt.Fprint(w, "\t-")
		return err
	}

	_, err := fmt.Fprintf(w, "\t%d", cycle+1)
	return err
}

func writeStats(w io.Writer, stats pipeline.Stats) error {
	_, err := fmt.Fprintf(w,
		"Processor stats:\n"+
			"Total branch instructions: %d\n"+
			"Total correct predicted branch instructions: %d\n"+
			"prediction accuracy: %f\n"+
			"Avg Dispatch queue size: %f\n"+
			"Maximum Dispatch queue size: %d\n"+
			"Avg inst Issue per cycle: %f\n"+
			"Avg inst retired per cycle: %f\n"+
			"Total run time (cycles): %d\n",
		stats.TotalBranches,
		stats.CorrectBranches,
		stats.PredictionAccuracy,
		stats.AvgDispatchSize,
		stats.MaxDispatchSize,
		stats.AvgIssuedPerCycle,
		stats.AvgRetiredPerCycle,
		stats.Cycles)
	return err
}
