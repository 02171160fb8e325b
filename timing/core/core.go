// Package core provides the cycle-accurate processor core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"github.com/sarchlab/procsim/insts"
	"github.com/sarchlab/procsim/timing/pipeline"
)

// Core represents one simulated processor core over a decoded trace.
// It wraps an out-of-order pipeline and provides a simple interface for
// driving a simulation.
type Core struct {
	// Pipeline is the underlying out-of-order pipeline.
	Pipeline *pipeline.Pipeline
}

// NewCore creates a Core simulating the given trace with the given
// structural configuration.
func NewCore(
	program []insts.Instruction,
	config pipeline.Config,
	opts ...pipeline.Option,
) (*Core, error) {
	p, err := pipeline.NewPipeline(program, config, opts...)
	if err != nil {
		return nil, err
	}

	return &Core{Pipeline: p}, nil
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Done returns true if every trace instruction has retired.
func (c *Core) Done() bool {
	return c.Pipeline.Done()
}

// Run executes the core until the whole trace has retired.
// Returns the final statistics.
func (c *Core) Run() pipeline.Stats {
	return c.Pipeline.Run()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() pipeline.Stats {
	return c.Pipeline.Stats()
}

// Timelines returns the per-stage cycle log of every retired instruction.
func (c *Core) Timelines() []pipeline.Timeline {
	return c.Pipeline.Timelines()
}
