// Package pipeline provides a cycle-accurate model of an out-of-order
// superscalar pipeline based on Tomasulo's algorithm with a reorder buffer.
//
// The pipeline implements five stages:
//   - Fetch (IF): read trace records into the dispatch queue
//   - Dispatch (DISP): rename, predict branches, reserve a station
//   - Schedule (SCHED): wake up and issue to a functional unit
//   - Execute (EXEC): single-cycle execution, broadcast on a result bus
//   - State Update (STATE): write the register file, complete in the ROB
//
// Features:
//   - Register renaming with monotonically allocated tags
//   - Tag-ordered wake-up, issue and writeback arbitration
//   - GShare branch prediction with speculative fetch-and-squash
//   - In-order retirement through the reorder buffer
package pipeline

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/procsim/insts"
)

// Config holds the structural parameters of the pipeline.
type Config struct {
	// R is the number of result buses.
	R int
	// F is the fetch and dispatch width.
	F int
	// J, K, L are the counts of type-0, type-1 and type-2 functional
	// units.
	J int
	K int
	L int
}

// SchedQueueSize returns the scheduling-queue capacity, 2*(J+K+L).
func (c Config) SchedQueueSize() int {
	return 2 * (c.J + c.K + c.L)
}

// Validate reports configuration errors. An invalid configuration must be
// rejected before the core is entered.
func (c Config) Validate() error {
	if c.F < 1 {
		return errors.Errorf("fetch width F must be at least 1, got %d", c.F)
	}
	if c.R < 1 {
		return errors.Errorf("result bus count R must be at least 1, got %d", c.R)
	}
	if c.J < 0 || c.K < 0 || c.L < 0 {
		return errors.Errorf(
			"FU counts must be nonnegative, got J=%d K=%d L=%d", c.J, c.K, c.L)
	}
	if c.SchedQueueSize() == 0 {
		return errors.New("scheduling queue size would be zero; need at least one FU")
	}
	return nil
}

// SpecMode is the speculating-mode state machine: None -> Taken | NotTaken
// -> None. While active, fetch produces shadow instructions and dispatch is
// suppressed until the mispredicting branch resolves.
type SpecMode int

// Speculating modes.
const (
	SpecNone SpecMode = iota
	SpecTaken
	SpecNotTaken
)

func specModeFor(predictedTaken bool) SpecMode {
	if predictedTaken {
		return SpecTaken
	}
	return SpecNotTaken
}

// Pipeline is one simulated processor pipeline over a decoded trace.
type Pipeline struct {
	config  Config
	program []insts.Instruction

	predictor *GShare
	regFile   *RegFile
	schedQ    *SchedQueue
	fuTable   *FUTable
	buses     *BusSet
	rob       *ROB

	// dispatchQ holds fetched record indices awaiting dispatch.
	dispatchQ []int

	schedule stageQueue
	execute  stageQueue
	update   stageQueue

	// records is the status ledger: one row per fetched instance,
	// dummies included.
	records      []instRecord
	retiredOrder []int

	clock    uint64
	fetchPtr int
	nextTag  int

	specMode      SpecMode
	specBranchTag int

	issued          uint64
	totalBranches   uint64
	correctBranches uint64
	totalDispSize   uint64
	maxDispSize     uint64

	checkInvariants bool
}

// Option is a functional option for configuring the Pipeline.
type Option func(*Pipeline)

// WithPredictor overrides the default GShare geometry.
func WithPredictor(config GShareConfig) Option {
	return func(p *Pipeline) {
		p.predictor = NewGShare(config)
	}
}

// WithInvariantChecks makes Tick verify the structural invariants at every
// cycle boundary and panic on a violation. Violations indicate a simulator
// bug, never a data condition.
func WithInvariantChecks() Option {
	return func(p *Pipeline) {
		p.checkInvariants = true
	}
}

// NewPipeline creates a pipeline over a decoded trace.
func NewPipeline(
	program []insts.Instruction,
	config Config,
	opts ...Option,
) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "pipeline configuration")
	}
	if len(program) == 0 {
		return nil, errors.New("empty trace")
	}

	p := &Pipeline{
		config:        config,
		program:       program,
		predictor:     NewGShare(DefaultGShareConfig()),
		regFile:       NewRegFile(),
		schedQ:        NewSchedQueue(config.SchedQueueSize()),
		fuTable:       NewFUTable(config.J, config.K, config.L),
		buses:         NewBusSet(config.R),
		rob:           NewROB(),
		specBranchTag: TagNone,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Config returns the structural parameters.
func (p *Pipeline) Config() Config {
	return p.config
}

// Clock returns the current cycle number.
func (p *Pipeline) Clock() uint64 {
	return p.clock
}

// Done reports whether every trace instruction has retired.
func (p *Pipeline) Done() bool {
	return len(p.retiredOrder) == len(p.program)
}

// Speculating reports whether the pipeline is currently fetching a shadow
// stream behind an unresolved mispredicted branch.
func (p *Pipeline) Speculating() bool {
	return p.specMode != SpecNone
}

// DispatchQueueLen returns the current dispatch-queue occupancy.
func (p *Pipeline) DispatchQueueLen() int {
	return len(p.dispatchQ)
}

// Run advances the pipeline until every trace instruction has retired and
// returns the final statistics.
func (p *Pipeline) Run() Stats {
	for !p.Done() {
		p.Tick()
	}
	return p.Stats()
}

// Stats holds aggregate throughput and prediction statistics.
type Stats struct {
	// Cycles is the total run time. The run loop needs one trailing cycle
	// to observe the last retirement, so this is clock-1: the one-based
	// state-update cycle of the last retired instruction.
	Cycles uint64
	// Retired is the number of retired trace instructions.
	Retired uint64
	// Issued counts every issue to a functional unit, speculative work
	// included.
	Issued uint64

	// TotalBranches and CorrectBranches count resolved branches.
	TotalBranches   uint64
	CorrectBranches uint64
	// PredictionAccuracy is CorrectBranches/TotalBranches, 0 with no
	// branches.
	PredictionAccuracy float64

	// Dispatch-queue pressure, sampled once per cycle.
	AvgDispatchSize float64
	MaxDispatchSize uint64

	// Per-cycle averages.
	AvgIssuedPerCycle  float64
	AvgRetiredPerCycle float64
}

// Stats returns the statistics of the run so far.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Retired:         uint64(len(p.retiredOrder)),
		Issued:          p.issued,
		TotalBranches:   p.totalBranches,
		CorrectBranches: p.correctBranches,
		MaxDispatchSize: p.maxDispSize,
	}

	if p.clock > 0 {
		s.Cycles = p.clock - 1
	}

	if s.TotalBranches > 0 {
		s.PredictionAccuracy =
			float64(s.CorrectBranches) / float64(s.TotalBranches)
	}

	if s.Cycles > 0 {
		s.AvgDispatchSize = float64(p.totalDispSize) / float64(s.Cycles)
		s.AvgIssuedPerCycle = float64(s.Issued) / float64(s.Cycles)
		s.AvgRetiredPerCycle = float64(s.Retired) / float64(s.Cycles)
	}

	return s
}

// Timelines returns the per-stage entry cycles of every retired instruction
// in retirement order, which equals program order. Squashed shadow work is
// not included.
func (p *Pipeline) Timelines() []Timeline {
	timelines := make([]Timeline, 0, len(p.retiredOrder))

	for _, idx := range p.retiredOrder {
		rec := &p.records[idx]
		timelines = append(timelines, Timeline{
			IP:     rec.ip,
			Cycles: rec.stageCycles,
		})
	}

	return timelines
}

// newRecord appends a status-ledger row for a freshly fetched instance and
// returns its index.
func (p *Pipeline) newRecord(inst insts.Instruction, ip int, dummy bool) int {
	idx := len(p.records)

	rec := instRecord{
		idx:         idx,
		ip:          ip,
		inst:        inst,
		tag:         TagNone,
		dummy:       dummy,
		speculative: dummy,
	}
	for i := range rec.stageCycles {
		rec.stageCycles[i] = CycleNone
	}

	p.records = append(p.records, rec)
	return idx
}

// stamp records the cycle a record entered a stage.
func (p *Pipeline) stamp(instIdx int, stage Stage) {
	p.records[instIdx].stageCycles[stage] = int64(p.clock)
}
