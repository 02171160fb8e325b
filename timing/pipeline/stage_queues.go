package pipeline

import (
	"sort"

	"github.com/sarchlab/procsim/insts"
)

// Stage identifies a pipeline stage for the status ledger.
type Stage int

// Pipeline stages in flow order.
const (
	StageFetch Stage = iota
	StageDispatch
	StageSchedule
	StageExecute
	StageStateUpdate

	// NumStages is the number of ledger stages.
	NumStages
)

// String returns the stage name as printed in reports.
func (s Stage) String() string {
	switch s {
	case StageFetch:
		return "FETCH"
	case StageDispatch:
		return "DISP"
	case StageSchedule:
		return "SCHED"
	case StageExecute:
		return "EXEC"
	case StageStateUpdate:
		return "STATE"
	}
	return "UNKNOWN"
}

// CycleNone marks a stage an instruction never reached.
const CycleNone int64 = -1

// PipelineEntry is a stage work-list ticket. Stage queues hold tickets
// referring to a reservation station by index; the station never points
// back.
type PipelineEntry struct {
	InstIdx int
	RSIdx   int
	Tag     int

	// ReadyCycle is the first cycle the ticket may be consumed.
	ReadyCycle uint64

	Speculative bool
}

// stageQueue is an ordered work list for one pipeline stage.
type stageQueue struct {
	entries []PipelineEntry
}

// push admits a ticket to the queue.
func (q *stageQueue) push(e PipelineEntry) {
	q.entries = append(q.entries, e)
}

// sorted returns the tickets ordered by (ready cycle, tag). Queues are
// sorted before each consumer step so ties always break by tag.
func (q *stageQueue) sorted() []PipelineEntry {
	sort.Slice(q.entries, func(i, j int) bool {
		a, b := q.entries[i], q.entries[j]
		if a.ReadyCycle != b.ReadyCycle {
			return a.ReadyCycle < b.ReadyCycle
		}
		return a.Tag < b.Tag
	})

	out := make([]PipelineEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

// remove drops the ticket for the given instruction record.
func (q *stageQueue) remove(instIdx int) {
	for i := range q.entries {
		if q.entries[i].InstIdx == instIdx {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// contains reports whether a live ticket exists for the instruction record.
func (q *stageQueue) contains(instIdx int) bool {
	for i := range q.entries {
		if q.entries[i].InstIdx == instIdx {
			return true
		}
	}
	return false
}

// dropSpeculative removes every speculative ticket and returns the removed
// instruction record indices.
func (q *stageQueue) dropSpeculative() []int {
	var dropped []int

	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.Speculative {
			dropped = append(dropped, e.InstIdx)
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept

	return dropped
}

// len returns the number of live tickets.
func (q *stageQueue) len() int {
	return len(q.entries)
}

// instRecord is one status-ledger row: a fetched instruction instance,
// real or dummy. A real trace line squashed from a fetch group produces a
// fresh record when it is fetched again.
type instRecord struct {
	idx  int
	ip   int
	inst insts.Instruction

	tag int

	dummy       bool
	speculative bool
	squashed    bool
	retired     bool

	stageCycles [NumStages]int64
}

// Timeline reports the per-stage entry cycles of one retired instruction.
type Timeline struct {
	// IP is the original trace position.
	IP int
	// Cycles holds the zero-based cycle each stage was entered, indexed by
	// Stage.
	Cycles [NumStages]int64
}
