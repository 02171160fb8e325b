package pipeline

import "github.com/sarchlab/procsim/insts"

// Operand is one source slot of a reservation station.
type Operand struct {
	// Ready is true once the value is available.
	Ready bool
	// Tag is the producer tag waited on while not ready.
	Tag int
	// Value is the operand value once ready.
	Value int
}

// RS is a reservation station: one slot of the scheduling queue holding a
// dispatched instruction until it retires.
type RS struct {
	Empty bool

	FUType  int
	DestReg int
	DestTag int

	Src [2]Operand

	// InstIdx is the owning instruction record.
	InstIdx int

	// Speculative marks work dispatched past a mispredicted branch.
	Speculative bool
}

// SchedQueue is the fixed array of reservation stations. Its size is
// 2*(J+K+L).
type SchedQueue struct {
	slots []RS
}

// NewSchedQueue creates a scheduling queue of the given size.
func NewSchedQueue(size int) *SchedQueue {
	q := &SchedQueue{slots: make([]RS, size)}
	for i := range q.slots {
		q.clear(i)
	}
	return q
}

func (q *SchedQueue) clear(idx int) {
	q.slots[idx] = RS{
		Empty:   true,
		DestReg: insts.RegNone,
		DestTag: TagNone,
		InstIdx: -1,
		Src: [2]Operand{
			{Tag: TagNone, Value: -1},
			{Tag: TagNone, Value: -1},
		},
	}
}

// Insert fills the lowest-indexed empty slot for a dispatched instruction.
// Operand readiness is read from the register file at the moment of
// insertion. Returns the slot index, or false when the queue is full.
func (q *SchedQueue) Insert(
	inst insts.Instruction,
	instIdx, tag int,
	speculative bool,
	rf *RegFile,
) (int, bool) {
	idx := -1
	for i := range q.slots {
		if q.slots[i].Empty {
			idx = i
			break
		}
	}
	if idx < 0 {
		return -1, false
	}

	rs := &q.slots[idx]
	rs.Empty = false
	rs.FUType = inst.FUType
	rs.DestReg = inst.DestReg
	rs.DestTag = tag
	rs.InstIdx = instIdx
	rs.Speculative = speculative

	for i, src := range [2]int{inst.Src1Reg, inst.Src2Reg} {
		if src == insts.RegNone {
			rs.Src[i] = Operand{Ready: true, Tag: TagNone, Value: -1}
			continue
		}

		ready, value, srcTag := rf.Read(src)
		if ready {
			rs.Src[i] = Operand{Ready: true, Tag: TagNone, Value: value}
		} else {
			rs.Src[i] = Operand{Tag: srcTag}
		}
	}

	return idx, true
}

// Snoop walks every non-empty reservation station and wakes operands whose
// waited-on tag is currently broadcast on some bus. Runs before wake-up in
// the cycle sequence so that stations inserted after a broadcast began still
// catch it.
func (q *SchedQueue) Snoop(buses *BusSet) {
	for i := range q.slots {
		rs := &q.slots[i]
		if rs.Empty {
			continue
		}

		for j := range rs.Src {
			op := &rs.Src[j]
			if op.Ready {
				continue
			}

			if busIdx := buses.FindTag(op.Tag); busIdx >= 0 {
				op.Ready = true
				op.Value = buses.Bus(busIdx).Value
			}
		}
	}
}

// Broadcast wakes every operand waiting on tag the moment the tag goes on a
// bus, so a dependent instruction can issue in the same cycle its producer
// executes.
func (q *SchedQueue) Broadcast(tag, value int) {
	for i := range q.slots {
		rs := &q.slots[i]
		if rs.Empty {
			continue
		}

		for j := range rs.Src {
			op := &rs.Src[j]
			if !op.Ready && op.Tag == tag {
				op.Ready = true
				op.Value = value
			}
		}
	}
}

// Ready reports whether the station at idx has both operands available.
func (q *SchedQueue) Ready(idx int) bool {
	rs := &q.slots[idx]
	return !rs.Empty && rs.Src[0].Ready && rs.Src[1].Ready
}

// Free empties the slot at idx.
func (q *SchedQueue) Free(idx int) {
	q.clear(idx)
}

// Slot returns a pointer to the reservation station at idx.
func (q *SchedQueue) Slot(idx int) *RS {
	return &q.slots[idx]
}

// Len returns the capacity of the queue.
func (q *SchedQueue) Len() int {
	return len(q.slots)
}

// Occupied returns the number of non-empty slots.
func (q *SchedQueue) Occupied() int {
	n := 0
	for i := range q.slots {
		if !q.slots[i].Empty {
			n++
		}
	}
	return n
}
