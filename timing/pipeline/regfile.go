package pipeline

import "github.com/sarchlab/procsim/insts"

// TagNone marks an absent rename tag.
const TagNone = -1

// Register is one architectural register with its rename state.
type Register struct {
	// Num is the register number.
	Num int
	// Tag identifies the youngest producer renamed onto the register, or
	// TagNone when there is none. The tag stays in place after that
	// producer's write; Ready tells whether the value is available.
	Tag int
	// Value is the last value written. Results carry no real semantics, so
	// the value only matters for plumbing.
	Value int
	// Ready is false while an in-flight producer owns the register.
	Ready bool
}

// RegFile is the architectural register file with rename tags.
type RegFile struct {
	regs [insts.NumRegs]Register
}

// NewRegFile creates a register file with every register ready.
func NewRegFile() *RegFile {
	rf := &RegFile{}
	for i := range rf.regs {
		rf.regs[i] = Register{Num: i, Tag: TagNone, Value: -1, Ready: true}
	}
	return rf
}

// Rename points reg at a new in-flight producer identified by tag.
func (rf *RegFile) Rename(reg, tag int) {
	rf.regs[reg].Tag = tag
	rf.regs[reg].Ready = false
}

// Read returns the rename state of a source register.
func (rf *RegFile) Read(reg int) (ready bool, value, tag int) {
	r := &rf.regs[reg]
	return r.Ready, r.Value, r.Tag
}

// Write commits a broadcast to the register file. A stale broadcast, whose
// rename has been overwritten by a younger producer, is silently ignored.
func (rf *RegFile) Write(reg, tag, value int) {
	r := &rf.regs[reg]
	if r.Tag != tag {
		return
	}

	r.Value = value
	r.Ready = true
}

// Restore rewrites a register's rename state directly. Used when a squash
// re-points a register at its youngest surviving producer.
func (rf *RegFile) Restore(reg, tag int, ready bool) {
	rf.regs[reg].Tag = tag
	rf.regs[reg].Ready = ready
}

// Reg returns a copy of the register's current state.
func (rf *RegFile) Reg(reg int) Register {
	return rf.regs[reg]
}
