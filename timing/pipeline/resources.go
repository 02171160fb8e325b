package pipeline

import "github.com/sarchlab/procsim/insts"

// numFUTypes is the number of functional-unit types.
const numFUTypes = 3

// NormalizeFUType maps the legacy wildcard type -1 to type 1. The mapping is
// kept for compatibility with the reference traces.
func NormalizeFUType(fuType int) int {
	if fuType == insts.FUTypeAny {
		return insts.FUType1
	}
	return fuType
}

// FU is a single-cycle execution slot of a given type.
type FU struct {
	// ID uniquely identifies the unit in the table.
	ID int
	// Type is the FU type in {0, 1, 2}.
	Type int
	// Busy is true while an issued instruction owns the unit.
	Busy bool

	// Owning instruction while busy.
	Tag     int
	DestReg int
	InstIdx int
	Value   int
}

// FUTable is the pool of functional units: J units of type 0, K of type 1
// and L of type 2.
type FUTable struct {
	units  []FU
	counts [numFUTypes]int
}

// NewFUTable creates the pool with the given per-type counts.
func NewFUTable(j, k, l int) *FUTable {
	t := &FUTable{counts: [numFUTypes]int{j, k, l}}

	id := 0
	for fuType, count := range t.counts {
		for i := 0; i < count; i++ {
			t.units = append(t.units, FU{
				ID:      id,
				Type:    fuType,
				Tag:     TagNone,
				DestReg: insts.RegNone,
				InstIdx: -1,
			})
			id++
		}
	}

	return t
}

// FindFree returns the ID of a free unit of the requested type, or -1.
// The wildcard type -1 is normalized to type 1.
func (t *FUTable) FindFree(fuType int) int {
	fuType = NormalizeFUType(fuType)

	for i := range t.units {
		if t.units[i].Type == fuType && !t.units[i].Busy {
			return t.units[i].ID
		}
	}

	return -1
}

// FindTag returns the ID of the busy unit owned by tag, or -1.
func (t *FUTable) FindTag(tag int) int {
	for i := range t.units {
		if t.units[i].Busy && t.units[i].Tag == tag {
			return t.units[i].ID
		}
	}
	return -1
}

// Occupy marks a unit busy on behalf of an issued instruction.
func (t *FUTable) Occupy(id, tag, destReg, instIdx int) {
	fu := &t.units[id]
	fu.Busy = true
	fu.Tag = tag
	fu.DestReg = destReg
	fu.InstIdx = instIdx
	fu.Value = -1
}

// Release frees a unit after its result moved to a bus.
func (t *FUTable) Release(id int) {
	t.units[id] = FU{
		ID:      id,
		Type:    t.units[id].Type,
		Tag:     TagNone,
		DestReg: insts.RegNone,
		InstIdx: -1,
	}
}

// Unit returns a pointer to the unit with the given ID.
func (t *FUTable) Unit(id int) *FU {
	return &t.units[id]
}

// Len returns the total number of units.
func (t *FUTable) Len() int {
	return len(t.units)
}

// CountOfType returns the number of units of the given type.
func (t *FUTable) CountOfType(fuType int) int {
	return t.counts[NormalizeFUType(fuType)]
}

// BusyOfType returns the number of busy units of the given type.
func (t *FUTable) BusyOfType(fuType int) int {
	n := 0
	for i := range t.units {
		if t.units[i].Type == fuType && t.units[i].Busy {
			n++
		}
	}
	return n
}

// ResultBus is one common data bus broadcasting a (tag, value, dest-reg)
// triple for a single cycle.
type ResultBus struct {
	Busy    bool
	Tag     int
	Value   int
	DestReg int
	InstIdx int
	FUID    int
}

// BusSet is the fixed pool of result buses.
type BusSet struct {
	buses []ResultBus
}

// NewBusSet creates a pool of r buses.
func NewBusSet(r int) *BusSet {
	s := &BusSet{buses: make([]ResultBus, r)}
	for i := range s.buses {
		s.buses[i] = ResultBus{Tag: TagNone, DestReg: insts.RegNone, InstIdx: -1, FUID: -1}
	}
	return s
}

// AcquireFree returns the index of a free bus, or -1. Callers request buses
// in (ready cycle, tag) order, which makes allocation oldest-first among
// instructions that became ready in the same cycle.
func (s *BusSet) AcquireFree() int {
	for i := range s.buses {
		if !s.buses[i].Busy {
			return i
		}
	}
	return -1
}

// FindTag returns the index of the busy bus broadcasting tag, or -1.
func (s *BusSet) FindTag(tag int) int {
	for i := range s.buses {
		if s.buses[i].Busy && s.buses[i].Tag == tag {
			return i
		}
	}
	return -1
}

// Bus returns a pointer to the bus at idx.
func (s *BusSet) Bus(idx int) *ResultBus {
	return &s.buses[idx]
}

// Release frees the bus at idx at the end of state update.
func (s *BusSet) Release(idx int) {
	s.buses[idx] = ResultBus{Tag: TagNone, DestReg: insts.RegNone, InstIdx: -1, FUID: -1}
}

// Len returns the number of buses.
func (s *BusSet) Len() int {
	return len(s.buses)
}

// BusyCount returns the number of busy buses.
func (s *BusSet) BusyCount() int {
	n := 0
	for i := range s.buses {
		if s.buses[i].Busy {
			n++
		}
	}
	return n
}
