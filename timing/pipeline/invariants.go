package pipeline

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/procsim/insts"
)

// CheckInvariants verifies the structural invariants that must hold at
// every cycle boundary. A non-nil error indicates a simulator bug, never a
// data condition.
func (p *Pipeline) CheckInvariants() error {
	if err := p.checkTagUniqueness(); err != nil {
		return err
	}
	if err := p.checkCapacities(); err != nil {
		return err
	}
	if err := p.checkStageMonotonicity(); err != nil {
		return err
	}
	if err := p.checkRetirementOrder(); err != nil {
		return err
	}
	if err := p.checkROBOrdering(); err != nil {
		return err
	}
	return p.checkRegisterReadiness()
}

// checkTagUniqueness verifies that a tag names at most one live entity per
// resource class, and always the same instruction across classes.
func (p *Pipeline) checkTagUniqueness() error {
	owners := map[int]int{}
	held := map[string]map[int]bool{}

	claim := func(tag, instIdx int, class string) error {
		if held[class] == nil {
			held[class] = map[int]bool{}
		}
		if held[class][tag] {
			return errors.Errorf("tag %d held by two %s entries", tag, class)
		}
		held[class][tag] = true

		if prev, seen := owners[tag]; seen && prev != instIdx {
			return errors.Errorf(
				"tag %d owned by record %d and record %d (%s)",
				tag, prev, instIdx, class)
		}
		owners[tag] = instIdx
		return nil
	}

	seenRS := map[int]bool{}
	for i := 0; i < p.schedQ.Len(); i++ {
		rs := p.schedQ.Slot(i)
		if rs.Empty {
			continue
		}
		if seenRS[rs.DestTag] {
			return errors.Errorf("tag %d held by two reservation stations", rs.DestTag)
		}
		seenRS[rs.DestTag] = true
		if err := claim(rs.DestTag, rs.InstIdx, "reservation station"); err != nil {
			return err
		}
	}

	for id := 0; id < p.fuTable.Len(); id++ {
		fu := p.fuTable.Unit(id)
		if !fu.Busy {
			continue
		}
		if err := claim(fu.Tag, fu.InstIdx, "functional unit"); err != nil {
			return err
		}
	}

	for i := 0; i < p.buses.Len(); i++ {
		bus := p.buses.Bus(i)
		if !bus.Busy {
			continue
		}
		if err := claim(bus.Tag, bus.InstIdx, "result bus"); err != nil {
			return err
		}
	}

	for _, e := range p.rob.Entries() {
		if err := claim(e.Tag, e.InstIdx, "ROB entry"); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) checkCapacities() error {
	if busy := p.buses.BusyCount(); busy > p.config.R {
		return errors.Errorf("%d busy result buses exceed R=%d", busy, p.config.R)
	}

	for fuType := 0; fuType < numFUTypes; fuType++ {
		busy := p.fuTable.BusyOfType(fuType)
		if count := p.fuTable.CountOfType(fuType); busy > count {
			return errors.Errorf(
				"%d busy type-%d FUs exceed count %d", busy, fuType, count)
		}
	}

	if occupied := p.schedQ.Occupied(); occupied > p.schedQ.Len() {
		return errors.Errorf(
			"%d occupied stations exceed queue size %d", occupied, p.schedQ.Len())
	}

	return nil
}

func (p *Pipeline) checkStageMonotonicity() error {
	for i := range p.records {
		cycles := p.records[i].stageCycles

		prev := CycleNone
		for stage := StageFetch; stage < NumStages; stage++ {
			c := cycles[stage]
			if c == CycleNone {
				continue
			}
			if prev != CycleNone && c < prev {
				return errors.Errorf(
					"record %d entered %v at cycle %d before cycle %d",
					i, stage, c, prev)
			}
			prev = c
		}
	}

	return nil
}

func (p *Pipeline) checkRetirementOrder() error {
	prevIP := -1
	for _, recIdx := range p.retiredOrder {
		ip := p.records[recIdx].ip
		if ip <= prevIP {
			return errors.Errorf(
				"trace position %d retired after position %d", ip, prevIP)
		}
		prevIP = ip
	}

	return nil
}

func (p *Pipeline) checkROBOrdering() error {
	prevTag := TagNone
	for _, e := range p.rob.Entries() {
		if e.Tag <= prevTag {
			return errors.Errorf(
				"ROB tag %d follows tag %d", e.Tag, prevTag)
		}
		prevTag = e.Tag
	}

	return nil
}

// checkRegisterReadiness verifies that a register is not ready exactly when
// a live, incomplete producer owns its tag.
func (p *Pipeline) checkRegisterReadiness() error {
	for reg := 0; reg < insts.NumRegs; reg++ {
		r := p.regFile.Reg(reg)
		if r.Ready {
			if r.Tag != TagNone {
				if producer := p.rob.Find(r.Tag); producer != nil && !producer.Complete {
					return errors.Errorf(
						"register %d ready while producer tag %d is incomplete", reg, r.Tag)
				}
			}
			continue
		}

		if r.Tag == TagNone {
			return errors.Errorf("register %d not ready without a rename tag", reg)
		}

		producer := p.rob.Find(r.Tag)
		if producer == nil {
			return errors.Errorf(
				"register %d waits on tag %d with no live producer", reg, r.Tag)
		}
		if producer.DestReg != reg {
			return errors.Errorf(
				"register %d waits on tag %d which targets register %d",
				reg, r.Tag, producer.DestReg)
		}
		if producer.Complete {
			return errors.Errorf(
				"register %d still waits on completed producer tag %d", reg, r.Tag)
		}
	}

	return nil
}
