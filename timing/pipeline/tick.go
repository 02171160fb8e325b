package pipeline

import (
	"fmt"

	"github.com/sarchlab/procsim/insts"
)

// Tick advances the pipeline by one cycle.
//
// Stages evaluate in reverse flow order so that a resource freed downstream
// is visible to work moving up within the same cycle, and never the other
// way around:
//
//	Retire -> CDB snoop -> State Update -> Execute -> Wake-up/Issue ->
//	Dispatch -> Fetch
func (p *Pipeline) Tick() {
	if p.Done() {
		return
	}

	p.doRetire()
	p.schedQ.Snoop(p.buses)
	p.doStateUpdate()
	p.doExecute()
	p.doIssue()
	p.doDispatch()
	p.doFetch()

	p.sampleDispatchQueue()
	p.clock++

	if p.checkInvariants {
		if err := p.CheckInvariants(); err != nil {
			panic(fmt.Sprintf("pipeline invariant violated at cycle %d: %v",
				p.clock, err))
		}
	}
}

// doRetire pops complete entries off the head of the ROB, oldest first.
// Retirement frees the instruction's reservation station.
func (p *Pipeline) doRetire() {
	for p.rob.Len() > 0 && p.rob.Head().Complete {
		e := p.rob.PopHead()

		p.schedQ.Free(e.RSIdx)
		p.records[e.InstIdx].retired = true
		p.retiredOrder = append(p.retiredOrder, e.InstIdx)
	}
}

// doStateUpdate commits every broadcast that went on a bus last cycle:
// write the register file, free the bus, and mark the ROB entry complete.
func (p *Pipeline) doStateUpdate() {
	for _, e := range p.update.sorted() {
		if e.ReadyCycle > p.clock {
			continue
		}

		busIdx := p.buses.FindTag(e.Tag)
		if busIdx < 0 {
			panic(fmt.Sprintf("no bus broadcasting tag %d at state update", e.Tag))
		}

		bus := p.buses.Bus(busIdx)
		if bus.DestReg != insts.RegNone {
			p.regFile.Write(bus.DestReg, e.Tag, bus.Value)
		}
		p.buses.Release(busIdx)

		robEntry := p.rob.Find(e.Tag)
		if robEntry == nil {
			panic(fmt.Sprintf("no ROB entry for tag %d at state update", e.Tag))
		}
		robEntry.Complete = true

		p.stamp(e.InstIdx, StageStateUpdate)
		p.update.remove(e.InstIdx)
	}
}

// doExecute moves issued instructions from their functional unit onto a
// result bus in (ready cycle, tag) order, so an instruction that stalled for
// a bus goes ahead of younger-ready ones. The broadcast wakes waiting stations
// immediately, so a dependent instruction can issue this same cycle.
// Without a free bus the instruction holds its unit and retries.
//
// A branch resolves here: the predictor is updated and a misprediction
// squashes the shadow stream.
func (p *Pipeline) doExecute() {
	for _, e := range p.execute.sorted() {
		if e.ReadyCycle > p.clock {
			continue
		}
		// A squash earlier in this pass may have dropped the ticket.
		if !p.execute.contains(e.InstIdx) {
			continue
		}

		busIdx := p.buses.AcquireFree()
		if busIdx < 0 {
			continue
		}

		fuID := p.fuTable.FindTag(e.Tag)
		if fuID < 0 {
			panic(fmt.Sprintf("no functional unit owns tag %d at execute", e.Tag))
		}
		fu := p.fuTable.Unit(fuID)

		bus := p.buses.Bus(busIdx)
		bus.Busy = true
		bus.Tag = e.Tag
		bus.Value = fu.Value
		bus.DestReg = fu.DestReg
		bus.InstIdx = e.InstIdx
		bus.FUID = fuID

		p.fuTable.Release(fuID)
		p.stamp(e.InstIdx, StageExecute)
		p.schedQ.Broadcast(e.Tag, bus.Value)

		p.execute.remove(e.InstIdx)
		p.update.push(PipelineEntry{
			InstIdx:     e.InstIdx,
			RSIdx:       e.RSIdx,
			Tag:         e.Tag,
			ReadyCycle:  p.clock + 1,
			Speculative: e.Speculative,
		})

		rec := &p.records[e.InstIdx]
		if rec.inst.IsBranch && !rec.speculative {
			p.resolveBranch(rec)
		}
	}
}

// doIssue fires ready stations into free functional units in tag order.
func (p *Pipeline) doIssue() {
	for _, e := range p.schedule.sorted() {
		if e.ReadyCycle > p.clock {
			continue
		}
		if !p.schedQ.Ready(e.RSIdx) {
			continue
		}

		rs := p.schedQ.Slot(e.RSIdx)
		fuID := p.fuTable.FindFree(rs.FUType)
		if fuID < 0 {
			continue
		}

		p.fuTable.Occupy(fuID, e.Tag, rs.DestReg, e.InstIdx)
		p.stamp(e.InstIdx, StageSchedule)
		p.issued++

		p.schedule.remove(e.InstIdx)
		p.execute.push(PipelineEntry{
			InstIdx:     e.InstIdx,
			RSIdx:       e.RSIdx,
			Tag:         e.Tag,
			ReadyCycle:  p.clock + 1,
			Speculative: e.Speculative,
		})
	}
}

// doDispatch moves up to F records from the dispatch queue into reservation
// stations, allocating a fresh tag and renaming the destination register.
//
// A branch is predicted here. When the prediction disagrees with the actual
// outcome the pipeline flips into speculating mode: the rest of this fetch
// group still dispatches, marked speculative, and later cycles dispatch
// nothing until the branch resolves.
func (p *Pipeline) doDispatch() {
	if p.specMode != SpecNone {
		return
	}

	for dispatched := 0; dispatched < p.config.F && len(p.dispatchQ) > 0; dispatched++ {
		recIdx := p.dispatchQ[0]
		rec := &p.records[recIdx]

		speculative := p.specMode != SpecNone
		tag := p.nextTag

		rsIdx, ok := p.schedQ.Insert(rec.inst, recIdx, tag, speculative, p.regFile)
		if !ok {
			break
		}

		p.nextTag++
		p.dispatchQ = p.dispatchQ[1:]

		rec.tag = tag
		rec.speculative = speculative
		p.stamp(recIdx, StageDispatch)

		if rec.inst.DestReg != insts.RegNone {
			p.regFile.Rename(rec.inst.DestReg, tag)
		}

		predicted := false
		if rec.inst.IsBranch {
			predicted = p.predictor.Predict(rec.inst.Addr)
			rec.inst.PredictedTaken = predicted
		}

		p.rob.Append(ROBEntry{
			InstIdx:        recIdx,
			IP:             rec.ip,
			Tag:            tag,
			RSIdx:          rsIdx,
			DestReg:        rec.inst.DestReg,
			IsBranch:       rec.inst.IsBranch,
			PredictedTaken: predicted,
			ActualTaken:    rec.inst.Taken,
			Target:         rec.inst.BranchTarget,
			Speculative:    speculative,
		})

		p.schedule.push(PipelineEntry{
			InstIdx:     recIdx,
			RSIdx:       rsIdx,
			Tag:         tag,
			ReadyCycle:  p.clock + 1,
			Speculative: speculative,
		})

		if rec.inst.IsBranch && !speculative && predicted != rec.inst.Taken {
			p.specMode = specModeFor(predicted)
			p.specBranchTag = tag
		}
	}
}

// doFetch appends up to F records to the dispatch queue. While speculating,
// dummy shadow instructions take the place of the trace stream: no
// registers, and an FU type biased by the predicted direction, so the
// shadow stream still exerts structural pressure.
func (p *Pipeline) doFetch() {
	if p.specMode != SpecNone {
		fuType := insts.FUType1
		if p.specMode == SpecNotTaken {
			fuType = insts.FUType2
		}

		for i := 0; i < p.config.F; i++ {
			dummy := insts.Instruction{
				FUType:       fuType,
				DestReg:      insts.RegNone,
				Src1Reg:      insts.RegNone,
				Src2Reg:      insts.RegNone,
				BranchTarget: insts.NoBranchTarget,
			}

			recIdx := p.newRecord(dummy, -1, true)
			p.stamp(recIdx, StageFetch)
			p.dispatchQ = append(p.dispatchQ, recIdx)
		}
		return
	}

	for i := 0; i < p.config.F && p.fetchPtr < len(p.program); i++ {
		recIdx := p.newRecord(p.program[p.fetchPtr], p.fetchPtr, false)
		p.stamp(recIdx, StageFetch)
		p.dispatchQ = append(p.dispatchQ, recIdx)
		p.fetchPtr++
	}
}

// sampleDispatchQueue accumulates the per-cycle dispatch-queue size for the
// average and maximum statistics.
func (p *Pipeline) sampleDispatchQueue() {
	size := uint64(len(p.dispatchQ))

	p.totalDispSize += size
	if size > p.maxDispSize {
		p.maxDispSize = size
	}
}
