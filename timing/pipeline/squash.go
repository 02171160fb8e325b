package pipeline

import "github.com/sarchlab/procsim/insts"

// resolveBranch runs at the end of a non-speculative branch's execute step.
// The predictor is trained with the actual outcome; a misprediction squashes
// every piece of shadow work.
func (p *Pipeline) resolveBranch(rec *instRecord) {
	p.predictor.Update(rec.inst.Addr, rec.inst.Taken)

	p.totalBranches++
	if rec.inst.PredictedTaken == rec.inst.Taken {
		p.correctBranches++
		return
	}

	p.squash(rec)
}

// squash removes every speculative in-flight item when a mispredicted
// branch resolves, and resumes the real stream at the trace position after
// the branch. The branch itself and everything older stay untouched.
//
// Result buses owned by speculative work are released too: the execute
// queue orders by (ready cycle, tag), so a speculative ticket that stalled
// for a bus in an earlier cycle goes ahead of the branch and can win a bus
// in the branch's own execute pass.
func (p *Pipeline) squash(branch *instRecord) {
	p.specMode = SpecNone
	p.specBranchTag = TagNone
	p.fetchPtr = branch.ip + 1

	// The dispatch queue holds only shadow work at this point: dummies,
	// and any real records fetched past the branch that never dispatched.
	for _, recIdx := range p.dispatchQ {
		p.records[recIdx].squashed = true
	}
	p.dispatchQ = p.dispatchQ[:0]

	for _, q := range []*stageQueue{&p.schedule, &p.execute, &p.update} {
		for _, recIdx := range q.dropSpeculative() {
			p.records[recIdx].squashed = true
		}
	}

	for id := 0; id < p.fuTable.Len(); id++ {
		fu := p.fuTable.Unit(id)
		if fu.Busy && p.records[fu.InstIdx].speculative {
			p.fuTable.Release(id)
		}
	}

	for i := 0; i < p.buses.Len(); i++ {
		bus := p.buses.Bus(i)
		if bus.Busy && p.records[bus.InstIdx].speculative {
			p.buses.Release(i)
		}
	}

	for i := 0; i < p.schedQ.Len(); i++ {
		rs := p.schedQ.Slot(i)
		if !rs.Empty && rs.Speculative {
			p.records[rs.InstIdx].squashed = true
			p.schedQ.Free(i)
		}
	}

	p.rob.PopTailAbove(branch.tag)

	p.restoreRenames(branch.tag)
}

// restoreRenames re-points every register renamed by a squashed producer at
// its youngest surviving producer, or marks it ready when none remains.
// Skipping this would leave consumers waiting on tags that will never
// broadcast.
func (p *Pipeline) restoreRenames(branchTag int) {
	for reg := 0; reg < insts.NumRegs; reg++ {
		tag := p.regFile.Reg(reg).Tag
		if tag == TagNone || tag <= branchTag {
			continue
		}

		if producer := p.rob.YoungestProducer(reg); producer != nil {
			p.regFile.Restore(reg, producer.Tag, producer.Complete)
		} else {
			p.regFile.Restore(reg, TagNone, true)
		}
	}
}
