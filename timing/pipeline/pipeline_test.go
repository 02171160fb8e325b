package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/procsim/insts"
	"github.com/sarchlab/procsim/timing/pipeline"
)

func plainInst(addr uint64, fuType, dest, src1, src2 int) insts.Instruction {
	return insts.Instruction{
		Addr:         addr,
		FUType:       fuType,
		DestReg:      dest,
		Src1Reg:      src1,
		Src2Reg:      src2,
		BranchTarget: insts.NoBranchTarget,
	}
}

func branchInst(
	addr uint64,
	fuType, dest, src1, src2 int,
	target int64,
	taken bool,
) insts.Instruction {
	inst := plainInst(addr, fuType, dest, src1, src2)
	inst.IsBranch = true
	inst.BranchTarget = target
	inst.Taken = taken
	return inst
}

func runPipeline(
	program []insts.Instruction,
	config pipeline.Config,
) (*pipeline.Pipeline, pipeline.Stats) {
	p, err := pipeline.NewPipeline(program, config, pipeline.WithInvariantChecks())
	Expect(err).ToNot(HaveOccurred())

	stats := p.Run()
	return p, stats
}

func stageCycles(timelines []pipeline.Timeline, stage pipeline.Stage) []int64 {
	cycles := make([]int64, len(timelines))
	for i, t := range timelines {
		cycles[i] = t.Cycles[stage]
	}
	return cycles
}

var _ = Describe("Pipeline", func() {
	Describe("Configuration", func() {
		It("should reject invalid structural parameters", func() {
			program := []insts.Instruction{plainInst(0x1000, 1, 0, -1, -1)}

			for _, config := range []pipeline.Config{
				{R: 0, F: 1, J: 1, K: 1, L: 1},
				{R: 1, F: 0, J: 1, K: 1, L: 1},
				{R: 1, F: 1, J: -1, K: 1, L: 1},
				{R: 1, F: 1, J: 0, K: 0, L: 0},
			} {
				_, err := pipeline.NewPipeline(program, config)
				Expect(err).To(HaveOccurred())
			}
		})

		It("should reject an empty trace", func() {
			_, err := pipeline.NewPipeline(nil, pipeline.Config{R: 1, F: 1, J: 1, K: 1, L: 1})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Independent stream", func() {
		// Five independent type-1 instructions, F=4, one FU per type, R=2.
		var program []insts.Instruction

		BeforeEach(func() {
			program = []insts.Instruction{
				plainInst(0x1000, 1, 0, -1, -1),
				plainInst(0x1004, 1, 1, -1, -1),
				plainInst(0x1008, 1, 2, -1, -1),
				plainInst(0x100c, 1, 3, -1, -1),
				plainInst(0x1010, 1, 4, -1, -1),
			}
		})

		It("should retire every instruction in program order", func() {
			p, stats := runPipeline(program, pipeline.Config{R: 2, F: 4, J: 1, K: 1, L: 1})

			Expect(stats.Retired).To(Equal(uint64(5)))
			Expect(p.Timelines()).To(HaveLen(5))
			Expect(stats.TotalBranches).To(BeZero())
			Expect(stats.PredictionAccuracy).To(BeZero())
		})

		It("should flow the first instruction straight through the stages", func() {
			p, _ := runPipeline(program, pipeline.Config{R: 2, F: 4, J: 1, K: 1, L: 1})

			Expect(p.Timelines()[0].Cycles).To(Equal(
				[pipeline.NumStages]int64{0, 1, 2, 3, 4}))
		})

		It("should serialize issue on the single type-1 unit", func() {
			p, _ := runPipeline(program, pipeline.Config{R: 2, F: 4, J: 1, K: 1, L: 1})

			Expect(stageCycles(p.Timelines(), pipeline.StageSchedule)).To(Equal(
				[]int64{2, 3, 4, 5, 6}))
		})

		It("should report the run time as the last state-update cycle", func() {
			p, stats := runPipeline(program, pipeline.Config{R: 2, F: 4, J: 1, K: 1, L: 1})

			last := p.Timelines()[4].Cycles[pipeline.StageStateUpdate]
			Expect(stats.Cycles).To(Equal(uint64(last + 1)))
		})

		It("should track the dispatch-queue high-water mark", func() {
			_, stats := runPipeline(program, pipeline.Config{R: 2, F: 4, J: 1, K: 1, L: 1})

			Expect(stats.MaxDispatchSize).To(Equal(uint64(4)))
		})
	})

	Describe("RAW dependency chain", func() {
		It("should execute dependents back to back", func() {
			// Each instruction consumes the previous destination.
			program := []insts.Instruction{
				plainInst(0x1000, 1, 0, -1, -1),
				plainInst(0x1004, 1, 1, 0, -1),
				plainInst(0x1008, 1, 2, 1, -1),
				plainInst(0x100c, 1, 3, 2, -1),
			}

			p, _ := runPipeline(program, pipeline.Config{R: 2, F: 4, J: 1, K: 1, L: 1})

			execCycles := stageCycles(p.Timelines(), pipeline.StageExecute)
			Expect(execCycles).To(Equal([]int64{3, 4, 5, 6}))

			schedCycles := stageCycles(p.Timelines(), pipeline.StageSchedule)
			for i := 1; i < len(schedCycles); i++ {
				Expect(schedCycles[i]).To(BeNumerically(">", schedCycles[i-1]))
			}
		})
	})

	Describe("Structural hazard on functional units", func() {
		It("should issue exactly two wildcard instructions per cycle", func() {
			// Eight type "any" instructions normalize to type 1, bounded by
			// the two type-1 units.
			var program []insts.Instruction
			for i := 0; i < 8; i++ {
				program = append(program,
					plainInst(0x1000+uint64(4*i), insts.FUTypeAny, i, -1, -1))
			}

			p, stats := runPipeline(program, pipeline.Config{R: 4, F: 8, J: 0, K: 2, L: 0})

			Expect(stats.Retired).To(Equal(uint64(8)))

			perCycle := map[int64]int{}
			for _, c := range stageCycles(p.Timelines(), pipeline.StageSchedule) {
				perCycle[c]++
			}
			for cycle, count := range perCycle {
				Expect(count).To(Equal(2),
					"cycle %d issued %d instructions", cycle, count)
			}
		})
	})

	Describe("Correct prediction", func() {
		It("should not squash a correctly predicted branch", func() {
			// A fresh predictor says not-taken, which matches the outcome.
			program := []insts.Instruction{
				plainInst(0x1000, 1, 0, -1, -1),
				plainInst(0x1004, 1, 1, -1, -1),
				branchInst(0x1008, 1, -1, -1, -1, 0x2000, false),
				plainInst(0x100c, 1, 2, -1, -1),
			}

			p, stats := runPipeline(program, pipeline.Config{R: 2, F: 4, J: 1, K: 1, L: 1})

			Expect(stats.TotalBranches).To(Equal(uint64(1)))
			Expect(stats.CorrectBranches).To(Equal(uint64(1)))
			Expect(stats.PredictionAccuracy).To(Equal(1.0))
			Expect(stats.Retired).To(Equal(uint64(len(program))))
			Expect(p.Speculating()).To(BeFalse())
		})
	})

	Describe("Result-bus serialization", func() {
		It("should give every instruction a distinct state-update cycle with R=1", func() {
			var program []insts.Instruction
			for i := 0; i < 10; i++ {
				program = append(program,
					plainInst(0x1000+uint64(4*i), i%3, i, -1, -1))
			}

			p, _ := runPipeline(program, pipeline.Config{R: 1, F: 10, J: 4, K: 4, L: 4})

			seen := map[int64]bool{}
			for _, c := range stageCycles(p.Timelines(), pipeline.StageStateUpdate) {
				Expect(seen[c]).To(BeFalse(), "two instructions share STATE cycle %d", c)
				seen[c] = true
			}
		})
	})

	Describe("Scalar pipelining", func() {
		It("should complete state update four cycles after each fetch", func() {
			var program []insts.Instruction
			for i := 0; i < 8; i++ {
				program = append(program,
					plainInst(0x1000+uint64(4*i), 1, i, -1, -1))
			}

			p, stats := runPipeline(program, pipeline.Config{R: 1, F: 1, J: 1, K: 1, L: 1})

			for i, t := range p.Timelines() {
				Expect(t.Cycles[pipeline.StageFetch]).To(Equal(int64(i)))
				Expect(t.Cycles[pipeline.StageStateUpdate]).To(Equal(int64(i + 4)))
			}

			// One-based fetch cycle of the last instruction plus the
			// pipeline depth.
			Expect(stats.Cycles).To(Equal(uint64(8 + 4)))
		})
	})

	Describe("Determinism", func() {
		It("should produce identical results across runs", func() {
			program := []insts.Instruction{
				plainInst(0x1000, 0, 0, -1, -1),
				plainInst(0x1004, 1, 1, 0, -1),
				branchInst(0x1008, 2, -1, 1, -1, 0x2000, true),
				plainInst(0x100c, 1, 2, 1, -1),
				plainInst(0x1010, 2, 3, 2, 0),
			}
			config := pipeline.Config{R: 2, F: 2, J: 1, K: 1, L: 1}

			first, firstStats := runPipeline(program, config)
			second, secondStats := runPipeline(program, config)

			Expect(firstStats).To(Equal(secondStats))
			Expect(first.Timelines()).To(Equal(second.Timelines()))
		})
	})
})
