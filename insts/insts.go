// Package insts provides decoded trace-record definitions and trace decoding.
//
// This package implements decoding of processor trace files into structured
// instruction records. A trace line carries an instruction address, a
// functional-unit type, a destination register and two source registers; a
// branch line additionally carries the branch target and the actual outcome.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.DecodeLine("0x1000 1 3 1 2")
//	fmt.Printf("FU: %d, Dest: r%d\n", inst.FUType, inst.DestReg)
package insts

// Register file bounds shared by the decoder and the timing model.
const (
	// NumRegs is the number of architectural registers.
	NumRegs = 128

	// RegNone marks an absent destination or source register.
	RegNone = -1
)

// Functional-unit types as they appear in trace files.
const (
	// FUTypeAny is the legacy wildcard type. The functional-unit pool
	// normalizes it to FUType1.
	FUTypeAny = -1

	FUType0 = 0
	FUType1 = 1
	FUType2 = 2
)

// NoBranchTarget marks a non-branch instruction's BranchTarget field.
const NoBranchTarget int64 = -1

// Instruction is a single decoded trace record.
//
// Except for PredictedTaken, which the dispatcher fills when the record
// reaches the pipeline, an Instruction is immutable after decode.
type Instruction struct {
	// Addr is the instruction address.
	Addr uint64

	// FUType is the functional-unit type required for execution:
	// FUType0, FUType1, FUType2, or the legacy FUTypeAny.
	FUType int

	// DestReg is the destination register, or RegNone.
	DestReg int

	// Src1Reg and Src2Reg are the source registers, or RegNone.
	Src1Reg int
	Src2Reg int

	// IsBranch reports whether the record is a conditional branch.
	IsBranch bool

	// BranchTarget is the branch target address, or NoBranchTarget.
	BranchTarget int64

	// Taken is the actual branch outcome from the trace.
	Taken bool

	// PredictedTaken is the outcome predicted at dispatch.
	PredictedTaken bool
}
