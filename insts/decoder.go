// Package insts provides decoded trace-record definitions and trace decoding.
package insts

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Field counts for the two trace line shapes.
const (
	plainFieldCount  = 5
	branchFieldCount = 7
)

// Decoder parses the whitespace-separated trace format.
//
// A plain line has five fields: address (hex), FU type, destination register,
// and two source registers (decimal, -1 for none). A branch line has two more
// fields: the branch target (hex) and the actual outcome (1 taken, 0 not).
type Decoder struct{}

// NewDecoder creates a trace decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// DecodeLine decodes a single trace line.
func (d *Decoder) DecodeLine(line string) (Instruction, error) {
	inst := Instruction{BranchTarget: NoBranchTarget}

	fields := strings.Fields(line)
	if len(fields) != plainFieldCount && len(fields) != branchFieldCount {
		return inst, errors.Errorf(
			"expected %d or %d fields, got %d",
			plainFieldCount, branchFieldCount, len(fields))
	}

	addr, err := parseHex(fields[0])
	if err != nil {
		return inst, errors.Wrap(err, "instruction address")
	}
	inst.Addr = addr

	if inst.FUType, err = parseFUType(fields[1]); err != nil {
		return inst, err
	}

	if inst.DestReg, err = parseReg(fields[2], "destination register"); err != nil {
		return inst, err
	}
	if inst.Src1Reg, err = parseReg(fields[3], "source register 1"); err != nil {
		return inst, err
	}
	if inst.Src2Reg, err = parseReg(fields[4], "source register 2"); err != nil {
		return inst, err
	}

	if len(fields) == branchFieldCount {
		target, err := parseHex(fields[5])
		if err != nil {
			return inst, errors.Wrap(err, "branch target")
		}

		taken, err := parseOutcome(fields[6])
		if err != nil {
			return inst, err
		}

		inst.IsBranch = true
		inst.BranchTarget = int64(target)
		inst.Taken = taken
	}

	return inst, nil
}

// DecodeTrace decodes a full trace stream. Blank lines are skipped.
func (d *Decoder) DecodeTrace(r io.Reader) ([]Instruction, error) {
	var program []Instruction

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		inst, err := d.DecodeLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, "trace line %d", lineNo)
		}

		program = append(program, inst)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading trace")
	}

	return program, nil
}

// DecodeFile decodes the trace file at the given path.
func (d *Decoder) DecodeFile(path string) ([]Instruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening trace file")
	}
	defer f.Close()

	program, err := d.DecodeTrace(f)
	if err != nil {
		return nil, errors.Wrapf(err, "trace file %s", path)
	}

	return program, nil
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")

	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, errors.Errorf("invalid hex value %q", s)
	}

	return v, nil
}

func parseFUType(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Errorf("invalid FU type %q", s)
	}

	switch v {
	case FUTypeAny, FUType0, FUType1, FUType2:
		return v, nil
	}

	return 0, errors.Errorf("FU type %d out of range", v)
}

func parseReg(s, what string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Errorf("invalid %s %q", what, s)
	}

	if v < RegNone || v >= NumRegs {
		return 0, errors.Errorf("%s %d out of range", what, v)
	}

	return v, nil
}

func parseOutcome(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}

	return false, errors.Errorf("invalid branch outcome %q", s)
}
