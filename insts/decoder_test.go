package insts_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/procsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Plain instructions", func() {
		It("should decode a five-field line", func() {
			inst, err := decoder.DecodeLine("0x1000 1 3 1 2")
			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Addr).To(Equal(uint64(0x1000)))
			Expect(inst.FUType).To(Equal(insts.FUType1))
			Expect(inst.DestReg).To(Equal(3))
			Expect(inst.Src1Reg).To(Equal(1))
			Expect(inst.Src2Reg).To(Equal(2))
			Expect(inst.IsBranch).To(BeFalse())
			Expect(inst.BranchTarget).To(Equal(insts.NoBranchTarget))
		})

		It("should accept missing registers as -1", func() {
			inst, err := decoder.DecodeLine("0x1004 0 -1 -1 -1")
			Expect(err).ToNot(HaveOccurred())
			Expect(inst.DestReg).To(Equal(insts.RegNone))
			Expect(inst.Src1Reg).To(Equal(insts.RegNone))
			Expect(inst.Src2Reg).To(Equal(insts.RegNone))
		})

		It("should accept the legacy wildcard FU type", func() {
			inst, err := decoder.DecodeLine("0x1008 -1 4 -1 -1")
			Expect(err).ToNot(HaveOccurred())
			Expect(inst.FUType).To(Equal(insts.FUTypeAny))
		})

		It("should accept addresses without the 0x prefix", func() {
			inst, err := decoder.DecodeLine("ab120024 2 0 -1 -1")
			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Addr).To(Equal(uint64(0xab120024)))
		})
	})

	Describe("Branch instructions", func() {
		It("should decode a seven-field line", func() {
			inst, err := decoder.DecodeLine("0x2000 2 -1 5 -1 0x2040 1")
			Expect(err).ToNot(HaveOccurred())
			Expect(inst.IsBranch).To(BeTrue())
			Expect(inst.BranchTarget).To(Equal(int64(0x2040)))
			Expect(inst.Taken).To(BeTrue())
		})

		It("should decode a not-taken outcome", func() {
			inst, err := decoder.DecodeLine("0x2000 2 -1 5 -1 0x2040 0")
			Expect(err).ToNot(HaveOccurred())
			Expect(inst.Taken).To(BeFalse())
		})

		It("should reject outcomes other than 0 and 1", func() {
			_, err := decoder.DecodeLine("0x2000 2 -1 5 -1 0x2040 2")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Malformed lines", func() {
		It("should reject a wrong field count", func() {
			_, err := decoder.DecodeLine("0x1000 1 3 1")
			Expect(err).To(HaveOccurred())
		})

		It("should reject a bad FU type", func() {
			_, err := decoder.DecodeLine("0x1000 7 3 1 2")
			Expect(err).To(HaveOccurred())
		})

		It("should reject out-of-range registers", func() {
			_, err := decoder.DecodeLine("0x1000 1 128 1 2")
			Expect(err).To(HaveOccurred())

			_, err = decoder.DecodeLine("0x1000 1 3 -2 2")
			Expect(err).To(HaveOccurred())
		})

		It("should reject a non-hex address", func() {
			_, err := decoder.DecodeLine("zzzz 1 3 1 2")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Trace streams", func() {
		It("should decode multiple lines and skip blanks", func() {
			trace := "0x1000 1 0 -1 -1\n\n0x1004 1 1 0 -1\n0x1008 2 -1 1 -1 0x1020 1\n"
			program, err := decoder.DecodeTrace(strings.NewReader(trace))
			Expect(err).ToNot(HaveOccurred())
			Expect(program).To(HaveLen(3))
			Expect(program[2].IsBranch).To(BeTrue())
		})

		It("should report the failing line number", func() {
			trace := "0x1000 1 0 -1 -1\nbogus line here\n"
			_, err := decoder.DecodeTrace(strings.NewReader(trace))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("line 2"))
		})
	})
})
