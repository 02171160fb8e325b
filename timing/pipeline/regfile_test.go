package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/procsim/insts"
	"github.com/sarchlab/procsim/timing/pipeline"
)

var _ = Describe("RegFile", func() {
	var rf *pipeline.RegFile

	BeforeEach(func() {
		rf = pipeline.NewRegFile()
	})

	It("should start with every register ready and untagged", func() {
		for reg := 0; reg < insts.NumRegs; reg++ {
			ready, _, tag := rf.Read(reg)
			Expect(ready).To(BeTrue())
			Expect(tag).To(Equal(pipeline.TagNone))
		}
	})

	It("should mark a renamed register not ready", func() {
		rf.Rename(3, 7)

		ready, _, tag := rf.Read(3)
		Expect(ready).To(BeFalse())
		Expect(tag).To(Equal(7))
	})

	It("should commit a broadcast whose tag matches", func() {
		rf.Rename(3, 7)
		rf.Write(3, 7, 42)

		ready, value, _ := rf.Read(3)
		Expect(ready).To(BeTrue())
		Expect(value).To(Equal(42))
	})

	It("should ignore a stale broadcast", func() {
		rf.Rename(3, 7)
		rf.Rename(3, 9) // younger producer overwrites the rename

		rf.Write(3, 7, 42)

		ready, _, tag := rf.Read(3)
		Expect(ready).To(BeFalse())
		Expect(tag).To(Equal(9))
	})

	It("should track the youngest rename", func() {
		rf.Rename(5, 1)
		rf.Rename(5, 4)

		_, _, tag := rf.Read(5)
		Expect(tag).To(Equal(4))
	})

	It("should restore rename state directly", func() {
		rf.Rename(6, 12)

		rf.Restore(6, 2, false)
		ready, _, tag := rf.Read(6)
		Expect(ready).To(BeFalse())
		Expect(tag).To(Equal(2))

		rf.Restore(6, pipeline.TagNone, true)
		ready, _, tag = rf.Read(6)
		Expect(ready).To(BeTrue())
		Expect(tag).To(Equal(pipeline.TagNone))
	})
})
