package bootmem_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/micro32-project/micro32/mem"
	"github.com/micro32-project/micro32/mem/bootmem"
)

var errOutOfRange = errors.New("out of range")

var _ = Describe("Negotiator", func() {
	It("should report the zero region before any reservation", func() {
		n := bootmem.MakeBuilder().Build()

		Expect(n.ReservedRegion().IsZero()).To(BeTrue())
		Expect(n.Committed()).To(BeFalse())
	})

	It("should reserve everything above the prefix", func() {
		n := bootmem.MakeBuilder().Build()
		n.SetRAMBounds(0x1000, 8192+16)

		Expect(n.Reserve(false)).To(Succeed())
		Expect(n.ReservedRegion()).To(Equal(
			bootmem.Region{Start: 0x3000, End: 0x3010}))
	})

	It("should fall back to the board defaults", func() {
		n := bootmem.MakeBuilder().Build()

		Expect(n.Reserve(false)).To(Succeed())
		Expect(n.ReservedRegion()).To(Equal(bootmem.Region{
			Start: bootmem.DefaultRAMBase + bootmem.ReservedPrefix,
			End:   bootmem.DefaultRAMBase + bootmem.DefaultRAMSize,
		}))
	})

	It("should derive the size from the end-of-RAM marker", func() {
		marker := bootmem.DefaultRAMBase + 16*mem.MB
		n := bootmem.MakeBuilder().WithRAMEndMarker(marker).Build()

		Expect(n.Reserve(false)).To(Succeed())
		Expect(n.ReservedRegion()).To(Equal(bootmem.Region{
			Start: bootmem.DefaultRAMBase + bootmem.ReservedPrefix,
			End:   marker,
		}))
	})

	It("should ignore an absent marker", func() {
		n := bootmem.MakeBuilder().WithRAMEndMarker(0).Build()

		Expect(n.Reserve(false)).To(Succeed())
		Expect(n.ReservedRegion().End).To(Equal(
			bootmem.DefaultRAMBase + bootmem.DefaultRAMSize))
	})

	It("should ignore a marker at or below the base", func() {
		n := bootmem.MakeBuilder().
			WithRAMEndMarker(bootmem.DefaultRAMBase).
			Build()

		Expect(n.Reserve(false)).To(Succeed())
		Expect(n.ReservedRegion().End).To(Equal(
			bootmem.DefaultRAMBase + bootmem.DefaultRAMSize))
	})

	It("should let explicit bounds override the marker", func() {
		marker := bootmem.DefaultRAMBase + 16*mem.MB
		n := bootmem.MakeBuilder().WithRAMEndMarker(marker).Build()
		n.SetRAMBounds(0x1000, 8192+16)

		Expect(n.Reserve(false)).To(Succeed())
		Expect(n.ReservedRegion()).To(Equal(
			bootmem.Region{Start: 0x3000, End: 0x3010}))
	})

	It("should align the region ends to word boundaries", func() {
		n := bootmem.MakeBuilder().Build()
		n.SetRAMBounds(0x1001, 8192+17)

		Expect(n.Reserve(false)).To(Succeed())

		r := n.ReservedRegion()
		Expect(r.Start % 4).To(Equal(uint64(0)))
		Expect(r.End % 4).To(Equal(uint64(0)))
		Expect(r.Start).To(BeNumerically("<", r.End))
		Expect(r).To(Equal(bootmem.Region{Start: 0x3004, End: 0x3010}))
	})

	It("should fail when the size equals the prefix", func() {
		n := bootmem.MakeBuilder().Build()
		n.SetRAMBounds(0x1000, bootmem.ReservedPrefix)

		Expect(n.Reserve(false)).To(
			MatchError(bootmem.ErrInsufficientMemory))
		Expect(n.ReservedRegion().IsZero()).To(BeTrue())
		Expect(n.Committed()).To(BeFalse())
	})

	It("should fail when the size is below the prefix", func() {
		n := bootmem.MakeBuilder().Build()
		n.SetRAMBounds(0x1000, bootmem.ReservedPrefix-4)

		Expect(n.Reserve(false)).To(
			MatchError(bootmem.ErrInsufficientMemory))
	})

	It("should reserve one word when the size is prefix plus four", func() {
		n := bootmem.MakeBuilder().Build()
		n.SetRAMBounds(0x1000, bootmem.ReservedPrefix+4)

		Expect(n.Reserve(false)).To(Succeed())
		Expect(n.ReservedRegion().Size()).To(Equal(uint64(4)))
	})

	It("should fail when alignment collapses the region", func() {
		n := bootmem.MakeBuilder().Build()
		n.SetRAMBounds(0x1001, bootmem.ReservedPrefix+4)

		Expect(n.Reserve(false)).To(
			MatchError(bootmem.ErrRegionCollapsed))
		Expect(n.Committed()).To(BeFalse())
	})

	It("should stay retryable after a failure", func() {
		n := bootmem.MakeBuilder().Build()

		n.SetRAMBounds(0x1000, bootmem.ReservedPrefix)
		Expect(n.Reserve(false)).NotTo(Succeed())

		n.SetRAMBounds(0x1000, 8192+16)
		Expect(n.Reserve(false)).To(Succeed())
		Expect(n.ReservedRegion()).To(Equal(
			bootmem.Region{Start: 0x3000, End: 0x3010}))
	})

	It("should not re-derive the region once committed", func() {
		n := bootmem.MakeBuilder().Build()
		n.SetRAMBounds(0x1000, 8192+16)
		Expect(n.Reserve(false)).To(Succeed())

		n.SetRAMBounds(0x2000, 64*mem.KB)

		Expect(n.Reserve(false)).To(Succeed())
		Expect(n.ReservedRegion()).To(Equal(
			bootmem.Region{Start: 0x3000, End: 0x3010}))
	})

	Context("zeroing", func() {
		var (
			mockCtrl *gomock.Controller
			memory   *MockWordAccessor
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			memory = NewMockWordAccessor(mockCtrl)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should zero every word of the region, and nothing else", func() {
			n := bootmem.MakeBuilder().WithMemory(memory).Build()
			n.SetRAMBounds(0x1000, 8192+16)

			for addr := uint64(0x3000); addr < 0x3010; addr += 4 {
				memory.EXPECT().Write32(addr, uint32(0)).Return(nil)
			}

			Expect(n.Reserve(true)).To(Succeed())
		})

		It("should not zero again on a repeated reservation", func() {
			n := bootmem.MakeBuilder().WithMemory(memory).Build()
			n.SetRAMBounds(0x1000, 8192+16)

			memory.EXPECT().
				Write32(gomock.Any(), uint32(0)).
				Return(nil).
				Times(4)

			Expect(n.Reserve(true)).To(Succeed())
			Expect(n.Reserve(true)).To(Succeed())
		})

		It("should not commit when zeroing fails", func() {
			n := bootmem.MakeBuilder().WithMemory(memory).Build()
			n.SetRAMBounds(0x1000, bootmem.ReservedPrefix+4)

			memory.EXPECT().
				Write32(uint64(0x3000), uint32(0)).
				Return(errOutOfRange)

			Expect(n.Reserve(true)).To(HaveOccurred())
			Expect(n.Committed()).To(BeFalse())
			Expect(n.ReservedRegion().IsZero()).To(BeTrue())
		})

		It("should leave memory zeroed and the rest untouched", func() {
			storage := mem.NewStorageAt(0x1000, 8192+16)
			n := bootmem.MakeBuilder().WithMemory(storage).Build()
			n.SetRAMBounds(0x1000, 8192+16)

			Expect(storage.Write32(0x2FFC, 0xDEADBEEF)).To(Succeed())
			Expect(storage.Write32(0x3000, 0xDEADBEEF)).To(Succeed())
			Expect(storage.Write32(0x300C, 0xDEADBEEF)).To(Succeed())

			Expect(n.Reserve(true)).To(Succeed())

			r := n.ReservedRegion()
			for addr := r.Start; addr < r.End; addr += 4 {
				Expect(storage.Read32(addr)).To(Equal(uint32(0)))
			}

			Expect(storage.Read32(0x2FFC)).To(Equal(uint32(0xDEADBEEF)))
		})
	})
})
