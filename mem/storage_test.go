package mem_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/micro32-project/micro32/mem"
)

var _ = Describe("Storage", func() {
	It("should read and write in a single unit", func() {
		storage := mem.NewStorage(4096)

		Expect(storage.Write(0, []byte{1, 2, 3, 4})).To(Succeed())

		Expect(storage.Read(0, 2)).To(Equal([]byte{1, 2}))
		Expect(storage.Read(1, 2)).To(Equal([]byte{2, 3}))
	})

	It("should read and write across units", func() {
		storage := mem.NewStorage(8192)

		Expect(storage.Write(4094, []byte{1, 2, 3, 4})).To(Succeed())

		Expect(storage.Read(4094, 4)).To(Equal([]byte{1, 2, 3, 4}))
	})

	It("should reject accesses outside the storage range", func() {
		storage := mem.NewStorage(4096)

		err := storage.Write(4096, []byte{1})
		Expect(err).To(HaveOccurred())

		_, err = storage.Read(4096, 1)
		Expect(err).To(HaveOccurred())
	})

	It("should serve a base-addressed range", func() {
		storage := mem.NewStorageAt(0x3F800000, 8192)

		Expect(storage.Base()).To(Equal(uint64(0x3F800000)))
		Expect(storage.Capacity()).To(Equal(uint64(8192)))

		Expect(storage.Write(0x3F800FFE, []byte{9, 8, 7, 6})).To(Succeed())
		Expect(storage.Read(0x3F800FFE, 4)).To(Equal([]byte{9, 8, 7, 6}))

		_, err := storage.Read(0x3F7FFFFF, 1)
		Expect(err).To(HaveOccurred())
	})

	It("should report what it can access", func() {
		storage := mem.NewStorageAt(0x1000, 4096)

		Expect(storage.CanAccess(0x1000, 4)).To(BeTrue())
		Expect(storage.CanAccess(0x1FFC, 4)).To(BeTrue())
		Expect(storage.CanAccess(0x1FFD, 4)).To(BeFalse())
		Expect(storage.CanAccess(0x0FFC, 4)).To(BeFalse())
	})

	It("should read and write little-endian words", func() {
		storage := mem.NewStorageAt(0x1000, 4096)

		Expect(storage.Write32(0x1004, 0xCAFEBABE)).To(Succeed())

		Expect(storage.Read32(0x1004)).To(Equal(uint32(0xCAFEBABE)))
		Expect(storage.Read(0x1004, 4)).To(Equal(
			[]byte{0xBE, 0xBA, 0xFE, 0xCA}))
	})
})
