// Package mem provides the storage backend and the access interfaces that
// model the physical memory of the Micro32 board.
package mem

// Memory size units.
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
	GB uint64 = 1 << 30
)

// A Controller defines the interface to an addressable component on the
// system bus. It defines a read and a write function, together with a
// function for checking whether the component can serve an access at all.
type Controller interface {
	CanAccess(address uint64, len uint64) bool
	Read(address uint64, len uint64) ([]byte, error)
	Write(address uint64, data []byte) error
}

// A WordAccessor can read and write aligned 32-bit words. A word access is
// always a real call into the implementation. Implementations are free to
// treat the access as an MMIO register access with side effects, so callers
// must never assume a write can be merged with, or elided in favor of, a
// neighboring one.
type WordAccessor interface {
	Read32(address uint64) (uint32, error)
	Write32(address uint64, value uint32) error
}
