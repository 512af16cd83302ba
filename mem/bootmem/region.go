package bootmem

import "fmt"

// A Region describes a half-open address interval [Start, End). The zero
// Region means "no region".
type Region struct {
	Start uint64
	End   uint64
}

// MakeRegion builds a Region from a base address and a size.
func MakeRegion(base, size uint64) Region {
	return Region{Start: base, End: base + size}
}

// Size returns the number of bytes in the region.
func (r Region) Size() uint64 {
	if r.End < r.Start {
		return 0
	}

	return r.End - r.Start
}

// IsZero returns true if the region is the zero Region.
func (r Region) IsZero() bool {
	return r == Region{}
}

// Contains returns true if the address falls inside the region.
func (r Region) Contains(address uint64) bool {
	return address >= r.Start && address < r.End
}

func (r Region) String() string {
	return fmt.Sprintf("[0x%08X, 0x%08X)", r.Start, r.End)
}
