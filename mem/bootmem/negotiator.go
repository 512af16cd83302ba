// Package bootmem negotiates the usable RAM region of the Micro32 board at
// boot time. It determines, once, how much RAM the board has and reserves
// all of it except a fixed low prefix, which stays untouched for the vector
// table and the boot parameters. Whatever allocator runs later manages the
// reserved region; this package only establishes its boundaries.
package bootmem

import (
	"errors"
	"fmt"

	"github.com/micro32-project/micro32/mem"
)

// Compile-time fallback bounds of the Micro32 PSRAM bank, and the prefix
// withheld from the reservable area.
const (
	DefaultRAMBase uint64 = 0x3F800000
	DefaultRAMSize uint64 = 32 * mem.MB
	ReservedPrefix uint64 = 8 * mem.KB

	wordSize uint64 = 4
)

// Reservation failures. Neither mutates committed state; the caller may
// adjust the bounds with SetRAMBounds and call Reserve again.
var (
	ErrInsufficientMemory = errors.New(
		"bootmem: no RAM left beyond the reserved prefix")
	ErrRegionCollapsed = errors.New(
		"bootmem: usable region collapsed after alignment")
)

// A Negotiator owns the RAM-bounds state of one board and the single
// reserved region derived from it.
//
// RAM bounds come from three sources. In precedence order, highest first:
// bounds explicitly recorded with SetRAMBounds, the boot-environment
// end-of-RAM marker, and the compile-time defaults. The marker is resolved
// once, when the negotiator is built, and never re-polled.
//
// The negotiator performs no locking. It is meant to run in a single
// execution context before anything concurrent starts; once Reserve has
// committed, the state is immutable and reads are safe from anywhere.
type Negotiator struct {
	memory       mem.WordAccessor
	ramEndMarker uint64

	ramBase uint64
	ramSize uint64

	reserved       Region
	committed      bool
	explicitBounds bool
}

// A Builder can build negotiators.
type Builder struct {
	memory       mem.WordAccessor
	ramEndMarker uint64
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{}
}

// WithMemory sets the memory that Reserve zeroes through.
func (b Builder) WithMemory(m mem.WordAccessor) Builder {
	b.memory = m
	return b
}

// WithRAMEndMarker provides the address of the boot-environment end-of-RAM
// marker. Zero means the marker is not provided.
func (b Builder) WithRAMEndMarker(address uint64) Builder {
	b.ramEndMarker = address
	return b
}

// Build builds a negotiator holding the compile-time default bounds.
func (b Builder) Build() *Negotiator {
	return &Negotiator{
		memory:       b.memory,
		ramEndMarker: b.ramEndMarker,
		ramBase:      DefaultRAMBase,
		ramSize:      DefaultRAMSize,
	}
}

// SetRAMBounds records explicitly configured RAM bounds, which take
// precedence over the end-of-RAM marker and the defaults. Nothing is
// validated here; Reserve validates. Calling SetRAMBounds after a committed
// reservation updates the bounds but never re-derives the committed region.
func (n *Negotiator) SetRAMBounds(base, size uint64) {
	n.ramBase = base
	n.ramSize = size
	n.explicitBounds = true
}

// RAMBounds returns the RAM base and size the negotiator currently
// believes in, after applying the source precedence.
func (n *Negotiator) RAMBounds() (base, size uint64) {
	return n.effectiveBounds()
}

// Reserve computes the usable region, [base+prefix, base+size) with both
// ends aligned to a word boundary, and commits it. A repeated call is a
// cheap no-op that reports the previous success; in particular it performs
// no zeroing regardless of zeroMemory.
//
// When zeroMemory is set, every word of the region is overwritten with zero
// through the attached memory before the call returns, so residual data
// from a previous occupant never leaks into the new owner's allocations.
// Zeroing takes time proportional to the region size and blocks the caller
// for the duration.
func (n *Negotiator) Reserve(zeroMemory bool) error {
	if n.committed {
		return nil
	}

	base, size := n.effectiveBounds()

	if size <= ReservedPrefix {
		return ErrInsufficientMemory
	}

	// Rounding the start up and the end down keeps every word access
	// inside [base, base+size).
	start := alignUp(base+ReservedPrefix, wordSize)
	end := alignDown(base+size, wordSize)

	if start >= end {
		return ErrRegionCollapsed
	}

	region := Region{Start: start, End: end}

	if zeroMemory {
		if err := n.zero(region); err != nil {
			return err
		}
	}

	n.reserved = region
	n.committed = true

	return nil
}

// ReservedRegion returns the committed region, or the zero Region if no
// reservation has committed yet. It never fails and never blocks.
func (n *Negotiator) ReservedRegion() Region {
	return n.reserved
}

// UsableRegion returns the region available for allocation. It is the same
// interval ReservedRegion returns.
func (n *Negotiator) UsableRegion() Region {
	return n.ReservedRegion()
}

// Committed returns true once a reservation has committed.
func (n *Negotiator) Committed() bool {
	return n.committed
}

func (n *Negotiator) effectiveBounds() (base, size uint64) {
	base, size = n.ramBase, n.ramSize

	if n.explicitBounds {
		return base, size
	}

	// A marker at address zero counts as not provided. A marker at or
	// below the base cannot describe a RAM end and is ignored the same
	// way.
	if n.ramEndMarker != 0 && n.ramEndMarker > base {
		size = n.ramEndMarker - base
	}

	return base, size
}

func (n *Negotiator) zero(r Region) error {
	if n.memory == nil {
		panic("bootmem: zeroing requested but no memory is attached")
	}

	for addr := r.Start; addr < r.End; addr += wordSize {
		if err := n.memory.Write32(addr, 0); err != nil {
			return fmt.Errorf("bootmem: zeroing word at 0x%08X: %w",
				addr, err)
		}
	}

	return nil
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

func alignDown(v, align uint64) uint64 {
	return v &^ (align - 1)
}
