// Package bus routes memory accesses to the device that owns the address.
package bus

import (
	"encoding/binary"
	"fmt"

	"github.com/micro32-project/micro32/mem"
)

// A mapping binds one half-open address range to a device controller.
type mapping struct {
	name string
	low  uint64
	high uint64
	dev  mem.Controller
}

// A Bus routes reads and writes to the device whose address range contains
// the accessed address. It implements mem.Controller and mem.WordAccessor
// itself, so RAM zeroing and MMIO register pokes go through the same path.
type Bus struct {
	mappings []mapping
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Map attaches a device to the address range [low, high). It panics if the
// range is empty or overlaps an existing mapping.
func (b *Bus) Map(name string, low, high uint64, dev mem.Controller) {
	if low >= high {
		panic(fmt.Sprintf("bus: empty address range for %s", name))
	}

	for _, m := range b.mappings {
		if low < m.high && m.low < high {
			panic(fmt.Sprintf("bus: range of %s overlaps %s", name, m.name))
		}
	}

	b.mappings = append(b.mappings, mapping{
		name: name,
		low:  low,
		high: high,
		dev:  dev,
	})
}

// Find returns the device owning the address, or nil if the address is not
// mapped.
func (b *Bus) Find(address uint64) mem.Controller {
	if m := b.find(address); m != nil {
		return m.dev
	}

	return nil
}

// DeviceNames lists the names of all mapped devices, in mapping order.
func (b *Bus) DeviceNames() []string {
	names := make([]string, 0, len(b.mappings))
	for _, m := range b.mappings {
		names = append(names, m.name)
	}

	return names
}

func (b *Bus) find(address uint64) *mapping {
	for i := range b.mappings {
		m := &b.mappings[i]
		if address >= m.low && address < m.high {
			return m
		}
	}

	return nil
}

// CanAccess returns true if the whole range [address, address+len) belongs
// to one mapped device that can serve it.
func (b *Bus) CanAccess(address uint64, len uint64) bool {
	m := b.find(address)
	if m == nil || address+len > m.high {
		return false
	}

	return m.dev.CanAccess(address, len)
}

// Read reads len bytes from the device owning the address. The range must
// not cross a mapping boundary.
func (b *Bus) Read(address uint64, len uint64) ([]byte, error) {
	m, err := b.route(address, len)
	if err != nil {
		return nil, err
	}

	return m.dev.Read(address, len)
}

// Write writes the bytes to the device owning the address. The range must
// not cross a mapping boundary.
func (b *Bus) Write(address uint64, data []byte) error {
	m, err := b.route(address, uint64(len(data)))
	if err != nil {
		return err
	}

	return m.dev.Write(address, data)
}

// Read32 reads one little-endian 32-bit word.
func (b *Bus) Read32(address uint64) (uint32, error) {
	data, err := b.Read(address, 4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(data), nil
}

// Write32 writes one little-endian 32-bit word.
func (b *Bus) Write32(address uint64, value uint32) error {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, value)

	return b.Write(address, data)
}

func (b *Bus) route(address, length uint64) (*mapping, error) {
	m := b.find(address)
	if m == nil {
		return nil, fmt.Errorf("bus: no device at address 0x%08X", address)
	}

	if address+length > m.high {
		return nil, fmt.Errorf(
			"bus: access [0x%08X, 0x%08X) crosses the range of %s",
			address, address+length, m.name)
	}

	return m, nil
}
