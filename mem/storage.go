package mem

import (
	"encoding/binary"
	"fmt"
)

// A Storage keeps the data of the modeled board's RAM.
//
// The storage implementation manages the memory in units. For the units that
// are not touched by the Read and Write functions, no host memory is
// allocated. A Storage carries a base address, so it can model a RAM bank
// that does not start at address zero.
type Storage struct {
	base     uint64
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object of the given capacity, starting at
// address zero.
func NewStorage(capacity uint64) *Storage {
	return NewStorageAt(0, capacity)
}

// NewStorageAt creates a storage object that serves the address range
// [base, base+capacity).
func NewStorageAt(base, capacity uint64) *Storage {
	return &Storage{
		base:     base,
		unitSize: 4096,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Base returns the lowest address the storage serves.
func (s *Storage) Base() uint64 {
	return s.base
}

// Capacity returns the number of bytes the storage serves.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// CanAccess returns true if the range [address, address+len) falls entirely
// inside the storage.
func (s *Storage) CanAccess(address uint64, len uint64) bool {
	return address >= s.base && address+len <= s.base+s.capacity
}

func (s *Storage) createOrGetUnit(address uint64) ([]byte, error) {
	if address < s.base || address >= s.base+s.capacity {
		return nil, fmt.Errorf(
			"address 0x%08X is outside the storage range [0x%08X, 0x%08X)",
			address, s.base, s.base+s.capacity)
	}

	baseAddr, _ := s.parseAddress(address)
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit, nil
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	offset := addr - s.base
	inUnitAddr = offset % s.unitSize
	baseAddr = offset - inUnitAddr
	return
}

// Read returns len bytes starting at the given address.
func (s *Storage) Read(address uint64, len uint64) ([]byte, error) {
	currAddr := address
	lenLeft := len
	dataOffset := uint64(0)
	res := make([]byte, len)

	for currAddr < address+len {
		unit, err := s.createOrGetUnit(currAddr)
		if err != nil {
			return nil, err
		}

		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenLeftInUnit := baseAddr + s.unitSize - (currAddr - s.base)
		lenToRead := lenLeftInUnit
		if lenLeft < lenLeftInUnit {
			lenToRead = lenLeft
		}

		copy(res[dataOffset:dataOffset+lenToRead],
			unit[inUnitAddr:inUnitAddr+lenToRead])
		lenLeft -= lenToRead
		dataOffset += lenToRead
		currAddr += lenToRead
	}

	return res, nil
}

// Write stores the given bytes starting at the given address.
func (s *Storage) Write(address uint64, data []byte) error {
	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < uint64(len(data)) {
		unit, err := s.createOrGetUnit(currAddr)
		if err != nil {
			return err
		}

		baseAddr, inUnitAddr := s.parseAddress(currAddr)
		lenLeftInData := uint64(len(data)) - dataOffset
		lenLeftInUnit := baseAddr + s.unitSize - (currAddr - s.base)
		lenToWrite := lenLeftInUnit
		if lenLeftInData < lenLeftInUnit {
			lenToWrite = lenLeftInData
		}

		copy(unit[inUnitAddr:inUnitAddr+lenToWrite],
			data[dataOffset:dataOffset+lenToWrite])
		dataOffset += lenToWrite
		currAddr += lenToWrite
	}

	return nil
}

// Read32 reads one little-endian 32-bit word.
func (s *Storage) Read32(address uint64) (uint32, error) {
	data, err := s.Read(address, 4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(data), nil
}

// Write32 writes one little-endian 32-bit word.
func (s *Storage) Write32(address uint64, value uint32) error {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, value)

	return s.Write(address, data)
}
