// Package lcd models the SPI-attached LCD panel of the Micro32 board and
// provides the boot-time driver that draws on it.
package lcd

import (
	"encoding/binary"
	"fmt"
)

// Memory-mapped registers of the SPI controller and the GPIO block the
// panel hangs off.
const (
	SPIBase    uint64 = 0x60002000
	SPICmdReg  uint64 = SPIBase + 0x00
	SPIDataReg uint64 = SPIBase + 0x08
	SPILimit   uint64 = SPIBase + 0x0C

	GPIOBase   uint64 = 0x60004000
	GPIOOutReg uint64 = GPIOBase + 0x04
	GPIOLimit  uint64 = GPIOBase + 0x08
)

// Panel resolution, RGB565.
const (
	Width  = 240
	Height = 320
)

// ILI-style opcodes the panel understands.
const (
	cmdSoftwareReset = 0x01
	cmdExitSleep     = 0x11
	cmdDisplayOn     = 0x29
	cmdColumnAddress = 0x2A
	cmdRowAddress    = 0x2B
	cmdMemoryWrite   = 0x2C
)

const resetPin = 5

// A Device is the modeled panel. It sits on the bus behind the SPI and GPIO
// register ranges and keeps a framebuffer that tests and the monitor can
// inspect. Transfers complete instantly, so the busy bit of the command
// register always reads clear.
type Device struct {
	dataMode bool
	cmd      uint8
	argCount int
	argHigh  uint8

	col int
	row int

	gpioOut   uint32
	Awake     bool
	DisplayOn bool

	fb [Height][Width]uint16
}

// NewDevice creates a panel in its power-on state.
func NewDevice() *Device {
	return &Device{}
}

// Pixel returns the framebuffer content at (x, y).
func (d *Device) Pixel(x, y int) uint16 {
	return d.fb[y][x]
}

// CanAccess returns true for aligned word accesses to the device registers.
func (d *Device) CanAccess(address uint64, len uint64) bool {
	if len != 4 || address%4 != 0 {
		return false
	}

	inSPI := address >= SPIBase && address < SPILimit
	inGPIO := address >= GPIOBase && address < GPIOLimit

	return inSPI || inGPIO
}

// Read serves a register read. The command register reports the busy bit,
// which is never set; every other register reads as its last written value
// or zero.
func (d *Device) Read(address uint64, len uint64) ([]byte, error) {
	if !d.CanAccess(address, len) {
		return nil, fmt.Errorf(
			"lcd: unsupported register read at 0x%08X", address)
	}

	var value uint32
	if address == GPIOOutReg {
		value = d.gpioOut
	}

	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, value)

	return data, nil
}

// Write serves a register write.
func (d *Device) Write(address uint64, data []byte) error {
	if !d.CanAccess(address, uint64(len(data))) {
		return fmt.Errorf(
			"lcd: unsupported register write at 0x%08X", address)
	}

	value := binary.LittleEndian.Uint32(data)

	switch address {
	case SPICmdReg:
		d.dataMode = value&1 != 0
	case SPIDataReg:
		d.transfer(uint8(value))
	case GPIOOutReg:
		d.writeGPIO(value)
	}

	return nil
}

func (d *Device) writeGPIO(value uint32) {
	wasLow := d.gpioOut&(1<<resetPin) == 0
	d.gpioOut = value

	// Rising edge on the reset pin resets the panel.
	if wasLow && value&(1<<resetPin) != 0 {
		d.reset()
	}
}

func (d *Device) transfer(b uint8) {
	if !d.dataMode {
		d.cmd = b
		d.argCount = 0

		switch b {
		case cmdSoftwareReset:
			d.reset()
		case cmdExitSleep:
			d.Awake = true
		case cmdDisplayOn:
			d.DisplayOn = true
		}

		return
	}

	switch d.cmd {
	case cmdColumnAddress:
		d.col = d.collectCoord(b, d.col)
	case cmdRowAddress:
		d.row = d.collectCoord(b, d.row)
	case cmdMemoryWrite:
		d.collectPixel(b)
	}
}

func (d *Device) collectCoord(b uint8, old int) int {
	d.argCount++
	if d.argCount%2 == 1 {
		d.argHigh = b
		return old
	}

	return int(d.argHigh)<<8 | int(b)
}

func (d *Device) collectPixel(b uint8) {
	d.argCount++
	if d.argCount%2 == 1 {
		d.argHigh = b
		return
	}

	color := uint16(d.argHigh)<<8 | uint16(b)
	if d.row >= 0 && d.row < Height && d.col >= 0 && d.col < Width {
		d.fb[d.row][d.col] = color
	}

	// The write pointer auto-advances across the whole frame.
	d.col++
	if d.col >= Width {
		d.col = 0
		d.row++
		if d.row >= Height {
			d.row = 0
		}
	}
}

func (d *Device) reset() {
	*d = Device{gpioOut: d.gpioOut}
}
