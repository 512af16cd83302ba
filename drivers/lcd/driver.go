package lcd

import (
	"strconv"

	"github.com/micro32-project/micro32/mem"
)

// A Driver is the boot-time LCD driver. It pokes the SPI and GPIO registers
// through the system bus; it knows nothing about what actually sits behind
// them.
type Driver struct {
	bus mem.WordAccessor
}

// NewDriver creates a driver that accesses the registers through the given
// bus.
func NewDriver(bus mem.WordAccessor) *Driver {
	return &Driver{bus: bus}
}

func (d *Driver) sendCommand(cmd uint8) error {
	if err := d.bus.Write32(SPICmdReg, 0); err != nil {
		return err
	}

	if err := d.bus.Write32(SPIDataReg, uint32(cmd)); err != nil {
		return err
	}

	return d.waitIdle()
}

func (d *Driver) sendData(data uint8) error {
	if err := d.bus.Write32(SPICmdReg, 1); err != nil {
		return err
	}

	if err := d.bus.Write32(SPIDataReg, uint32(data)); err != nil {
		return err
	}

	return d.waitIdle()
}

// waitIdle polls the busy bit until the transfer completes.
func (d *Driver) waitIdle() error {
	for {
		status, err := d.bus.Read32(SPICmdReg)
		if err != nil {
			return err
		}

		if status&1 == 0 {
			return nil
		}
	}
}

// Initialize resets the panel through the GPIO reset pin and sends the
// wake-up command sequence.
func (d *Driver) Initialize() error {
	if err := d.bus.Write32(GPIOOutReg, 0); err != nil {
		return err
	}

	if err := d.bus.Write32(GPIOOutReg, 1<<resetPin); err != nil {
		return err
	}

	for _, cmd := range []uint8{
		cmdSoftwareReset,
		cmdExitSleep,
		cmdDisplayOn,
	} {
		if err := d.sendCommand(cmd); err != nil {
			return err
		}
	}

	return nil
}

// DrawPixel sets one pixel to the given RGB565 color.
func (d *Driver) DrawPixel(x, y int, color uint16) error {
	steps := []struct {
		cmd  uint8
		args []uint8
	}{
		{cmdColumnAddress, []uint8{uint8(x >> 8), uint8(x)}},
		{cmdRowAddress, []uint8{uint8(y >> 8), uint8(y)}},
		{cmdMemoryWrite, []uint8{uint8(color >> 8), uint8(color)}},
	}

	for _, s := range steps {
		if err := d.sendCommand(s.cmd); err != nil {
			return err
		}

		for _, a := range s.args {
			if err := d.sendData(a); err != nil {
				return err
			}
		}
	}

	return nil
}

// ClearScreen fills the whole panel with the given color.
func (d *Driver) ClearScreen(color uint16) error {
	if err := d.sendCommand(cmdMemoryWrite); err != nil {
		return err
	}

	for i := 0; i < Width*Height; i++ {
		if err := d.sendData(uint8(color >> 8)); err != nil {
			return err
		}

		if err := d.sendData(uint8(color)); err != nil {
			return err
		}
	}

	return nil
}

// PrintString renders a string starting at (x, y). Each character is drawn
// as a single marker pixel and advances the cursor by one 8-pixel cell.
func (d *Driver) PrintString(s string, x, y int, color uint16) error {
	offset := 0
	for range s {
		if err := d.DrawPixel(x+offset, y, color); err != nil {
			return err
		}

		offset += 8
	}

	return nil
}

// PrintInt renders a signed integer the same way PrintString renders text.
func (d *Driver) PrintInt(number, x, y int, color uint16) error {
	return d.PrintString(strconv.Itoa(number), x, y, color)
}
