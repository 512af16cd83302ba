// Package machine assembles the modeled Micro32 board: RAM storage behind a
// system bus, the LCD panel and its driver, the boot-time region
// negotiator, and the optional monitor and boot-event recorder.
package machine

import (
	"github.com/micro32-project/micro32/bus"
	"github.com/micro32-project/micro32/datarecording"
	"github.com/micro32-project/micro32/drivers/lcd"
	"github.com/micro32-project/micro32/mem"
	"github.com/micro32-project/micro32/mem/bootmem"
	"github.com/micro32-project/micro32/monitoring"
)

// A Machine is one assembled Micro32 board.
type Machine struct {
	ID string

	Bus        *bus.Bus
	Storage    *mem.Storage
	LCD        *lcd.Device
	Display    *lcd.Driver
	Negotiator *bootmem.Negotiator

	Recorder datarecording.DataRecorder
	Monitor  *monitoring.Monitor
}

// Terminate flushes and closes everything the machine owns.
func (m *Machine) Terminate() {
	if m.Recorder != nil {
		m.Recorder.Close()
	}
}
