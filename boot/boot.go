// Package boot runs the Micro32 boot flow: bring up the LCD, render the
// banner and the loader-passed argument, then negotiate the usable RAM
// region and report the outcome.
package boot

import (
	"github.com/rs/xid"

	"github.com/micro32-project/micro32/machine"
	"github.com/micro32-project/micro32/mem/bootmem"
)

// Text and background colors of the boot screen, RGB565.
const (
	colorBlack = 0x0000
	colorWhite = 0xFFFF
)

const reservationTable = "boot_reservations"

// A reservationRecord is one row in the boot-event database.
type reservationRecord struct {
	ID            string
	BootID        string
	Outcome       string
	Start         uint64
	End           uint64
	ZeroRequested bool
}

// A Report summarizes a completed boot sequence.
type Report struct {
	BootArg  uint32
	RAMBase  uint64
	RAMSize  uint64
	Reserved bootmem.Region
}

// Run performs the boot sequence on the machine. The arg value is what the
// loader leaves in the a1 register for the kernel. When zeroMemory is set,
// the reserved region is scrubbed before the report is produced.
//
// A reservation failure is returned to the caller together with the partial
// report; deciding whether it is fatal is the caller's call, not this
// package's.
func Run(m *machine.Machine, arg uint32, zeroMemory bool) (Report, error) {
	display := m.Display

	if err := display.Initialize(); err != nil {
		return Report{}, err
	}

	if err := display.ClearScreen(colorBlack); err != nil {
		return Report{}, err
	}

	lines := []struct {
		text string
		y    int
	}{
		{"Hello, World!", 0},
		{"Welcome to Micro32!", 16},
		{"a1 register:", 32},
		{formatHex(arg), 48},
	}

	for _, l := range lines {
		err := display.PrintString(l.text, 0, l.y, colorWhite)
		if err != nil {
			return Report{}, err
		}
	}

	reserveErr := m.Negotiator.Reserve(zeroMemory)
	region := m.Negotiator.ReservedRegion()

	recordReservation(m, region, reserveErr, zeroMemory)

	base, size := m.Negotiator.RAMBounds()
	report := Report{
		BootArg:  arg,
		RAMBase:  base,
		RAMSize:  size,
		Reserved: region,
	}

	if reserveErr != nil {
		_ = display.PrintString("RAM RESERVE FAILED", 0, 64, colorWhite)
		return report, reserveErr
	}

	if err := display.PrintString("RAM reserved:", 0, 64, colorWhite); err != nil {
		return Report{}, err
	}

	if err := display.PrintString(region.String(), 0, 80, colorWhite); err != nil {
		return Report{}, err
	}

	return report, nil
}

func recordReservation(
	m *machine.Machine,
	region bootmem.Region,
	reserveErr error,
	zeroRequested bool,
) {
	if m.Recorder == nil {
		return
	}

	tables := m.Recorder.ListTables()
	if !contains(tables, reservationTable) {
		m.Recorder.CreateTable(reservationTable, reservationRecord{})
	}

	outcome := "committed"
	if reserveErr != nil {
		outcome = reserveErr.Error()
	}

	m.Recorder.InsertData(reservationTable, reservationRecord{
		ID:            xid.New().String(),
		BootID:        m.ID,
		Outcome:       outcome,
		Start:         region.Start,
		End:           region.End,
		ZeroRequested: zeroRequested,
	})
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}

	return false
}

// formatHex renders a 32-bit value as 0x followed by eight uppercase hex
// digits, the way the boot screen has always shown the a1 register.
func formatHex(v uint32) string {
	buf := make([]byte, 10)
	buf[0] = '0'
	buf[1] = 'x'

	for i := 0; i < 8; i++ {
		nibble := byte(v>>((7-i)*4)) & 0xF
		if nibble < 10 {
			buf[i+2] = '0' + nibble
		} else {
			buf[i+2] = 'A' + nibble - 10
		}
	}

	return string(buf)
}
