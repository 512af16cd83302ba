package machine

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/xid"

	"github.com/micro32-project/micro32/bus"
	"github.com/micro32-project/micro32/datarecording"
	"github.com/micro32-project/micro32/drivers/lcd"
	"github.com/micro32-project/micro32/mem"
	"github.com/micro32-project/micro32/mem/bootmem"
	"github.com/micro32-project/micro32/monitoring"
)

// A Builder can be used to build a machine.
type Builder struct {
	ramBase        uint64
	ramSize        uint64
	explicitBounds bool
	ramEndMarker   uint64

	monitorOn      bool
	monitorPort    int
	recorderOn     bool
	outputFileName string
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithRAMBounds explicitly configures the RAM base and size, overriding the
// end-of-RAM marker and the board defaults.
func (b Builder) WithRAMBounds(base, size uint64) Builder {
	b.ramBase = base
	b.ramSize = size
	b.explicitBounds = true
	return b
}

// WithRAMEndMarker sets the loader-provided end-of-RAM marker. Zero means
// the marker is absent.
func (b Builder) WithRAMEndMarker(address uint64) Builder {
	b.ramEndMarker = address
	return b
}

// WithMonitoring starts a monitoring server when the machine is built.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithDataRecording stores boot events in an SQLite database at the given
// path. An empty path picks a unique name.
func (b Builder) WithDataRecording(path string) Builder {
	b.recorderOn = true
	b.outputFileName = path
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}
}

// Build builds the machine. Configuration from the environment (and from a
// .env file, if one exists) fills in anything the builder left unset.
func (b Builder) Build() *Machine {
	b = b.applyEnvironment()
	b.parametersMustBeValid()

	m := &Machine{
		ID: xid.New().String(),
	}

	base, capacity := b.boardRAM()

	m.Bus = bus.New()

	m.Storage = mem.NewStorageAt(base, capacity)
	m.Bus.Map("RAM", base, base+capacity, m.Storage)

	m.LCD = lcd.NewDevice()
	m.Bus.Map("SPI", lcd.SPIBase, lcd.SPILimit, m.LCD)
	m.Bus.Map("GPIO", lcd.GPIOBase, lcd.GPIOLimit, m.LCD)

	m.Display = lcd.NewDriver(m.Bus)

	m.Negotiator = bootmem.MakeBuilder().
		WithMemory(m.Bus).
		WithRAMEndMarker(b.ramEndMarker).
		Build()
	if b.explicitBounds {
		m.Negotiator.SetRAMBounds(b.ramBase, b.ramSize)
	}

	if b.recorderOn {
		m.Recorder = datarecording.New(b.outputFileName)
	}

	if b.monitorOn {
		m.Monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			m.Monitor.WithPortNumber(b.monitorPort)
		}
		m.Monitor.RegisterNegotiator(m.Negotiator)
		m.Monitor.RegisterBus(m.Bus)
		m.Monitor.RegisterDevice("RAM", m.Storage)
		m.Monitor.RegisterDevice("LCD", m.LCD)
		m.Monitor.StartServer()
	}

	return m
}

// boardRAM returns the bounds of the physical RAM bank being modeled, which
// follow the same precedence the negotiator applies: explicit bounds, then
// the end-of-RAM marker, then the board defaults.
func (b Builder) boardRAM() (base, capacity uint64) {
	if b.explicitBounds {
		return b.ramBase, b.ramSize
	}

	base = bootmem.DefaultRAMBase
	capacity = bootmem.DefaultRAMSize

	if b.ramEndMarker > base {
		capacity = b.ramEndMarker - base
	}

	return base, capacity
}

// applyEnvironment reads MICRO32_RAM_BASE, MICRO32_RAM_SIZE,
// MICRO32_RAM_END, and MICRO32_MONITOR_PORT. Values already set on the
// builder win over the environment.
func (b Builder) applyEnvironment() Builder {
	_ = godotenv.Load()

	if !b.explicitBounds {
		base, okBase := envAddress("MICRO32_RAM_BASE")
		size, okSize := envAddress("MICRO32_RAM_SIZE")
		if okBase && okSize {
			b.ramBase = base
			b.ramSize = size
			b.explicitBounds = true
		} else if okBase != okSize {
			panic("MICRO32_RAM_BASE and MICRO32_RAM_SIZE " +
				"must be set together")
		}
	}

	if b.ramEndMarker == 0 {
		if end, ok := envAddress("MICRO32_RAM_END"); ok {
			b.ramEndMarker = end
		}
	}

	if b.monitorOn && b.monitorPort == 0 {
		if port, ok := envAddress("MICRO32_MONITOR_PORT"); ok {
			b.monitorPort = int(port)
		}
	}

	return b
}

func envAddress(name string) (uint64, bool) {
	s, ok := os.LookupEnv(name)
	if !ok || s == "" {
		return 0, false
	}

	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		panic(fmt.Errorf("parsing %s: %w", name, err))
	}

	return v, true
}
