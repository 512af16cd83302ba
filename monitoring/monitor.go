// Package monitoring turns a running Micro32 machine into a small web
// server, so its memory map and devices can be inspected from a browser.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/micro32-project/micro32/mem"
	"github.com/micro32-project/micro32/mem/bootmem"
)

// A Monitor exposes the state of a machine over HTTP.
type Monitor struct {
	portNumber  int
	openBrowser bool

	negotiator *bootmem.Negotiator
	bus        mem.WordAccessor

	deviceNames []string
	devices     map[string]any
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		devices: make(map[string]any),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor in the default browser.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterNegotiator registers the region negotiator whose RAM state is
// served.
func (m *Monitor) RegisterNegotiator(n *bootmem.Negotiator) {
	m.negotiator = n
}

// RegisterBus registers the bus used to peek at memory words.
func (m *Monitor) RegisterBus(b mem.WordAccessor) {
	m.bus = b
}

// RegisterDevice registers a device to be monitored.
func (m *Monitor) RegisterDevice(name string, dev any) {
	if _, ok := m.devices[name]; ok {
		panic("device " + name + " already registered")
	}

	m.deviceNames = append(m.deviceNames, name)
	m.devices[name] = dev
}

// StartServer starts the monitor as a web server, on a random port unless
// one was configured.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	r.HandleFunc("/api/ram", m.ramState)
	r.HandleFunc("/api/devices", m.listDevices)
	r.HandleFunc("/api/device/{name}", m.deviceDetails)
	r.HandleFunc("/api/peek/{addr}", m.peekWord)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring machine with %s\n", url)

	if m.openBrowser {
		go func() {
			_ = browser.OpenURL(url)
		}()
	}

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

type ramStateRsp struct {
	Base      uint64 `json:"base"`
	Size      uint64 `json:"size"`
	Committed bool   `json:"committed"`
	Start     uint64 `json:"start"`
	End       uint64 `json:"end"`
}

func (m *Monitor) ramState(w http.ResponseWriter, _ *http.Request) {
	base, size := m.negotiator.RAMBounds()
	region := m.negotiator.ReservedRegion()

	rsp := ramStateRsp{
		Base:      base,
		Size:      size,
		Committed: m.negotiator.Committed(),
		Start:     region.Start,
		End:       region.End,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listDevices(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, name := range m.deviceNames {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "%q", name)
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) deviceDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	dev, ok := m.devices[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Device not found"))
		dieOnErr(err)

		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(dev)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) peekWord(w http.ResponseWriter, r *http.Request) {
	addrString := mux.Vars(r)["addr"]

	addr, err := strconv.ParseUint(addrString, 0, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	value, err := m.bus.Read32(addr)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	fmt.Fprintf(w, "{\"address\":%d,\"value\":%d}", addr, value)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
