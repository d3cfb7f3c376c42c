// Package monitoring turns a running simulation into a web server so
// that long sweeps can be observed and controlled from a browser.
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
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/chromlab/nucleosim/sim"
)

// Monitor exposes the engines of a simulation over HTTP and allows
// external pausing, resuming, and inspection of the simulation.
type Monitor struct {
	portNumber  int
	openBrowser bool

	enginesLock sync.Mutex
	engineNames []string
	engines     map[string]sim.Engine

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		engines: make(map[string]sim.Engine),
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

// WithBrowser opens the monitor page in a browser when the server
// starts.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterEngine registers an engine under a name. Trials register
// their engines concurrently.
func (m *Monitor) RegisterEngine(name string, e sim.Engine) {
	m.enginesLock.Lock()
	defer m.enginesLock.Unlock()

	if _, exists := m.engines[name]; exists {
		panic("engine " + name + " already registered")
	}

	m.engineNames = append(m.engineNames, name)
	m.engines[name] = e
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars)-1)
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) createRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngines)
	r.HandleFunc("/api/continue", m.continueEngines)
	r.HandleFunc("/api/engines", m.listEngines)
	r.HandleFunc("/api/now/{name}", m.now)
	r.HandleFunc("/api/occupancy/{name}", m.occupancy)
	r.HandleFunc("/api/engine/{name}", m.engineDetails)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() {
	r := m.createRouter()

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	if m.openBrowser {
		err := browser.OpenURL(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open browser: %s\n", err)
		}
	}

	go func() {
		err = http.Serve(listener, r)
		dieOnErr(err)
	}()
}

func (m *Monitor) pauseEngines(w http.ResponseWriter, _ *http.Request) {
	m.enginesLock.Lock()
	defer m.enginesLock.Unlock()

	for _, e := range m.engines {
		e.Pause()
	}

	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueEngines(w http.ResponseWriter, _ *http.Request) {
	m.enginesLock.Lock()
	defer m.enginesLock.Unlock()

	for _, e := range m.engines {
		e.Continue()
	}

	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) listEngines(w http.ResponseWriter, _ *http.Request) {
	m.enginesLock.Lock()
	names := make([]string, len(m.engineNames))
	copy(names, m.engineNames)
	m.enginesLock.Unlock()

	bytes, err := json.Marshal(names)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, r *http.Request) {
	engine := m.findEngineOr404(w, mux.Vars(r)["name"])
	if engine == nil {
		return
	}

	fmt.Fprintf(w, "{\"now\":%.10f}", engine.CurrentTime())
}

func (m *Monitor) occupancy(w http.ResponseWriter, r *http.Request) {
	engine := m.findEngineOr404(w, mux.Vars(r)["name"])
	if engine == nil {
		return
	}

	countM, countU, countA := engine.Counts()
	fmt.Fprintf(w, "{\"m\":%d,\"u\":%d,\"a\":%d}", countM, countU, countA)
}

func (m *Monitor) engineDetails(w http.ResponseWriter, r *http.Request) {
	engine := m.findEngineOr404(w, mux.Vars(r)["name"])
	if engine == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(engine)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findEngineOr404(
	w http.ResponseWriter,
	name string,
) sim.Engine {
	m.enginesLock.Lock()
	engine := m.engines[name]
	m.enginesLock.Unlock()

	if engine == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Engine not found"))
		dieOnErr(err)
	}

	return engine
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bytes, err := json.Marshal(m.progressBars)
	m.progressBarsLock.Unlock()
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
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
