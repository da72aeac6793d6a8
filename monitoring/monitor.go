// Package monitoring serves the result of a check run over HTTP so that it
// can be browsed while the process is alive.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
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
	"github.com/sarchlab/memcheck/checker"
	"github.com/sarchlab/memcheck/monitoring/web"
	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"
	"github.com/syifan/goseth"
)

// Ports below minPortNumber are privileged and never requested.
const (
	minPortNumber = 1024
	maxPortNumber = 65535
)

// Monitor turns a finished check into a small web server.
type Monitor struct {
	portNumber int
	server     *http.Server

	lock     sync.RWMutex
	dataFile string
	logFile  string
	result   checker.Result
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 &&
		(portNumber < minPortNumber || portNumber > maxPortNumber) {
		log.Warnf("Port number %d is assigned to the monitoring server, "+
			"which is not allowed. Using a random port instead.", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterResult sets the result to serve.
func (m *Monitor) RegisterResult(dataFile, logFile string, res checker.Result) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.dataFile = dataFile
	m.logFile = logFile
	m.result = res
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())
	r.HandleFunc("/api/summary", m.summary)
	r.HandleFunc("/api/inconsistencies", m.listInconsistencies)
	r.HandleFunc("/api/inconsistency/{position}", m.inconsistencyDetails)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer starts serving in the background and returns the URL of the
// result page.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber != 0 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.server = &http.Server{
		Handler:           m.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Monitoring server stopped: %v", err)
		}
	}()

	log.Infof("Monitoring check result with %s", url)

	return url, nil
}

// Close stops the server.
func (m *Monitor) Close() error {
	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

type summaryRsp struct {
	DataFile        string `json:"data_file"`
	LogFile         string `json:"log_file"`
	Entries         int    `json:"entries"`
	Inconsistencies int    `json:"inconsistencies"`
	Consistent      bool   `json:"consistent"`
}

func (m *Monitor) summary(w http.ResponseWriter, _ *http.Request) {
	m.lock.RLock()
	rsp := summaryRsp{
		DataFile:        m.dataFile,
		LogFile:         m.logFile,
		Entries:         m.result.Entries,
		Inconsistencies: len(m.result.Inconsistencies),
		Consistent:      m.result.Consistent(),
	}
	m.lock.RUnlock()

	writeJSON(w, rsp)
}

type inconsistencyRsp struct {
	Position int    `json:"position"`
	Line     int    `json:"line"`
	Address  string `json:"address"`
	Value    uint32 `json:"value"`
	Offset   int    `json:"offset"`
	LogBytes []int  `json:"log_bytes"`
	Memory   []*int `json:"memory"`
}

type inconsistencyListRsp struct {
	Total           int                `json:"total"`
	Inconsistencies []inconsistencyRsp `json:"inconsistencies"`
}

func toRsp(inc checker.Inconsistency) inconsistencyRsp {
	rsp := inconsistencyRsp{
		Position: inc.Position,
		Line:     inc.Line,
		Address:  "0x" + strconv.FormatUint(inc.Address, 16),
		Value:    inc.Value,
		Offset:   inc.Offset,
		LogBytes: make([]int, 0, checker.WordSize),
		Memory:   make([]*int, 0, checker.WordSize),
	}

	for _, b := range inc.LogBytes {
		rsp.LogBytes = append(rsp.LogBytes, int(b))
	}

	for _, b := range inc.Memory {
		if !b.Present {
			rsp.Memory = append(rsp.Memory, nil)
			continue
		}

		v := int(b.Value)
		rsp.Memory = append(rsp.Memory, &v)
	}

	return rsp
}

func (m *Monitor) listInconsistencies(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePageParams(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.lock.RLock()
	all := m.result.Inconsistencies
	m.lock.RUnlock()

	rsp := inconsistencyListRsp{
		Total:           len(all),
		Inconsistencies: []inconsistencyRsp{},
	}

	start := min(offset, len(all))
	end := len(all)
	if limit > 0 {
		end = min(start+limit, len(all))
	}

	for _, inc := range all[start:end] {
		rsp.Inconsistencies = append(rsp.Inconsistencies, toRsp(inc))
	}

	writeJSON(w, rsp)
}

func parsePageParams(r *http.Request) (limit, offset int, err error) {
	limit, err = intParam(r, "limit")
	if err != nil {
		return 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return 0, 0, err
	}

	return limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(str)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, str)
	}

	return n, nil
}

func (m *Monitor) inconsistencyDetails(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(mux.Vars(r)["position"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: invalid position")

		return
	}

	m.lock.RLock()
	inc, found := m.result.Find(position)
	m.lock.RUnlock()

	if !found {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "Entry %d is not inconsistent", position)

		return
	}

	rsp := toRsp(inc)

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&rsp)
	serializer.SetMaxDepth(2)

	err = serializer.Serialize(w)
	if err != nil {
		log.Errorf("Serializing inconsistency %d: %v", position, err)
	}
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		internalError(w, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		internalError(w, err)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		internalError(w, err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		internalError(w, err)
		return
	}

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		internalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(data)
	if err != nil {
		log.Debugf("Writing response: %v", err)
	}
}

func internalError(w http.ResponseWriter, err error) {
	log.Errorf("Monitoring request failed: %v", err)
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, "Error: %s", err)
}
