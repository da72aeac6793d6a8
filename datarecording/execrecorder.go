package datarecording

import (
	"os"
	"strings"
	"time"
)

const execTableName = "exec_info"

const timeFormat = "2006-01-02 15:04:05.000000000"

// ExecInfo is one property of a recorded run.
type ExecInfo struct {
	Property string
	Value    string
}

// An ExecRecorder records how and when a check was run.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates an ExecRecorder that writes into the exec_info
// table of recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{
		recorder: recorder,
	}

	recorder.CreateTable(execTableName, ExecInfo{})

	return e
}

// Start records the current time, the command line and the working directory.
func (e *ExecRecorder) Start() {
	e.StartAt(time.Now())
}

// StartAt is like Start but takes the start time from the caller, for runs
// that open the recorder only after part of the work is done.
func (e *ExecRecorder) StartAt(t time.Time) {
	e.Add("Start Time", t.Format(timeFormat))
	e.Add("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err == nil {
		e.Add("Working Directory", cwd)
	}
}

// Add records an extra property of the run.
func (e *ExecRecorder) Add(property, value string) {
	e.entries = append(e.entries, ExecInfo{property, value})
}

// End writes the recorded properties along with the end time.
func (e *ExecRecorder) End() {
	for _, entry := range e.entries {
		e.recorder.InsertData(execTableName, entry)
	}

	e.recorder.InsertData(execTableName,
		ExecInfo{"End Time", time.Now().Format(timeFormat)})

	e.entries = nil

	e.recorder.Flush()
}
