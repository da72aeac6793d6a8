package report

import (
	"strconv"

	"github.com/sarchlab/memcheck/checker"
	"github.com/sarchlab/memcheck/datarecording"
)

// Table names used by RecordingSink.
const (
	InconsistencyTable = "inconsistency"
	SummaryTable       = "summary"
)

// InconsistencyEntry is the recorded form of an inconsistency. Addresses are
// stored as hexadecimal text because SQLite integers are signed 64-bit.
type InconsistencyEntry struct {
	Position   int
	Line       int
	Address    string
	Value      uint32
	ByteOffset int
	Memory     string
}

// SummaryEntry is the recorded outcome of a run.
type SummaryEntry struct {
	Entries         int
	Inconsistencies int
	Consistent      bool
}

// A RecordingSink stores the result through a DataRecorder.
type RecordingSink struct {
	recorder datarecording.DataRecorder
	entries  int
}

// NewRecordingSink creates the tables it needs and returns the sink.
func NewRecordingSink(recorder datarecording.DataRecorder) *RecordingSink {
	recorder.CreateTable(InconsistencyTable, InconsistencyEntry{})
	recorder.CreateTable(SummaryTable, SummaryEntry{})

	return &RecordingSink{recorder: recorder}
}

// Begin remembers the number of entries for the summary.
func (s *RecordingSink) Begin(entries int) error {
	s.entries = entries
	return nil
}

// Inconsistency buffers one row.
func (s *RecordingSink) Inconsistency(inc checker.Inconsistency) error {
	s.recorder.InsertData(InconsistencyTable, InconsistencyEntry{
		Position:   inc.Position,
		Line:       inc.Line,
		Address:    "0x" + strconv.FormatUint(inc.Address, 16),
		Value:      inc.Value,
		ByteOffset: inc.Offset,
		Memory:     memoryString(inc),
	})

	return nil
}

// End stores the summary and flushes.
func (s *RecordingSink) End(positions []int) error {
	s.recorder.InsertData(SummaryTable, SummaryEntry{
		Entries:         s.entries,
		Inconsistencies: len(positions),
		Consistent:      len(positions) == 0,
	})
	s.recorder.Flush()

	return nil
}

func memoryString(inc checker.Inconsistency) string {
	s := ""
	for i, b := range inc.Memory {
		if i > 0 {
			s += " "
		}

		if !b.Present {
			s += AbsentByte
			continue
		}

		s += hex(uint64(b.Value))
	}

	return s
}
