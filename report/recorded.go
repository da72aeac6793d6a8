package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/memcheck/checker"
	"github.com/sarchlab/memcheck/datarecording"
)

// ErrIncompleteRecording is returned for a recording without a summary, which
// happens when the recorded run did not finish.
var ErrIncompleteRecording = errors.New("recording has no summary")

// A Page selects a window of the recorded inconsistencies. A zero Limit
// selects everything after Offset.
type Page struct {
	Limit  int
	Offset int
}

// Recorded is a run read back from a recording.
type Recorded struct {
	Summary SummaryEntry

	// Inconsistencies holds the selected page, in log order.
	Inconsistencies []InconsistencyEntry
	Offset          int
}

// Complete tells whether the page holds every recorded inconsistency.
func (r Recorded) Complete() bool {
	return r.Offset == 0 &&
		len(r.Inconsistencies) == r.Summary.Inconsistencies
}

// ReadRecording reads the summary and one page of inconsistencies that a
// RecordingSink stored.
func ReadRecording(
	ctx context.Context,
	reader datarecording.DataReader,
	page Page,
) (Recorded, error) {
	reader.MapTable(SummaryTable, SummaryEntry{})
	reader.MapTable(InconsistencyTable, InconsistencyEntry{})

	summaries, _, err := reader.Query(ctx, SummaryTable,
		datarecording.QueryParams{Limit: 1})
	if err != nil {
		return Recorded{}, err
	}

	if len(summaries) == 0 {
		return Recorded{}, ErrIncompleteRecording
	}

	rows, _, err := reader.Query(ctx, InconsistencyTable,
		datarecording.QueryParams{
			OrderBy: "Position",
			Limit:   page.Limit,
			Offset:  page.Offset,
		})
	if err != nil {
		return Recorded{}, err
	}

	rec := Recorded{
		Summary:         *summaries[0].(*SummaryEntry),
		Inconsistencies: make([]InconsistencyEntry, 0, len(rows)),
		Offset:          page.Offset,
	}

	for _, row := range rows {
		rec.Inconsistencies = append(rec.Inconsistencies,
			*row.(*InconsistencyEntry))
	}

	return rec, nil
}

// PrintRecorded writes a recorded run in the same layout a Printer uses for
// a live one. When only part of the inconsistencies is shown, the summary
// lists the shown positions and a last line tells which part it is.
func PrintRecorded(w io.Writer, rec Recorded) error {
	p := NewPrinter(w)

	err := p.Begin(rec.Summary.Entries)
	if err != nil {
		return err
	}

	positions := make([]int, 0, len(rec.Inconsistencies))

	for _, e := range rec.Inconsistencies {
		_, err = fmt.Fprintln(w, FormatEntry(e))
		if err != nil {
			return err
		}

		positions = append(positions, e.Position)
	}

	if rec.Summary.Consistent {
		return p.End(nil)
	}

	if len(positions) > 0 {
		err = p.End(positions)
		if err != nil {
			return err
		}
	}

	if rec.Complete() {
		return nil
	}

	_, err = fmt.Fprintf(w, "Showing %d of %d inconsistencies from #%d\n",
		len(positions), rec.Summary.Inconsistencies, rec.Offset+1)

	return err
}

// FormatEntry renders a recorded inconsistency like FormatInconsistency
// renders a live one.
func FormatEntry(e InconsistencyEntry) string {
	fields := []string{strconv.Itoa(e.Position), e.Address}

	for i := 0; i < checker.WordSize; i++ {
		fields = append(fields, hex(uint64(e.Value>>(8*i))&0xff))
	}

	fields = append(fields, "|", e.Memory)

	return strings.Join(fields, " ")
}
