package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/memcheck/checker"
)

// AbsentByte is printed in place of a memory byte the image does not define.
const AbsentByte = "--"

// A Printer writes a human readable report.
//
// Each inconsistency becomes one line: the entry position, the address, the
// logged bytes from least to most significant and, after a '|', the image
// bytes at the address and the three addresses after it. Both byte groups
// line up with ascending addresses.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a Printer that writes to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Begin prints the number of entries.
func (p *Printer) Begin(entries int) error {
	_, err := fmt.Fprintln(p.w, "Number of log entries:", entries)
	return err
}

// Inconsistency prints one diagnostic line.
func (p *Printer) Inconsistency(inc checker.Inconsistency) error {
	_, err := fmt.Fprintln(p.w, FormatInconsistency(inc))
	return err
}

// End prints the summary line.
func (p *Printer) End(positions []int) error {
	if len(positions) == 0 {
		_, err := fmt.Fprintln(p.w,
			"All log entries are consistent with the data file")
		return err
	}

	strs := make([]string, len(positions))
	for i, pos := range positions {
		strs[i] = strconv.Itoa(pos)
	}

	_, err := fmt.Fprintf(p.w, "Inconsistent lines (line numbers): [%s]\n",
		strings.Join(strs, ", "))

	return err
}

// FormatInconsistency renders an inconsistency as a single line.
func FormatInconsistency(inc checker.Inconsistency) string {
	fields := []string{
		strconv.Itoa(inc.Position),
		hex(inc.Address),
	}

	for i := checker.WordSize - 1; i >= 0; i-- {
		fields = append(fields, hex(uint64(inc.LogBytes[i])))
	}

	fields = append(fields, "|")

	for _, b := range inc.Memory {
		if !b.Present {
			fields = append(fields, AbsentByte)
			continue
		}

		fields = append(fields, hex(uint64(b.Value)))
	}

	return strings.Join(fields, " ")
}

func hex(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}
