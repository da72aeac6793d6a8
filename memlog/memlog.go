// Package memlog parses the memory write log produced by a simulation run.
//
// Each data line has the form
//
//	<address> -> <value>
//
// with both numbers in hexadecimal. Lines that do not contain "->" are not
// data and are skipped.
package memlog

import (
	"bufio"
	"io"
	"strings"

	"github.com/sarchlab/memcheck/parsing"
)

// Separator splits the address from the value on a data line.
const Separator = "->"

const maxLineSize = 1 << 20

// An Entry is a single write recorded in the log.
type Entry struct {
	// Position is the 1-based index of the entry among all entries. Reports
	// refer to entries by position.
	Position int

	// Line is the 1-based line of the entry in the log text.
	Line int

	Address uint64
	Value   uint32
}

// Bytes returns the value split into bytes, most significant first.
func (e Entry) Bytes() [4]byte {
	return [4]byte{
		byte(e.Value >> 24),
		byte(e.Value >> 16),
		byte(e.Value >> 8),
		byte(e.Value),
	}
}

// Parse reads all entries from r, in order.
func Parse(r io.Reader) ([]Entry, error) {
	entries := []Entry{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if !strings.Contains(line, Separator) {
			continue
		}

		entry, err := parseLine(line, lineNo)
		if err != nil {
			return nil, err
		}

		entry.Position = len(entries) + 1
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, parsing.NewFormatError(lineNo+1, "", "%w", err)
	}

	return entries, nil
}

// ParseFile reads all entries from the log file at path.
func ParseFile(path string) ([]Entry, error) {
	var entries []Entry

	err := parsing.WithFile(path, func(r io.Reader) error {
		var parseErr error
		entries, parseErr = Parse(r)

		return parseErr
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func parseLine(line string, lineNo int) (Entry, error) {
	addrStr, valueStr, _ := strings.Cut(line, Separator)

	addr, err := parsing.ParseHex(strings.TrimSpace(addrStr), 64)
	if err != nil {
		return Entry{}, parsing.NewFormatError(lineNo, line, "bad address: %w", err)
	}

	value, err := parsing.ParseHex(strings.TrimSpace(valueStr), 32)
	if err != nil {
		return Entry{}, parsing.NewFormatError(lineNo, line, "bad value: %w", err)
	}

	return Entry{
		Line:    lineNo,
		Address: addr,
		Value:   uint32(value),
	}, nil
}
