// Package checker compares the writes recorded in an execution log with an
// expected memory image.
package checker

import (
	"math"

	"github.com/sarchlab/memcheck/memlog"
)

// WordSize is the number of bytes covered by one log entry.
const WordSize = 4

// A ByteSource provides the expected bytes of memory.
type ByteSource interface {
	Lookup(addr uint64) (byte, bool)
}

// Comparison is the outcome of checking one byte.
type Comparison int

// The outcomes of checking one byte against the memory image.
const (
	NotCheckable Comparison = iota
	Match
	Mismatch
)

func (c Comparison) String() string {
	switch c {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	default:
		return "not checkable"
	}
}

// A MemoryByte is a byte read from the memory image, which may be absent.
type MemoryByte struct {
	Value   byte
	Present bool
}

// An Inconsistency describes a log entry that disagrees with the memory
// image.
type Inconsistency struct {
	Position int
	Line     int
	Address  uint64
	Value    uint32

	// Offset is the first offset from Address at which the bytes differ.
	Offset int

	// LogBytes holds the logged value, most significant byte first.
	LogBytes [WordSize]byte

	// Memory holds the image bytes at Address, Address+1, ..., in order.
	Memory [WordSize]MemoryByte
}

// Result is the outcome of checking a whole log.
type Result struct {
	Entries         int
	Inconsistencies []Inconsistency
}

// Consistent returns true if no entry disagrees with the image.
func (r Result) Consistent() bool {
	return len(r.Inconsistencies) == 0
}

// Positions returns the positions of the inconsistent entries, in order.
func (r Result) Positions() []int {
	positions := make([]int, 0, len(r.Inconsistencies))
	for _, inc := range r.Inconsistencies {
		positions = append(positions, inc.Position)
	}

	return positions
}

// Find returns the inconsistency reported for the entry at position.
func (r Result) Find(position int) (Inconsistency, bool) {
	for _, inc := range r.Inconsistencies {
		if inc.Position == position {
			return inc, true
		}
	}

	return Inconsistency{}, false
}

// Compare checks the image byte at addr+offset against the logged byte that
// belongs there. The image is little-endian relative to the logged value, so
// addr+0 holds the least significant byte.
func Compare(img ByteSource, addr uint64, offset int, logBytes [WordSize]byte) Comparison {
	b, ok := lookup(img, addr, offset)
	if !ok {
		return NotCheckable
	}

	if b != logBytes[WordSize-1-offset] {
		return Mismatch
	}

	return Match
}

// Check compares every entry with the image and returns the entries that
// disagree. Addresses the image does not define are not checked.
func Check(img ByteSource, entries []memlog.Entry) Result {
	res := Result{Entries: len(entries)}

	for _, e := range entries {
		inc, found := checkEntry(img, e)
		if found {
			res.Inconsistencies = append(res.Inconsistencies, inc)
		}
	}

	return res
}

func checkEntry(img ByteSource, e memlog.Entry) (Inconsistency, bool) {
	logBytes := e.Bytes()

	for offset := 0; offset < WordSize; offset++ {
		if Compare(img, e.Address, offset, logBytes) != Mismatch {
			continue
		}

		inc := Inconsistency{
			Position: e.Position,
			Line:     e.Line,
			Address:  e.Address,
			Value:    e.Value,
			Offset:   offset,
			LogBytes: logBytes,
		}

		for i := range inc.Memory {
			b, ok := lookup(img, e.Address, i)
			inc.Memory[i] = MemoryByte{Value: b, Present: ok}
		}

		return inc, true
	}

	return Inconsistency{}, false
}

func lookup(img ByteSource, addr uint64, offset int) (byte, bool) {
	if uint64(offset) > math.MaxUint64-addr {
		return 0, false
	}

	return img.Lookup(addr + uint64(offset))
}
