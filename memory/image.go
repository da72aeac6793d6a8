// Package memory provides the expected memory image that execution logs are
// checked against.
package memory

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
)

const defaultUnitSize = 4096

// An Image is the sparse, byte-addressed content of memory that a simulation
// is expected to produce.
//
// The image manages the bytes in units, similar to pages. Units that no
// record touches are never allocated. Within a unit, a bitmap tracks which
// addresses have actually been defined, so an address that was never written
// is reported as absent rather than as zero.
type Image struct {
	unitSize uint64
	units    map[uint64]*unit
	size     int
}

type unit struct {
	data  []byte
	valid *bitset.BitSet
}

// NewImage creates an empty image.
func NewImage() *Image {
	return &Image{
		unitSize: defaultUnitSize,
		units:    make(map[uint64]*unit),
	}
}

func (m *Image) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % m.unitSize
	baseAddr = addr - inUnitAddr

	return
}

func (m *Image) createOrGetUnit(addr uint64) *unit {
	baseAddr, _ := m.parseAddress(addr)

	u, ok := m.units[baseAddr]
	if !ok {
		u = &unit{
			data:  make([]byte, m.unitSize),
			valid: bitset.New(uint(m.unitSize)),
		}
		m.units[baseAddr] = u
	}

	return u
}

// Set defines the byte at addr. A previously defined value is overwritten.
func (m *Image) Set(addr uint64, value byte) {
	u := m.createOrGetUnit(addr)
	_, inUnitAddr := m.parseAddress(addr)

	if !u.valid.Test(uint(inUnitAddr)) {
		u.valid.Set(uint(inUnitAddr))
		m.size++
	}

	u.data[inUnitAddr] = value
}

// Lookup returns the byte at addr and whether the address is defined.
func (m *Image) Lookup(addr uint64) (byte, bool) {
	baseAddr, inUnitAddr := m.parseAddress(addr)

	u, ok := m.units[baseAddr]
	if !ok || !u.valid.Test(uint(inUnitAddr)) {
		return 0, false
	}

	return u.data[inUnitAddr], true
}

// Len returns the number of defined addresses.
func (m *Image) Len() int {
	return m.size
}

// Addresses returns all defined addresses in ascending order.
func (m *Image) Addresses() []uint64 {
	bases := make([]uint64, 0, len(m.units))
	for base := range m.units {
		bases = append(bases, base)
	}

	sort.Slice(bases, func(i, j int) bool { return bases[i] < bases[j] })

	addrs := make([]uint64, 0, m.size)
	for _, base := range bases {
		valid := m.units[base].valid
		for i, ok := valid.NextSet(0); ok; i, ok = valid.NextSet(i + 1) {
			addrs = append(addrs, base+uint64(i))
		}
	}

	return addrs
}
