package vm

import (
	"encoding/binary"

	"github.com/roach88/bir/internal/ir"
)

// DataBase is the address of the first byte of the data blob.
const DataBase uint64 = ir.WordSize

// memory is flat little-endian storage. Addresses below DataBase are
// never valid.
type memory struct {
	bytes []byte
}

func newMemory(size uint64) *memory {
	return &memory{bytes: make([]byte, size)}
}

func (m *memory) size() uint64 { return uint64(len(m.bytes)) }

func (m *memory) check(addr, n uint64) error {
	if addr < DataBase || addr > m.size() || n > m.size()-addr {
		return fault(FaultBadAddress, "access of %d bytes at %#x outside memory [%#x, %#x)", n, addr, DataBase, m.size())
	}
	return nil
}

func (m *memory) load(addr uint64) (uint64, error) {
	if err := m.check(addr, ir.WordSize); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.bytes[addr:]), nil
}

func (m *memory) store(addr, v uint64) error {
	if err := m.check(addr, ir.WordSize); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.bytes[addr:], v)
	return nil
}

func (m *memory) loadByte(addr uint64) (byte, error) {
	if err := m.check(addr, 1); err != nil {
		return 0, err
	}
	return m.bytes[addr], nil
}

// zero clears n words starting at addr. The range must already be checked.
func (m *memory) zero(addr, words uint64) {
	clear(m.bytes[addr : addr+words*ir.WordSize])
}

// cString reads bytes from addr up to, not including, the first zero byte.
func (m *memory) cString(addr uint64) (string, error) {
	if err := m.check(addr, 1); err != nil {
		return "", err
	}
	for end := addr; end < m.size(); end++ {
		if m.bytes[end] == 0 {
			return string(m.bytes[addr:end]), nil
		}
	}
	return "", fault(FaultBadAddress, "string at %#x is not terminated", addr)
}

func alignWord(n uint64) uint64 {
	return (n + ir.WordSize - 1) &^ (ir.WordSize - 1)
}
