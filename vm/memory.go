package vm

import "fmt"

// maxAddress caps how far the arena may extend. Any address a well-formed
// program can produce fits comfortably; addresses beyond the cap are
// treated the same as negative ones.
const maxAddress Word = 1 << 32

// Memory is a flat arena of words addressable from zero. Cells beyond the
// highest cell ever touched read as zero; the arena extends lazily and
// zero-fills on first access past its current bound.
type Memory struct {
	cells []Word
}

// NewMemory creates an arena initialized with a copy of the given program.
func NewMemory(program []Word) *Memory {
	cells := make([]Word, len(program))
	copy(cells, program)
	return &Memory{cells: cells}
}

// Load returns the word at addr, extending the arena if needed.
func (m *Memory) Load(addr Word) (Word, error) {
	if err := m.ensure(addr); err != nil {
		return 0, err
	}
	return m.cells[addr], nil
}

// Store writes v at addr, extending the arena if needed.
func (m *Memory) Store(addr Word, v Word) error {
	if err := m.ensure(addr); err != nil {
		return err
	}
	m.cells[addr] = v
	return nil
}

// Len returns the current extent of the arena in cells.
func (m *Memory) Len() int {
	return len(m.cells)
}

// Snapshot returns a copy of the arena's current cells.
func (m *Memory) Snapshot() []Word {
	out := make([]Word, len(m.cells))
	copy(out, m.cells)
	return out
}

// ensure validates addr and grows the arena to include it.
func (m *Memory) ensure(addr Word) error {
	if addr < 0 || addr >= maxAddress {
		return fmt.Errorf("address %d: %w", addr, ErrBadAddress)
	}
	if addr < Word(len(m.cells)) {
		return nil
	}
	grown := make([]Word, addr+1)
	copy(grown, m.cells)
	m.cells = grown
	return nil
}
