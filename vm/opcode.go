package vm

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Word is the machine's cell type: every memory cell, operand, and address
// is a signed 64-bit integer.
type Word = int64

// Opcode represents a single machine operation, selected by the low two
// decimal digits of a raw instruction word.
type Opcode int

const (
	OpNOP Opcode = 0  // no operation
	OpADD Opcode = 1  // operand3 := operand1 + operand2
	OpMUL Opcode = 2  // operand3 := operand1 * operand2
	OpINP Opcode = 3  // operand1 := next input value (stalls when none available)
	OpOUT Opcode = 4  // emit operand1
	OpJNZ Opcode = 5  // jump to operand2 if operand1 is nonzero
	OpJEZ Opcode = 6  // jump to operand2 if operand1 is zero
	OpTLT Opcode = 7  // operand3 := 1 if operand1 < operand2, else 0
	OpTEQ Opcode = 8  // operand3 := 1 if operand1 = operand2, else 0
	OpREL Opcode = 9  // relative base += operand1
	OpHLT Opcode = 99 // halt
)

// Mode is an operand addressing mode, decoded from one digit of the raw
// instruction word's mode field.
type Mode int

const (
	Position  Mode = 0 // operand cell holds an address
	Immediate Mode = 1 // operand cell holds the value itself
	Relative  Mode = 2 // operand cell holds an offset from the relative base
)

// Modes holds the addressing modes for an instruction's three operand
// slots, indexed by operand position (0 = first operand).
type Modes [3]Mode

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name     string // human-readable mnemonic
	Operands int    // number of operand cells following the instruction word
}

// opcodeTable maps opcodes to their metadata. Membership in this table is
// what makes a decoded opcode valid.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpNOP: {"NOP", 0},
	OpADD: {"ADD", 3},
	OpMUL: {"MUL", 3},
	OpINP: {"INP", 1},
	OpOUT: {"OUT", 1},
	OpJNZ: {"JNZ", 2},
	OpJEZ: {"JEZ", 2},
	OpTLT: {"TLT", 3},
	OpTEQ: {"TEQ", 3},
	OpREL: {"REL", 1},
	OpHLT: {"HLT", 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02d", int(op)), Operands: 0}
}

// Name returns the human-readable mnemonic for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// Valid reports whether the opcode is part of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeTable[op]
	return ok
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// String implements the Stringer interface.
func (m Mode) String() string {
	switch m {
	case Position:
		return "position"
	case Immediate:
		return "immediate"
	case Relative:
		return "relative"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}
