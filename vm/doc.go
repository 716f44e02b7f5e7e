// Package vm implements the integer-code virtual machine.
//
// This package contains:
//   - Instruction word decoding and the opcode table
//   - The growable zero-filled memory arena
//   - The fetch-decode-execute engine with its stall/resume contract
//   - Program source parsing and disassembly
//   - Input/output adapters for driving machines
package vm
