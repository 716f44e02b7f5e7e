package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// formatOperand renders one operand cell under its addressing mode.
func formatOperand(raw Word, mode Mode) string {
	switch mode {
	case Immediate:
		return fmt.Sprintf("%d", raw)
	case Relative:
		if raw < 0 {
			return fmt.Sprintf("[rel%d]", raw)
		}
		return fmt.Sprintf("[rel+%d]", raw)
	default: // Position
		return fmt.Sprintf("[%d]", raw)
	}
}

// DisassembleInstruction disassembles the instruction at pos. Returns the
// string representation and the position of the next instruction. A word
// that does not decode renders as data and advances by one cell.
func DisassembleInstruction(words []Word, pos int) (string, int) {
	raw := words[pos]
	op, modes, err := Decode(raw)
	if err != nil {
		return fmt.Sprintf("%04d  .word %d", pos, raw), pos + 1
	}

	n := op.Info().Operands
	if pos+n >= len(words) {
		// Truncated tail: not enough operand cells left.
		return fmt.Sprintf("%04d  .word %d", pos, raw), pos + 1
	}

	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, formatOperand(words[pos+i], modes[i-1]))
	}
	if n == 0 {
		return fmt.Sprintf("%04d  %s", pos, op.Name()), pos + 1
	}
	return fmt.Sprintf("%04d  %s %s", pos, op.Name(), strings.Join(parts, " ")), pos + 1 + n
}

// Disassemble returns a full linear disassembly of a program. It makes no
// attempt to separate code from data; cells that decode render as
// instructions, the rest as .word lines.
func Disassemble(words []Word) string {
	var sb strings.Builder
	pos := 0
	for pos < len(words) {
		line, next := DisassembleInstruction(words, pos)
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
		pos = next
	}
	return sb.String()
}
