package vm

import (
	"errors"
	"fmt"
	"strconv"
)

// Errors surfaced by decoding and execution. All are fatal to the affected
// machine except where noted; callers distinguish them with errors.Is.
var (
	// ErrDecode indicates a raw instruction word outside the decodable range.
	ErrDecode = errors.New("vm: malformed instruction word")

	// ErrBadOpcode indicates an instruction word whose opcode digits name no
	// known operation.
	ErrBadOpcode = errors.New("vm: invalid opcode")

	// ErrBadMode indicates a mode digit outside the addressing-mode set.
	ErrBadMode = errors.New("vm: invalid addressing mode")

	// ErrBadAddress indicates a resolved address that is negative or beyond
	// the machine's address cap.
	ErrBadAddress = errors.New("vm: address out of range")

	// ErrHalted indicates an attempt to step a machine that has halted.
	ErrHalted = errors.New("vm: machine halted")

	// ErrStepLimit indicates the machine exceeded its configured step budget.
	ErrStepLimit = errors.New("vm: step limit exceeded")
)

// rawWidth is the decodable width of an instruction word: two opcode digits
// plus one mode digit per operand slot.
const rawWidth = 5

// Decode splits a raw instruction word into its opcode and the addressing
// modes of its three operand slots.
//
// The word is read as a zero-padded five-digit decimal number: the low two
// digits select the opcode and the remaining digits, least significant
// first, select the mode of the first, second, and third operand. Missing
// leading digits are position mode. Decoding is deterministic and has no
// side effects, so the same word always yields the same result.
func Decode(word Word) (Opcode, Modes, error) {
	var modes Modes
	if word < 0 || word > 99999 {
		return 0, modes, fmt.Errorf("word %d: %w", word, ErrDecode)
	}

	s := fmt.Sprintf("%0*d", rawWidth, word)

	opDigits, err := strconv.Atoi(s[3:])
	if err != nil {
		return 0, modes, fmt.Errorf("word %d: %w", word, ErrDecode)
	}
	op := Opcode(opDigits)
	if !op.Valid() {
		return 0, modes, fmt.Errorf("opcode %02d in word %d: %w", opDigits, word, ErrBadOpcode)
	}

	// s[2] is the units digit of the mode field (first operand), s[0] the
	// hundreds digit (third operand).
	for i := 0; i < 3; i++ {
		digit := int(s[2-i] - '0')
		if digit > int(Relative) {
			return 0, modes, fmt.Errorf("mode digit %d for operand %d in word %d: %w",
				digit, i+1, word, ErrBadMode)
		}
		modes[i] = Mode(digit)
	}

	return op, modes, nil
}
