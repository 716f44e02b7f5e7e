package vm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parse reads program source text: a comma-separated sequence of signed
// decimal integers, with whitespace around values tolerated. The resulting
// words populate memory from address zero; everything beyond them is
// implicitly zero.
func Parse(src string) ([]Word, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("vm: empty program")
	}

	fields := strings.Split(src, ",")
	words := make([]Word, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("vm: program value %q at index %d: %w", strings.TrimSpace(f), i, err)
		}
		words = append(words, v)
	}
	return words, nil
}

// Format renders words back into program source text.
func Format(words []Word) string {
	var sb strings.Builder
	for i, w := range words {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(w, 10))
	}
	return sb.String()
}
