package vm

// ---------------------------------------------------------------------------
// Input/output adapters
//
// Small helpers that turn common value sources and sinks into the
// InputFunc/OutputFunc shape the machine polls. A driver composing
// machines (see the pipe package) supplies its own.
// ---------------------------------------------------------------------------

// SliceInput returns an input source yielding the given values in order,
// then reporting exhaustion.
func SliceInput(values ...Word) InputFunc {
	i := 0
	return func() (Word, bool) {
		if i >= len(values) {
			return 0, false
		}
		v := values[i]
		i++
		return v, true
	}
}

// ChanInput returns an input source that polls ch without blocking. An
// empty channel reports no input, which stalls an INP until the driver
// runs the machine again.
func ChanInput(ch <-chan Word) InputFunc {
	return func() (Word, bool) {
		select {
		case v, ok := <-ch:
			if !ok {
				return 0, false
			}
			return v, true
		default:
			return 0, false
		}
	}
}

// SliceOutput returns an output sink appending emitted values to *dst in
// emission order.
func SliceOutput(dst *[]Word) OutputFunc {
	return func(v Word) {
		*dst = append(*dst, v)
	}
}

// ChanOutput returns an output sink sending emitted values on ch. The send
// blocks when the channel is full; size the channel for the expected
// output volume when the consumer runs on the same goroutine.
func ChanOutput(ch chan<- Word) OutputFunc {
	return func(v Word) {
		ch <- v
	}
}
