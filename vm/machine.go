package vm

import "fmt"

// ---------------------------------------------------------------------------
// Machine: one VM instance and its driving loop
// ---------------------------------------------------------------------------

// Status is the result of executing one instruction.
type Status int

const (
	// Running means the instruction completed and decoding continues at the
	// new instruction pointer.
	Running Status = iota

	// Stalled means an INP found no input available. Nothing was mutated;
	// the instruction must be retried from the same pointer once input
	// exists.
	Stalled

	// Halted means HLT executed (or a fatal error stopped the machine).
	// A halted machine must not be stepped again.
	Halted
)

// String implements the Stringer interface.
func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Stalled:
		return "stalled"
	case Halted:
		return "halted"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// HaltSentinel is the reserved instruction-pointer value HLT installs. It
// is unreachable by valid pointer arithmetic since addresses are
// non-negative.
const HaltSentinel Word = -1

// InputFunc attempts to produce the next input value. It must report
// failure without side effects so a stalled INP can poll it again later.
type InputFunc func() (Word, bool)

// OutputFunc accepts one emitted value. Emission order is the program's
// output order.
type OutputFunc func(Word)

// Machine is a single VM instance: a growable memory arena, an instruction
// pointer, a relative base, and the input/output endpoints. All state
// persists across stall/resume boundaries. A Machine is not safe for
// concurrent use; the driver makes one call at a time.
type Machine struct {
	mem *Memory
	ip  Word
	rel Word

	in  InputFunc
	out OutputFunc

	halted    bool
	steps     uint64
	stepLimit uint64 // 0 = unlimited
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithInput sets the machine's input source.
func WithInput(in InputFunc) MachineOption {
	return func(m *Machine) { m.in = in }
}

// WithOutput sets the machine's output sink.
func WithOutput(out OutputFunc) MachineOption {
	return func(m *Machine) { m.out = out }
}

// WithStepLimit bounds the number of instructions the machine may execute.
// Exceeding the bound is a fatal ErrStepLimit.
func WithStepLimit(n uint64) MachineOption {
	return func(m *Machine) { m.stepLimit = n }
}

// NewMachine creates a machine with its memory initialized from a copy of
// program and the pointer at address zero. Without options the input
// source is always exhausted and output is discarded.
func NewMachine(program []Word, opts ...MachineOption) *Machine {
	m := &Machine{
		mem: NewMemory(program),
		in:  func() (Word, bool) { return 0, false },
		out: func(Word) {},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetInput replaces the machine's input source.
func (m *Machine) SetInput(in InputFunc) {
	m.in = in
}

// SetOutput replaces the machine's output sink.
func (m *Machine) SetOutput(out OutputFunc) {
	m.out = out
}

// IP returns the current instruction pointer.
func (m *Machine) IP() Word {
	return m.ip
}

// RelativeBase returns the current relative base.
func (m *Machine) RelativeBase() Word {
	return m.rel
}

// Steps returns the number of instructions executed so far. Stalled INP
// attempts do not count.
func (m *Machine) Steps() uint64 {
	return m.steps
}

// Halted reports whether the machine has halted (by HLT or fatally).
func (m *Machine) Halted() bool {
	return m.halted
}

// Peek reads a memory cell without growing the arena's step state.
func (m *Machine) Peek(addr Word) (Word, error) {
	return m.mem.Load(addr)
}

// Poke writes a memory cell directly. Used by drivers that patch a program
// before running it.
func (m *Machine) Poke(addr Word, v Word) error {
	return m.mem.Store(addr, v)
}

// Snapshot returns a copy of the machine's current memory cells.
func (m *Machine) Snapshot() []Word {
	return m.mem.Snapshot()
}

// Step fetches, decodes, and executes one instruction.
//
// It returns Running when decoding should continue at the new pointer,
// Stalled when an INP found no input (retry later from the same pointer),
// and Halted when HLT executed. Any error is fatal: the machine is marked
// halted and must not be stepped again.
func (m *Machine) Step() (Status, error) {
	if m.halted {
		return Halted, fmt.Errorf("at ip %d: %w", m.ip, ErrHalted)
	}
	if m.stepLimit > 0 && m.steps >= m.stepLimit {
		m.halted = true
		return Halted, fmt.Errorf("after %d steps: %w", m.steps, ErrStepLimit)
	}

	raw, err := m.mem.Load(m.ip)
	if err != nil {
		m.halted = true
		return Halted, fmt.Errorf("at ip %d: %w", m.ip, err)
	}

	op, modes, err := Decode(raw)
	if err != nil {
		m.halted = true
		return Halted, fmt.Errorf("at ip %d: %w", m.ip, err)
	}

	status, err := handlers[op](m, modes)
	if err != nil {
		m.halted = true
		return Halted, fmt.Errorf("%s at ip %d: %w", op, m.ip, err)
	}
	if status == Halted {
		m.halted = true
	}
	if status != Stalled {
		m.steps++
	}
	return status, nil
}

// Run drives the machine until it stalls or halts. The caller may resume a
// stalled machine by calling Run again once its input source can produce
// a value.
func (m *Machine) Run() (Status, error) {
	for {
		status, err := m.Step()
		if err != nil {
			return status, err
		}
		if status != Running {
			return status, nil
		}
	}
}
