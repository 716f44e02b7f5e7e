package vm

// ---------------------------------------------------------------------------
// Instruction implementations
//
// Each instruction is a transition function over the machine's pointer,
// relative base, memory, and I/O endpoints. Dispatch goes through the
// handlers table; the operation set is closed.
// ---------------------------------------------------------------------------

type execFunc func(m *Machine, modes Modes) (Status, error)

// handlers maps each opcode to its implementation. Every opcode in
// opcodeTable has an entry here.
var handlers = map[Opcode]execFunc{
	OpNOP: execNop,
	OpADD: execAdd,
	OpMUL: execMul,
	OpINP: execInput,
	OpOUT: execOutput,
	OpJNZ: execJumpNonzero,
	OpJEZ: execJumpZero,
	OpTLT: execLessThan,
	OpTEQ: execEquals,
	OpREL: execAdjustBase,
	OpHLT: execHalt,
}

// ---------------------------------------------------------------------------
// Operand resolution
// ---------------------------------------------------------------------------

// operand reads the value of operand n (1-based) of the current
// instruction according to its addressing mode.
func (m *Machine) operand(n int, modes Modes) (Word, error) {
	slot := m.ip + Word(n)
	raw, err := m.mem.Load(slot)
	if err != nil {
		return 0, err
	}
	switch modes[n-1] {
	case Immediate:
		return raw, nil
	case Relative:
		return m.mem.Load(raw + m.rel)
	default: // Position
		return m.mem.Load(raw)
	}
}

// target resolves operand n (1-based) to the address an instruction writes
// through. Reads of source operands are always captured before a store so
// coinciding addresses behave correctly. Immediate mode addresses the
// operand slot itself; a program selecting it as a write target takes
// responsibility for the result.
func (m *Machine) target(n int, modes Modes) (Word, error) {
	slot := m.ip + Word(n)
	raw, err := m.mem.Load(slot)
	if err != nil {
		return 0, err
	}
	switch modes[n-1] {
	case Immediate:
		return slot, nil
	case Relative:
		return raw + m.rel, nil
	default: // Position
		return raw, nil
	}
}

// ---------------------------------------------------------------------------
// Arithmetic and comparison
// ---------------------------------------------------------------------------

func execAdd(m *Machine, modes Modes) (Status, error) {
	a, err := m.operand(1, modes)
	if err != nil {
		return Halted, err
	}
	b, err := m.operand(2, modes)
	if err != nil {
		return Halted, err
	}
	dst, err := m.target(3, modes)
	if err != nil {
		return Halted, err
	}
	if err := m.mem.Store(dst, a+b); err != nil {
		return Halted, err
	}
	m.ip += 4
	return Running, nil
}

func execMul(m *Machine, modes Modes) (Status, error) {
	a, err := m.operand(1, modes)
	if err != nil {
		return Halted, err
	}
	b, err := m.operand(2, modes)
	if err != nil {
		return Halted, err
	}
	dst, err := m.target(3, modes)
	if err != nil {
		return Halted, err
	}
	if err := m.mem.Store(dst, a*b); err != nil {
		return Halted, err
	}
	m.ip += 4
	return Running, nil
}

func execLessThan(m *Machine, modes Modes) (Status, error) {
	a, err := m.operand(1, modes)
	if err != nil {
		return Halted, err
	}
	b, err := m.operand(2, modes)
	if err != nil {
		return Halted, err
	}
	dst, err := m.target(3, modes)
	if err != nil {
		return Halted, err
	}
	var v Word
	if a < b {
		v = 1
	}
	if err := m.mem.Store(dst, v); err != nil {
		return Halted, err
	}
	m.ip += 4
	return Running, nil
}

func execEquals(m *Machine, modes Modes) (Status, error) {
	a, err := m.operand(1, modes)
	if err != nil {
		return Halted, err
	}
	b, err := m.operand(2, modes)
	if err != nil {
		return Halted, err
	}
	dst, err := m.target(3, modes)
	if err != nil {
		return Halted, err
	}
	var v Word
	if a == b {
		v = 1
	}
	if err := m.mem.Store(dst, v); err != nil {
		return Halted, err
	}
	m.ip += 4
	return Running, nil
}

// ---------------------------------------------------------------------------
// I/O
// ---------------------------------------------------------------------------

// execInput is the sole suspension point in the instruction set. The input
// poll happens before any mutation so a stalled attempt leaves pointer,
// relative base, and memory untouched and is retried verbatim.
func execInput(m *Machine, modes Modes) (Status, error) {
	v, ok := m.in()
	if !ok {
		return Stalled, nil
	}
	dst, err := m.target(1, modes)
	if err != nil {
		return Halted, err
	}
	if err := m.mem.Store(dst, v); err != nil {
		return Halted, err
	}
	m.ip += 2
	return Running, nil
}

func execOutput(m *Machine, modes Modes) (Status, error) {
	v, err := m.operand(1, modes)
	if err != nil {
		return Halted, err
	}
	m.out(v)
	m.ip += 2
	return Running, nil
}

// ---------------------------------------------------------------------------
// Control flow
// ---------------------------------------------------------------------------

func execJumpNonzero(m *Machine, modes Modes) (Status, error) {
	cond, err := m.operand(1, modes)
	if err != nil {
		return Halted, err
	}
	dst, err := m.operand(2, modes)
	if err != nil {
		return Halted, err
	}
	if cond != 0 {
		m.ip = dst
	} else {
		m.ip += 3
	}
	return Running, nil
}

func execJumpZero(m *Machine, modes Modes) (Status, error) {
	cond, err := m.operand(1, modes)
	if err != nil {
		return Halted, err
	}
	dst, err := m.operand(2, modes)
	if err != nil {
		return Halted, err
	}
	if cond == 0 {
		m.ip = dst
	} else {
		m.ip += 3
	}
	return Running, nil
}

// ---------------------------------------------------------------------------
// Machine state
// ---------------------------------------------------------------------------

func execAdjustBase(m *Machine, modes Modes) (Status, error) {
	v, err := m.operand(1, modes)
	if err != nil {
		return Halted, err
	}
	m.rel += v
	m.ip += 2
	return Running, nil
}

func execNop(m *Machine, modes Modes) (Status, error) {
	m.ip++
	return Running, nil
}

func execHalt(m *Machine, modes Modes) (Status, error) {
	m.ip = HaltSentinel
	return Halted, nil
}
