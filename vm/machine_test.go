package vm

import (
	"errors"
	"reflect"
	"testing"
)

// ---------------------------------------------------------------------------
// Arithmetic scenario tests
// ---------------------------------------------------------------------------

func TestAddMulScenario(t *testing.T) {
	m := NewMachine([]Word{1, 9, 10, 3, 2, 3, 11, 0, 99, 30, 40, 50})

	status, err := m.Step()
	if err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if status != Running {
		t.Fatalf("step 1: status = %v, want running", status)
	}
	if v, _ := m.Peek(3); v != 70 {
		t.Errorf("after ADD: mem[3] = %d, want 70", v)
	}
	if m.IP() != 4 {
		t.Errorf("after ADD: ip = %d, want 4", m.IP())
	}

	if _, err := m.Step(); err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if v, _ := m.Peek(0); v != 3500 {
		t.Errorf("after MUL: mem[0] = %d, want 3500", v)
	}

	status, err = m.Step()
	if err != nil {
		t.Fatalf("step 3: %v", err)
	}
	if status != Halted {
		t.Errorf("step 3: status = %v, want halted", status)
	}
}

func TestArithmeticDoesNotTouchRelativeBase(t *testing.T) {
	m := NewMachine([]Word{1101, 2, 3, 9, 1102, 4, 5, 10, 99, 0, 0})

	for i := 0; i < 2; i++ {
		if _, err := m.Step(); err != nil {
			t.Fatalf("step %d: %v", i+1, err)
		}
		if m.RelativeBase() != 0 {
			t.Errorf("step %d: relative base = %d, want 0", i+1, m.RelativeBase())
		}
	}
	if m.IP() != 8 {
		t.Errorf("ip = %d, want 8 (two +4 advances)", m.IP())
	}
	if v, _ := m.Peek(9); v != 5 {
		t.Errorf("mem[9] = %d, want 5", v)
	}
	if v, _ := m.Peek(10); v != 20 {
		t.Errorf("mem[10] = %d, want 20", v)
	}
}

func TestAliasedOperands(t *testing.T) {
	// ADD reading and writing the same cell: sources are captured before
	// the store.
	m := NewMachine([]Word{1, 4, 4, 4, 21})
	if _, err := m.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if v, _ := m.Peek(4); v != 42 {
		t.Errorf("mem[4] = %d, want 42 (21+21)", v)
	}
}

// ---------------------------------------------------------------------------
// I/O and stall/resume tests
// ---------------------------------------------------------------------------

func TestInputOutputScenario(t *testing.T) {
	var out []Word
	m := NewMachine([]Word{3, 0, 4, 0, 99},
		WithInput(SliceInput(42)),
		WithOutput(SliceOutput(&out)))

	if _, err := m.Step(); err != nil {
		t.Fatalf("step 1: %v", err)
	}
	if v, _ := m.Peek(0); v != 42 {
		t.Errorf("after INP: mem[0] = %d, want 42", v)
	}
	if m.IP() != 2 {
		t.Errorf("after INP: ip = %d, want 2", m.IP())
	}

	if _, err := m.Step(); err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if !reflect.DeepEqual(out, []Word{42}) {
		t.Errorf("output = %v, want [42]", out)
	}

	status, err := m.Step()
	if err != nil {
		t.Fatalf("step 3: %v", err)
	}
	if status != Halted {
		t.Errorf("step 3: status = %v, want halted", status)
	}
}

func TestInputStallIsIdempotent(t *testing.T) {
	m := NewMachine([]Word{3, 0, 99})

	before := m.Snapshot()
	beforeIP := m.IP()
	beforeRel := m.RelativeBase()

	status, err := m.Step()
	if err != nil {
		t.Fatalf("stalled step: %v", err)
	}
	if status != Stalled {
		t.Fatalf("status = %v, want stalled", status)
	}
	if !reflect.DeepEqual(m.Snapshot(), before) {
		t.Error("stalled INP mutated memory")
	}
	if m.IP() != beforeIP {
		t.Errorf("stalled INP moved ip: %d -> %d", beforeIP, m.IP())
	}
	if m.RelativeBase() != beforeRel {
		t.Errorf("stalled INP moved relative base: %d -> %d", beforeRel, m.RelativeBase())
	}
	if m.Steps() != 0 {
		t.Errorf("stalled INP counted as a step: %d", m.Steps())
	}

	// Retry from the same pointer with input now available.
	m.SetInput(SliceInput(7))
	status, err = m.Step()
	if err != nil {
		t.Fatalf("retry step: %v", err)
	}
	if status != Running {
		t.Errorf("retry status = %v, want running", status)
	}
	if v, _ := m.Peek(0); v != 7 {
		t.Errorf("mem[0] = %d, want 7", v)
	}
	if m.IP() != 2 {
		t.Errorf("ip = %d, want 2", m.IP())
	}
}

func TestRunStallsAndResumes(t *testing.T) {
	// Read two values, add them, output the sum.
	var out []Word
	m := NewMachine([]Word{3, 11, 3, 12, 1, 11, 12, 12, 4, 12, 99},
		WithInput(SliceInput(30)),
		WithOutput(SliceOutput(&out)))

	status, err := m.Run()
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if status != Stalled {
		t.Fatalf("first run: status = %v, want stalled", status)
	}

	m.SetInput(SliceInput(12))
	status, err = m.Run()
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if status != Halted {
		t.Fatalf("second run: status = %v, want halted", status)
	}
	if !reflect.DeepEqual(out, []Word{42}) {
		t.Errorf("output = %v, want [42]", out)
	}
}

func TestOutputOrderPreserved(t *testing.T) {
	var out []Word
	m := NewMachine([]Word{104, 1, 104, 2, 104, 3, 99}, WithOutput(SliceOutput(&out)))
	if _, err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(out, []Word{1, 2, 3}) {
		t.Errorf("output = %v, want [1 2 3]", out)
	}
}

// ---------------------------------------------------------------------------
// Control flow tests
// ---------------------------------------------------------------------------

func TestJumpNonzeroTaken(t *testing.T) {
	m := NewMachine([]Word{1105, 1, 7, 99, 0, 0, 0, 99})
	before := m.Snapshot()
	if _, err := m.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if m.IP() != 7 {
		t.Errorf("ip = %d, want 7 (taken branch)", m.IP())
	}
	if !reflect.DeepEqual(m.Snapshot(), before) {
		t.Error("JNZ wrote memory")
	}
}

func TestJumpNonzeroFallThrough(t *testing.T) {
	m := NewMachine([]Word{1105, 0, 7, 99})
	if _, err := m.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if m.IP() != 3 {
		t.Errorf("ip = %d, want 3 (fall-through)", m.IP())
	}
}

func TestJumpZero(t *testing.T) {
	tests := []struct {
		cond   Word
		wantIP Word
	}{
		{0, 7},
		{5, 3},
	}
	for _, tt := range tests {
		m := NewMachine([]Word{1106, tt.cond, 7, 99, 0, 0, 0, 99})
		if _, err := m.Step(); err != nil {
			t.Fatalf("cond %d: %v", tt.cond, err)
		}
		if m.IP() != tt.wantIP {
			t.Errorf("cond %d: ip = %d, want %d", tt.cond, m.IP(), tt.wantIP)
		}
	}
}

func TestComparisonPrograms(t *testing.T) {
	tests := []struct {
		name    string
		program []Word
		input   Word
		want    Word
	}{
		{"equal-position", []Word{3, 9, 8, 9, 10, 9, 4, 9, 99, -1, 8}, 8, 1},
		{"equal-position-no", []Word{3, 9, 8, 9, 10, 9, 4, 9, 99, -1, 8}, 7, 0},
		{"less-immediate", []Word{3, 3, 1107, -1, 8, 3, 4, 3, 99}, 7, 1},
		{"less-immediate-no", []Word{3, 3, 1107, -1, 8, 3, 4, 3, 99}, 9, 0},
	}

	for _, tt := range tests {
		var out []Word
		m := NewMachine(tt.program,
			WithInput(SliceInput(tt.input)),
			WithOutput(SliceOutput(&out)))
		if _, err := m.Run(); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if len(out) != 1 || out[0] != tt.want {
			t.Errorf("%s: output = %v, want [%d]", tt.name, out, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Relative base tests
// ---------------------------------------------------------------------------

func TestRelativeBaseResolution(t *testing.T) {
	// Set the base to 2000, then output through a relative operand with
	// raw value -7: resolves to address 1993.
	var out []Word
	m := NewMachine([]Word{109, 2000, 204, -7, 99}, WithOutput(SliceOutput(&out)))
	if err := m.Poke(1993, 777); err != nil {
		t.Fatalf("poke: %v", err)
	}

	if _, err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if m.RelativeBase() != 2000 {
		t.Errorf("relative base = %d, want 2000", m.RelativeBase())
	}
	if !reflect.DeepEqual(out, []Word{777}) {
		t.Errorf("output = %v, want [777]", out)
	}
}

func TestRelMutatesOnlyBase(t *testing.T) {
	m := NewMachine([]Word{109, 5, 99})
	before := m.Snapshot()
	if _, err := m.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if m.RelativeBase() != 5 {
		t.Errorf("relative base = %d, want 5", m.RelativeBase())
	}
	if m.IP() != 2 {
		t.Errorf("ip = %d, want 2", m.IP())
	}
	if !reflect.DeepEqual(m.Snapshot(), before) {
		t.Error("REL wrote memory")
	}
}

func TestQuine(t *testing.T) {
	program := []Word{109, 1, 204, -1, 1001, 100, 1, 100, 1008, 100, 16, 101, 1006, 101, 0, 99}
	var out []Word
	m := NewMachine(program, WithOutput(SliceOutput(&out)))
	if _, err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(out, program) {
		t.Errorf("output = %v, want the program itself", out)
	}
}

func TestLargeValues(t *testing.T) {
	var out []Word
	m := NewMachine([]Word{1102, 34915192, 34915192, 7, 4, 7, 99, 0},
		WithOutput(SliceOutput(&out)))
	if _, err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := Word(34915192) * 34915192
	if len(out) != 1 || out[0] != want {
		t.Errorf("output = %v, want [%d]", out, want)
	}

	out = nil
	m = NewMachine([]Word{104, 1125899906842624, 99}, WithOutput(SliceOutput(&out)))
	if _, err := m.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(out) != 1 || out[0] != 1125899906842624 {
		t.Errorf("output = %v, want [1125899906842624]", out)
	}
}

// ---------------------------------------------------------------------------
// Halt and failure tests
// ---------------------------------------------------------------------------

func TestHaltSetsSentinel(t *testing.T) {
	m := NewMachine([]Word{0, 99})

	if _, err := m.Step(); err != nil { // NOP advances by 1
		t.Fatalf("step 1: %v", err)
	}
	if m.IP() != 1 {
		t.Errorf("after NOP: ip = %d, want 1", m.IP())
	}

	status, err := m.Step()
	if err != nil {
		t.Fatalf("step 2: %v", err)
	}
	if status != Halted {
		t.Errorf("status = %v, want halted", status)
	}
	if m.IP() != HaltSentinel {
		t.Errorf("ip = %d, want halt sentinel %d", m.IP(), HaltSentinel)
	}
	if !m.Halted() {
		t.Error("Halted() = false after HLT")
	}
}

func TestStepAfterHalt(t *testing.T) {
	m := NewMachine([]Word{99})
	if _, err := m.Step(); err != nil {
		t.Fatalf("halt step: %v", err)
	}
	_, err := m.Step()
	if !errors.Is(err, ErrHalted) {
		t.Errorf("error = %v, want ErrHalted", err)
	}
}

func TestNegativeAddressIsFatal(t *testing.T) {
	m := NewMachine([]Word{1, -5, 0, 0, 99})
	status, err := m.Step()
	if !errors.Is(err, ErrBadAddress) {
		t.Fatalf("error = %v, want ErrBadAddress", err)
	}
	if status != Halted {
		t.Errorf("status = %v, want halted", status)
	}
	if _, err := m.Step(); !errors.Is(err, ErrHalted) {
		t.Errorf("machine should stay halted after a fatal error, got %v", err)
	}
}

func TestInvalidOpcodeIsFatal(t *testing.T) {
	m := NewMachine([]Word{42})
	_, err := m.Step()
	if !errors.Is(err, ErrBadOpcode) {
		t.Errorf("error = %v, want ErrBadOpcode", err)
	}
}

func TestStepLimit(t *testing.T) {
	// Unconditional loop back to address 0.
	m := NewMachine([]Word{1105, 1, 0, 99}, WithStepLimit(10))
	_, err := m.Run()
	if !errors.Is(err, ErrStepLimit) {
		t.Errorf("error = %v, want ErrStepLimit", err)
	}
}

func TestDefaultInputStalls(t *testing.T) {
	m := NewMachine([]Word{3, 0, 99})
	status, err := m.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if status != Stalled {
		t.Errorf("status = %v, want stalled", status)
	}
}

// ---------------------------------------------------------------------------
// Operand resolution tests
// ---------------------------------------------------------------------------

func TestTargetResolution(t *testing.T) {
	m := NewMachine([]Word{1, 6, 0, 3, 99, 0, 10})
	m.rel = 2

	tests := []struct {
		mode Mode
		want Word
	}{
		{Position, 6}, // raw value at slot 1 is an address
		{Immediate, 1}, // the slot itself
		{Relative, 8},  // raw 6 + base 2
	}
	for _, tt := range tests {
		addr, err := m.target(1, Modes{tt.mode, Position, Position})
		if err != nil {
			t.Fatalf("%v: %v", tt.mode, err)
		}
		if addr != tt.want {
			t.Errorf("%v: target = %d, want %d", tt.mode, addr, tt.want)
		}
	}
}

func TestChanAdapters(t *testing.T) {
	in := make(chan Word, 1)
	out := make(chan Word, 4)
	m := NewMachine([]Word{3, 0, 4, 0, 99},
		WithInput(ChanInput(in)),
		WithOutput(ChanOutput(out)))

	status, err := m.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if status != Stalled {
		t.Fatalf("status = %v, want stalled on empty channel", status)
	}

	in <- 5
	if _, err := m.Run(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if v := <-out; v != 5 {
		t.Errorf("output = %d, want 5", v)
	}
}
