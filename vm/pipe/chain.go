package pipe

import (
	"fmt"

	"github.com/chazu/icvm/vm"
)

// ---------------------------------------------------------------------------
// Chain: machines connected in series
// ---------------------------------------------------------------------------

// Chain runs N copies of a program connected in series: each stage's
// output feeds the next stage's input. With feedback, the last stage's
// output loops back to the first stage's input, and whatever remains
// queued there once every stage halts is the chain's final output.
type Chain struct {
	machines []*vm.Machine
	pipes    []*Pipe
	feedback bool
}

// ChainOption configures a Chain.
type ChainOption func(*chainConfig)

type chainConfig struct {
	feedback  bool
	stepLimit uint64
}

// WithFeedback loops the last stage's output back to the first stage's
// input.
func WithFeedback() ChainOption {
	return func(c *chainConfig) { c.feedback = true }
}

// WithStepLimit bounds each stage's instruction count.
func WithStepLimit(n uint64) ChainOption {
	return func(c *chainConfig) { c.stepLimit = n }
}

// NewChain builds a chain of len(seeds) stages, each running its own copy
// of program. seeds[i] is queued into stage i's input pipe before
// anything a neighboring stage produces; the initial signal for the first
// stage goes in through Input.
func NewChain(program []vm.Word, seeds [][]vm.Word, opts ...ChainOption) *Chain {
	cfg := &chainConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	n := len(seeds)
	pipes := make([]*Pipe, n+1)
	for i := range pipes {
		pipes[i] = NewPipe()
	}
	if cfg.feedback {
		// The last stage writes into the first stage's pipe.
		pipes[n] = pipes[0]
	}

	machines := make([]*vm.Machine, n)
	for i := 0; i < n; i++ {
		for _, v := range seeds[i] {
			pipes[i].Push(v)
		}
		mopts := []vm.MachineOption{
			vm.WithInput(pipes[i].In()),
			vm.WithOutput(pipes[i+1].Out()),
		}
		if cfg.stepLimit > 0 {
			mopts = append(mopts, vm.WithStepLimit(cfg.stepLimit))
		}
		machines[i] = vm.NewMachine(program, mopts...)
	}

	return &Chain{
		machines: machines,
		pipes:    pipes,
		feedback: cfg.feedback,
	}
}

// Input returns the first stage's input pipe, for seeding the initial
// signal.
func (c *Chain) Input() *Pipe {
	return c.pipes[0]
}

// Run drives every stage until all have halted, switching stages whenever
// one stalls or halts. Values flow through the connecting pipes as stages
// produce them. Returns the values left in the chain's output pipe.
//
// A full pass in which no live stage executes a single instruction means
// no queued value can unblock anything: that is a deadlock, reported as
// ErrDeadlock rather than looping forever.
func (c *Chain) Run() ([]vm.Word, error) {
	for {
		allHalted := true
		progressed := false

		for i, m := range c.machines {
			if m.Halted() {
				continue
			}
			allHalted = false

			before := m.Steps()
			if _, err := m.Run(); err != nil {
				return nil, fmt.Errorf("pipe: stage %d: %w", i, err)
			}
			if m.Steps() > before {
				progressed = true
			}
		}

		if allHalted {
			return c.pipes[len(c.pipes)-1].Drain(), nil
		}
		if !progressed {
			return nil, ErrDeadlock
		}
	}
}
