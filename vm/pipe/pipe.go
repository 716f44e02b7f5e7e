// Package pipe composes machines cooperatively: FIFO word queues connect
// one machine's output to another's input, and a Chain drives a series of
// connected machines round-robin until every one of them halts. The
// machines never block; the stall contract of vm.Machine is what makes
// this single-threaded composition possible.
package pipe

import (
	"errors"

	"github.com/chazu/icvm/vm"
)

// ErrDeadlock indicates that every live machine in a chain is stalled and
// no queued value can unblock any of them.
var ErrDeadlock = errors.New("pipe: all machines stalled with no input in flight")

// Pipe is an unbounded FIFO queue of words usable as one machine's output
// sink and another's input source. It is not safe for concurrent use; a
// chain drives all connected machines from one goroutine.
type Pipe struct {
	queue []vm.Word
}

// NewPipe creates an empty pipe, optionally pre-seeded with values (seed
// values are consumed before anything pushed later).
func NewPipe(seed ...vm.Word) *Pipe {
	p := &Pipe{}
	p.queue = append(p.queue, seed...)
	return p
}

// Push appends a value to the pipe.
func (p *Pipe) Push(v vm.Word) {
	p.queue = append(p.queue, v)
}

// Pull removes and returns the oldest value, reporting false when the
// pipe is empty. An empty pull has no side effects, matching the
// vm.InputFunc contract.
func (p *Pipe) Pull() (vm.Word, bool) {
	if len(p.queue) == 0 {
		return 0, false
	}
	v := p.queue[0]
	p.queue = p.queue[1:]
	return v, true
}

// Len returns the number of values waiting in the pipe.
func (p *Pipe) Len() int {
	return len(p.queue)
}

// Drain removes and returns all waiting values.
func (p *Pipe) Drain() []vm.Word {
	out := p.queue
	p.queue = nil
	return out
}

// In returns the pipe's read end as a machine input source.
func (p *Pipe) In() vm.InputFunc {
	return p.Pull
}

// Out returns the pipe's write end as a machine output sink.
func (p *Pipe) Out() vm.OutputFunc {
	return p.Push
}
