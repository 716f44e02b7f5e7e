package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/icvm/store"
	"github.com/chazu/icvm/vm"
	"github.com/chazu/icvm/vm/pipe"
)

// Procedure paths for the runner service. Connect routes one POST
// endpoint per procedure.
const (
	RunProcedure         = "/icvm.v1.RunnerService/Run"
	DisassembleProcedure = "/icvm.v1.RunnerService/Disassemble"
	ChainProcedure       = "/icvm.v1.RunnerService/Chain"
)

// DisassembleRequest asks for a listing of a program.
type DisassembleRequest struct {
	Program []vm.Word `cbor:"program" json:"program"`
}

// DisassembleResponse carries the listing, one instruction per line.
type DisassembleResponse struct {
	Listing string `cbor:"listing" json:"listing"`
}

// ChainRequest asks for a series of program copies run with their I/O
// connected end to end. Seeds[i] is queued into stage i before anything
// its upstream neighbor produces; Inputs go to the first stage.
type ChainRequest struct {
	Program  []vm.Word   `cbor:"program" json:"program"`
	Seeds    [][]vm.Word `cbor:"seeds" json:"seeds"`
	Inputs   []vm.Word   `cbor:"inputs,omitempty" json:"inputs,omitempty"`
	Feedback bool        `cbor:"feedback,omitempty" json:"feedback,omitempty"`
}

// ChainResponse carries what the chain's output pipe held when every
// stage had halted.
type ChainResponse struct {
	Outputs []vm.Word `cbor:"outputs,omitempty" json:"outputs,omitempty"`
}

// RunnerService executes programs on behalf of Connect clients.
type RunnerService struct {
	worker    *Worker
	journal   *store.Store
	stepLimit uint64
	log       commonlog.Logger
}

// NewRunnerService creates a RunnerService. journal may be nil, in which
// case runs are not recorded.
func NewRunnerService(worker *Worker, journal *store.Store, stepLimit uint64) *RunnerService {
	return &RunnerService{
		worker:    worker,
		journal:   journal,
		stepLimit: stepLimit,
		log:       commonlog.GetLogger("icvm.server"),
	}
}

// Run executes a program against a fixed input sequence and reports its
// outputs, final status, and step count. A program that consumes all
// inputs and asks for more finishes stalled rather than failing.
func (s *RunnerService) Run(
	ctx context.Context,
	req *connect.Request[pipe.RunRequest],
) (*connect.Response[pipe.RunResult], error) {
	if len(req.Msg.Program) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("program is required"))
	}

	value, err := s.worker.Do(func() any {
		res, err := s.run(req.Msg)
		if err != nil {
			return err
		}
		return res
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if err, ok := value.(error); ok {
		return nil, runError(err)
	}

	res := value.(*pipe.RunResult)
	if s.journal != nil {
		if _, err := s.journal.Record(req.Msg, res); err != nil {
			s.log.Errorf("journal write failed: %s", err.Error())
		}
	}
	return connect.NewResponse(res), nil
}

// run executes one request on the calling goroutine.
func (s *RunnerService) run(req *pipe.RunRequest) (*pipe.RunResult, error) {
	var outputs []vm.Word
	opts := []vm.MachineOption{
		vm.WithInput(vm.SliceInput(req.Inputs...)),
		vm.WithOutput(vm.SliceOutput(&outputs)),
	}
	if s.stepLimit > 0 {
		opts = append(opts, vm.WithStepLimit(s.stepLimit))
	}
	m := vm.NewMachine(req.Program, opts...)

	status, err := m.Run()
	if err != nil {
		return nil, err
	}
	return &pipe.RunResult{
		Outputs: outputs,
		Status:  status.String(),
		Steps:   m.Steps(),
	}, nil
}

// Disassemble returns a linear listing of a program.
func (s *RunnerService) Disassemble(
	ctx context.Context,
	req *connect.Request[DisassembleRequest],
) (*connect.Response[DisassembleResponse], error) {
	if len(req.Msg.Program) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("program is required"))
	}
	return connect.NewResponse(&DisassembleResponse{
		Listing: vm.Disassemble(req.Msg.Program),
	}), nil
}

// Chain runs copies of a program connected in series and returns the
// final output pipe's contents.
func (s *RunnerService) Chain(
	ctx context.Context,
	req *connect.Request[ChainRequest],
) (*connect.Response[ChainResponse], error) {
	if len(req.Msg.Program) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("program is required"))
	}
	if len(req.Msg.Seeds) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("at least one stage seed is required"))
	}

	value, err := s.worker.Do(func() any {
		copts := []pipe.ChainOption{}
		if req.Msg.Feedback {
			copts = append(copts, pipe.WithFeedback())
		}
		if s.stepLimit > 0 {
			copts = append(copts, pipe.WithStepLimit(s.stepLimit))
		}
		chain := pipe.NewChain(req.Msg.Program, req.Msg.Seeds, copts...)
		for _, v := range req.Msg.Inputs {
			chain.Input().Push(v)
		}
		outputs, err := chain.Run()
		if err != nil {
			return err
		}
		return outputs
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if err, ok := value.(error); ok {
		return nil, runError(err)
	}

	return connect.NewResponse(&ChainResponse{Outputs: value.([]vm.Word)}), nil
}

// runError maps machine failures onto Connect codes: a program that
// exceeds the step budget exhausts a resource, everything else is a
// fault in the submitted program.
func runError(err error) *connect.Error {
	switch {
	case errors.Is(err, vm.ErrStepLimit):
		return connect.NewError(connect.CodeResourceExhausted, err)
	case errors.Is(err, pipe.ErrDeadlock):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
}
