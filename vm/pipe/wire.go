package pipe

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/icvm/vm"
)

// cborEncMode holds CBOR encoding options with canonical mode for
// deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("pipe: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// RunRequest asks a runner to execute a program against a fixed input
// sequence. Only the program and its I/O cross the wire; machine state
// never leaves its owner.
type RunRequest struct {
	Program []vm.Word `cbor:"program" json:"program"`
	Inputs  []vm.Word `cbor:"inputs,omitempty" json:"inputs,omitempty"`
}

// RunResult reports one completed execution.
type RunResult struct {
	Outputs []vm.Word `cbor:"outputs,omitempty" json:"outputs,omitempty"`
	Status  string    `cbor:"status" json:"status"`
	Steps   uint64    `cbor:"steps" json:"steps"`
}

// MarshalRunRequest serializes a RunRequest to CBOR bytes.
func MarshalRunRequest(r *RunRequest) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalRunRequest deserializes a RunRequest from CBOR bytes.
func UnmarshalRunRequest(data []byte) (*RunRequest, error) {
	var r RunRequest
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("pipe: unmarshal run request: %w", err)
	}
	return &r, nil
}

// MarshalRunResult serializes a RunResult to CBOR bytes.
func MarshalRunResult(r *RunResult) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalRunResult deserializes a RunResult from CBOR bytes.
func UnmarshalRunResult(data []byte) (*RunResult, error) {
	var r RunResult
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("pipe: unmarshal run result: %w", err)
	}
	return &r, nil
}
