package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOutput indicates the simulator exited without writing a .raw file.
	ErrNoOutput = errors.New("runner: simulator produced no output")

	// ErrTimeout indicates the run was killed after the configured timeout.
	ErrTimeout = errors.New("runner: simulation timed out")

	// ErrNoExecutable indicates the pool has no simulator configured.
	ErrNoExecutable = errors.New("runner: no simulator executable")
)

// RunError wraps a failed simulator invocation with its job and output.
type RunError struct {
	Job     Job
	Output  string
	Wrapped error
}

func (e *RunError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Job.Netlist, e.Wrapped)
	}
	return fmt.Sprintf("%s: %v: %s", e.Job.Netlist, e.Wrapped, e.Output)
}

func (e *RunError) Unwrap() error {
	return e.Wrapped
}
