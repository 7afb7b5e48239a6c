package compute

import (
	"context"
	"fmt"

	"github.com/moorlabs/moor/core/job"
)

const EntityCompute = "compute"

// Resources describes what an instance type offers.
type Resources struct {
	CPUs      int
	MemoryMiB int
	GPU       *job.GPU
	Spot      bool
}

// InstanceType is a provider-neutral description of a machine shape.
type InstanceType struct {
	Name      string
	Resources Resources
}

// Request is the live infrastructure view of a launched job: whether the
// backing instance or capacity request still exists on the provider side.
type Request struct {
	RequestID string
	Alive     bool
}

// Compute is the per-provider capability to place jobs on machines. Adapters
// retry transient provider errors internally; callers treat the interface as
// reliable-eventually.
type Compute interface {
	// Launch provisions compute for the job and returns the request handle.
	// A failed provisioning attempt returns *LaunchError, which is a
	// recoverable outcome, not a fault.
	Launch(ctx context.Context, j *job.Job) (string, error)

	// Terminate releases the compute behind the handle. Terminating an
	// already-released handle is success.
	Terminate(ctx context.Context, requestID string) error

	// RequestStatus reports whether the job's backing resource still exists.
	RequestStatus(ctx context.Context, j *job.Job) (Request, error)

	// Exec runs shell commands on the instance behind the handle.
	Exec(ctx context.Context, requestID string, commands []string) error

	// PredictInstanceType picks an instance type able to satisfy the job's
	// requirements, or nil when the provider has nothing suitable.
	PredictInstanceType(ctx context.Context, j *job.Job) (*InstanceType, error)
}

// LaunchError marks provisioning failures that the caller may retry with the
// same or a different instance type.
type LaunchError struct {
	Message string
	Err     error
}

func NewLaunchError(msg string, err error) *LaunchError {
	return &LaunchError{Message: msg, Err: err}
}

func (e *LaunchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("launch failed: %s: %s", e.Message, e.Err)
	}
	return "launch failed: " + e.Message
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
