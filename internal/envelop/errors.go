package envelop

import (
	"errors"
	"fmt"
)

var (
	// ErrContextSealed is returned by Extend once building has finished.
	ErrContextSealed = errors.New("context is sealed")
	// ErrExtendRevoked is returned by a ContextBuildingAPI used after the
	// hook it was handed to has returned.
	ErrExtendRevoked = errors.New("extend called after the hook returned")
)

// Phase names the hook that failed.
type Phase string

const (
	PhaseParse                Phase = "onParse"
	PhaseContextBuilding      Phase = "onContextBuilding"
	PhaseAfterContextBuilding Phase = "afterContextBuilding"
	PhaseExecute              Phase = "onExecute"
	PhaseAfterExecute         Phase = "afterExecute"
)

// HookError wraps a failure raised by a plugin hook.
type HookError struct {
	Plugin string
	Phase  Phase
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook of %s failed: %v", e.Phase, e.Plugin, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// recovered converts a recovered panic value into an error.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
