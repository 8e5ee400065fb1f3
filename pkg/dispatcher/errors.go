package dispatcher

import (
	"errors"
	"fmt"

	"content-studio-be/pkg/capability"
)

var (
	ErrNoIdeas          = errors.New("no ideas to pick from")
	ErrIdeaOutOfRange   = errors.New("idea number out of range")
	ErrResultNotApplied = errors.New("capability result does not fit the workflow")
)

// CapabilityError is returned once a capability gave up: a permanent failure
// or exhausted retries
type CapabilityError struct {
	Capability string
	Attempts   int
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s failed after %d attempt(s): %v", e.Capability, e.Attempts, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

func (e *CapabilityError) Transient() bool {
	return capability.IsTransient(e.Err)
}
