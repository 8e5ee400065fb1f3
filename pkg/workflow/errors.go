package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrNoGeneratedAsset       = errors.New("no generated asset yet: generate an image first")
	ErrMissingContext         = errors.New("missing workflow context")
	ErrBrandRequired          = fmt.Errorf("%w: brand information", ErrMissingContext)
	ErrTooManyReferenceImages = fmt.Errorf("at most %d reference images are allowed", MaxReferenceImages)
	ErrUnknownStage           = errors.New("unknown stage")
)

// RejectionError reports a signal the machine refused. The state it was
// applied to is returned unchanged alongside it.
type RejectionError struct {
	Stage  Stage
	Signal Signal
	Err    error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("workflow: %s rejected in %s: %v", e.Signal, e.Stage, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(stage Stage, signal Signal, err error) *RejectionError {
	return &RejectionError{Stage: stage, Signal: signal, Err: err}
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingContext, field)
}
