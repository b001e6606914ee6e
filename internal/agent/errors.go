package agent

import (
	"errors"
	"fmt"
)

// Op names the generation call that failed.
type Op string

const (
	OpBreakdown Op = "step breakdown"
	OpContent   Op = "step content"
)

var (
	ErrEmptyResponse = errors.New("model returned no choices")
	ErrToolLoop      = errors.New("model kept calling tools without answering")
)

// GenerationError reports a network, API or model failure of a generation call.
type GenerationError struct {
	Op  Op
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
