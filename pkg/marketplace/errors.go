package marketplace

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("invalid marketplace")
	ErrNotFound   = errors.New("marketplace not found")
)

// ValidationError names the offending field of a rejected registry input.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s is required", ErrValidation, e.Field)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
