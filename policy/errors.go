package policy

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter        = errors.New("invalid parameter")
	ErrImageNameUndeterminable = errors.New("cannot determine image name without an image label or a file name")
)

// InvalidParameterError is a caller mistake detected before anything is written.
type InvalidParameterError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error {
	return ErrInvalidParameter
}

func invalid(field string, value any, format string, args ...any) error {
	return &InvalidParameterError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}
