package appointment

import (
	"errors"
	"strings"
)

// ErrNotReady means the session has no store handle; nothing was sent.
var ErrNotReady = errors.New("appointment: scheduling system not ready")

// ValidationError lists the form fields that failed validation.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(e.Invalid, ", "))
	}
	return "appointment: " + strings.Join(parts, "; ")
}

// WriteError wraps a failure of the store write.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return "appointment: write failed: " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsWrite(err error) bool {
	var w *WriteError
	return errors.As(err, &w)
}
