// Package phase names the stages of a run so failures can say where they happened.
package phase

import (
	"errors"
	"fmt"
)

// Phase is a stage of a run
type Phase string

const (
	Scan     Phase = "scan"
	Checksum Phase = "checksum"
	Protocol Phase = "protocol"
	Rename   Phase = "rename"
)

// Error is a failure attributed to a phase, optionally about one path.
//
// The underlying error can be accessed via errors.Unwrap.
type Error struct {
	Phase Phase
	Path  string
	Err   error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Phase, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap attributes err to p. An error that already carries a phase is returned as is.
func Wrap(p Phase, path string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Phase: p, Path: path, Err: err}
}

// Of returns the phase err is attributed to, or "" when it carries none
func Of(err error) Phase {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Phase
	}
	return ""
}
