// Package policy holds the operator-controlled monitoring configuration:
// per-resource usage limits and the process whitelist. Both are persisted as
// plain line-delimited text so they can be edited by hand.
package policy

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when an input value is out of range or empty.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicate is returned when adding a process that is already whitelisted.
	ErrDuplicate = errors.New("already whitelisted")

	// ErrNotFound is returned when removing a process that is not whitelisted.
	ErrNotFound = errors.New("not whitelisted")
)

// PersistenceError reports a failed write of a policy file. The in-memory
// state is left as it was before the failed operation.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("policy: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
