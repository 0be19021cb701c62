// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every error returned by the core wraps exactly one of these.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrWindow     = errors.New("outside allowed time window")
	ErrState      = errors.New("invalid state")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

var (
	ErrDuplicateResult       = fmt.Errorf("%w: a result already exists for this ballot box", ErrConflict)
	ErrChiefObserverConflict = fmt.Errorf("%w: ballot box already has a chief observer", ErrConflict)
	ErrDuplicateIdentity     = fmt.Errorf("%w: observer identity already registered", ErrConflict)
	ErrAlreadyApproved       = fmt.Errorf("%w: result is already approved", ErrConflict)
	ErrInvalidTransition     = fmt.Errorf("%w: result is not pending", ErrConflict)
	ErrElectionInUse         = fmt.Errorf("%w: election has results", ErrConflict)

	ErrOutsideWindow    = fmt.Errorf("%w: result entry is not open", ErrWindow)
	ErrElectionClosed   = fmt.Errorf("%w: election is closed", ErrState)
	ErrStatusRegression = fmt.Errorf("%w: election status can only move forward", ErrState)
)

// NotFound returns an ErrNotFound naming the missing entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, entity, id)
}

// Forbidden returns an ErrForbidden describing the refused action.
func Forbidden(action string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, action)
}

// ValidationError is a single malformed-input problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ValidationErrors collects every problem found in one input.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a single-field validation error.
func Invalid(field, message string) error {
	return ValidationErrors{{Field: field, Message: message}}
}

// Or returns nil for an empty list so callers can return it directly.
func (v ValidationErrors) Or() error {
	if len(v) == 0 {
		return nil
	}
	return v
}
