// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelClasses(t *testing.T) {
	assert.ErrorIs(t, ErrDuplicateResult, ErrConflict)
	assert.ErrorIs(t, ErrAlreadyApproved, ErrConflict)
	assert.ErrorIs(t, ErrOutsideWindow, ErrWindow)
	assert.ErrorIs(t, ErrElectionClosed, ErrState)
	assert.NotErrorIs(t, ErrOutsideWindow, ErrConflict)

	wrapped := fmt.Errorf("create result: %w", ErrChiefObserverConflict)
	assert.ErrorIs(t, wrapped, ErrChiefObserverConflict)
	assert.ErrorIs(t, wrapped, ErrConflict)
}

func TestValidationErrors(t *testing.T) {
	var v ValidationErrors
	assert.NoError(t, v.Or())

	v = append(v, ValidationError{Field: "parties", Message: "at least 2 parties required"})
	err := v.Or()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "parties: at least 2 parties required")

	var target ValidationErrors
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &target))
	assert.Len(t, target, 1)
}

func TestNotFound(t *testing.T) {
	err := NotFound("election", "e-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, `not found: election "e-1"`, err.Error())
}
