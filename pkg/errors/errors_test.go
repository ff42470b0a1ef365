// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, and utility functions

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "not_found_error",
			code:    errors.ErrNotFound,
			message: "formula not found",
			wantStr: "[NOT_FOUND] formula not found",
		},
		{
			name:    "cycle_error",
			code:    errors.ErrCycle,
			message: "a -> b -> a",
			wantStr: "[CYCLE] a -> b -> a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)

			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.NotNil(t, err.Details)
			assert.Equal(t, tt.wantStr, err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil_error", func(t *testing.T) {
		assert.Nil(t, errors.Wrap(nil, errors.ErrFetch, "ignored"))
		assert.Nil(t, errors.Wrapf(nil, errors.ErrFetch, "ignored %d", 1))
	})

	t.Run("keeps_chain", func(t *testing.T) {
		base := stderrors.New("connection refused")
		err := errors.Wrapf(base, errors.ErrFetch, "fetching %s", "http://x")

		assert.Equal(t, "[FETCH] fetching http://x: connection refused", err.Error())
		assert.True(t, stderrors.Is(err, base))
	})

	t.Run("output_is_appended", func(t *testing.T) {
		err := errors.New(errors.ErrBuild, "make failed").WithDetail(errors.DetailOutput, "cc: error\n")
		assert.Contains(t, err.Error(), "--- output ---\ncc: error")
	})
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", errors.New(errors.ErrConflict, "b conflicts with d"))

	assert.True(t, stderrors.Is(err, errors.New(errors.ErrConflict, "")))
	assert.False(t, stderrors.Is(err, errors.New(errors.ErrCycle, "")))
	assert.True(t, errors.IsErrorCode(err, errors.ErrConflict))
	assert.Equal(t, errors.ErrConflict, errors.GetErrorCode(err))
	assert.Equal(t, errors.ErrUnknown, errors.GetErrorCode(stderrors.New("plain")))
}

func TestForFormula(t *testing.T) {
	err := errors.New(errors.ErrBuild, "boom").ForFormula("inner", "Building")
	err.ForFormula("outer", "Installing")

	assert.Equal(t, "inner", errors.GetDetailString(err, errors.DetailFormula))
	assert.Equal(t, "Building", errors.GetDetailString(err, errors.DetailPhase))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, errors.IsTimeout(errors.New(errors.ErrBuild, "x").WithDetail(errors.DetailTimeout, true)))
	assert.False(t, errors.IsTimeout(errors.New(errors.ErrBuild, "x")))
	assert.False(t, errors.IsTimeout(stderrors.New("x")))
}

func TestIsResolutionError(t *testing.T) {
	for _, code := range []errors.ErrorCode{errors.ErrNotFound, errors.ErrUnknownOption, errors.ErrConflict, errors.ErrCycle} {
		assert.True(t, errors.IsResolutionError(errors.New(code, "")), code)
	}
	for _, code := range []errors.ErrorCode{errors.ErrFetch, errors.ErrIntegrity, errors.ErrBuild, errors.ErrPatch, errors.ErrFilesystem} {
		assert.False(t, errors.IsResolutionError(errors.New(code, "")), code)
	}
}

func TestDescribe(t *testing.T) {
	err := errors.New(errors.ErrPatch, "patch failed").
		WithDetail(errors.DetailPhase, "Patching").
		WithDetail(errors.DetailFormula, "percona-server")

	got := errors.Describe(err)
	require.Contains(t, got, "[PATCH] patch failed")
	assert.Contains(t, got, "\n  formula: percona-server\n  phase: Patching")
	assert.Equal(t, "", errors.Describe(nil))

	withOutput := errors.New(errors.ErrBuild, "make failed").WithDetail(errors.DetailOutput, "cc: error")
	assert.Equal(t, "[BUILD] make failed", errors.Describe(withOutput))
}
