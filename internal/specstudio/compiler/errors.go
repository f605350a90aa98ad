package compiler

import (
	"github.com/tansive/specstudio/internal/common/apperrors"
	"github.com/tansive/specstudio/internal/specstudio/studiocommon"
)

// Error definitions for the package.
// Invocation failures derive from studiocommon.ErrCompilerInvocation so that they reach
// the client as CompilerInvocationError.
var (
	// ErrInvalidConfig is returned when the process configuration cannot be used.
	ErrInvalidConfig apperrors.Error = studiocommon.ErrStudioError.New("invalid compiler configuration")

	// ErrStartFailed is returned when the toolchain process could not be started.
	ErrStartFailed apperrors.Error = studiocommon.ErrCompilerInvocation.New("compiler could not be started")

	// ErrExecutionFailed is returned when the toolchain exits with a non-zero status.
	ErrExecutionFailed apperrors.Error = studiocommon.ErrCompilerInvocation.New("compiler exited with an error")

	// ErrTimeout is returned when the toolchain runs past the configured timeout.
	ErrTimeout apperrors.Error = studiocommon.ErrCompilerInvocation.New("compiler timed out")

	// ErrMissingResult is returned when the toolchain exits without writing a result document.
	ErrMissingResult apperrors.Error = studiocommon.ErrCompilerInvocation.New("compiler produced no result")

	// ErrInvalidResult is returned when the result document does not match its schema.
	ErrInvalidResult apperrors.Error = studiocommon.ErrCompilerInvocation.New("compiler produced an invalid result")
)
