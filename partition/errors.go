// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package partition

import (
	"fmt"

	"github.com/gogpu/stagesplit/ast"
)

// ErrorKind classifies partition failures. Every kind is fatal to the
// compile; none is retried.
type ErrorKind string

const (
	// ErrUnsupportedConstruct is an input node kind outside the compiled
	// host-language subset.
	ErrUnsupportedConstruct ErrorKind = "UnsupportedConstruct"

	// ErrTypeNotRepresentable is a host type with no GLSL spelling.
	ErrTypeNotRepresentable ErrorKind = "TypeNotRepresentable"

	// ErrStageSplitConflict is a symbol written at two tiers with
	// interleaved reads and no whole-symbol interpolate.
	ErrStageSplitConflict ErrorKind = "StageSplitConflict"

	// ErrStageOrderConflict means no tier-grouping topological order
	// exists for the statement list.
	ErrStageOrderConflict ErrorKind = "StageOrderConflict"

	// ErrBadInterpolate is an interpolate annotation applied to a
	// component or swizzle instead of a whole variable.
	ErrBadInterpolate ErrorKind = "BadInterpolate"

	// ErrUnknownIdentifier is a symbol with no resolved binding, or a
	// local read before any write.
	ErrUnknownIdentifier ErrorKind = "UnknownIdentifier"

	// ErrInternalInvariant indicates a compiler bug: an assertion failed
	// in the partitioner.
	ErrInternalInvariant ErrorKind = "InternalInvariantViolated"

	// WarnDeadCode flags a value that is written but never consumed.
	// Warning only; never fails the compile.
	WarnDeadCode ErrorKind = "DeadCode"

	// WarnMissingPosition flags a pipeline that never writes
	// gl_Position. Warning only.
	WarnMissingPosition ErrorKind = "MissingPosition"
)

// Error is a partition diagnostic. Severity is implied by how it is
// surfaced: returned errors fail the compile, entries in Plan.Warnings do
// not.
type Error struct {
	Kind    ErrorKind
	Message string
	Pos     ast.Pos
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%d:%d: %s: %s", e.Pos.Line, e.Pos.Column, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// errorf creates a partition error with a formatted message.
func errorf(kind ErrorKind, pos ast.Pos, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}
