// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ast

import (
	"encoding/binary"
	"hash/fnv"
)

// SymbolID is the globally unique identity of a symbol within one program.
type SymbolID uint32

// SymbolKind classifies resolved symbols.
type SymbolKind uint8

const (
	// SymbolParam is a shader parameter. Fields of the vertex input
	// parameter are vertex attributes.
	SymbolParam SymbolKind = iota
	// SymbolLocal is a body-local variable.
	SymbolLocal
	// SymbolResult is the fragment result record.
	SymbolResult
	// SymbolGlobal is a CPU-dynamic global (a uniform candidate) or a
	// sampler.
	SymbolGlobal
	// SymbolModuleConst is a module-scope constant.
	SymbolModuleConst
	// SymbolProc is a user-defined procedure.
	SymbolProc
	// SymbolField is a field of a record-typed symbol.
	SymbolField
)

// String returns the symbol kind name.
func (k SymbolKind) String() string {
	switch k {
	case SymbolParam:
		return "param"
	case SymbolLocal:
		return "local"
	case SymbolResult:
		return "result"
	case SymbolGlobal:
		return "global"
	case SymbolModuleConst:
		return "module-const"
	case SymbolProc:
		return "proc"
	case SymbolField:
		return "field"
	default:
		return "unknown"
	}
}

// Builtin identifies pipeline built-in values bound to a symbol.
type Builtin uint8

const (
	BuiltinNone Builtin = iota
	// BuiltinPosition is the clip-space vertex position (gl_Position).
	BuiltinPosition
	// BuiltinFragCoord is the window-relative fragment coordinate.
	BuiltinFragCoord
	// BuiltinFragDepth is the fragment depth output.
	BuiltinFragDepth
)

// Symbol is the resolved identity behind an identifier node.
//
// Symbols are created by the frontend and never mutated by the compiler; the
// chosen GLSL identifier lives in the emitter's symbol table, scoped to one
// compile.
type Symbol struct {
	ID      SymbolID
	Name    string
	Kind    SymbolKind
	Type    Type
	Builtin Builtin

	// Parent is set for field symbols and names the record symbol that
	// owns the field.
	Parent *Symbol
}

// IdentityHash returns the stable identity hash of the symbol. The emitter
// base-64-encodes it when two symbols reduce to the same identifier base.
func (s *Symbol) IdentityHash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s.Name))
	var id [4]byte
	binary.LittleEndian.PutUint32(id[:], uint32(s.ID))
	_, _ = h.Write(id[:])
	return h.Sum64()
}

// IsAttribute reports whether the symbol is a vertex attribute: a field of a
// param-kind record.
func (s *Symbol) IsAttribute() bool {
	return s.Kind == SymbolField && s.Parent != nil && s.Parent.Kind == SymbolParam
}

// IsResultField reports whether the symbol is a field of the fragment result
// record.
func (s *Symbol) IsResultField() bool {
	return s.Kind == SymbolField && s.Parent != nil && s.Parent.Kind == SymbolResult
}
