// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/partition"
)

// GLSL type name constants for repeated use.
const (
	glslTypeInt   = "int"
	glslTypeUint  = "uint"
	glslTypeFloat = "float"
	glslTypeBool  = "bool"
)

// TypeName returns the GLSL spelling of a canonical host type, including
// the array size for array types. Use baseTypeName and arraySuffix when
// declaring variables.
func TypeName(t ast.Type) (string, error) {
	switch tt := t.(type) {
	case ast.Array:
		base, err := baseTypeName(tt)
		if err != nil {
			return "", err
		}
		return base + arraySuffix(tt), nil
	default:
		return baseTypeName(t)
	}
}

// baseTypeName returns the GLSL type spelling with arrays unwrapped.
func baseTypeName(t ast.Type) (string, error) {
	switch tt := t.(type) {
	case ast.Scalar:
		return scalarName(tt.Kind), nil

	case ast.Vector:
		size := tt.Size
		if size < 2 || size > 4 {
			return "", typeError(t)
		}
		switch tt.Kind {
		case ast.ScalarBool:
			return fmt.Sprintf("bvec%d", size), nil
		case ast.ScalarInt:
			return fmt.Sprintf("ivec%d", size), nil
		case ast.ScalarUint:
			return fmt.Sprintf("uvec%d", size), nil
		default:
			return fmt.Sprintf("vec%d", size), nil
		}

	case ast.Matrix:
		// The host names matrices row×column; GLSL is column-major and
		// names them column×row.
		if tt.Rows < 2 || tt.Rows > 4 || tt.Cols < 2 || tt.Cols > 4 {
			return "", typeError(t)
		}
		if tt.Rows == tt.Cols {
			return fmt.Sprintf("mat%d", tt.Cols), nil
		}
		return fmt.Sprintf("mat%dx%d", tt.Cols, tt.Rows), nil

	case ast.Array:
		return baseTypeName(tt.Elem)

	case ast.Sampler:
		return tt.Kind.String(), nil

	case ast.Struct:
		name := stripName(tt.Name)
		if name == "" {
			return "", typeError(t)
		}
		return escapeKeyword(name), nil

	default:
		// Void, Opaque, and anything the host cannot ship to a shader.
		return "", typeError(t)
	}
}

// arraySuffix returns the declaration suffix of an array type, handling
// nesting ("[3][4]"), or "" for non-arrays.
func arraySuffix(t ast.Type) string {
	arr, ok := t.(ast.Array)
	if !ok {
		return ""
	}
	return fmt.Sprintf("[%d]", arr.Len) + arraySuffix(arr.Elem)
}

func scalarName(kind ast.ScalarKind) string {
	switch kind {
	case ast.ScalarBool:
		return glslTypeBool
	case ast.ScalarInt:
		return glslTypeInt
	case ast.ScalarUint:
		return glslTypeUint
	default:
		return glslTypeFloat
	}
}

// typeError reports a type with no GLSL spelling.
func typeError(t ast.Type) *partition.Error {
	return &partition.Error{
		Kind:    partition.ErrTypeNotRepresentable,
		Message: fmt.Sprintf("type %s has no GLSL representation", t),
	}
}

// constructorNames lists the GLSL constructor spellings recognized in host
// conversion calls.
var constructorNames = map[string]struct{}{
	"float": {}, "int": {}, "uint": {}, "bool": {},
	"vec2": {}, "vec3": {}, "vec4": {},
	"ivec2": {}, "ivec3": {}, "ivec4": {},
	"uvec2": {}, "uvec3": {}, "uvec4": {},
	"bvec2": {}, "bvec3": {}, "bvec4": {},
	"mat2": {}, "mat3": {}, "mat4": {},
	"mat2x2": {}, "mat2x3": {}, "mat2x4": {},
	"mat3x2": {}, "mat3x3": {}, "mat3x4": {},
	"mat4x2": {}, "mat4x3": {}, "mat4x4": {},
}

// isConstructor reports whether a callee name is a GLSL constructor.
func isConstructor(name string) bool {
	_, ok := constructorNames[name]
	return ok
}
