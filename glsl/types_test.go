// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"errors"
	"testing"

	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/partition"
)

func TestTypeName(t *testing.T) {
	tests := []struct {
		name string
		typ  ast.Type
		want string
	}{
		{"float", ast.TypeFloat, "float"},
		{"int", ast.TypeInt, "int"},
		{"uint", ast.TypeUint, "uint"},
		{"bool", ast.TypeBool, "bool"},
		{"vec2", ast.TypeVec2, "vec2"},
		{"vec4", ast.TypeVec4, "vec4"},
		{"ivec3", ast.Vector{Size: 3, Kind: ast.ScalarInt}, "ivec3"},
		{"uvec2", ast.Vector{Size: 2, Kind: ast.ScalarUint}, "uvec2"},
		{"bvec4", ast.Vector{Size: 4, Kind: ast.ScalarBool}, "bvec4"},
		{"square matrix", ast.TypeMat4, "mat4"},
		{"mat2", ast.Matrix{Rows: 2, Cols: 2}, "mat2"},
		// Host Mat<rows>x<cols> flips to GLSL mat<cols>x<rows>.
		{"mat 2 rows 4 cols", ast.Matrix{Rows: 2, Cols: 4}, "mat4x2"},
		{"mat 3 rows 2 cols", ast.Matrix{Rows: 3, Cols: 2}, "mat2x3"},
		{"array", ast.Array{Len: 3, Elem: ast.TypeVec2}, "vec2[3]"},
		{"nested array", ast.Array{Len: 3, Elem: ast.Array{Len: 4, Elem: ast.TypeFloat}}, "float[3][4]"},
		{"sampler2D", ast.Sampler{Kind: ast.Sampler2D}, "sampler2D"},
		{"samplerCube", ast.Sampler{Kind: ast.SamplerCube}, "samplerCube"},
		{"shadow sampler", ast.Sampler{Kind: ast.Sampler2DShadow}, "sampler2DShadow"},
		{"struct", ast.Struct{Name: "Light"}, "Light"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TypeName(tt.typ)
			if err != nil {
				t.Fatalf("TypeName(%s) error: %v", tt.typ, err)
			}
			if got != tt.want {
				t.Errorf("TypeName(%s) = %q, want %q", tt.typ, got, tt.want)
			}
		})
	}
}

func TestTypeName_NotRepresentable(t *testing.T) {
	tests := []struct {
		name string
		typ  ast.Type
	}{
		{"opaque", ast.Opaque{Name: "ref Mesh"}},
		{"void", ast.Void{}},
		{"vec5", ast.Vector{Size: 5, Kind: ast.ScalarFloat}},
		{"mat1", ast.Matrix{Rows: 1, Cols: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TypeName(tt.typ)
			if err == nil {
				t.Fatalf("TypeName(%s) should fail", tt.typ)
			}
			var perr *partition.Error
			if !errors.As(err, &perr) || perr.Kind != partition.ErrTypeNotRepresentable {
				t.Errorf("TypeName(%s) error = %v, want TypeNotRepresentable", tt.typ, err)
			}
		})
	}
}

func TestArraySuffix(t *testing.T) {
	if got := arraySuffix(ast.TypeVec3); got != "" {
		t.Errorf("arraySuffix(vec3) = %q, want empty", got)
	}
	if got := arraySuffix(ast.Array{Len: 8, Elem: ast.TypeFloat}); got != "[8]" {
		t.Errorf("arraySuffix = %q, want [8]", got)
	}
	nested := ast.Array{Len: 2, Elem: ast.Array{Len: 3, Elem: ast.TypeFloat}}
	if got := arraySuffix(nested); got != "[2][3]" {
		t.Errorf("arraySuffix nested = %q, want [2][3]", got)
	}
}

func TestIsConstructor(t *testing.T) {
	for _, name := range []string{"vec3", "mat4", "float", "ivec2", "mat3x4"} {
		if !isConstructor(name) {
			t.Errorf("isConstructor(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"texture", "brighten", "modulo", ""} {
		if isConstructor(name) {
			t.Errorf("isConstructor(%q) = true, want false", name)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{0.5, "0.5"},
		{0.123456, "0.123456"},
		{-2, "-2.0"},
	}
	for _, tt := range tests {
		if got := formatFloat(tt.value); got != tt.want {
			t.Errorf("formatFloat(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
