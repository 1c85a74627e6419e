// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strings"
	"testing"

	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/stage"
)

func TestSuffixAlphabet(t *testing.T) {
	if len(suffixAlphabet) != 64 {
		t.Fatalf("alphabet has %d entries, want 64", len(suffixAlphabet))
	}
	seen := map[string]bool{}
	for i, entry := range suffixAlphabet {
		if seen[entry] {
			t.Errorf("alphabet entry %d (%q) duplicated", i, entry)
		}
		seen[entry] = true
		wantLen := 1
		if i >= 62 {
			wantLen = 2
		}
		if len(entry) != wantLen {
			t.Errorf("alphabet entry %d (%q) has length %d, want %d", i, entry, len(entry), wantLen)
		}
	}
}

func TestEncodeSuffix(t *testing.T) {
	tests := []struct {
		hash uint64
		want string
	}{
		{0, "a"},
		{1, "b"},
		{25, "z"},
		{62, "_0"},
		{63, "_1"},
		// 64 = 0b1_000000: low 6 bits 0 -> "a", then 1 -> "b".
		{64, "ab"},
		// 0b111111_000001: 1 -> "b", then 63 -> "_1".
		{63<<6 | 1, "b_1"},
	}
	for _, tt := range tests {
		if got := encodeSuffix(tt.hash); got != tt.want {
			t.Errorf("encodeSuffix(%d) = %q, want %q", tt.hash, got, tt.want)
		}
	}
}

func TestSymbolTable_Ident(t *testing.T) {
	p := ast.NewProgram("test")
	table := NewSymbolTable()

	underscored := p.NewLocal("my_value", ast.TypeFloat)
	if got := table.Ident(underscored); got != "myvalue" {
		t.Errorf("Ident stripped = %q, want %q", got, "myvalue")
	}

	weird := p.NewLocal("wörld-näme", ast.TypeFloat)
	if got := table.Ident(weird); got != "wrldnme" {
		t.Errorf("Ident stripped = %q, want %q", got, "wrldnme")
	}
}

func TestSymbolTable_Collision(t *testing.T) {
	p := ast.NewProgram("test")
	table := NewSymbolTable()

	a := p.NewLocal("tmp", ast.TypeFloat)
	b := p.NewLocal("tmp", ast.TypeFloat)

	first := table.Ident(a)
	second := table.Ident(b)
	if first != "tmp" {
		t.Errorf("first binding = %q, want %q", first, "tmp")
	}
	if second == first {
		t.Error("colliding symbols must get distinct identifiers")
	}
	if !strings.HasPrefix(second, "tmp") {
		t.Errorf("collision suffix must extend the base, got %q", second)
	}
	// Bindings are stable across lookups.
	if table.Ident(a) != first || table.Ident(b) != second {
		t.Error("identifier bindings must be stable within one compile")
	}
}

func TestSymbolTable_KeywordEscape(t *testing.T) {
	p := ast.NewProgram("test")
	table := NewSymbolTable()

	kw := p.NewLocal("float", ast.TypeFloat)
	if got := table.Ident(kw); got != "_float" {
		t.Errorf("Ident(float) = %q, want %q", got, "_float")
	}
}

func TestSymbolTable_FieldComposition(t *testing.T) {
	p := ast.NewProgram("test")
	table := NewSymbolTable()

	// Attributes keep their bare field name.
	texcoord := p.AddAttribute("texcoord", ast.TypeVec2)
	if got := table.Ident(texcoord); got != "texcoord" {
		t.Errorf("attribute Ident = %q, want %q", got, "texcoord")
	}

	// Result fields compose with the record name.
	color := p.AddOutput("color", ast.TypeVec4)
	if got := table.Ident(color); got != "result_color" {
		t.Errorf("result field Ident = %q, want %q", got, "result_color")
	}
}

func TestSymbolTable_PrefixedNames(t *testing.T) {
	p := ast.NewProgram("test")
	table := NewSymbolTable()

	color := p.AddOutput("color", ast.TypeVec4)
	b := stage.Boundary{From: stage.Vertex, To: stage.Fragment}

	if got := table.StageLocal(stage.Vertex, color); got != "vert_result_color" {
		t.Errorf("StageLocal = %q, want %q", got, "vert_result_color")
	}
	if got := table.StageLocal(stage.Fragment, color); got != "frag_result_color" {
		t.Errorf("StageLocal = %q, want %q", got, "frag_result_color")
	}
	if got := table.VaryingName(b, color); got != "vert2frag_result_color" {
		t.Errorf("VaryingName = %q, want %q", got, "vert2frag_result_color")
	}
	if got := table.UniformName(color); got != "uniform_result_color" {
		t.Errorf("UniformName = %q, want %q", got, "uniform_result_color")
	}
}
