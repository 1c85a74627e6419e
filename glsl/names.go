// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"strings"

	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/stage"
)

// suffixAlphabet is the 64-symbol alphabet used to encode identity-hash
// suffixes. Entries are single characters except positions 62 and 63,
// which are identifier-safe digraphs (the base-64 '+' and '/' have no
// identifier-safe single character). Encoding is one-way; it is never
// decoded.
var suffixAlphabet = [64]string{
	"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m",
	"n", "o", "p", "q", "r", "s", "t", "u", "v", "w", "x", "y", "z",
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "_0", "_1",
}

// encodeSuffix base-64-encodes a hash, consuming 6 bits per character from
// low to high until the remaining bits are zero.
func encodeSuffix(hash uint64) string {
	var sb strings.Builder
	for {
		sb.WriteString(suffixAlphabet[hash&0x3f])
		hash >>= 6
		if hash == 0 {
			return sb.String()
		}
	}
}

// SymbolTable assigns stable, collision-free GLSL identifiers to
// syntax-tree symbols. Bindings live for one compile and are shared by
// every stage output so names agree across the stage boundary.
type SymbolTable struct {
	idents map[ast.SymbolID]string
	used   map[string]struct{}
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		idents: make(map[ast.SymbolID]string),
		used:   make(map[string]struct{}),
	}
}

// stripName removes underscores and non-identifier characters from a source
// name.
func stripName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// base derives the identifier base of a symbol. Fields of the vertex input
// record keep their bare field name; other record fields compose with
// their record's name.
func base(sym *ast.Symbol) string {
	if sym.Kind == ast.SymbolField && sym.Parent != nil && sym.Parent.Kind != ast.SymbolParam {
		return stripName(sym.Parent.Name) + "_" + stripName(sym.Name)
	}
	return stripName(sym.Name)
}

// Ident returns the chosen GLSL identifier for a symbol: the stripped base
// when unique, otherwise the base plus a base-64 suffix of the symbol's
// stable identity hash.
func (t *SymbolTable) Ident(sym *ast.Symbol) string {
	if name, ok := t.idents[sym.ID]; ok {
		return name
	}

	name := escapeKeyword(base(sym))
	if _, taken := t.used[name]; taken {
		name += encodeSuffix(sym.IdentityHash())
		for {
			if _, taken := t.used[name]; !taken {
				break
			}
			name += suffixAlphabet[0]
		}
	}

	t.used[name] = struct{}{}
	t.idents[sym.ID] = name
	return name
}

// stagePrefixes name the stage-local namespaces.
var stagePrefixes = map[stage.Tier]string{
	stage.Vertex:   "vert",
	stage.TessEval: "tese",
	stage.Geometry: "geom",
	stage.Fragment: "frag",
}

// StagePrefix returns the local-name prefix of a shader stage.
func StagePrefix(t stage.Tier) string { return stagePrefixes[t] }

// StageLocal returns the stage-local spelling of a symbol, such as
// vert_position or frag_tmp0.
func (t *SymbolTable) StageLocal(tier stage.Tier, sym *ast.Symbol) string {
	return StagePrefix(tier) + "_" + t.Ident(sym)
}

// VaryingName returns the boundary spelling of a value crossing between
// two stages, such as vert2frag_texcoord.
func (t *SymbolTable) VaryingName(b stage.Boundary, sym *ast.Symbol) string {
	return StagePrefix(b.From) + "2" + StagePrefix(b.To) + "_" + t.Ident(sym)
}

// UniformName returns the spelling of a synthesized uniform carrying a
// CPU-composed value, such as uniform_result_color.
func (t *SymbolTable) UniformName(sym *ast.Symbol) string {
	return "uniform_" + t.Ident(sym)
}
