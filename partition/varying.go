// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package partition

import (
	"sort"

	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/stage"
)

// Namer resolves a symbol to its chosen GLSL identifier. The emitter's
// symbol table implements it; the planner only needs the identifier to
// order slot assignment deterministically.
type Namer interface {
	Ident(sym *ast.Symbol) string
}

// Varying is one value crossing a stage boundary.
type Varying struct {
	Sym      *ast.Symbol
	Boundary stage.Boundary

	// Type is the transported type. Booleans are lowered to int on the
	// wire and rehydrated by the receiving stage.
	Type ast.Type

	// Lowered marks a bool varying transported as int.
	Lowered bool

	Qualifier InterpQualifier
	Location  uint32
}

// IOPlan is the planned input/output surface of every stage.
type IOPlan struct {
	// Varyings maps each present boundary to its crossings, location
	// order.
	Varyings map[stage.Boundary][]Varying

	// Attributes holds every vertex attribute in declaration order; the
	// location is the declaration index. Unused attributes are not
	// declared but keep their location.
	Attributes []*ast.Symbol

	// Outputs holds the written fragment outputs in declaration order;
	// the location is the index.
	Outputs []*ast.Symbol
}

// PlanVaryings chooses which values cross each stage boundary, allocates
// slot indices, and picks interpolation qualifiers. Slots are assigned in
// ascending order of the symbol's chosen GLSL identifier, so the plan is a
// deterministic function of the partition plan.
func PlanVaryings(plan *Plan, namer Namer) (*IOPlan, error) {
	io := &IOPlan{
		Varyings: make(map[stage.Boundary][]Varying),
	}

	for _, b := range plan.Stages.Boundaries() {
		demand := plan.BoundaryDemand[b]
		syms := make([]*ast.Symbol, 0, len(demand))
		for _, sym := range demand {
			syms = append(syms, sym)
		}
		sort.Slice(syms, func(i, j int) bool {
			return namer.Ident(syms[i]) < namer.Ident(syms[j])
		})

		vars := make([]Varying, 0, len(syms))
		for i, sym := range syms {
			v := Varying{
				Sym:      sym,
				Boundary: b,
				Type:     sym.Type,
				Location: uint32(i),
			}
			kind, ok := ast.ScalarOrVectorKind(sym.Type)
			if ok {
				v.Qualifier = defaultQualifier(kind)
			} else {
				// Matrices interpolate smoothly; anything else cannot
				// cross a boundary.
				if _, isMat := sym.Type.(ast.Matrix); !isMat {
					return nil, errorf(ErrTypeNotRepresentable, ast.Pos{},
						"%q of type %s cannot cross the %s to %s boundary", sym.Name, sym.Type, b.From, b.To)
				}
				v.Qualifier = InterpSmooth
			}
			if req, ok := plan.Interpolated[sym.ID]; ok {
				v.Qualifier = req.Qualifier
			}
			if kind == ast.ScalarBool && ok {
				v.Lowered = true
				switch tt := sym.Type.(type) {
				case ast.Scalar:
					v.Type = ast.TypeInt
				case ast.Vector:
					v.Type = ast.Vector{Size: tt.Size, Kind: ast.ScalarInt}
				}
			}
			vars = append(vars, v)
		}
		io.Varyings[b] = vars
	}

	io.Attributes = plan.Program.Fields(plan.Program.Input)
	io.Outputs = plan.ResultFields

	warnUnusedAttributes(plan, io)
	return io, nil
}

// VaryingsInto returns the varyings entering a stage.
func (io *IOPlan) VaryingsInto(t stage.Tier) []Varying {
	for b, vars := range io.Varyings {
		if b.To == t {
			return vars
		}
	}
	return nil
}

// VaryingsOutOf returns the varyings leaving a stage.
func (io *IOPlan) VaryingsOutOf(t stage.Tier) []Varying {
	for b, vars := range io.Varyings {
		if b.From == t {
			return vars
		}
	}
	return nil
}

// AttributeLocation returns the binding location of a vertex attribute.
func (io *IOPlan) AttributeLocation(sym *ast.Symbol) uint32 {
	for i, a := range io.Attributes {
		if a.ID == sym.ID {
			return uint32(i)
		}
	}
	return 0
}

// warnUnusedAttributes flags declared attributes no stage reads.
func warnUnusedAttributes(plan *Plan, io *IOPlan) {
	used := make(map[ast.SymbolID]bool)
	for _, use := range plan.Use {
		for id := range use.Attrs {
			used[id] = true
		}
	}
	for _, a := range io.Attributes {
		if !used[a.ID] {
			plan.Warnings = append(plan.Warnings, errorf(WarnDeadCode, ast.Pos{},
				"vertex attribute %q is never read", a.Name))
		}
	}
}
