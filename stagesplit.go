// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package stagesplit compiles a unified pipeline program into per-stage
// GLSL shaders plus the CPU-side binding glue.
//
// A unified program describes CPU setup, vertex work, and fragment work in
// one body. The compiler classifies every statement into an execution tier
// (CONST, CPU, VS, TS, GS, FS), validates the classification against the
// dependency lattice, reorders statements to honor it, and emits GLSL 4.40
// source for each present shader stage together with the uniform,
// attribute, and texture binding descriptors.
//
// Example usage:
//
//	bundle, err := stagesplit.Compile(prog)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(bundle.VertexShader)
//	fmt.Println(bundle.FragmentShader)
//
// The compilation pipeline is:
//  1. Partition the typed syntax tree into per-stage subprograms
//  2. Plan varyings across each stage boundary
//  3. Emit GLSL per stage
//
// A compile is a single-threaded, non-suspending transformation: the
// output is a deterministic function of the input tree and the stage-set
// configuration. Concurrent compiles must each use their own Program.
package stagesplit

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/glsl"
	"github.com/gogpu/stagesplit/partition"
	"github.com/gogpu/stagesplit/stage"
)

// Options configures shader compilation.
type Options struct {
	// Geometry enables the pass-through geometry stage.
	Geometry bool

	// Tessellation enables the pass-through tessellation evaluation
	// stage.
	Tessellation bool

	// VertexTextureFetch names the samplers that may be sampled in the
	// vertex stage. By default every sampler is fragment-only.
	VertexTextureFetch []string

	// LangVersion is the target GLSL version (default 440).
	LangVersion glsl.Version
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{LangVersion: glsl.Version440}
}

// Severity grades a diagnostic.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one compiler message. Compile records only warnings as
// diagnostics; they are surfaced but do not prevent emission. Errors are
// returned as Compile's error result, not as SeverityError diagnostics.
type Diagnostic struct {
	Severity Severity
	Kind     string
	Message  string
	Pos      ast.Pos
}

// String formats the diagnostic for display.
func (d Diagnostic) String() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %d:%d: %s: %s", d.Severity, d.Pos.Line, d.Pos.Column, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Kind, d.Message)
}

// UniformBinding describes one uniform the CPU glue must set.
type UniformBinding struct {
	Name     string
	GLSLType string
	SymbolID ast.SymbolID

	// Synthesized marks uniforms that carry a CPU-composed value rather
	// than a user-declared global.
	Synthesized bool
}

// AttributeBinding describes one vertex attribute slot.
type AttributeBinding struct {
	Name     string
	GLSLType string
	SymbolID ast.SymbolID
	Location uint32
}

// TextureBinding describes one sampler the CPU glue must bind.
type TextureBinding struct {
	Name        string
	SamplerKind ast.SamplerKind
	SymbolID    ast.SymbolID
}

// Bundle is the compile artifact: per-stage GLSL sources plus the CPU
// binding descriptors.
type Bundle struct {
	// ID is a content hash of the emitted sources, stable across
	// re-runs of the same input.
	ID uuid.UUID

	VertexShader   string
	FragmentShader string

	// GeometryShader and TessEvalShader are empty unless the stage is
	// enabled; enabled stages forward varyings unchanged.
	GeometryShader string
	TessEvalShader string

	UniformBindings   []UniformBinding
	AttributeBindings []AttributeBinding
	TextureBindings   []TextureBinding

	// CPUStatements holds the CONST- and CPU-tier statements in
	// execution order; the host runtime evaluates them to produce the
	// synthesized uniform values.
	CPUStatements []ast.Stmt

	// Diagnostics holds the surfaced warnings.
	Diagnostics []Diagnostic
}

// Compile compiles a unified pipeline program using default options.
func Compile(prog *ast.Program) (*Bundle, error) {
	return CompileWithOptions(prog, DefaultOptions())
}

// CompileWithOptions compiles a unified pipeline program.
//
// The pipeline is:
//  1. Partition the body into per-stage subprograms
//  2. Plan varyings and binding slots
//  3. Emit GLSL for each present stage
func CompileWithOptions(prog *ast.Program, opts Options) (*Bundle, error) {
	stages := stage.NewSet(opts.Tessellation, opts.Geometry)

	vtf := make(map[ast.SymbolID]bool)
	for _, name := range opts.VertexTextureFetch {
		for _, g := range prog.Globals {
			if g.Name == name && ast.IsSampler(g.Type) {
				vtf[g.ID] = true
			}
		}
	}

	LogDebug("partitioning %q: %d statements, stages %v", prog.Name, len(prog.Body), stages.GPUOrder())
	plan, err := partition.Partition(prog, partition.Options{
		Stages:             stages,
		VertexTextureFetch: vtf,
	})
	if err != nil {
		return nil, fmt.Errorf("partition error: %w", err)
	}

	table := glsl.NewSymbolTable()
	// Bind identifiers in declaration order so collision suffixes are a
	// deterministic function of the program.
	for _, sym := range prog.Symbols() {
		table.Ident(sym)
	}
	io, err := partition.PlanVaryings(plan, table)
	if err != nil {
		return nil, fmt.Errorf("varying planning error: %w", err)
	}

	emitter := glsl.NewEmitter(plan, io, table, glsl.Options{LangVersion: opts.LangVersion})

	bundle := &Bundle{}
	if bundle.VertexShader, err = emitter.Stage(stage.Vertex); err != nil {
		return nil, fmt.Errorf("vertex emission error: %w", err)
	}
	if bundle.FragmentShader, err = emitter.Stage(stage.Fragment); err != nil {
		return nil, fmt.Errorf("fragment emission error: %w", err)
	}
	if opts.Tessellation {
		if bundle.TessEvalShader, err = emitter.PassThrough(stage.TessEval); err != nil {
			return nil, fmt.Errorf("tessellation emission error: %w", err)
		}
	}
	if opts.Geometry {
		if bundle.GeometryShader, err = emitter.PassThrough(stage.Geometry); err != nil {
			return nil, fmt.Errorf("geometry emission error: %w", err)
		}
	}

	if err := collectBindings(bundle, plan, io, table); err != nil {
		return nil, err
	}

	for _, idx := range plan.CPUOrder() {
		bundle.CPUStatements = append(bundle.CPUStatements, plan.Records[idx].Stmt)
	}
	for _, warn := range plan.Warnings {
		bundle.Diagnostics = append(bundle.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Kind:     string(warn.Kind),
			Message:  warn.Message,
			Pos:      warn.Pos,
		})
		LogWarn("%s: %s", warn.Kind, warn.Message)
	}

	bundle.ID = uuid.NewSHA1(uuid.NameSpaceOID,
		[]byte(bundle.VertexShader+bundle.TessEvalShader+bundle.GeometryShader+bundle.FragmentShader))
	LogDebug("compiled %q: bundle %s, %d uniforms, %d attributes, %d textures",
		prog.Name, bundle.ID, len(bundle.UniformBindings), len(bundle.AttributeBindings), len(bundle.TextureBindings))
	return bundle, nil
}

// collectBindings fills the CPU binding descriptors from the plan.
func collectBindings(bundle *Bundle, plan *partition.Plan, io *partition.IOPlan, table *glsl.SymbolTable) error {
	direct := make(map[ast.SymbolID]*ast.Symbol)
	samplers := make(map[ast.SymbolID]*ast.Symbol)
	for _, use := range plan.Use {
		for id, sym := range use.Uniforms {
			direct[id] = sym
		}
		for id, sym := range use.Samplers {
			samplers[id] = sym
		}
	}

	for _, sym := range sortedSymbols(direct, table) {
		typeName, err := glsl.TypeName(sym.Type)
		if err != nil {
			return fmt.Errorf("uniform %q: %w", sym.Name, err)
		}
		bundle.UniformBindings = append(bundle.UniformBindings, UniformBinding{
			Name:     table.Ident(sym),
			GLSLType: typeName,
			SymbolID: sym.ID,
		})
	}
	for _, sym := range sortedSymbols(plan.SynthUniforms, table) {
		typeName, err := glsl.TypeName(sym.Type)
		if err != nil {
			return fmt.Errorf("uniform %q: %w", sym.Name, err)
		}
		bundle.UniformBindings = append(bundle.UniformBindings, UniformBinding{
			Name:        table.UniformName(sym),
			GLSLType:    typeName,
			SymbolID:    sym.ID,
			Synthesized: true,
		})
	}

	for _, sym := range io.Attributes {
		typeName, err := glsl.TypeName(sym.Type)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", sym.Name, err)
		}
		bundle.AttributeBindings = append(bundle.AttributeBindings, AttributeBinding{
			Name:     table.Ident(sym),
			GLSLType: typeName,
			SymbolID: sym.ID,
			Location: io.AttributeLocation(sym),
		})
	}

	for _, sym := range sortedSymbols(samplers, table) {
		kind := sym.Type.(ast.Sampler).Kind
		bundle.TextureBindings = append(bundle.TextureBindings, TextureBinding{
			Name:        table.Ident(sym),
			SamplerKind: kind,
			SymbolID:    sym.ID,
		})
	}
	return nil
}

// sortedSymbols orders a symbol set by chosen identifier.
func sortedSymbols(set map[ast.SymbolID]*ast.Symbol, table *glsl.SymbolTable) []*ast.Symbol {
	out := make([]*ast.Symbol, 0, len(set))
	for _, sym := range set {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return table.Ident(out[i]) < table.Ident(out[j]) })
	return out
}
