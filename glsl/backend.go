// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/partition"
	"github.com/gogpu/stagesplit/stage"
)

// Version represents a GLSL version.
type Version struct {
	Major uint8
	Minor uint8
}

// Version440 is the default target: OpenGL 4.4.
var Version440 = Version{Major: 4, Minor: 40}

// Number returns the numeric version directive value (e.g. "440").
func (v Version) Number() string {
	return fmt.Sprintf("%d%02d", v.Major, v.Minor)
}

// Options configures GLSL code generation.
type Options struct {
	// LangVersion is the target GLSL version. Defaults to Version440 if
	// zero.
	LangVersion Version
}

// DefaultOptions returns sensible default options for GLSL generation.
func DefaultOptions() Options {
	return Options{LangVersion: Version440}
}

// Emitter lowers the per-stage subprograms of one partition plan to GLSL
// source. One emitter serves one compile; the symbol table and the
// procedure cache are shared across the stage documents so names agree on
// both sides of every boundary.
type Emitter struct {
	prog  *ast.Program
	plan  *partition.Plan
	io    *partition.IOPlan
	table *SymbolTable
	opts  Options

	// procCache memoizes emitted procedure definitions per compile.
	procCache map[ast.SymbolID]string

	// declaredAt records which stage each local's declaration statement
	// runs in; other stages using the local zero-initialize their own
	// instance.
	declaredAt map[stage.Tier]map[ast.SymbolID]bool
}

// NewEmitter creates an emitter over a partition plan and its varying plan.
func NewEmitter(plan *partition.Plan, io *partition.IOPlan, table *SymbolTable, opts Options) *Emitter {
	if opts.LangVersion == (Version{}) {
		opts.LangVersion = Version440
	}
	e := &Emitter{
		prog:       plan.Program,
		plan:       plan,
		io:         io,
		table:      table,
		opts:       opts,
		procCache:  make(map[ast.SymbolID]string),
		declaredAt: make(map[stage.Tier]map[ast.SymbolID]bool),
	}
	for _, rec := range plan.Records {
		if rec.Decl == nil || !rec.Tier.IsGPU() {
			continue
		}
		m := e.declaredAt[rec.Tier]
		if m == nil {
			m = make(map[ast.SymbolID]bool)
			e.declaredAt[rec.Tier] = m
		}
		m[rec.Decl.ID] = true
	}
	return e
}

// Stage emits the GLSL document of one shader stage.
func (e *Emitter) Stage(tier stage.Tier) (string, error) {
	if !e.plan.Stages.Contains(tier) || !tier.IsGPU() {
		return "", fmt.Errorf("glsl: stage %s is not present in this pipeline", tier)
	}
	w := newWriter(e, tier)
	if err := w.writeStageDocument(); err != nil {
		return "", fmt.Errorf("glsl: %w", err)
	}
	return w.String(), nil
}

// PassThrough emits the forwarding-only document of an intermediate stage
// that neither produces nor consumes varyings.
func (e *Emitter) PassThrough(tier stage.Tier) (string, error) {
	if tier != stage.Geometry && tier != stage.TessEval {
		return "", fmt.Errorf("glsl: %s is not an intermediate stage", tier)
	}
	if !e.plan.Stages.Contains(tier) {
		return "", fmt.Errorf("glsl: stage %s is not present in this pipeline", tier)
	}
	w := newWriter(e, tier)
	if err := w.writePassThroughDocument(); err != nil {
		return "", fmt.Errorf("glsl: %w", err)
	}
	return w.String(), nil
}
