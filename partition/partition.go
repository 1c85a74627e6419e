// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package partition assigns every statement of a unified pipeline program
// to an execution tier, validates the assignment against the dependency
// lattice, and reorders statements into tier-grouped execution order.
package partition

import (
	"sort"

	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/stage"
)

// Options configures one partition run.
type Options struct {
	// Stages is the pipeline configuration. The zero value means the
	// plain VS+FS pipeline.
	Stages stage.Set

	// VertexTextureFetch lists samplers whose sampling tier is VS
	// instead of FS.
	VertexTextureFetch map[ast.SymbolID]bool
}

// InterpQualifier is a GLSL interpolation qualifier.
type InterpQualifier string

const (
	InterpSmooth        InterpQualifier = "smooth"
	InterpFlat          InterpQualifier = "flat"
	InterpNoPerspective InterpQualifier = "noperspective"
)

// InterpRequest records a user interpolate annotation.
type InterpRequest struct {
	Qualifier InterpQualifier
	Pos       ast.Pos
}

// StageUse aggregates everything one shader stage touches.
type StageUse struct {
	// Reads and Writes hold the mutable symbols the stage's statements
	// touch; each gets a stage-local instance.
	Reads  map[ast.SymbolID]*ast.Symbol
	Writes map[ast.SymbolID]*ast.Symbol

	// Incoming holds values arriving through the stage's in varyings.
	Incoming map[ast.SymbolID]*ast.Symbol

	// UniformAlias holds values arriving through synthesized uniforms.
	UniformAlias map[ast.SymbolID]*ast.Symbol

	// Uniforms, Consts, and Samplers hold the module-scope declarations
	// the stage reads directly (including through procedures).
	Uniforms map[ast.SymbolID]*ast.Symbol
	Consts   map[ast.SymbolID]*ast.Symbol
	Samplers map[ast.SymbolID]*ast.Symbol

	// Attrs holds the vertex attributes the stage's statements read.
	// Attributes read past the vertex stage are additionally demanded
	// across every boundary up to the reading stage.
	Attrs map[ast.SymbolID]*ast.Symbol

	// Procs holds the procedures the stage calls, callees before
	// callers.
	Procs []*ast.ProcDef

	procSeen map[ast.SymbolID]bool
}

func newStageUse() *StageUse {
	return &StageUse{
		Reads:        make(map[ast.SymbolID]*ast.Symbol),
		Writes:       make(map[ast.SymbolID]*ast.Symbol),
		Incoming:     make(map[ast.SymbolID]*ast.Symbol),
		UniformAlias: make(map[ast.SymbolID]*ast.Symbol),
		Uniforms:     make(map[ast.SymbolID]*ast.Symbol),
		Consts:       make(map[ast.SymbolID]*ast.Symbol),
		Samplers:     make(map[ast.SymbolID]*ast.Symbol),
		Attrs:        make(map[ast.SymbolID]*ast.Symbol),
		procSeen:     make(map[ast.SymbolID]bool),
	}
}

// Plan is the partition result: a total tier assignment over the program's
// statements plus the reordered execution sequence and the inter-stage data
// demands the varying planner consumes.
type Plan struct {
	Program *ast.Program
	Stages  stage.Set

	// Records holds one record per partitionable statement in source
	// order. Interpolate annotations are consumed by the partitioner and
	// carry no record.
	Records []*StatementRecord

	// Order is the reordered execution sequence: statement indices
	// grouped by tier in increasing tier order.
	Order []int

	// Interpolated maps symbols to their user interpolate annotations.
	Interpolated map[ast.SymbolID]InterpRequest

	// ValueTier is the tier of each mutable symbol's final value.
	ValueTier map[ast.SymbolID]stage.Tier

	// SynthUniforms holds mutable symbols whose value is composed at
	// CONST/CPU tier and consumed by a shader stage; each becomes a
	// synthesized uniform.
	SynthUniforms map[ast.SymbolID]*ast.Symbol

	// BoundaryDemand lists, per stage boundary, the symbols whose value
	// must cross it.
	BoundaryDemand map[stage.Boundary]map[ast.SymbolID]*ast.Symbol

	// Use aggregates per-shader-stage usage.
	Use map[stage.Tier]*StageUse

	// ResultFields holds the written fragment outputs in declaration
	// order.
	ResultFields []*ast.Symbol

	// Warnings holds non-fatal diagnostics.
	Warnings []*Error
}

// CPUOrder returns the indices of CONST- and CPU-tier statements in
// execution order.
func (p *Plan) CPUOrder() []int {
	var out []int
	for _, idx := range p.Order {
		if p.Records[idx].Tier <= stage.CPU {
			out = append(out, idx)
		}
	}
	return out
}

// StageOrder returns the indices of statements assigned to one shader
// stage, in execution order.
func (p *Plan) StageOrder(t stage.Tier) []int {
	var out []int
	for _, idx := range p.Order {
		if p.Records[idx].Tier == t {
			out = append(out, idx)
		}
	}
	return out
}

// solver carries the source-order tier resolution state.
type solver struct {
	prog *ast.Program
	opts Options
	plan *Plan

	// cur is the tier of each mutable symbol's current value.
	cur map[ast.SymbolID]stage.Tier

	// written marks symbols with at least one real write statement.
	written map[ast.SymbolID]bool

	// lowWrite marks symbols with a write at CONST or CPU tier.
	lowWrite map[ast.SymbolID]bool

	// highRead is the highest tier at which each mutable symbol has been
	// read so far, in source order.
	highRead map[ast.SymbolID]stage.Tier
}

// Partition classifies every statement of the program into an execution
// tier, resolves stage-split conflicts, and computes the tier-grouped
// execution order.
func Partition(prog *ast.Program, opts Options) (*Plan, error) {
	if opts.Stages == 0 {
		opts.Stages = stage.NewSet(false, false)
	}
	if opts.VertexTextureFetch == nil {
		opts.VertexTextureFetch = map[ast.SymbolID]bool{}
	}

	plan := &Plan{
		Program:        prog,
		Stages:         opts.Stages,
		Interpolated:   make(map[ast.SymbolID]InterpRequest),
		ValueTier:      make(map[ast.SymbolID]stage.Tier),
		SynthUniforms:  make(map[ast.SymbolID]*ast.Symbol),
		BoundaryDemand: make(map[stage.Boundary]map[ast.SymbolID]*ast.Symbol),
		Use:            make(map[stage.Tier]*StageUse),
	}
	for _, t := range opts.Stages.GPUOrder() {
		plan.Use[t] = newStageUse()
	}

	s := &solver{
		prog:     prog,
		opts:     opts,
		plan:     plan,
		cur:      make(map[ast.SymbolID]stage.Tier),
		written:  make(map[ast.SymbolID]bool),
		lowWrite: make(map[ast.SymbolID]bool),
		highRead: make(map[ast.SymbolID]stage.Tier),
	}

	a := newAnalyzer(prog, opts)

	// Pre-scan annotations: the split-conflict waiver is program-wide
	// even when the annotation trails the statements it legalizes.
	for _, st := range prog.Body {
		if sym, req, ok, err := parseInterpolate(st); err != nil {
			return nil, err
		} else if ok {
			plan.Interpolated[sym.ID] = req
		}
	}

	// Build records and solve tiers in source order. Annotation
	// statements redirect reads at their position instead of producing a
	// record.
	for _, st := range prog.Body {
		if sym, _, ok, err := parseInterpolate(st); err != nil {
			return nil, err
		} else if ok {
			s.applyInterpolate(sym)
			continue
		}

		rec := newRecord(len(plan.Records), st)
		if err := a.analyzeRecord(rec); err != nil {
			return nil, err
		}
		if err := s.solveRecord(rec); err != nil {
			return nil, err
		}
		plan.Records = append(plan.Records, rec)
	}

	if err := s.terminalReads(); err != nil {
		return nil, err
	}

	graph := BuildGraph(plan.Records)
	order, err := graph.Reorder()
	if err != nil {
		return nil, err
	}
	plan.Order = order

	for id, t := range s.cur {
		plan.ValueTier[id] = t
	}
	s.warnDeadWrites()

	return plan, nil
}

// parseInterpolate recognizes a top-level interpolate annotation and
// validates its target.
func parseInterpolate(st ast.Stmt) (*ast.Symbol, InterpRequest, bool, *Error) {
	es, ok := st.(*ast.ExprStmt)
	if !ok {
		return nil, InterpRequest{}, false, nil
	}
	call, ok := es.X.(*ast.Call)
	if !ok || call.Callee == nil || call.Callee.Name != ast.ProcInterpolate {
		return nil, InterpRequest{}, false, nil
	}

	if len(call.Args) < 1 || len(call.Args) > 2 {
		return nil, InterpRequest{}, false, errorf(ErrBadInterpolate, es.Pos(), "interpolate takes a variable and an optional qualifier")
	}

	var sym *ast.Symbol
	switch arg := call.Args[0].(type) {
	case *ast.Ident:
		sym = arg.Sym
	case *ast.Dot:
		if arg.IsSwizzle() {
			return nil, InterpRequest{}, false, errorf(ErrBadInterpolate, arg.Pos(),
				"cannot interpolate component %q; interpolate the whole variable", arg.Name)
		}
		if _, ok := arg.Base.(*ast.Ident); !ok {
			return nil, InterpRequest{}, false, errorf(ErrBadInterpolate, arg.Pos(), "interpolate target must be a whole variable")
		}
		sym = arg.Sym
	case *ast.Index:
		return nil, InterpRequest{}, false, errorf(ErrBadInterpolate, arg.Pos(), "cannot interpolate an array element")
	default:
		return nil, InterpRequest{}, false, errorf(ErrBadInterpolate, es.Pos(), "interpolate target must be a whole variable")
	}
	if sym == nil {
		return nil, InterpRequest{}, false, errorf(ErrUnknownIdentifier, es.Pos(), "interpolate of an unresolved identifier")
	}

	kind, ok := ast.ScalarOrVectorKind(sym.Type)
	if !ok {
		return nil, InterpRequest{}, false, errorf(ErrBadInterpolate, es.Pos(),
			"cannot interpolate %q of type %s; only scalar and vector variables interpolate", sym.Name, sym.Type)
	}
	if !isMutable(sym) && !sym.IsAttribute() {
		return nil, InterpRequest{}, false, errorf(ErrBadInterpolate, es.Pos(),
			"%q is uniform across the pipeline; interpolation would be meaningless", sym.Name)
	}

	req := InterpRequest{Qualifier: defaultQualifier(kind), Pos: es.Pos()}
	if len(call.Args) == 2 {
		qsym := symbolOf(call.Args[1])
		if qsym == nil {
			return nil, InterpRequest{}, false, errorf(ErrBadInterpolate, es.Pos(), "interpolation qualifier must be an identifier")
		}
		switch InterpQualifier(qsym.Name) {
		case InterpSmooth, InterpFlat, InterpNoPerspective:
			req.Qualifier = InterpQualifier(qsym.Name)
		default:
			return nil, InterpRequest{}, false, errorf(ErrBadInterpolate, es.Pos(), "unknown interpolation qualifier %q", qsym.Name)
		}
	}
	return sym, req, true, nil
}

// defaultQualifier picks the interpolation qualifier a type gets without an
// explicit request: smooth for floats, flat for integers and booleans.
func defaultQualifier(kind ast.ScalarKind) InterpQualifier {
	if kind == ast.ScalarFloat {
		return InterpSmooth
	}
	return InterpFlat
}

// applyInterpolate forces the symbol across the vertex→fragment boundary
// and redirects subsequent reads to the fragment-side instance.
func (s *solver) applyInterpolate(sym *ast.Symbol) {
	if sym.IsAttribute() {
		// Attributes already forward on demand; the annotation only
		// picks the qualifier.
		s.demandCrossing(sym, stage.Vertex, stage.Fragment)
		s.use(stage.Vertex).Attrs[sym.ID] = sym
		return
	}

	if s.cur[sym.ID] <= stage.CPU && s.lowWrite[sym.ID] {
		s.plan.SynthUniforms[sym.ID] = sym
		s.use(stage.Vertex).UniformAlias[sym.ID] = sym
	}
	s.use(stage.Vertex).Reads[sym.ID] = sym
	s.use(stage.Fragment).Incoming[sym.ID] = sym
	s.demandCrossing(sym, stage.Vertex, stage.Fragment)
	s.cur[sym.ID] = stage.Fragment
}

func (s *solver) use(t stage.Tier) *StageUse { return s.plan.Use[t] }

// demandCrossing marks the symbol's value as crossing every present
// boundary between the producing and consuming stages.
func (s *solver) demandCrossing(sym *ast.Symbol, from, to stage.Tier) {
	for _, b := range s.plan.Stages.Boundaries() {
		if from <= b.From && to >= b.To {
			m := s.plan.BoundaryDemand[b]
			if m == nil {
				m = make(map[ast.SymbolID]*ast.Symbol)
				s.plan.BoundaryDemand[b] = m
			}
			m[sym.ID] = sym
		}
	}
}

// isMutable reports whether reads of the symbol observe a stage instance
// rather than a module-scope declaration.
func isMutable(sym *ast.Symbol) bool {
	return sym.Kind == ast.SymbolLocal || sym.IsResultField() || sym.Builtin == ast.BuiltinPosition
}

// solveRecord assigns a tier to one statement and books its inter-stage
// demands.
func (s *solver) solveRecord(rec *StatementRecord) *Error {
	// Resolve read instances.
	for id, sym := range rec.Reads {
		var inst stage.Tier
		switch {
		case sym.Kind == ast.SymbolModuleConst:
			inst = stage.Const
		case ast.IsSampler(sym.Type):
			if s.opts.VertexTextureFetch[id] {
				inst = stage.Vertex
			} else {
				inst = stage.Fragment
			}
		case sym.Builtin == ast.BuiltinFragCoord:
			inst = stage.Fragment
		case sym.IsAttribute() || sym == s.prog.Input:
			inst = stage.Vertex
		case sym.Kind == ast.SymbolGlobal && sym.Builtin == ast.BuiltinNone:
			inst = stage.CPU
		case isMutable(sym):
			t, ok := s.cur[id]
			if !ok {
				if sym.Kind == ast.SymbolLocal {
					return errorf(ErrUnknownIdentifier, rec.Pos, "%q is read but never written", sym.Name)
				}
				// Result fields and gl_Position start zero-initialized.
				t = stage.Const
				s.cur[id] = t
			}
			inst = t
		default:
			return errorf(ErrInternalInvariant, rec.Pos, "symbol %q has no read classification", sym.Name)
		}
		rec.ReadInstances[id] = inst
	}

	// Pinned write sites read the pinned stage's instance; a value living
	// above the pin splits the symbol unless the user interpolates it.
	if rec.Forced != nil {
		for id, sym := range rec.Reads {
			inst := rec.ReadInstances[id]
			if !isMutable(sym) || inst <= *rec.Forced {
				continue
			}
			if _, ok := s.plan.Interpolated[id]; ok {
				rec.ReadInstances[id] = *rec.Forced
				continue
			}
			return errorf(ErrStageSplitConflict, rec.Pos,
				"%q is written at %s but read at %s; interpolate(%s) would forward it",
				sym.Name, inst, *rec.Forced, sym.Name)
		}
	}

	// The statement's tier is the join of its hint and read instances.
	tier := rec.Hint
	for id := range rec.Reads {
		tier = stage.Join(tier, rec.ReadInstances[id])
	}
	if rec.Forced != nil && tier > *rec.Forced {
		return errorf(ErrStageSplitConflict, rec.Pos,
			"right-hand side requires %s but the write site is pinned to %s", tier, *rec.Forced)
	}
	if rec.Forced != nil {
		tier = *rec.Forced
	}
	rec.Tier = tier
	rec.ReadTiers = rec.ReadTiers[:0]
	for id := range rec.Reads {
		rec.ReadTiers = append(rec.ReadTiers, rec.ReadInstances[id])
	}

	// A write must not be observed by an earlier statement that runs at a
	// later stage: the forwarded value would leak the future assignment.
	for id, sym := range rec.Writes {
		if hr, ok := s.highRead[id]; ok && hr > tier {
			return errorf(ErrStageSplitConflict, rec.Pos,
				"%q is rewritten at %s after being read at %s; the forwarded value would change", sym.Name, tier, hr)
		}
	}

	// Writes move the symbol's value to this tier.
	for id := range rec.Writes {
		s.cur[id] = tier
		s.written[id] = true
		if tier <= stage.CPU {
			s.lowWrite[id] = true
		}
	}
	for id, sym := range rec.Reads {
		if isMutable(sym) {
			s.highRead[id] = stage.Join(s.highRead[id], tier)
		}
	}

	if !tier.IsGPU() {
		return nil
	}

	// Book stage usage and boundary demands.
	use := s.use(tier)
	for _, def := range rec.Procs {
		s.addProc(use, def)
	}
	for id, sym := range rec.Writes {
		if isMutable(sym) {
			use.Writes[id] = sym
		}
	}
	for id, sym := range rec.Reads {
		inst := rec.ReadInstances[id]
		switch {
		case sym.Kind == ast.SymbolModuleConst:
			use.Consts[id] = sym
		case ast.IsSampler(sym.Type):
			use.Samplers[id] = sym
		case sym.Builtin == ast.BuiltinFragCoord:
			// gl_FragCoord needs no declaration.
		case sym == s.prog.Input:
			for _, f := range s.prog.Fields(s.prog.Input) {
				s.bookAttr(f, tier)
			}
		case sym.IsAttribute():
			s.bookAttr(sym, tier)
		case sym.Kind == ast.SymbolGlobal && sym.Builtin == ast.BuiltinNone:
			use.Uniforms[id] = sym
		case isMutable(sym):
			use.Reads[id] = sym
			switch {
			case inst <= stage.CPU && s.lowWrite[id]:
				s.plan.SynthUniforms[id] = sym
				use.UniformAlias[id] = sym
			case inst.IsGPU() && inst < tier:
				s.demandCrossing(sym, inst, tier)
				use.Incoming[id] = sym
			}
		}
	}
	return nil
}

// bookAttr records an attribute read at the given stage, forwarding it
// from the vertex stage when read later in the pipeline.
func (s *solver) bookAttr(sym *ast.Symbol, tier stage.Tier) {
	s.use(stage.Vertex).Attrs[sym.ID] = sym
	if tier > stage.Vertex {
		s.demandCrossing(sym, stage.Vertex, tier)
		s.use(tier).Incoming[sym.ID] = sym
		s.use(tier).Attrs[sym.ID] = sym
	}
}

// addProc appends a procedure and its callees to the stage, callees first.
func (s *solver) addProc(use *StageUse, def *ast.ProcDef) {
	if use.procSeen[def.Sym.ID] {
		return
	}
	use.procSeen[def.Sym.ID] = true
	for _, callee := range collectCalls(def.Body) {
		if sub := s.prog.ProcByID(callee.Callee.ID); sub != nil {
			s.addProc(use, sub)
		}
	}
	use.Procs = append(use.Procs, def)
}

// terminalReads accounts for the implicit fragment-stage consumption of
// every written fragment output, and warns when gl_Position is never set.
func (s *solver) terminalReads() *Error {
	if !s.written[s.prog.Position.ID] {
		s.plan.Warnings = append(s.plan.Warnings, errorf(WarnMissingPosition, ast.Pos{},
			"gl_Position is never written; the pipeline produces no geometry"))
	}

	for _, f := range s.prog.Fields(s.prog.Result) {
		if !s.written[f.ID] {
			continue
		}
		s.plan.ResultFields = append(s.plan.ResultFields, f)
		use := s.use(stage.Fragment)
		use.Reads[f.ID] = f
		inst := s.cur[f.ID]
		switch {
		case inst <= stage.CPU && s.lowWrite[f.ID]:
			s.plan.SynthUniforms[f.ID] = f
			use.UniformAlias[f.ID] = f
		case inst.IsGPU() && inst < stage.Fragment:
			s.demandCrossing(f, inst, stage.Fragment)
			use.Incoming[f.ID] = f
		}
	}
	return nil
}

// warnDeadWrites reports locals that are written but never consumed.
func (s *solver) warnDeadWrites() {
	read := make(map[ast.SymbolID]bool)
	for _, rec := range s.plan.Records {
		for id := range rec.Reads {
			read[id] = true
		}
	}

	var dead []*ast.Symbol
	for _, rec := range s.plan.Records {
		for id, sym := range rec.Writes {
			if sym.Kind == ast.SymbolLocal && !read[id] {
				dead = append(dead, sym)
				read[id] = true // report once
			}
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].ID < dead[j].ID })
	for _, sym := range dead {
		s.plan.Warnings = append(s.plan.Warnings, errorf(WarnDeadCode, ast.Pos{},
			"%q is written but never read", sym.Name))
	}
}
