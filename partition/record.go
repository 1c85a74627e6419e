// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package partition

import (
	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/stage"
)

// StatementRecord is the per-statement unit the partitioner schedules.
// Reads and Writes hold root symbols: a component or swizzle store counts
// as a read-modify-write of the whole symbol.
type StatementRecord struct {
	Index int
	Stmt  ast.Stmt
	Pos   ast.Pos

	// Hint is the lower bound imposed by the statement's own content
	// (sampler use, attribute read, fragment builtins).
	Hint stage.Tier

	// Forced pins the statement to an exact tier (gl_Position writes).
	Forced *stage.Tier

	Reads  map[ast.SymbolID]*ast.Symbol
	Writes map[ast.SymbolID]*ast.Symbol

	// WholeWrites marks writes that replace the entire value, as opposed
	// to component stores.
	WholeWrites map[ast.SymbolID]bool

	// Decl is set when the statement declares a local.
	Decl *ast.Symbol

	// Procs lists the user procedures the statement invokes, in
	// first-call order.
	Procs []*ast.ProcDef

	// Assigned by the solver.
	Tier stage.Tier

	// ReadInstances maps each mutable read to the tier whose instance the
	// read observes. Class reads (consts, globals, attributes) map to
	// their owning tier.
	ReadInstances map[ast.SymbolID]stage.Tier

	// ReadTiers is the multiset of read tiers, kept for diagnostics.
	ReadTiers []stage.Tier
}

// procInfo caches the analysis of one user procedure.
type procInfo struct {
	def *ast.ProcDef

	// hint is the tier lower bound the procedure's body imposes on every
	// call site.
	hint stage.Tier

	// globals are the module constants, CPU globals, and samplers the
	// body reads; call sites inherit them.
	globals map[ast.SymbolID]*ast.Symbol

	// callees are the user procedures the body invokes, in first-call
	// order.
	callees []*ast.ProcDef
}

// analyzer walks the syntax tree and produces statement records.
type analyzer struct {
	prog *ast.Program
	opts Options

	procs     map[ast.SymbolID]*procInfo
	analyzing map[ast.SymbolID]bool
}

func newAnalyzer(prog *ast.Program, opts Options) *analyzer {
	return &analyzer{
		prog:      prog,
		opts:      opts,
		procs:     make(map[ast.SymbolID]*procInfo),
		analyzing: make(map[ast.SymbolID]bool),
	}
}

func newRecord(index int, stmt ast.Stmt) *StatementRecord {
	return &StatementRecord{
		Index:         index,
		Stmt:          stmt,
		Pos:           stmt.Pos(),
		Hint:          stage.Const,
		Reads:         make(map[ast.SymbolID]*ast.Symbol),
		Writes:        make(map[ast.SymbolID]*ast.Symbol),
		WholeWrites:   make(map[ast.SymbolID]bool),
		ReadInstances: make(map[ast.SymbolID]stage.Tier),
	}
}

// analyzeRecord fills a statement record from one top-level statement.
func (a *analyzer) analyzeRecord(rec *StatementRecord) *Error {
	scope := map[ast.SymbolID]bool{}
	return a.analyzeStmt(rec, rec.Stmt, scope)
}

// analyzeStmt aggregates reads, writes, and hints of a statement subtree.
// scope tracks symbols defined inside the current statement; their reads
// stay statement-internal.
func (a *analyzer) analyzeStmt(rec *StatementRecord, s ast.Stmt, scope map[ast.SymbolID]bool) *Error {
	switch st := s.(type) {
	case *ast.Assign:
		if err := a.analyzeWrite(rec, st.LHS, st.Op != "", scope); err != nil {
			return err
		}
		return a.analyzeExpr(rec, st.RHS, scope)

	case *ast.VarDecl:
		if st.Sym == nil {
			return errorf(ErrUnknownIdentifier, st.Pos(), "variable declaration without a resolved symbol")
		}
		if rec.Stmt == s {
			rec.Decl = st.Sym
			rec.Writes[st.Sym.ID] = st.Sym
			rec.WholeWrites[st.Sym.ID] = true
		} else {
			scope[st.Sym.ID] = true
		}
		if st.Init != nil {
			return a.analyzeExpr(rec, st.Init, scope)
		}
		return nil

	case *ast.ConstDecl:
		if st.Sym == nil {
			return errorf(ErrUnknownIdentifier, st.Pos(), "constant declaration without a resolved symbol")
		}
		if rec.Stmt == s {
			rec.Decl = st.Sym
			rec.Writes[st.Sym.ID] = st.Sym
			rec.WholeWrites[st.Sym.ID] = true
		} else {
			scope[st.Sym.ID] = true
		}
		return a.analyzeExpr(rec, st.Value, scope)

	case *ast.StmtList:
		for _, sub := range st.Stmts {
			if err := a.analyzeStmt(rec, sub, scope); err != nil {
				return err
			}
		}
		return nil

	case *ast.Block:
		for _, sub := range st.Stmts {
			if err := a.analyzeStmt(rec, sub, scope); err != nil {
				return err
			}
		}
		return nil

	case *ast.IfStmt:
		if err := a.analyzeExpr(rec, st.Cond, scope); err != nil {
			return err
		}
		for _, sub := range st.Then {
			if err := a.analyzeStmt(rec, sub, scope); err != nil {
				return err
			}
		}
		for _, sub := range st.Else {
			if err := a.analyzeStmt(rec, sub, scope); err != nil {
				return err
			}
		}
		return nil

	case *ast.ForRange:
		scope[st.Var.ID] = true
		if err := a.analyzeExpr(rec, st.Lo, scope); err != nil {
			return err
		}
		if err := a.analyzeExpr(rec, st.Hi, scope); err != nil {
			return err
		}
		for _, sub := range st.Body {
			if err := a.analyzeStmt(rec, sub, scope); err != nil {
				return err
			}
		}
		return nil

	case *ast.ForItems:
		scope[st.Var.ID] = true
		if _, ok := st.Seq.Type().(ast.Array); !ok {
			return errorf(ErrUnsupportedConstruct, st.Pos(), "items iteration requires a fixed-size array, got %s", st.Seq.Type())
		}
		if err := a.analyzeExpr(rec, st.Seq, scope); err != nil {
			return err
		}
		for _, sub := range st.Body {
			if err := a.analyzeStmt(rec, sub, scope); err != nil {
				return err
			}
		}
		return nil

	case *ast.While:
		if err := a.analyzeExpr(rec, st.Cond, scope); err != nil {
			return err
		}
		for _, sub := range st.Body {
			if err := a.analyzeStmt(rec, sub, scope); err != nil {
				return err
			}
		}
		return nil

	case *ast.Return:
		if st.Value != nil {
			return a.analyzeExpr(rec, st.Value, scope)
		}
		return nil

	case *ast.ExprStmt:
		return a.analyzeExpr(rec, st.X, scope)

	default:
		return errorf(ErrUnsupportedConstruct, s.Pos(), "statement kind %T is not supported", s)
	}
}

// analyzeWrite resolves an l-value to its root symbol and records the write.
// Compound assignments and component stores also read the root.
func (a *analyzer) analyzeWrite(rec *StatementRecord, lhs ast.Expr, compound bool, scope map[ast.SymbolID]bool) *Error {
	root, whole, err := a.rootLValue(rec, lhs, scope)
	if err != nil {
		return err
	}
	if root == nil {
		// Defined inside this statement; the write stays internal.
		return nil
	}

	switch root.Kind {
	case ast.SymbolModuleConst:
		return errorf(ErrUnsupportedConstruct, lhs.Pos(), "cannot assign to module constant %q", root.Name)
	case ast.SymbolGlobal:
		if root.Builtin != ast.BuiltinPosition {
			return errorf(ErrUnsupportedConstruct, lhs.Pos(), "cannot assign to CPU global %q in the pipeline body", root.Name)
		}
	case ast.SymbolField:
		if root.IsAttribute() {
			return errorf(ErrUnsupportedConstruct, lhs.Pos(), "cannot assign to vertex attribute %q", root.Name)
		}
	case ast.SymbolProc:
		return errorf(ErrUnsupportedConstruct, lhs.Pos(), "cannot assign to procedure %q", root.Name)
	}

	rec.Writes[root.ID] = root
	if whole && !compound {
		rec.WholeWrites[root.ID] = true
	} else {
		// Read-modify-write of the root value.
		a.recordRead(rec, root)
	}

	if root.Builtin == ast.BuiltinPosition {
		forced := stage.Vertex
		rec.Forced = &forced
	}
	return nil
}

// rootLValue returns the root symbol of an l-value and whether the store
// replaces the whole value. A nil root means the target is defined inside
// the current statement.
func (a *analyzer) rootLValue(rec *StatementRecord, lhs ast.Expr, scope map[ast.SymbolID]bool) (*ast.Symbol, bool, *Error) {
	switch lv := lhs.(type) {
	case *ast.Ident:
		if lv.Sym == nil {
			return nil, false, errorf(ErrUnknownIdentifier, lv.Pos(), "assignment to unresolved identifier")
		}
		if scope[lv.Sym.ID] {
			return nil, true, nil
		}
		return lv.Sym, true, nil

	case *ast.Dot:
		if lv.Sym != nil && (lv.Sym.IsAttribute() || lv.Sym.IsResultField()) {
			// Pipeline record field: the field symbol is the root.
			return lv.Sym, true, nil
		}
		// User record fields and swizzles are partial stores into the
		// base value.
		root, _, err := a.rootLValue(rec, lv.Base, scope)
		return root, false, err

	case *ast.Index:
		if err := a.analyzeExpr(rec, lv.Index, scope); err != nil {
			return nil, false, err
		}
		root, _, err := a.rootLValue(rec, lv.Base, scope)
		return root, false, err

	default:
		return nil, false, errorf(ErrUnsupportedConstruct, lhs.Pos(), "expression kind %T is not assignable", lhs)
	}
}

// recordRead classifies a symbol read and folds its tier contribution into
// the record.
func (a *analyzer) recordRead(rec *StatementRecord, sym *ast.Symbol) {
	rec.Reads[sym.ID] = sym

	switch {
	case sym.Kind == ast.SymbolModuleConst:
		// CONST; no lift.
	case sym.Builtin == ast.BuiltinFragCoord:
		rec.Hint = stage.Join(rec.Hint, stage.Fragment)
	case sym.IsAttribute():
		rec.Hint = stage.Join(rec.Hint, stage.Vertex)
	case sym.Kind == ast.SymbolGlobal && !ast.IsSampler(sym.Type) && sym.Builtin == ast.BuiltinNone:
		rec.Hint = stage.Join(rec.Hint, stage.CPU)
	}
}

// analyzeExpr aggregates the reads and hints of an expression subtree.
func (a *analyzer) analyzeExpr(rec *StatementRecord, e ast.Expr, scope map[ast.SymbolID]bool) *Error {
	switch ex := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.BoolLit:
		return nil

	case *ast.Ident:
		if ex.Sym == nil {
			return errorf(ErrUnknownIdentifier, ex.Pos(), "unresolved identifier")
		}
		if scope[ex.Sym.ID] {
			return nil
		}
		if ex.Sym.Kind == ast.SymbolParam && ex.Sym.Parent == nil && ex.Sym == a.prog.Input {
			// Whole vertex-input record read.
			rec.Hint = stage.Join(rec.Hint, stage.Vertex)
			rec.Reads[ex.Sym.ID] = ex.Sym
			return nil
		}
		a.recordRead(rec, ex.Sym)
		return nil

	case *ast.Dot:
		if ex.Sym != nil && (ex.Sym.IsAttribute() || ex.Sym.IsResultField()) {
			if scope[ex.Sym.ID] {
				return nil
			}
			a.recordRead(rec, ex.Sym)
			return nil
		}
		// User record fields read the record value itself.
		return a.analyzeExpr(rec, ex.Base, scope)

	case *ast.Index:
		if err := a.analyzeExpr(rec, ex.Base, scope); err != nil {
			return err
		}
		return a.analyzeExpr(rec, ex.Index, scope)

	case *ast.Call:
		return a.analyzeCall(rec, ex, scope)

	case *ast.Conv:
		return a.analyzeExpr(rec, ex.Arg, scope)

	case *ast.Prefix:
		return a.analyzeExpr(rec, ex.X, scope)

	case *ast.Infix:
		if err := checkComparisonShape(ex); err != nil {
			return err
		}
		if err := a.analyzeExpr(rec, ex.X, scope); err != nil {
			return err
		}
		return a.analyzeExpr(rec, ex.Y, scope)

	case *ast.IfExpr:
		if err := a.analyzeExpr(rec, ex.Cond, scope); err != nil {
			return err
		}
		if err := a.analyzeExpr(rec, ex.Then, scope); err != nil {
			return err
		}
		return a.analyzeExpr(rec, ex.Else, scope)

	case *ast.StmtListExpr:
		for _, sub := range ex.Stmts {
			if err := a.analyzeStmt(rec, sub, scope); err != nil {
				return err
			}
		}
		return a.analyzeExpr(rec, ex.Value, scope)

	default:
		return errorf(ErrUnsupportedConstruct, e.Pos(), "expression kind %T is not supported", e)
	}
}

// analyzeCall handles texture sampling, builtin procs, and user procedure
// calls.
func (a *analyzer) analyzeCall(rec *StatementRecord, call *ast.Call, scope map[ast.SymbolID]bool) *Error {
	if call.Callee == nil {
		return errorf(ErrUnknownIdentifier, call.Pos(), "call without a resolved callee")
	}

	switch call.Callee.Name {
	case ast.ProcInterpolate:
		// Legal only as a top-level annotation; the partitioner strips
		// those before records are built.
		return errorf(ErrBadInterpolate, call.Pos(), "interpolate is an annotation and cannot appear inside an expression")

	case ast.ProcTexture:
		if len(call.Args) > 0 {
			if samplerSym := symbolOf(call.Args[0]); samplerSym != nil && a.opts.VertexTextureFetch[samplerSym.ID] {
				rec.Hint = stage.Join(rec.Hint, stage.Vertex)
			} else {
				rec.Hint = stage.Join(rec.Hint, stage.Fragment)
			}
		} else {
			rec.Hint = stage.Join(rec.Hint, stage.Fragment)
		}
	default:
		if def := a.prog.ProcByID(call.Callee.ID); def != nil {
			info, err := a.analyzeProc(def)
			if err != nil {
				return err
			}
			rec.Hint = stage.Join(rec.Hint, info.hint)
			rec.Procs = append(rec.Procs, def)
			for _, g := range info.globals {
				a.recordRead(rec, g)
			}
		}
	}

	for _, arg := range call.Args {
		if err := a.analyzeExpr(rec, arg, scope); err != nil {
			return err
		}
	}
	return nil
}

// analyzeProc computes the tier hint and global read set of a user
// procedure. Results are memoized per compile; recursion is rejected.
func (a *analyzer) analyzeProc(def *ast.ProcDef) (*procInfo, *Error) {
	if info, ok := a.procs[def.Sym.ID]; ok {
		return info, nil
	}
	if a.analyzing[def.Sym.ID] {
		return nil, errorf(ErrUnsupportedConstruct, def.Pos(), "recursive procedure %q", def.Sym.Name)
	}
	a.analyzing[def.Sym.ID] = true
	defer delete(a.analyzing, def.Sym.ID)

	rec := newRecord(-1, &ast.StmtList{Stmts: def.Body})
	scope := map[ast.SymbolID]bool{}
	for _, p := range def.Params {
		scope[p.ID] = true
	}
	for _, s := range def.Body {
		if err := a.analyzeStmt(rec, s, scope); err != nil {
			return nil, err
		}
	}

	info := &procInfo{
		def:     def,
		hint:    rec.Hint,
		globals: make(map[ast.SymbolID]*ast.Symbol),
	}
	for id, sym := range rec.Reads {
		switch {
		case sym.Kind == ast.SymbolModuleConst,
			sym.Kind == ast.SymbolGlobal && sym.Builtin == ast.BuiltinNone:
			info.globals[id] = sym
		case sym.IsAttribute(), sym.IsResultField(), sym.Builtin != ast.BuiltinNone:
			return nil, errorf(ErrUnsupportedConstruct, def.Pos(),
				"procedure %q reads pipeline state %q; pass it as a parameter", def.Sym.Name, sym.Name)
		case sym.Kind == ast.SymbolLocal:
			return nil, errorf(ErrUnknownIdentifier, def.Pos(),
				"procedure %q reads %q which is neither a parameter nor a local", def.Sym.Name, sym.Name)
		}
	}
	for _, sub := range collectCalls(def.Body) {
		if calleeDef := a.prog.ProcByID(sub.Callee.ID); calleeDef != nil {
			info.callees = append(info.callees, calleeDef)
		}
	}

	a.procs[def.Sym.ID] = info
	return info, nil
}

// symbolOf unwraps a plain symbol reference, or returns nil.
func symbolOf(e ast.Expr) *ast.Symbol {
	switch ex := e.(type) {
	case *ast.Ident:
		return ex.Sym
	case *ast.Dot:
		return ex.Sym
	default:
		return nil
	}
}

// checkComparisonShape rejects comparing a vector against a scalar without
// a component access.
func checkComparisonShape(ex *ast.Infix) *Error {
	switch ex.Op {
	case "<", ">", "<=", ">=", "==", "!=":
	default:
		return nil
	}
	_, xVec := ex.X.Type().(ast.Vector)
	_, yVec := ex.Y.Type().(ast.Vector)
	_, xScalar := ex.X.Type().(ast.Scalar)
	_, yScalar := ex.Y.Type().(ast.Scalar)
	if (xVec && yScalar) || (yVec && xScalar) {
		return errorf(ErrUnsupportedConstruct, ex.Pos(),
			"cannot compare %s against %s; select a component first", ex.X.Type(), ex.Y.Type())
	}
	return nil
}

// collectCalls gathers user-procedure call sites in first-call order.
func collectCalls(stmts []ast.Stmt) []*ast.Call {
	var out []*ast.Call
	var walkExpr func(e ast.Expr)
	var walkStmt func(s ast.Stmt)

	walkExpr = func(e ast.Expr) {
		switch ex := e.(type) {
		case *ast.Dot:
			walkExpr(ex.Base)
		case *ast.Index:
			walkExpr(ex.Base)
			walkExpr(ex.Index)
		case *ast.Call:
			if ex.Callee != nil {
				out = append(out, ex)
			}
			for _, arg := range ex.Args {
				walkExpr(arg)
			}
		case *ast.Conv:
			walkExpr(ex.Arg)
		case *ast.Prefix:
			walkExpr(ex.X)
		case *ast.Infix:
			walkExpr(ex.X)
			walkExpr(ex.Y)
		case *ast.IfExpr:
			walkExpr(ex.Cond)
			walkExpr(ex.Then)
			walkExpr(ex.Else)
		case *ast.StmtListExpr:
			for _, sub := range ex.Stmts {
				walkStmt(sub)
			}
			walkExpr(ex.Value)
		}
	}
	walkStmt = func(s ast.Stmt) {
		switch st := s.(type) {
		case *ast.Assign:
			walkExpr(st.LHS)
			walkExpr(st.RHS)
		case *ast.VarDecl:
			if st.Init != nil {
				walkExpr(st.Init)
			}
		case *ast.ConstDecl:
			walkExpr(st.Value)
		case *ast.StmtList:
			for _, sub := range st.Stmts {
				walkStmt(sub)
			}
		case *ast.Block:
			for _, sub := range st.Stmts {
				walkStmt(sub)
			}
		case *ast.IfStmt:
			walkExpr(st.Cond)
			for _, sub := range st.Then {
				walkStmt(sub)
			}
			for _, sub := range st.Else {
				walkStmt(sub)
			}
		case *ast.ForRange:
			walkExpr(st.Lo)
			walkExpr(st.Hi)
			for _, sub := range st.Body {
				walkStmt(sub)
			}
		case *ast.ForItems:
			walkExpr(st.Seq)
			for _, sub := range st.Body {
				walkStmt(sub)
			}
		case *ast.While:
			walkExpr(st.Cond)
			for _, sub := range st.Body {
				walkStmt(sub)
			}
		case *ast.Return:
			if st.Value != nil {
				walkExpr(st.Value)
			}
		case *ast.ExprStmt:
			walkExpr(st.X)
		}
	}
	for _, s := range stmts {
		walkStmt(s)
	}
	return out
}
