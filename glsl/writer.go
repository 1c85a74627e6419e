// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/partition"
	"github.com/gogpu/stagesplit/stage"
)

// writer generates the GLSL document of one shader stage.
type writer struct {
	*Emitter
	tier stage.Tier
	use  *partition.StageUse

	out    strings.Builder
	indent int

	// inProc switches symbol resolution from stage-local names to plain
	// identifiers while a procedure body is written.
	inProc bool
}

func newWriter(e *Emitter, tier stage.Tier) *writer {
	return &writer{
		Emitter: e,
		tier:    tier,
		use:     e.plan.Use[tier],
	}
}

// String returns the generated GLSL source code.
func (w *writer) String() string {
	return w.out.String()
}

// writeStageDocument emits the full per-stage document: version directive,
// declarations, procedures, and main.
func (w *writer) writeStageDocument() error {
	w.writeLine("#version %s", w.opts.LangVersion.Number())
	w.writeLine("")

	if err := w.writeStructs(); err != nil {
		return err
	}
	if err := w.writeConsts(); err != nil {
		return err
	}
	if err := w.writeUniforms(); err != nil {
		return err
	}
	if err := w.writeStageInputs(); err != nil {
		return err
	}
	if err := w.writeInVaryings(); err != nil {
		return err
	}
	if err := w.writeOutDecls(); err != nil {
		return err
	}
	if err := w.writeProcs(); err != nil {
		return err
	}
	return w.writeMain()
}

// sortedByIdent returns the symbols of a set ordered by their chosen GLSL
// identifier.
func (w *writer) sortedByIdent(set map[ast.SymbolID]*ast.Symbol) []*ast.Symbol {
	out := make([]*ast.Symbol, 0, len(set))
	for _, sym := range set {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool {
		return w.table.Ident(out[i]) < w.table.Ident(out[j])
	})
	return out
}

// writeStructs declares every record type the stage uses, once each.
func (w *writer) writeStructs() error {
	seen := map[string]bool{}
	var structs []ast.Struct

	add := func(t ast.Type) {
		for {
			if arr, ok := t.(ast.Array); ok {
				t = arr.Elem
				continue
			}
			break
		}
		st, ok := t.(ast.Struct)
		if !ok || seen[st.Name] {
			return
		}
		seen[st.Name] = true
		structs = append(structs, st)
	}

	for _, set := range []map[ast.SymbolID]*ast.Symbol{
		w.use.Consts, w.use.Uniforms, w.use.Reads, w.use.Writes,
	} {
		for _, sym := range set {
			add(sym.Type)
		}
	}
	for _, def := range w.use.Procs {
		for _, p := range def.Params {
			add(p.Type)
		}
		add(def.Result)
		for _, rec := range collectDecls(def.Body) {
			add(rec.Type)
		}
	}
	for _, rec := range w.plan.Records {
		if rec.Tier == w.tier && rec.Decl != nil {
			add(rec.Decl.Type)
		}
	}

	sort.Slice(structs, func(i, j int) bool { return structs[i].Name < structs[j].Name })
	for _, st := range structs {
		name, err := baseTypeName(st)
		if err != nil {
			return err
		}
		w.writeLine("struct %s {", name)
		w.pushIndent()
		for _, f := range st.Fields {
			base, err := baseTypeName(f.Type)
			if err != nil {
				return err
			}
			w.writeLine("%s %s%s;", base, escapeKeyword(stripName(f.Name)), arraySuffix(f.Type))
		}
		w.popIndent()
		w.writeLine("};")
		w.writeLine("")
	}
	return nil
}

// writeConsts declares the module constants the stage reads.
func (w *writer) writeConsts() error {
	syms := w.sortedByIdent(w.use.Consts)
	for _, sym := range syms {
		decl := w.constDecl(sym)
		if decl == nil {
			continue
		}
		base, err := baseTypeName(sym.Type)
		if err != nil {
			return err
		}
		value, err := w.expr(decl.Value)
		if err != nil {
			return err
		}
		w.writeLine("const %s %s%s = %s;", base, w.table.Ident(sym), arraySuffix(sym.Type), value)
	}
	if len(syms) > 0 {
		w.writeLine("")
	}
	return nil
}

func (w *writer) constDecl(sym *ast.Symbol) *ast.ConstDecl {
	for _, decl := range w.prog.Consts {
		if decl.Sym.ID == sym.ID {
			return decl
		}
	}
	return nil
}

// writeUniforms declares the CPU globals, synthesized uniforms, and
// samplers the stage reads.
func (w *writer) writeUniforms() error {
	wrote := false
	for _, sym := range w.sortedByIdent(w.use.Uniforms) {
		base, err := baseTypeName(sym.Type)
		if err != nil {
			return err
		}
		w.writeLine("uniform %s %s%s;", base, w.table.Ident(sym), arraySuffix(sym.Type))
		wrote = true
	}
	for _, sym := range w.sortedByIdent(w.use.UniformAlias) {
		base, err := baseTypeName(sym.Type)
		if err != nil {
			return err
		}
		w.writeLine("uniform %s %s%s;", base, w.table.UniformName(sym), arraySuffix(sym.Type))
		wrote = true
	}
	for _, sym := range w.sortedByIdent(w.use.Samplers) {
		base, err := baseTypeName(sym.Type)
		if err != nil {
			return err
		}
		w.writeLine("uniform %s %s;", base, w.table.Ident(sym))
		wrote = true
	}
	if wrote {
		w.writeLine("")
	}
	return nil
}

// writeStageInputs declares the vertex attributes (vertex stage only).
// Locations follow attribute declaration order so bindings stay stable
// whether or not an attribute is read.
func (w *writer) writeStageInputs() error {
	if w.tier != stage.Vertex || len(w.use.Attrs) == 0 {
		return nil
	}
	for _, sym := range w.io.Attributes {
		if _, used := w.use.Attrs[sym.ID]; !used {
			continue
		}
		base, err := baseTypeName(sym.Type)
		if err != nil {
			return err
		}
		w.writeLine("layout(location = %d) in %s %s%s;",
			w.io.AttributeLocation(sym), base, w.table.Ident(sym), arraySuffix(sym.Type))
	}
	w.writeLine("")
	return nil
}

// writeInVaryings declares the varyings entering the stage.
func (w *writer) writeInVaryings() error {
	vars := w.io.VaryingsInto(w.tier)
	for _, v := range vars {
		base, err := baseTypeName(v.Type)
		if err != nil {
			return err
		}
		w.writeLine("layout(location = %d) %s in %s %s;",
			v.Location, v.Qualifier, base, w.table.VaryingName(v.Boundary, v.Sym))
	}
	if len(vars) > 0 {
		w.writeLine("")
	}
	return nil
}

// writeOutDecls declares the varyings leaving the stage, or the fragment
// outputs in the terminal stage.
func (w *writer) writeOutDecls() error {
	if w.tier == stage.Fragment {
		for i, sym := range w.io.Outputs {
			base, err := baseTypeName(sym.Type)
			if err != nil {
				return err
			}
			w.writeLine("layout(location = %d) out %s %s;", i, base, w.table.Ident(sym))
		}
		if len(w.io.Outputs) > 0 {
			w.writeLine("")
		}
		return nil
	}

	vars := w.io.VaryingsOutOf(w.tier)
	for _, v := range vars {
		base, err := baseTypeName(v.Type)
		if err != nil {
			return err
		}
		w.writeLine("layout(location = %d) %s out %s %s;",
			v.Location, v.Qualifier, base, w.table.VaryingName(v.Boundary, v.Sym))
	}
	if len(vars) > 0 {
		w.writeLine("")
	}
	return nil
}

// writeProcs emits the procedures the stage calls, callees before callers.
// Definitions are memoized per compile: every stage document shares one
// lowering of each procedure.
func (w *writer) writeProcs() error {
	for _, def := range w.use.Procs {
		text, ok := w.procCache[def.Sym.ID]
		if !ok {
			var err error
			text, err = w.procText(def)
			if err != nil {
				return err
			}
			w.procCache[def.Sym.ID] = text
		}
		w.out.WriteString(text)
		w.writeLine("")
	}
	return nil
}

// procText lowers one procedure definition.
func (w *writer) procText(def *ast.ProcDef) (string, error) {
	sub := newWriter(w.Emitter, w.tier)
	sub.inProc = true

	retType := "void"
	if _, isVoid := def.Result.(ast.Void); !isVoid && def.Result != nil {
		var err error
		retType, err = TypeName(def.Result)
		if err != nil {
			return "", err
		}
	}

	params := make([]string, 0, len(def.Params))
	for _, p := range def.Params {
		base, err := baseTypeName(p.Type)
		if err != nil {
			return "", err
		}
		params = append(params, fmt.Sprintf("%s %s%s", base, sub.table.Ident(p), arraySuffix(p.Type)))
	}

	sub.writeLine("%s %s(%s) {", retType, sub.table.Ident(def.Sym), strings.Join(params, ", "))
	sub.pushIndent()
	for _, st := range def.Body {
		if err := sub.stmt(st); err != nil {
			return "", err
		}
	}
	sub.popIndent()
	sub.writeLine("}")
	return sub.String(), nil
}

// writeMain emits the stage entry point: the alias prologue, the stage's
// reordered statements, and the forwarding epilogue.
func (w *writer) writeMain() error {
	w.writeLine("void main() {")
	w.pushIndent()

	if err := w.writePrologue(); err != nil {
		return err
	}
	for _, idx := range w.plan.StageOrder(w.tier) {
		if err := w.stmt(w.plan.Records[idx].Stmt); err != nil {
			return err
		}
	}
	if err := w.writeEpilogue(); err != nil {
		return err
	}

	w.popIndent()
	w.writeLine("}")
	return nil
}

// writePrologue aliases incoming attributes, uniforms, and varyings to
// stage-local names, and zero-initializes locals materialized in this
// stage without a declaration statement.
func (w *writer) writePrologue() error {
	declared := map[ast.SymbolID]bool{}

	if w.tier == stage.Vertex {
		for _, sym := range w.io.Attributes {
			if _, used := w.use.Attrs[sym.ID]; !used {
				continue
			}
			base, err := baseTypeName(sym.Type)
			if err != nil {
				return err
			}
			w.writeLine("%s %s%s = %s;", base, w.table.StageLocal(w.tier, sym), arraySuffix(sym.Type), w.table.Ident(sym))
			declared[sym.ID] = true
		}
	}

	for _, sym := range w.sortedByIdent(w.use.UniformAlias) {
		base, err := baseTypeName(sym.Type)
		if err != nil {
			return err
		}
		w.writeLine("%s %s%s = %s;", base, w.table.StageLocal(w.tier, sym), arraySuffix(sym.Type), w.table.UniformName(sym))
		declared[sym.ID] = true
	}

	for _, v := range w.io.VaryingsInto(w.tier) {
		if _, used := w.use.Incoming[v.Sym.ID]; !used {
			continue
		}
		base, err := baseTypeName(v.Sym.Type)
		if err != nil {
			return err
		}
		name := w.table.VaryingName(v.Boundary, v.Sym)
		local := w.table.StageLocal(w.tier, v.Sym)
		switch {
		case v.Lowered:
			w.writeLine("%s %s = %s;", base, local, rehydrateBool(v.Sym.Type, name))
		default:
			w.writeLine("%s %s = %s;", base, local, name)
		}
		declared[v.Sym.ID] = true
	}

	// Stage-local instances with no incoming value start from zero.
	needZero := map[ast.SymbolID]*ast.Symbol{}
	for _, set := range []map[ast.SymbolID]*ast.Symbol{w.use.Reads, w.use.Writes} {
		for id, sym := range set {
			if declared[id] || w.declaredAt[w.tier][id] || sym.Builtin != ast.BuiltinNone {
				continue
			}
			needZero[id] = sym
		}
	}
	for _, sym := range w.sortedByIdent(needZero) {
		base, err := baseTypeName(sym.Type)
		if err != nil {
			return err
		}
		if zero := zeroValue(sym.Type); zero != "" {
			w.writeLine("%s %s%s = %s;", base, w.table.StageLocal(w.tier, sym), arraySuffix(sym.Type), zero)
		} else {
			w.writeLine("%s %s%s;", base, w.table.StageLocal(w.tier, sym), arraySuffix(sym.Type))
		}
	}
	return nil
}

// writeEpilogue forwards stage locals to the outgoing varyings, or stores
// the fragment outputs in the terminal stage.
func (w *writer) writeEpilogue() error {
	if w.tier == stage.Fragment {
		for _, sym := range w.io.Outputs {
			w.writeLine("%s = %s;", w.table.Ident(sym), w.table.StageLocal(w.tier, sym))
		}
		return nil
	}

	for _, v := range w.io.VaryingsOutOf(w.tier) {
		name := w.table.VaryingName(v.Boundary, v.Sym)
		var src string
		if v.Sym.Builtin == ast.BuiltinPosition {
			src = "gl_Position"
		} else {
			src = w.table.StageLocal(w.tier, v.Sym)
		}
		if v.Lowered {
			w.writeLine("%s = %s;", name, lowerBool(v.Sym.Type, src))
		} else {
			w.writeLine("%s = %s;", name, src)
		}
	}
	return nil
}

// rehydrateBool turns a transported int varying back into a bool value.
func rehydrateBool(t ast.Type, name string) string {
	if vec, ok := t.(ast.Vector); ok {
		return fmt.Sprintf("notEqual(%s, ivec%d(0))", name, vec.Size)
	}
	return fmt.Sprintf("%s != 0", name)
}

// lowerBool turns a bool value into its int wire form.
func lowerBool(t ast.Type, src string) string {
	if vec, ok := t.(ast.Vector); ok {
		return fmt.Sprintf("ivec%d(%s)", vec.Size, src)
	}
	return fmt.Sprintf("%s ? 1 : 0", src)
}

// zeroValue returns the zero-initializer of a type, or "" when the type
// has none (arrays and structs default-initialize).
func zeroValue(t ast.Type) string {
	switch t.(type) {
	case ast.Scalar, ast.Vector, ast.Matrix:
		name, err := baseTypeName(t)
		if err != nil {
			return ""
		}
		return name + "(0)"
	default:
		return ""
	}
}

// collectDecls gathers local variable declarations in a statement tree.
func collectDecls(stmts []ast.Stmt) []*ast.Symbol {
	var out []*ast.Symbol
	var walk func(s ast.Stmt)
	walk = func(s ast.Stmt) {
		switch st := s.(type) {
		case *ast.VarDecl:
			out = append(out, st.Sym)
		case *ast.ConstDecl:
			out = append(out, st.Sym)
		case *ast.StmtList:
			for _, sub := range st.Stmts {
				walk(sub)
			}
		case *ast.Block:
			for _, sub := range st.Stmts {
				walk(sub)
			}
		case *ast.IfStmt:
			for _, sub := range st.Then {
				walk(sub)
			}
			for _, sub := range st.Else {
				walk(sub)
			}
		case *ast.ForRange:
			for _, sub := range st.Body {
				walk(sub)
			}
		case *ast.ForItems:
			for _, sub := range st.Body {
				walk(sub)
			}
		case *ast.While:
			for _, sub := range st.Body {
				walk(sub)
			}
		}
	}
	for _, s := range stmts {
		walk(s)
	}
	return out
}

// Output helpers.

//nolint:goprintffuncname
func (w *writer) writeLine(format string, args ...any) {
	w.writeIndent()
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

func (w *writer) writeIndent() {
	for i := 0; i < w.indent; i++ {
		w.out.WriteString("    ")
	}
}

func (w *writer) pushIndent() {
	w.indent++
}

func (w *writer) popIndent() {
	if w.indent > 0 {
		w.indent--
	}
}
