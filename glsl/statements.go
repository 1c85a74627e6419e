// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/stagesplit/ast"
)

// stmt writes a single statement.
func (w *writer) stmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.Assign:
		rhs, err := w.expr(st.RHS)
		if err != nil {
			return err
		}
		lhs, err := w.lvalue(st.LHS)
		if err != nil {
			return err
		}
		if st.Op != "" {
			w.writeLine("%s %s= %s;", lhs, infixSpelling(st.Op, st.RHS.Type()), rhs)
		} else {
			w.writeLine("%s = %s;", lhs, rhs)
		}
		return nil

	case *ast.VarDecl:
		return w.varDecl(st)

	case *ast.ConstDecl:
		value, err := w.expr(st.Value)
		if err != nil {
			return err
		}
		base, err := baseTypeName(st.Sym.Type)
		if err != nil {
			return err
		}
		w.writeLine("const %s %s%s = %s;", base, w.localName(st.Sym), arraySuffix(st.Sym.Type), value)
		return nil

	case *ast.StmtList:
		for _, sub := range st.Stmts {
			if err := w.stmt(sub); err != nil {
				return err
			}
		}
		return nil

	case *ast.Block:
		w.writeLine("{")
		w.pushIndent()
		for _, sub := range st.Stmts {
			if err := w.stmt(sub); err != nil {
				return err
			}
		}
		w.popIndent()
		w.writeLine("}")
		return nil

	case *ast.IfStmt:
		return w.ifStmt(st, false)

	case *ast.ForRange:
		lo, err := w.expr(st.Lo)
		if err != nil {
			return err
		}
		hi, err := w.expr(st.Hi)
		if err != nil {
			return err
		}
		name := w.table.Ident(st.Var)
		w.writeLine("for (int %s = %s; %s < %s; ++%s) {", name, lo, name, hi, name)
		w.pushIndent()
		for _, sub := range st.Body {
			if err := w.stmt(sub); err != nil {
				return err
			}
		}
		w.popIndent()
		w.writeLine("}")
		return nil

	case *ast.ForItems:
		return w.forItems(st)

	case *ast.While:
		cond, err := w.expr(st.Cond)
		if err != nil {
			return err
		}
		w.writeLine("while (%s) {", cond)
		w.pushIndent()
		for _, sub := range st.Body {
			if err := w.stmt(sub); err != nil {
				return err
			}
		}
		w.popIndent()
		w.writeLine("}")
		return nil

	case *ast.Return:
		if st.Value == nil {
			w.writeLine("return;")
			return nil
		}
		value, err := w.expr(st.Value)
		if err != nil {
			return err
		}
		w.writeLine("return %s;", value)
		return nil

	case *ast.ExprStmt:
		text, err := w.expr(st.X)
		if err != nil {
			return err
		}
		w.writeLine("%s;", text)
		return nil

	default:
		return fmt.Errorf("unsupported statement kind: %T", s)
	}
}

// varDecl writes a local declaration; without an initializer the variable
// is zero-initialized.
func (w *writer) varDecl(st *ast.VarDecl) error {
	base, err := baseTypeName(st.Sym.Type)
	if err != nil {
		return err
	}
	name := w.localName(st.Sym)

	if st.Init != nil {
		init, err := w.expr(st.Init)
		if err != nil {
			return err
		}
		w.writeLine("%s %s%s = %s;", base, name, arraySuffix(st.Sym.Type), init)
		return nil
	}
	if zero := zeroValue(st.Sym.Type); zero != "" {
		w.writeLine("%s %s%s = %s;", base, name, arraySuffix(st.Sym.Type), zero)
		return nil
	}
	w.writeLine("%s %s%s;", base, name, arraySuffix(st.Sym.Type))
	return nil
}

// ifStmt writes an if statement, chaining else-if branches.
func (w *writer) ifStmt(st *ast.IfStmt, chained bool) error {
	cond, err := w.expr(st.Cond)
	if err != nil {
		return err
	}
	if chained {
		w.writeLine("} else if (%s) {", cond)
	} else {
		w.writeLine("if (%s) {", cond)
	}
	w.pushIndent()
	for _, sub := range st.Then {
		if err := w.stmt(sub); err != nil {
			return err
		}
	}
	w.popIndent()

	if len(st.Else) == 1 {
		if nested, ok := st.Else[0].(*ast.IfStmt); ok {
			return w.ifStmt(nested, true)
		}
	}
	if len(st.Else) > 0 {
		w.writeLine("} else {")
		w.pushIndent()
		for _, sub := range st.Else {
			if err := w.stmt(sub); err != nil {
				return err
			}
		}
		w.popIndent()
	}
	w.writeLine("}")
	return nil
}

// forItems writes iteration over a fixed-size array as an index loop with
// a per-iteration element binding.
func (w *writer) forItems(st *ast.ForItems) error {
	arr, ok := st.Seq.Type().(ast.Array)
	if !ok {
		return fmt.Errorf("items iteration over non-array type %s", st.Seq.Type())
	}
	seq, err := w.expr(st.Seq)
	if err != nil {
		return err
	}
	base, err := baseTypeName(arr.Elem)
	if err != nil {
		return err
	}

	w.writeLine("for (int _i = 0; _i < %d; ++_i) {", arr.Len)
	w.pushIndent()
	w.writeLine("%s %s%s = %s[_i];", base, w.table.Ident(st.Var), arraySuffix(arr.Elem), seq)
	for _, sub := range st.Body {
		if err := w.stmt(sub); err != nil {
			return err
		}
	}
	w.popIndent()
	w.writeLine("}")
	return nil
}

// localName spells a body-local symbol: stage-local in the pipeline body,
// plain inside procedures.
func (w *writer) localName(sym *ast.Symbol) string {
	if w.inProc {
		return w.table.Ident(sym)
	}
	return w.table.StageLocal(w.tier, sym)
}
