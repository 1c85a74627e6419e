// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"
	"strings"

	"github.com/gogpu/stagesplit/ast"
)

// expr writes an expression and returns its GLSL representation.
func (w *writer) expr(e ast.Expr) (string, error) {
	switch ex := e.(type) {
	case *ast.IntLit:
		return fmt.Sprintf("%d", ex.Value), nil

	case *ast.FloatLit:
		if ex.Text != "" {
			return ensureDecimal(ex.Text), nil
		}
		return formatFloat(ex.Value), nil

	case *ast.BoolLit:
		if ex.Value {
			return "true", nil
		}
		return "false", nil

	case *ast.Ident:
		if ex.Sym == nil {
			return "", fmt.Errorf("unresolved identifier")
		}
		return w.symbolRef(ex.Sym), nil

	case *ast.Dot:
		return w.dot(ex)

	case *ast.Index:
		base, err := w.expr(ex.Base)
		if err != nil {
			return "", err
		}
		index, err := w.expr(ex.Index)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s[%s]", base, index), nil

	case *ast.Call:
		return w.call(ex)

	case *ast.Conv:
		name, err := baseTypeName(ex.Typ)
		if err != nil {
			return "", err
		}
		arg, err := w.expr(ex.Arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s(%s)", name, arg), nil

	case *ast.Prefix:
		operand, err := w.expr(ex.X)
		if err != nil {
			return "", err
		}
		op := ex.Op
		if op == "not" {
			op = "!"
		}
		if needsParens(ex.X) {
			return fmt.Sprintf("%s(%s)", op, operand), nil
		}
		return op + operand, nil

	case *ast.Infix:
		left, err := w.expr(ex.X)
		if err != nil {
			return "", err
		}
		right, err := w.expr(ex.Y)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", left, infixSpelling(ex.Op, ex.Typ), right), nil

	case *ast.IfExpr:
		cond, err := w.expr(ex.Cond)
		if err != nil {
			return "", err
		}
		then, err := w.expr(ex.Then)
		if err != nil {
			return "", err
		}
		els, err := w.expr(ex.Else)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s ? %s : %s)", cond, then, els), nil

	case *ast.StmtListExpr:
		// The statements hoist above the line under construction.
		for _, sub := range ex.Stmts {
			if err := w.stmt(sub); err != nil {
				return "", err
			}
		}
		return w.expr(ex.Value)

	default:
		return "", fmt.Errorf("unsupported expression kind: %T", e)
	}
}

// lvalue writes a store target.
func (w *writer) lvalue(e ast.Expr) (string, error) {
	return w.expr(e)
}

// symbolRef spells a symbol reference in the current context.
func (w *writer) symbolRef(sym *ast.Symbol) string {
	switch {
	case sym.Builtin == ast.BuiltinPosition:
		return "gl_Position"
	case sym.Builtin == ast.BuiltinFragCoord:
		return "gl_FragCoord"
	case sym.Builtin == ast.BuiltinFragDepth:
		return "gl_FragDepth"
	case sym.Kind == ast.SymbolModuleConst,
		sym.Kind == ast.SymbolProc,
		sym.Kind == ast.SymbolGlobal:
		return w.table.Ident(sym)
	case w.inProc:
		return w.table.Ident(sym)
	default:
		return w.table.StageLocal(w.tier, sym)
	}
}

// dot writes member access: record fields of the pipeline input and result
// collapse to their stage-local spelling, swizzles and user record fields
// stay postfix.
func (w *writer) dot(ex *ast.Dot) (string, error) {
	if ex.Sym != nil {
		if ex.Sym.IsAttribute() || ex.Sym.IsResultField() {
			return w.symbolRef(ex.Sym), nil
		}
		base, err := w.expr(ex.Base)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s.%s", base, escapeKeyword(stripName(ex.Name))), nil
	}
	base, err := w.expr(ex.Base)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", base, ex.Name), nil
}

// call writes a procedure call, mapping recognized builtin names to their
// GLSL spellings.
func (w *writer) call(ex *ast.Call) (string, error) {
	if ex.Callee == nil {
		return "", fmt.Errorf("call without a resolved callee")
	}

	args := make([]string, 0, len(ex.Args))
	for _, arg := range ex.Args {
		text, err := w.expr(arg)
		if err != nil {
			return "", err
		}
		args = append(args, text)
	}

	name := ex.Callee.Name
	switch {
	case name == ast.ProcModulo:
		name = "mod"
	case name == ast.ProcTexture:
		name = "texture"
	case isConstructor(name):
		// Constructor spellings pass through unescaped.
	case w.prog.ProcByID(ex.Callee.ID) != nil:
		name = w.table.Ident(ex.Callee)
	default:
		// Builtin function names (dot, max, mix, ...) pass through.
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", ")), nil
}

// infixSpelling maps a host operator to GLSL, deciding and/or by the
// operator's result type.
func infixSpelling(op string, result ast.Type) string {
	switch op {
	case "and":
		if isBoolType(result) {
			return "&&"
		}
		return "&"
	case "or":
		if isBoolType(result) {
			return "||"
		}
		return "|"
	case "mod":
		return "%"
	case "shl":
		return "<<"
	case "shr":
		return ">>"
	default:
		return op
	}
}

func isBoolType(t ast.Type) bool {
	kind, ok := ast.ScalarOrVectorKind(t)
	return ok && kind == ast.ScalarBool
}

// needsParens reports whether a prefix operand needs wrapping.
func needsParens(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Infix, *ast.IfExpr:
		return true
	default:
		return false
	}
}

// formatFloat formats a float for GLSL output with at least one decimal
// digit.
func formatFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return ensureDecimal(s)
}

// ensureDecimal appends a decimal digit to float spellings that carry
// neither a point nor an exponent.
func ensureDecimal(s string) string {
	if !strings.ContainsAny(s, ".eE") {
		return s + ".0"
	}
	return s
}
