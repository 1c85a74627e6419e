// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ast

// Pos is a source location. The zero value means "unknown".
type Pos struct {
	Line   int
	Column int
}

// IsValid reports whether the position carries real location information.
func (p Pos) IsValid() bool { return p.Line > 0 }

// Node is the common interface of all syntax-tree nodes.
type Node interface {
	Pos() Pos
}

// Expr is a value-producing node. Every expression carries its attached
// canonical type.
type Expr interface {
	Node
	Type() Type
	exprNode()
}

// Stmt is a side-effecting node.
type Stmt interface {
	Node
	stmtNode()
}

// ---------------------------------------------------------------------------
// Expressions

// IntLit is an integer literal.
type IntLit struct {
	P     Pos
	Typ   Type
	Value int64
}

func (e *IntLit) Pos() Pos   { return e.P }
func (e *IntLit) Type() Type { return e.Typ }
func (*IntLit) exprNode()    {}

// FloatLit is a floating-point literal. Text, when set, preserves the source
// spelling so the emitter can keep the source precision.
type FloatLit struct {
	P     Pos
	Typ   Type
	Value float64
	Text  string
}

func (e *FloatLit) Pos() Pos   { return e.P }
func (e *FloatLit) Type() Type { return e.Typ }
func (*FloatLit) exprNode()    {}

// BoolLit is a boolean literal.
type BoolLit struct {
	P     Pos
	Typ   Type
	Value bool
}

func (e *BoolLit) Pos() Pos   { return e.P }
func (e *BoolLit) Type() Type { return e.Typ }
func (*BoolLit) exprNode()    {}

// Ident is a reference to a resolved symbol.
type Ident struct {
	P   Pos
	Sym *Symbol
}

func (e *Ident) Pos() Pos { return e.P }

// Type returns the referenced symbol's type. A nil symbol is an unresolved
// identifier and is rejected by the partitioner.
func (e *Ident) Type() Type {
	if e.Sym == nil {
		return Opaque{Name: "unresolved"}
	}
	return e.Sym.Type
}
func (*Ident) exprNode() {}

// Dot is member access. For record fields Sym carries the resolved field
// symbol; for vector component selection (swizzles) Sym is nil and Name is
// the selector.
type Dot struct {
	P    Pos
	Typ  Type
	Base Expr
	Name string
	Sym  *Symbol
}

func (e *Dot) Pos() Pos   { return e.P }
func (e *Dot) Type() Type { return e.Typ }
func (*Dot) exprNode()    {}

// IsSwizzle reports whether the access selects vector components rather
// than a record field.
func (e *Dot) IsSwizzle() bool { return e.Sym == nil }

// Index is bracket indexing a[i].
type Index struct {
	P     Pos
	Typ   Type
	Base  Expr
	Index Expr
}

func (e *Index) Pos() Pos   { return e.P }
func (e *Index) Type() Type { return e.Typ }
func (*Index) exprNode()    {}

// Call is a call to a resolved procedure or builtin. Builtin callees carry a
// proc-kind symbol with no definition in the program (texture, modulo, the
// GLSL constructor names, interpolate).
type Call struct {
	P      Pos
	Typ    Type
	Callee *Symbol
	Args   []Expr
}

func (e *Call) Pos() Pos   { return e.P }
func (e *Call) Type() Type { return e.Typ }
func (*Call) exprNode()    {}

// Conv is a conversion whose callee is a recognized GLSL constructor name,
// lowered to T(arg).
type Conv struct {
	P   Pos
	Typ Type
	Arg Expr
}

func (e *Conv) Pos() Pos   { return e.P }
func (e *Conv) Type() Type { return e.Typ }
func (*Conv) exprNode()    {}

// Prefix is a prefix operator application. Op uses the host spelling
// ("not", "-").
type Prefix struct {
	P   Pos
	Typ Type
	Op  string
	X   Expr
}

func (e *Prefix) Pos() Pos   { return e.P }
func (e *Prefix) Type() Type { return e.Typ }
func (*Prefix) exprNode()    {}

// Infix is an infix operator application. Op uses the host spelling
// ("+", "and", "mod", "shl", "<", ...).
type Infix struct {
	P   Pos
	Typ Type
	Op  string
	X   Expr
	Y   Expr
}

func (e *Infix) Pos() Pos   { return e.P }
func (e *Infix) Type() Type { return e.Typ }
func (*Infix) exprNode()    {}

// IfExpr is a conditional expression, lowered to a ternary chain.
type IfExpr struct {
	P    Pos
	Typ  Type
	Cond Expr
	Then Expr
	Else Expr
}

func (e *IfExpr) Pos() Pos   { return e.P }
func (e *IfExpr) Type() Type { return e.Typ }
func (*IfExpr) exprNode()    {}

// StmtListExpr is a statement-list expression: the statements run in order
// and Value produces the result.
type StmtListExpr struct {
	P     Pos
	Typ   Type
	Stmts []Stmt
	Value Expr
}

func (e *StmtListExpr) Pos() Pos   { return e.P }
func (e *StmtListExpr) Type() Type { return e.Typ }
func (*StmtListExpr) exprNode()    {}

// ---------------------------------------------------------------------------
// Statements

// Assign assigns RHS to LHS. Op is "" for plain assignment or the compound
// operator spelling ("+" for inc / +=).
type Assign struct {
	P   Pos
	Op  string
	LHS Expr
	RHS Expr
}

func (s *Assign) Pos() Pos { return s.P }
func (*Assign) stmtNode()  {}

// VarDecl declares a local variable, optionally initialized. Without an
// initializer the variable is zero-initialized at emission.
type VarDecl struct {
	P    Pos
	Sym  *Symbol
	Init Expr
}

func (s *VarDecl) Pos() Pos { return s.P }
func (*VarDecl) stmtNode()  {}

// ConstDecl declares a module-scope or local constant.
type ConstDecl struct {
	P     Pos
	Sym   *Symbol
	Value Expr
}

func (s *ConstDecl) Pos() Pos { return s.P }
func (*ConstDecl) stmtNode()  {}

// StmtList is a sequence of statements.
type StmtList struct {
	P     Pos
	Stmts []Stmt
}

func (s *StmtList) Pos() Pos { return s.P }
func (*StmtList) stmtNode()  {}

// Block is a scoped statement list.
type Block struct {
	P     Pos
	Stmts []Stmt
}

func (s *Block) Pos() Pos { return s.P }
func (*Block) stmtNode()  {}

// IfStmt is a conditional statement. An else-if chain is an Else holding a
// single nested IfStmt.
type IfStmt struct {
	P    Pos
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (s *IfStmt) Pos() Pos { return s.P }
func (*IfStmt) stmtNode()  {}

// ForRange is iteration over the half-open range lo..<hi.
type ForRange struct {
	P    Pos
	Var  *Symbol
	Lo   Expr
	Hi   Expr
	Body []Stmt
}

func (s *ForRange) Pos() Pos { return s.P }
func (*ForRange) stmtNode()  {}

// ForItems is iteration over the items of a fixed-size array.
type ForItems struct {
	P    Pos
	Var  *Symbol
	Seq  Expr
	Body []Stmt
}

func (s *ForItems) Pos() Pos { return s.P }
func (*ForItems) stmtNode()  {}

// While is a condition-guarded loop.
type While struct {
	P    Pos
	Cond Expr
	Body []Stmt
}

func (s *While) Pos() Pos { return s.P }
func (*While) stmtNode()  {}

// Return returns from the enclosing procedure, optionally with a value.
type Return struct {
	P     Pos
	Value Expr
}

func (s *Return) Pos() Pos { return s.P }
func (*Return) stmtNode()  {}

// ExprStmt evaluates an expression for its effect. The interpolate
// annotation appears as an ExprStmt whose call names the interpolate
// builtin.
type ExprStmt struct {
	P Pos
	X Expr
}

func (s *ExprStmt) Pos() Pos { return s.P }
func (*ExprStmt) stmtNode()  {}

// ProcDef defines a user procedure invoked from shader bodies.
type ProcDef struct {
	P      Pos
	Sym    *Symbol
	Params []*Symbol
	Result Type
	Body   []Stmt
}

func (s *ProcDef) Pos() Pos { return s.P }
func (*ProcDef) stmtNode()  {}
