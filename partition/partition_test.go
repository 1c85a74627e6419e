// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package partition

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/stage"
)

// scenario carries the shared fixture of the partitioner tests: a program
// with one uniform, one sampler, two attributes, and one fragment output.
type scenario struct {
	prog      *ast.Program
	myUniform *ast.Symbol
	myTex     *ast.Symbol
	position  *ast.Symbol
	texcoord  *ast.Symbol
	color     *ast.Symbol
}

func newScenario() *scenario {
	p := ast.NewProgram("scenario")
	return &scenario{
		prog:      p,
		myUniform: p.AddUniform("myUniform", ast.TypeFloat),
		myTex:     p.AddSampler("myTex", ast.Sampler2D),
		position:  p.AddAttribute("position", ast.TypeVec3),
		texcoord:  p.AddAttribute("texcoord", ast.TypeVec2),
		color:     p.AddOutput("color", ast.TypeVec4),
	}
}

// colorR returns result.color.r as an l-value or operand.
func (s *scenario) colorR() ast.Expr {
	return ast.Swizzle(ast.Field(ast.Ref(s.prog.Result), s.color), "r")
}

// sampleR returns texture(myTex, v.texcoord).r.
func (s *scenario) sampleR() ast.Expr {
	return ast.Swizzle(&ast.Call{
		Typ:    ast.TypeVec4,
		Callee: s.prog.BuiltinProc(ast.ProcTexture),
		Args:   []ast.Expr{ast.Ref(s.myTex), ast.Field(ast.Ref(s.prog.Input), s.texcoord)},
	}, "r")
}

func (s *scenario) interpolate(args ...ast.Expr) ast.Stmt {
	return &ast.ExprStmt{X: &ast.Call{
		Typ:    ast.Void{},
		Callee: s.prog.BuiltinProc(ast.ProcInterpolate),
		Args:   args,
	}}
}

func mustPartition(t *testing.T, prog *ast.Program) *Plan {
	t.Helper()
	plan, err := Partition(prog, Options{})
	if err != nil {
		t.Fatalf("Partition() error: %v", err)
	}
	return plan
}

func partitionErr(t *testing.T, prog *ast.Program) *Error {
	t.Helper()
	_, err := Partition(prog, Options{})
	if err == nil {
		t.Fatal("Partition() should fail")
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("Partition() error type %T, want *partition.Error", err)
	}
	return perr
}

// One accumulation per tier: the composed CONST+CPU value becomes a
// synthesized uniform and the VS value crosses to FS as a varying.
func TestPartition_EveryTier(t *testing.T) {
	s := newScenario()
	s.prog.Body = []ast.Stmt{
		&ast.Assign{LHS: s.colorR(), RHS: &ast.FloatLit{Typ: ast.TypeFloat, Value: 0}},
		&ast.Assign{Op: "+", LHS: s.colorR(), RHS: &ast.FloatLit{Typ: ast.TypeFloat, Value: 0.123456}},
		&ast.Assign{Op: "+", LHS: s.colorR(), RHS: ast.Ref(s.myUniform)},
		&ast.Assign{Op: "+", LHS: s.colorR(), RHS: ast.Swizzle(ast.Field(ast.Ref(s.prog.Input), s.position), "x")},
		&ast.Assign{Op: "+", LHS: s.colorR(), RHS: s.sampleR()},
	}

	plan := mustPartition(t, s.prog)

	wantTiers := []stage.Tier{stage.Const, stage.Const, stage.CPU, stage.Vertex, stage.Fragment}
	for i, want := range wantTiers {
		if got := plan.Records[i].Tier; got != want {
			t.Errorf("statement %d tier = %s, want %s", i, got, want)
		}
	}

	// The dependency chain pins source order.
	if !reflect.DeepEqual(plan.Order, []int{0, 1, 2, 3, 4}) {
		t.Errorf("order = %v, want source order", plan.Order)
	}

	if _, ok := plan.SynthUniforms[s.color.ID]; !ok {
		t.Error("the CONST+CPU composition of result.color must become a synthesized uniform")
	}

	demand := plan.BoundaryDemand[stage.Boundary{From: stage.Vertex, To: stage.Fragment}]
	if _, ok := demand[s.color.ID]; !ok {
		t.Error("result.color must cross VS to FS")
	}
	if _, ok := demand[s.texcoord.ID]; !ok {
		t.Error("texcoord must cross VS to FS")
	}

	if !reflect.DeepEqual(plan.CPUOrder(), []int{0, 1, 2}) {
		t.Errorf("CPU order = %v, want [0 1 2]", plan.CPUOrder())
	}
}

// No dependency between the statements, so the VS statement hoists
// above the FS statement.
func TestPartition_LegalReorder(t *testing.T) {
	s := newScenario()
	mvp := s.prog.AddUniform("mvp", ast.TypeMat4)
	s.prog.Body = []ast.Stmt{
		&ast.Assign{LHS: s.colorR(), RHS: s.sampleR()},
		&ast.Assign{LHS: ast.Ref(s.prog.Position), RHS: &ast.Infix{
			Typ: ast.TypeVec4, Op: "*",
			X: ast.Ref(mvp),
			Y: ast.Field(ast.Ref(s.prog.Input), s.position),
		}},
	}

	plan := mustPartition(t, s.prog)

	if got := plan.Records[0].Tier; got != stage.Fragment {
		t.Errorf("statement 0 tier = %s, want FS", got)
	}
	if got := plan.Records[1].Tier; got != stage.Vertex {
		t.Errorf("statement 1 tier = %s, want VS", got)
	}
	if !reflect.DeepEqual(plan.Order, []int{1, 0}) {
		t.Errorf("order = %v, want [1 0]", plan.Order)
	}
}

// result.color is written at FS then read at a VS-pinned write site.
func TestPartition_IllegalSplit(t *testing.T) {
	s := newScenario()
	s.prog.Body = []ast.Stmt{
		&ast.Assign{LHS: s.colorR(), RHS: s.sampleR()},
		&ast.Assign{LHS: ast.Ref(s.prog.Position), RHS: s.colorR()},
	}

	perr := partitionErr(t, s.prog)
	if perr.Kind != ErrStageSplitConflict {
		t.Errorf("error kind = %s, want %s", perr.Kind, ErrStageSplitConflict)
	}
}

// The whole-symbol interpolate annotation collapses the split conflict.
func TestPartition_InterpolateFixesSplit(t *testing.T) {
	s := newScenario()
	s.prog.Body = []ast.Stmt{
		&ast.Assign{LHS: s.colorR(), RHS: s.sampleR()},
		&ast.Assign{LHS: ast.Ref(s.prog.Position), RHS: s.colorR()},
		s.interpolate(ast.Field(ast.Ref(s.prog.Result), s.color)),
	}

	plan := mustPartition(t, s.prog)

	// The annotation is consumed; two statements remain.
	if len(plan.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(plan.Records))
	}
	if _, ok := plan.Interpolated[s.color.ID]; !ok {
		t.Error("interpolate request must be recorded")
	}
	demand := plan.BoundaryDemand[stage.Boundary{From: stage.Vertex, To: stage.Fragment}]
	if _, ok := demand[s.color.ID]; !ok {
		t.Error("interpolated symbol must cross VS to FS")
	}
	if got := plan.Records[1].Tier; got != stage.Vertex {
		t.Errorf("gl_Position statement tier = %s, want VS", got)
	}
}

// Interpolate of a component is rejected.
func TestPartition_BadInterpolate(t *testing.T) {
	s := newScenario()
	s.prog.Body = []ast.Stmt{
		&ast.Assign{LHS: s.colorR(), RHS: s.sampleR()},
		s.interpolate(s.colorR()),
	}

	perr := partitionErr(t, s.prog)
	if perr.Kind != ErrBadInterpolate {
		t.Errorf("error kind = %s, want %s", perr.Kind, ErrBadInterpolate)
	}
}

// A flat-interpolated boolean drives a fragment-stage branch.
func TestPartition_FlatBoolBranch(t *testing.T) {
	s := newScenario()
	tmp0 := s.prog.NewLocal("tmp0", ast.TypeBool)
	vec3ctor := func(x, y, z float64) ast.Expr {
		return &ast.Call{Typ: ast.TypeVec3, Callee: s.prog.BuiltinProc("vec3"), Args: []ast.Expr{
			&ast.FloatLit{Typ: ast.TypeFloat, Value: x},
			&ast.FloatLit{Typ: ast.TypeFloat, Value: y},
			&ast.FloatLit{Typ: ast.TypeFloat, Value: z},
		}}
	}
	s.prog.Body = []ast.Stmt{
		&ast.Assign{LHS: ast.Ref(s.prog.Position), RHS: &ast.Conv{
			Typ: ast.TypeVec4,
			Arg: ast.Field(ast.Ref(s.prog.Input), s.position),
		}},
		&ast.VarDecl{Sym: tmp0, Init: &ast.Infix{
			Typ: ast.TypeBool, Op: ">",
			X: ast.Swizzle(ast.Ref(s.prog.Position), "z"),
			Y: &ast.FloatLit{Typ: ast.TypeFloat, Value: 0.5},
		}},
		s.interpolate(ast.Ref(tmp0), ast.Ref(s.prog.BuiltinProc("flat"))),
		&ast.IfStmt{
			Cond: ast.Ref(tmp0),
			Then: []ast.Stmt{&ast.Assign{
				LHS: ast.Swizzle(ast.Field(ast.Ref(s.prog.Result), s.color), "rgb"),
				RHS: vec3ctor(1, 0, 0),
			}},
			Else: []ast.Stmt{&ast.Assign{
				LHS: ast.Swizzle(ast.Field(ast.Ref(s.prog.Result), s.color), "rgb"),
				RHS: vec3ctor(0, 1, 0),
			}},
		},
	}

	plan := mustPartition(t, s.prog)

	if got := plan.Records[1].Tier; got != stage.Vertex {
		t.Errorf("tmp0 declaration tier = %s, want VS", got)
	}
	if got := plan.Records[2].Tier; got != stage.Fragment {
		t.Errorf("branch tier = %s, want FS", got)
	}
	req, ok := plan.Interpolated[tmp0.ID]
	if !ok {
		t.Fatal("interpolate request must be recorded")
	}
	if req.Qualifier != InterpFlat {
		t.Errorf("qualifier = %s, want flat", req.Qualifier)
	}
	demand := plan.BoundaryDemand[stage.Boundary{From: stage.Vertex, To: stage.Fragment}]
	if _, ok := demand[tmp0.ID]; !ok {
		t.Error("tmp0 must cross VS to FS")
	}
}

func TestPartition_UnknownIdentifier(t *testing.T) {
	s := newScenario()
	ghost := s.prog.NewLocal("ghost", ast.TypeFloat)
	s.prog.Body = []ast.Stmt{
		&ast.Assign{LHS: s.colorR(), RHS: ast.Ref(ghost)},
	}

	perr := partitionErr(t, s.prog)
	if perr.Kind != ErrUnknownIdentifier {
		t.Errorf("error kind = %s, want %s", perr.Kind, ErrUnknownIdentifier)
	}
}

func TestPartition_UnsupportedVectorComparison(t *testing.T) {
	s := newScenario()
	tmp := s.prog.NewLocal("tmp", ast.TypeBool)
	s.prog.Body = []ast.Stmt{
		&ast.Assign{LHS: ast.Ref(s.prog.Position), RHS: ast.Field(ast.Ref(s.prog.Input), s.position)},
		&ast.VarDecl{Sym: tmp, Init: &ast.Infix{
			Typ: ast.TypeBool, Op: ">",
			X: ast.Ref(s.prog.Position),
			Y: &ast.FloatLit{Typ: ast.TypeFloat, Value: 0.5},
		}},
	}

	perr := partitionErr(t, s.prog)
	if perr.Kind != ErrUnsupportedConstruct {
		t.Errorf("error kind = %s, want %s", perr.Kind, ErrUnsupportedConstruct)
	}
}

func TestPartition_RewriteAfterForward(t *testing.T) {
	s := newScenario()
	x := s.prog.NewLocal("x", ast.TypeFloat)
	s.prog.Body = []ast.Stmt{
		&ast.VarDecl{Sym: x, Init: &ast.FloatLit{Typ: ast.TypeFloat, Value: 1}},
		&ast.Assign{LHS: s.colorR(), RHS: ast.Ref(x)},
		&ast.Assign{LHS: ast.Ref(x), RHS: s.sampleR()},
		&ast.Assign{LHS: ast.Ref(s.prog.Position), RHS: &ast.Conv{Typ: ast.TypeVec4, Arg: ast.Ref(x)}},
	}

	// Statement 1 consumes x at CONST, statement 2 rewrites it at FS, and
	// statement 3 reads the FS value at a VS-pinned site.
	perr := partitionErr(t, s.prog)
	if perr.Kind != ErrStageSplitConflict {
		t.Errorf("error kind = %s, want %s", perr.Kind, ErrStageSplitConflict)
	}
}

func TestPartition_VertexTextureFetch(t *testing.T) {
	s := newScenario()
	s.prog.Body = []ast.Stmt{
		&ast.Assign{LHS: s.colorR(), RHS: s.sampleR()},
	}

	plan, err := Partition(s.prog, Options{
		VertexTextureFetch: map[ast.SymbolID]bool{s.myTex.ID: true},
	})
	if err != nil {
		t.Fatalf("Partition() error: %v", err)
	}
	if got := plan.Records[0].Tier; got != stage.Vertex {
		t.Errorf("sampling tier = %s, want VS with vertex texture fetch", got)
	}
}

func TestPartition_DeadWriteWarns(t *testing.T) {
	s := newScenario()
	unused := s.prog.NewLocal("unused", ast.TypeFloat)
	s.prog.Body = []ast.Stmt{
		&ast.VarDecl{Sym: unused, Init: &ast.FloatLit{Typ: ast.TypeFloat, Value: 1}},
		&ast.Assign{LHS: s.colorR(), RHS: s.sampleR()},
	}

	plan := mustPartition(t, s.prog)
	found := false
	for _, warn := range plan.Warnings {
		if warn.Kind == WarnDeadCode {
			found = true
		}
	}
	if !found {
		t.Error("dead local write must produce a DeadCode warning")
	}
}

// Round-trip law: the per-tier execution orders concatenate to exactly the
// source statements, each exactly once.
func TestPartition_RoundTrip(t *testing.T) {
	s := newScenario()
	mvp := s.prog.AddUniform("mvp", ast.TypeMat4)
	s.prog.Body = []ast.Stmt{
		&ast.Assign{LHS: s.colorR(), RHS: s.sampleR()},
		&ast.Assign{LHS: ast.Ref(s.prog.Position), RHS: &ast.Infix{
			Typ: ast.TypeVec4, Op: "*",
			X: ast.Ref(mvp),
			Y: ast.Field(ast.Ref(s.prog.Input), s.position),
		}},
		&ast.Assign{Op: "+", LHS: s.colorR(), RHS: ast.Ref(s.myUniform)},
	}

	plan := mustPartition(t, s.prog)

	if len(plan.Records) != len(s.prog.Body) {
		t.Fatalf("got %d records for %d statements", len(plan.Records), len(s.prog.Body))
	}
	got := append([]int(nil), plan.Order...)
	sort.Ints(got)
	if !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("order %v is not a permutation of the statements", plan.Order)
	}

	var rebuilt []int
	for _, tier := range []stage.Tier{stage.Const, stage.CPU, stage.Vertex, stage.TessEval, stage.Geometry, stage.Fragment} {
		rebuilt = append(rebuilt, plan.StageOrder(tier)...)
	}
	if !reflect.DeepEqual(rebuilt, plan.Order) {
		t.Errorf("per-tier orders %v do not concatenate to %v", rebuilt, plan.Order)
	}
}
