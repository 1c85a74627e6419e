// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package partition

import (
	"reflect"
	"testing"

	"github.com/gogpu/stagesplit/ast"
	"github.com/gogpu/stagesplit/stage"
)

// testRecord builds a solved statement record directly.
func testRecord(index int, tier stage.Tier, reads map[*ast.Symbol]stage.Tier, writes ...*ast.Symbol) *StatementRecord {
	rec := newRecord(index, &ast.StmtList{})
	rec.Index = index
	rec.Tier = tier
	for sym, inst := range reads {
		rec.Reads[sym.ID] = sym
		rec.ReadInstances[sym.ID] = inst
	}
	for _, sym := range writes {
		rec.Writes[sym.ID] = sym
	}
	return rec
}

func TestBuildGraph_FlowEdge(t *testing.T) {
	p := ast.NewProgram("test")
	x := p.NewLocal("x", ast.TypeFloat)

	recs := []*StatementRecord{
		testRecord(0, stage.Vertex, nil, x),
		testRecord(1, stage.Fragment, map[*ast.Symbol]stage.Tier{x: stage.Vertex}),
	}
	g := BuildGraph(recs)
	if !reflect.DeepEqual(g.Edges()[0], []int{1}) {
		t.Errorf("edges from 0 = %v, want [1]", g.Edges()[0])
	}
}

func TestBuildGraph_NoEdgeAcrossInstances(t *testing.T) {
	p := ast.NewProgram("test")
	x := p.NewLocal("x", ast.TypeFloat)

	// Statement 0 writes the FS instance; statement 1 reads the VS
	// instance. Different instances, no dependency.
	recs := []*StatementRecord{
		testRecord(0, stage.Fragment, nil, x),
		testRecord(1, stage.Vertex, map[*ast.Symbol]stage.Tier{x: stage.Vertex}),
	}
	g := BuildGraph(recs)
	if len(g.Edges()[0]) != 0 {
		t.Errorf("edges from 0 = %v, want none", g.Edges()[0])
	}

	order, err := g.Reorder()
	if err != nil {
		t.Fatalf("Reorder() error: %v", err)
	}
	if !reflect.DeepEqual(order, []int{1, 0}) {
		t.Errorf("order = %v, want [1 0]", order)
	}
}

func TestReorder_GroupsByTier(t *testing.T) {
	p := ast.NewProgram("test")
	a := p.NewLocal("a", ast.TypeFloat)
	b := p.NewLocal("b", ast.TypeFloat)

	recs := []*StatementRecord{
		testRecord(0, stage.Fragment, nil, a),
		testRecord(1, stage.Vertex, nil, b),
		testRecord(2, stage.Fragment, map[*ast.Symbol]stage.Tier{a: stage.Fragment}),
		testRecord(3, stage.CPU, nil),
	}
	order, err := BuildGraph(recs).Reorder()
	if err != nil {
		t.Fatalf("Reorder() error: %v", err)
	}
	if !reflect.DeepEqual(order, []int{3, 1, 0, 2}) {
		t.Errorf("order = %v, want [3 1 0 2]", order)
	}
}

func TestReorder_StageOrderConflict(t *testing.T) {
	p := ast.NewProgram("test")
	x := p.NewLocal("x", ast.TypeFloat)

	// Statement 0 reads the CPU instance at FS; statement 1 rewrites that
	// same instance. The reader must stay before the writer, but the
	// writer's tier is lower: no tier-grouped order exists.
	recs := []*StatementRecord{
		testRecord(0, stage.Fragment, map[*ast.Symbol]stage.Tier{x: stage.CPU}),
		testRecord(1, stage.CPU, nil, x),
	}
	_, err := BuildGraph(recs).Reorder()
	if err == nil {
		t.Fatal("Reorder() should fail")
	}
	if err.Kind != ErrStageOrderConflict {
		t.Errorf("error kind = %s, want %s", err.Kind, ErrStageOrderConflict)
	}
}

func TestReorder_TieBreakBySourceIndex(t *testing.T) {
	p := ast.NewProgram("test")
	_ = p

	recs := []*StatementRecord{
		testRecord(0, stage.Vertex, nil),
		testRecord(1, stage.Vertex, nil),
		testRecord(2, stage.Vertex, nil),
	}
	order, err := BuildGraph(recs).Reorder()
	if err != nil {
		t.Fatalf("Reorder() error: %v", err)
	}
	if !reflect.DeepEqual(order, []int{0, 1, 2}) {
		t.Errorf("order = %v, want source order for equal tiers", order)
	}
}
