// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package partition

import (
	"container/heap"

	"github.com/gogpu/stagesplit/ast"
)

// DependencyGraph is the def-use graph over the top-level statement list.
// Nodes are statement indices; edges always point forward in source order,
// so the graph is a DAG by construction.
//
// Edges are instance-aware: a read observing the tier-A instance of a
// symbol does not depend on a write that produced a different stage
// instance of the same symbol.
type DependencyGraph struct {
	recs []*StatementRecord
	adj  [][]int
}

// BuildGraph builds flow, anti, and output dependency edges between
// statement records. The records must already carry solved tiers and read
// instances.
func BuildGraph(recs []*StatementRecord) *DependencyGraph {
	g := &DependencyGraph{
		recs: recs,
		adj:  make([][]int, len(recs)),
	}
	for i := 0; i < len(recs); i++ {
		for j := i + 1; j < len(recs); j++ {
			if g.depends(recs[i], recs[j]) {
				g.adj[i] = append(g.adj[i], j)
			}
		}
	}
	return g
}

// depends reports whether statement b must stay after statement a.
func (g *DependencyGraph) depends(a, b *StatementRecord) bool {
	// Flow: a writes the instance that b reads.
	for id := range a.Writes {
		if inst, ok := b.ReadInstances[id]; ok && inst == a.Tier {
			return true
		}
	}
	// Anti: a reads the instance that b overwrites.
	for id := range b.Writes {
		if inst, ok := a.ReadInstances[id]; ok && inst == b.Tier {
			return true
		}
	}
	// Output: both write the same instance.
	for id := range a.Writes {
		if _, ok := b.Writes[id]; ok && a.Tier == b.Tier {
			return true
		}
	}
	return false
}

// Edges returns the adjacency list by statement index.
func (g *DependencyGraph) Edges() [][]int { return g.adj }

// readyHeap orders ready statements by (tier, source index).
type readyHeap []*StatementRecord

func (h readyHeap) Len() int { return len(h) }
func (h readyHeap) Less(i, j int) bool {
	if h[i].Tier != h[j].Tier {
		return h[i].Tier < h[j].Tier
	}
	return h[i].Index < h[j].Index
}
func (h readyHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *readyHeap) Push(x any)        { *h = append(*h, x.(*StatementRecord)) }
func (h *readyHeap) Pop() any {
	old := *h
	n := len(old)
	rec := old[n-1]
	*h = old[:n-1]
	return rec
}

// Reorder produces a total order over the statements that respects every
// dependency edge and groups statements of the same tier into contiguous
// runs in increasing tier order. Ties are broken by source index.
//
// The grouping exists iff no dependency points from a higher tier to a
// lower one; such an edge yields a stage-order conflict.
func (g *DependencyGraph) Reorder() ([]int, *Error) {
	for i, targets := range g.adj {
		for _, j := range targets {
			if g.recs[i].Tier > g.recs[j].Tier {
				return nil, errorf(ErrStageOrderConflict, g.recs[j].Pos,
					"statement %d (%s) depends on statement %d (%s); no stage-grouped order exists",
					j, g.recs[j].Tier, i, g.recs[i].Tier)
			}
		}
	}

	indeg := make([]int, len(g.recs))
	for _, targets := range g.adj {
		for _, j := range targets {
			indeg[j]++
		}
	}

	ready := &readyHeap{}
	for i, rec := range g.recs {
		if indeg[i] == 0 {
			heap.Push(ready, rec)
		}
	}

	order := make([]int, 0, len(g.recs))
	for ready.Len() > 0 {
		rec := heap.Pop(ready).(*StatementRecord)
		order = append(order, rec.Index)
		for _, j := range g.adj[rec.Index] {
			indeg[j]--
			if indeg[j] == 0 {
				heap.Push(ready, g.recs[j])
			}
		}
	}

	if len(order) != len(g.recs) {
		// Unreachable: edges only point forward in source order.
		return nil, errorf(ErrInternalInvariant, ast.Pos{}, "dependency graph contains a cycle over %d statements", len(g.recs))
	}
	return order, nil
}
