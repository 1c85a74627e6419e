// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package stage

import (
	"reflect"
	"testing"
)

func TestTier_String(t *testing.T) {
	tests := []struct {
		tier Tier
		want string
	}{
		{Const, "CONST"},
		{CPU, "CPU"},
		{Vertex, "VS"},
		{TessEval, "TS"},
		{Geometry, "GS"},
		{Fragment, "FS"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.tier.String(); got != tt.want {
				t.Errorf("Tier.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTier_Order(t *testing.T) {
	if !(Const < CPU && CPU < Vertex && Vertex < TessEval && TessEval < Geometry && Geometry < Fragment) {
		t.Fatal("tier order must be CONST < CPU < VS < TS < GS < FS")
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		a, b, want Tier
	}{
		{Const, Const, Const},
		{Const, CPU, CPU},
		{Vertex, CPU, Vertex},
		{Vertex, Fragment, Fragment},
		{Fragment, Const, Fragment},
	}
	for _, tt := range tests {
		if got := Join(tt.a, tt.b); got != tt.want {
			t.Errorf("Join(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSet_Order(t *testing.T) {
	tests := []struct {
		name    string
		set     Set
		wantGPU []Tier
	}{
		{"plain", NewSet(false, false), []Tier{Vertex, Fragment}},
		{"geometry", NewSet(false, true), []Tier{Vertex, Geometry, Fragment}},
		{"tessellation", NewSet(true, false), []Tier{Vertex, TessEval, Fragment}},
		{"full", NewSet(true, true), []Tier{Vertex, TessEval, Geometry, Fragment}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.GPUOrder(); !reflect.DeepEqual(got, tt.wantGPU) {
				t.Errorf("GPUOrder() = %v, want %v", got, tt.wantGPU)
			}
		})
	}
}

func TestSet_Next(t *testing.T) {
	plain := NewSet(false, false)

	next, ok := plain.Next(Vertex)
	if !ok || next != Fragment {
		t.Errorf("Next(VS) = %s, %v; want FS, true", next, ok)
	}
	if _, ok := plain.Next(Fragment); ok {
		t.Error("Next(FS) should report no successor")
	}

	withGS := NewSet(false, true)
	next, ok = withGS.Next(Vertex)
	if !ok || next != Geometry {
		t.Errorf("Next(VS) with geometry = %s, %v; want GS, true", next, ok)
	}
}

func TestSet_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		set  Set
		want []Boundary
	}{
		{"plain", NewSet(false, false), []Boundary{{Vertex, Fragment}}},
		{"geometry", NewSet(false, true), []Boundary{{Vertex, Geometry}, {Geometry, Fragment}}},
		{"full", NewSet(true, true), []Boundary{{Vertex, TessEval}, {TessEval, Geometry}, {Geometry, Fragment}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.Boundaries(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Boundaries() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSet_Contains(t *testing.T) {
	plain := NewSet(false, false)
	for _, tier := range []Tier{Const, CPU, Vertex, Fragment} {
		if !plain.Contains(tier) {
			t.Errorf("plain set should contain %s", tier)
		}
	}
	for _, tier := range []Tier{TessEval, Geometry} {
		if plain.Contains(tier) {
			t.Errorf("plain set should not contain %s", tier)
		}
	}
}
