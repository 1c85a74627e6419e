// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package glsl

import (
	"fmt"

	"github.com/gogpu/stagesplit/partition"
	"github.com/gogpu/stagesplit/stage"
)

// writePassThroughDocument emits a forwarding-only intermediate stage: it
// declares a matching in/out pair for every varying crossing it and copies
// the values through. The surface language cannot place statements in the
// geometry or tessellation stages, so these documents carry no user code.
func (w *writer) writePassThroughDocument() error {
	w.writeLine("#version %s", w.opts.LangVersion.Number())
	w.writeLine("")

	switch w.tier {
	case stage.Geometry:
		w.writeLine("layout(triangles) in;")
		w.writeLine("layout(triangle_strip, max_vertices = 3) out;")
	case stage.TessEval:
		w.writeLine("layout(triangles, equal_spacing, ccw) in;")
	}
	w.writeLine("")

	in := w.io.VaryingsInto(w.tier)
	out := w.io.VaryingsOutOf(w.tier)
	if len(in) != len(out) {
		return fmt.Errorf("pass-through stage %s has %d inputs but %d outputs", w.tier, len(in), len(out))
	}

	for _, v := range in {
		base, err := baseTypeName(v.Type)
		if err != nil {
			return err
		}
		w.writeLine("layout(location = %d) %s in %s %s[];",
			v.Location, v.Qualifier, base, w.table.VaryingName(v.Boundary, v.Sym))
	}
	if len(in) > 0 {
		w.writeLine("")
	}
	for _, v := range out {
		base, err := baseTypeName(v.Type)
		if err != nil {
			return err
		}
		w.writeLine("layout(location = %d) %s out %s %s;",
			v.Location, v.Qualifier, base, w.table.VaryingName(v.Boundary, v.Sym))
	}
	if len(out) > 0 {
		w.writeLine("")
	}

	w.writeLine("void main() {")
	w.pushIndent()
	switch w.tier {
	case stage.Geometry:
		w.writeGeometryForward(in, out)
	case stage.TessEval:
		w.writeTessEvalForward(in, out)
	}
	w.popIndent()
	w.writeLine("}")
	return nil
}

// writeGeometryForward re-emits the incoming triangle unchanged.
func (w *writer) writeGeometryForward(in, out []partition.Varying) {
	w.writeLine("for (int i = 0; i < 3; ++i) {")
	w.pushIndent()
	w.writeLine("gl_Position = gl_in[i].gl_Position;")
	for i := range in {
		w.writeLine("%s = %s[i];",
			w.table.VaryingName(out[i].Boundary, out[i].Sym),
			w.table.VaryingName(in[i].Boundary, in[i].Sym))
	}
	w.writeLine("EmitVertex();")
	w.popIndent()
	w.writeLine("}")
	w.writeLine("EndPrimitive();")
}

// writeTessEvalForward interpolates the patch corners barycentrically;
// flat varyings take the provoking vertex.
func (w *writer) writeTessEvalForward(in, out []partition.Varying) {
	w.writeLine("gl_Position = gl_TessCoord.x * gl_in[0].gl_Position + gl_TessCoord.y * gl_in[1].gl_Position + gl_TessCoord.z * gl_in[2].gl_Position;")
	for i := range in {
		src := w.table.VaryingName(in[i].Boundary, in[i].Sym)
		dst := w.table.VaryingName(out[i].Boundary, out[i].Sym)
		if in[i].Qualifier == partition.InterpFlat {
			w.writeLine("%s = %s[0];", dst, src)
			continue
		}
		w.writeLine("%s = gl_TessCoord.x * %s[0] + gl_TessCoord.y * %s[1] + gl_TessCoord.z * %s[2];", dst, src, src, src)
	}
}
