// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Command splitc drives the stage partitioning compiler.
//
// The host-language frontend lives outside this module, so splitc compiles
// a representative unified pipeline program built through the ast package
// and writes the per-stage artifacts to disk.
//
// Usage:
//
//	splitc [options]
//
// Examples:
//
//	splitc -o out                  # Compile and write out/scene.vert, out/scene.frag
//	splitc -config pipeline.toml   # Compile with a pipeline configuration
//	splitc -config pipeline.toml -watch
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	stagesplit "github.com/gogpu/stagesplit"
	"github.com/gogpu/stagesplit/ast"
)

var (
	configPath = flag.String("config", "", "pipeline configuration file (TOML)")
	output     = flag.String("o", "", "output directory (overrides config)")
	verbose    = flag.Bool("v", false, "trace compile phases")
	watch      = flag.Bool("watch", false, "recompile when the configuration changes")
	version    = flag.Bool("version", false, "print version")
)

const splitcVersion = "0.1.0-dev"

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("splitc version %s\n", splitcVersion)
		return
	}
	stagesplit.SetVerbose(*verbose)

	cfg := &stagesplit.Config{Name: "scene", Output: "."}
	if *configPath != "" {
		loaded, err := stagesplit.LoadConfig(*configPath)
		if err != nil {
			stagesplit.LogError("%v", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *output != "" {
		cfg.Output = *output
	}

	if err := compileOnce(cfg); err != nil {
		stagesplit.LogError("%v", err)
		os.Exit(1)
	}

	if *watch && *configPath != "" {
		if err := watchConfig(*configPath, cfg); err != nil {
			stagesplit.LogError("%v", err)
			os.Exit(1)
		}
	}
}

// compileOnce compiles the demo pipeline and writes the artifacts.
func compileOnce(cfg *stagesplit.Config) error {
	bundle, err := stagesplit.CompileWithOptions(demoProgram(cfg.Name), cfg.Options())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return err
	}
	stem := filepath.Join(cfg.Output, cfg.Name)

	artifacts := []struct {
		path   string
		source string
	}{
		{stem + ".vert", bundle.VertexShader},
		{stem + ".tese", bundle.TessEvalShader},
		{stem + ".geom", bundle.GeometryShader},
		{stem + ".frag", bundle.FragmentShader},
	}
	for _, a := range artifacts {
		if a.source == "" {
			continue
		}
		if err := os.WriteFile(a.path, []byte(a.source), 0644); err != nil {
			return err
		}
		stagesplit.LogInfo("wrote %s (%d bytes)", a.path, len(a.source))
	}

	if err := os.WriteFile(stem+".bindings", []byte(bindingSummary(bundle)), 0644); err != nil {
		return err
	}
	fmt.Printf("Compiled %s: bundle %s, %d uniforms, %d attributes, %d textures\n",
		cfg.Name, bundle.ID, len(bundle.UniformBindings), len(bundle.AttributeBindings), len(bundle.TextureBindings))
	return nil
}

// bindingSummary renders the CPU binding descriptors as text.
func bindingSummary(bundle *stagesplit.Bundle) string {
	out := fmt.Sprintf("bundle %s\n", bundle.ID)
	for _, u := range bundle.UniformBindings {
		kind := "uniform"
		if u.Synthesized {
			kind = "uniform (composed)"
		}
		out += fmt.Sprintf("%s %s %s\n", kind, u.GLSLType, u.Name)
	}
	for _, a := range bundle.AttributeBindings {
		out += fmt.Sprintf("attribute %s %s location=%d\n", a.GLSLType, a.Name, a.Location)
	}
	for _, t := range bundle.TextureBindings {
		out += fmt.Sprintf("texture %s %s\n", t.SamplerKind, t.Name)
	}
	return out
}

// watchConfig recompiles whenever the configuration file changes.
func watchConfig(path string, cfg *stagesplit.Config) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return err
	}
	stagesplit.LogInfo("watching %s", path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			loaded, err := stagesplit.LoadConfig(path)
			if err != nil {
				stagesplit.LogError("%v", err)
				continue
			}
			if *output != "" {
				loaded.Output = *output
			}
			*cfg = *loaded
			if err := compileOnce(cfg); err != nil {
				stagesplit.LogError("%v", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			stagesplit.LogError("watch error: %v", err)
		}
	}
}

// demoProgram builds the representative unified pipeline: a textured,
// lambert-shaded mesh with a CPU-set tint and exposure.
func demoProgram(name string) *ast.Program {
	p := ast.NewProgram(name)

	mvp := p.AddUniform("mvp", ast.TypeMat4)
	tint := p.AddUniform("tint", ast.TypeVec4)
	exposure := p.AddUniform("exposure", ast.TypeFloat)
	diffuseMap := p.AddSampler("diffuse_map", ast.Sampler2D)

	position := p.AddAttribute("position", ast.TypeVec3)
	normal := p.AddAttribute("normal", ast.TypeVec3)
	texcoord := p.AddAttribute("texcoord", ast.TypeVec2)

	color := p.AddOutput("color", ast.TypeVec4)

	lightDir := p.AddConst("light_dir", ast.TypeVec3, &ast.Call{
		Typ:    ast.TypeVec3,
		Callee: p.BuiltinProc("vec3"),
		Args: []ast.Expr{
			&ast.FloatLit{Typ: ast.TypeFloat, Value: 0.3},
			&ast.FloatLit{Typ: ast.TypeFloat, Value: 0.9},
			&ast.FloatLit{Typ: ast.TypeFloat, Value: 0.3},
		},
	})

	// proc brighten(c: Vec3, f: float): Vec3 = c * f
	c := p.NewParam("c", ast.TypeVec3)
	f := p.NewParam("f", ast.TypeFloat)
	brighten := p.AddProc("brighten", []*ast.Symbol{c, f}, ast.TypeVec3, []ast.Stmt{
		&ast.Return{Value: &ast.Infix{Typ: ast.TypeVec3, Op: "*", X: ast.Ref(c), Y: ast.Ref(f)}},
	})

	shade := p.NewLocal("shade", ast.TypeFloat)

	p.Body = []ast.Stmt{
		// gl.Position = mvp * vec4(v.position, 1.0)
		&ast.Assign{LHS: ast.Ref(p.Position), RHS: &ast.Infix{
			Typ: ast.TypeVec4,
			Op:  "*",
			X:   ast.Ref(mvp),
			Y: &ast.Call{Typ: ast.TypeVec4, Callee: p.BuiltinProc("vec4"), Args: []ast.Expr{
				ast.Field(ast.Ref(p.Input), position),
				&ast.FloatLit{Typ: ast.TypeFloat, Value: 1},
			}},
		}},
		// let shade = max(dot(v.normal, light_dir), 0.0) * 0.8 + 0.2
		&ast.VarDecl{Sym: shade, Init: &ast.Infix{
			Typ: ast.TypeFloat,
			Op:  "+",
			X: &ast.Infix{
				Typ: ast.TypeFloat,
				Op:  "*",
				X: &ast.Call{Typ: ast.TypeFloat, Callee: p.BuiltinProc("max"), Args: []ast.Expr{
					&ast.Call{Typ: ast.TypeFloat, Callee: p.BuiltinProc("dot"), Args: []ast.Expr{
						ast.Field(ast.Ref(p.Input), normal),
						ast.Ref(lightDir),
					}},
					&ast.FloatLit{Typ: ast.TypeFloat, Value: 0},
				}},
				Y: &ast.FloatLit{Typ: ast.TypeFloat, Value: 0.8},
			},
			Y: &ast.FloatLit{Typ: ast.TypeFloat, Value: 0.2},
		}},
		// result.color = texture(diffuse_map, v.texcoord) * tint
		&ast.Assign{LHS: ast.Field(ast.Ref(p.Result), color), RHS: &ast.Infix{
			Typ: ast.TypeVec4,
			Op:  "*",
			X: &ast.Call{Typ: ast.TypeVec4, Callee: p.BuiltinProc(ast.ProcTexture), Args: []ast.Expr{
				ast.Ref(diffuseMap),
				ast.Field(ast.Ref(p.Input), texcoord),
			}},
			Y: ast.Ref(tint),
		}},
		// result.color.rgb = brighten(result.color.rgb, shade * exposure)
		&ast.Assign{LHS: ast.Swizzle(ast.Field(ast.Ref(p.Result), color), "rgb"), RHS: &ast.Call{
			Typ:    ast.TypeVec3,
			Callee: brighten,
			Args: []ast.Expr{
				ast.Swizzle(ast.Field(ast.Ref(p.Result), color), "rgb"),
				&ast.Infix{Typ: ast.TypeFloat, Op: "*", X: ast.Ref(shade), Y: ast.Ref(exposure)},
			},
		}},
	}
	return p
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: splitc [options]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  splitc -o out                   Write out/scene.vert and out/scene.frag\n")
	fmt.Fprintf(os.Stderr, "  splitc -config pipeline.toml    Compile with a pipeline configuration\n")
	fmt.Fprintf(os.Stderr, "  splitc -config pipeline.toml -watch\n")
}
