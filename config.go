// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package stagesplit

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/gogpu/stagesplit/glsl"
)

// Config is the TOML pipeline configuration consumed by the CLI.
//
// Example:
//
//	name = "scene"
//	geometry = false
//	tessellation = false
//	vertex_texture_fetch = ["heightmap"]
//	output = "out"
type Config struct {
	// Name names the pipeline; emitted artifacts use it as a file stem.
	Name string `toml:"name"`

	// Geometry enables the pass-through geometry stage.
	Geometry bool `toml:"geometry"`

	// Tessellation enables the pass-through tessellation stage.
	Tessellation bool `toml:"tessellation"`

	// VertexTextureFetch lists samplers usable from the vertex stage.
	VertexTextureFetch []string `toml:"vertex_texture_fetch"`

	// Output is the artifact directory.
	Output string `toml:"output"`
}

// LoadConfig reads a pipeline configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Name == "" {
		cfg.Name = "pipeline"
	}
	if cfg.Output == "" {
		cfg.Output = "."
	}
	return cfg, nil
}

// Options converts the configuration into compile options.
func (c *Config) Options() Options {
	return Options{
		Geometry:           c.Geometry,
		Tessellation:       c.Tessellation,
		VertexTextureFetch: c.VertexTextureFetch,
		LangVersion:        glsl.Version440,
	}
}
