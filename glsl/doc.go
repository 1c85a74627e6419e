// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package glsl lowers partitioned per-stage subprograms to GLSL 4.40
// source.
//
// The entry point is Emitter: one emitter serves one compile and produces
// one document per shader stage, synthesizing the in/out/uniform
// declaration prologue and the forwarding code that threads varyings
// between stages. The SymbolTable assigns the stable GLSL identifiers
// shared by every stage document.
package glsl
