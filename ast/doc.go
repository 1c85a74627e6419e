// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package ast defines the typed syntax tree consumed by the stage
// partitioner.
//
// The tree is produced by a host-language frontend that is not part of this
// module; stagesplit receives it fully typed and with every identifier
// resolved to a Symbol. Nodes are tagged sum types: Expr and Stmt are sealed
// interfaces and the partitioner and emitter dispatch on the concrete node
// type.
//
// The tree is immutable input. One Program is compiled into one artifact
// bundle; nothing in this package is mutated during a compile.
package ast
