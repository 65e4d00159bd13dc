package graph

// The code in this file represents data handed to the passes by the build
// orchestrator. Trees are mutated in place by the passes. Everything else is
// read-only once the dependency graph has been constructed.

import (
	"github.com/chunkpass/chunkpass/internal/ast"
	"github.com/chunkpass/chunkpass/internal/js_ast"
	"github.com/chunkpass/chunkpass/internal/logger"
)

type CompilationUnit struct {
	Source logger.Source
	Tree   *js_ast.Node

	// These are filled in by module lowering and only describe the unit as it
	// was before lowering
	Imports []ast.ImportRecord
	Exports []ast.ExportRecord

	// This is a back-reference. The chunk owns the unit, not the other way
	// around.
	chunk *Chunk
}

func NewCompilationUnit(source logger.Source, tree *js_ast.Node) *CompilationUnit {
	if tree.Kind != js_ast.SScript {
		panic("Internal error: a unit must be rooted at a script")
	}
	return &CompilationUnit{Source: source, Tree: tree}
}

// Returns nil until the unit has been added to a dependency graph
func (u *CompilationUnit) Chunk() *Chunk {
	return u.chunk
}

func (u *CompilationUnit) Path() string {
	return u.Source.KeyPath
}

type Chunk struct {
	ID    string
	Units []*CompilationUnit

	// The ids of the chunks that must be loaded before this one
	Deps []string

	// Position of the chunk in the graph. Owner sets and ancestor sets are
	// bitmaps of these indices.
	Index uint32
}

func (c *Chunk) AddUnit(unit *CompilationUnit) {
	if unit.chunk != nil {
		panic("Internal error: unit already belongs to chunk " + unit.chunk.ID)
	}
	unit.chunk = c
	c.Units = append(c.Units, unit)
}
