package graph

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkpass/chunkpass/internal/js_ast"
	"github.com/chunkpass/chunkpass/internal/logger"
)

func chunk(id string, deps ...string) *Chunk {
	return &Chunk{ID: id, Deps: deps}
}

func set(chunks ...*Chunk) *roaring.Bitmap {
	bitmap := roaring.New()
	for _, c := range chunks {
		bitmap.Add(c.Index)
	}
	return bitmap
}

func TestDependenciesListedBeforeDependents(t *testing.T) {
	root := chunk("root")
	a := chunk("a", "root")
	b := chunk("b", "a")
	g, err := NewDependencyGraph([]*Chunk{b, a, root})
	require.NoError(t, err)

	found, ok := g.DeepestCommonDependency(set(b))
	require.True(t, ok)
	assert.Same(t, b, found)

	found, ok = g.DeepestCommonDependency(set(b, a))
	require.True(t, ok)
	assert.Same(t, a, found)

	found, ok = g.DeepestCommonDependency(set(b, root))
	require.True(t, ok)
	assert.Same(t, root, found)
}

func TestDeepestCommonDependency(t *testing.T) {
	root := chunk("root")
	shared := chunk("shared", "root")
	a := chunk("a", "shared")
	b := chunk("b", "shared", "root")
	c := chunk("c", "root")
	g, err := NewDependencyGraph([]*Chunk{root, shared, a, b, c})
	require.NoError(t, err)

	found, ok := g.DeepestCommonDependency(set(a, b))
	require.True(t, ok)
	assert.Equal(t, "shared", found.ID)

	found, ok = g.DeepestCommonDependency(set(a, c))
	require.True(t, ok)
	assert.Equal(t, "root", found.ID)

	// A chunk counts as its own dependency
	found, ok = g.DeepestCommonDependency(set(a, shared))
	require.True(t, ok)
	assert.Equal(t, "shared", found.ID)

	found, ok = g.DeepestCommonDependency(set(b))
	require.True(t, ok)
	assert.Equal(t, "b", found.ID)

	_, ok = g.DeepestCommonDependency(roaring.New())
	assert.False(t, ok)
}

func TestDeepestCommonDependencyNoSharedAncestor(t *testing.T) {
	a := chunk("a")
	b := chunk("b")
	g, err := NewDependencyGraph([]*Chunk{a, b})
	require.NoError(t, err)

	_, ok := g.DeepestCommonDependency(set(a, b))
	assert.False(t, ok)
}

func TestDeepestCommonDependencyTieBreak(t *testing.T) {
	// Both "x" and "y" are common dependencies at the same depth and neither
	// depends on the other
	x := chunk("x")
	y := chunk("y")
	a := chunk("a", "x", "y")
	b := chunk("b", "y", "x")
	g, err := NewDependencyGraph([]*Chunk{y, x, a, b})
	require.NoError(t, err)

	found, ok := g.DeepestCommonDependency(set(a, b))
	require.True(t, ok)
	assert.Equal(t, "y", found.ID)
}

func TestGraphErrors(t *testing.T) {
	_, err := NewDependencyGraph([]*Chunk{chunk("a"), chunk("a")})
	assert.EqualError(t, err, `duplicate chunk "a"`)

	_, err = NewDependencyGraph([]*Chunk{chunk("a", "missing")})
	assert.EqualError(t, err, `chunk "a" depends on unknown chunk "missing"`)

	_, err = NewDependencyGraph([]*Chunk{chunk("a", "a")})
	assert.EqualError(t, err, `chunk "a" depends on itself`)

	_, err = NewDependencyGraph([]*Chunk{chunk("a", "b"), chunk("b", "a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle between chunks")
}

func TestUnitsLinkBackToChunk(t *testing.T) {
	unit := NewCompilationUnit(logger.Source{KeyPath: "app/core.js"}, js_ast.Script())
	main := chunk("main")
	main.AddUnit(unit)
	g, err := NewDependencyGraph([]*Chunk{main})
	require.NoError(t, err)

	assert.Same(t, main, unit.Chunk())
	assert.Equal(t, "app/core.js", unit.Path())
	assert.Equal(t, []*CompilationUnit{unit}, g.Units())

	found, ok := g.Chunk("main")
	require.True(t, ok)
	assert.Same(t, main, found)
	assert.Same(t, main, g.ChunkAt(0))
}
