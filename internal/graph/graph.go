package graph

import (
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// A DAG over chunks. An edge from A to B means A depends on B, so B must be
// loaded before A. The graph is immutable once built: every query below is
// answered from sets precomputed by NewDependencyGraph.
type DependencyGraph struct {
	chunks   []*Chunk
	byID     map[string]*Chunk
	directed *simple.DirectedGraph

	// Inclusive ancestor sets: ancestors[i] holds i and every chunk that i
	// transitively depends on
	ancestors []*roaring.Bitmap

	// Length of the longest dependency path from chunk i down to a chunk with
	// no dependencies. Chunks further from the roots have a greater depth.
	depth []int
}

// Assigns chunk indices in the order given, links every unit back to its
// chunk and rejects unknown dependencies and cycles
func NewDependencyGraph(chunks []*Chunk) (*DependencyGraph, error) {
	g := &DependencyGraph{
		chunks:    chunks,
		byID:      make(map[string]*Chunk, len(chunks)),
		directed:  simple.NewDirectedGraph(),
		ancestors: make([]*roaring.Bitmap, len(chunks)),
		depth:     make([]int, len(chunks)),
	}

	for i, chunk := range chunks {
		if _, ok := g.byID[chunk.ID]; ok {
			return nil, fmt.Errorf("duplicate chunk %q", chunk.ID)
		}
		chunk.Index = uint32(i)
		g.byID[chunk.ID] = chunk
		g.directed.AddNode(simple.Node(int64(i)))
		for _, unit := range chunk.Units {
			unit.chunk = chunk
		}
	}

	for _, chunk := range chunks {
		for _, id := range chunk.Deps {
			dep, ok := g.byID[id]
			if !ok {
				return nil, fmt.Errorf("chunk %q depends on unknown chunk %q", chunk.ID, id)
			}
			if dep == chunk {
				return nil, fmt.Errorf("chunk %q depends on itself", chunk.ID)
			}
			g.directed.SetEdge(simple.Edge{F: simple.Node(int64(chunk.Index)), T: simple.Node(int64(dep.Index))})
		}
	}

	// Dependents come before their dependencies in a topological sort, so walk
	// the result backwards to see every dependency before its dependents
	sorted, err := topo.Sort(g.directed)
	if err != nil {
		if cycles, ok := err.(topo.Unorderable); ok {
			return nil, fmt.Errorf("dependency cycle between chunks %s", g.describeCycles(cycles))
		}
		return nil, err
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		index := uint32(sorted[i].ID())

		ancestors := roaring.New()
		ancestors.Add(index)
		depth := 0
		to := g.directed.From(int64(index))
		for to.Next() {
			dep := to.Node().ID()
			ancestors.Or(g.ancestors[dep])
			if d := g.depth[dep] + 1; d > depth {
				depth = d
			}
		}
		g.ancestors[index] = ancestors
		g.depth[index] = depth
	}

	return g, nil
}

func (g *DependencyGraph) describeCycles(cycles topo.Unorderable) string {
	var groups []string
	for _, cycle := range cycles {
		var ids []string
		for _, node := range cycle {
			ids = append(ids, fmt.Sprintf("%q", g.chunks[node.ID()].ID))
		}
		groups = append(groups, strings.Join(ids, ", "))
	}
	return strings.Join(groups, "; ")
}

func (g *DependencyGraph) Chunk(id string) (*Chunk, bool) {
	chunk, ok := g.byID[id]
	return chunk, ok
}

func (g *DependencyGraph) ChunkAt(index uint32) *Chunk {
	return g.chunks[index]
}

// Every unit of every chunk, in chunk order then unit order
func (g *DependencyGraph) Units() []*CompilationUnit {
	var units []*CompilationUnit
	for _, chunk := range g.chunks {
		units = append(units, chunk.Units...)
	}
	return units
}

// Returns the chunk closest to the leaves that every chunk in "set" depends
// on or is. If several chunks qualify the one with the greatest depth wins,
// with ties broken by the lowest chunk index. Returns false if the set is
// empty or the chunks share no dependency.
func (g *DependencyGraph) DeepestCommonDependency(set *roaring.Bitmap) (*Chunk, bool) {
	if set.IsEmpty() {
		return nil, false
	}

	var common *roaring.Bitmap
	it := set.Iterator()
	for it.HasNext() {
		index := it.Next()
		if int(index) >= len(g.chunks) {
			panic(fmt.Sprintf("Internal error: chunk index %d out of range", index))
		}
		if common == nil {
			common = g.ancestors[index].Clone()
		} else {
			common.And(g.ancestors[index])
		}
		if common.IsEmpty() {
			return nil, false
		}
	}

	// A strict ancestor always has a smaller depth than its descendants, so
	// the deepest candidate is never an ancestor of another candidate
	best := -1
	candidates := common.Iterator()
	for candidates.HasNext() {
		index := int(candidates.Next())
		if best == -1 || g.depth[index] > g.depth[best] {
			best = index
		}
	}
	return g.chunks[best], true
}
