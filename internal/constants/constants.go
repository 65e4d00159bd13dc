package constants

// This pass deduplicates interned-value constructors such as
//
//   new cljs.core.Keyword(null, "foo", "foo", -1234)
//
// across every unit in the build. Each distinct constant gets one shared
// declaration, placed in the chunk closest to the leaves that every chunk
// using it depends on, and every occurrence becomes a reference to it.

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/chunkpass/chunkpass/internal/config"
	"github.com/chunkpass/chunkpass/internal/graph"
	"github.com/chunkpass/chunkpass/internal/helpers"
	"github.com/chunkpass/chunkpass/internal/js_ast"
	"github.com/chunkpass/chunkpass/internal/runtime"
)

var ErrAlreadyRun = errors.New("constant hoisting can only run once per compilation")

// Returned when the chunks using a constant share no dependency and no
// fallback chunk is configured
type PlacementError struct {
	Key    string
	Chunks []string
	Reason string
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("cannot place constant %q used in chunks %s: %s",
		e.Key, helpers.StringArrayToQuotedCommaSeparatedString(e.Chunks), e.Reason)
}

type Declaration struct {
	Key   string
	Chunk string
	Unit  string

	// Ids of the chunks that reference the constant, in chunk order
	UsedIn []string
}

type Result struct {
	// Sorted by key
	Declarations []Declaration

	// Number of occurrences replaced with a reference
	Replaced int

	Changes js_ast.ChangeSet
}

type constantRef struct {
	key       string
	isKeyword bool

	// The first matched occurrence. It was detached from its tree and becomes
	// the initializer of the shared declaration.
	node *js_ast.Node

	owners *roaring.Bitmap
}

// A Hoister holds the state of one run. Create a new one for every
// compilation.
type Hoister struct {
	options   config.ConstantsOptions
	graph     *graph.DependencyGraph
	types     map[string]bool
	constants map[string]*constantRef
	result    Result
}

func NewHoister(options config.ConstantsOptions, g *graph.DependencyGraph) *Hoister {
	types := make(map[string]bool, len(options.Types))
	for _, name := range options.Types {
		types[name] = true
	}
	return &Hoister{options: options, graph: g, types: types}
}

func (h *Hoister) Run() (Result, error) {
	if h.constants != nil {
		return Result{}, ErrAlreadyRun
	}
	h.constants = make(map[string]*constantRef)

	for _, unit := range h.graph.Units() {
		if h.includesUnit(unit) {
			h.collect(unit)
		}
	}

	keys := make([]string, 0, len(h.constants))
	for key := range h.constants {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Consecutive declarations placed at the front of the same unit keep
	// their sorted order
	lastInserted := make(map[*graph.CompilationUnit]*js_ast.Node)

	for _, key := range keys {
		ref := h.constants[key]
		chunk, err := h.placementChunk(ref)
		if err != nil {
			return Result{}, err
		}
		if len(chunk.Units) == 0 {
			return Result{}, &PlacementError{Key: key, Chunks: h.chunkIDs(ref.owners), Reason: fmt.Sprintf("chunk %q has no units", chunk.ID)}
		}

		decl := js_ast.Var(key, h.declarationValue(ref))
		unit := h.constantsUnit(chunk)
		if unit != nil {
			container(unit.Tree).AppendChild(decl)
		} else {
			unit = chunk.Units[0]
			if last, ok := lastInserted[unit]; ok {
				decl.InsertAfter(last)
			} else {
				container(unit.Tree).PrependChild(decl)
			}
			lastInserted[unit] = decl
		}
		h.result.Changes.Report(decl)

		h.result.Declarations = append(h.result.Declarations, Declaration{
			Key:    key,
			Chunk:  chunk.ID,
			Unit:   unit.Path(),
			UsedIn: h.chunkIDs(ref.owners),
		})
	}

	return h.result, nil
}

func (h *Hoister) includesUnit(unit *graph.CompilationUnit) bool {
	if len(h.options.UnitFilter) == 0 {
		return true
	}
	for _, part := range h.options.UnitFilter {
		if strings.Contains(unit.Path(), part) {
			return true
		}
	}
	return false
}

func (h *Hoister) collect(unit *graph.CompilationUnit) {
	chunk := unit.Chunk()
	js_ast.Traverse(unit.Tree, js_ast.PostOrderCallback(func(t *js_ast.Traversal, n *js_ast.Node) {
		if n.Kind != js_ast.ENew {
			return
		}
		key, isKeyword, ok := h.match(n)
		if !ok {
			return
		}

		ref, ok := h.constants[key]
		if !ok {
			ref = &constantRef{key: key, isKeyword: isKeyword, owners: roaring.New()}
			h.constants[key] = ref
		}
		ref.owners.Add(chunk.Index)

		replacement := js_ast.Name(key)
		replacement.Loc = n.Loc
		n.ReplaceWith(replacement)
		if ref.node == nil {
			ref.node = n
		}
		h.result.Replaced++
		h.result.Changes.Report(replacement)
	}))
}

// Matches "new T(ns, name, fqn, hash)" and "new T(ns, name, fqn, hash, null)"
// where T is one of the configured types. Anything with the right shape but
// other argument kinds is left alone.
func (h *Hoister) match(n *js_ast.Node) (key string, isKeyword bool, ok bool) {
	callee := n.FirstChild()

	// "new something['whatever']()" has no qualified name
	if callee == nil || callee.Kind != js_ast.EDot {
		return
	}

	args := n.Args()
	if len(args) != 4 && !(len(args) == 5 && args[4].Kind == js_ast.ENull) {
		return
	}

	typeName := callee.QualifiedName()
	if !h.types[typeName] {
		return
	}

	ns, name, fqn, hash := args[0], args[1], args[2], args[3]
	if (ns.Kind != js_ast.EString && ns.Kind != js_ast.ENull) ||
		name.Kind != js_ast.EString ||
		fqn.Kind != js_ast.EString ||
		!hash.IsNumberLiteral() {
		return
	}

	_, localName := js_ast.SplitQualifiedName(typeName)
	key = h.options.KeyPrefix + strings.ToLower(localName) + "$" + Munge(fqn.Text)
	return key, localName == "Keyword", true
}

// ":phone_number" and ":phone-number" must not collide, so dashes are
// escaped before the symbol munging turns them into underscores
func Munge(name string) string {
	return helpers.MungeWithDots(strings.ReplaceAll(name, "-", "_DASH_"))
}

func (h *Hoister) placementChunk(ref *constantRef) (*graph.Chunk, error) {
	if ref.owners.GetCardinality() == 1 {
		return h.graph.ChunkAt(ref.owners.Minimum()), nil
	}
	if chunk, ok := h.graph.DeepestCommonDependency(ref.owners); ok {
		return chunk, nil
	}
	if h.options.FallbackChunk == "" {
		return nil, &PlacementError{Key: ref.key, Chunks: h.chunkIDs(ref.owners), Reason: "no common dependency and no fallback chunk"}
	}
	chunk, ok := h.graph.Chunk(h.options.FallbackChunk)
	if !ok {
		return nil, &PlacementError{Key: ref.key, Chunks: h.chunkIDs(ref.owners), Reason: fmt.Sprintf("unknown fallback chunk %q", h.options.FallbackChunk)}
	}
	return chunk, nil
}

func (h *Hoister) constantsUnit(chunk *graph.Chunk) *graph.CompilationUnit {
	if h.options.ConstantsUnitPrefix == "" {
		return nil
	}
	for _, unit := range chunk.Units {
		if strings.HasPrefix(unit.Path(), h.options.ConstantsUnitPrefix) {
			return unit
		}
	}
	return nil
}

func (h *Hoister) declarationValue(ref *constantRef) *js_ast.Node {
	if !h.options.ShadowKeywords || !ref.isKeyword {
		return ref.node
	}
	args := ref.node.Args()
	ns, name := args[0], args[1]
	var value *js_ast.Node
	if ns.Kind == js_ast.ENull {
		value = js_ast.Call(js_ast.Name(runtime.Keyword), name.Clone())
	} else {
		value = js_ast.Call(js_ast.Name(runtime.KeywordFqn), ns.Clone(), name.Clone())
	}
	value.Loc = ref.node.Loc
	return value
}

func (h *Hoister) chunkIDs(owners *roaring.Bitmap) []string {
	var ids []string
	it := owners.Iterator()
	for it.HasNext() {
		ids = append(ids, h.graph.ChunkAt(it.Next()).ID)
	}
	return ids
}

// Declarations go into the module body of a unit that hasn't been lowered
func container(tree *js_ast.Node) *js_ast.Node {
	if body := tree.FirstChild(); tree.ChildCount() == 1 && body.Kind == js_ast.SModuleBody {
		return body
	}
	return tree
}
