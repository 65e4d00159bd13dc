package requires

import (
	"math"
	"sort"
	"strconv"

	"github.com/chunkpass/chunkpass/internal/config"
	"github.com/chunkpass/chunkpass/internal/js_ast"
)

type ResolutionKind uint8

const (
	// The specifier is replaced by another string id
	ResolveString ResolutionKind = iota

	// The specifier is replaced by a numeric id
	ResolveNumber

	// The whole call is replaced by a reference to a global such as
	// "shadow.npm.pkgs.module$react"
	ResolveQualified
)

type Resolution struct {
	Text   string
	Number float64
	Kind   ResolutionKind
}

func String(id string) Resolution {
	return Resolution{Kind: ResolveString, Text: id}
}

func Number(id float64) Resolution {
	return Resolution{Kind: ResolveNumber, Number: id}
}

func Qualified(name string) Resolution {
	return Resolution{Kind: ResolveQualified, Text: name}
}

// Table maps a unit path to the resolutions of the specifiers that unit uses.
// Two units may use the same specifier ("./util") for different files.
type Table map[string]map[string]Resolution

func (table Table) Add(unit string, specifier string, resolution Resolution) {
	specs, ok := table[unit]
	if !ok {
		specs = make(map[string]Resolution)
		table[unit] = specs
	}
	specs[specifier] = resolution
}

func (table Table) Lookup(unit string, specifier string) (Resolution, bool) {
	resolution, ok := table[unit][specifier]
	return resolution, ok
}

// A resolved call left in the tree. Sites are what the classifier inspects
// after optimization, including ones the optimizer has since detached.
type Site struct {
	Call *js_ast.Node
	Unit string
	ID   string
}

type RewriteResult struct {
	// Specifiers that had no entry in the table and were left alone
	Unresolved []string
	Resolved   int
	Changes    js_ast.ChangeSet
}

type Rewriter struct {
	table   Table
	sites   []Site
	options config.RequiresOptions
}

func NewRewriter(options config.RequiresOptions, table Table) *Rewriter {
	return &Rewriter{options: options, table: table}
}

func (r *Rewriter) Sites() []Site {
	return r.sites
}

type rewriteVisitor struct {
	rewriter *Rewriter
	unit     string
	result   RewriteResult
}

func (r *Rewriter) Rewrite(unit string, script *js_ast.Node) RewriteResult {
	v := &rewriteVisitor{rewriter: r, unit: unit}
	js_ast.Traverse(script, v)
	return v.result
}

func (v *rewriteVisitor) ShouldTraverse(t *js_ast.Traversal, n *js_ast.Node) bool {
	// "require.ensure(deps, callback)" is a webpack-ism whose callback refers
	// to its own "require" parameter
	return !n.IsCallTo("require.ensure")
}

func (v *rewriteVisitor) Visit(t *js_ast.Traversal, n *js_ast.Node) {
	switch n.Kind {
	case js_ast.ECall:
		if !n.IsCallTo("require") || n.Flags.Has(js_ast.FlagResolvedRequire) {
			return
		}

		// Bundled code such as "function(require, module, exports) {...}"
		// brings its own require that is not ours to resolve
		if scope, _ := t.Scope().Lookup("require"); scope != nil {
			return
		}

		args := n.Args()
		if len(args) != 1 || !args[0].IsStringLiteral() {
			return
		}
		resolution, ok := v.lookup(args[0].Text)
		if !ok {
			return
		}

		if resolution.Kind == ResolveQualified {
			replacement := js_ast.QName(resolution.Text).SrcrefTreeIfMissing(n.Loc)
			n.ReplaceWith(replacement)
			v.result.Changes.Report(replacement)
			return
		}

		arg := args[0]
		id := resolvedLiteral(resolution)
		id.Loc = arg.Loc
		arg.ReplaceWith(id)
		if fn := v.rewriter.options.RequireFn; fn != "" {
			n.FirstChild().ReplaceWith(js_ast.QName(fn).SrcrefTreeIfMissing(n.Loc))
		}
		n.Flags |= js_ast.FlagResolvedRequire
		v.rewriter.sites = append(v.rewriter.sites, Site{Unit: v.unit, ID: resolution.id(), Call: n})
		v.result.Changes.Report(n)

	case js_ast.EImportCall:
		args := n.Args()
		if len(args) != 1 || !args[0].IsStringLiteral() {
			return
		}
		resolution, ok := v.lookup(args[0].Text)
		if !ok {
			return
		}

		var replacement *js_ast.Node
		if resolution.Kind == ResolveQualified {
			replacement = js_ast.Call(js_ast.QName("Promise.resolve"), js_ast.QName(resolution.Text))
		} else {
			replacement = js_ast.Call(js_ast.QName(v.rewriter.options.DynamicImportFn), resolvedLiteral(resolution))
		}
		replacement.SrcrefTreeIfMissing(n.Loc)
		n.ReplaceWith(replacement)
		v.result.Changes.Report(replacement)
	}
}

func (v *rewriteVisitor) lookup(specifier string) (Resolution, bool) {
	resolution, ok := v.rewriter.table.Lookup(v.unit, specifier)
	if ok {
		v.result.Resolved++
	} else {
		v.result.Unresolved = append(v.result.Unresolved, specifier)
	}
	return resolution, ok
}

func resolvedLiteral(resolution Resolution) *js_ast.Node {
	if resolution.Kind == ResolveNumber {
		return js_ast.Num(resolution.Number)
	}
	return js_ast.Str(resolution.Text)
}

func (r Resolution) id() string {
	switch r.Kind {
	case ResolveNumber:
		return formatID(r.Number)
	default:
		return r.Text
	}
}

// Numeric ids are compared as integers, so 12 and 12.0 are the same module
func formatID(value float64) string {
	if value == math.Trunc(value) && math.Abs(value) < 1e18 {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}

// Returns the id of a string or numeric require argument
func literalID(arg *js_ast.Node) (string, bool) {
	if arg.IsStringLiteral() {
		return arg.Text, true
	}
	if arg.IsNumberLiteral() {
		return formatID(arg.NumberValue()), true
	}
	return "", false
}

func sortedSet(set map[string]bool) []string {
	list := make([]string, 0, len(set))
	for key := range set {
		list = append(list, key)
	}
	sort.Strings(list)
	return list
}
