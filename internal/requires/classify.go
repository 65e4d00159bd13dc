package requires

import (
	"github.com/chunkpass/chunkpass/internal/js_ast"
)

// After optimization a resolved require that was only kept for its
// assignment looks like "shadow.js.require(12);" at the top level. The
// optimizer never removes the call itself because the callee is a global
// with possible side effects, so the leftover bare call is what marks a
// dependency as unused.
type Classification struct {
	// Ids with at least one call site and no live one
	Dead []string

	// Ids with at least one call site that is still needed
	Alive []string
}

type Classifier struct {
	names map[string]bool
	sites []Site
	trees []*js_ast.Node
}

// "names" are the qualified names of the physical require functions that
// resolved calls use, such as "shadow.js.require"
func NewClassifier(names []string) *Classifier {
	c := &Classifier{names: make(map[string]bool, len(names))}
	for _, name := range names {
		c.names[name] = true
	}
	return c
}

func (c *Classifier) AddSites(sites []Site) {
	c.sites = append(c.sites, sites...)
}

func (c *Classifier) AddTree(script *js_ast.Node) {
	c.trees = append(c.trees, script)
}

// Classify reads the trees and never changes them
func (c *Classifier) Classify() Classification {
	dead := make(map[string]bool)
	alive := make(map[string]bool)
	seen := make(map[*js_ast.Node]bool)

	classify := func(call *js_ast.Node, id string) {
		if seen[call] {
			return
		}
		seen[call] = true
		switch {
		case !call.IsAttached():
			dead[id] = true
		case isBareTopLevelCall(call):
			dead[id] = true
		default:
			// Assigned at the top level, or used somewhere we don't analyze
			alive[id] = true
		}
	}

	for _, site := range c.sites {
		classify(site.Call, site.ID)
	}
	for _, tree := range c.trees {
		for _, call := range c.topLevelCalls(tree) {
			id, _ := c.requireID(call)
			classify(call, id)
		}
	}

	for id := range alive {
		delete(dead, id)
	}
	return Classification{Dead: sortedSet(dead), Alive: sortedSet(alive)}
}

// Returns the id passed to one of the classified require functions, or false
// if "call" is some other call. Calls the rewriter resolved count whatever
// their callee is.
func (c *Classifier) requireID(call *js_ast.Node) (string, bool) {
	if call.Kind != js_ast.ECall {
		return "", false
	}
	if !call.Flags.Has(js_ast.FlagResolvedRequire) && !c.names[call.FirstChild().QualifiedName()] {
		return "", false
	}
	args := call.Args()
	if len(args) == 0 {
		return "", false
	}
	return literalID(args[0])
}

// Only global code matters here since only global variables are left
// around after optimization. This covers "f(x);", "a = f(x);" and
// "var a = f(x);" directly inside the script or a top-level block.
func (c *Classifier) topLevelCalls(script *js_ast.Node) []*js_ast.Node {
	var calls []*js_ast.Node
	js_ast.Walk(script, func(n *js_ast.Node) bool {
		switch n.Kind {
		case js_ast.SScript, js_ast.SModuleBody, js_ast.SBlock, js_ast.SLocal:
			return true

		case js_ast.SExpr:
			value := n.FirstChild()
			if value.Kind == js_ast.EAssign {
				value = value.LastChild()
			}
			if _, ok := c.requireID(value); ok {
				calls = append(calls, value)
			}

		case js_ast.SDecl:
			if init := n.Child(1); init != nil {
				if _, ok := c.requireID(init); ok {
					calls = append(calls, init)
				}
			}
		}
		return false
	})
	return calls
}

// Matches "f(x);" directly inside the script or a block at the top level
func isBareTopLevelCall(call *js_ast.Node) bool {
	stmt := call.Parent()
	if stmt == nil || stmt.Kind != js_ast.SExpr {
		return false
	}
	for p := stmt.Parent(); p != nil; p = p.Parent() {
		switch p.Kind {
		case js_ast.SScript, js_ast.SModuleBody, js_ast.SBlock:
		default:
			return false
		}
	}
	return true
}

// Detaches every bare top-level call to a classified require function whose
// id is in "dead" and reports the scopes it changed
func (c *Classifier) RemoveDeadRequires(dead []string) js_ast.ChangeSet {
	var changes js_ast.ChangeSet
	if len(dead) == 0 {
		return changes
	}
	isDead := make(map[string]bool, len(dead))
	for _, id := range dead {
		isDead[id] = true
	}
	for _, tree := range c.trees {
		for _, call := range c.topLevelCalls(tree) {
			id, _ := c.requireID(call)
			if !isDead[id] || !isBareTopLevelCall(call) || !call.IsAttached() {
				continue
			}
			stmt := call.Parent()
			changes.Report(stmt.Parent())
			stmt.Detach()
		}
	}
	return changes
}

// Lists the ids of every "require(x)" and "require.x(x)" call with a single
// string or numeric argument still left anywhere in the tree, including calls
// the rewriter already resolved. This is the inventory of dependencies that
// survived optimization.
func FindSurvivors(script *js_ast.Node) []string {
	survivors := make(map[string]bool)
	js_ast.Walk(script, func(n *js_ast.Node) bool {
		if n.Kind != js_ast.ECall || n.ChildCount() != 2 {
			return true
		}
		callee := n.FirstChild()
		if !n.Flags.Has(js_ast.FlagResolvedRequire) {
			if callee.Kind == js_ast.EDot {
				callee = callee.FirstChild()
			}
			if callee.Kind != js_ast.EIdentifier || callee.Text != "require" {
				return true
			}
		}
		if id, ok := literalID(n.Child(1)); ok {
			survivors[id] = true
		}
		return true
	})
	return sortedSet(survivors)
}
