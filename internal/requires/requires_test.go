package requires

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkpass/chunkpass/internal/config"
	. "github.com/chunkpass/chunkpass/internal/js_ast"
	"github.com/chunkpass/chunkpass/internal/js_printer"
	"github.com/chunkpass/chunkpass/internal/test"
)

func options() config.RequiresOptions {
	return config.DefaultOptions().Requires
}

func rewrite(t *testing.T, table Table, unit string, stmts ...*Node) (*Node, *Rewriter, RewriteResult) {
	t.Helper()
	tree := Script(stmts...)
	r := NewRewriter(options(), table)
	result := r.Rewrite(unit, tree)
	return tree, r, result
}

func TestRewriteStringAndNumber(t *testing.T) {
	table := Table{}
	table.Add("test.js", "react", String("module$node_modules$react$index"))
	table.Add("test.js", "./util", Number(12))

	tree, r, result := rewrite(t, table, "test.js",
		Var("react", Call(Name("require"), Str("react"))),
		ExprStmt(Call(Name("require"), Str("./util"))),
		ExprStmt(Call(Name("require"), Str("missing"))),
	)
	test.AssertEqualWithDiff(t, js_printer.Print(tree, js_printer.Options{}), `var react = shadow.js.require("module$node_modules$react$index");
shadow.js.require(12);
require("missing");
`)
	assert.Equal(t, 2, result.Resolved)
	assert.Equal(t, []string{"missing"}, result.Unresolved)
	assert.Equal(t, 1, result.Changes.Len())

	require.Len(t, r.Sites(), 2)
	assert.Equal(t, "module$node_modules$react$index", r.Sites()[0].ID)
	assert.Equal(t, "12", r.Sites()[1].ID)
	assert.Equal(t, "test.js", r.Sites()[1].Unit)
	assert.True(t, r.Sites()[0].Call.Flags.Has(FlagResolvedRequire))
}

func TestRewriteIsKeyedPerUnit(t *testing.T) {
	table := Table{}
	table.Add("a.js", "./util", String("a-util"))
	table.Add("b.js", "./util", String("b-util"))

	a, _, _ := rewrite(t, table, "a.js", ExprStmt(Call(Name("require"), Str("./util"))))
	b, _, _ := rewrite(t, table, "b.js", ExprStmt(Call(Name("require"), Str("./util"))))
	c, _, result := rewrite(t, table, "c.js", ExprStmt(Call(Name("require"), Str("./util"))))

	test.AssertEqual(t, js_printer.Print(a, js_printer.Options{}), "shadow.js.require(\"a-util\");\n")
	test.AssertEqual(t, js_printer.Print(b, js_printer.Options{}), "shadow.js.require(\"b-util\");\n")
	test.AssertEqual(t, js_printer.Print(c, js_printer.Options{}), "require(\"./util\");\n")
	assert.Equal(t, 0, result.Changes.Len())
}

func TestRewriteQualified(t *testing.T) {
	table := Table{}
	table.Add("test.js", "test", Qualified("shadow.npm.pkgs.module$test"))

	tree, r, _ := rewrite(t, table, "test.js",
		ExprStmt(Call(Name("require"), Str("test"))),
		ExprStmt(Call(Name("use"), Call(Name("require"), Str("test")))),
	)
	test.AssertEqualWithDiff(t, js_printer.Print(tree, js_printer.Options{}), `shadow.npm.pkgs.module$test;
use(shadow.npm.pkgs.module$test);
`)
	assert.Empty(t, r.Sites())
}

func TestRewriteDynamicImport(t *testing.T) {
	table := Table{}
	table.Add("test.js", "./lazy.js", String("lazy"))
	table.Add("test.js", "./eager.js", Qualified("shadow.npm.pkgs.eager"))

	tree, _, result := rewrite(t, table, "test.js",
		ExprStmt(ImportCall(Str("./lazy.js"))),
		ExprStmt(ImportCall(Str("./eager.js"))),
	)
	test.AssertEqualWithDiff(t, js_printer.Print(tree, js_printer.Options{}), `shadow.esm.dynamic_import("lazy");
Promise.resolve(shadow.npm.pkgs.eager);
`)
	assert.Equal(t, 2, result.Resolved)
}

func TestRewriteSkipsLocalRequire(t *testing.T) {
	table := Table{}
	table.Add("test.js", "x", String("resolved"))

	tree, _, _ := rewrite(t, table, "test.js",
		ExprStmt(Function("", Params("require", "module", "exports"),
			ExprStmt(Call(Name("require"), Str("x"))),
		)),
		FunctionDecl("f", Params(),
			Var("require", Null()),
			ExprStmt(Call(Name("require"), Str("x"))),
		),
		ExprStmt(Call(QName("require.ensure"), Array(), Arrow(Params(), Call(Name("require"), Str("x"))))),
		ExprStmt(Call(Name("require"), Str("x"))),
	)
	test.AssertEqualWithDiff(t, js_printer.Print(tree, js_printer.Options{}), `(function(require, module, exports) {
  require("x");
});
function f() {
  var require = null;
  require("x");
}
require.ensure([], () => require("x"));
shadow.js.require("resolved");
`)
}

func TestRewriteRunsOnce(t *testing.T) {
	table := Table{}
	table.Add("test.js", "x", String("x"))
	options := options()
	options.RequireFn = ""

	tree := Script(ExprStmt(Call(Name("require"), Str("x"))))
	r := NewRewriter(options, table)
	first := r.Rewrite("test.js", tree)
	second := r.Rewrite("test.js", tree)

	test.AssertEqual(t, js_printer.Print(tree, js_printer.Options{}), "require(\"x\");\n")
	assert.Equal(t, 1, first.Changes.Len())
	assert.Equal(t, 0, second.Changes.Len())
	assert.Len(t, r.Sites(), 1)
}

func TestClassifyBareCallIsDead(t *testing.T) {
	tree := Script(
		ExprStmt(Call(QName("shadow.js.require"), Str("module$a"), Object())),
		ExprStmt(Call(QName("shadow.js.jsRequire"), Num(3))),
	)
	c := NewClassifier(options().ClassifyNames)
	c.AddTree(tree)
	result := c.Classify()
	assert.Equal(t, []string{"3", "module$a"}, result.Dead)
	assert.Empty(t, result.Alive)

	// Classification never touches the tree
	test.AssertEqual(t, len(tree.Children()), 2)
}

func TestClassifyAliveAnywhereWins(t *testing.T) {
	tree := Script(
		ExprStmt(Call(QName("shadow.js.require"), Str("x"))),
		Var("x", Call(QName("shadow.js.require"), Str("x"))),
		ExprStmt(Assign(Name("y"), Call(QName("shadow.js.require"), Str("y")))),
		Block(ExprStmt(Call(QName("shadow.js.require"), Str("z")))),
		ExprStmt(Call(Name("other"), Str("w"))),
	)
	c := NewClassifier(options().ClassifyNames)
	c.AddTree(tree)
	result := c.Classify()
	assert.Equal(t, []string{"z"}, result.Dead)
	assert.Equal(t, []string{"x", "y"}, result.Alive)
}

func TestClassifyDetachedDeclarationIsDead(t *testing.T) {
	table := Table{}
	table.Add("test.js", "react", String("react"))
	table.Add("test.js", "dom", String("dom"))

	unused := Var("react", Call(Name("require"), Str("react")))
	tree, r, _ := rewrite(t, table, "test.js",
		unused,
		Var("dom", Call(Name("require"), Str("dom"))),
		ExprStmt(Call(Name("use"), Name("dom"))),
	)

	// The optimizer proved "react" unused and removed the declaration
	unused.Detach()

	c := NewClassifier(options().ClassifyNames)
	c.AddSites(r.Sites())
	c.AddTree(tree)
	result := c.Classify()
	assert.Equal(t, []string{"react"}, result.Dead)
	assert.Equal(t, []string{"dom"}, result.Alive)
}

func TestClassifyKeepsCalleeAsWritten(t *testing.T) {
	table := Table{}
	table.Add("test.js", "x", Number(1))
	table.Add("test.js", "y", Number(2))

	opts := options()
	opts.RequireFn = ""
	tree := Script(
		ExprStmt(Call(Name("require"), Str("x"))),
		Var("v", Call(Name("require"), Str("y"))),
	)
	r := NewRewriter(opts, table)
	r.Rewrite("test.js", tree)
	require.Len(t, r.Sites(), 2)

	c := NewClassifier(opts.ClassifyNames)
	c.AddSites(r.Sites())
	c.AddTree(tree)
	result := c.Classify()
	assert.Equal(t, []string{"1"}, result.Dead)
	assert.Equal(t, []string{"2"}, result.Alive)

	changes := c.RemoveDeadRequires(result.Dead)
	assert.Equal(t, 1, changes.Len())
	test.AssertEqualWithDiff(t, js_printer.Print(tree, js_printer.Options{}), "var v = require(2);\n")
}

func TestClassifyNestedCallIsAlive(t *testing.T) {
	table := Table{}
	table.Add("test.js", "lazy", String("lazy"))

	tree, r, _ := rewrite(t, table, "test.js",
		FunctionDecl("load", Params(), ExprStmt(Call(Name("require"), Str("lazy")))),
	)
	c := NewClassifier(options().ClassifyNames)
	c.AddSites(r.Sites())
	c.AddTree(tree)
	result := c.Classify()
	assert.Empty(t, result.Dead)
	assert.Equal(t, []string{"lazy"}, result.Alive)
}

func TestRemoveDeadRequires(t *testing.T) {
	tree := Script(
		ExprStmt(Call(QName("shadow.js.require"), Str("dead"))),
		Var("x", Call(QName("shadow.js.require"), Str("alive"))),
		ExprStmt(Call(QName("shadow.js.require"), Str("alive"))),
		ExprStmt(Call(Name("use"), Name("x"))),
	)
	c := NewClassifier(options().ClassifyNames)
	c.AddTree(tree)
	result := c.Classify()
	require.Equal(t, []string{"dead"}, result.Dead)

	changes := c.RemoveDeadRequires(result.Dead)
	test.AssertEqualWithDiff(t, js_printer.Print(tree, js_printer.Options{}), `var x = shadow.js.require("alive");
shadow.js.require("alive");
use(x);
`)
	assert.Equal(t, []*Node{tree}, changes.Scopes())

	// Nothing left to remove
	changes = c.RemoveDeadRequires(result.Dead)
	assert.Equal(t, 0, changes.Len())
}

func TestFindSurvivors(t *testing.T) {
	table := Table{}
	table.Add("test.js", "a", Number(7))

	tree, _, _ := rewrite(t, table, "test.js",
		ExprStmt(Call(Name("require"), Str("a"))),
		FunctionDecl("f", Params(), ExprStmt(Call(Name("require"), Str("b")))),
		ExprStmt(Call(QName("require.esmDefault"), Str("c"))),
		ExprStmt(Call(Name("require"), Name("dynamic"))),
		ExprStmt(Call(Name("require"), Str("d"), Str("e"))),
	)
	assert.Equal(t, []string{"7", "b", "c"}, FindSurvivors(tree))
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "12", formatID(12))
	assert.Equal(t, "-3", formatID(-3))
	assert.Equal(t, "1.5", formatID(1.5))
}
