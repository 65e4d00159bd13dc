package bundler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkpass/chunkpass/internal/config"
	"github.com/chunkpass/chunkpass/internal/esm"
	"github.com/chunkpass/chunkpass/internal/graph"
	"github.com/chunkpass/chunkpass/internal/helpers"
	. "github.com/chunkpass/chunkpass/internal/js_ast"
	"github.com/chunkpass/chunkpass/internal/logger"
	"github.com/chunkpass/chunkpass/internal/requires"
	"github.com/chunkpass/chunkpass/internal/test"
)

func unit(path string, stmts ...*Node) *graph.CompilationUnit {
	return graph.NewCompilationUnit(test.SourceForTest(path, ""), Script(stmts...))
}

func chunk(id string, deps []string, units ...*graph.CompilationUnit) *graph.Chunk {
	c := &graph.Chunk{ID: id, Deps: deps}
	for _, u := range units {
		c.AddUnit(u)
	}
	return c
}

func newCompilation(chunks ...*graph.Chunk) (*Compilation, logger.Log) {
	log := logger.NewDeferLog()
	return NewCompilation(config.DefaultOptions(), log, zerolog.Nop(), &helpers.Timer{}, chunks), log
}

func exampleChunks() []*graph.Chunk {
	base := unit("base.js",
		ExprStmt(Call(Name("use"), New(QName("cljs.core.Keyword"), Null(), Str("a"), Str("a"), Num(-1)))),
	)
	app := unit("app.js", ModuleBody(
		Import("react", ImportDefault("React")),
		ExprStmt(Call(Name("use"), Name("React"))),
		ExprStmt(Call(Name("require"), Str("./side"))),
	))
	return []*graph.Chunk{
		chunk("base", nil, base),
		chunk("app", []string{"base"}, app),
	}
}

func exampleTable() requires.Table {
	table := requires.Table{}
	table.Add("app.js", "react", requires.String("module$react"))
	table.Add("app.js", "./side", requires.String("module$side"))
	return table
}

func TestRun(t *testing.T) {
	c, log := newCompilation(exampleChunks()...)
	require.NoError(t, c.Run(exampleTable()))
	assert.Equal(t, StageCleaned, c.Stage())
	assert.False(t, log.HasErrors())

	infos := c.Infos()
	require.Len(t, infos, 2)
	assert.False(t, infos[0].ESM)
	assert.True(t, infos[1].ESM)
	assert.Equal(t, []string{"react"}, infos[1].Imports)
	assert.Equal(t, []string{"./side"}, infos[1].Requires)

	require.Len(t, c.Hoisted().Declarations, 1)
	assert.Equal(t, "cljs$cst$keyword$a", c.Hoisted().Declarations[0].Key)

	assert.Equal(t, []string{"module$side"}, c.Classification().Dead)
	assert.Equal(t, []string{"module$react"}, c.Classification().Alive)

	app := c.Units()[1]
	require.Len(t, app.Imports, 1)
	assert.Equal(t, "react", app.Imports[0].Specifier)

	output := c.Output(false)
	require.Len(t, output, 2)
	assert.Equal(t, "base", output[0].ID)
	test.AssertEqualWithDiff(t, output[0].Units[0].Code, `var cljs$cst$keyword$a = new cljs.core.Keyword(null, "a", "a", -1);
use(cljs$cst$keyword$a);
`)
	test.AssertEqualWithDiff(t, output[1].Units[0].Code, `var require$react = shadow.js.require("module$react");
var default$$require$react = require.esmDefault(require$react);
use(default$$require$react.default);
`)
	assert.True(t, output[0].Units[0].Changed)
	assert.True(t, output[1].Units[0].Changed)
	assert.Equal(t, helpers.Fingerprint(output[1].Units[0].Code), output[1].Units[0].Fingerprint)

	assert.Equal(t, map[string][]string{"app.js": {"module$react"}}, c.Survivors())
}

func TestOutputIsDeterministic(t *testing.T) {
	first, _ := newCompilation(exampleChunks()...)
	require.NoError(t, first.Run(exampleTable()))
	second, _ := newCompilation(exampleChunks()...)
	require.NoError(t, second.Run(exampleTable()))

	a, b := first.Output(true), second.Output(true)
	require.Len(t, a, 2)
	for i := range a {
		assert.Equal(t, a[i].Fingerprint, b[i].Fingerprint)
	}
	assert.Equal(t, "<runtime>", a[0].Units[0].Path)
	assert.NotEqual(t, a[0].Fingerprint, first.Output(false)[0].Fingerprint)
}

func TestPassOrder(t *testing.T) {
	c, _ := newCompilation(exampleChunks()...)

	err := c.HoistConstants()
	assert.True(t, errors.Is(err, ErrPassOrder))
	assert.Equal(t, StageNew, c.Stage())

	require.NoError(t, c.LowerModules())
	assert.True(t, errors.Is(c.Inspect(), ErrPassOrder))
	assert.True(t, errors.Is(c.LowerModules(), ErrPassOrder))
	assert.True(t, errors.Is(c.ClassifyRequires(), ErrPassOrder))

	require.NoError(t, c.HoistConstants())
	assert.True(t, errors.Is(c.HoistConstants(), ErrPassOrder))
}

func TestLoweringErrorAborts(t *testing.T) {
	bad := unit("bad.js", ModuleBody(
		Import("a"),
		ExprStmt(ImportCall(Name("x"))),
	))
	worse := unit("worse.js", ModuleBody(ExprStmt(ImportCall(Str("a"), Str("b")))))
	c, log := newCompilation(chunk("main", nil, bad, worse))

	err := c.LowerModules()
	require.Error(t, err)
	var dynamicErr *esm.DynamicImportError
	assert.True(t, errors.As(err, &dynamicErr))
	assert.True(t, log.HasErrors())
	assert.Len(t, log.Done(), 2)

	assert.True(t, errors.Is(c.HoistConstants(), ErrAborted))
}

func TestGraphErrorAborts(t *testing.T) {
	c, log := newCompilation(chunk("a", []string{"missing"}, unit("a.js")))
	require.NoError(t, c.LowerModules())
	err := c.HoistConstants()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `depends on unknown chunk "missing"`)
	assert.True(t, log.HasErrors())
}

func TestDisabledPassesStillAdvance(t *testing.T) {
	options := config.DefaultOptions()
	options.Modules.Enabled = false
	options.Constants.Enabled = false
	options.Requires.Enabled = false

	chunks := exampleChunks()
	c := NewCompilation(options, logger.NewDeferLog(), zerolog.Nop(), nil, chunks)
	require.NoError(t, c.Run(exampleTable()))
	assert.Equal(t, StageCleaned, c.Stage())
	assert.Equal(t, 0, c.Changes().Len())
	assert.Empty(t, c.Classification().Dead)
}

func TestReservedNameWarning(t *testing.T) {
	c, log := newCompilation(chunk("main", nil, unit("a.js", FunctionDecl("require", Params()))))
	require.NoError(t, c.LowerModules())
	msgs := log.Done()
	require.Len(t, msgs, 1)
	assert.Equal(t, logger.Warning, msgs[0].Kind)
	assert.Contains(t, msgs[0].Text, `"require"`)
}

func TestPanicInPassAborts(t *testing.T) {
	c, log := newCompilation(exampleChunks()...)
	err := c.guard(func() error { panic("boom") })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInternal))
	assert.True(t, errors.Is(c.LowerModules(), ErrAborted))

	msgs := log.Done()
	require.Len(t, msgs, 1)
	assert.Equal(t, "panic: boom", msgs[0].Text)
	require.Len(t, msgs[0].Notes, 1)
	assert.Contains(t, msgs[0].Notes[0].Text, "bundler.")
}

func TestPanicInInspectionAborts(t *testing.T) {
	c, log := newCompilation(chunk("main", nil, unit("bad.js", NewNode(SExportDecl))))
	err := c.Inspect()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInternal))
	assert.True(t, log.HasErrors())
	assert.True(t, errors.Is(c.LowerModules(), ErrAborted))
}
