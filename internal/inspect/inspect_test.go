package inspect

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkpass/chunkpass/internal/ast"
	"github.com/chunkpass/chunkpass/internal/esm"
	"github.com/chunkpass/chunkpass/internal/graph"
	. "github.com/chunkpass/chunkpass/internal/js_ast"
	"github.com/chunkpass/chunkpass/internal/logger"
	"github.com/chunkpass/chunkpass/internal/test"
)

func inspect(t *testing.T, stmts ...*Node) Info {
	t.Helper()
	source := test.SourceForTest("foo.js", "")
	info, err := Inspect(&source, Script(stmts...))
	require.NoError(t, err)
	return info
}

func TestRequires(t *testing.T) {
	info := inspect(t,
		Var("x", Function("", Params("require"), ExprStmt(Call(Name("require"), Str("DONT"))))),
		ExprStmt(Call(Name("require"), Str("react"))),
		ExprStmt(Call(Name("require"), Str("./foo"))),
		ExprStmt(Call(QName("require.ensure"), Array(Str("a")), Arrow(Params(), Call(Name("require"), Str("NOPE"))))),
		ExprStmt(Call(Name("require"), Name("dynamic"))),
	)
	assert.Equal(t, []string{"react", "./foo"}, info.Requires)
	assert.Len(t, info.InvalidRequires, 1)
	assert.False(t, info.ESM)
	require.Len(t, info.Records, 2)
	assert.Equal(t, ast.ImportRequire, info.Records[0].Kind)
}

func TestModuleSyntax(t *testing.T) {
	info := inspect(t, ModuleBody(
		Import("foo"),
		Import("bar", ImportSpec("x", "x")),
		ExportStar("./foo", ""),
		ExportFrom("./baz", ExportSpec("y", "y")),
		ExprStmt(ImportCall(Str("./lazy"))),
	))
	assert.True(t, info.ESM)
	assert.Equal(t, []string{"foo", "bar", "./foo", "./baz"}, info.Imports)
	assert.Equal(t, []string{"./lazy"}, info.DynamicImports)

	var kinds []ast.ImportKind
	for _, record := range info.Records {
		kinds = append(kinds, record.Kind)
	}
	assert.Equal(t, []ast.ImportKind{ast.ImportStmt, ast.ImportStmt, ast.ImportReExport, ast.ImportReExport, ast.ImportDynamic}, kinds)

	require.Len(t, info.StrOffsets, 5)
	assert.True(t, info.StrOffsets[0].Import)
	assert.False(t, info.StrOffsets[4].Import)
}

func TestStringOffsets(t *testing.T) {
	arg := Str("react")
	arg.Loc = logger.Loc{Start: 8}
	info := inspect(t, ExprStmt(Call(Name("require"), arg)))
	assert.Equal(t, []StringOffset{{Text: "react", Loc: logger.Loc{Start: 8}}}, info.StrOffsets)
}

func TestGlobals(t *testing.T) {
	info := inspect(t, ExprStmt(QName("process.env.NODE_ENV")))
	assert.False(t, info.UsesGlobalProcess)

	info = inspect(t, ExprStmt(Call(QName("process.cwd"))))
	assert.True(t, info.UsesGlobalProcess)

	info = inspect(t, ExprStmt(QName("process.env.FOO")))
	assert.True(t, info.UsesGlobalProcess)

	info = inspect(t, Var("Buffer", Null()), ExprStmt(Call(QName("Buffer.from"), Str("x"))))
	assert.False(t, info.UsesGlobalBuffer)

	info = inspect(t, FunctionDecl("f", Params(), ExprStmt(Call(QName("Buffer.from"), Str("x")))))
	assert.True(t, info.UsesGlobalBuffer)
}

func TestUnsupportedDynamicImport(t *testing.T) {
	source := test.SourceForTest("foo.js", "let x;\nx = import(y);\n")
	call := ImportCall(Name("y"))
	call.Loc = logger.Loc{Start: 11}
	_, err := Inspect(&source, Script(Let("x", nil), ExprStmt(Assign(Name("x"), call))))

	var dynamicErr *esm.DynamicImportError
	require.True(t, errors.As(err, &dynamicErr))
	assert.Equal(t, 2, dynamicErr.Location.Line)
	assert.Equal(t, 4, dynamicErr.Location.Column)
}

func TestInspectAll(t *testing.T) {
	var units []*graph.CompilationUnit
	for i := 0; i < 20; i++ {
		path := fmt.Sprintf("unit%d.js", i)
		units = append(units, graph.NewCompilationUnit(test.SourceForTest(path, ""),
			Script(ExprStmt(Call(Name("require"), Str(fmt.Sprintf("dep%d", i)))))))
	}
	infos, err := InspectAll(units, 4)
	require.NoError(t, err)
	require.Len(t, infos, 20)
	for i, info := range infos {
		assert.Equal(t, fmt.Sprintf("unit%d.js", i), info.Path)
		assert.Equal(t, []string{fmt.Sprintf("dep%d", i)}, info.Requires)
	}
}

func TestInspectAllCollectsErrors(t *testing.T) {
	bad := func(path string) *graph.CompilationUnit {
		return graph.NewCompilationUnit(test.SourceForTest(path, ""), Script(ExprStmt(ImportCall(Name("x")))))
	}
	good := graph.NewCompilationUnit(test.SourceForTest("good.js", ""), Script())

	infos, err := InspectAll([]*graph.CompilationUnit{bad("a.js"), good, bad("b.js")}, 0)
	require.Error(t, err)
	assert.Len(t, infos, 3)
	assert.Contains(t, err.Error(), "a.js:1:0")
	assert.Contains(t, err.Error(), "b.js:1:0")
}
