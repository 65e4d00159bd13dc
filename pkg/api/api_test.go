package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func name(text string) Node {
	return Node{Kind: "EIdentifier", Text: text}
}

func str(text string) Node {
	return Node{Kind: "EString", Text: text}
}

func call(callee Node, args ...Node) Node {
	return Node{Kind: "ECall", Children: append([]Node{callee}, args...)}
}

func stmt(value Node) Node {
	return Node{Kind: "SExpr", Children: []Node{value}}
}

func varDecl(local string, binding string, init Node) Node {
	return Node{Kind: "SLocal", Local: local, Children: []Node{{
		Kind:     "SDecl",
		Children: []Node{{Kind: "BIdentifier", Text: binding}, init},
	}}}
}

func script(stmts ...Node) Node {
	return Node{Kind: "SScript", Children: stmts}
}

func exampleManifest() Manifest {
	one := 1.0
	return Manifest{
		Chunks: []Chunk{{
			ID: "main",
			Units: []Unit{{
				Path: "main.js",
				Tree: script(
					Node{Kind: "SModuleBody", Children: []Node{
						{Kind: "SImport", Text: "react", Children: []Node{{Kind: "SImportStar", Alias: "React"}}},
						stmt(call(name("use"), name("React"))),
						stmt(call(name("require"), str("./side"))),
						varDecl("const", "lazy", call(name("require"), str("./lazy"))),
					}},
				),
			}},
		}},
		Resolutions: map[string]map[string]Resolution{
			"main.js": {
				"react":  {String: "module$react"},
				"./side": {Number: &one},
				"./lazy": {Qualified: "shadow.npm.pkgs.lazy"},
			},
		},
	}
}

func TestCompile(t *testing.T) {
	result := Compile(exampleManifest(), CompileOptions{})
	require.Empty(t, result.Errors)
	require.Len(t, result.Chunks, 1)
	require.Len(t, result.Chunks[0].Units, 1)

	assert.Equal(t, `var React = shadow.js.require("module$react");
use(React);
const lazy = shadow.npm.pkgs.lazy;
`, result.Chunks[0].Units[0].Code)
	assert.True(t, result.Chunks[0].Units[0].Changed)
	assert.Equal(t, []string{"1"}, result.DeadRequires)
	assert.Equal(t, []string{"module$react"}, result.AliveRequires)
	assert.Equal(t, map[string][]string{"main.js": {"module$react"}}, result.Survivors)
	assert.Equal(t, 1, result.ChangedScopes)
}

func TestCompileWithRuntime(t *testing.T) {
	result := Compile(exampleManifest(), CompileOptions{IncludeRuntime: true})
	require.Empty(t, result.Errors)
	require.Len(t, result.Chunks[0].Units, 2)
	assert.Equal(t, "<runtime>", result.Chunks[0].Units[0].Path)
}

func TestCompileReportsManifestErrors(t *testing.T) {
	manifest := exampleManifest()
	manifest.Chunks[0].Units[0].Tree = Node{Kind: "SBogus"}
	result := Compile(manifest, CompileOptions{})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, `main.js: unknown node kind "SBogus"`, result.Errors[0].Text)

	manifest = exampleManifest()
	manifest.Chunks[0].Units[0].Tree = stmt(name("x"))
	result = Compile(manifest, CompileOptions{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Text, "must be an SScript node")

	manifest = exampleManifest()
	manifest.Resolutions["main.js"]["react"] = Resolution{String: "a", Qualified: "b"}
	result = Compile(manifest, CompileOptions{})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Text, "exactly one")
}

func TestMalformedTreesAreRejected(t *testing.T) {
	manifest := exampleManifest()
	manifest.Chunks[0].Units[0].Tree = script(Node{Kind: "SExportDecl"})
	result := Inspect(manifest, CompileOptions{})
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "main.js.children[0]: SExportDecl has 0 children, expected 1", result.Errors[0].Text)
	assert.Empty(t, result.Units)

	manifest.Chunks[0].Units[0].Tree = script(Node{Kind: "SLocal", Children: []Node{name("x")}})
	compiled := Compile(manifest, CompileOptions{})
	require.Len(t, compiled.Errors, 1)
	assert.Equal(t, "main.js.children[0]: SLocal cannot have EIdentifier as child 0", compiled.Errors[0].Text)

	manifest.Chunks[0].Units[0].Tree = script(stmt(Node{Kind: "EString", Text: "x", Children: []Node{name("y")}}))
	compiled = Compile(manifest, CompileOptions{})
	require.Len(t, compiled.Errors, 1)
	assert.Contains(t, compiled.Errors[0].Text, "EString must not have children")
}

func TestCompileReportsPassErrors(t *testing.T) {
	manifest := Manifest{Chunks: []Chunk{{
		ID: "main",
		Units: []Unit{{
			Path:     "main.js",
			Contents: "import(x);\n",
			Tree: script(Node{Kind: "SModuleBody", Children: []Node{
				stmt(Node{Kind: "EImportCall", Children: []Node{name("x")}}),
			}}),
		}},
	}}}
	result := Compile(manifest, CompileOptions{})
	require.Len(t, result.Errors, 1)
	require.NotNil(t, result.Errors[0].Location)
	assert.Equal(t, "main.js", result.Errors[0].Location.File)
	assert.Equal(t, 1, result.Errors[0].Location.Line)
	assert.Equal(t, "import(x);", result.Errors[0].Location.LineText)
	assert.Empty(t, result.Chunks)
}

func TestCompileUsesConfigFile(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "chunkpass.toml"), []byte("[requires]\nrequire_fn = \"load\"\n"), 0644)
	require.NoError(t, err)

	result := Compile(exampleManifest(), CompileOptions{ConfigDir: dir})
	require.Empty(t, result.Errors)
	assert.Contains(t, result.Chunks[0].Units[0].Code, `var React = load("module$react");`)

	result = Compile(exampleManifest(), CompileOptions{ConfigFile: filepath.Join(dir, "missing.toml")})
	assert.Len(t, result.Errors, 1)
}

func TestInspect(t *testing.T) {
	result := Inspect(exampleManifest(), CompileOptions{})
	require.Empty(t, result.Errors)
	require.Len(t, result.Units, 1)
	info := result.Units[0]
	assert.Equal(t, "main.js", info.Path)
	assert.True(t, info.ESM)
	assert.Equal(t, []string{"react"}, info.Imports)
	assert.Equal(t, []string{"./side", "./lazy"}, info.Requires)
}
