package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chunkpass/chunkpass/internal/exitcode"
)

const manifest = `
chunks:
  - id: main
    units:
      - path: main.js
        tree:
          kind: SScript
          children:
            - kind: SModuleBody
              children:
                - kind: SImport
                  text: react
                  children:
                    - kind: SImportStar
                      alias: React
                - kind: SExpr
                  children:
                    - kind: ECall
                      children:
                        - {kind: EIdentifier, text: use}
                        - {kind: EIdentifier, text: React}
                - kind: SExpr
                  children:
                    - kind: ECall
                      children:
                        - {kind: EIdentifier, text: require}
                        - {kind: EString, text: ./side}
resolutions:
  main.js:
    react: {string: module$react}
    ./side: {number: 4}
`

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run(append([]string{"chunkpass"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestCompileCommand(t *testing.T) {
	stdout, _, err := run(t, "--log-level", "silent", "compile", writeManifest(t))
	require.NoError(t, err)
	assert.Equal(t, "var React = shadow.js.require(\"module$react\");\nuse(React);\n", stdout)
}

func TestCompileCommandOutdir(t *testing.T) {
	outdir := t.TempDir()
	stdout, stderr, err := run(t, "--log-level", "silent", "compile", "--outdir", outdir, "--summary", writeManifest(t))
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "module$react")
	assert.Contains(t, stderr, "dead")

	contents, err := os.ReadFile(filepath.Join(outdir, "main.js"))
	require.NoError(t, err)
	assert.Contains(t, string(contents), "use(React);")
}

func TestCompileCommandUsesConfigNextToManifest(t *testing.T) {
	path := writeManifest(t)
	config := "requires:\n  require_fn: load\n"
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "chunkpass.yaml"), []byte(config), 0644))

	stdout, _, err := run(t, "--log-level", "silent", "compile", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, `load("module$react")`)
}

func TestInspectCommand(t *testing.T) {
	stdout, _, err := run(t, "--log-level", "silent", "inspect", writeManifest(t))
	require.NoError(t, err)
	assert.Contains(t, stdout, "main.js")
	assert.Contains(t, stdout, "./side")
	assert.Contains(t, stdout, "react")
}

func TestRuntimeCommand(t *testing.T) {
	stdout, _, err := run(t, "runtime")
	require.NoError(t, err)
	assert.Contains(t, stdout, "function require(id)")
}

func TestInvalidArguments(t *testing.T) {
	_, _, err := run(t, "compile")
	assert.Error(t, err)

	_, _, err = run(t, "--color", "sometimes", "compile", writeManifest(t))
	assert.Error(t, err)

	_, _, err = run(t, "--log-level", "silent", "compile", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExitCodes(t *testing.T) {
	_, _, err := run(t, "compile")
	assert.Equal(t, exitcode.Usage, exitcode.Get(err))

	_, _, err = run(t, "--log-level", "silent", "compile", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, exitcode.Input, exitcode.Get(err))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("chunks:\n  - id: a\n    units:\n      - path: a.js\n        tree: {kind: SBogus}\n"), 0644))
	_, _, err = run(t, "--log-level", "silent", "compile", bad)
	assert.Equal(t, exitcode.Failure, exitcode.Get(err))
}
