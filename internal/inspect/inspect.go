package inspect

// Inspection takes a unit before any pass has run and lists everything it
// depends on, similar to "detective" for node. The build orchestrator uses
// this to find more inputs before lowering starts. Nothing here mutates the
// tree, so any number of units can be inspected at the same time.

import (
	"runtime"

	"github.com/hashicorp/go-multierror"
	"github.com/sourcegraph/conc/pool"

	"github.com/chunkpass/chunkpass/internal/ast"
	"github.com/chunkpass/chunkpass/internal/esm"
	"github.com/chunkpass/chunkpass/internal/graph"
	"github.com/chunkpass/chunkpass/internal/js_ast"
	"github.com/chunkpass/chunkpass/internal/logger"
)

// A string that names another file. The orchestrator rewrites these in the
// source text so it needs to know where each one is.
type StringOffset struct {
	Text   string
	Loc    logger.Loc
	Import bool
}

type Info struct {
	Path string

	// Every dependency in source order. Kinds are ImportRequire,
	// ImportDynamic, ImportStmt and ImportReExport.
	Records []ast.ImportRecord

	Requires       []string
	Imports        []string
	DynamicImports []string

	// "require(x)" calls whose argument isn't a string
	InvalidRequires []logger.MsgLocation

	StrOffsets []StringOffset

	// The unit has at least one import or export statement
	ESM bool

	UsesGlobalBuffer  bool
	UsesGlobalProcess bool
}

type inspector struct {
	source *logger.Source
	info   Info
	err    error
}

func Inspect(source *logger.Source, script *js_ast.Node) (Info, error) {
	in := &inspector{source: source}
	in.info.Path = source.KeyPath
	js_ast.Traverse(script, in)
	if in.err != nil {
		return Info{}, in.err
	}
	return in.info, nil
}

func (in *inspector) ShouldTraverse(t *js_ast.Traversal, n *js_ast.Node) bool {
	if in.err != nil {
		return false
	}
	switch n.Kind {
	case js_ast.SFunction, js_ast.EFunction, js_ast.EArrow:
		// Non-minified browserify bundles wrap each file in
		// "function(require, module, exports) {...}". Those are not ours.
		params := n.Child(1)
		if n.Kind == js_ast.EArrow {
			params = n.Child(0)
		}
		for _, name := range js_ast.BindingNames(params, nil) {
			if name == "require" {
				return false
			}
		}
	case js_ast.ECall:
		return !n.IsCallTo("require.ensure")
	}
	return true
}

func (in *inspector) Visit(t *js_ast.Traversal, n *js_ast.Node) {
	if in.err != nil {
		return
	}
	if n.Kind.IsModuleSyntax() {
		in.info.ESM = true
	}

	switch n.Kind {
	case js_ast.ECall:
		if !n.IsCallTo("require") {
			return
		}
		args := n.Args()
		if len(args) > 0 && args[0].IsStringLiteral() {
			in.info.Requires = append(in.info.Requires, args[0].Text)
			in.record(ast.ImportRequire, args[0].Text, args[0].Loc)
			in.offset(args[0].Text, args[0].Loc, false)
		} else if loc := logger.LocationOrNil(in.source, logger.Range{Loc: n.Loc}); loc != nil {
			in.info.InvalidRequires = append(in.info.InvalidRequires, *loc)
		}

	case js_ast.SImport:
		in.info.Imports = append(in.info.Imports, n.Text)
		in.record(ast.ImportStmt, n.Text, n.Loc)
		in.offset(n.Text, n.Loc, true)

	case js_ast.SExportFrom, js_ast.SExportStar:
		in.info.Imports = append(in.info.Imports, n.Text)
		in.record(ast.ImportReExport, n.Text, n.Loc)
		in.offset(n.Text, n.Loc, true)

	case js_ast.EImportCall:
		args := n.Args()
		if len(args) != 1 || !args[0].IsStringLiteral() {
			in.err = &esm.DynamicImportError{Location: logger.LocationOrNil(in.source, logger.Range{Loc: n.Loc, Len: int32(len("import"))})}
			return
		}
		in.info.DynamicImports = append(in.info.DynamicImports, args[0].Text)
		in.record(ast.ImportDynamic, args[0].Text, args[0].Loc)
		in.offset(args[0].Text, args[0].Loc, false)

	case js_ast.EIdentifier:
		if !isGlobalReference(t, n) {
			return
		}
		switch n.Text {
		case "Buffer":
			in.info.UsesGlobalBuffer = true
		case "process":
			// "process.env.NODE_ENV" is inlined later and doesn't need the
			// process polyfill
			if !isNodeEnv(n) {
				in.info.UsesGlobalProcess = true
			}
		}
	}
}

func (in *inspector) record(kind ast.ImportKind, specifier string, loc logger.Loc) {
	in.info.Records = append(in.info.Records, ast.ImportRecord{
		Kind:      kind,
		Specifier: specifier,
		Range:     logger.Range{Loc: loc},
	})
}

func (in *inspector) offset(text string, loc logger.Loc, isImport bool) {
	in.info.StrOffsets = append(in.info.StrOffsets, StringOffset{Text: text, Loc: loc, Import: isImport})
}

// Identifiers in binding position are BIdentifier nodes, so every
// EIdentifier is a read or a write of some variable
func isGlobalReference(t *js_ast.Traversal, n *js_ast.Node) bool {
	if n.Text != "Buffer" && n.Text != "process" {
		return false
	}
	scope, _ := t.Scope().Lookup(n.Text)
	return scope == nil
}

func isNodeEnv(n *js_ast.Node) bool {
	env := n.Parent()
	if env == nil || env.Kind != js_ast.EDot {
		return false
	}
	full := env.Parent()
	return full != nil && full.IsQualifiedName("process.env.NODE_ENV")
}

// Inspects every unit using up to "parallelism" goroutines, or one per CPU
// when "parallelism" is zero. Results are in the same order as "units". All
// failures are returned together.
func InspectAll(units []*graph.CompilationUnit, parallelism int) ([]Info, error) {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	infos := make([]Info, len(units))
	errs := make([]error, len(units))
	p := pool.New().WithMaxGoroutines(parallelism)
	for i, unit := range units {
		p.Go(func() {
			infos[i], errs[i] = Inspect(&unit.Source, unit.Tree)
		})
	}
	p.Wait()

	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return infos, result.ErrorOrNil()
}
