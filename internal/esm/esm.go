package esm

// This pass lowers the import and export statements of one unit into calls
// to "require" plus a single export definition. For example:
//
//   import X, {y} from "m";
//   export default use(X.prop, y);
//
// becomes:
//
//   Object.defineProperties(exports, {
//     __esModule: {enumerable: true, value: true},
//     default: {enumerable: true, get: function() { return $$default; }}
//   });
//   var require$m = require("m");
//   var default$$require$m = require.esmDefault(require$m);
//   const $$default = use(default$$require$m.default.prop, require$m.y);
//
// Imported names are never copied into locals. Every read goes through the
// module object so it observes the current value of the exporting binding.

import (
	"fmt"

	"github.com/chunkpass/chunkpass/internal/ast"
	"github.com/chunkpass/chunkpass/internal/helpers"
	"github.com/chunkpass/chunkpass/internal/js_ast"
	"github.com/chunkpass/chunkpass/internal/logger"
	"github.com/chunkpass/chunkpass/internal/runtime"
)

const (
	DefaultExportName  = "$$default"
	DefaultAliasPrefix = "default$$"
	AliasPrefix        = "require$"
	ExportsName        = "exports"
	ModuleName         = "module"
)

// The name a unit binds the module object of "specifier" to when there is no
// namespace import to reuse
func AliasForSpecifier(specifier string) string {
	return AliasPrefix + helpers.MungeWithDots(specifier)
}

// A dynamic import whose target isn't a single string literal can't be
// resolved ahead of time
type DynamicImportError struct {
	Location *logger.MsgLocation
}

const dynamicImportErrorText = "file uses import() with unsupported arguments and cannot be processed"

func (e *DynamicImportError) Error() string {
	if e.Location == nil {
		return dynamicImportErrorText
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Location.File, e.Location.Line, e.Location.Column, dynamicImportErrorText)
}

type Result struct {
	// One record per distinct specifier in first-use order
	Imports []ast.ImportRecord

	// Sorted by exported name
	Exports []ast.ExportRecord

	Changed bool
	Changes js_ast.ChangeSet
}

type lowerer struct {
	script *js_ast.Node
	result Result

	// Specifiers in first-use order
	requests   []*ast.ImportRecord
	bySpec     map[string]*ast.ImportRecord
	namespaces map[string]string
	aliases    map[string]bool

	// Maps the local name of every import binding to the qualified name that
	// replaces references to it
	importedNames map[string]string

	exports map[string]ast.ExportRecord

	// The last synthesized require binding. The next one goes right after it.
	requireInsertSpot *js_ast.Node
}

// Lowers one unit in place. A unit without module syntax is left untouched,
// so lowering an already-lowered unit does nothing.
func Lower(source *logger.Source, script *js_ast.Node) (Result, error) {
	if script.Kind != js_ast.SScript {
		panic("Internal error: expected a script")
	}

	body, ok := moduleStatements(script)
	if !ok {
		return Result{}, nil
	}

	// Check everything that can fail before changing anything
	if err := checkDynamicImports(source, script); err != nil {
		return Result{}, err
	}

	l := &lowerer{
		script:        script,
		bySpec:        make(map[string]*ast.ImportRecord),
		namespaces:    make(map[string]string),
		aliases:       make(map[string]bool),
		importedNames: make(map[string]string),
		exports:       make(map[string]ast.ExportRecord),
	}
	l.registerImports(body)
	l.rewriteReferences()
	l.lowerStatements(body)

	for _, record := range l.exports {
		l.result.Exports = append(l.result.Exports, record)
	}
	ast.SortExports(l.result.Exports)

	l.flatten()
	l.addRequireCalls()
	l.addExportDef()

	l.result.Changed = true
	for _, record := range l.requests {
		l.result.Imports = append(l.result.Imports, *record)
	}
	return l.result, nil
}

// Returns the top-level statements of a unit that uses module syntax
func moduleStatements(script *js_ast.Node) ([]*js_ast.Node, bool) {
	if body := script.FirstChild(); script.ChildCount() == 1 && body.Kind == js_ast.SModuleBody {
		return body.Children(), true
	}
	for _, stmt := range script.Children() {
		if stmt.Kind.IsModuleSyntax() {
			return script.Children(), true
		}
	}
	return nil, false
}

func checkDynamicImports(source *logger.Source, script *js_ast.Node) error {
	var bad *js_ast.Node
	js_ast.Walk(script, func(n *js_ast.Node) bool {
		if bad != nil {
			return false
		}
		if n.Kind == js_ast.EImportCall {
			if args := n.Args(); len(args) != 1 || args[0].Kind != js_ast.EString {
				bad = n
				return false
			}
		}
		return true
	})
	if bad == nil {
		return nil
	}
	return &DynamicImportError{Location: logger.LocationOrNil(source, logger.Range{Loc: bad.Loc, Len: int32(len("import"))})}
}

// Assigns one alias per specifier. The first "import * as ns" of a specifier
// names the alias. Otherwise the alias is derived from the specifier.
func (l *lowerer) registerImports(stmts []*js_ast.Node) {
	for _, stmt := range stmts {
		if stmt.Kind != js_ast.SImport {
			continue
		}
		for _, part := range stmt.Children() {
			if part.Kind == js_ast.SImportStar {
				if _, ok := l.namespaces[stmt.Text]; !ok {
					l.namespaces[stmt.Text] = part.Alias
					l.aliases[part.Alias] = true
				}
			}
		}
	}

	for _, stmt := range stmts {
		switch stmt.Kind {
		case js_ast.SImport:
			record := l.request(stmt.Text, ast.ImportStmt, stmt.Loc)
			if stmt.ChildCount() == 0 {
				record.Flags |= ast.WasOriginallyBareImport
			}
			for _, part := range stmt.Children() {
				switch part.Kind {
				case js_ast.SImportDefault:
					record.Flags |= ast.ContainsDefaultAlias
					record.DefaultAlias = DefaultAliasPrefix + record.Alias
					l.importedNames[part.Alias] = record.DefaultAlias + ".default"

				case js_ast.SImportStar:
					record.Flags |= ast.ContainsImportStar
					l.importedNames[part.Alias] = record.Alias

				case js_ast.SImportSpec:
					if part.Text == "default" {
						record.Flags |= ast.ContainsDefaultAlias
					}
					l.importedNames[part.Alias] = record.Alias + "." + part.Text
				}
			}

		case js_ast.SExportFrom:
			l.request(stmt.Text, ast.ImportReExport, stmt.Loc)

		case js_ast.SExportStar:
			record := l.request(stmt.Text, ast.ImportReExport, stmt.Loc)
			if stmt.Alias == "" {
				record.Flags |= ast.CallsRunTimeReExportFn
			} else {
				record.Flags |= ast.ContainsImportStar
			}
		}
	}
}

func (l *lowerer) request(specifier string, kind ast.ImportKind, loc logger.Loc) *ast.ImportRecord {
	if record, ok := l.bySpec[specifier]; ok {
		return record
	}
	alias, ok := l.namespaces[specifier]
	if !ok {
		alias = l.uniqueAlias(AliasForSpecifier(specifier))
	}
	l.aliases[alias] = true
	record := &ast.ImportRecord{
		Specifier: specifier,
		Alias:     alias,
		Kind:      kind,
		Range:     logger.Range{Loc: loc},
	}
	l.requests = append(l.requests, record)
	l.bySpec[specifier] = record
	return record
}

// Munging is lossy ("a-b" and "a_b" munge the same), so a second specifier
// with the same munged alias gets a numbered one
func (l *lowerer) uniqueAlias(base string) string {
	alias := base
	for i := 2; l.aliases[alias]; i++ {
		alias = fmt.Sprintf("%s$%d", base, i)
	}
	return alias
}

// Rewrites every reference that resolves to a module-level import binding.
// Names shadowed by a parameter or a nested declaration are left alone.
func (l *lowerer) rewriteReferences() {
	if len(l.importedNames) == 0 {
		return
	}
	js_ast.Traverse(l.script, js_ast.PostOrderCallback(func(t *js_ast.Traversal, n *js_ast.Node) {
		if n.Kind != js_ast.EIdentifier {
			return
		}
		qname, ok := l.importedNames[n.Text]
		if !ok {
			return
		}
		scope, kind := t.Scope().Lookup(n.Text)
		if scope == nil || scope.Kind != js_ast.ScopeModule || kind != js_ast.BindingImport {
			return
		}

		// "{x}" must become "{x: require$m.x}"
		if parent := n.Parent(); parent != nil && parent.Kind == js_ast.EProperty {
			parent.Flags &^= js_ast.FlagShorthand
		}

		replacement := js_ast.QName(qname).SrcrefTreeIfMissing(n.Loc)
		n.ReplaceWith(replacement)
		l.result.Changes.Report(replacement)
	}))
}

func (l *lowerer) lowerStatements(stmts []*js_ast.Node) {
	// The statements are detached and replaced as we go
	stmts = append([]*js_ast.Node(nil), stmts...)

	for _, stmt := range stmts {
		switch stmt.Kind {
		case js_ast.SImport:
			stmt.Detach()

		case js_ast.SExportDefault:
			l.lowerExportDefault(stmt)

		case js_ast.SExportClause:
			for _, spec := range stmt.Children() {
				local := spec.Alias
				if qname, ok := l.importedNames[local]; ok {
					local = qname
				}
				l.addExport(spec.Text, local, spec.Loc)
			}
			stmt.Detach()

		case js_ast.SExportFrom:
			alias := l.bySpec[stmt.Text].Alias
			for _, spec := range stmt.Children() {
				l.addExport(spec.Text, alias+"."+spec.Alias, spec.Loc)
			}
			stmt.Detach()

		case js_ast.SExportStar:
			alias := l.bySpec[stmt.Text].Alias
			if stmt.Alias != "" {
				l.addExport(stmt.Alias, alias, stmt.Loc)
				stmt.Detach()
				continue
			}

			// Copies the properties the module has when this runs. Later
			// additions to that module's exports are not reflected.
			call := js_ast.ExprStmt(js_ast.Call(
				js_ast.QName(runtime.ExportCopy),
				js_ast.Name(ModuleName),
				js_ast.Name(alias),
			)).SrcrefTreeIfMissing(stmt.Loc)
			stmt.ReplaceWith(call)

		case js_ast.SExportDecl:
			decl := stmt.FirstChild()
			switch decl.Kind {
			case js_ast.SLocal:
				for _, name := range js_ast.DeclaredNames(decl) {
					l.addExport(name, name, decl.Loc)
				}
			case js_ast.SFunction, js_ast.SClass:
				for _, name := range js_ast.DeclaredNames(decl) {
					l.addExport(name, name, stmt.Loc)
				}
			}
			decl.Detach()
			stmt.ReplaceWith(decl)
		}
	}
	l.result.Changes.Report(l.script)
}

func (l *lowerer) lowerExportDefault(stmt *js_ast.Node) {
	value := stmt.FirstChild()

	if value.Kind == js_ast.SFunction || value.Kind == js_ast.SClass {
		if name := value.FirstChild(); name.Kind == js_ast.BIdentifier {
			value.Detach()
			stmt.ReplaceWith(value)
			l.addExport("default", name.Text, stmt.Loc)
			return
		}

		// An anonymous declaration has the same layout as the expression
		if value.Kind == js_ast.SFunction {
			value.Kind = js_ast.EFunction
		} else {
			value.Kind = js_ast.EClass
		}
	}

	// "const" keeps the temporal dead zone of the original export, so reading
	// it before this statement runs throws instead of returning undefined
	value.Detach()
	decl := js_ast.Const(DefaultExportName, value).SrcrefTreeIfMissing(stmt.Loc)
	stmt.ReplaceWith(decl)
	l.addExport("default", DefaultExportName, stmt.Loc)
}

func (l *lowerer) addExport(exported string, local string, loc logger.Loc) {
	l.exports[exported] = ast.ExportRecord{Exported: exported, Local: local, Loc: loc}
}

// Splices the module body into the script so the unit becomes a plain script
func (l *lowerer) flatten() {
	if body := l.script.FirstChild(); l.script.ChildCount() == 1 && body.Kind == js_ast.SModuleBody {
		body.Detach()
		l.script.PrependChildren(body.RemoveChildren())
	}
}

// Emits one require binding per specifier in first-use order. The default
// unwrap binding of a specifier comes right after its require binding.
func (l *lowerer) addRequireCalls() {
	for _, record := range l.requests {
		loc := record.Range.Loc

		call := js_ast.Call(js_ast.Name(runtime.Require), js_ast.Str(record.Specifier))
		l.insertRequire(js_ast.Var(record.Alias, call).SrcrefTreeIfMissing(loc))

		if record.DefaultAlias != "" {
			wrap := js_ast.Call(js_ast.QName(runtime.EsmDefault), js_ast.Name(record.Alias))
			l.insertRequire(js_ast.Var(record.DefaultAlias, wrap).SrcrefTreeIfMissing(loc))
		}
	}
}

func (l *lowerer) insertRequire(decl *js_ast.Node) {
	if l.requireInsertSpot == nil {
		l.script.PrependChild(decl)
	} else {
		decl.InsertAfter(l.requireInsertSpot)
	}
	l.requireInsertSpot = decl
}

// Defines one getter per export on the exports object. The getters read the
// binding on every access, which keeps exports live. The definition goes
// first so a cyclic require sees the getters even before the rest of the
// unit has run.
func (l *lowerer) addExportDef() {
	if len(l.result.Exports) == 0 {
		return
	}

	props := js_ast.Object(js_ast.Property("__esModule", js_ast.Object(
		js_ast.Property("enumerable", js_ast.True()),
		js_ast.Property("value", js_ast.True()),
	)))

	for _, record := range l.result.Exports {
		getter := js_ast.Function("", js_ast.Params(), js_ast.Return(js_ast.QName(record.Local)))
		getter.SrcrefTreeIfMissing(record.Loc)
		props.AppendChild(js_ast.Property(record.Exported, js_ast.Object(
			js_ast.Property("enumerable", js_ast.True()),
			js_ast.Property("get", getter),
		)))
	}

	def := js_ast.ExprStmt(js_ast.Call(
		js_ast.QName("Object.defineProperties"),
		js_ast.Name(ExportsName),
		props,
	))
	l.script.PrependChild(def)
	l.result.Changes.Report(def)
}
