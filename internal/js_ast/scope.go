package js_ast

type ScopeKind uint8

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeBlock
)

type BindingKind uint8

const (
	BindingVar BindingKind = iota
	BindingLexical
	BindingFunction
	BindingClass
	BindingParam
	BindingImport
)

// Scopes are rebuilt from the tree on every traversal. The passes only need
// to answer one question ("does this name refer to the module-level import
// or to something closer?") so nothing is cached on the nodes themselves.
type Scope struct {
	Parent   *Scope
	Node     *Node
	bindings map[string]BindingKind
	Kind     ScopeKind
}

func newScope(kind ScopeKind, node *Node, parent *Scope) *Scope {
	return &Scope{Kind: kind, Node: node, Parent: parent, bindings: make(map[string]BindingKind)}
}

func (s *Scope) declare(name string, kind BindingKind) {
	// Parameters and imports win over later "var" redeclarations of the same name
	if existing, ok := s.bindings[name]; ok && (existing == BindingParam || existing == BindingImport) && kind == BindingVar {
		return
	}
	s.bindings[name] = kind
}

// Finds the closest scope that declares "name". Returns nil if the name is
// a global.
func (s *Scope) Lookup(name string) (*Scope, BindingKind) {
	for scope := s; scope != nil; scope = scope.Parent {
		if kind, ok := scope.bindings[name]; ok {
			return scope, kind
		}
	}
	return nil, 0
}

func newModuleScope(script *Node) *Scope {
	scope := newScope(ScopeModule, script, nil)
	stmts := script.children
	if len(stmts) == 1 && stmts[0].Kind == SModuleBody {
		stmts = stmts[0].children
	}
	declareStatements(scope, stmts)
	return scope
}

func newFunctionScope(fn *Node, parent *Scope) *Scope {
	scope := newScope(ScopeFunction, fn, parent)
	var params, body *Node
	switch fn.Kind {
	case SFunction, EFunction:
		params, body = fn.Child(1), fn.Child(2)

		// A named function expression can refer to itself by name
		if name := fn.Child(0); fn.Kind == EFunction && name.Kind == BIdentifier {
			scope.declare(name.Text, BindingFunction)
		}
	case EArrow:
		params, body = fn.Child(0), fn.Child(1)
	}
	if params != nil {
		for _, name := range BindingNames(params, nil) {
			scope.declare(name, BindingParam)
		}
	}
	if body != nil && body.Kind == SBlock {
		declareStatements(scope, body.children)
	}
	return scope
}

func newBlockScope(block *Node, parent *Scope) *Scope {
	scope := newScope(ScopeBlock, block, parent)
	for _, stmt := range block.children {
		declareLexical(scope, stmt)
	}
	return scope
}

// Declares everything a function body or module body introduces: hoisted
// "var" declarations from any nested block plus its own lexical declarations
func declareStatements(scope *Scope, stmts []*Node) {
	for _, stmt := range stmts {
		declareVars(scope, stmt)
		declareLexical(scope, stmt)
	}
}

func declareLexical(scope *Scope, stmt *Node) {
	switch stmt.Kind {
	case SLocal:
		if stmt.Local != LocalVar {
			for _, name := range DeclaredNames(stmt) {
				scope.declare(name, BindingLexical)
			}
		}
	case SFunction:
		for _, name := range DeclaredNames(stmt) {
			scope.declare(name, BindingFunction)
		}
	case SClass:
		for _, name := range DeclaredNames(stmt) {
			scope.declare(name, BindingClass)
		}
	case SImport:
		for _, part := range stmt.children {
			scope.declare(part.Alias, BindingImport)
		}
	case SExportDecl:
		declareLexical(scope, stmt.children[0])
	case SExportDefault:
		if decl := stmt.children[0]; decl.Kind == SFunction || decl.Kind == SClass {
			declareLexical(scope, decl)
		}
	}
}

func declareVars(scope *Scope, stmt *Node) {
	switch stmt.Kind {
	case SLocal:
		if stmt.Local == LocalVar {
			for _, name := range DeclaredNames(stmt) {
				scope.declare(name, BindingVar)
			}
		}
	case SBlock, SIf:
		for _, child := range stmt.children {
			declareVars(scope, child)
		}
	case SExportDecl:
		declareVars(scope, stmt.children[0])
	}
}
