package js_ast

// The tree handed to the passes is an owned tree: each node owns its ordered
// children and keeps a weak pointer to its parent that is only used for
// navigation. A node is a tagged union where "Kind" selects the variant and
// decides how "Text", "Alias", "Number" and the children are interpreted.
// Passes dispatch with a single switch over the kind instead of one method per
// syntax construct.

import (
	"github.com/chunkpass/chunkpass/internal/logger"
)

type Kind uint8

const (
	// Statements
	SScript     Kind = iota // children: statements, or a single SModuleBody
	SModuleBody             // children: statements
	SBlock                  // children: statements
	SExpr                   // [expr]
	SLocal                  // [SDecl...], see LocalKind
	SDecl                   // [binding, init?]
	SFunction               // [BIdentifier|BMissing, BParams, SBlock]
	SClass                  // [BIdentifier|BMissing, extends|EMissing, EProperty...]
	SReturn                 // [expr?]
	SIf                     // [test, yes, no?]
	SEmpty

	// Module syntax. "Text" is the specifier for SImport, SExportFrom and
	// SExportStar. Import and export specifiers carry their names in "Text"
	// and "Alias" and have no children.
	SImport        // [SImportDefault|SImportStar|SImportSpec...]
	SImportDefault // Alias: local name
	SImportStar    // Alias: local name
	SImportSpec    // Text: imported name, Alias: local name
	SExportDefault // [expr|SFunction|SClass]
	SExportClause  // [SExportSpec...]
	SExportFrom    // [SExportSpec...]
	SExportStar    // Alias: optional namespace name for "export * as ns"
	SExportDecl    // [SLocal|SFunction|SClass]
	SExportSpec    // Text: exported name, Alias: local (or imported) name

	// Expressions
	EIdentifier // Text: name
	EString     // Text: value
	ENumber     // Number
	ENull
	EUndefined
	EBoolean // FlagTrue
	EThis
	EMissing
	EDot        // [target], Text: property
	EIndex      // [target, index]
	ECall       // [callee, args...]
	ENew        // [callee, args...]
	EImportCall // [args...]
	EAssign     // [target, value], Text: operator
	EUnary      // [value], Text: operator
	EBinary     // [left, right], Text: operator
	EObject     // [EProperty...]
	EProperty   // [value], Text: key, see FlagShorthand, FlagGetter, FlagMethod
	EArray      // [items...]
	EFunction   // [BIdentifier|BMissing, BParams, SBlock]
	EArrow      // [BParams, SBlock|expr]
	EClass      // [BIdentifier|BMissing, extends|EMissing, EProperty...]

	// Bindings
	BIdentifier // Text: name
	BObject     // [BProperty...]
	BProperty   // [binding], Text: key
	BArray      // [binding|BMissing...]
	BMissing
	BParams // [binding...]
)

var kindNames = [...]string{
	SScript:        "SScript",
	SModuleBody:    "SModuleBody",
	SBlock:         "SBlock",
	SExpr:          "SExpr",
	SLocal:         "SLocal",
	SDecl:          "SDecl",
	SFunction:      "SFunction",
	SClass:         "SClass",
	SReturn:        "SReturn",
	SIf:            "SIf",
	SEmpty:         "SEmpty",
	SImport:        "SImport",
	SImportDefault: "SImportDefault",
	SImportStar:    "SImportStar",
	SImportSpec:    "SImportSpec",
	SExportDefault: "SExportDefault",
	SExportClause:  "SExportClause",
	SExportFrom:    "SExportFrom",
	SExportStar:    "SExportStar",
	SExportDecl:    "SExportDecl",
	SExportSpec:    "SExportSpec",
	EIdentifier:    "EIdentifier",
	EString:        "EString",
	ENumber:        "ENumber",
	ENull:          "ENull",
	EUndefined:     "EUndefined",
	EBoolean:       "EBoolean",
	EThis:          "EThis",
	EMissing:       "EMissing",
	EDot:           "EDot",
	EIndex:         "EIndex",
	ECall:          "ECall",
	ENew:           "ENew",
	EImportCall:    "EImportCall",
	EAssign:        "EAssign",
	EUnary:         "EUnary",
	EBinary:        "EBinary",
	EObject:        "EObject",
	EProperty:      "EProperty",
	EArray:         "EArray",
	EFunction:      "EFunction",
	EArrow:         "EArrow",
	EClass:         "EClass",
	BIdentifier:    "BIdentifier",
	BObject:        "BObject",
	BProperty:      "BProperty",
	BArray:         "BArray",
	BMissing:       "BMissing",
	BParams:        "BParams",
}

func (kind Kind) String() string {
	if int(kind) < len(kindNames) {
		return kindNames[kind]
	}
	return "Kind(?)"
}

func KindFromString(text string) (Kind, bool) {
	for kind, name := range kindNames {
		if name == text {
			return Kind(kind), true
		}
	}
	return 0, false
}

func (kind Kind) IsFunction() bool {
	return kind == SFunction || kind == EFunction || kind == EArrow
}

func (kind Kind) IsModuleSyntax() bool {
	switch kind {
	case SImport, SExportDefault, SExportClause, SExportFrom, SExportStar, SExportDecl:
		return true
	}
	return false
}

type LocalKind uint8

const (
	LocalVar LocalKind = iota
	LocalLet
	LocalConst
)

func (kind LocalKind) String() string {
	switch kind {
	case LocalLet:
		return "let"
	case LocalConst:
		return "const"
	default:
		return "var"
	}
}

type Flags uint8

const (
	// EBoolean: the literal is "true"
	FlagTrue Flags = 1 << iota

	// EProperty: printed as "{ key }"
	FlagShorthand

	// EProperty: printed as "get key() {...}", the value is an EFunction
	FlagGetter

	// EProperty: printed as "key() {...}", the value is an EFunction
	FlagMethod

	// ECall: this call was resolved by the require rewriter
	FlagResolvedRequire
)

func (f Flags) Has(flag Flags) bool {
	return (f & flag) != 0
}

type Node struct {
	parent   *Node
	children []*Node

	Text   string
	Alias  string
	Number float64
	Loc    logger.Loc
	Kind   Kind
	Local  LocalKind
	Flags  Flags
}

func NewNode(kind Kind, children ...*Node) *Node {
	n := &Node{Kind: kind}
	for _, child := range children {
		n.AppendChild(child)
	}
	return n
}

func (n *Node) Parent() *Node {
	return n.parent
}

// The returned slice must not be modified. Use the mutation methods instead
// so that parent links stay consistent.
func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) ChildCount() int {
	return len(n.children)
}

func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

func (n *Node) FirstChild() *Node {
	return n.Child(0)
}

func (n *Node) LastChild() *Node {
	return n.Child(len(n.children) - 1)
}

// Returns the position of this node among its siblings, or -1 if it's detached
func (n *Node) Index() int {
	if n.parent == nil {
		return -1
	}
	for i, child := range n.parent.children {
		if child == n {
			return i
		}
	}
	panic("Internal error: node is missing from its parent")
}

func (n *Node) Next() *Node {
	if i := n.Index(); i != -1 {
		return n.parent.Child(i + 1)
	}
	return nil
}

func (n *Node) AppendChild(child *Node) {
	child.mustBeDetached()
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) PrependChild(child *Node) {
	n.insertChildrenAt(0, []*Node{child})
}

// The children are inserted in order, so the first one ends up first
func (n *Node) PrependChildren(children []*Node) {
	n.insertChildrenAt(0, children)
}

func (n *Node) AppendChildren(children []*Node) {
	n.insertChildrenAt(len(n.children), children)
}

func (n *Node) InsertAfter(sibling *Node) {
	i := sibling.Index()
	if i == -1 {
		panic("Internal error: cannot insert after a detached node")
	}
	sibling.parent.insertChildrenAt(i+1, []*Node{n})
}

func (n *Node) InsertBefore(sibling *Node) {
	i := sibling.Index()
	if i == -1 {
		panic("Internal error: cannot insert before a detached node")
	}
	sibling.parent.insertChildrenAt(i, []*Node{n})
}

func (n *Node) insertChildrenAt(index int, children []*Node) {
	for _, child := range children {
		child.mustBeDetached()
		child.parent = n
	}
	merged := make([]*Node, 0, len(n.children)+len(children))
	merged = append(merged, n.children[:index]...)
	merged = append(merged, children...)
	merged = append(merged, n.children[index:]...)
	n.children = merged
}

// Puts "replacement" where this node was. This node ends up detached.
func (n *Node) ReplaceWith(replacement *Node) {
	i := n.Index()
	if i == -1 {
		panic("Internal error: cannot replace a detached node")
	}
	replacement.mustBeDetached()
	parent := n.parent
	parent.children[i] = replacement
	replacement.parent = parent
	n.parent = nil
}

func (n *Node) Detach() *Node {
	if i := n.Index(); i != -1 {
		parent := n.parent
		parent.children = append(parent.children[:i:i], parent.children[i+1:]...)
		n.parent = nil
	}
	return n
}

func (n *Node) RemoveChildren() []*Node {
	children := n.children
	for _, child := range children {
		child.parent = nil
	}
	n.children = nil
	return children
}

func (n *Node) mustBeDetached() {
	if n.parent != nil {
		panic("Internal error: node already has a parent")
	}
}

// Deep copy. The copy is detached.
func (n *Node) Clone() *Node {
	clone := &Node{
		Kind:   n.Kind,
		Loc:    n.Loc,
		Text:   n.Text,
		Alias:  n.Alias,
		Number: n.Number,
		Local:  n.Local,
		Flags:  n.Flags,
	}
	for _, child := range n.children {
		clone.AppendChild(child.Clone())
	}
	return clone
}

// Copies the location onto every node in the subtree that doesn't have one
func (n *Node) SrcrefTreeIfMissing(loc logger.Loc) *Node {
	if n.Loc.Start == 0 {
		n.Loc = loc
	}
	for _, child := range n.children {
		child.SrcrefTreeIfMissing(loc)
	}
	return n
}

// Walks parent links up to the top of the tree this node belongs to
func (n *Node) Root() *Node {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// A node is attached if walking its parent links ends at a script root. A
// node (or one of its ancestors) that was detached by an earlier pass ends at
// some other kind of node instead.
func (n *Node) IsAttached() bool {
	return n.Root().Kind == SScript
}

// Returns "a.b.c" for a chain of property accesses on an identifier, or ""
// for anything else
func (n *Node) QualifiedName() string {
	switch n.Kind {
	case EIdentifier:
		return n.Text
	case EDot:
		if target := n.targetQualifiedName(); target != "" {
			return target + "." + n.Text
		}
	}
	return ""
}

func (n *Node) targetQualifiedName() string {
	if len(n.children) == 0 {
		return ""
	}
	return n.children[0].QualifiedName()
}

func (n *Node) IsQualifiedName(name string) bool {
	return n.QualifiedName() == name
}

// Matches "name(...)" where name is a qualified name like "require" or
// "require.esmDefault"
func (n *Node) IsCallTo(name string) bool {
	return n.Kind == ECall && len(n.children) > 0 && n.children[0].IsQualifiedName(name)
}

func (n *Node) IsStringLiteral() bool {
	return n.Kind == EString
}

// Literal numbers including negated ones such as "-123"
func (n *Node) IsNumberLiteral() bool {
	if n.Kind == ENumber {
		return true
	}
	return n.Kind == EUnary && n.Text == "-" && len(n.children) == 1 && n.children[0].Kind == ENumber
}

func (n *Node) NumberValue() float64 {
	if n.Kind == EUnary {
		return -n.children[0].Number
	}
	return n.Number
}

// Call arguments, excluding the callee
func (n *Node) Args() []*Node {
	switch n.Kind {
	case ECall, ENew:
		if len(n.children) > 0 {
			return n.children[1:]
		}
	case EImportCall:
		return n.children
	}
	return nil
}
