package js_ast

import (
	"strings"
)

// Constructors for synthesized nodes. Passes build replacement code with
// these instead of filling in node fields by hand.

func Script(stmts ...*Node) *Node {
	return NewNode(SScript, stmts...)
}

func ModuleBody(stmts ...*Node) *Node {
	return NewNode(SModuleBody, stmts...)
}

func Block(stmts ...*Node) *Node {
	return NewNode(SBlock, stmts...)
}

func ExprStmt(value *Node) *Node {
	return NewNode(SExpr, value)
}

func Empty() *Node {
	return &Node{Kind: SEmpty}
}

func Return(value *Node) *Node {
	if value == nil {
		return &Node{Kind: SReturn}
	}
	return NewNode(SReturn, value)
}

func If(test *Node, yes *Node, no *Node) *Node {
	n := NewNode(SIf, test, yes)
	if no != nil {
		n.AppendChild(no)
	}
	return n
}

func Local(kind LocalKind, binding *Node, init *Node) *Node {
	decl := NewNode(SDecl, binding)
	if init != nil {
		decl.AppendChild(init)
	}
	n := NewNode(SLocal, decl)
	n.Local = kind
	return n
}

// "var name = init;"
func Var(name string, init *Node) *Node {
	return Local(LocalVar, Binding(name), init)
}

func Let(name string, init *Node) *Node {
	return Local(LocalLet, Binding(name), init)
}

func Const(name string, init *Node) *Node {
	return Local(LocalConst, Binding(name), init)
}

func Binding(name string) *Node {
	return &Node{Kind: BIdentifier, Text: name}
}

func MissingBinding() *Node {
	return &Node{Kind: BMissing}
}

func Params(names ...string) *Node {
	n := &Node{Kind: BParams}
	for _, name := range names {
		n.AppendChild(Binding(name))
	}
	return n
}

func FunctionDecl(name string, params *Node, body ...*Node) *Node {
	return NewNode(SFunction, Binding(name), params, Block(body...))
}

// An anonymous function expression when name is ""
func Function(name string, params *Node, body ...*Node) *Node {
	nameNode := MissingBinding()
	if name != "" {
		nameNode = Binding(name)
	}
	return NewNode(EFunction, nameNode, params, Block(body...))
}

func Arrow(params *Node, body *Node) *Node {
	return NewNode(EArrow, params, body)
}

func ClassDecl(name string, extends *Node, members ...*Node) *Node {
	if extends == nil {
		extends = Missing()
	}
	n := NewNode(SClass, Binding(name), extends)
	n.AppendChildren(members)
	return n
}

func Class(name string, extends *Node, members ...*Node) *Node {
	nameNode := MissingBinding()
	if name != "" {
		nameNode = Binding(name)
	}
	if extends == nil {
		extends = Missing()
	}
	n := NewNode(EClass, nameNode, extends)
	n.AppendChildren(members)
	return n
}

func Name(name string) *Node {
	return &Node{Kind: EIdentifier, Text: name}
}

// Builds "a.b.c" as an identifier followed by property accesses
func QName(qname string) *Node {
	parts := strings.Split(qname, ".")
	n := Name(parts[0])
	for _, part := range parts[1:] {
		n = Dot(n, part)
	}
	return n
}

func Str(value string) *Node {
	return &Node{Kind: EString, Text: value}
}

func Num(value float64) *Node {
	if value < 0 {
		return Unary("-", &Node{Kind: ENumber, Number: -value})
	}
	return &Node{Kind: ENumber, Number: value}
}

func Null() *Node {
	return &Node{Kind: ENull}
}

func Undefined() *Node {
	return &Node{Kind: EUndefined}
}

func Bool(value bool) *Node {
	n := &Node{Kind: EBoolean}
	if value {
		n.Flags |= FlagTrue
	}
	return n
}

func True() *Node {
	return Bool(true)
}

func This() *Node {
	return &Node{Kind: EThis}
}

func Missing() *Node {
	return &Node{Kind: EMissing}
}

func Dot(target *Node, property string) *Node {
	n := NewNode(EDot, target)
	n.Text = property
	return n
}

func Index(target *Node, index *Node) *Node {
	return NewNode(EIndex, target, index)
}

func Call(callee *Node, args ...*Node) *Node {
	n := NewNode(ECall, callee)
	n.AppendChildren(args)
	return n
}

func New(callee *Node, args ...*Node) *Node {
	n := NewNode(ENew, callee)
	n.AppendChildren(args)
	return n
}

func ImportCall(args ...*Node) *Node {
	return NewNode(EImportCall, args...)
}

func Assign(target *Node, value *Node) *Node {
	n := NewNode(EAssign, target, value)
	n.Text = "="
	return n
}

func Unary(op string, value *Node) *Node {
	n := NewNode(EUnary, value)
	n.Text = op
	return n
}

func Binary(op string, left *Node, right *Node) *Node {
	n := NewNode(EBinary, left, right)
	n.Text = op
	return n
}

func Object(props ...*Node) *Node {
	return NewNode(EObject, props...)
}

func Property(key string, value *Node) *Node {
	n := NewNode(EProperty, value)
	n.Text = key
	return n
}

func Shorthand(name string) *Node {
	n := Property(name, Name(name))
	n.Flags |= FlagShorthand
	return n
}

func Getter(key string, body ...*Node) *Node {
	n := Property(key, Function("", Params(), body...))
	n.Flags |= FlagGetter
	return n
}

func Array(items ...*Node) *Node {
	return NewNode(EArray, items...)
}

func Import(specifier string, parts ...*Node) *Node {
	n := NewNode(SImport, parts...)
	n.Text = specifier
	return n
}

func ImportDefault(local string) *Node {
	return &Node{Kind: SImportDefault, Alias: local}
}

func ImportStar(local string) *Node {
	return &Node{Kind: SImportStar, Alias: local}
}

func ImportSpec(imported string, local string) *Node {
	return &Node{Kind: SImportSpec, Text: imported, Alias: local}
}

func ExportDefault(value *Node) *Node {
	return NewNode(SExportDefault, value)
}

func ExportSpec(local string, exported string) *Node {
	return &Node{Kind: SExportSpec, Text: exported, Alias: local}
}

func ExportClause(specs ...*Node) *Node {
	return NewNode(SExportClause, specs...)
}

func ExportFrom(specifier string, specs ...*Node) *Node {
	n := NewNode(SExportFrom, specs...)
	n.Text = specifier
	return n
}

func ExportStar(specifier string, alias string) *Node {
	return &Node{Kind: SExportStar, Text: specifier, Alias: alias}
}

func ExportDecl(decl *Node) *Node {
	return NewNode(SExportDecl, decl)
}

// Collects every name bound by a binding pattern, in source order
func BindingNames(binding *Node, names []string) []string {
	switch binding.Kind {
	case BIdentifier:
		names = append(names, binding.Text)
	case BObject, BArray, BParams:
		for _, child := range binding.children {
			names = BindingNames(child, names)
		}
	case BProperty:
		if len(binding.children) > 0 {
			names = BindingNames(binding.children[0], names)
		}
	}
	return names
}

// Returns the names declared by an SLocal, SFunction or SClass statement
func DeclaredNames(stmt *Node) []string {
	switch stmt.Kind {
	case SLocal:
		var names []string
		for _, decl := range stmt.children {
			names = BindingNames(decl.children[0], names)
		}
		return names
	case SFunction, SClass:
		if name := stmt.FirstChild(); name != nil && name.Kind == BIdentifier {
			return []string{name.Text}
		}
	}
	return nil
}

// Splits "a.b.c" into "a.b" and "c"
func SplitQualifiedName(qname string) (string, string) {
	if i := strings.LastIndexByte(qname, '.'); i != -1 {
		return qname[:i], qname[i+1:]
	}
	return "", qname
}
