package js_printer

// This printer turns a tree back into JavaScript. It exists for tests, for
// the command-line tool and for fingerprinting pass output, so it always
// prints the same tree the same way and favors readability over size. It is
// not a general-purpose code generator: there is no minification and no
// source map support.

import (
	"math"
	"strconv"
	"strings"

	"github.com/chunkpass/chunkpass/internal/helpers"
	"github.com/chunkpass/chunkpass/internal/js_ast"
)

type Options struct {
	// Number of levels to indent the top level by
	Indent int
}

type printer struct {
	js      []byte
	options Options
}

// Prints a script, a module body, a block or any single statement. Each
// statement ends with a newline.
func Print(n *js_ast.Node, options Options) string {
	p := &printer{options: options}
	switch n.Kind {
	case js_ast.SScript, js_ast.SModuleBody:
		p.printStmts(n.Children())
	default:
		p.printStmt(n)
	}
	return string(p.js)
}

func PrintExpr(n *js_ast.Node) string {
	p := &printer{}
	p.printExpr(n, levelLowest)
	return string(p.js)
}

func (p *printer) print(text string) {
	p.js = append(p.js, text...)
}

func (p *printer) printIndent() {
	for i := 0; i < p.options.Indent; i++ {
		p.print("  ")
	}
}

func (p *printer) printNewline() {
	p.print("\n")
}

func (p *printer) printQuoted(text string) {
	p.print(helpers.QuoteForJS(text))
}

func (p *printer) printStmts(stmts []*js_ast.Node) {
	for _, stmt := range stmts {
		p.printStmt(stmt)
	}
}

func (p *printer) printBlock(block *js_ast.Node) {
	if block.ChildCount() == 0 {
		p.print("{}")
		return
	}
	p.print("{")
	p.printNewline()
	p.options.Indent++
	p.printStmts(block.Children())
	p.options.Indent--
	p.printIndent()
	p.print("}")
}

func (p *printer) printStmt(n *js_ast.Node) {
	switch n.Kind {
	case js_ast.SModuleBody:
		p.printStmts(n.Children())
		return

	case js_ast.SScript:
		p.printStmts(n.Children())
		return
	}

	p.printIndent()

	switch n.Kind {
	case js_ast.SBlock:
		p.printBlock(n)

	case js_ast.SEmpty:
		p.print(";")

	case js_ast.SExpr:
		value := n.FirstChild()
		if startsWithKeywordOrBrace(value) {
			p.print("(")
			p.printExpr(value, levelLowest)
			p.print(")")
		} else {
			p.printExpr(value, levelLowest)
		}
		p.print(";")

	case js_ast.SLocal:
		p.printLocal(n)
		p.print(";")

	case js_ast.SFunction:
		p.printFn(n)

	case js_ast.SClass:
		p.printClass(n)

	case js_ast.SReturn:
		p.print("return")
		if value := n.FirstChild(); value != nil {
			p.print(" ")
			p.printExpr(value, levelLowest)
		}
		p.print(";")

	case js_ast.SIf:
		p.printIf(n)

	case js_ast.SImport:
		p.printImport(n)

	case js_ast.SExportDefault:
		p.print("export default ")
		value := n.FirstChild()
		switch value.Kind {
		case js_ast.SFunction:
			p.printFn(value)
		case js_ast.SClass:
			p.printClass(value)
		default:
			p.printExpr(value, levelComma)
			p.print(";")
		}

	case js_ast.SExportClause:
		p.print("export ")
		p.printExportSpecs(n)
		p.print(";")

	case js_ast.SExportFrom:
		p.print("export ")
		p.printExportSpecs(n)
		p.print(" from ")
		p.printQuoted(n.Text)
		p.print(";")

	case js_ast.SExportStar:
		p.print("export *")
		if n.Alias != "" {
			p.print(" as ")
			p.print(n.Alias)
		}
		p.print(" from ")
		p.printQuoted(n.Text)
		p.print(";")

	case js_ast.SExportDecl:
		p.print("export ")
		decl := n.FirstChild()
		switch decl.Kind {
		case js_ast.SLocal:
			p.printLocal(decl)
			p.print(";")
		case js_ast.SFunction:
			p.printFn(decl)
		case js_ast.SClass:
			p.printClass(decl)
		}

	default:
		panic("Internal error: unexpected statement " + n.Kind.String())
	}

	p.printNewline()
}

func (p *printer) printIf(n *js_ast.Node) {
	p.print("if (")
	p.printExpr(n.Child(0), levelLowest)
	p.print(") ")
	p.printNestedStmt(n.Child(1))
	if no := n.Child(2); no != nil {
		p.print(" else ")
		if no.Kind == js_ast.SIf {
			p.printIf(no)
		} else {
			p.printNestedStmt(no)
		}
	}
}

// Prints a statement that follows "if (...)" or "else" on the same line
func (p *printer) printNestedStmt(n *js_ast.Node) {
	if n.Kind == js_ast.SBlock {
		p.printBlock(n)
		return
	}
	p.printBlock(js_ast.Block(n.Clone()))
}

func (p *printer) printLocal(n *js_ast.Node) {
	p.print(n.Local.String())
	p.print(" ")
	for i, decl := range n.Children() {
		if i > 0 {
			p.print(", ")
		}
		p.printBinding(decl.Child(0))
		if init := decl.Child(1); init != nil {
			p.print(" = ")
			p.printExpr(init, levelComma)
		}
	}
}

func (p *printer) printImport(n *js_ast.Node) {
	p.print("import ")
	var defaultName, starName string
	var specs []*js_ast.Node
	for _, part := range n.Children() {
		switch part.Kind {
		case js_ast.SImportDefault:
			defaultName = part.Alias
		case js_ast.SImportStar:
			starName = part.Alias
		case js_ast.SImportSpec:
			specs = append(specs, part)
		}
	}

	if defaultName == "" && starName == "" && len(specs) == 0 {
		p.printQuoted(n.Text)
		p.print(";")
		return
	}

	needsComma := false
	if defaultName != "" {
		p.print(defaultName)
		needsComma = true
	}
	if starName != "" {
		if needsComma {
			p.print(", ")
		}
		p.print("* as ")
		p.print(starName)
		needsComma = true
	}
	if len(specs) > 0 {
		if needsComma {
			p.print(", ")
		}
		p.print("{")
		for i, spec := range specs {
			if i > 0 {
				p.print(", ")
			}
			p.printSpecName(spec.Text)
			if spec.Alias != spec.Text {
				p.print(" as ")
				p.print(spec.Alias)
			}
		}
		p.print("}")
	}
	p.print(" from ")
	p.printQuoted(n.Text)
	p.print(";")
}

func (p *printer) printExportSpecs(n *js_ast.Node) {
	p.print("{")
	for i, spec := range n.Children() {
		if i > 0 {
			p.print(", ")
		}
		p.printSpecName(spec.Alias)
		if spec.Text != spec.Alias {
			p.print(" as ")
			p.printSpecName(spec.Text)
		}
	}
	p.print("}")
}

// Module export names may be arbitrary strings
func (p *printer) printSpecName(name string) {
	if js_ast.IsIdentifierName(name) {
		p.print(name)
	} else {
		p.printQuoted(name)
	}
}

func (p *printer) printFn(n *js_ast.Node) {
	p.print("function")
	if name := n.Child(0); name.Kind == js_ast.BIdentifier {
		p.print(" ")
		p.print(name.Text)
	}
	p.printParams(n.Child(1))
	p.print(" ")
	p.printBlock(n.Child(2))
}

func (p *printer) printParams(params *js_ast.Node) {
	p.print("(")
	for i, param := range params.Children() {
		if i > 0 {
			p.print(", ")
		}
		p.printBinding(param)
	}
	p.print(")")
}

func (p *printer) printClass(n *js_ast.Node) {
	p.print("class")
	if name := n.Child(0); name.Kind == js_ast.BIdentifier {
		p.print(" ")
		p.print(name.Text)
	}
	if extends := n.Child(1); extends.Kind != js_ast.EMissing {
		p.print(" extends ")
		p.printExpr(extends, levelNew)
	}
	members := n.Children()[2:]
	if len(members) == 0 {
		p.print(" {}")
		return
	}
	p.print(" {")
	p.printNewline()
	p.options.Indent++
	for _, member := range members {
		p.printIndent()
		p.printProperty(member)
		p.printNewline()
	}
	p.options.Indent--
	p.printIndent()
	p.print("}")
}

func (p *printer) printBinding(n *js_ast.Node) {
	switch n.Kind {
	case js_ast.BIdentifier:
		p.print(n.Text)

	case js_ast.BMissing:

	case js_ast.BArray:
		p.print("[")
		for i, item := range n.Children() {
			if i > 0 {
				p.print(", ")
			}
			p.printBinding(item)
		}
		if last := n.LastChild(); last != nil && last.Kind == js_ast.BMissing {
			p.print(",")
		}
		p.print("]")

	case js_ast.BObject:
		if n.ChildCount() == 0 {
			p.print("{}")
			return
		}
		p.print("{")
		for i, prop := range n.Children() {
			if i > 0 {
				p.print(",")
			}
			p.print(" ")
			value := prop.FirstChild()
			if value.Kind == js_ast.BIdentifier && value.Text == prop.Text {
				p.print(value.Text)
				continue
			}
			p.printPropertyKey(prop.Text)
			p.print(": ")
			p.printBinding(value)
		}
		p.print(" }")

	default:
		panic("Internal error: unexpected binding " + n.Kind.String())
	}
}

func (p *printer) printPropertyKey(key string) {
	if js_ast.IsIdentifierName(key) {
		p.print(key)
	} else {
		p.printQuoted(key)
	}
}

// Prints the body of an object literal property or class member
func (p *printer) printProperty(n *js_ast.Node) {
	value := n.FirstChild()

	if n.Flags.Has(js_ast.FlagGetter) || n.Flags.Has(js_ast.FlagMethod) {
		if n.Flags.Has(js_ast.FlagGetter) {
			p.print("get ")
		}
		p.printPropertyKey(n.Text)
		p.printParams(value.Child(1))
		p.print(" ")
		p.printBlock(value.Child(2))
		return
	}

	if n.Flags.Has(js_ast.FlagShorthand) && value.Kind == js_ast.EIdentifier && value.Text == n.Text {
		p.print(n.Text)
		return
	}

	p.printPropertyKey(n.Text)
	p.print(": ")
	p.printExpr(value, levelComma)
}

// Operator precedence levels, from loosest to tightest
type level uint8

const (
	levelLowest level = iota
	levelComma
	levelAssign
	levelConditional
	levelNullishCoalescing
	levelLogicalOr
	levelLogicalAnd
	levelBitwiseOr
	levelBitwiseXor
	levelBitwiseAnd
	levelEquals
	levelCompare
	levelShift
	levelAdd
	levelMultiply
	levelExponentiation
	levelPrefix
	levelPostfix
	levelNew
	levelCall
	levelMember
)

var binaryLevels = map[string]level{
	",":          levelComma,
	"??":         levelNullishCoalescing,
	"||":         levelLogicalOr,
	"&&":         levelLogicalAnd,
	"|":          levelBitwiseOr,
	"^":          levelBitwiseXor,
	"&":          levelBitwiseAnd,
	"==":         levelEquals,
	"!=":         levelEquals,
	"===":        levelEquals,
	"!==":        levelEquals,
	"<":          levelCompare,
	">":          levelCompare,
	"<=":         levelCompare,
	">=":         levelCompare,
	"in":         levelCompare,
	"instanceof": levelCompare,
	"<<":         levelShift,
	">>":         levelShift,
	">>>":        levelShift,
	"+":          levelAdd,
	"-":          levelAdd,
	"*":          levelMultiply,
	"/":          levelMultiply,
	"%":          levelMultiply,
	"**":         levelExponentiation,
}

func (p *printer) printExpr(n *js_ast.Node, outer level) {
	switch n.Kind {
	case js_ast.EIdentifier:
		p.print(n.Text)

	case js_ast.EString:
		p.printQuoted(n.Text)

	case js_ast.ENumber:
		p.print(formatNumber(n.Number))

	case js_ast.ENull:
		p.print("null")

	case js_ast.EUndefined:
		if outer >= levelPrefix {
			p.print("(void 0)")
		} else {
			p.print("void 0")
		}

	case js_ast.EBoolean:
		if n.Flags.Has(js_ast.FlagTrue) {
			p.print("true")
		} else {
			p.print("false")
		}

	case js_ast.EThis:
		p.print("this")

	case js_ast.EMissing:

	case js_ast.EDot:
		p.printExpr(n.FirstChild(), levelMember)
		if js_ast.IsIdentifierName(n.Text) {
			p.print(".")
			p.print(n.Text)
		} else {
			p.print("[")
			p.printQuoted(n.Text)
			p.print("]")
		}

	case js_ast.EIndex:
		p.printExpr(n.Child(0), levelMember)
		p.print("[")
		p.printExpr(n.Child(1), levelLowest)
		p.print("]")

	case js_ast.ECall:
		p.printExpr(n.FirstChild(), levelCall)
		p.printArgs(n.Args())

	case js_ast.ENew:
		p.print("new ")
		callee := n.FirstChild()
		if callee.Kind == js_ast.ECall {
			// "new (a())()" calls the result of "a()"
			p.print("(")
			p.printExpr(callee, levelLowest)
			p.print(")")
		} else {
			p.printExpr(callee, levelMember)
		}
		p.printArgs(n.Args())

	case js_ast.EImportCall:
		p.print("import")
		p.printArgs(n.Args())

	case js_ast.EAssign:
		wrap := outer > levelAssign
		if wrap {
			p.print("(")
		}
		p.printExpr(n.Child(0), levelPostfix)
		p.print(" ")
		p.print(n.Text)
		p.print(" ")
		p.printExpr(n.Child(1), levelAssign)
		if wrap {
			p.print(")")
		}

	case js_ast.EUnary:
		wrap := outer >= levelPostfix
		if wrap {
			p.print("(")
		}
		p.print(n.Text)
		value := n.FirstChild()
		if isWordOperator(n.Text) {
			p.print(" ")
		} else if value.Kind == js_ast.EUnary && value.Text != "" && value.Text[0] == n.Text[0] {
			// Avoid printing "- -x" as "--x"
			p.print(" ")
		}
		p.printExpr(value, levelPrefix)
		if wrap {
			p.print(")")
		}

	case js_ast.EBinary:
		own, ok := binaryLevels[n.Text]
		if !ok {
			panic("Internal error: unknown operator " + n.Text)
		}
		wrap := outer >= own
		if wrap {
			p.print("(")
		}
		left, right := own-1, own
		if own == levelExponentiation {
			left, right = own, own-1
		}
		p.printExpr(n.Child(0), left)
		if n.Text != "," {
			p.print(" ")
		}
		p.print(n.Text)
		p.print(" ")
		p.printExpr(n.Child(1), right)
		if wrap {
			p.print(")")
		}

	case js_ast.EObject:
		p.printObject(n)

	case js_ast.EArray:
		p.print("[")
		for i, item := range n.Children() {
			if i > 0 {
				p.print(", ")
			}
			p.printExpr(item, levelComma)
		}
		p.print("]")

	case js_ast.EFunction:
		wrap := outer >= levelCall
		if wrap {
			p.print("(")
		}
		p.printFn(n)
		if wrap {
			p.print(")")
		}

	case js_ast.EArrow:
		wrap := outer >= levelAssign
		if wrap {
			p.print("(")
		}
		p.printParams(n.Child(0))
		p.print(" => ")
		body := n.Child(1)
		if body.Kind == js_ast.SBlock {
			p.printBlock(body)
		} else if body.Kind == js_ast.EObject {
			p.print("(")
			p.printExpr(body, levelComma)
			p.print(")")
		} else {
			p.printExpr(body, levelComma)
		}
		if wrap {
			p.print(")")
		}

	case js_ast.EClass:
		wrap := outer >= levelCall
		if wrap {
			p.print("(")
		}
		p.printClass(n)
		if wrap {
			p.print(")")
		}

	default:
		panic("Internal error: unexpected expression " + n.Kind.String())
	}
}

func (p *printer) printArgs(args []*js_ast.Node) {
	p.print("(")
	for i, arg := range args {
		if i > 0 {
			p.print(", ")
		}
		p.printExpr(arg, levelComma)
	}
	p.print(")")
}

func (p *printer) printObject(n *js_ast.Node) {
	if n.ChildCount() == 0 {
		p.print("{}")
		return
	}
	p.print("{")
	p.printNewline()
	p.options.Indent++
	for i, prop := range n.Children() {
		p.printIndent()
		p.printProperty(prop)
		if i+1 < n.ChildCount() {
			p.print(",")
		}
		p.printNewline()
	}
	p.options.Indent--
	p.printIndent()
	p.print("}")
}

func isWordOperator(op string) bool {
	return op == "typeof" || op == "void" || op == "delete"
}

// Expression statements can't start with "function", "class" or "{" since
// those would be parsed as declarations or blocks. Functions and classes used
// as a callee or member target already get their own parentheses.
func startsWithKeywordOrBrace(n *js_ast.Node) bool {
	wrapped := false
	for {
		switch n.Kind {
		case js_ast.EFunction, js_ast.EClass:
			return !wrapped
		case js_ast.EObject:
			return true
		case js_ast.ECall, js_ast.EDot, js_ast.EIndex:
			wrapped = true
			n = n.FirstChild()
		case js_ast.EAssign, js_ast.EBinary:
			n = n.FirstChild()
		default:
			return false
		}
	}
}

func formatNumber(value float64) string {
	switch {
	case math.IsNaN(value):
		return "NaN"
	case math.IsInf(value, 1):
		return "Infinity"
	case math.IsInf(value, -1):
		return "-Infinity"
	case value == math.Trunc(value) && math.Abs(value) < 1e21:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return strings.Replace(strconv.FormatFloat(value, 'g', -1, 64), "e+", "e", 1)
	}
}
