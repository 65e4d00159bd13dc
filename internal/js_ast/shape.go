package js_ast

import "fmt"

type shape struct {
	min int
	max int // -1 means no limit

	// Allowed kinds per child position. The last entry also covers every
	// later position. A nil entry allows any kind.
	children [][]Kind
}

var (
	anyKind     []Kind
	bindingKind = []Kind{BIdentifier, BObject, BArray}
	fnName      = []Kind{BIdentifier, BMissing}
	members     = []Kind{EProperty}
)

var shapes = map[Kind]shape{
	SScript:        {0, -1, nil},
	SModuleBody:    {0, -1, nil},
	SBlock:         {0, -1, nil},
	SExpr:          {1, 1, nil},
	SLocal:         {1, -1, [][]Kind{{SDecl}}},
	SDecl:          {1, 2, [][]Kind{bindingKind, anyKind}},
	SFunction:      {3, 3, [][]Kind{fnName, {BParams}, {SBlock}}},
	SClass:         {2, -1, [][]Kind{fnName, anyKind, members}},
	SReturn:        {0, 1, nil},
	SIf:            {2, 3, nil},
	SImport:        {0, -1, [][]Kind{{SImportDefault, SImportStar, SImportSpec}}},
	SExportDefault: {1, 1, nil},
	SExportClause:  {0, -1, [][]Kind{{SExportSpec}}},
	SExportFrom:    {0, -1, [][]Kind{{SExportSpec}}},
	SExportDecl:    {1, 1, [][]Kind{{SLocal, SFunction, SClass}}},
	EDot:           {1, 1, nil},
	EIndex:         {2, 2, nil},
	ECall:          {1, -1, nil},
	ENew:           {1, -1, nil},
	EImportCall:    {0, -1, nil},
	EAssign:        {2, 2, nil},
	EUnary:         {1, 1, nil},
	EBinary:        {2, 2, nil},
	EObject:        {0, -1, [][]Kind{members}},
	EProperty:      {1, 1, nil},
	EArray:         {0, -1, nil},
	EFunction:      {3, 3, [][]Kind{fnName, {BParams}, {SBlock}}},
	EArrow:         {2, 2, [][]Kind{{BParams}, anyKind}},
	EClass:         {2, -1, [][]Kind{fnName, anyKind, members}},
	BObject:        {0, -1, [][]Kind{{BProperty}}},
	BProperty:      {1, 1, [][]Kind{bindingKind}},
	BArray:         {0, -1, [][]Kind{{BIdentifier, BObject, BArray, BMissing}}},
	BParams:        {0, -1, [][]Kind{bindingKind}},
}

// CheckShape reports whether the direct children of "n" fit its kind. Trees
// built by hand or read from outside must pass this before a pass sees them,
// since the passes index children without checking. Kinds not listed above
// have no children.
func CheckShape(n *Node) error {
	s, ok := shapes[n.Kind]
	if !ok {
		s = shape{0, 0, nil}
	}
	count := len(n.children)
	if count < s.min || (s.max != -1 && count > s.max) {
		switch {
		case s.max == 0:
			return fmt.Errorf("%s must not have children", n.Kind)
		case s.max == -1:
			return fmt.Errorf("%s has %d children, expected at least %d", n.Kind, count, s.min)
		case s.min == s.max:
			return fmt.Errorf("%s has %d children, expected %d", n.Kind, count, s.min)
		default:
			return fmt.Errorf("%s has %d children, expected %d to %d", n.Kind, count, s.min, s.max)
		}
	}
	if len(s.children) == 0 {
		return nil
	}
	for i, child := range n.children {
		allowed := s.children[len(s.children)-1]
		if i < len(s.children) {
			allowed = s.children[i]
		}
		if allowed != nil && !kindIn(child.Kind, allowed) {
			return fmt.Errorf("%s cannot have %s as child %d", n.Kind, child.Kind, i)
		}
	}
	return nil
}

func kindIn(kind Kind, kinds []Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
