package js_ast

// Passes report the smallest scope they changed instead of "the tree
// changed" so an incremental build can skip recompiling code that no pass
// touched. A change scope is the closest enclosing function or script.
func ChangeScope(n *Node) *Node {
	for ; n != nil; n = n.parent {
		if n.Kind == SScript || n.Kind.IsFunction() {
			return n
		}
		if n.parent == nil {
			return n
		}
	}
	return nil
}

// ChangeSet remembers each changed scope once, in the order it was reported
type ChangeSet struct {
	seen   map[*Node]bool
	scopes []*Node
}

func (c *ChangeSet) Report(n *Node) {
	scope := ChangeScope(n)
	if scope == nil {
		return
	}
	if c.seen == nil {
		c.seen = make(map[*Node]bool)
	}
	if !c.seen[scope] {
		c.seen[scope] = true
		c.scopes = append(c.scopes, scope)
	}
}

func (c *ChangeSet) Merge(other *ChangeSet) {
	for _, scope := range other.scopes {
		c.Report(scope)
	}
}

func (c *ChangeSet) Scopes() []*Node {
	return c.scopes
}

func (c *ChangeSet) Len() int {
	return len(c.scopes)
}

// Reports whether any changed scope lives inside the tree rooted at "root"
func (c *ChangeSet) Touches(root *Node) bool {
	for _, scope := range c.scopes {
		if scope.Root() == root {
			return true
		}
	}
	return false
}
