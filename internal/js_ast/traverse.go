package js_ast

type Callback interface {
	// Called before the children of "n" are visited. Returning false skips
	// the whole subtree, including the call to Visit for "n" itself.
	ShouldTraverse(t *Traversal, n *Node) bool

	// Called after the children of "n" have been visited. The callback may
	// replace or detach "n" and may insert siblings next to it.
	Visit(t *Traversal, n *Node)
}

// Traversal is a post-order walk that tracks lexical scopes along the way.
// Children are snapshotted before they are visited, so a callback that
// detaches or replaces the node it is visiting does not disturb the walk.
// Nodes inserted during the walk are not visited.
type Traversal struct {
	callback Callback
	scope    *Scope
	root     *Node
}

func Traverse(root *Node, callback Callback) {
	t := &Traversal{callback: callback, root: root}
	t.traverse(root)
}

func (t *Traversal) Scope() *Scope {
	return t.scope
}

func (t *Traversal) Root() *Node {
	return t.root
}

func (t *Traversal) traverse(n *Node) {
	if !t.callback.ShouldTraverse(t, n) {
		return
	}

	saved := t.scope
	switch n.Kind {
	case SScript:
		t.scope = newModuleScope(n)
	case SFunction, EFunction, EArrow:
		t.scope = newFunctionScope(n, t.scope)
	case SBlock:
		if n.parent == nil || !n.parent.Kind.IsFunction() {
			t.scope = newBlockScope(n, t.scope)
		}
	}

	if len(n.children) > 0 {
		children := append([]*Node(nil), n.children...)
		for _, child := range children {
			t.traverse(child)
		}
	}

	t.scope = saved
	t.callback.Visit(t, n)
}

// A callback for passes that want to visit every node
type PostOrderCallback func(t *Traversal, n *Node)

func (PostOrderCallback) ShouldTraverse(*Traversal, *Node) bool { return true }

func (fn PostOrderCallback) Visit(t *Traversal, n *Node) { fn(t, n) }

// Visits every node in pre-order without tracking scopes. Returning false
// from "visit" skips the children of that node.
func Walk(n *Node, visit func(n *Node) bool) {
	if !visit(n) {
		return
	}
	for _, child := range n.children {
		Walk(child, visit)
	}
}
