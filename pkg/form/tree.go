package form

import (
	"encoding/json"
	"reflect"

	"github.com/schardosin/formstudio/pkg/ferrors"
)

// Tree is an immutable ordered sequence of top-level components. Every
// mutation returns a new Tree; only the nodes on the path from the root to
// the edited sequence are copied, all other subtrees are shared with the
// previous version.
type Tree struct {
	nodes []*Component
}

// Location describes where a node sits in a tree.
type Location struct {
	Node   *Component
	Parent *Component // nil for top-level nodes
	Index  int        // position in the parent's children (or the root)
	Depth  int        // 0 for top-level nodes
	Path   []int      // child indices from the root down to Node
}

// NewTree builds a tree over the given top-level nodes.
func NewTree(nodes ...*Component) Tree {
	return Tree{nodes: append([]*Component(nil), nodes...)}
}

// Nodes returns the top-level sequence. The slice is a copy, the nodes are
// shared and must not be modified.
func (t Tree) Nodes() []*Component {
	return append([]*Component{}, t.nodes...)
}

// Len is the number of top-level nodes.
func (t Tree) Len() int {
	return len(t.nodes)
}

// Count is the total number of nodes at every depth.
func (t Tree) Count() int {
	n := 0
	for _, c := range t.nodes {
		n += c.Size()
	}
	return n
}

// Walk visits nodes depth-first in document order. Returning false from fn
// stops the walk.
func (t Tree) Walk(fn func(n *Component, depth int) bool) {
	walk(t.nodes, 0, fn)
}

func walk(nodes []*Component, depth int, fn func(*Component, int) bool) bool {
	for _, n := range nodes {
		if !fn(n, depth) {
			return false
		}
		if !walk(n.Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// IDs lists every node id in document order.
func (t Tree) IDs() []string {
	ids := make([]string, 0, t.Count())
	t.Walk(func(n *Component, _ int) bool {
		ids = append(ids, n.ID)
		return true
	})
	return ids
}

// Contains reports whether a node with id exists anywhere in the tree.
func (t Tree) Contains(id string) bool {
	return findPath(t.nodes, id, nil) != nil
}

// Find returns the node with id using a depth-first search.
func (t Tree) Find(id string) (*Component, error) {
	loc, err := t.Locate(id)
	if err != nil {
		return nil, err
	}
	return loc.Node, nil
}

// Locate returns the node with id together with its parent context.
func (t Tree) Locate(id string) (Location, error) {
	path := findPath(t.nodes, id, nil)
	if path == nil {
		return Location{}, ferrors.New(ferrors.CodeNotFound, "component %q not found", id)
	}
	var parent *Component
	nodes := t.nodes
	for depth, i := range path {
		n := nodes[i]
		if depth == len(path)-1 {
			return Location{Node: n, Parent: parent, Index: i, Depth: depth, Path: path}, nil
		}
		parent = n
		nodes = n.Children
	}
	// unreachable: findPath never returns an empty path
	return Location{}, ferrors.New(ferrors.CodeInternal, "empty path for %q", id)
}

// InsertAfter places n immediately after the node targetID in the same
// parent sequence.
func (t Tree) InsertAfter(targetID string, n *Component) (Tree, error) {
	if err := t.checkFresh(n); err != nil {
		return t, err
	}
	path := findPath(t.nodes, targetID, nil)
	if path == nil {
		return t, ferrors.New(ferrors.CodeNotFound, "component %q not found", targetID)
	}
	idx := path[len(path)-1]
	nodes, err := rewrite(t.nodes, path[:len(path)-1], func(seq []*Component) ([]*Component, error) {
		return insertAt(seq, idx+1, n), nil
	})
	if err != nil {
		return t, err
	}
	return Tree{nodes: nodes}, nil
}

// InsertInto places n into the children of parentID at index. An empty
// parentID addresses the root sequence. A negative index, or one past the
// end, appends.
func (t Tree) InsertInto(parentID string, n *Component, index int) (Tree, error) {
	if err := t.checkFresh(n); err != nil {
		return t, err
	}
	var parentPath []int
	if parentID != "" {
		loc, err := t.Locate(parentID)
		if err != nil {
			return t, err
		}
		if !loc.Node.Type.IsLayout() {
			return t, ferrors.New(ferrors.CodeInvalidTarget, "component %q (%s) cannot hold children", parentID, loc.Node.Type)
		}
		parentPath = loc.Path
	}
	nodes, err := rewrite(t.nodes, parentPath, func(seq []*Component) ([]*Component, error) {
		i := index
		if i < 0 || i > len(seq) {
			i = len(seq)
		}
		return insertAt(seq, i, n), nil
	})
	if err != nil {
		return t, err
	}
	return Tree{nodes: nodes}, nil
}

// WrapInRow replaces targetID with a new row (id rowID) whose children are
// the target followed by n.
func (t Tree) WrapInRow(targetID, rowID string, n *Component) (Tree, error) {
	if err := t.checkFresh(n); err != nil {
		return t, err
	}
	if rowID == "" || t.Contains(rowID) || rowID == n.ID {
		return t, ferrors.New(ferrors.CodeInvalidInput, "row id %q is not fresh", rowID)
	}
	path := findPath(t.nodes, targetID, nil)
	if path == nil {
		return t, ferrors.New(ferrors.CodeNotFound, "component %q not found", targetID)
	}
	idx := path[len(path)-1]
	nodes, err := rewrite(t.nodes, path[:len(path)-1], func(seq []*Component) ([]*Component, error) {
		row := &Component{
			ID:       rowID,
			Type:     TypeRow,
			Children: []*Component{seq[idx], n},
		}
		return replaceAt(seq, idx, row), nil
	})
	if err != nil {
		return t, err
	}
	return Tree{nodes: nodes}, nil
}

// Remove detaches the node id (and its subtree) and returns it.
func (t Tree) Remove(id string) (Tree, *Component, error) {
	path := findPath(t.nodes, id, nil)
	if path == nil {
		return t, nil, ferrors.New(ferrors.CodeNotFound, "component %q not found", id)
	}
	idx := path[len(path)-1]
	var removed *Component
	nodes, err := rewrite(t.nodes, path[:len(path)-1], func(seq []*Component) ([]*Component, error) {
		removed = seq[idx]
		return removeAt(seq, idx), nil
	})
	if err != nil {
		return t, nil, err
	}
	return Tree{nodes: nodes}, removed, nil
}

// Validate checks the structural invariants of a tree built from outside
// input: unique non-empty ids, known types, children only on layout nodes.
func (t Tree) Validate() error {
	seen := make(map[string]bool)
	var err error
	t.Walk(func(n *Component, _ int) bool {
		switch {
		case n == nil:
			err = ferrors.New(ferrors.CodeInvalidInput, "nil component")
		case n.ID == "":
			err = ferrors.New(ferrors.CodeInvalidInput, "component of type %q has no id", n.Type)
		case seen[n.ID]:
			err = ferrors.New(ferrors.CodeInvalidInput, "duplicate component id %q", n.ID)
		case !n.Type.Valid():
			err = ferrors.New(ferrors.CodeInvalidInput, "component %q has unknown type %q", n.ID, n.Type)
		case len(n.Children) > 0 && !n.Type.IsLayout():
			err = ferrors.New(ferrors.CodeInvalidInput, "component %q (%s) cannot hold children", n.ID, n.Type)
		}
		if err != nil {
			return false
		}
		seen[n.ID] = true
		return true
	})
	return err
}

// Equal reports structural equality: same ids, types, props, validation and
// children in the same order. Nil and empty collections compare equal.
func (t Tree) Equal(o Tree) bool {
	return equalNodes(t.nodes, o.nodes)
}

func equalNodes(a, b []*Component) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x == nil || y == nil {
			if x != y {
				return false
			}
			continue
		}
		if x.ID != y.ID || x.Type != y.Type {
			return false
		}
		if (len(x.Props) > 0 || len(y.Props) > 0) && !reflect.DeepEqual(x.Props, y.Props) {
			return false
		}
		if (len(x.Validation) > 0 || len(y.Validation) > 0) && !reflect.DeepEqual(x.Validation, y.Validation) {
			return false
		}
		if !equalNodes(x.Children, y.Children) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the tree as its array of top-level nodes.
func (t Tree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Nodes())
}

// UnmarshalJSON decodes an array of top-level nodes. Ids are taken as
// given; call Validate on untrusted input.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var nodes []*Component
	if err := json.Unmarshal(data, &nodes); err != nil {
		return err
	}
	t.nodes = nodes
	return nil
}

// checkFresh rejects a subtree whose ids collide with the tree or with
// each other.
func (t Tree) checkFresh(n *Component) error {
	if n == nil {
		return ferrors.New(ferrors.CodeInvalidInput, "nil component")
	}
	existing := make(map[string]bool, t.Count())
	t.Walk(func(c *Component, _ int) bool {
		existing[c.ID] = true
		return true
	})
	var err error
	walk([]*Component{n}, 0, func(c *Component, _ int) bool {
		if c.ID == "" || existing[c.ID] {
			err = ferrors.New(ferrors.CodeInvalidInput, "component id %q is already in use", c.ID)
			return false
		}
		existing[c.ID] = true
		return true
	})
	return err
}

func findPath(nodes []*Component, id string, prefix []int) []int {
	for i, n := range nodes {
		if n == nil {
			continue
		}
		if n.ID == id {
			path := make([]int, len(prefix)+1)
			copy(path, prefix)
			path[len(prefix)] = i
			return path
		}
		if p := findPath(n.Children, id, append(prefix, i)); p != nil {
			return p
		}
	}
	return nil
}

// rewrite applies fn to the child sequence addressed by parentPath and
// rebuilds only the ancestors on that path.
func rewrite(nodes []*Component, parentPath []int, fn func([]*Component) ([]*Component, error)) ([]*Component, error) {
	if len(parentPath) == 0 {
		return fn(nodes)
	}
	i := parentPath[0]
	children, err := rewrite(nodes[i].Children, parentPath[1:], fn)
	if err != nil {
		return nil, err
	}
	parent := nodes[i].shallow()
	parent.Children = children
	return replaceAt(nodes, i, parent), nil
}

func insertAt(seq []*Component, i int, n *Component) []*Component {
	out := make([]*Component, 0, len(seq)+1)
	out = append(out, seq[:i]...)
	out = append(out, n)
	return append(out, seq[i:]...)
}

func removeAt(seq []*Component, i int) []*Component {
	out := make([]*Component, 0, len(seq)-1)
	out = append(out, seq[:i]...)
	return append(out, seq[i+1:]...)
}

func replaceAt(seq []*Component, i int, n *Component) []*Component {
	out := make([]*Component, len(seq))
	copy(out, seq)
	out[i] = n
	return out
}
