// Package placement decides how a drop changes a form tree. The resolver is
// pure: it never mutates its input and returns the input tree unchanged on
// every failure.
package placement

import (
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
)

// Result is the outcome of a successful placement.
type Result struct {
	Tree form.Tree
	// Node is the placed node (newly created, or the moved one).
	Node *form.Component
	// Target is the placement actually applied. It differs from the request
	// when a RightOf resolves into an existing row or a BottomOf lifts out
	// of one.
	Target Target
}

// Resolver applies drop targets to trees.
type Resolver struct {
	policy Policy
	ids    form.IDSource
}

// NewResolver returns a resolver enforcing policy. ids supplies the ids of
// created nodes and synthesized rows; nil means random UUIDs.
func NewResolver(policy Policy, ids form.IDSource) *Resolver {
	if ids == nil {
		ids = form.UUIDSource{}
	}
	return &Resolver{policy: policy, ids: ids}
}

// Policy returns the nesting policy of the resolver.
func (r *Resolver) Policy() Policy {
	return r.policy
}

// Resolve creates a node of type t and places it at target.
func (r *Resolver) Resolve(tree form.Tree, t form.ComponentType, target Target) (Result, error) {
	if !t.Valid() {
		return Result{Tree: tree}, ferrors.New(ferrors.CodeInvalidInput, "unknown component type %q", t)
	}
	return r.Place(tree, form.NewComponent(r.ids, t), target)
}

// Place inserts an existing detached node (and its subtree) at target.
func (r *Resolver) Place(tree form.Tree, node *form.Component, target Target) (Result, error) {
	if node == nil {
		return Result{Tree: tree}, ferrors.New(ferrors.CodeInvalidInput, "nothing to place")
	}
	next, applied, err := r.apply(tree, node, target)
	if err != nil {
		return Result{Tree: tree}, err
	}
	return Result{Tree: next, Node: node, Target: applied}, nil
}

// Move relocates the existing node id to target, using the same rules as
// Place once the node is detached from its old parent. Indexes refer to the
// tree as seen before the move.
func (r *Resolver) Move(tree form.Tree, id string, target Target) (Result, error) {
	loc, err := tree.Locate(id)
	if err != nil {
		return Result{Tree: tree}, ferrors.Wrap(ferrors.CodeInvalidTarget, err, "cannot move %q", id)
	}
	if target.NodeID != "" && (target.NodeID == id || subtreeContains(loc.Node, target.NodeID)) {
		return Result{Tree: tree}, ferrors.New(ferrors.CodeInvalidTarget, "cannot move %q into its own subtree", id)
	}

	rest, node, err := tree.Remove(id)
	if err != nil {
		return Result{Tree: tree}, err
	}

	parentID := ""
	if loc.Parent != nil {
		parentID = loc.Parent.ID
	}
	switch target.Kind {
	case KindInsideContainer, KindInsideRow, KindRoot:
		if target.NodeID == parentID && target.Index > loc.Index {
			target.Index--
		}
	}

	next, applied, err := r.apply(rest, node, target)
	if err != nil {
		return Result{Tree: tree}, err
	}
	return Result{Tree: next, Node: node, Target: applied}, nil
}

func (r *Resolver) apply(tree form.Tree, node *form.Component, target Target) (form.Tree, Target, error) {
	switch target.Kind {
	case KindRightOf:
		return r.rightOf(tree, node, target)
	case KindBottomOf:
		return r.bottomOf(tree, node, target)
	case KindInsideContainer:
		return r.inside(tree, node, target, form.TypeContainer, form.TypeGrid)
	case KindInsideRow:
		return r.inside(tree, node, target, form.TypeRow)
	case KindRoot:
		if err := r.policy.check("", 0, node); err != nil {
			return tree, target, err
		}
		next, err := tree.InsertInto("", node, target.Index)
		return next, target, err
	default:
		return tree, target, ferrors.New(ferrors.CodeInvalidTarget, "unknown target kind %s", target.Kind)
	}
}

// rightOf puts node beside the target. A target that is already a row
// member gets a new neighbour in that row; any other target is wrapped in a
// fresh row [target, node].
func (r *Resolver) rightOf(tree form.Tree, node *form.Component, target Target) (form.Tree, Target, error) {
	loc, err := locateTarget(tree, target)
	if err != nil {
		return tree, target, err
	}

	if loc.Parent != nil && loc.Parent.Type == form.TypeRow {
		return r.inside(tree, node, InsideRow(loc.Parent.ID, loc.Index+1), form.TypeRow)
	}
	// A row target grows instead of being wrapped into a row of rows.
	if loc.Node.Type == form.TypeRow && !r.policy.AllowNestedRows {
		return r.inside(tree, node, InsideRow(loc.Node.ID, -1), form.TypeRow)
	}

	for _, child := range []*form.Component{loc.Node, node} {
		if err := r.policy.check(form.TypeRow, loc.Depth+1, child); err != nil {
			return tree, target, err
		}
	}
	next, err := tree.WrapInRow(loc.Node.ID, r.ids.NewID(), node)
	return next, target, err
}

// bottomOf inserts node after the target in the nearest sequence that is not
// a row, lifting through row ancestors.
func (r *Resolver) bottomOf(tree form.Tree, node *form.Component, target Target) (form.Tree, Target, error) {
	loc, err := locateTarget(tree, target)
	if err != nil {
		return tree, target, err
	}
	for loc.Parent != nil && loc.Parent.Type == form.TypeRow {
		if loc, err = tree.Locate(loc.Parent.ID); err != nil {
			return tree, target, err
		}
	}

	var parentType form.ComponentType
	if loc.Parent != nil {
		parentType = loc.Parent.Type
	}
	if err := r.policy.check(parentType, loc.Depth, node); err != nil {
		return tree, target, err
	}
	next, err := tree.InsertAfter(loc.Node.ID, node)
	return next, BottomOf(loc.Node.ID), err
}

func (r *Resolver) inside(tree form.Tree, node *form.Component, target Target, kinds ...form.ComponentType) (form.Tree, Target, error) {
	loc, err := locateTarget(tree, target)
	if err != nil {
		return tree, target, err
	}
	ok := false
	for _, k := range kinds {
		if loc.Node.Type == k {
			ok = true
			break
		}
	}
	if !ok {
		return tree, target, ferrors.New(ferrors.CodeInvalidTarget, "%s cannot target %q of type %s", target.Kind, loc.Node.ID, loc.Node.Type)
	}
	if err := r.policy.check(loc.Node.Type, loc.Depth+1, node); err != nil {
		return tree, target, err
	}
	next, err := tree.InsertInto(loc.Node.ID, node, target.Index)
	return next, target, err
}

func locateTarget(tree form.Tree, target Target) (form.Location, error) {
	if target.NodeID == "" {
		return form.Location{}, ferrors.New(ferrors.CodeInvalidTarget, "%s needs a node id", target.Kind)
	}
	loc, err := tree.Locate(target.NodeID)
	if err != nil {
		return form.Location{}, ferrors.Wrap(ferrors.CodeInvalidTarget, err, "drop target %s", target)
	}
	return loc, nil
}

func subtreeContains(root *form.Component, id string) bool {
	for _, c := range root.Children {
		if c.ID == id || subtreeContains(c, id) {
			return true
		}
	}
	return false
}
