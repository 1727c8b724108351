package placement

import (
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
)

// Policy holds the nesting rules the resolver enforces on top of the tree
// invariants.
type Policy struct {
	// AllowNestedRows permits a row as a direct child of another row.
	AllowNestedRows bool `yaml:"allow_nested_rows" json:"allowNestedRows"`
	// MaxDepth limits the number of levels in the tree. Zero means unbounded.
	MaxDepth int `yaml:"max_depth" json:"maxDepth"`
}

// DefaultPolicy forbids rows directly inside rows and does not limit depth.
func DefaultPolicy() Policy {
	return Policy{}
}

// check reports whether child may be placed under a parent of kind parent
// ("" for the root sequence) at the given depth.
func (p Policy) check(parent form.ComponentType, depth int, child *form.Component) error {
	if parent == form.TypeRow && child.Type == form.TypeRow && !p.AllowNestedRows {
		return ferrors.New(ferrors.CodeUnsupportedNesting, "a row cannot be placed directly inside another row")
	}
	if p.MaxDepth > 0 && depth+child.Height() > p.MaxDepth {
		return ferrors.New(ferrors.CodeUnsupportedNesting, "placing %s at depth %d exceeds the maximum depth of %d", child.Type, depth, p.MaxDepth)
	}
	return nil
}
