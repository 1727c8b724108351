// Package form holds the component tree model of a form: the component and
// schema types, id assignment, and the immutable tree operations the
// placement resolver is built on.
package form

// ComponentType enumerates the kinds of node a form can contain.
type ComponentType string

const (
	TypeInput     ComponentType = "input"
	TypeTextarea  ComponentType = "textarea"
	TypeSelect    ComponentType = "select"
	TypeCheckbox  ComponentType = "checkbox"
	TypeRadio     ComponentType = "radio"
	TypeDate      ComponentType = "date"
	TypeNumber    ComponentType = "number"
	TypeEmail     ComponentType = "email"
	TypePassword  ComponentType = "password"
	TypeFile      ComponentType = "file"
	TypeButton    ComponentType = "button"
	TypeHeading   ComponentType = "heading"
	TypeParagraph ComponentType = "paragraph"
	TypeDivider   ComponentType = "divider"
	TypePicture   ComponentType = "picture"
	TypeContainer ComponentType = "container"
	TypeRow       ComponentType = "row"
	TypeGrid      ComponentType = "grid"
)

var knownTypes = map[ComponentType]bool{
	TypeInput: true, TypeTextarea: true, TypeSelect: true, TypeCheckbox: true,
	TypeRadio: true, TypeDate: true, TypeNumber: true, TypeEmail: true,
	TypePassword: true, TypeFile: true, TypeButton: true, TypeHeading: true,
	TypeParagraph: true, TypeDivider: true, TypePicture: true,
	TypeContainer: true, TypeRow: true, TypeGrid: true,
}

// ComponentTypes returns every known type in palette order.
func ComponentTypes() []ComponentType {
	return []ComponentType{
		TypeInput, TypeTextarea, TypeSelect, TypeCheckbox, TypeRadio,
		TypeDate, TypeNumber, TypeEmail, TypePassword, TypeFile,
		TypeButton, TypeHeading, TypeParagraph, TypeDivider, TypePicture,
		TypeContainer, TypeRow, TypeGrid,
	}
}

// Valid reports whether t is a known component type.
func (t ComponentType) Valid() bool {
	return knownTypes[t]
}

// IsLayout reports whether nodes of this type own children.
func (t ComponentType) IsLayout() bool {
	return t == TypeContainer || t == TypeRow || t == TypeGrid
}

// ValidationRule is one constraint attached to a component, e.g.
// {"type": "minLength", "value": 3, "message": "too short"}.
type ValidationRule struct {
	Type    string `json:"type"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

// Component is a node of the form tree. Children is only populated for
// layout types (container, row, grid).
//
// Components reachable from a Tree are shared between tree versions and
// must be treated as read-only; use the Tree operations to derive new trees.
type Component struct {
	ID         string           `json:"id"`
	Type       ComponentType    `json:"type"`
	Props      map[string]any   `json:"props,omitempty"`
	Validation []ValidationRule `json:"validation,omitempty"`
	Children   []*Component     `json:"children,omitempty"`
}

// NewComponent creates an empty component of type t with a fresh id.
func NewComponent(ids IDSource, t ComponentType) *Component {
	return &Component{
		ID:   ids.NewID(),
		Type: t,
	}
}

// shallow copies the node header; Props, Validation and Children are shared.
func (c *Component) shallow() *Component {
	cp := *c
	return &cp
}

// Clone returns a deep copy of the subtree rooted at c.
func (c *Component) Clone() *Component {
	if c == nil {
		return nil
	}
	cp := &Component{ID: c.ID, Type: c.Type}
	if c.Props != nil {
		cp.Props = make(map[string]any, len(c.Props))
		for k, v := range c.Props {
			cp.Props[k] = v
		}
	}
	if c.Validation != nil {
		cp.Validation = append([]ValidationRule(nil), c.Validation...)
	}
	if c.Children != nil {
		cp.Children = make([]*Component, len(c.Children))
		for i, child := range c.Children {
			cp.Children[i] = child.Clone()
		}
	}
	return cp
}

// Label returns props.label when it is a string.
func (c *Component) Label() string {
	if c == nil || c.Props == nil {
		return ""
	}
	s, _ := c.Props["label"].(string)
	return s
}

// Size counts the nodes of the subtree rooted at c, c included.
func (c *Component) Size() int {
	if c == nil {
		return 0
	}
	n := 1
	for _, child := range c.Children {
		n += child.Size()
	}
	return n
}

// Height is the number of levels in the subtree rooted at c (1 for a leaf).
func (c *Component) Height() int {
	if c == nil {
		return 0
	}
	h := 0
	for _, child := range c.Children {
		if ch := child.Height(); ch > h {
			h = ch
		}
	}
	return h + 1
}
