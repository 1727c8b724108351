package placement

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the drop zone family a target belongs to.
type Kind int

const (
	KindRightOf Kind = iota + 1
	KindBottomOf
	KindInsideContainer
	KindInsideRow
	KindRoot
)

var kindNames = map[Kind]string{
	KindRightOf:         "right-of",
	KindBottomOf:        "bottom-of",
	KindInsideContainer: "inside-container",
	KindInsideRow:       "inside-row",
	KindRoot:            "root",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts the wire name of a kind ("right-of", ...) to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown target kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown target kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Target describes where a dragged item is released.
//
// NodeID is the reference node for RightOf and BottomOf and the parent for
// InsideContainer and InsideRow; it is empty for Root. Index is the insertion
// position for the Inside* and Root kinds; a negative index appends.
type Target struct {
	Kind   Kind   `json:"kind"`
	NodeID string `json:"nodeId,omitempty"`
	Index  int    `json:"index"`
}

// RightOf targets the right edge of node id.
func RightOf(id string) Target {
	return Target{Kind: KindRightOf, NodeID: id, Index: -1}
}

// BottomOf targets the area below node id.
func BottomOf(id string) Target {
	return Target{Kind: KindBottomOf, NodeID: id, Index: -1}
}

// InsideContainer targets position index of a container's (or grid's) children.
func InsideContainer(id string, index int) Target {
	return Target{Kind: KindInsideContainer, NodeID: id, Index: index}
}

// InsideRow targets position index of a row's children.
func InsideRow(id string, index int) Target {
	return Target{Kind: KindInsideRow, NodeID: id, Index: index}
}

// AtRoot targets position index of the top-level sequence.
func AtRoot(index int) Target {
	return Target{Kind: KindRoot, Index: index}
}

func (t Target) String() string {
	switch t.Kind {
	case KindRightOf, KindBottomOf:
		return fmt.Sprintf("%s(%s)", t.Kind, t.NodeID)
	case KindRoot:
		return fmt.Sprintf("%s[%d]", t.Kind, t.Index)
	default:
		return fmt.Sprintf("%s(%s)[%d]", t.Kind, t.NodeID, t.Index)
	}
}

// UnmarshalJSON defaults a missing index to -1 (append).
func (t *Target) UnmarshalJSON(data []byte) error {
	type plain Target
	p := plain{Index: -1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Target(p)
	return nil
}
