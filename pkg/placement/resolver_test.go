package placement

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
)

func leaf(id string, t form.ComponentType) *form.Component {
	return &form.Component{ID: id, Type: t}
}

func layout(id string, t form.ComponentType, children ...*form.Component) *form.Component {
	return &form.Component{ID: id, Type: t, Children: children}
}

// sampleTree:
//
//	heading h1
//	container c1
//	  input i1
//	  row r1
//	    input i2
//	    email e1
//	button b1
func sampleTree() form.Tree {
	return form.NewTree(
		leaf("h1", form.TypeHeading),
		layout("c1", form.TypeContainer,
			leaf("i1", form.TypeInput),
			layout("r1", form.TypeRow, leaf("i2", form.TypeInput), leaf("e1", form.TypeEmail)),
		),
		leaf("b1", form.TypeButton),
	)
}

func newTestResolver() *Resolver {
	return NewResolver(DefaultPolicy(), &form.SequenceSource{Prefix: "n"})
}

func mustLocate(t *testing.T, tree form.Tree, id string) form.Location {
	t.Helper()
	loc, err := tree.Locate(id)
	if err != nil {
		t.Fatalf("Locate(%q): %v", id, err)
	}
	return loc
}

func childIDs(c *form.Component) []string {
	ids := make([]string, 0, len(c.Children))
	for _, ch := range c.Children {
		ids = append(ids, ch.ID)
	}
	return ids
}

func rowNested(tree form.Tree, id string) bool {
	loc, err := tree.Locate(id)
	return err == nil && loc.Parent != nil && loc.Parent.Type == form.TypeRow
}

func TestRightOfWrapsTargetInRow(t *testing.T) {
	tree := sampleTree()
	for _, id := range tree.IDs() {
		loc := mustLocate(t, tree, id)
		if rowNested(tree, id) || loc.Node.Type == form.TypeRow {
			continue
		}
		t.Run(id, func(t *testing.T) {
			res, err := newTestResolver().Resolve(tree, form.TypeInput, RightOf(id))
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}

			moved := mustLocate(t, res.Tree, id)
			row := moved.Parent
			if row == nil || row.Type != form.TypeRow {
				t.Fatalf("expected %q to be wrapped in a row, parent = %+v", id, row)
			}
			if diff := cmp.Diff([]string{id, res.Node.ID}, childIDs(row)); diff != "" {
				t.Errorf("row children mismatch (-want +got):\n%s", diff)
			}

			rowLoc := mustLocate(t, res.Tree, row.ID)
			if rowLoc.Index != loc.Index || rowLoc.Depth != loc.Depth {
				t.Errorf("row at index %d depth %d, expected the target's former %d/%d",
					rowLoc.Index, rowLoc.Depth, loc.Index, loc.Depth)
			}

			// siblings keep identity and order
			var before, after []string
			if loc.Parent == nil {
				for _, n := range tree.Nodes() {
					before = append(before, n.ID)
				}
				for _, n := range res.Tree.Nodes() {
					after = append(after, n.ID)
				}
			} else {
				before = childIDs(loc.Parent)
				after = childIDs(rowLoc.Parent)
			}
			before[loc.Index] = row.ID
			if diff := cmp.Diff(before, after); diff != "" {
				t.Errorf("siblings changed (-want +got):\n%s", diff)
			}

			if res.Tree.Count() != tree.Count()+2 {
				t.Errorf("count = %d, expected %d (new node plus row)", res.Tree.Count(), tree.Count()+2)
			}
		})
	}
}

func TestRightOfGrowsExistingRow(t *testing.T) {
	r := newTestResolver()
	tree := sampleTree()
	last := "e1"

	for i := 0; i < 3; i++ {
		res, err := r.Resolve(tree, form.TypeInput, RightOf(last))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.Target.Kind != KindInsideRow || res.Target.NodeID != "r1" {
			t.Errorf("step %d: applied target = %s, expected inside-row(r1)", i, res.Target)
		}
		row := mustLocate(t, res.Tree, "r1").Node
		if len(row.Children) != 2+i+1 {
			t.Errorf("step %d: row has %d children, expected %d", i, len(row.Children), 3+i)
		}
		for _, c := range row.Children {
			if c.Type == form.TypeRow {
				t.Errorf("step %d: nested row %q created", i, c.ID)
			}
		}
		if res.Tree.Count() != tree.Count()+1 {
			t.Errorf("step %d: count = %d, expected %d", i, res.Tree.Count(), tree.Count()+1)
		}
		tree, last = res.Tree, res.Node.ID
	}
}

func TestRightOfInsertsAfterRowMember(t *testing.T) {
	res, err := newTestResolver().Resolve(sampleTree(), form.TypeInput, RightOf("i2"))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	row := mustLocate(t, res.Tree, "r1").Node
	if diff := cmp.Diff([]string{"i2", res.Node.ID, "e1"}, childIDs(row)); diff != "" {
		t.Errorf("row children mismatch (-want +got):\n%s", diff)
	}
}

func TestRightOfRowTarget(t *testing.T) {
	t.Run("default policy extends the row", func(t *testing.T) {
		res, err := newTestResolver().Resolve(sampleTree(), form.TypeInput, RightOf("r1"))
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		row := mustLocate(t, res.Tree, "r1")
		if row.Parent.ID != "c1" || len(row.Node.Children) != 3 {
			t.Errorf("expected r1 to stay in c1 with 3 children, got parent %s and %v", row.Parent.ID, childIDs(row.Node))
		}
	})

	t.Run("nested rows allowed wraps", func(t *testing.T) {
		r := NewResolver(Policy{AllowNestedRows: true}, &form.SequenceSource{Prefix: "n"})
		res, err := r.Resolve(sampleTree(), form.TypeInput, RightOf("r1"))
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		row := mustLocate(t, res.Tree, "r1")
		if row.Parent.Type != form.TypeRow {
			t.Errorf("expected r1 to be wrapped in a row, parent is %s", row.Parent.Type)
		}
	})
}

func TestBottomOf(t *testing.T) {
	tests := []struct {
		name         string
		target       string
		anchor       string
		parentID     string
		expectLength int
	}{
		{"top-level leaf", "h1", "h1", "", 4},
		{"container member", "i1", "i1", "c1", 3},
		{"row member lifts to the row", "i2", "r1", "c1", 3},
		{"row itself", "r1", "r1", "c1", 3},
		{"container", "c1", "c1", "", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := sampleTree()
			anchorBefore := mustLocate(t, tree, tt.anchor)

			res, err := newTestResolver().Resolve(tree, form.TypeInput, BottomOf(tt.target))
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}
			placed := mustLocate(t, res.Tree, res.Node.ID)

			parentID := ""
			seqLen := res.Tree.Len()
			if placed.Parent != nil {
				parentID = placed.Parent.ID
				seqLen = len(placed.Parent.Children)
				if placed.Parent.Type == form.TypeRow {
					t.Errorf("BottomOf placed the node inside row %s", placed.Parent.ID)
				}
			}
			if parentID != tt.parentID {
				t.Errorf("parent = %q, expected %q", parentID, tt.parentID)
			}
			if placed.Depth != anchorBefore.Depth || placed.Index != anchorBefore.Index+1 {
				t.Errorf("placed at depth %d index %d, expected %d/%d",
					placed.Depth, placed.Index, anchorBefore.Depth, anchorBefore.Index+1)
			}
			if seqLen != tt.expectLength {
				t.Errorf("sequence length = %d, expected %d", seqLen, tt.expectLength)
			}
			if res.Target != BottomOf(tt.anchor) {
				t.Errorf("applied target = %s, expected %s", res.Target, BottomOf(tt.anchor))
			}
		})
	}
}

func TestInsideKeepsParentAndSiblingIDs(t *testing.T) {
	tests := []struct {
		name     string
		target   Target
		parentID string
		expected []string
	}{
		{"container start", InsideContainer("c1", 0), "c1", []string{"n-1", "i1", "r1"}},
		{"container append", InsideContainer("c1", -1), "c1", []string{"i1", "r1", "n-1"}},
		{"row middle", InsideRow("r1", 1), "r1", []string{"i2", "n-1", "e1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestResolver().Resolve(sampleTree(), form.TypeInput, tt.target)
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}
			parent := mustLocate(t, res.Tree, tt.parentID).Node
			if diff := cmp.Diff(tt.expected, childIDs(parent)); diff != "" {
				t.Errorf("children mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveFailuresLeaveTreeUnchanged(t *testing.T) {
	r := newTestResolver()
	nested := form.NewTree(layout("r1", form.TypeRow, leaf("a", form.TypeInput)))

	tests := []struct {
		name   string
		tree   form.Tree
		typ    form.ComponentType
		target Target
		code   ferrors.Code
	}{
		{"unknown right-of", sampleTree(), form.TypeInput, RightOf("ghost"), ferrors.CodeInvalidTarget},
		{"unknown bottom-of", sampleTree(), form.TypeInput, BottomOf("ghost"), ferrors.CodeInvalidTarget},
		{"inside-row on container", sampleTree(), form.TypeInput, InsideRow("c1", 0), ferrors.CodeInvalidTarget},
		{"inside-container on row", sampleTree(), form.TypeInput, InsideContainer("r1", 0), ferrors.CodeInvalidTarget},
		{"inside-container on leaf", sampleTree(), form.TypeInput, InsideContainer("h1", 0), ferrors.CodeInvalidTarget},
		{"row in row", nested, form.TypeRow, InsideRow("r1", 0), ferrors.CodeUnsupportedNesting},
		{"row right of row member", nested, form.TypeRow, RightOf("a"), ferrors.CodeUnsupportedNesting},
		{"unknown type", sampleTree(), "slider", AtRoot(0), ferrors.CodeInvalidInput},
		{"missing node id", sampleTree(), form.TypeInput, Target{Kind: KindBottomOf}, ferrors.CodeInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := json.Marshal(tt.tree)
			res, err := r.Resolve(tt.tree, tt.typ, tt.target)
			if !ferrors.Is(err, tt.code) {
				t.Fatalf("error = %v, expected %s", err, tt.code)
			}
			after, _ := json.Marshal(res.Tree)
			if string(before) != string(after) {
				t.Errorf("tree changed on failure:\nbefore %s\nafter  %s", before, after)
			}
		})
	}
}

func TestUnknownTargetWrapsNotFound(t *testing.T) {
	_, err := newTestResolver().Resolve(sampleTree(), form.TypeInput, RightOf("ghost"))
	var fe *ferrors.Error
	if !errors.As(err, &fe) || fe.Cause == nil || !ferrors.Is(fe.Cause, ferrors.CodeNotFound) {
		t.Errorf("expected INVALID_TARGET wrapping NOT_FOUND, got %v", err)
	}
}

func TestMaxDepth(t *testing.T) {
	r := NewResolver(Policy{MaxDepth: 3}, &form.SequenceSource{Prefix: "n"})
	tree := sampleTree()

	if _, err := r.Resolve(tree, form.TypeInput, InsideRow("r1", 0)); err != nil {
		t.Errorf("a leaf on the third level should be allowed: %v", err)
	}
	if _, err := r.Resolve(tree, form.TypeInput, RightOf("i1")); err != nil {
		t.Errorf("wrapping a second-level leaf should be allowed: %v", err)
	}
	box := layout("x", form.TypeContainer, leaf("y", form.TypeInput))
	if _, err := r.Place(tree, box, InsideRow("r1", 0)); !ferrors.Is(err, ferrors.CodeUnsupportedNesting) {
		t.Errorf("a container on the third level: error = %v, expected UNSUPPORTED_NESTING", err)
	}

	flat := NewResolver(Policy{MaxDepth: 1}, &form.SequenceSource{Prefix: "n"})
	if _, err := flat.Resolve(form.NewTree(leaf("a", form.TypeInput)), form.TypeInput, RightOf("a")); !ferrors.Is(err, ferrors.CodeUnsupportedNesting) {
		t.Errorf("wrapping in a flat policy: error = %v, expected UNSUPPORTED_NESTING", err)
	}
}

func TestScenarioPictureRow(t *testing.T) {
	r := newTestResolver()
	tree := form.NewTree()

	res, err := r.Resolve(tree, form.TypePicture, AtRoot(0))
	if err != nil {
		t.Fatalf("drop picture: %v", err)
	}
	tree = res.Tree
	picture := res.Node.ID
	if tree.Len() != 1 {
		t.Fatalf("expected 1 top-level node, got %d", tree.Len())
	}

	res, err = r.Resolve(tree, form.TypeInput, RightOf(picture))
	if err != nil {
		t.Fatalf("drop input right of picture: %v", err)
	}
	tree = res.Tree
	firstInput := res.Node.ID
	top := tree.Nodes()
	if len(top) != 1 || top[0].Type != form.TypeRow {
		t.Fatalf("expected a single top-level row, got %d nodes", len(top))
	}
	row := top[0]
	if diff := cmp.Diff([]string{picture, firstInput}, childIDs(row)); diff != "" {
		t.Errorf("row children mismatch (-want +got):\n%s", diff)
	}
	if row.Children[0].Type != form.TypePicture || row.Children[1].Type != form.TypeInput {
		t.Errorf("row types = %s, %s", row.Children[0].Type, row.Children[1].Type)
	}

	res, err = r.Resolve(tree, form.TypeInput, RightOf(firstInput))
	if err != nil {
		t.Fatalf("drop second input: %v", err)
	}
	tree = res.Tree
	if n := len(tree.Nodes()[0].Children); n != 3 {
		t.Errorf("row has %d children, expected 3", n)
	}

	res, err = r.Resolve(tree, form.TypeInput, BottomOf(row.ID))
	if err != nil {
		t.Fatalf("drop input below row: %v", err)
	}
	tree = res.Tree
	top = tree.Nodes()
	if len(top) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(top))
	}
	if top[0].ID != row.ID || len(top[0].Children) != 3 {
		t.Errorf("first node = %s with %d children, expected the row with 3", top[0].ID, len(top[0].Children))
	}
	if top[1].Type != form.TypeInput || top[1].ID != res.Node.ID {
		t.Errorf("second node = %s %s, expected the new input", top[1].ID, top[1].Type)
	}
}

func TestIDsAreStableAndUnique(t *testing.T) {
	r := NewResolver(DefaultPolicy(), nil)
	tree := sampleTree()
	targets := []Target{RightOf("h1"), BottomOf("e1"), InsideContainer("c1", 1), InsideRow("r1", 0), AtRoot(-1)}

	for _, target := range targets {
		before := tree.IDs()
		res, err := r.Resolve(tree, form.TypeInput, target)
		if err != nil {
			t.Fatalf("%s: %v", target, err)
		}
		after := make(map[string]bool)
		for _, id := range res.Tree.IDs() {
			if after[id] {
				t.Fatalf("%s: duplicate id %q", target, id)
			}
			after[id] = true
		}
		for _, id := range before {
			if !after[id] {
				t.Errorf("%s: id %q dropped", target, id)
			}
		}
		tree = res.Tree
	}
	if err := tree.Validate(); err != nil {
		t.Errorf("final tree invalid: %v", err)
	}
}

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		target   Target
		expected []string
		code     ferrors.Code
	}{
		{"to root end", "i1", AtRoot(-1), []string{"h1", "c1", "r1", "i2", "e1", "b1", "i1"}, ""},
		{"later index in same parent", "h1", AtRoot(2), []string{"c1", "i1", "r1", "i2", "e1", "h1", "b1"}, ""},
		{"out of a row", "e1", BottomOf("b1"), []string{"h1", "c1", "i1", "r1", "i2", "b1", "e1"}, ""},
		{"into own subtree", "c1", InsideRow("r1", 0), nil, ferrors.CodeInvalidTarget},
		{"right of itself", "b1", RightOf("b1"), nil, ferrors.CodeInvalidTarget},
		{"unknown node", "ghost", AtRoot(0), nil, ferrors.CodeInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := sampleTree()
			res, err := newTestResolver().Move(tree, tt.id, tt.target)
			if tt.code != "" {
				if !ferrors.Is(err, tt.code) {
					t.Fatalf("error = %v, expected %s", err, tt.code)
				}
				if !res.Tree.Equal(tree) {
					t.Error("tree changed on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("Move error: %v", err)
			}
			if diff := cmp.Diff(tt.expected, res.Tree.IDs()); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
			if res.Tree.Count() != tree.Count() {
				t.Errorf("count changed: %d -> %d", tree.Count(), res.Tree.Count())
			}
		})
	}
}

func TestTargetJSON(t *testing.T) {
	var target Target
	if err := json.Unmarshal([]byte(`{"kind":"inside-row","nodeId":"r1"}`), &target); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if target != InsideRow("r1", -1) {
		t.Errorf("got %+v, expected inside-row(r1) appending", target)
	}

	data, err := json.Marshal(RightOf("a"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"kind":"right-of","nodeId":"a","index":-1}` {
		t.Errorf("unexpected encoding %s", data)
	}

	if err := json.Unmarshal([]byte(`{"kind":"sideways"}`), &target); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}
