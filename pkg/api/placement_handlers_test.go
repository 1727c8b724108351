package api

import (
	"net/http"
	"testing"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/placement"
)

const resolveTree = `[
	{"id": "a", "type": "input"},
	{"id": "b", "type": "email"},
	{"id": "c", "type": "container", "children": [{"id": "d", "type": "checkbox"}]}
]`

func TestResolveHandler(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		ids      []string
		expected placement.Target
	}{
		{
			name:     "right of a leaf wraps both in a row",
			body:     `{"tree":` + resolveTree + `,"type":"number","target":{"kind":"right-of","nodeId":"a"}}`,
			ids:      []string{"n-2", "a", "n-1", "b", "c", "d"},
			expected: placement.RightOf("a"),
		},
		{
			name:     "inside a container appends without an index",
			body:     `{"tree":` + resolveTree + `,"type":"date","target":{"kind":"inside-container","nodeId":"c"}}`,
			ids:      []string{"a", "b", "c", "d", "n-1"},
			expected: placement.InsideContainer("c", -1),
		},
		{
			name:     "move below another node",
			body:     `{"tree":` + resolveTree + `,"nodeId":"a","target":{"kind":"bottom-of","nodeId":"d"}}`,
			ids:      []string{"b", "c", "d", "a"},
			expected: placement.BottomOf("d"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t).Handler()
			rr := do(t, h, "POST", "/api/placement/resolve", tt.body)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d (body %s)", rr.Code, rr.Body.String())
			}
			resp := decode[ResolveResponse](t, rr)
			if ids := resp.Tree.IDs(); !equalStrings(ids, tt.ids) {
				t.Errorf("tree ids = %v, expected %v", ids, tt.ids)
			}
			if resp.Target != tt.expected {
				t.Errorf("target = %s, expected %s", resp.Target, tt.expected)
			}
			if resp.Node == nil {
				t.Error("placed node missing from response")
			}
		})
	}
}

func TestResolveHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   ferrors.Code
	}{
		{
			name:   "unknown target",
			body:   `{"tree":` + resolveTree + `,"type":"input","target":{"kind":"bottom-of","nodeId":"zz"}}`,
			status: http.StatusUnprocessableEntity,
			code:   ferrors.CodeInvalidTarget,
		},
		{
			name:   "inside a leaf",
			body:   `{"tree":` + resolveTree + `,"type":"input","target":{"kind":"inside-container","nodeId":"a"}}`,
			status: http.StatusUnprocessableEntity,
			code:   ferrors.CodeInvalidTarget,
		},
		{
			name:   "row inside a row",
			body:   `{"tree":[{"id":"r","type":"row","children":[{"id":"x","type":"input"}]}],"type":"row","target":{"kind":"inside-row","nodeId":"r"}}`,
			status: http.StatusUnprocessableEntity,
			code:   ferrors.CodeUnsupportedNesting,
		},
		{
			name:   "neither type nor node",
			body:   `{"tree":` + resolveTree + `,"target":{"kind":"root"}}`,
			status: http.StatusBadRequest,
			code:   ferrors.CodeInvalidInput,
		},
		{
			name:   "invalid tree",
			body:   `{"tree":[{"id":"a","type":"input"},{"id":"a","type":"input"}],"type":"input","target":{"kind":"root"}}`,
			status: http.StatusBadRequest,
			code:   ferrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t).Handler()
			expectError(t, do(t, h, "POST", "/api/placement/resolve", tt.body), tt.status, tt.code)
		})
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
