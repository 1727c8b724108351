package api

import (
	"net/http"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/placement"
)

// ResolveRequest asks the server to apply one drop. Either Type (a new
// node from the palette) or NodeID (a move) is set.
type ResolveRequest struct {
	Tree   form.Tree          `json:"tree"`
	Type   form.ComponentType `json:"type,omitempty"`
	NodeID string             `json:"nodeId,omitempty"`
	Target placement.Target   `json:"target"`
}

// ResolveResponse carries the new tree, the placed node and the target
// that was actually applied.
type ResolveResponse struct {
	Tree   form.Tree        `json:"tree"`
	Node   *form.Component  `json:"node"`
	Target placement.Target `json:"target"`
	Policy placement.Policy `json:"policy"`
}

// ResolveHandler handles POST /api/placement/resolve
func (s *Server) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Tree.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	resolver := s.resolver()
	var (
		res placement.Result
		err error
	)
	switch {
	case req.NodeID != "":
		res, err = resolver.Move(req.Tree, req.NodeID, req.Target)
	case req.Type != "":
		res, err = resolver.Resolve(req.Tree, req.Type, req.Target)
	default:
		err = ferrors.New(ferrors.CodeInvalidInput, "either type or nodeId is required")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{
		Tree:   res.Tree,
		Node:   res.Node,
		Target: res.Target,
		Policy: resolver.Policy(),
	})
}
