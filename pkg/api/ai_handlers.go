package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/generator"
	"github.com/schardosin/formstudio/pkg/history"
)

// GenerateRequest is the body of POST /api/ai/generate.
type GenerateRequest struct {
	Prompt  string       `json:"prompt"`
	Current *form.Schema `json:"current,omitempty"`
	// SessionID continues a chat session; its messages become the
	// conversation history and the new turn is appended to it.
	SessionID string `json:"sessionId,omitempty"`
	// RequestID lets the builder cancel the call with
	// DELETE /api/ai/generate/{requestId}.
	RequestID string `json:"requestId,omitempty"`
}

// GenerateResponse is the result of a generation turn.
type GenerateResponse struct {
	RequestID string      `json:"requestId"`
	SessionID string      `json:"sessionId,omitempty"`
	Schema    form.Schema `json:"schema"`
	Text      string      `json:"text"`
	Attempts  int         `json:"attempts"`
	// Status is "aborted" when the turn was cancelled; Schema is then empty.
	Status string `json:"status,omitempty"`
}

// StatusAborted marks a generation that was cancelled before it finished.
const StatusAborted = "aborted"

// GenerateHandler handles POST /api/ai/generate
func (s *Server) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger(r)

	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, r, ferrors.New(ferrors.CodeInvalidInput, "prompt is required"))
		return
	}
	if s.NewGenerator == nil {
		s.writeError(w, r, ferrors.New(ferrors.CodeInternal, "form generation is not configured"))
		return
	}
	gen, err := s.NewGenerator(ctx, s.config())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var past []history.Message
	if req.SessionID != "" && s.History != nil {
		sess, err := s.History.Get(req.SessionID)
		if err != nil && !ferrors.Is(err, ferrors.CodeNotFound) {
			s.writeError(w, r, err)
			return
		}
		past = sess.Messages
	}

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	call := gen.Start(ctx, generator.Request{Prompt: req.Prompt, History: past, Current: req.Current})
	if err := s.track(req.RequestID, call); err != nil {
		call.Cancel()
		s.writeError(w, r, err)
		return
	}
	defer s.untrack(req.RequestID)

	res, err := call.Wait()
	if err != nil {
		if ferrors.IsAborted(err) {
			// a cancel is the user's choice, not a failure
			logger.Info("generation aborted", "request", req.RequestID)
			writeJSON(w, http.StatusOK, GenerateResponse{RequestID: req.RequestID, Status: StatusAborted})
			return
		}
		s.writeError(w, r, err)
		return
	}

	resp := GenerateResponse{
		RequestID: req.RequestID,
		Schema:    res.Schema,
		Text:      res.Text,
		Attempts:  res.Attempts,
	}
	if s.History != nil {
		schema := res.Schema
		sess, err := s.History.Append(req.SessionID,
			history.Message{Role: history.RoleUser, Content: req.Prompt},
			history.Message{Role: history.RoleAssistant, Content: res.Text, Schema: &schema},
		)
		if err != nil {
			// the form was generated; losing the transcript is not fatal
			logger.Warn("failed to record chat history", "err", err)
		} else {
			resp.SessionID = sess.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelGenerateHandler handles DELETE /api/ai/generate/{requestId}
func (s *Server) CancelGenerateHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["requestId"]
	s.mu.Lock()
	call, ok := s.calls[id]
	s.mu.Unlock()
	if !ok {
		s.writeError(w, r, ferrors.New(ferrors.CodeNotFound, "no running generation %q", id))
		return
	}
	call.Cancel()
	s.logger(r).Info("generation cancelled", "request", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) track(id string, call *generator.Call) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]*generator.Call)
	}
	if _, dup := s.calls[id]; dup {
		return ferrors.New(ferrors.CodeInvalidInput, "request %q is already running", id)
	}
	s.calls[id] = call
	return nil
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	delete(s.calls, id)
	s.mu.Unlock()
}
