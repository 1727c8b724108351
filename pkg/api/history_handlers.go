package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/history"
)

func (s *Server) historyStore() (*history.Store, error) {
	if s.History == nil {
		return nil, ferrors.New(ferrors.CodeInternal, "chat history is not configured")
	}
	return s.History, nil
}

// ListHistoryHandler handles GET /api/history
func (s *Server) ListHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h, err := s.historyStore()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sessions, err := h.List()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// GetHistoryHandler handles GET /api/history/{id}
func (s *Server) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h, err := s.historyStore()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := h.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// SaveHistoryHandler handles PUT /api/history/{id}
func (s *Server) SaveHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h, err := s.historyStore()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var sess history.Session
	if err := decodeJSON(w, r, &sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess.ID = mux.Vars(r)["id"]
	saved, err := h.Save(sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteHistoryHandler handles DELETE /api/history/{id}
func (s *Server) DeleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h, err := s.historyStore()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := h.Delete(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearHistoryHandler handles DELETE /api/history
func (s *Server) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h, err := s.historyStore()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := h.Clear(); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
