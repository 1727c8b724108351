package api

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/store"
	"github.com/schardosin/formstudio/pkg/transfer"
)

func formID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ferrors.New(ferrors.CodeInvalidInput, "invalid form id %q", raw)
	}
	return id, nil
}

// ListFormsHandler handles GET /api/forms
func (s *Server) ListFormsHandler(w http.ResponseWriter, r *http.Request) {
	records, err := s.Forms.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetFormHandler handles GET /api/forms/{id}
func (s *Server) GetFormHandler(w http.ResponseWriter, r *http.Request) {
	id, err := formID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.Forms.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CreateFormHandler handles POST /api/forms
func (s *Server) CreateFormHandler(w http.ResponseWriter, r *http.Request) {
	var in store.Input
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.Forms.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger(r).Info("form created", "id", rec.ID, "name", rec.Name)
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateFormHandler handles PUT /api/forms/{id}
func (s *Server) UpdateFormHandler(w http.ResponseWriter, r *http.Request) {
	id, err := formID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in store.Input
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.Forms.Update(r.Context(), id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeleteFormHandler handles DELETE /api/forms/{id}
func (s *Server) DeleteFormHandler(w http.ResponseWriter, r *http.Request) {
	id, err := formID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Forms.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger(r).Info("form deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ExportFormHandler handles GET /api/forms/{id}/export?format=json|yaml
func (s *Server) ExportFormHandler(w http.ResponseWriter, r *http.Request) {
	id, err := formID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format, err := transfer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.Forms.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	schema := rec.Schema
	if schema.Name == "" {
		schema.Name = rec.Name
	}
	data, err := transfer.Marshal(schema, format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	filename := transfer.Filename(schema.Name, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ImportFormHandler handles POST /api/forms/import. The body is a form
// file; its format comes from ?format=, then ?filename=, then the
// Content-Type.
func (s *Server) ImportFormHandler(w http.ResponseWriter, r *http.Request) {
	format, err := importFormat(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, ferrors.Wrap(ferrors.CodeInvalidInput, err, "read request body"))
		return
	}
	schema, err := transfer.Unmarshal(bytes.TrimSpace(data), format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	in := store.InputFromSchema(schema)
	if strings.TrimSpace(in.Name) == "" {
		in.Name = "Imported form"
		in.Schema.Name = in.Name
	}
	rec, err := s.Forms.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger(r).Info("form imported", "id", rec.ID, "name", rec.Name, "format", format)
	writeJSON(w, http.StatusCreated, rec)
}

func importFormat(r *http.Request) (transfer.Format, error) {
	q := r.URL.Query()
	if f := q.Get("format"); f != "" {
		return transfer.ParseFormat(f)
	}
	if name := q.Get("filename"); name != "" {
		return transfer.FormatFromFilename(name), nil
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.Contains(ct, "yaml") {
		return transfer.YAML, nil
	}
	return transfer.JSON, nil
}
