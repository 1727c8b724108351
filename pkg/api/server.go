// Package api serves the form builder REST API: form persistence, the
// placement resolver, the drag session websocket, form generation, chat
// history and settings.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/schardosin/formstudio/pkg/config"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/generator"
	"github.com/schardosin/formstudio/pkg/history"
	"github.com/schardosin/formstudio/pkg/logging"
	"github.com/schardosin/formstudio/pkg/placement"
	"github.com/schardosin/formstudio/pkg/store"
)

// maxBodyBytes bounds request bodies; exported forms are far smaller.
const maxBodyBytes = 8 << 20

// GeneratorFactory builds a generator for the current config. It is called
// per request so that settings changes apply without a restart.
type GeneratorFactory func(ctx context.Context, cfg *config.AppConfig) (*generator.Generator, error)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Forms        store.Forms
	History      *history.Store
	Config       *config.Holder
	NewGenerator GeneratorFactory
	// IDs supplies component ids for resolver-created nodes. Nil means
	// random UUIDs.
	IDs     form.IDSource
	Logger  *log.Logger
	Version string

	mu    sync.Mutex
	calls map[string]*generator.Call
}

// RegisterRoutes registers the API routes on a router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/health", s.HealthHandler).Methods("GET")

	router.HandleFunc("/api/forms", s.ListFormsHandler).Methods("GET")
	router.HandleFunc("/api/forms", s.CreateFormHandler).Methods("POST")
	router.HandleFunc("/api/forms/import", s.ImportFormHandler).Methods("POST")
	router.HandleFunc("/api/forms/{id:[0-9]+}", s.GetFormHandler).Methods("GET")
	router.HandleFunc("/api/forms/{id:[0-9]+}", s.UpdateFormHandler).Methods("PUT")
	router.HandleFunc("/api/forms/{id:[0-9]+}", s.DeleteFormHandler).Methods("DELETE")
	router.HandleFunc("/api/forms/{id:[0-9]+}/export", s.ExportFormHandler).Methods("GET")

	router.HandleFunc("/api/palette", s.PaletteHandler).Methods("GET")
	router.HandleFunc("/api/placement/resolve", s.ResolveHandler).Methods("POST")
	router.HandleFunc("/api/builder/ws", s.BuilderSocketHandler)

	router.HandleFunc("/api/ai/generate", s.GenerateHandler).Methods("POST")
	router.HandleFunc("/api/ai/generate/{requestId}", s.CancelGenerateHandler).Methods("DELETE")

	router.HandleFunc("/api/history", s.ListHistoryHandler).Methods("GET")
	router.HandleFunc("/api/history", s.ClearHistoryHandler).Methods("DELETE")
	router.HandleFunc("/api/history/{id}", s.GetHistoryHandler).Methods("GET")
	router.HandleFunc("/api/history/{id}", s.SaveHistoryHandler).Methods("PUT")
	router.HandleFunc("/api/history/{id}", s.DeleteHistoryHandler).Methods("DELETE")

	router.HandleFunc("/api/settings", s.GetSettingsHandler).Methods("GET")
	router.HandleFunc("/api/settings", s.UpdateSettingsHandler).Methods("PUT")
	router.HandleFunc("/api/providers/{providerId}/models", s.ListProviderModelsHandler).Methods("GET")
}

// Handler returns a router carrying only the API routes.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	s.RegisterRoutes(router)
	return router
}

func (s *Server) logger(r *http.Request) *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logging.FromContext(r.Context())
}

func (s *Server) config() *config.AppConfig {
	if s.Config == nil {
		return config.NewHolder("", nil).Current()
	}
	return s.Config.Current()
}

func (s *Server) resolver() *placement.Resolver {
	return placement.NewResolver(s.config().Builder.Policy(), s.IDs)
}

// HealthHandler handles GET /api/health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.Version})
}

// PaletteHandler handles GET /api/palette
func (s *Server) PaletteHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"types": form.ComponentTypes()})
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    ferrors.Code `json:"code"`
	Message string       `json:"message"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(code ferrors.Code) int {
	switch code {
	case ferrors.CodeNotFound:
		return http.StatusNotFound
	case ferrors.CodeInvalidInput, ferrors.CodeParse:
		return http.StatusBadRequest
	case ferrors.CodeInvalidTarget, ferrors.CodeUnsupportedNesting:
		return http.StatusUnprocessableEntity
	case ferrors.CodeAborted:
		// nginx's "client closed request"
		return 499
	case ferrors.CodeNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := ferrors.GetCode(err)
	if code == "" {
		code = ferrors.CodeInternal
	}
	status := StatusFor(code)
	msg := ferrors.UserMessage(err)
	if status >= 500 {
		s.logger(r).Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		if code == ferrors.CodeInternal {
			msg = "internal error"
		}
	} else {
		s.logger(r).Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "err", err)
	}
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: msg}})
}

// decodeJSON reads a JSON body into v. Failures are INVALID_INPUT.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ferrors.New(ferrors.CodeInvalidInput, "request body is empty")
		}
		var se *json.SyntaxError
		if errors.As(err, &se) {
			return ferrors.Wrap(ferrors.CodeInvalidInput, err, "request body is not valid JSON")
		}
		// errors raised by custom decoders keep their code
		if ferrors.GetCode(err) != "" {
			return err
		}
		return ferrors.Wrap(ferrors.CodeInvalidInput, err, "invalid request body")
	}
	return nil
}
