package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/schardosin/formstudio/pkg/config"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/provider"
	"github.com/schardosin/formstudio/pkg/transfer"
)

// GeneralSettings represents the general app settings
type GeneralSettings struct {
	DefaultProvider            string `json:"default_provider"`
	DefaultProviderDisplayName string `json:"default_provider_display_name,omitempty"`
	DefaultModel               string `json:"default_model"`
	LogLevel                   string `json:"log_level,omitempty"`
}

// ProviderSettings represents a provider's configuration (masked)
type ProviderSettings struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Configured  bool              `json:"configured"`
	Fields      map[string]string `json:"fields"` // Masked values for display
}

// BuilderSettings are the drag-and-drop options.
type BuilderSettings struct {
	DragThreshold   float64 `json:"drag_threshold"`
	AllowNestedRows bool    `json:"allow_nested_rows"`
	MaxDepth        int     `json:"max_depth"`
}

// BackupSettings control the scheduled form export.
type BackupSettings struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
	Format   string `json:"format"`
}

// AppSettingsResponse is the response for GET /api/settings
type AppSettingsResponse struct {
	General   GeneralSettings    `json:"general"`
	Providers []ProviderSettings `json:"providers"`
	Builder   BuilderSettings    `json:"builder"`
	Backup    BackupSettings     `json:"backup"`
}

// UpdateAppSettingsRequest is the request for PUT /api/settings. Absent
// sections are left alone.
type UpdateAppSettingsRequest struct {
	General   *GeneralSettings             `json:"general,omitempty"`
	Providers map[string]map[string]string `json:"providers,omitempty"`
	Builder   *BuilderSettings             `json:"builder,omitempty"`
	Backup    *BackupSettings              `json:"backup,omitempty"`
}

func settingsResponse(cfg *config.AppConfig) AppSettingsResponse {
	providers := []ProviderSettings{}
	for _, name := range config.ProviderNames() {
		// environment fallbacks count as configured
		resolved := cfg.Provider(name)
		fields := make(map[string]string)
		configured := false
		for cfgKey := range config.ProviderEnvMapping[name] {
			val := resolved[cfgKey]
			if val != "" {
				configured = true
			}
			fields[cfgKey] = val
		}
		providers = append(providers, ProviderSettings{
			Name:        name,
			DisplayName: provider.GetProviderDisplayName(name),
			Configured:  configured,
			Fields:      config.ProviderConfig(fields).Masked(),
		})
	}

	return AppSettingsResponse{
		General: GeneralSettings{
			DefaultProvider:            cfg.General.DefaultProvider,
			DefaultProviderDisplayName: provider.GetProviderDisplayName(cfg.General.DefaultProvider),
			DefaultModel:               cfg.General.DefaultModel,
			LogLevel:                   cfg.General.LogLevel,
		},
		Providers: providers,
		Builder: BuilderSettings{
			DragThreshold:   cfg.Builder.DragThreshold,
			AllowNestedRows: cfg.Builder.AllowNestedRows,
			MaxDepth:        cfg.Builder.MaxDepth,
		},
		Backup: BackupSettings{
			Enabled:  cfg.Backup.Enabled,
			Schedule: cfg.Backup.Schedule,
			Format:   cfg.Backup.Format,
		},
	}
}

// GetSettingsHandler handles GET /api/settings
func (s *Server) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settingsResponse(s.config()))
}

// UpdateSettingsHandler handles PUT /api/settings
func (s *Server) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	if s.Config == nil {
		s.writeError(w, r, ferrors.New(ferrors.CodeInternal, "settings are read-only"))
		return
	}
	var req UpdateAppSettingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	err := s.Config.Update(func(cfg *config.AppConfig) error {
		return applySettings(cfg, req)
	})
	if err != nil {
		if ferrors.GetCode(err) == "" {
			err = ferrors.Wrap(ferrors.CodeInternal, err, "failed to save config")
		}
		s.writeError(w, r, err)
		return
	}
	s.logger(r).Info("settings updated")
	writeJSON(w, http.StatusOK, settingsResponse(s.Config.Current()))
}

func applySettings(cfg *config.AppConfig, req UpdateAppSettingsRequest) error {
	if req.General != nil {
		cfg.General.DefaultProvider = req.General.DefaultProvider
		cfg.General.DefaultModel = req.General.DefaultModel
		if req.General.LogLevel != "" {
			cfg.General.LogLevel = req.General.LogLevel
		}
	}

	for providerName, providerFields := range req.Providers {
		if _, known := config.ProviderEnvMapping[providerName]; !known {
			return ferrors.New(ferrors.CodeInvalidInput, "unknown provider %q", providerName)
		}
		if cfg.Providers[providerName] == nil {
			cfg.Providers[providerName] = make(config.ProviderConfig)
		}
		for key, value := range providerFields {
			// Only update if value is not masked placeholder
			if value != "" && !config.IsMasked(value) {
				cfg.Providers[providerName][key] = value
			}
		}
	}

	if b := req.Builder; b != nil {
		if b.DragThreshold < 0 || b.MaxDepth < 0 {
			return ferrors.New(ferrors.CodeInvalidInput, "drag_threshold and max_depth must not be negative")
		}
		if b.DragThreshold > 0 {
			cfg.Builder.DragThreshold = b.DragThreshold
		}
		cfg.Builder.AllowNestedRows = b.AllowNestedRows
		cfg.Builder.MaxDepth = b.MaxDepth
	}

	if b := req.Backup; b != nil {
		if b.Schedule != "" {
			if _, err := cron.ParseStandard(b.Schedule); err != nil {
				return ferrors.Wrap(ferrors.CodeInvalidInput, err, "invalid backup schedule %q", b.Schedule)
			}
			cfg.Backup.Schedule = b.Schedule
		}
		if b.Format != "" {
			if _, err := transfer.ParseFormat(b.Format); err != nil {
				return err
			}
			cfg.Backup.Format = b.Format
		}
		cfg.Backup.Enabled = b.Enabled
	}
	return nil
}

// ListProviderModelsHandler handles GET /api/providers/{providerId}/models
func (s *Server) ListProviderModelsHandler(w http.ResponseWriter, r *http.Request) {
	providerID := mux.Vars(r)["providerId"]
	models, err := provider.ListModels(r.Context(), providerID, s.config())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"provider": providerID, "models": models})
}
