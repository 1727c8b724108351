package form

import (
	"github.com/schardosin/formstudio/pkg/ferrors"
)

// Settings are the form-level options persisted alongside the tree.
type Settings struct {
	SubmitLabel string         `json:"submitLabel,omitempty"`
	Layout      string         `json:"layout,omitempty"`
	Theme       string         `json:"theme,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// DefaultSettings is used whenever a schema arrives without settings.
func DefaultSettings() Settings {
	return Settings{
		SubmitLabel: "Submit",
		Layout:      "vertical",
	}
}

// Schema is the unit persisted to the backend, to the history store and to
// exported files: form metadata plus its component tree.
type Schema struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Code        string   `json:"code,omitempty"`
	Components  Tree     `json:"components"`
	Settings    Settings `json:"settings"`
}

// NewSchema returns an empty, named schema with default settings.
func NewSchema(name string) Schema {
	return Schema{
		Name:     name,
		Settings: DefaultSettings(),
	}
}

// WithComponents returns a copy of s carrying tree t.
func (s Schema) WithComponents(t Tree) Schema {
	s.Components = t
	return s
}

// Validate checks the tree invariants of the schema.
func (s Schema) Validate() error {
	if err := s.Components.Validate(); err != nil {
		return ferrors.Wrap(ferrors.CodeInvalidInput, err, "form %q", s.Name)
	}
	return nil
}
