// Package store persists form records.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
)

// Record is a saved form. Schema is serialised as schema_json.
type Record struct {
	ID          int64       `json:"id"`
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Schema      form.Schema `json:"schema_json"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Input is the body of a create or update.
type Input struct {
	Code        string      `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Schema      form.Schema `json:"schema_json"`
}

// UnmarshalJSON accepts schema_json either as an object or as a string
// holding the JSON document, which is how older clients send it.
func (in *Input) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code        string          `json:"code"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		SchemaJSON  json.RawMessage `json:"schema_json"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = Input{Code: raw.Code, Name: raw.Name, Description: raw.Description}

	doc := bytes.TrimSpace(raw.SchemaJSON)
	if len(doc) > 0 && doc[0] == '"' {
		var s string
		if err := json.Unmarshal(doc, &s); err != nil {
			return err
		}
		doc = []byte(s)
	}
	if len(doc) == 0 || string(doc) == "null" {
		in.Schema = form.NewSchema(raw.Name)
		return nil
	}
	return json.Unmarshal(doc, &in.Schema)
}

// Validate checks the input before it is written.
func (in Input) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ferrors.New(ferrors.CodeInvalidInput, "name is required")
	}
	if err := in.Schema.Validate(); err != nil {
		return err
	}
	return nil
}

// InputFromSchema builds an input whose metadata mirrors the schema.
func InputFromSchema(s form.Schema) Input {
	return Input{Code: s.Code, Name: s.Name, Description: s.Description, Schema: s}
}

// Forms is the form persistence contract used by the API, the MCP server
// and the backup job.
type Forms interface {
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	Create(ctx context.Context, in Input) (Record, error)
	Update(ctx context.Context, id int64, in Input) (Record, error)
	Delete(ctx context.Context, id int64) error
}
