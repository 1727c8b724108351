// Package transfer reads and writes form schemas as files. JSON is the
// default format; YAML is used when the file name says so.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
)

// Format is a file encoding.
type Format int

const (
	JSON Format = iota
	YAML
)

func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "json"
}

// Ext is the file extension for the format, dot included.
func (f Format) Ext() string {
	if f == YAML {
		return ".yaml"
	}
	return ".json"
}

// ContentType is the MIME type served for downloads.
func (f Format) ContentType() string {
	if f == YAML {
		return "application/yaml"
	}
	return "application/json"
}

// FormatFromFilename picks YAML for .yaml and .yml files and JSON otherwise.
func FormatFromFilename(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return YAML
	}
	return JSON
}

// ParseFormat accepts "json", "yaml" or "yml". Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return JSON, ferrors.New(ferrors.CodeInvalidInput, "unsupported format %q", s)
}

// Slugify lowercases name and joins its letter and digit runs with dashes:
// "Contact Us (v2)" becomes "contact-us-v2".
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// Filename is the download name for a form: the slugified name plus the
// format extension, or "untitled-form" when the slug is empty.
func Filename(name string, f Format) string {
	slug := Slugify(name)
	if slug == "" {
		slug = "untitled-form"
	}
	return slug + f.Ext()
}

// Write encodes s to w. JSON output is indented with two spaces.
func Write(w io.Writer, s form.Schema, f Format) error {
	data, err := Marshal(s, f)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Marshal encodes s in format f.
func Marshal(s form.Schema, f Format) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	if f == JSON {
		return append(data, '\n'), nil
	}
	return jsonToYAML(data)
}

// Read decodes a form from r.
func Read(r io.Reader, f Format) (form.Schema, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return form.Schema{}, fmt.Errorf("read form: %w", err)
	}
	return Unmarshal(data, f)
}

// Unmarshal decodes and validates a form. Any input that is not a form
// schema is a ParseError; the caller's state is never touched.
func Unmarshal(data []byte, f Format) (form.Schema, error) {
	if f == YAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return form.Schema{}, ferrors.Wrap(ferrors.CodeParse, err, "invalid YAML")
		}
		data = converted
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return form.Schema{}, ferrors.Wrap(ferrors.CodeParse, err, "not a form schema")
	}
	if _, ok := fields["components"]; !ok {
		return form.Schema{}, ferrors.New(ferrors.CodeParse, "not a form schema: missing components")
	}

	var s form.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return form.Schema{}, ferrors.Wrap(ferrors.CodeParse, err, "invalid form schema")
	}
	if err := s.Validate(); err != nil {
		return form.Schema{}, ferrors.Wrap(ferrors.CodeParse, err, "invalid form schema")
	}
	if _, ok := fields["settings"]; !ok {
		s.Settings = form.DefaultSettings()
	}
	return s, nil
}

// ExportFile writes s to path, choosing the format from the extension.
func ExportFile(s form.Schema, path string) error {
	data, err := Marshal(s, FormatFromFilename(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ImportFile reads a form from path, choosing the format from the extension.
func ImportFile(path string) (form.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return form.Schema{}, fmt.Errorf("open %s: %w", path, err)
	}
	return Unmarshal(data, FormatFromFilename(path))
}

// jsonToYAML re-encodes JSON as block-style YAML, keeping key order.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("convert to yaml: %w", err)
	}
	clearStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
