package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
)

// Converter turns create_form arguments into a form schema.
type Converter struct {
	resolved *jsonschema.Resolved
	ids      form.IDSource
}

// NewConverter resolves the tool schema once. ids defaults to UUIDs.
func NewConverter(ids form.IDSource) (*Converter, error) {
	if ids == nil {
		ids = form.UUIDSource{}
	}
	resolved, err := ToolSchema().Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve %s schema: %w", ToolName, err)
	}
	return &Converter{resolved: resolved, ids: ids}, nil
}

// ParseArguments decodes raw tool-call arguments and converts them.
func (c *Converter) ParseArguments(raw []byte) (form.Schema, error) {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return form.Schema{}, ferrors.Wrap(ferrors.CodeParse, err, "%s arguments are not valid JSON", ToolName)
	}
	return c.Convert(args)
}

// Convert validates args against the tool schema and builds the schema.
// Every component gets a fresh id, keys other than the known component
// fields are folded into props, and missing settings get their defaults.
// All failures are reported as parse errors.
func (c *Converter) Convert(args map[string]any) (form.Schema, error) {
	if args == nil {
		return form.Schema{}, ferrors.New(ferrors.CodeParse, "%s was called without arguments", ToolName)
	}
	if err := c.resolved.Validate(args); err != nil {
		return form.Schema{}, ferrors.Wrap(ferrors.CodeParse, err, "%s arguments do not match the schema", ToolName)
	}

	s := form.NewSchema(stringOf(args["name"]))
	s.Description = stringOf(args["description"])
	s.Code = stringOf(args["code"])

	rawComponents, _ := args["components"].([]any)
	nodes, err := toComponents(rawComponents, "components")
	if err != nil {
		return form.Schema{}, err
	}
	form.AssignIDs(nodes, c.ids)
	s.Components = form.NewTree(nodes...)

	if raw, ok := args["settings"].(map[string]any); ok {
		settings, err := toSettings(raw)
		if err != nil {
			return form.Schema{}, err
		}
		s.Settings = settings
	}

	if err := s.Validate(); err != nil {
		return form.Schema{}, ferrors.Wrap(ferrors.CodeParse, err, "%s produced an invalid form", ToolName)
	}
	return s, nil
}

var componentKeys = map[string]bool{
	"id": true, "type": true, "props": true, "validation": true, "children": true,
}

func toComponents(raw []any, path string) ([]*form.Component, error) {
	nodes := make([]*form.Component, 0, len(raw))
	for i, item := range raw {
		at := fmt.Sprintf("%s[%d]", path, i)
		m, ok := item.(map[string]any)
		if !ok {
			return nil, ferrors.New(ferrors.CodeParse, "%s is not an object", at)
		}
		n, err := toComponent(m, at)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func toComponent(m map[string]any, path string) (*form.Component, error) {
	n := &form.Component{Type: form.ComponentType(strings.ToLower(stringOf(m["type"])))}

	props := map[string]any{}
	if p, ok := m["props"].(map[string]any); ok {
		for k, v := range p {
			props[k] = v
		}
	}
	for k, v := range m {
		if componentKeys[k] {
			continue
		}
		if _, set := props[k]; !set {
			props[k] = v
		}
	}
	if len(props) > 0 {
		n.Props = props
	}

	if raw, ok := m["validation"]; ok && raw != nil {
		b, _ := json.Marshal(raw)
		if err := json.Unmarshal(b, &n.Validation); err != nil {
			return nil, ferrors.Wrap(ferrors.CodeParse, err, "%s.validation", path)
		}
	}

	if raw, ok := m["children"].([]any); ok && len(raw) > 0 {
		children, err := toComponents(raw, path+".children")
		if err != nil {
			return nil, err
		}
		n.Children = children
	}
	return n, nil
}

func toSettings(raw map[string]any) (form.Settings, error) {
	var s form.Settings
	b, _ := json.Marshal(raw)
	if err := json.Unmarshal(b, &s); err != nil {
		return form.Settings{}, ferrors.Wrap(ferrors.CodeParse, err, "settings")
	}
	def := form.DefaultSettings()
	if s.SubmitLabel == "" {
		s.SubmitLabel = def.SubmitLabel
	}
	if s.Layout == "" {
		s.Layout = def.Layout
	}
	return s, nil
}

func stringOf(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
