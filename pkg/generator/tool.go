package generator

import (
	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"

	"github.com/schardosin/formstudio/pkg/form"
)

// ToolName is the single function offered to the model.
const ToolName = "create_form"

// SystemPrompt instructs the model to answer through the create_form tool.
const SystemPrompt = `You are a form designer inside a visual form builder.
Whenever the user describes a form, or asks to change the current one, call the create_form tool with the complete form.

Rules:
- Use only these component types: input, textarea, select, checkbox, radio, date, number, email, password, file, button, heading, paragraph, divider, picture, container, row, grid.
- Put display options (label, placeholder, options, required, text, src) inside "props".
- Fields that belong on one line go into a "row" component as its children.
- Only container, row and grid components may have children. Do not put a row directly inside another row.
- Component ids are assigned by the builder; you may omit them.
- Put validation rules such as {"type": "required"} or {"type": "minLength", "value": 3} into "validation".
- After calling the tool, reply with one short sentence describing the form.`

// ToolSchema is the JSON schema of the create_form arguments. Components
// are recursive through $defs.
func ToolSchema() *jsonschema.Schema {
	types := make([]any, 0, len(form.ComponentTypes()))
	for _, t := range form.ComponentTypes() {
		types = append(types, string(t))
	}
	component := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"type"},
		Properties: map[string]*jsonschema.Schema{
			"id":    {Type: "string", Description: "Optional; replaced by a generated id."},
			"type":  {Type: "string", Enum: types},
			"props": {Type: "object", Description: "Display options such as label, placeholder, options, required."},
			"validation": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type:     "object",
					Required: []string{"type"},
					Properties: map[string]*jsonschema.Schema{
						"type":    {Type: "string"},
						"message": {Type: "string"},
					},
				},
			},
			"children": {
				Type:        "array",
				Description: "Only for container, row and grid.",
				Items:       &jsonschema.Schema{Ref: "#/$defs/component"},
			},
		},
	}

	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"name", "components"},
		Properties: map[string]*jsonschema.Schema{
			"name":        {Type: "string", Description: "Form title."},
			"description": {Type: "string"},
			"code":        {Type: "string", Description: "Short machine name, e.g. contact-form."},
			"components": {
				Type:  "array",
				Items: &jsonschema.Schema{Ref: "#/$defs/component"},
			},
			"settings": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"submitLabel": {Type: "string"},
					"layout":      {Type: "string", Enum: []any{"vertical", "horizontal", "inline"}},
					"theme":       {Type: "string"},
				},
			},
		},
		Defs: map[string]*jsonschema.Schema{
			"component": component,
		},
	}
}

// ToolDeclaration is the create_form function declaration sent with every
// request.
func ToolDeclaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:                 ToolName,
		Description:          "Create or replace the form shown in the builder.",
		ParametersJsonSchema: ToolSchema(),
	}
}
