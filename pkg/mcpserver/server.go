// Package mcpserver exposes the form store and the placement resolver as
// MCP tools so that assistants can inspect and edit forms over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/logging"
	"github.com/schardosin/formstudio/pkg/placement"
	"github.com/schardosin/formstudio/pkg/store"
	"github.com/schardosin/formstudio/pkg/transfer"
)

// Config holds the dependencies of the tools.
type Config struct {
	Forms  store.Forms
	Policy placement.Policy
	// IDs supplies ids of placed components; nil means random UUIDs.
	IDs     form.IDSource
	Version string
	Logger  *log.Logger
}

type handlers struct {
	forms    store.Forms
	ids      form.IDSource
	resolver *placement.Resolver
	logger   *log.Logger
}

// New builds an MCP server with the form tools registered.
func New(cfg Config) *mcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	ids := cfg.IDs
	if ids == nil {
		ids = form.UUIDSource{}
	}
	h := &handlers{
		forms:    cfg.Forms,
		ids:      ids,
		resolver: placement.NewResolver(cfg.Policy, ids),
		logger:   logger,
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "formstudio", Version: cfg.Version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_forms",
		Description: "List the saved forms with their ids, names and component counts.",
	}, h.listForms)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_form",
		Description: "Return the schema of a saved form as JSON.",
	}, h.getForm)
	mcp.AddTool(server, &mcp.Tool{
		Name: "place_component",
		Description: "Drop a new component onto a saved form. Target kinds: right-of, bottom-of " +
			"(relative to nodeId), inside-container, inside-row (nodeId is the parent) and root. " +
			"The form is only updated when save is true.",
	}, h.placeComponent)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "export_form",
		Description: "Export a saved form as a JSON or YAML document.",
	}, h.exportForm)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_form",
		Description: "Save a JSON or YAML form document as a new form.",
	}, h.importForm)
	return server
}

// Run serves the tools on stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, cfg Config) error {
	return New(cfg).Run(ctx, &mcp.StdioTransport{})
}

type listFormsArgs struct{}

type formSummary struct {
	ID         int64  `json:"id"`
	Code       string `json:"code,omitempty"`
	Name       string `json:"name"`
	Components int    `json:"components"`
	UpdatedAt  string `json:"updatedAt"`
}

func (h *handlers) listForms(ctx context.Context, _ *mcp.CallToolRequest, _ listFormsArgs) (*mcp.CallToolResult, any, error) {
	records, err := h.forms.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	out := make([]formSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, formSummary{
			ID:         rec.ID,
			Code:       rec.Code,
			Name:       rec.Name,
			Components: rec.Schema.Components.Count(),
			UpdatedAt:  rec.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}
	return jsonResult(out)
}

type formArgs struct {
	ID int64 `json:"id" jsonschema:"id of the saved form"`
}

func (h *handlers) getForm(ctx context.Context, _ *mcp.CallToolRequest, args formArgs) (*mcp.CallToolResult, any, error) {
	rec, err := h.forms.Get(ctx, args.ID)
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(rec.Schema)
}

type targetArgs struct {
	Kind   string `json:"kind" jsonschema:"one of right-of, bottom-of, inside-container, inside-row, root"`
	NodeID string `json:"nodeId,omitempty" jsonschema:"reference node, or the parent for inside-* kinds"`
	Index  *int   `json:"index,omitempty" jsonschema:"insertion index for inside-* and root; omitted appends"`
}

type placeArgs struct {
	ID     int64      `json:"id" jsonschema:"id of the saved form"`
	Type   string     `json:"type" jsonschema:"component type from the palette, e.g. input"`
	Target targetArgs `json:"target"`
	Label  string     `json:"label,omitempty" jsonschema:"optional label of the new component"`
	Save   bool       `json:"save,omitempty" jsonschema:"write the result back to the form"`
}

type placeResult struct {
	NodeID  string           `json:"nodeId"`
	Applied placement.Target `json:"applied"`
	Saved   bool             `json:"saved"`
	Tree    form.Tree        `json:"tree"`
}

func (h *handlers) placeComponent(ctx context.Context, _ *mcp.CallToolRequest, args placeArgs) (*mcp.CallToolResult, any, error) {
	kind, err := placement.ParseKind(args.Target.Kind)
	if err != nil {
		return nil, nil, ferrors.Wrap(ferrors.CodeInvalidInput, err, "invalid target")
	}
	target := placement.Target{Kind: kind, NodeID: args.Target.NodeID, Index: -1}
	if args.Target.Index != nil {
		target.Index = *args.Target.Index
	}

	t := form.ComponentType(args.Type)
	if !t.Valid() {
		return nil, nil, ferrors.New(ferrors.CodeInvalidInput, "unknown component type %q", args.Type)
	}

	rec, err := h.forms.Get(ctx, args.ID)
	if err != nil {
		return nil, nil, err
	}
	node := form.NewComponent(h.ids, t)
	if args.Label != "" {
		node.Props = map[string]any{"label": args.Label}
	}
	res, err := h.resolver.Place(rec.Schema.Components, node, target)
	if err != nil {
		return nil, nil, err
	}

	out := placeResult{NodeID: res.Node.ID, Applied: res.Target, Tree: res.Tree}
	if args.Save {
		in := store.Input{Code: rec.Code, Name: rec.Name, Description: rec.Description, Schema: rec.Schema.WithComponents(res.Tree)}
		if _, err := h.forms.Update(ctx, rec.ID, in); err != nil {
			return nil, nil, err
		}
		out.Saved = true
		h.logger.Info("component placed", "form", rec.ID, "node", res.Node.ID, "target", res.Target.String())
	}
	return jsonResult(out)
}

type exportArgs struct {
	ID     int64  `json:"id" jsonschema:"id of the saved form"`
	Format string `json:"format,omitempty" jsonschema:"json (default) or yaml"`
}

func (h *handlers) exportForm(ctx context.Context, _ *mcp.CallToolRequest, args exportArgs) (*mcp.CallToolResult, any, error) {
	f, err := transfer.ParseFormat(args.Format)
	if err != nil {
		return nil, nil, err
	}
	rec, err := h.forms.Get(ctx, args.ID)
	if err != nil {
		return nil, nil, err
	}
	data, err := transfer.Marshal(rec.Schema, f)
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(data)), nil, nil
}

type importArgs struct {
	Document string `json:"document" jsonschema:"the form document"`
	Format   string `json:"format,omitempty" jsonschema:"json (default) or yaml"`
}

func (h *handlers) importForm(ctx context.Context, _ *mcp.CallToolRequest, args importArgs) (*mcp.CallToolResult, any, error) {
	f, err := transfer.ParseFormat(args.Format)
	if err != nil {
		return nil, nil, err
	}
	schema, err := transfer.Unmarshal([]byte(args.Document), f)
	if err != nil {
		return nil, nil, err
	}
	in := store.InputFromSchema(schema)
	if in.Name == "" {
		in.Name = "Imported form"
	}
	rec, err := h.forms.Create(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return textResult(fmt.Sprintf("Saved form %q with id %d.", rec.Name, rec.ID)), nil, nil
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(data)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
