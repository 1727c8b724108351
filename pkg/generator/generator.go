// Package generator asks a language model for a form through the
// create_form tool and turns the tool call into a form schema.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/history"
	"github.com/schardosin/formstudio/pkg/logging"
)

// DefaultMaxAttempts bounds how often an invalid tool call is sent back to
// the model for correction.
const DefaultMaxAttempts = 3

// Request is one generation turn.
type Request struct {
	Prompt  string            `json:"prompt"`
	History []history.Message `json:"history,omitempty"`
	// Current is the form open in the builder, if any. The model edits it
	// rather than starting over.
	Current *form.Schema `json:"current,omitempty"`
}

// Result is a generated form and the assistant's reply text.
type Result struct {
	Schema   form.Schema `json:"schema"`
	Text     string      `json:"text"`
	Attempts int         `json:"attempts"`
}

// Generator produces form schemas from natural-language prompts.
type Generator struct {
	llm         model.LLM
	converter   *Converter
	ids         form.IDSource
	logger      *log.Logger
	maxAttempts int
	onRetry     func(attempt, max int, reason error)
}

// Option configures a Generator.
type Option func(*Generator)

// WithIDSource sets the source of component ids.
func WithIDSource(ids form.IDSource) Option {
	return func(g *Generator) { g.ids = ids }
}

// WithLogger sets the logger. By default the context logger is used.
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRetryHook registers fn to be called before each corrective retry
// with the attempt that failed and why.
func WithRetryHook(fn func(attempt, max int, reason error)) Option {
	return func(g *Generator) { g.onRetry = fn }
}

// New creates a generator on llm.
func New(llm model.LLM, opts ...Option) (*Generator, error) {
	if llm == nil {
		return nil, ferrors.New(ferrors.CodeInvalidInput, "no language model configured")
	}
	g := &Generator{llm: llm, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(g)
	}
	conv, err := NewConverter(g.ids)
	if err != nil {
		return nil, err
	}
	g.converter = conv
	return g, nil
}

// Model returns the name of the underlying model.
func (g *Generator) Model() string {
	return g.llm.Name()
}

// Generate runs one turn. Invalid tool calls are answered with the
// validation error and retried up to the attempt limit. A cancelled ctx
// yields an ABORTED error.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	logger := g.logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Result{}, ferrors.New(ferrors.CodeInvalidInput, "prompt is required")
	}

	contents, err := buildContents(req)
	if err != nil {
		return Result{}, err
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Tools:             []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{ToolDeclaration()}}},
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return Result{}, aborted(ctx)
		}
		if attempt > 1 && g.onRetry != nil {
			g.onRetry(attempt-1, g.maxAttempts, lastErr)
		}
		logger.Debug("requesting form", "model", g.llm.Name(), "attempt", attempt)

		resp, err := g.complete(ctx, &model.LLMRequest{Contents: contents, Config: config})
		if err != nil {
			if ctx.Err() != nil || ferrors.IsAborted(err) {
				return Result{}, aborted(ctx)
			}
			if !ferrors.Is(err, ferrors.CodeParse) {
				return Result{}, err
			}
			// the model produced unreadable arguments; ask again
			logger.Warn("model returned malformed tool arguments", "attempt", attempt, "err", err)
			lastErr = err
			contents = append(contents, genai.NewContentFromText(
				fmt.Sprintf("Your %s call could not be parsed (%s). Call %s again with valid JSON arguments.",
					ToolName, ferrors.UserMessage(err), ToolName), genai.RoleUser))
			continue
		}

		text, call := split(resp)
		if call == nil {
			lastErr = ferrors.New(ferrors.CodeParse, "model did not call %s", ToolName)
			logger.Warn("model answered without a tool call", "attempt", attempt)
			if text != "" {
				contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
			}
			contents = append(contents, genai.NewContentFromText(
				fmt.Sprintf("Call the %s tool with the complete form.", ToolName), genai.RoleUser))
			continue
		}

		schema, err := g.converter.Convert(call.Args)
		if err == nil {
			if text == "" {
				text = fmt.Sprintf("Created form %q with %d components.", schema.Name, schema.Components.Count())
			}
			logger.Info("form generated", "name", schema.Name, "components", schema.Components.Count(), "attempts", attempt)
			return Result{Schema: schema, Text: text, Attempts: attempt}, nil
		}

		logger.Warn("tool call rejected", "attempt", attempt, "err", err)
		lastErr = err
		contents = append(contents,
			&genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{{FunctionCall: call}}},
			&genai.Content{Role: string(genai.RoleUser), Parts: []*genai.Part{
				{FunctionResponse: &genai.FunctionResponse{
					ID:       call.ID,
					Name:     call.Name,
					Response: map[string]any{"error": err.Error()},
				}},
				{Text: "Fix the problems above and call " + ToolName + " again."},
			}},
		)
	}
	return Result{}, ferrors.Wrap(ferrors.CodeParse, lastErr, "no valid form after %d attempts", g.maxAttempts)
}

// complete drains one model response. Streaming is not requested, but
// providers may still yield several partial responses; their parts are
// concatenated.
func (g *Generator) complete(ctx context.Context, req *model.LLMRequest) (*genai.Content, error) {
	out := &genai.Content{Role: string(genai.RoleModel)}
	for resp, err := range g.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return nil, err
		}
		if resp == nil {
			continue
		}
		if resp.ErrorCode != "" {
			return nil, ferrors.New(ferrors.CodeNetwork, "model error %s: %s", resp.ErrorCode, resp.ErrorMessage)
		}
		if resp.Content != nil {
			out.Parts = append(out.Parts, resp.Content.Parts...)
		}
	}
	return out, nil
}

// split separates the reply text from the first create_form call.
func split(c *genai.Content) (string, *genai.FunctionCall) {
	var (
		sb   strings.Builder
		call *genai.FunctionCall
	)
	for _, p := range c.Parts {
		if p == nil {
			continue
		}
		if p.FunctionCall != nil && p.FunctionCall.Name == ToolName && call == nil {
			call = p.FunctionCall
			continue
		}
		if p.Text != "" && !p.Thought {
			sb.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(sb.String()), call
}

func buildContents(req Request) ([]*genai.Content, error) {
	var contents []*genai.Content
	for _, m := range req.History {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		var role genai.Role = genai.RoleUser
		if m.Role == history.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	prompt := strings.TrimSpace(req.Prompt)
	if req.Current != nil && req.Current.Components.Len() > 0 {
		doc, err := json.MarshalIndent(req.Current, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode current form: %w", err)
		}
		prompt = fmt.Sprintf("The builder currently shows this form:\n```json\n%s\n```\n\n%s", doc, prompt)
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
	return contents, nil
}

func aborted(ctx context.Context) error {
	cause := ctx.Err()
	if cause == nil {
		cause = context.Canceled
	}
	return ferrors.Wrap(ferrors.CodeAborted, cause, "generation aborted")
}
