package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/schardosin/formstudio/pkg/ferrors"
)

// Provider implements model.LLM on any OpenAI-compatible chat completions
// endpoint.
type Provider struct {
	client *openai.Client
	model  string
	// requireTools forces a tool call whenever tools are offered. Some
	// local servers reject tool_choice, so it is optional.
	requireTools bool
}

// NewProvider creates a new OpenAI provider.
func NewProvider(client *openai.Client, modelName string, requireTools bool) *Provider {
	return &Provider{
		client:       client,
		model:        modelName,
		requireTools: requireTools,
	}
}

// NewClient builds a go-openai client for apiKey, pointed at baseURL when
// it is set.
func NewClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// Name implements model.LLM.
func (p *Provider) Name() string {
	return p.model
}

// GenerateContent implements model.LLM.
func (p *Provider) GenerateContent(ctx context.Context, req *model.LLMRequest, streaming bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		openAIReq := openai.ChatCompletionRequest{
			Model:    p.model,
			Messages: toOpenAIMessages(req),
			Tools:    toOpenAITools(req),
		}
		if p.requireTools && len(openAIReq.Tools) > 0 {
			openAIReq.ToolChoice = "required"
		}

		if !streaming {
			resp, err := p.client.CreateChatCompletion(ctx, openAIReq)
			if err != nil {
				yield(nil, classify(ctx, err))
				return
			}
			llmResp, err := toLLMResponse(resp)
			yield(llmResp, err)
			return
		}

		stream, err := p.client.CreateChatCompletionStream(ctx, openAIReq)
		if err != nil {
			yield(nil, classify(ctx, err))
			return
		}
		defer stream.Close()

		acc := newToolCallAccumulator()
		var text strings.Builder
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				yield(nil, classify(ctx, err))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta
			acc.add(delta.ToolCalls)
			if delta.Content == "" {
				continue
			}
			text.WriteString(delta.Content)
			partial := &model.LLMResponse{
				Content: &genai.Content{Role: string(genai.RoleModel), Parts: []*genai.Part{{Text: delta.Content}}},
				Partial: true,
			}
			if !yield(partial, nil) {
				return
			}
		}

		// the aggregated turn carries the full text and the completed tool calls
		msg := openai.ChatCompletionMessage{Content: text.String(), ToolCalls: acc.calls()}
		final, err := messageToResponse(msg)
		if err != nil {
			yield(nil, err)
			return
		}
		final.TurnComplete = true
		yield(final, nil)
	}
}

func toOpenAITools(req *model.LLMRequest) []openai.Tool {
	if req.Config == nil {
		return nil
	}
	var tools []openai.Tool
	for _, t := range req.Config.Tools {
		if t == nil {
			continue
		}
		for _, fd := range t.FunctionDeclarations {
			tools = append(tools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        fd.Name,
					Description: fd.Description,
					Parameters:  fd.ParametersJsonSchema,
				},
			})
		}
	}
	return tools
}

func toOpenAIMessages(req *model.LLMRequest) []openai.ChatCompletionMessage {
	var messages []openai.ChatCompletionMessage

	if req.Config != nil && req.Config.SystemInstruction != nil {
		var sb strings.Builder
		for _, part := range req.Config.SystemInstruction.Parts {
			sb.WriteString(part.Text)
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: sb.String(),
		})
	}

	for _, c := range req.Contents {
		if c == nil {
			continue
		}
		role := openai.ChatMessageRoleUser
		if c.Role == string(genai.RoleModel) {
			role = openai.ChatMessageRoleAssistant
		}

		var (
			sb        strings.Builder
			toolCalls []openai.ToolCall
			results   []openai.ChatCompletionMessage
		)
		for _, part := range c.Parts {
			switch {
			case part.FunctionResponse != nil:
				fr := part.FunctionResponse
				results = append(results, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    responseText(fr.Response),
					ToolCallID: callID(fr.ID, fr.Name),
				})
			case part.FunctionCall != nil:
				args, _ := json.Marshal(part.FunctionCall.Args)
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   callID(part.FunctionCall.ID, part.FunctionCall.Name),
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      part.FunctionCall.Name,
						Arguments: string(args),
					},
				})
			case part.Text != "":
				sb.WriteString(part.Text)
			}
		}

		// tool results must directly follow the assistant turn that asked for
		// them, ahead of any text sent alongside
		messages = append(messages, results...)
		if sb.Len() > 0 || len(toolCalls) > 0 {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:      role,
				Content:   sb.String(),
				ToolCalls: toolCalls,
			})
		}
	}
	return messages
}

// callID falls back to a name-derived id for calls recorded without one.
func callID(id, name string) string {
	if id != "" {
		return id
	}
	return "call_" + name
}

func responseText(resp map[string]any) string {
	if res, ok := resp["result"].(string); ok {
		return res
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf("%v", resp)
	}
	return string(b)
}

func toLLMResponse(resp openai.ChatCompletionResponse) (*model.LLMResponse, error) {
	if len(resp.Choices) == 0 {
		return &model.LLMResponse{TurnComplete: true}, nil
	}
	out, err := messageToResponse(resp.Choices[0].Message)
	if err != nil {
		return nil, err
	}
	out.TurnComplete = true
	out.UsageMetadata = &genai.GenerateContentResponseUsageMetadata{
		PromptTokenCount:     int32(resp.Usage.PromptTokens),
		CandidatesTokenCount: int32(resp.Usage.CompletionTokens),
		TotalTokenCount:      int32(resp.Usage.TotalTokens),
	}
	return out, nil
}

// messageToResponse converts an assistant message. Tool call arguments
// that are not a JSON object fail with a parse error, which callers may
// retry.
func messageToResponse(msg openai.ChatCompletionMessage) (*model.LLMResponse, error) {
	var parts []*genai.Part
	if msg.Content != "" {
		parts = append(parts, &genai.Part{Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, ferrors.Wrap(ferrors.CodeParse, err, "tool call %s: arguments are not a JSON object", tc.Function.Name)
			}
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			},
		})
	}
	return &model.LLMResponse{
		Content: &genai.Content{Role: string(genai.RoleModel), Parts: parts},
	}, nil
}

// toolCallAccumulator stitches streamed tool call fragments back together.
// Fragments of one call share an index; only the first carries the id and
// name.
type toolCallAccumulator struct {
	byIndex map[int]*openai.ToolCall
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIndex: map[int]*openai.ToolCall{}}
}

func (a *toolCallAccumulator) add(deltas []openai.ToolCall) {
	for i, d := range deltas {
		idx := i
		if d.Index != nil {
			idx = *d.Index
		}
		tc, ok := a.byIndex[idx]
		if !ok {
			tc = &openai.ToolCall{Type: openai.ToolTypeFunction}
			a.byIndex[idx] = tc
		}
		if d.ID != "" {
			tc.ID = d.ID
		}
		if d.Function.Name != "" {
			tc.Function.Name = d.Function.Name
		}
		tc.Function.Arguments += d.Function.Arguments
	}
}

func (a *toolCallAccumulator) calls() []openai.ToolCall {
	if len(a.byIndex) == 0 {
		return nil
	}
	idx := make([]int, 0, len(a.byIndex))
	for i := range a.byIndex {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]openai.ToolCall, 0, len(idx))
	for _, i := range idx {
		out = append(out, *a.byIndex[i])
	}
	return out
}

// classify maps transport failures onto error codes. A cancelled context
// is reported as aborted rather than as a network failure.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ferrors.Wrap(ferrors.CodeAborted, ctx.Err(), "generation aborted")
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ferrors.Wrap(ferrors.CodeNetwork, err, "provider returned HTTP %d", apiErr.HTTPStatusCode)
	}
	return ferrors.Wrap(ferrors.CodeNetwork, err, "provider request failed")
}
