// Package google serves form generation through the Gemini API.
package google

import (
	"context"
	"iter"
	"slices"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"

	"github.com/schardosin/formstudio/pkg/ferrors"
)

// geminiLLM adapts a Gemini model to coded errors and strips structured
// output settings Gemini refuses alongside tools.
type geminiLLM struct {
	inner model.LLM
}

func (g *geminiLLM) Name() string { return g.inner.Name() }

func (g *geminiLLM) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	if cfg := req.Config; cfg != nil && len(cfg.Tools) > 0 {
		cfg.ResponseMIMEType, cfg.ResponseSchema = "", nil
	}
	return func(yield func(*model.LLMResponse, error) bool) {
		for resp, err := range g.inner.GenerateContent(ctx, req, stream) {
			if err != nil {
				yield(nil, classify(ctx, err))
				return
			}
			if !yield(resp, nil) {
				return
			}
		}
	}
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ferrors.Wrap(ferrors.CodeAborted, ctx.Err(), "generation aborted")
	}
	return ferrors.Wrap(ferrors.CodeNetwork, err, "gemini request failed")
}

func clientConfig(apiKey string) (*genai.ClientConfig, error) {
	if apiKey == "" {
		return nil, ferrors.New(ferrors.CodeInvalidInput, "gemini api_key not set (GOOGLE_API_KEY)")
	}
	return &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}, nil
}

// NewProvider returns the Gemini model named modelName.
func NewProvider(ctx context.Context, modelName string, apiKey string) (model.LLM, error) {
	cc, err := clientConfig(apiKey)
	if err != nil {
		return nil, err
	}
	m, err := gemini.NewModel(ctx, modelName, cc)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.CodeNetwork, err, "create gemini model")
	}
	return &geminiLLM{inner: m}, nil
}

// ListModels returns the sorted ids of Gemini models that can generate
// content, without the "models/" prefix.
func ListModels(ctx context.Context, apiKey string) ([]string, error) {
	cc, err := clientConfig(apiKey)
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.CodeNetwork, err, "create gemini client")
	}

	var ids []string
	for m, err := range client.Models.All(ctx) {
		if err != nil {
			return nil, classify(ctx, err)
		}
		if slices.Contains(m.SupportedActions, "generateContent") {
			ids = append(ids, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	if len(ids) == 0 {
		return nil, ferrors.New(ferrors.CodeNotFound, "gemini returned no generative models")
	}
	slices.Sort(ids)
	return ids, nil
}
