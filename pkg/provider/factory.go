// Package provider builds model.LLM instances from the app config.
package provider

import (
	"context"
	"sort"
	"strings"

	"google.golang.org/adk/model"

	"github.com/schardosin/formstudio/pkg/config"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/provider/google"
	openai_provider "github.com/schardosin/formstudio/pkg/provider/openai"
)

// ProviderDisplayNames maps provider IDs to their display names in the CLI
// and the settings endpoint.
var ProviderDisplayNames = map[string]string{
	"gemini":     "Google GenAI",
	"groq":       "Groq",
	"lm_studio":  "LM Studio",
	"ollama":     "Ollama",
	"openai":     "OpenAI",
	"openrouter": "Openrouter",
	"xai":        "xAI",
}

// Base URLs of the OpenAI-compatible hosted providers.
const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	XAIBaseURL        = "https://api.x.ai/v1"
	OllamaBaseURL     = "http://localhost:11434"
	LMStudioBaseURL   = "http://localhost:1234/v1"
)

// GetProviderDisplayName returns the proper display name for a provider ID.
// If the provider ID is not found, it returns the ID as-is.
func GetProviderDisplayName(providerID string) string {
	if name, ok := ProviderDisplayNames[providerID]; ok {
		return name
	}
	return providerID
}

// GetProviderIDs returns the known provider IDs in a stable order.
func GetProviderIDs() []string {
	ids := make([]string, 0, len(ProviderDisplayNames))
	for id := range ProviderDisplayNames {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// endpoint describes how to reach an OpenAI-compatible provider.
type endpoint struct {
	baseURL      string
	needsKey     bool
	requireTools bool
}

// endpointFor resolves the client settings of an OpenAI-compatible provider.
// ok is false for providers that are not OpenAI-compatible.
func endpointFor(name string, settings config.ProviderConfig) (endpoint, bool) {
	switch name {
	case "openai":
		return endpoint{baseURL: settings["base_url"], needsKey: true, requireTools: true}, true
	case "openrouter":
		return endpoint{baseURL: OpenRouterBaseURL, needsKey: true, requireTools: true}, true
	case "groq":
		return endpoint{baseURL: GroqBaseURL, needsKey: true, requireTools: true}, true
	case "xai", "grok":
		return endpoint{baseURL: XAIBaseURL, needsKey: true, requireTools: true}, true
	case "ollama":
		base := settings["base_url"]
		if base == "" {
			base = OllamaBaseURL
		}
		return endpoint{baseURL: strings.TrimRight(base, "/") + "/v1"}, true
	case "lm_studio":
		base := settings["base_url"]
		if base == "" {
			base = LMStudioBaseURL
		}
		return endpoint{baseURL: base}, true
	}
	return endpoint{}, false
}

func canonical(name string) string {
	switch name {
	case "grok":
		return "xai"
	case "google", "google_genai":
		return "gemini"
	}
	return name
}

// GetProvider returns an LLM model based on the provider name.
func GetProvider(ctx context.Context, name string, modelName string, cfg *config.AppConfig) (model.LLM, error) {
	name = canonical(name)
	if modelName == "" {
		return nil, ferrors.New(ferrors.CodeInvalidInput, "no model selected for provider %s", name)
	}
	settings := cfg.Provider(name)

	if name == "gemini" {
		return google.NewProvider(ctx, modelName, settings["api_key"])
	}

	ep, ok := endpointFor(name, settings)
	if !ok {
		return nil, ferrors.New(ferrors.CodeInvalidInput, "unsupported provider: %s", name)
	}
	apiKey := settings["api_key"]
	if ep.needsKey && apiKey == "" {
		env := config.ProviderEnvMapping[name]["api_key"]
		return nil, ferrors.New(ferrors.CodeInvalidInput, "%s api_key not set (%s)", GetProviderDisplayName(name), env)
	}
	client := openai_provider.NewClient(apiKey, ep.baseURL)
	return openai_provider.NewProvider(client, modelName, ep.requireTools), nil
}

// ListModels returns the models offered by a provider.
func ListModels(ctx context.Context, name string, cfg *config.AppConfig) ([]string, error) {
	name = canonical(name)
	settings := cfg.Provider(name)
	if name == "gemini" {
		return google.ListModels(ctx, settings["api_key"])
	}
	ep, ok := endpointFor(name, settings)
	if !ok {
		return nil, ferrors.New(ferrors.CodeInvalidInput, "unsupported provider: %s", name)
	}
	prefix := ""
	if name == "openai" && settings["base_url"] == "" {
		prefix = "gpt"
	}
	return openai_provider.ListModels(ctx, openai_provider.NewClient(settings["api_key"], ep.baseURL), prefix)
}
