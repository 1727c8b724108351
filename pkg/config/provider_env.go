package config

import (
	"os"
	"sort"
)

// ProviderEnvMapping maps provider config keys to environment variable names.
// A value missing from config.yaml falls back to its environment variable.
var ProviderEnvMapping = map[string]map[string]string{
	"gemini": {
		"api_key": "GOOGLE_API_KEY",
	},
	"openai": {
		"api_key":  "OPENAI_API_KEY",
		"base_url": "OPENAI_BASE_URL",
	},
	"openrouter": {
		"api_key": "OPENROUTER_API_KEY",
	},
	"groq": {
		"api_key": "GROQ_API_KEY",
	},
	"xai": {
		"api_key": "XAI_API_KEY",
	},
	"ollama": {
		"base_url": "OLLAMA_HOST",
	},
	"lm_studio": {
		"base_url": "LMSTUDIO_BASE_URL",
	},
}

// SecretKeys are provider keys masked when the config is shown.
var SecretKeys = map[string]bool{
	"api_key": true,
}

// ProviderNames lists the supported providers in a stable order.
func ProviderNames() []string {
	names := make([]string, 0, len(ProviderEnvMapping))
	for name := range ProviderEnvMapping {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Provider returns the settings of a provider with environment fallbacks
// applied. The config itself is not modified and no environment variable
// is written.
func (c *AppConfig) Provider(name string) ProviderConfig {
	out := make(ProviderConfig)
	if c != nil {
		for k, v := range c.Providers[name] {
			out[k] = v
		}
	}
	for cfgKey, envKey := range ProviderEnvMapping[name] {
		if out[cfgKey] != "" {
			continue
		}
		if val := os.Getenv(envKey); val != "" {
			out[cfgKey] = val
		}
	}
	return out
}

// Masked returns a copy of the provider settings safe to display: secrets
// keep only their last four characters.
func (p ProviderConfig) Masked() ProviderConfig {
	out := make(ProviderConfig, len(p))
	for k, v := range p {
		if SecretKeys[k] && v != "" {
			out[k] = MaskSecret(v)
			continue
		}
		out[k] = v
	}
	return out
}

// MaskSecret hides all but the last four characters of s.
func MaskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// IsMasked reports whether v is the output of MaskSecret. Masked values
// sent back by a client must not overwrite the stored secret.
func IsMasked(v string) bool {
	return len(v) >= 4 && v[:4] == "****"
}
