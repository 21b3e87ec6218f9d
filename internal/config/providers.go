package config

import (
	"fmt"
	"os"
	"strings"
)

// Provider describes one OpenAI-compatible endpoint preset.
type Provider struct {
	Name         string
	BaseURL      string
	KeyEnv       string // empty means no key required
	DefaultModel string
}

// providers maps provider names to their presets. All of them speak the
// OpenAI chat completion protocol at their respective base URLs.
var providers = map[string]Provider{
	"deepseek": {
		Name:         "deepseek",
		BaseURL:      "https://api.deepseek.com",
		KeyEnv:       "DEEPSEEK_API_KEY",
		DefaultModel: "deepseek-chat",
	},
	"groq": {
		Name:         "groq",
		BaseURL:      "https://api.groq.com/openai/v1",
		KeyEnv:       "GROQ_API_KEY",
		DefaultModel: "deepseek-r1-distill-llama-70b",
	},
	"openrouter": {
		Name:         "openrouter",
		BaseURL:      "https://openrouter.ai/api/v1",
		KeyEnv:       "OPENROUTER_API_KEY",
		DefaultModel: "meta-llama/llama-3.1-70b-instruct",
	},
	"ollama": {
		Name:         "ollama",
		BaseURL:      "http://localhost:11434/v1",
		KeyEnv:       "",
		DefaultModel: "devstral:24b",
	},
	"github": {
		Name:         "github",
		BaseURL:      "https://models.github.ai/inference",
		KeyEnv:       "GITHUB_TOKEN",
		DefaultModel: "openai/gpt-4o",
	},
	"openai": {
		Name:         "openai",
		BaseURL:      "",
		KeyEnv:       "OPENAI_API_KEY",
		DefaultModel: "gpt-4o-mini",
	},
}

// ProviderPreset resolves the configured provider. An unknown name falls
// back to deepseek rather than failing, keeping the server startable with a
// typo'd environment; callers log the fallback.
func (c Config) ProviderPreset() Provider {
	name := strings.ToLower(c.Provider)
	if p, ok := providers[name]; ok {
		return p
	}
	return providers["deepseek"]
}

// ModelID resolves the model for a provider: the <PROVIDER>_MODEL_ID
// environment variable wins, then the config file value, then the preset
// default.
func (p Provider) ModelID(configured string) string {
	env := strings.ToUpper(p.Name) + "_MODEL_ID"
	if v := os.Getenv(env); v != "" {
		return v
	}
	if configured != "" {
		return configured
	}
	return p.DefaultModel
}

// APIKey reads the provider's key from the environment. A missing key is
// not an error here (the server starts and calls fail later, matching the
// warn-at-startup behavior); a malformed GitHub token is.
func (p Provider) APIKey() (string, error) {
	if p.KeyEnv == "" {
		return "", nil
	}
	key := os.Getenv(p.KeyEnv)
	if key == "" {
		return "", nil
	}
	if p.Name == "github" {
		if err := ValidateGitHubToken(key); err != nil {
			return "", err
		}
	}
	return key, nil
}

// MissingKeys returns the names of required key variables that are unset,
// for a startup warning.
func (c Config) MissingKeys() []string {
	p := c.ProviderPreset()
	var missing []string
	if p.KeyEnv != "" && os.Getenv(p.KeyEnv) == "" {
		missing = append(missing, p.KeyEnv)
	}
	return missing
}

// githubTokenPrefixes are the accepted GitHub token formats: classic PAT,
// fine-grained PAT, OAuth, and user-to-server tokens.
var githubTokenPrefixes = []string{"ghp_", "github_pat_", "gho_", "ghu_"}

// ValidateGitHubToken checks the shape of a GitHub Models token.
func ValidateGitHubToken(token string) error {
	if token == "" {
		return fmt.Errorf("github token is empty")
	}
	valid := false
	for _, prefix := range githubTokenPrefixes {
		if strings.HasPrefix(token, prefix) {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid github token format: expected prefix %s", strings.Join(githubTokenPrefixes, ", "))
	}
	if strings.HasPrefix(token, "ghp_") && len(token) != 40 {
		return fmt.Errorf("invalid github classic PAT length: expected 40 characters, got %d", len(token))
	}
	return nil
}
