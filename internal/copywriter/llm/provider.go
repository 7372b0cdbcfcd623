// Package llm talks to chat-completion backends that generate site copy.
package llm

import (
	"context"
	"os"
	"strconv"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Options configures a single completion request. Zero values fall back to
// the provider Config.
type Options struct {
	MaxTokens   int64
	Temperature float64
	// JSON asks the backend to constrain output to a single JSON object.
	JSON bool
}

// Response is the result of a completion.
type Response struct {
	Content      string
	FinishReason string
	PromptTokens int64
	OutputTokens int64
}

// Provider abstracts an LLM backend (OpenAI, Ollama, vLLM, etc.).
type Provider interface {
	Complete(ctx context.Context, messages []Message, opts Options) (*Response, error)
	// Name returns the provider name (e.g. "openai").
	Name() string
	// Available reports whether the provider is configured.
	Available() bool
}

// Config holds LLM provider configuration.
type Config struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Endpoint    string  `yaml:"endpoint"` // base URL override (Ollama, vLLM, Azure)
	MaxTokens   int64   `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// DefaultConfig returns the model defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o-mini",
		MaxTokens:   1024,
		Temperature: 0.7,
	}
}

// ConfigFromEnv reads LLM configuration from environment variables.
func ConfigFromEnv() Config {
	return ApplyEnv(DefaultConfig())
}

// ApplyEnv overlays WEBMAKE_LLM_* variables onto cfg. Unparsable numbers
// are ignored.
func ApplyEnv(cfg Config) Config {
	if v := os.Getenv("WEBMAKE_LLM_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("WEBMAKE_LLM_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("WEBMAKE_LLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("WEBMAKE_LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
	if v := os.Getenv("WEBMAKE_LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Temperature = f
		}
	}
	return cfg
}
