package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/mohammad-safakhou/newsight/config"
	ollama_provider "github.com/mohammad-safakhou/newsight/provider/ollama"
)

// Client represents different LLM providers
type Client string

const (
	Ollama Client = "ollama"
	OpenAI Client = "openai"
)

// Provider is the interface every text-generation backend must satisfy.
// Generate returns the raw completion text; responses may carry a leading
// reasoning trace which callers strip with StripReasoning before parsing.
// Recognised options: "num_ctx" (int), "temperature" (float64).
type Provider interface {
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider creates an LLM client from configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch Client(cfg.Type) {
	case Ollama, "":
		return ollama_provider.NewClient(cfg.BaseURL, cfg.Routing.Embedding, cfg.Timeout), nil
	case OpenAI:
		return nil, errors.New("openai client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}

const (
	reasoningStart = "<think>"
	reasoningEnd   = "</think>"
)

// StripReasoning drops a leading reasoning trace, everything up to and
// including the end marker, from a model response. Responses without the
// marker pair pass through unchanged.
func StripReasoning(text string) string {
	if !strings.Contains(text, reasoningStart) {
		return text
	}
	if _, after, ok := strings.Cut(text, reasoningEnd); ok {
		return strings.TrimSpace(after)
	}
	return text
}
