package ai

import (
	"fmt"

	"github.com/kiranshivaraju/elasticbot/internal/ai/anthropic"
	"github.com/kiranshivaraju/elasticbot/internal/ai/mock"
	"github.com/kiranshivaraju/elasticbot/internal/ai/ollama"
	"github.com/kiranshivaraju/elasticbot/internal/ai/openai"
	"github.com/kiranshivaraju/elasticbot/internal/ai/vllm"
	"github.com/kiranshivaraju/elasticbot/internal/config"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// NewProvider constructs the appropriate AI provider based on config.
// Called once at server startup.
func NewProvider(cfg config.AIConfig) (models.AIProvider, error) {
	switch cfg.Provider {
	case "mock":
		return mock.NewMockProvider(), nil
	case "ollama":
		return ollama.NewProvider(cfg.Ollama), nil
	case "vllm":
		return vllm.NewProvider(cfg.VLLM), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAI), nil
	case "anthropic":
		return anthropic.NewProvider(cfg.Anthropic), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of mock, ollama, vllm, openai, anthropic", cfg.Provider)
	}
}
