package openai

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/elasticbot/internal/ai/chat"
	"github.com/kiranshivaraju/elasticbot/internal/config"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// Provider implements models.AIProvider using the OpenAI chat completions API.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string  { return "openai" }
func (p *Provider) Model() string { return p.cfg.Model }

func (p *Provider) Interpret(ctx context.Context, req models.InterpretationRequest) (string, error) {
	return chat.Completion(ctx, p.client, p.cfg.BaseURL, p.cfg.APIKey, p.cfg.Model, chat.Messages(req.System, req.Prompt))
}

var _ models.AIProvider = (*Provider)(nil)
