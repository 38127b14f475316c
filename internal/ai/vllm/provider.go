package vllm

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/elasticbot/internal/ai/chat"
	"github.com/kiranshivaraju/elasticbot/internal/config"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// Provider implements models.AIProvider against a vLLM server's
// OpenAI-compatible endpoint. No API key is sent.
type Provider struct {
	cfg    config.VLLMConfig
	client *http.Client
}

func NewProvider(cfg config.VLLMConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string  { return "vllm" }
func (p *Provider) Model() string { return p.cfg.Model }

func (p *Provider) Interpret(ctx context.Context, req models.InterpretationRequest) (string, error) {
	return chat.Completion(ctx, p.client, p.cfg.BaseURL, "", p.cfg.Model, chat.Messages(req.System, req.Prompt))
}

var _ models.AIProvider = (*Provider)(nil)
