package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/elasticbot/internal/ai/chat"
	"github.com/kiranshivaraju/elasticbot/internal/config"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

const apiVersion = "2023-06-01"

// Provider implements models.AIProvider using the Anthropic Messages API.
type Provider struct {
	cfg    config.AnthropicConfig
	client *http.Client
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string  { return "anthropic" }
func (p *Provider) Model() string { return p.cfg.Model }

type messagesRequest struct {
	Model       string         `json:"model"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature float64        `json:"temperature"`
	System      string         `json:"system,omitempty"`
	Messages    []chat.Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Provider) Interpret(ctx context.Context, req models.InterpretationRequest) (string, error) {
	headers := map[string]string{
		"x-api-key":         p.cfg.APIKey,
		"anthropic-version": apiVersion,
	}
	var out messagesResponse
	err := chat.PostJSON(ctx, p.client, strings.TrimRight(p.cfg.BaseURL, "/")+"/v1/messages", headers, messagesRequest{
		Model:       p.cfg.Model,
		MaxTokens:   chat.MaxTokens,
		Temperature: chat.Temperature,
		System:      req.System,
		Messages:    []chat.Message{{Role: "user", Content: req.Prompt}},
	}, &out)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("%w: no text content", chat.ErrInvalidResponse)
	}
	return b.String(), nil
}

var _ models.AIProvider = (*Provider)(nil)
