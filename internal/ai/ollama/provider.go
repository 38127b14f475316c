package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/elasticbot/internal/ai/chat"
	"github.com/kiranshivaraju/elasticbot/internal/config"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// Provider implements models.AIProvider using the Ollama chat API.
type Provider struct {
	cfg    config.OllamaConfig
	client *http.Client
}

func NewProvider(cfg config.OllamaConfig) *Provider {
	return &Provider{cfg: cfg, client: &http.Client{}}
}

func (p *Provider) Name() string  { return "ollama" }
func (p *Provider) Model() string { return p.cfg.Model }

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chat.Message `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  options        `json:"options"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatResponse struct {
	Message chat.Message `json:"message"`
}

func (p *Provider) Interpret(ctx context.Context, req models.InterpretationRequest) (string, error) {
	var out chatResponse
	err := chat.PostJSON(ctx, p.client, strings.TrimRight(p.cfg.BaseURL, "/")+"/api/chat", nil, chatRequest{
		Model:    p.cfg.Model,
		Messages: chat.Messages(req.System, req.Prompt),
		Options:  options{Temperature: chat.Temperature, NumPredict: chat.MaxTokens},
	}, &out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Message.Content) == "" {
		return "", fmt.Errorf("%w: empty message", chat.ErrInvalidResponse)
	}
	return out.Message.Content, nil
}

var _ models.AIProvider = (*Provider)(nil)
