package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"github.com/clearview/clearview_api/pkg/models"
)

// OllamaClient serves completions from an Ollama server's chat endpoint.
type OllamaClient struct {
	model  string
	client *ollama.Client
	log    *zap.Logger
}

// NewOllamaClient creates a client for the server at baseURL
// (e.g. http://localhost:11434).
func NewOllamaClient(baseURL, model string, httpClient *http.Client, log *zap.Logger) (*OllamaClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama base url: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OllamaClient{model: model, client: ollama.NewClient(u, httpClient), log: log}, nil
}

func (c *OllamaClient) Complete(ctx context.Context, r Request) (string, error) {
	msgs := make([]ollama.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		msgs = append(msgs, ollama.Message{Role: m.Role, Content: m.Content})
	}
	stream := false
	req := &ollama.ChatRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   &stream,
		Options: map[string]any{
			"num_predict":       r.MaxTokens,
			"temperature":       r.Temperature,
			"top_p":             r.TopP,
			"frequency_penalty": r.FrequencyPenalty,
			"presence_penalty":  r.PresencePenalty,
		},
	}

	var out strings.Builder
	err := c.client.Chat(ctx, req, func(res ollama.ChatResponse) error {
		out.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		c.log.Debug("ollama chat failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("%w: ollama chat: %v", models.ErrTransport, err)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("%w: empty ollama completion", models.ErrParse)
	}
	return out.String(), nil
}
