package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clearview/clearview_api/pkg/models"
)

// Message is one role-tagged prompt message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion request. The model is fixed per client.
type Request struct {
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	PresencePenalty  float64   `json:"presence_penalty"`

	// Accept, when set, reports whether a completion may be reused. It is
	// never sent to the completion service.
	Accept func(string) error `json:"-"`
}

// Completer returns the text completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ChatClient talks to an OpenAI-compatible /chat/completions endpoint.
type ChatClient struct {
	url    string
	apiKey string
	model  string
	hc     *http.Client
	log    *zap.Logger
}

// NewChatClient creates a client for baseURL (e.g. https://api.openai.com/v1).
// If httpClient is nil, a default with timeout is used.
func NewChatClient(baseURL, apiKey, model string, httpClient *http.Client, log *zap.Logger) *ChatClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatClient{
		url:    strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey: apiKey,
		model:  model,
		hc:     httpClient,
		log:    log,
	}
}

type chatRequest struct {
	Model string `json:"model"`
	Request
}

func (c *ChatClient) Complete(ctx context.Context, r Request) (string, error) {
	b, err := json.Marshal(chatRequest{Model: c.model, Request: r})
	if err != nil {
		return "", fmt.Errorf("llm marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("llm new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	c.log.Debug("llm request",
		zap.String("url", c.url),
		zap.String("model", c.model),
		zap.Duration("latency", time.Since(start)),
		zap.Error(err))
	if err != nil {
		return "", fmt.Errorf("%w: request failed: %v", models.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", models.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status=%d body=%s", models.ErrTransport, resp.StatusCode, truncate(respBody, 512))
	}

	text, ok := completionText(respBody)
	if !ok {
		return "", fmt.Errorf("%w: no completion in response", models.ErrParse)
	}
	return text, nil
}

// completionText pulls the completion out of the response shapes seen from
// compatible servers:
//  1. {"choices":[{"message":{"content":"..."}}]} (chat completions)
//  2. {"choices":[{"text":"..."}]} (legacy completions)
//  3. {"response":"..."} or {"text":"..."} (ollama-style proxies)
func completionText(body []byte) (string, bool) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
		Response string `json:"response"`
		Text     string `json:"text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false
	}
	if len(parsed.Choices) > 0 {
		first := parsed.Choices[0]
		if first.Message.Content != "" {
			return first.Message.Content, true
		}
		if first.Text != "" {
			return first.Text, true
		}
	}
	if parsed.Response != "" {
		return parsed.Response, true
	}
	if parsed.Text != "" {
		return parsed.Text, true
	}
	return "", false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
