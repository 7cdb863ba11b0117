package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultGroqModel   = "llama-3.3-70b-versatile"
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1/chat/completions"
)

// GroqClient calls the Groq Chat Completions API (OpenAI-compatible).
// See: https://console.groq.com/docs/api-reference
type GroqClient struct {
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// GroqOptions overrides GroqClient defaults. Zero fields keep the default.
type GroqOptions struct {
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewGroqClient(apiKey string, opts GroqOptions) *GroqClient {
	g := &GroqClient{
		http:    opts.HTTPClient,
		apiKey:  apiKey,
		model:   opts.Model,
		baseURL: opts.BaseURL,
	}
	if g.http == nil {
		g.http = &http.Client{Timeout: 120 * time.Second}
	}
	if g.model == "" {
		g.model = DefaultGroqModel
	}
	if g.baseURL == "" {
		g.baseURL = DefaultGroqBaseURL
	}
	return g
}

func (g *GroqClient) Name() string { return "groq:" + g.model }
func (g *GroqClient) Close() error { return nil }

type groqChatReq struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}
type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
type groqChatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *GroqClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	system, history := splitSystem(req.History)
	msgs := make([]groqMessage, 0, len(history)+2)
	if system != "" {
		msgs = append(msgs, groqMessage{Role: "system", Content: system})
	}
	for _, m := range history {
		role := "user"
		if m.Role == RoleAssistant {
			role = "assistant"
		}
		msgs = append(msgs, groqMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, groqMessage{Role: "user", Content: userText(req)})

	b, err := json.Marshal(groqChatReq{Model: g.model, Messages: msgs, Temperature: 0.2})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", groqStatusError(resp)
	}
	var out groqChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("groq: decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return out.Choices[0].Message.Content, nil
}

func groqStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err := fmt.Errorf("groq: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewPermanentError(err)
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), `"code":"context_length_exceeded"`):
		return NewPermanentError(err)
	case resp.StatusCode == http.StatusTooManyRequests:
		h, _ := parseRateLimitHeaders(resp.Header)
		return &RateLimitedError{RetryAfter: h.NextWait(), Err: err}
	}
	return err
}
