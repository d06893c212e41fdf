package llmsession

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// AnthropicSession implements Session against Anthropic's Messages API.
type AnthropicSession struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewAnthropicSession reads ANTHROPIC_API_KEY and BRD_ANTHROPIC_MODEL from
// the environment.
func NewAnthropicSession() (*AnthropicSession, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("llmsession: ANTHROPIC_API_KEY environment variable is required")
	}
	model := os.Getenv("BRD_ANTHROPIC_MODEL")
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	return &AnthropicSession{apiKey: apiKey, model: model, httpClient: &http.Client{}}, nil
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type  string         `json:"type"`
	Text  string         `json:"text"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

// SendAndWait posts prompt as a single user message and waits for the
// completion, bounded by timeout in milliseconds.
func (a *AnthropicSession) SendAndWait(ctx context.Context, prompt string, timeout int64) (Event, error) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Millisecond)
	defer cancel()

	reqBody := anthropicRequest{
		Model:     a.model,
		MaxTokens: 4096,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Event{}, fmt.Errorf("llmsession: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, "https://api.anthropic.com/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return Event{}, fmt.Errorf("llmsession: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Event{}, fmt.Errorf("llmsession: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Event{}, fmt.Errorf("llmsession: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Event{}, fmt.Errorf("llmsession: API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Event{}, fmt.Errorf("llmsession: failed to parse response: %w", err)
	}

	for _, c := range parsed.Content {
		if c.Type == "text" {
			return Event{Content: Content{Kind: KindMessage, Text: c.Text}}, nil
		}
		if c.Type == "tool_use" {
			return Event{Content: Content{Kind: KindToolCall, ToolName: c.Name, ToolArgs: c.Input}}, nil
		}
	}
	return Event{Content: Content{Kind: KindRaw, Text: string(body)}}, nil
}

// SendAndStream is not supported by this HTTP client; it degrades to a
// single-event channel fed by SendAndWait with a generous timeout; the
// adapter tolerates either calling convention.
func (a *AnthropicSession) SendAndStream(ctx context.Context, prompt string) (<-chan Event, error) {
	ch := make(chan Event, 2)
	go func() {
		defer close(ch)
		event, err := a.SendAndWait(ctx, prompt, 300000)
		if err != nil {
			ch <- Event{Content: Content{Kind: KindRaw, Text: err.Error()}}
			return
		}
		ch <- event
		ch <- Event{Content: Content{Kind: KindDone}}
	}()
	return ch, nil
}

// RegisterSkills is a one-shot no-op for the HTTP client: Anthropic's
// Messages API has no server-side skill-injection mechanism, so trigger
// phrases only matter to sessions that implement one.
func (a *AnthropicSession) RegisterSkills(skillDirs []string) error {
	return nil
}

var _ Session = (*AnthropicSession)(nil)
