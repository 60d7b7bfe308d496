package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/statement-analyzer/internal/llm"
)

var (
	_ llm.ModelClient = (*Client)(nil)
	_ llm.Pinger      = (*Client)(nil)
)

type chatRequest struct {
	Model    string            `json:"model"`
	Messages []llm.ChatMessage `json:"messages"`
	Stream   bool              `json:"stream"`
	Format   string            `json:"format,omitempty"`
	Options  options           `json:"options"`
}

type options struct {
	Temperature float64 `json:"temperature"`
}

// chatEnvelope covers the native Ollama shape, the /api/generate shape and the
// OpenAI-compatible shape some gateways return.
type chatEnvelope struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	Response *string `json:"response"`
	Choices  []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Call implements llm.ModelClient.
func (c *Client) Call(ctx context.Context, model, prompt string) (string, error) {
	return c.chat(ctx, "call", model, llm.InitialMessages(prompt))
}

// Repair implements llm.ModelClient.
func (c *Client) Repair(ctx context.Context, model, prompt, previous string) (string, error) {
	return c.chat(ctx, "repair", model, llm.RepairMessages(prompt, previous))
}

func (c *Client) chat(ctx context.Context, op, model string, msgs []llm.ChatMessage) (string, error) {
	start := time.Now()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &llm.TransportError{Model: model, Op: op, Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	body := chatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   false,
		Options:  options{Temperature: c.cfg.Temperature},
	}
	if c.cfg.StrictJSON {
		body.Format = "json"
	}

	raw, status, err := llm.SendJSON(ctx, c.http, c.cfg.Endpoint, body, nil, c.logger)
	if err != nil {
		var he *llm.HTTPError
		if errors.As(err, &he) {
			return "", &llm.TransportError{Model: model, Op: op, StatusCode: status, Body: string(he.Body), Err: err}
		}
		return "", &llm.TransportError{Model: model, Op: op, Err: err}
	}

	text := extractContent(raw)
	c.logger.Debug("llm.ollama.chat.ok",
		"op", op,
		"model", model,
		"messages", len(msgs),
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// extractContent pulls the assistant text out of whichever envelope came back.
// Unknown shapes are returned verbatim so the parser can still have a go.
func extractContent(raw []byte) string {
	var env chatEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return string(raw)
	}
	switch {
	case env.Message != nil:
		return env.Message.Content
	case env.Response != nil:
		return *env.Response
	case len(env.Choices) > 0:
		return env.Choices[0].Message.Content
	default:
		return string(raw)
	}
}

// Ping checks that the endpoint answers its model listing.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tagsURL(), nil)
	if err != nil {
		return &llm.TransportError{Op: "ping", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &llm.TransportError{Op: "ping", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &llm.TransportError{Op: "ping", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return nil
}
