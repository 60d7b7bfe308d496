package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/statement-analyzer/internal/llm"
)

var _ llm.ModelClient = (*Client)(nil)

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Call implements llm.ModelClient using chat/completions.
func (c *Client) Call(ctx context.Context, model, prompt string) (string, error) {
	return c.complete(ctx, "call", model, llm.InitialMessages(prompt))
}

// Repair implements llm.ModelClient.
func (c *Client) Repair(ctx context.Context, model, prompt, previous string) (string, error) {
	return c.complete(ctx, "repair", model, llm.RepairMessages(prompt, previous))
}

func (c *Client) complete(ctx context.Context, op, model string, msgs []llm.ChatMessage) (string, error) {
	start := time.Now()

	body := map[string]any{
		"model":       model,
		"temperature": c.cfg.Temperature,
		"messages":    msgs,
	}
	if c.cfg.JSONMode {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.openai.http_error",
			"op", op, "model", model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		var he *llm.HTTPError
		if errors.As(err, &he) {
			return "", &llm.TransportError{Model: model, Op: op, StatusCode: status, Body: string(he.Body), Err: err}
		}
		return "", &llm.TransportError{Model: model, Op: op, Err: err}
	}

	var cc completionResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", &llm.TransportError{Model: model, Op: op, StatusCode: status, Body: string(raw), Err: fmt.Errorf("decode openai response: %w", err)}
	}
	if len(cc.Choices) == 0 {
		return "", &llm.TransportError{Model: model, Op: op, StatusCode: status, Body: string(raw), Err: errors.New("no choices in openai response")}
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.logger.Info("llm.openai.ok",
		"op", op,
		"model", model,
		"chars", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}

// Ping lists models to confirm the key and base URL work.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cfg.BaseURL, "/")+"/models", nil)
	if err != nil {
		return &llm.TransportError{Op: "ping", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return &llm.TransportError{Op: "ping", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &llm.TransportError{Op: "ping", StatusCode: resp.StatusCode, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}
