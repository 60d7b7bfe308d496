package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/statement-analyzer/internal/common"
)

// HTTPError is a non-2xx answer from a model endpoint. The body is kept for diagnostics.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("non-2xx status: %d", e.StatusCode)
}

// SendJSON POSTs body as JSON to url and returns the raw response body.
// It does not assume any provider; callers decide the URL, headers and envelope.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 180 * time.Second}
	}

	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	attrs := []any{"req_id", reqID, "url", url}
	if jobID := common.JobIDFromContext(ctx); jobID != "" {
		attrs = append(attrs, "job_id", jobID)
	}
	if rid := common.RequestIDFromContext(ctx); rid != "" {
		attrs = append(attrs, "request_id", rid)
	}
	logger.Info("llm.http.request", append(attrs, "content_length", len(bs))...)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", append(attrs, "error", err, "elapsed_ms", time.Since(start).Milliseconds())...)
		return nil, 0, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("llm.http.read_error", append(attrs, "error", err, "elapsed_ms", time.Since(start).Milliseconds())...)
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	logger.Info("llm.http.response", append(attrs,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)...)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Body: raw}
	}
	return raw, resp.StatusCode, nil
}
