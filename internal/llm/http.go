package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/logger"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 8 << 20

// APIError is a non-2xx answer from a provider endpoint.
type APIError struct {
	Status  int
	Message string // provider error message, or the truncated body
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Message)
}

// RateLimited reports whether the provider throttled the call.
func (e *APIError) RateLimited() bool { return e.Status == http.StatusTooManyRequests }

// IsRateLimited reports whether err carries a throttled APIError.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.RateLimited()
}

// PostJSON sends body to url and returns the raw 2xx response. Every log line
// carries the batch run id found in ctx so provider calls can be traced back
// to the document being classified.
func PostJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, log *zap.Logger) ([]byte, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	log = log.With(
		zap.String("req_id", uuid.New().String()),
		zap.String("run_id", common.RunIDFromContext(ctx)),
	)
	start := time.Now()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Error("llm.http.send_failed", zap.Error(err), zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	log.Debug("llm.http.response",
		zap.Int("status", resp.StatusCode),
		zap.Int("req_bytes", len(payload)),
		zap.Int("resp_bytes", len(raw)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
		log.Warn("llm.http.status", zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return nil, apiErr
	}
	return raw, nil
}

// errorMessage pulls {"error":{"message":...}} out of an OpenAI-style error
// body and falls back to the body itself.
func errorMessage(raw []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return logger.Truncate(string(raw), 300)
}
