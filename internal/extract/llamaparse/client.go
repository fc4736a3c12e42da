package llamaparse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/extract"
)

const (
	ResultMarkdown = "markdown"
	ResultText     = "text"

	statusSuccess  = "SUCCESS"
	statusError    = "ERROR"
	statusCanceled = "CANCELED"
)

// Config for the LlamaParse client.
type Config struct {
	APIKey       string
	BaseURL      string        // default https://api.cloud.llamaindex.ai
	ResultType   string        // markdown | text
	PollInterval time.Duration // delay between job status checks
	MaxWait      time.Duration // upper bound for one parse job
	Timeout      time.Duration // per HTTP request
}

// Client implements extract.Parser against the LlamaParse REST API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

var _ extract.Parser = (*Client)(nil)

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloud.llamaindex.ai"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ResultType == "" {
		cfg.ResultType = ResultMarkdown
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 3 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type jobResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type jsonResult struct {
	Pages []struct {
		Page int    `json:"page"`
		Text string `json:"text"`
		MD   string `json:"md"`
	} `json:"pages"`
}

// Parse submits the document URL, waits for the job and returns one segment per page.
func (c *Client) Parse(ctx context.Context, documentURL string) ([]extract.Segment, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MaxWait)
	defer cancel()

	jobID, err := c.submit(ctx, documentURL)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("llamaparse.job.submitted", zap.String("job_id", jobID), zap.String("url", documentURL))

	if err := c.wait(ctx, jobID); err != nil {
		return nil, err
	}

	var res jsonResult
	if err := c.getJSON(ctx, "/api/v1/parsing/job/"+jobID+"/result/json", &res); err != nil {
		return nil, fmt.Errorf("fetch result %s: %w", jobID, err)
	}

	segments := make([]extract.Segment, 0, len(res.Pages))
	for _, p := range res.Pages {
		text := p.MD
		if c.cfg.ResultType == ResultText || text == "" {
			text = p.Text
		}
		segments = append(segments, extract.Segment{Page: p.Page, Text: text})
	}

	c.logger.Info("llamaparse.job.ok",
		zap.String("job_id", jobID),
		zap.Int("pages", len(segments)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return segments, nil
}

func (c *Client) submit(ctx context.Context, documentURL string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("input_url", documentURL); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v1/parsing/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var job jobResponse
	if err := c.do(req, &job); err != nil {
		return "", fmt.Errorf("submit parse job: %w", err)
	}
	if job.ID == "" {
		return "", errors.New("submit parse job: response has no job id")
	}
	return job.ID, nil
}

func (c *Client) wait(ctx context.Context, jobID string) error {
	for {
		var job jobResponse
		if err := c.getJSON(ctx, "/api/v1/parsing/job/"+jobID, &job); err != nil {
			return fmt.Errorf("poll job %s: %w", jobID, err)
		}
		switch strings.ToUpper(job.Status) {
		case statusSuccess:
			return nil
		case statusError, statusCanceled:
			return fmt.Errorf("parse job %s %s: %s", jobID, strings.ToLower(job.Status), job.ErrorMessage)
		}

		timer := time.NewTimer(c.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("parse job %s: %w", jobID, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("llamaparse.response_body_close_error", zap.Error(err))
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("llamaparse status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
