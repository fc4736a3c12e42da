package openai

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config for an OpenAI-compatible chat/completions endpoint (OpenAI, Groq).
type Config struct {
	APIKey            string
	BaseURL           string        // default https://api.openai.com/v1
	Model             string        // e.g. "gpt-4o", "deepseek-r1-distill-llama-70b"
	Timeout           time.Duration // http client timeout
	RequestsPerMinute int           // 0 disables client-side pacing
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		logger:  logger.With(zap.String("model", cfg.Model)),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}
