package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/llm"
)

var _ llm.ChatCompleter = (*Client)(nil)

type chatCompletion struct {
	Model   string `json:"model"`
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete implements llm.ChatCompleter using text-only chat/completions.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return llm.ChatResponse{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body := buildRequestBody(c.cfg.Model, req)
	c.logger.Info("llm.chat.start",
		zap.String("req_id", rid),
		zap.Float32("temp", req.Temperature),
		zap.Float32("top_p", req.TopP),
		zap.Int("max_tokens", req.MaxTokens),
		zap.Bool("schema", req.Schema != nil),
		zap.Int("user_len", len(req.User)),
	)

	raw, err := llm.PostJSON(ctx, c.http, c.cfg.BaseURL+"/chat/completions", body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.logger)
	if err != nil {
		c.logger.Error("llm.chat.http_error",
			zap.String("req_id", rid),
			zap.Bool("rate_limited", llm.IsRateLimited(err)),
			zap.Error(err),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
		return llm.ChatResponse{}, err
	}

	var cc chatCompletion
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.chat.decode_error", zap.String("req_id", rid), zap.Error(err), zap.Int("raw_bytes", len(raw)))
		return llm.ChatResponse{}, fmt.Errorf("decode chat completion: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.chat.no_choices", zap.String("req_id", rid), zap.ByteString("raw", raw))
		return llm.ChatResponse{}, errors.New("no choices in chat completion")
	}
	choice := cc.Choices[0]
	if choice.Message.Refusal != "" {
		return llm.ChatResponse{}, fmt.Errorf("model refused: %s", choice.Message.Refusal)
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return llm.ChatResponse{}, errors.New("empty completion content")
	}

	c.logger.Info("llm.chat.ok",
		zap.String("req_id", rid),
		zap.String("finish_reason", choice.FinishReason),
		zap.Int("prompt_tokens", cc.Usage.PromptTokens),
		zap.Int("completion_tokens", cc.Usage.CompletionTokens),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return llm.ChatResponse{
		Content:          content,
		Model:            cc.Model,
		FinishReason:     choice.FinishReason,
		PromptTokens:     cc.Usage.PromptTokens,
		CompletionTokens: cc.Usage.CompletionTokens,
	}, nil
}

func buildRequestBody(model string, req llm.ChatRequest) map[string]any {
	body := map[string]any{
		"model":       model,
		"temperature": req.Temperature,
		"top_p":       req.TopP,
		"stream":      false,
		"messages": []map[string]any{
			{"role": "system", "content": req.System},
			{"role": "user", "content": req.User},
		},
	}
	if req.MaxTokens > 0 {
		body["max_completion_tokens"] = req.MaxTokens
	}
	if req.FrequencyPenalty != 0 {
		body["frequency_penalty"] = req.FrequencyPenalty
	}
	if req.PresencePenalty != 0 {
		body["presence_penalty"] = req.PresencePenalty
	}
	if req.Schema != nil {
		body["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   req.Schema.Name,
				"strict": req.Schema.Strict,
				"schema": req.Schema.Schema,
			},
		}
	}
	return body
}
