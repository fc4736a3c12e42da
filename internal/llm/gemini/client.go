package gemini

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/bulk-resumes/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

var _ llm.ChatCompleter = (*Client)(nil)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client serves either stage through the Gemini API.
type Client struct {
	models contentGenerator
	model  string
	logger *zap.Logger
}

func NewClient(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newClient(client.Models, model, logger), nil
}

func newClient(models contentGenerator, model string, logger *zap.Logger) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{models: models, model: model, logger: logger.With(zap.String("model", model))}
}

func (c *Client) Model() string { return c.model }

func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	start := time.Now()
	cfg, err := buildConfig(req)
	if err != nil {
		return llm.ChatResponse{}, err
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(req.User), cfg)
	if err != nil {
		c.logger.Error("llm.gemini.error", zap.Error(err), zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return llm.ChatResponse{}, fmt.Errorf("generate content: %w", err)
	}

	var (
		builder strings.Builder
		finish  string
	)
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		if finish == "" {
			finish = string(candidate.FinishReason)
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(part.Text)
		}
	}
	output := strings.TrimSpace(builder.String())
	if output == "" {
		return llm.ChatResponse{}, errors.New("gemini api returned empty response")
	}

	out := llm.ChatResponse{Content: output, Model: c.model, FinishReason: finish}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	c.logger.Info("llm.gemini.ok",
		zap.String("finish_reason", finish),
		zap.Int("completion_tokens", out.CompletionTokens),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return out, nil
}

func buildConfig(req llm.ChatRequest) (*genai.GenerateContentConfig, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: ptr(req.Temperature),
		TopP:        ptr(req.TopP),
	}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.FrequencyPenalty != 0 {
		cfg.FrequencyPenalty = ptr(req.FrequencyPenalty)
	}
	if req.PresencePenalty != 0 {
		cfg.PresencePenalty = ptr(req.PresencePenalty)
	}
	if req.Schema != nil {
		schema, err := ToSchema(req.Schema.Schema)
		if err != nil {
			return nil, fmt.Errorf("convert response schema %q: %w", req.Schema.Name, err)
		}
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = schema
	}
	return cfg, nil
}

// ToSchema converts the JSON-Schema subset used by the candidate schema
// (object, string, enum, required, description) into a genai.Schema.
func ToSchema(m map[string]any) (*genai.Schema, error) {
	s := &genai.Schema{}
	switch t, _ := m["type"].(string); t {
	case "object":
		s.Type = genai.TypeObject
	case "string":
		s.Type = genai.TypeString
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	default:
		return nil, fmt.Errorf("unsupported schema type %q", t)
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	s.Enum = stringList(m["enum"])
	s.Required = stringList(m["required"])

	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			pm, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %q is not an object", name)
			}
			ps, err := ToSchema(pm)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			s.Properties[name] = ps
		}
		// Gemini emits properties in this order.
		s.PropertyOrdering = s.Required
		if len(s.PropertyOrdering) == 0 {
			for name := range props {
				s.PropertyOrdering = append(s.PropertyOrdering, name)
			}
			sort.Strings(s.PropertyOrdering)
		}
	}
	return s, nil
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
