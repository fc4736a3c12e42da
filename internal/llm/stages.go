package llm

import (
	"context"
	"errors"
	"strings"
)

// Sampling holds the generation parameters of one stage.
type Sampling struct {
	Temperature      float32
	TopP             float32
	MaxTokens        int
	FrequencyPenalty float32
	PresencePenalty  float32
}

var (
	// AnalystSampling favors varied reasoning.
	AnalystSampling = Sampling{Temperature: 0.6, TopP: 0.95}
	// ExtractorSampling is used with schema-constrained decoding.
	ExtractorSampling = Sampling{Temperature: 1, TopP: 1, MaxTokens: 2048}
)

// ChatAnalyst runs stage 1 on any ChatCompleter.
type ChatAnalyst struct {
	chat     ChatCompleter
	sampling Sampling
	system   string
}

func NewAnalyst(chat ChatCompleter, sampling Sampling) *ChatAnalyst {
	return &ChatAnalyst{chat: chat, sampling: sampling, system: AnalystSystemPrompt}
}

func (a *ChatAnalyst) Analyze(ctx context.Context, resumeText string) (string, error) {
	resp, err := a.chat.Complete(ctx, ChatRequest{
		System:           a.system,
		User:             BuildAnalystUserPrompt(resumeText),
		Temperature:      a.sampling.Temperature,
		TopP:             a.sampling.TopP,
		MaxTokens:        a.sampling.MaxTokens,
		FrequencyPenalty: a.sampling.FrequencyPenalty,
		PresencePenalty:  a.sampling.PresencePenalty,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// ChatStructurer runs stage 2 with the candidate schema as response format.
type ChatStructurer struct {
	chat     ChatCompleter
	sampling Sampling
	schema   *ResponseSchema
}

func NewStructurer(chat ChatCompleter, sampling Sampling) *ChatStructurer {
	return &ChatStructurer{
		chat:     chat,
		sampling: sampling,
		schema:   &ResponseSchema{Name: CandidateSchemaName, Strict: true, Schema: BuildCandidateJSONSchema()},
	}
}

func (s *ChatStructurer) Structure(ctx context.Context, analysis string) ([]byte, error) {
	resp, err := s.chat.Complete(ctx, ChatRequest{
		System:           ExtractorSystemPrompt,
		User:             analysis,
		Temperature:      s.sampling.Temperature,
		TopP:             s.sampling.TopP,
		MaxTokens:        s.sampling.MaxTokens,
		FrequencyPenalty: s.sampling.FrequencyPenalty,
		PresencePenalty:  s.sampling.PresencePenalty,
		Schema:           s.schema,
	})
	if err != nil {
		return nil, err
	}
	content := StripCodeFence(resp.Content)
	if content == "" {
		return nil, errors.New("structurer returned empty content")
	}
	return []byte(strings.TrimSpace(content)), nil
}
