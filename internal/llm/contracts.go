package llm

import (
	"context"

	"github.com/joseph-ayodele/bulk-resumes/constants"
)

// CandidateRecord is the normalized shape we want from stage 2.
type CandidateRecord struct {
	Name           string                  `json:"name"`
	Mobile         string                  `json:"mobile"`
	Email          string                  `json:"email"`
	Category       constants.Category      `json:"category"`
	Justification  string                  `json:"justification"`
	SpecialRemarks constants.SpecialRemark `json:"special_remarks"`
}

// ResponseSchema constrains a chat completion to a named JSON schema.
type ResponseSchema struct {
	Name   string
	Strict bool
	Schema map[string]any
}

// ChatRequest is a single-turn chat completion. Zero penalties and a zero
// MaxTokens leave the provider defaults in place.
type ChatRequest struct {
	System           string
	User             string
	Temperature      float32
	TopP             float32
	MaxTokens        int
	FrequencyPenalty float32
	PresencePenalty  float32
	Schema           *ResponseSchema
}

type ChatResponse struct {
	Content          string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// ChatCompleter is implemented by each provider client.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Analyst is stage 1: resume text -> free-form evaluation.
type Analyst interface {
	Analyze(ctx context.Context, resumeText string) (string, error)
}

// Structurer is stage 2: evaluation -> candidate record JSON.
type Structurer interface {
	Structure(ctx context.Context, analysis string) ([]byte, error)
}

// TraceStripper removes reasoning traces from a stage 1 answer.
type TraceStripper interface {
	Strip(text string) string
}

// Classifier is what the batch pipeline depends on.
type Classifier interface {
	Classify(ctx context.Context, resumeText string) (CandidateRecord, error)
}
