package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/bulk-resumes/internal/llm"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates:    []*genai.Candidate{{Content: &genai.Content{Parts: parts}, FinishReason: genai.FinishReasonStop}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 12, CandidatesTokenCount: 7},
	}
}

func TestComplete_StructuredRequest(t *testing.T) {
	fake := &fakeModels{resp: textResponse(&genai.Part{Text: `{"name":"A"}`})}
	c := newClient(fake, "", nil)

	raw, err := llm.NewStructurer(c, llm.ExtractorSampling).Structure(context.Background(), "analysis")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"A"}`, string(raw))

	assert.Equal(t, defaultModel, fake.model)
	require.Len(t, fake.contents, 1)
	assert.Equal(t, "analysis", fake.contents[0].Parts[0].Text)

	cfg := fake.config
	require.NotNil(t, cfg.SystemInstruction)
	assert.Equal(t, llm.ExtractorSystemPrompt, cfg.SystemInstruction.Parts[0].Text)
	assert.InDelta(t, 1.0, *cfg.Temperature, 1e-6)
	assert.InDelta(t, 1.0, *cfg.TopP, 1e-6)
	assert.EqualValues(t, 2048, cfg.MaxOutputTokens)
	assert.Nil(t, cfg.FrequencyPenalty)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.ResponseSchema)
	assert.Equal(t, genai.TypeObject, cfg.ResponseSchema.Type)
	assert.Equal(t, llm.CandidateFields, cfg.ResponseSchema.Required)
}

func TestComplete_SkipsThoughtParts(t *testing.T) {
	fake := &fakeModels{resp: textResponse(
		&genai.Part{Text: "internal reasoning", Thought: true},
		&genai.Part{Text: "Category: Good"},
	)}
	c := newClient(fake, "gemini-2.5-pro", nil)

	resp, err := c.Complete(context.Background(), llm.ChatRequest{User: "resume", Temperature: 0.6, TopP: 0.95})
	require.NoError(t, err)
	assert.Equal(t, "Category: Good", resp.Content)
	assert.Equal(t, 7, resp.CompletionTokens)
	assert.Nil(t, fake.config.ResponseSchema)
	assert.Nil(t, fake.config.SystemInstruction)
}

func TestComplete_Errors(t *testing.T) {
	c := newClient(&fakeModels{err: errors.New("quota")}, "", nil)
	_, err := c.Complete(context.Background(), llm.ChatRequest{User: "x"})
	require.ErrorContains(t, err, "quota")

	c = newClient(&fakeModels{resp: textResponse(&genai.Part{Text: "  "})}, "", nil)
	_, err = c.Complete(context.Background(), llm.ChatRequest{User: "x"})
	require.ErrorContains(t, err, "empty response")
}

func TestToSchema(t *testing.T) {
	s, err := ToSchema(llm.BuildCandidateJSONSchema())
	require.NoError(t, err)
	require.Len(t, s.Properties, 6)
	assert.Equal(t, genai.TypeString, s.Properties["category"].Type)
	assert.Equal(t, []string{"unsuitable", "average", "good"}, s.Properties["category"].Enum)
	assert.Equal(t, []string{"northeast", "other_state"}, s.Properties["special_remarks"].Enum)
	assert.Equal(t, "The name of the candidate.", s.Properties["name"].Description)
	assert.Equal(t, llm.CandidateFields, s.PropertyOrdering)

	_, err = ToSchema(map[string]any{"type": "array"})
	require.Error(t, err)
}
