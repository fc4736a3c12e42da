package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/logger"
)

// TwoStageClassifier chains an Analyst and a Structurer behind Classify.
type TwoStageClassifier struct {
	analyst    Analyst
	structurer Structurer
	stripper   TraceStripper
	schema     *jsonschema.Schema
	logger     *zap.Logger
}

type ClassifierOption func(*TwoStageClassifier)

// WithTraceStripper swaps the stage 1 post-processing step.
func WithTraceStripper(s TraceStripper) ClassifierOption {
	return func(c *TwoStageClassifier) {
		if s != nil {
			c.stripper = s
		}
	}
}

func NewTwoStageClassifier(analyst Analyst, structurer Structurer, log *zap.Logger, opts ...ClassifierOption) (*TwoStageClassifier, error) {
	schema, err := CompileSchema(BuildCandidateJSONSchema())
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &TwoStageClassifier{
		analyst:    analyst,
		structurer: structurer,
		stripper:   ThinkTagStripper,
		schema:     schema,
		logger:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Classify runs both stages. Stage errors, malformed JSON and schema violations
// wrap common.ErrClassification; absent keys wrap common.ErrMissingFields.
func (c *TwoStageClassifier) Classify(ctx context.Context, resumeText string) (CandidateRecord, error) {
	runID := common.RunIDFromContext(ctx)
	start := time.Now()

	analysis, err := c.analyst.Analyze(ctx, resumeText)
	if err != nil {
		c.logger.Error("llm.analyze.failed", zap.String("run_id", runID), zap.Error(err))
		return CandidateRecord{}, fmt.Errorf("%w: analyze: %w", common.ErrClassification, err)
	}
	cleaned := strings.TrimSpace(c.stripper.Strip(analysis))
	c.logger.Info("llm.analyze.ok",
		zap.String("run_id", runID),
		zap.Int("raw_len", len(analysis)),
		zap.Int("clean_len", len(cleaned)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	c.logger.Debug("llm.analyze.text", zap.String("run_id", runID), zap.String("analysis", logger.Truncate(cleaned, 500)))

	stage2 := time.Now()
	raw, err := c.structurer.Structure(ctx, cleaned)
	if err != nil {
		c.logger.Error("llm.structure.failed", zap.String("run_id", runID), zap.Error(err))
		return CandidateRecord{}, fmt.Errorf("%w: structure: %w", common.ErrClassification, err)
	}
	if !json.Valid(raw) {
		c.logger.Error("llm.structure.malformed_json",
			zap.String("run_id", runID),
			zap.String("content", logger.Truncate(string(raw), 300)),
		)
		return CandidateRecord{}, fmt.Errorf("%w: malformed JSON from structurer", common.ErrClassification)
	}

	rec, err := c.decode(raw)
	if err != nil {
		c.logger.Error("llm.structure.invalid",
			zap.String("run_id", runID),
			zap.Error(err),
			zap.String("content", logger.Truncate(string(raw), 300)),
		)
		return CandidateRecord{}, err
	}

	c.logger.Info("llm.structure.ok",
		zap.String("run_id", runID),
		zap.String("category", string(rec.Category)),
		zap.String("special_remarks", string(rec.SpecialRemarks)),
		zap.Int64("elapsed_ms", time.Since(stage2).Milliseconds()),
	)
	return rec, nil
}

// ParseCandidate turns stage 2 JSON into a record using the candidate schema.
func ParseCandidate(raw []byte) (CandidateRecord, error) {
	schema, err := CompileSchema(BuildCandidateJSONSchema())
	if err != nil {
		return CandidateRecord{}, err
	}
	c := &TwoStageClassifier{schema: schema}
	return c.decode(raw)
}

func (c *TwoStageClassifier) decode(raw []byte) (CandidateRecord, error) {
	normalized, _, err := NormalizeCandidateJSON(raw)
	if err != nil {
		return CandidateRecord{}, fmt.Errorf("%w: %v", common.ErrClassification, err)
	}
	missing, err := MissingFields(normalized)
	if err != nil {
		return CandidateRecord{}, fmt.Errorf("%w: %v", common.ErrClassification, err)
	}
	if len(missing) > 0 {
		return CandidateRecord{}, fmt.Errorf("%w: %s", common.ErrMissingFields, strings.Join(missing, ", "))
	}
	if err := validateWith(c.schema, normalized); err != nil {
		return CandidateRecord{}, fmt.Errorf("%w: %v", common.ErrClassification, err)
	}

	var rec CandidateRecord
	if err := json.Unmarshal(normalized, &rec); err != nil {
		return CandidateRecord{}, fmt.Errorf("%w: unmarshal record: %v", common.ErrClassification, err)
	}
	return rec, nil
}
