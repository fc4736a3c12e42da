package extract

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/common"
)

// DefaultMinTextLength is the shortest trimmed text accepted from the parser.
const DefaultMinTextLength = 10

var (
	errNoSegments = errors.New("parser returned no documents")
	errShortText  = errors.New("extracted text too short")
)

// Extractor calls a Parser with retries and exponential backoff.
type Extractor struct {
	parser  Parser
	backoff Backoff
	minLen  int
	sleep   Sleeper
	logger  *zap.Logger
}

type Option func(*Extractor)

func WithBackoff(b Backoff) Option {
	return func(e *Extractor) {
		if b.MaxAttempts > 0 {
			e.backoff = b
		}
	}
}

func WithMinTextLength(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.minLen = n
		}
	}
}

func WithSleeper(s Sleeper) Option {
	return func(e *Extractor) {
		if s != nil {
			e.sleep = s
		}
	}
}

func NewExtractor(parser Parser, logger *zap.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Extractor{
		parser:  parser,
		backoff: DefaultBackoff,
		minLen:  DefaultMinTextLength,
		sleep:   SleepContext,
		logger:  logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract returns the joined segment text, or "" once every attempt failed.
// Parser errors, empty results and short text all consume an attempt.
func (e *Extractor) Extract(ctx context.Context, url string) string {
	runID := common.RunIDFromContext(ctx)
	for attempt := 1; attempt <= e.backoff.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := e.backoff.Delay(attempt)
			e.logger.Info("extract.retry.wait",
				zap.String("run_id", runID),
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			if err := e.sleep(ctx, delay); err != nil {
				e.logger.Warn("extract.retry.cancelled", zap.String("run_id", runID), zap.String("url", url), zap.Error(err))
				return ""
			}
		}

		start := time.Now()
		text, err := e.attempt(ctx, url)
		if err == nil {
			e.logger.Info("extract.ok",
				zap.String("run_id", runID),
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Int("chars", utf8.RuneCountInString(text)),
				zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
			)
			return text
		}
		e.logger.Warn("extract.attempt.failed",
			zap.String("run_id", runID),
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.backoff.MaxAttempts),
			zap.Error(err),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
	}

	e.logger.Error("extract.exhausted",
		zap.String("run_id", runID),
		zap.String("url", url),
		zap.Int("attempts", e.backoff.MaxAttempts),
	)
	return ""
}

func (e *Extractor) attempt(ctx context.Context, url string) (string, error) {
	segments, err := e.parser.Parse(ctx, url)
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		return "", errNoSegments
	}
	text := JoinSegments(segments)
	if utf8.RuneCountInString(strings.TrimSpace(text)) < e.minLen {
		return "", errShortText
	}
	return text, nil
}

// JoinSegments joins the non-empty segment texts with blank lines.
func JoinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, "\n\n")
}
