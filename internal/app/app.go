package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/export"
	"github.com/joseph-ayodele/bulk-resumes/internal/extract"
	"github.com/joseph-ayodele/bulk-resumes/internal/extract/llamaparse"
	"github.com/joseph-ayodele/bulk-resumes/internal/llm"
	"github.com/joseph-ayodele/bulk-resumes/internal/llm/gemini"
	"github.com/joseph-ayodele/bulk-resumes/internal/llm/openai"
	"github.com/joseph-ayodele/bulk-resumes/internal/pipeline"
	"github.com/joseph-ayodele/bulk-resumes/internal/repository"
	"github.com/joseph-ayodele/bulk-resumes/internal/storage"
)

// Store is the opened database with its applicants repository.
type Store struct {
	DB         *sqlx.DB
	Applicants repository.ApplicantRepository
	Reports    *export.Service
	logger     *zap.Logger
}

// OpenStore connects to the configured database. inMemory swaps in a private
// sqlite database, which lives as long as the process.
func OpenStore(ctx context.Context, cfg common.DatabaseConfig, inMemory bool, logger *zap.Logger) (*Store, error) {
	if inMemory {
		cfg.Driver = common.DriverSQLite
		cfg.DSN = ":memory:"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	repo, err := repository.NewApplicantRepository(db, cfg.Table, logger)
	if err != nil {
		repository.Close(db, logger)
		return nil, err
	}
	return &Store{DB: db, Applicants: repo, Reports: export.NewService(repo, logger), logger: logger}, nil
}

func (s *Store) Close() {
	repository.Close(s.DB, s.logger)
}

// Sampling maps a stage's configured generation parameters.
func Sampling(c common.LLMConfig) llm.Sampling {
	return llm.Sampling{Temperature: c.Temperature, TopP: c.TopP, MaxTokens: c.MaxTokens}
}

// NewChatCompleter builds the provider client for one classifier stage.
func NewChatCompleter(ctx context.Context, c common.LLMConfig, logger *zap.Logger) (llm.ChatCompleter, error) {
	switch c.Provider {
	case common.ProviderOpenAI, "":
		return openai.NewClient(openai.Config{
			APIKey:            c.APIKey,
			BaseURL:           c.BaseURL,
			Model:             c.Model,
			Timeout:           c.Timeout,
			RequestsPerMinute: c.RequestsPerMinute,
		}, logger), nil
	case common.ProviderGemini:
		return gemini.NewClient(ctx, c.APIKey, c.Model, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown llm provider %q", c.Provider), common.ErrInvalidInput)
	}
}

// NewClassifier wires both stages behind llm.Classifier.
func NewClassifier(ctx context.Context, cfg *common.Config, logger *zap.Logger) (*llm.TwoStageClassifier, error) {
	analystChat, err := NewChatCompleter(ctx, cfg.Analyst, logger.Named("analyst"))
	if err != nil {
		return nil, fmt.Errorf("analyst: %w", err)
	}
	extractorChat, err := NewChatCompleter(ctx, cfg.Extractor, logger.Named("extractor"))
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	return llm.NewTwoStageClassifier(
		llm.NewAnalyst(analystChat, Sampling(cfg.Analyst)),
		llm.NewStructurer(extractorChat, Sampling(cfg.Extractor)),
		logger,
	)
}

// NewExtractor builds the LlamaParse-backed text extractor with the configured retry policy.
func NewExtractor(c common.ParserConfig, logger *zap.Logger) *extract.Extractor {
	parser := llamaparse.NewClient(llamaparse.Config{
		APIKey:       c.APIKey,
		BaseURL:      c.BaseURL,
		ResultType:   c.ResultType,
		PollInterval: c.PollInterval,
		MaxWait:      c.MaxWait,
		Timeout:      c.Timeout,
	}, logger)
	return extract.NewExtractor(parser, logger,
		extract.WithBackoff(extract.Backoff{MaxAttempts: c.MaxAttempts, BaseDelay: c.BaseDelay, Factor: c.BackoffFactor}),
		extract.WithMinTextLength(c.MinTextLength),
	)
}

// NewProcessor assembles the whole batch pipeline on top of an open store.
func NewProcessor(ctx context.Context, cfg *common.Config, store *Store, logger *zap.Logger, opts ...pipeline.Option) (*pipeline.BatchProcessor, error) {
	uploader, err := storage.NewMinioUploader(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	if err := uploader.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	classifier, err := NewClassifier(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	opts = append([]pipeline.Option{pipeline.WithPaceDelay(cfg.Pipeline.PaceDelay)}, opts...)
	return pipeline.NewBatchProcessor(uploader, NewExtractor(cfg.Parser, logger), classifier, store.Applicants, logger, opts...), nil
}
