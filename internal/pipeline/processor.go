package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/constants"
	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/entity"
	"github.com/joseph-ayodele/bulk-resumes/internal/extract"
	"github.com/joseph-ayodele/bulk-resumes/internal/ingest"
	"github.com/joseph-ayodele/bulk-resumes/internal/llm"
	"github.com/joseph-ayodele/bulk-resumes/internal/repository"
	"github.com/joseph-ayodele/bulk-resumes/internal/storage"
)

// DefaultPaceDelay is the pause between two consecutive documents.
const DefaultPaceDelay = time.Second

// Stage names reported through ProgressFunc.
const (
	StageUpload   = "upload"
	StageClear    = "clear"
	StageExtract  = "extract"
	StageClassify = "classify"
	StagePersist  = "persist"
	StageDone     = "done"
)

// ProgressEvent reports the state of one document.
type ProgressEvent struct {
	RunID    string
	Index    int // 0-based position in the batch
	Total    int
	Filename string
	Stage    string
	Status   constants.DocumentStatus
	Err      error
}

type ProgressFunc func(ProgressEvent)

// DocumentOutcome is the result of one archive entry.
type DocumentOutcome struct {
	Filename    string                   `json:"filename"`
	URL         string                   `json:"url,omitempty"`
	Status      constants.DocumentStatus `json:"status"`
	ApplicantID int64                    `json:"applicant_id,omitempty"`
	Category    constants.Category       `json:"category,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// RunSummary is what a batch run reports back.
type RunSummary struct {
	RunID      string              `json:"run_id"`
	Archive    string              `json:"archive"`
	Folder     string              `json:"folder,omitempty"`
	Status     constants.RunStatus `json:"status"`
	Matched    int                 `json:"matched"`
	Skipped    int                 `json:"skipped"`
	Uploaded   int                 `json:"uploaded"`
	Succeeded  int                 `json:"succeeded"`
	Failed     int                 `json:"failed"`
	Cleared    int64               `json:"cleared"`
	Documents  []DocumentOutcome   `json:"documents"`
	Rows       []entity.Applicant  `json:"rows,omitempty"`
	Warnings   []string            `json:"warnings,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// BatchProcessor runs intake, upload, extract, classify and persist for one
// archive, one document at a time.
type BatchProcessor struct {
	uploader   storage.Uploader
	extractor  extract.TextExtractor
	classifier llm.Classifier
	repo       repository.ApplicantRepository
	logger     *zap.Logger

	pace       time.Duration
	skipHidden bool
	sleep      extract.Sleeper
	now        func() time.Time
	progress   ProgressFunc
}

type Option func(*BatchProcessor)

// WithPaceDelay sets the pause between documents. Zero disables it.
func WithPaceDelay(d time.Duration) Option {
	return func(p *BatchProcessor) {
		if d >= 0 {
			p.pace = d
		}
	}
}

func WithSleeper(s extract.Sleeper) Option {
	return func(p *BatchProcessor) {
		if s != nil {
			p.sleep = s
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *BatchProcessor) {
		if now != nil {
			p.now = now
		}
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(p *BatchProcessor) { p.progress = fn }
}

// WithSkipHidden drops dot-files and __MACOSX entries during intake.
func WithSkipHidden(skip bool) Option {
	return func(p *BatchProcessor) { p.skipHidden = skip }
}

func NewBatchProcessor(
	uploader storage.Uploader,
	extractor extract.TextExtractor,
	classifier llm.Classifier,
	repo repository.ApplicantRepository,
	logger *zap.Logger,
	opts ...Option,
) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &BatchProcessor{
		uploader:   uploader,
		extractor:  extractor,
		classifier: classifier,
		repo:       repo,
		logger:     logger,
		pace:       DefaultPaceDelay,
		skipHidden: true,
		sleep:      extract.SleepContext,
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type uploadedDoc struct {
	idx int
	url string
}

// Run processes one archive. Only an invalid archive or a cancelled context
// returns an error; per-document failures are recorded in the summary.
func (p *BatchProcessor) Run(ctx context.Context, archiveName string, data []byte) (*RunSummary, error) {
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = common.WithRunID(ctx, runID)
	}
	log := p.logger.With(zap.String("run_id", runID), zap.String("archive", archiveName))

	sum := &RunSummary{
		RunID:     runID,
		Archive:   archiveName,
		Status:    constants.RunRunning,
		Documents: []DocumentOutcome{},
		StartedAt: p.now(),
	}
	finish := func(status constants.RunStatus) *RunSummary {
		sum.Status = status
		sum.FinishedAt = p.now()
		return sum
	}

	entries, stats, err := ingest.ReadArchive(data, ingest.ReadOptions{SkipHidden: p.skipHidden})
	if err != nil {
		log.Error("pipeline.intake.failed", zap.Error(err))
		return finish(constants.RunFailed), err
	}
	sum.Matched = int(stats.Matched)
	sum.Skipped = int(stats.Skipped)
	if len(entries) == 0 {
		log.Warn("pipeline.intake.no_files", zap.Uint32("scanned", stats.Scanned), zap.Error(common.ErrNoDocuments))
		sum.Warnings = append(sum.Warnings, common.ErrNoDocuments.Error())
		return finish(constants.RunNoFiles), nil
	}
	log.Info("pipeline.intake.ok", zap.Int("matched", sum.Matched), zap.Int("skipped", sum.Skipped))

	sum.Folder = ingest.FolderName(archiveName, sum.StartedAt)
	total := len(entries)
	uploaded := make([]uploadedDoc, 0, total)
	for i, e := range entries {
		name := e.ObjectName()
		sum.Documents = append(sum.Documents, DocumentOutcome{Filename: name, Status: constants.DocumentPending})

		url, err := p.uploader.Upload(ctx, sum.Folder, name, e.Data)
		if err != nil {
			log.Error("pipeline.upload.failed", zap.String("doc", name), zap.Error(err))
			p.fail(sum, i, total, StageUpload, constants.DocumentUploadFailed, err)
			continue
		}
		sum.Documents[i].URL = url
		sum.Uploaded++
		uploaded = append(uploaded, uploadedDoc{idx: i, url: url})
		p.report(ProgressEvent{RunID: runID, Index: i, Total: total, Filename: name, Stage: StageUpload, Status: constants.DocumentPending})
	}
	if err := ctx.Err(); err != nil {
		return finish(constants.RunFailed), err
	}

	// Batch-replace: the previous run's rows are removed, not archived.
	cleared, err := p.repo.Clear(ctx)
	if err != nil {
		log.Warn("pipeline.clear.failed", zap.Error(err))
		sum.Warnings = append(sum.Warnings, fmt.Sprintf("could not clear previous results: %v", err))
	} else {
		sum.Cleared = cleared
		log.Info("pipeline.clear.ok", zap.Int64("rows_removed", cleared))
	}

	for n, doc := range uploaded {
		if n > 0 && p.pace > 0 {
			if err := p.sleep(ctx, p.pace); err != nil {
				log.Warn("pipeline.cancelled", zap.Error(err))
				return finish(constants.RunFailed), err
			}
		}
		p.processDocument(ctx, log, sum, doc, total)
	}

	rows, err := p.repo.ListAll(ctx)
	if err != nil {
		log.Warn("pipeline.readback.failed", zap.Error(err))
		sum.Warnings = append(sum.Warnings, fmt.Sprintf("could not read back results: %v", err))
	}
	sum.Rows = rows

	log.Info("pipeline.run.ok",
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("rows", len(rows)),
		zap.Int64("elapsed_ms", p.now().Sub(sum.StartedAt).Milliseconds()),
	)
	return finish(constants.RunCompleted), nil
}

func (p *BatchProcessor) processDocument(ctx context.Context, log *zap.Logger, sum *RunSummary, doc uploadedDoc, total int) {
	out := &sum.Documents[doc.idx]
	log = log.With(zap.String("doc", out.Filename))
	start := time.Now()

	text := p.extractor.Extract(ctx, doc.url)
	if text == "" {
		log.Error("pipeline.extract.failed", zap.String("url", doc.url))
		p.fail(sum, doc.idx, total, StageExtract, constants.DocumentExtractFailed, common.ErrExtractionFailed)
		return
	}
	p.report(ProgressEvent{RunID: sum.RunID, Index: doc.idx, Total: total, Filename: out.Filename, Stage: StageExtract, Status: constants.DocumentPending})

	rec, err := p.classifier.Classify(ctx, text)
	if err != nil {
		status := constants.DocumentClassifyFailed
		if errors.Is(err, common.ErrMissingFields) {
			status = constants.DocumentIncomplete
		}
		log.Error("pipeline.classify.failed", zap.Error(err))
		p.fail(sum, doc.idx, total, StageClassify, status, err)
		return
	}
	if err := ValidateRecord(rec); err != nil {
		log.Error("pipeline.classify.incomplete", zap.Error(err))
		p.fail(sum, doc.idx, total, StageClassify, constants.DocumentIncomplete, fmt.Errorf("%w: %v", common.ErrMissingFields, err))
		return
	}
	out.Category = rec.Category

	id, err := p.repo.Insert(ctx, ApplicantFromRecord(rec, doc.url))
	if err != nil {
		log.Error("pipeline.persist.failed", zap.Error(err))
		p.fail(sum, doc.idx, total, StagePersist, constants.DocumentPersistFailed, err)
		return
	}

	out.ApplicantID = id
	out.Status = constants.DocumentSaved
	sum.Succeeded++
	log.Info("pipeline.document.ok",
		zap.Int64("id", id),
		zap.String("category", string(rec.Category)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	p.report(ProgressEvent{RunID: sum.RunID, Index: doc.idx, Total: total, Filename: out.Filename, Stage: StageDone, Status: constants.DocumentSaved})
}

func (p *BatchProcessor) fail(sum *RunSummary, idx, total int, stage string, status constants.DocumentStatus, err error) {
	out := &sum.Documents[idx]
	out.Status = status
	out.Error = err.Error()
	sum.Failed++
	p.report(ProgressEvent{RunID: sum.RunID, Index: idx, Total: total, Filename: out.Filename, Stage: stage, Status: status, Err: err})
}

func (p *BatchProcessor) report(ev ProgressEvent) {
	if p.progress != nil {
		p.progress(ev)
	}
}
