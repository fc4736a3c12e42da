package async

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/constants"
	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/pipeline"
)

var (
	ErrQueueClosed = errors.New("queue is shutting down")
	ErrQueueFull   = errors.New("queue is full")
)

// Job is one archive waiting to be processed.
type Job struct {
	RunID       string
	Archive     string
	Data        []byte
	Source      string // "http", "inbox"
	SubmittedAt time.Time
}

// Runner processes one archive; *pipeline.BatchProcessor satisfies it.
type Runner interface {
	Run(ctx context.Context, archiveName string, data []byte) (*pipeline.RunSummary, error)
}

// RunState is the externally visible state of a queued run.
type RunState struct {
	RunID       string               `json:"run_id"`
	Archive     string               `json:"archive"`
	Source      string               `json:"source"`
	Status      constants.RunStatus  `json:"status"`
	Error       string               `json:"error,omitempty"`
	Summary     *pipeline.RunSummary `json:"summary,omitempty"`
	SubmittedAt time.Time            `json:"submitted_at"`
	FinishedAt  *time.Time           `json:"finished_at,omitempty"`
}

// BatchQueue runs archives in submission order on a fixed set of workers.
// The default single worker keeps runs from interleaving on the shared table.
type BatchQueue struct {
	runner  Runner
	logger  *zap.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
	runs   map[string]*RunState
}

type Option func(*BatchQueue)

func WithWorkers(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *BatchQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *BatchQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewBatchQueue(runner Runner, logger *zap.Logger, opts ...Option) *BatchQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &BatchQueue{
		runner:  runner,
		logger:  logger,
		workers: 1,
		timeout: 30 * time.Minute,
		ch:      make(chan Job, 16),
		runs:    make(map[string]*RunState),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *BatchQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", zap.Int("worker_id", workerID))
				for job := range q.ch {
					q.process(workerID, job)
				}
				q.logger.Info("queue.worker.stopped", zap.Int("worker_id", workerID))
			}(i + 1)
		}
	})
}

func (q *BatchQueue) process(workerID int, job Job) {
	q.update(job.RunID, func(s *RunState) { s.Status = constants.RunRunning })

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	ctx = common.WithRunID(ctx, job.RunID)
	sum, err := q.runner.Run(ctx, job.Archive, job.Data)
	cancel()

	now := time.Now()
	q.update(job.RunID, func(s *RunState) {
		s.Summary = sum
		s.FinishedAt = &now
		switch {
		case err != nil:
			s.Status = constants.RunFailed
			s.Error = err.Error()
		case sum != nil:
			s.Status = sum.Status
		default:
			s.Status = constants.RunCompleted
		}
	})

	if err != nil {
		q.logger.Error("queue.run.failed", zap.Int("worker_id", workerID), zap.String("run_id", job.RunID), zap.Error(err))
		return
	}
	q.logger.Info("queue.run.done", zap.Int("worker_id", workerID), zap.String("run_id", job.RunID))
}

// Enqueue registers the run and hands it to a worker. It never blocks: a full
// queue returns ErrQueueFull.
func (q *BatchQueue) Enqueue(_ context.Context, job Job) (string, error) {
	if job.RunID == "" {
		job.RunID = uuid.New().String()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", zap.String("archive", job.Archive))
		return "", ErrQueueClosed
	}
	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.enqueue.full", zap.String("archive", job.Archive))
		return "", ErrQueueFull
	}
	q.runs[job.RunID] = &RunState{
		RunID:       job.RunID,
		Archive:     job.Archive,
		Source:      job.Source,
		Status:      constants.RunQueued,
		SubmittedAt: job.SubmittedAt,
	}
	q.logger.Info("queue.enqueue.ok", zap.String("run_id", job.RunID), zap.String("archive", job.Archive), zap.String("source", job.Source))
	return job.RunID, nil
}

// Get returns a copy of the run's state.
func (q *BatchQueue) Get(runID string) (RunState, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.runs[runID]
	if !ok {
		return RunState{}, false
	}
	return *s, true
}

// List returns every known run, newest first.
func (q *BatchQueue) List() []RunState {
	q.mu.Lock()
	out := make([]RunState, 0, len(q.runs))
	for _, s := range q.runs {
		out = append(out, *s)
	}
	q.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out
}

func (q *BatchQueue) update(runID string, fn func(*RunState)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s, ok := q.runs[runID]; ok {
		fn(s)
	}
}

// Shutdown stops accepting jobs and waits for queued ones until ctx is done.
func (q *BatchQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.ok")
	}
}
