package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/bulk-resumes/constants"
	"github.com/joseph-ayodele/bulk-resumes/internal/common"
	"github.com/joseph-ayodele/bulk-resumes/internal/pipeline"
)

type fakeRunner struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	order   []string
	runIDs  []string
	release chan struct{}
	err     map[string]error
}

func (f *fakeRunner) Run(ctx context.Context, archive string, _ []byte) (*pipeline.RunSummary, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.order = append(f.order, archive)
	f.runIDs = append(f.runIDs, common.RunIDFromContext(ctx))
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()
	if err := f.err[archive]; err != nil {
		return &pipeline.RunSummary{Status: constants.RunFailed}, err
	}
	return &pipeline.RunSummary{Status: constants.RunCompleted, Archive: archive}, nil
}

func waitFor(t *testing.T, q *BatchQueue, id string, want constants.RunStatus) RunState {
	t.Helper()
	var st RunState
	require.Eventually(t, func() bool {
		var ok bool
		st, ok = q.Get(id)
		return ok && st.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func TestBatchQueue_RunsSequentially(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	q := NewBatchQueue(runner, zap.NewNop())
	defer q.Shutdown(context.Background())

	id1, err := q.Enqueue(context.Background(), Job{Archive: "one.zip", Source: "http"})
	require.NoError(t, err)
	id2, err := q.Enqueue(context.Background(), Job{Archive: "two.zip", Source: "inbox"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	waitFor(t, q, id1, constants.RunRunning)
	st2, ok := q.Get(id2)
	require.True(t, ok)
	assert.Equal(t, constants.RunQueued, st2.Status)

	runner.release <- struct{}{}
	runner.release <- struct{}{}

	done := waitFor(t, q, id2, constants.RunCompleted)
	assert.Equal(t, "two.zip", done.Summary.Archive)
	assert.NotNil(t, done.FinishedAt)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, 1, runner.maxSeen)
	assert.Equal(t, []string{"one.zip", "two.zip"}, runner.order)
	assert.Equal(t, []string{id1, id2}, runner.runIDs)
	assert.Len(t, q.List(), 2)
}

func TestBatchQueue_RecordsFailure(t *testing.T) {
	runner := &fakeRunner{err: map[string]error{"bad.zip": common.ErrInvalidArchive}}
	q := NewBatchQueue(runner, nil)
	defer q.Shutdown(context.Background())

	id, err := q.Enqueue(context.Background(), Job{Archive: "bad.zip"})
	require.NoError(t, err)
	st := waitFor(t, q, id, constants.RunFailed)
	assert.Contains(t, st.Error, "invalid zip archive")
}

func TestBatchQueue_FullAndClosed(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	q := NewBatchQueue(runner, nil, WithQueueSize(1))

	first, err := q.Enqueue(context.Background(), Job{Archive: "a.zip"})
	require.NoError(t, err)
	waitFor(t, q, first, constants.RunRunning)

	_, err = q.Enqueue(context.Background(), Job{Archive: "b.zip"})
	require.NoError(t, err)
	_, err = q.Enqueue(context.Background(), Job{Archive: "c.zip"})
	assert.True(t, errors.Is(err, ErrQueueFull))

	close(runner.release)
	q.Shutdown(context.Background())

	_, err = q.Enqueue(context.Background(), Job{Archive: "d.zip"})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestBatchQueue_GetUnknown(t *testing.T) {
	q := NewBatchQueue(&fakeRunner{}, nil)
	defer q.Shutdown(context.Background())
	_, ok := q.Get("missing")
	assert.False(t, ok)
}
