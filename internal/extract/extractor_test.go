package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type parseResult struct {
	segments []Segment
	err      error
}

type stubParser struct {
	results []parseResult
	calls   int
	urls    []string
}

func (p *stubParser) Parse(_ context.Context, url string) ([]Segment, error) {
	p.urls = append(p.urls, url)
	idx := p.calls
	p.calls++
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	r := p.results[idx]
	return r.segments, r.err
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func TestBackoffDelay(t *testing.T) {
	b := DefaultBackoff
	assert.Equal(t, time.Duration(0), b.Delay(1))
	assert.Equal(t, 2*time.Second, b.Delay(2))
	assert.Equal(t, 4*time.Second, b.Delay(3))
	assert.Equal(t, 8*time.Second, b.Delay(4))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, b.Schedule())

	flat := Backoff{MaxAttempts: 3, BaseDelay: time.Second, Factor: 0}
	assert.Equal(t, []time.Duration{time.Second, time.Second}, flat.Schedule())
	assert.Nil(t, Backoff{MaxAttempts: 1, BaseDelay: time.Second, Factor: 2}.Schedule())
}

func TestExtract_FirstAttemptSucceeds(t *testing.T) {
	parser := &stubParser{results: []parseResult{{segments: []Segment{
		{Page: 1, Text: "# Rahul Sharma"},
		{Page: 2, Text: "   "},
		{Page: 3, Text: "Customer Support Executive, iQor"},
	}}}}
	sleeps := &sleepRecorder{}

	e := NewExtractor(parser, zap.NewNop(), WithSleeper(sleeps.Sleep))
	got := e.Extract(context.Background(), "https://cdn.example.com/a.pdf")

	assert.Equal(t, "# Rahul Sharma\n\nCustomer Support Executive, iQor", got)
	assert.Equal(t, 1, parser.calls)
	assert.Empty(t, sleeps.delays)
}

func TestExtract_EmptyEveryAttempt(t *testing.T) {
	parser := &stubParser{results: []parseResult{{segments: nil}}}
	sleeps := &sleepRecorder{}
	core, logs := observer.New(zapcore.InfoLevel)

	e := NewExtractor(parser, zap.New(core), WithSleeper(sleeps.Sleep))
	got := e.Extract(context.Background(), "https://cdn.example.com/b.docx")

	assert.Equal(t, "", got)
	assert.Equal(t, 3, parser.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps.delays)
	assert.Equal(t, 1, logs.FilterMessage("extract.exhausted").Len())
	assert.Equal(t, 3, logs.FilterMessage("extract.attempt.failed").Len())
}

func TestExtract_RetriesOnErrorAndShortText(t *testing.T) {
	parser := &stubParser{results: []parseResult{
		{err: errors.New("parser 503")},
		{segments: []Segment{{Text: "  too short  "}}},
		{segments: []Segment{{Text: "Ten chars!"}}},
	}}
	sleeps := &sleepRecorder{}

	e := NewExtractor(parser, nil, WithSleeper(sleeps.Sleep))
	got := e.Extract(context.Background(), "u")

	assert.Equal(t, "Ten chars!", got)
	assert.Equal(t, 3, parser.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeps.delays)
}

func TestExtract_CustomPolicy(t *testing.T) {
	parser := &stubParser{results: []parseResult{{err: errors.New("boom")}}}
	sleeps := &sleepRecorder{}

	e := NewExtractor(parser, nil,
		WithSleeper(sleeps.Sleep),
		WithBackoff(Backoff{MaxAttempts: 2, BaseDelay: 10 * time.Millisecond, Factor: 3}),
		WithMinTextLength(50),
	)
	assert.Equal(t, "", e.Extract(context.Background(), "u"))
	assert.Equal(t, 2, parser.calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sleeps.delays)
}

func TestExtract_CancelledWhileWaiting(t *testing.T) {
	parser := &stubParser{results: []parseResult{{segments: nil}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExtractor(parser, nil)
	assert.Equal(t, "", e.Extract(ctx, "u"))
	assert.Equal(t, 1, parser.calls)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, SleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), context.Canceled)
}

func TestJoinSegments(t *testing.T) {
	assert.Equal(t, "", JoinSegments(nil))
	assert.Equal(t, "a\n\nb", JoinSegments([]Segment{{Text: "a"}, {Text: ""}, {Text: "b"}}))
}
