package sentiment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gold-pulse/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type stubHeadlines struct {
	mu        sync.Mutex
	headlines []string
	err       error
	calls     int
}

func (s *stubHeadlines) FetchHeadlines(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]string(nil), s.headlines...), nil
}

func (s *stubHeadlines) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEngine(src HeadlineSource) (*Engine, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(5 * time.Minute)
	cache.now = clock.Now
	e := NewEngine(testTracer, src, nil, cache)
	e.now = clock.Now
	return e, clock
}

func TestEngineCachesWithinTTL(t *testing.T) {
	src := &stubHeadlines{headlines: []string{"gold rally amid war fears"}}
	e, clock := newTestEngine(src)

	first := e.Current(context.Background())
	assert.Greater(t, first.Score, 0.0)
	assert.Equal(t, clock.Now(), first.Timestamp)

	clock.Advance(4 * time.Minute)
	_ = e.Current(context.Background())
	assert.Equal(t, 1, src.calls)

	clock.Advance(2 * time.Minute)
	_ = e.Current(context.Background())
	assert.Equal(t, 2, src.calls)
}

func TestEngineServesHalfConfidenceOnFailure(t *testing.T) {
	src := &stubHeadlines{headlines: []string{"gold rally amid war fears"}}
	e, clock := newTestEngine(src)

	original := e.Refresh(context.Background())
	require.Equal(t, 1.0, original.Confidence)

	src.fail(errors.New("news api down"))
	clock.Advance(10 * time.Minute)

	degraded := e.Current(context.Background())
	assert.Equal(t, 0.5, degraded.Confidence)
	assert.Equal(t, original.Score, degraded.Score)

	again := e.Refresh(context.Background())
	assert.Equal(t, 0.5, again.Confidence, "repeated failures must not compound")
	assert.Equal(t, 0.5, e.Latest().Confidence)
}

func TestEngineRecoversAfterFailure(t *testing.T) {
	src := &stubHeadlines{headlines: []string{"gold rally amid war fears"}}
	e, _ := newTestEngine(src)
	e.Refresh(context.Background())

	src.fail(errors.New("timeout"))
	e.Refresh(context.Background())

	src.fail(nil)
	got := e.Refresh(context.Background())
	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, 1.0, e.Latest().Confidence)
}

func TestEngineNeutralWhenNothingCached(t *testing.T) {
	src := &stubHeadlines{err: errors.New("boom")}
	e, _ := newTestEngine(src)

	got := e.Current(context.Background())
	assert.Equal(t, 0.0, got.Score)
	assert.Equal(t, 0.0, got.Confidence)
	assert.Equal(t, "", got.Summary)
	assert.Equal(t, domain.SentimentNeutral, got.Category)
}

func TestEngineLatestDoesNotFetch(t *testing.T) {
	src := &stubHeadlines{headlines: []string{"gold rally amid war fears"}}
	e, _ := newTestEngine(src)

	got := e.Latest()
	assert.Equal(t, 0.0, got.Confidence)
	assert.Equal(t, 0, src.calls)
}

func TestEngineNilSourceDegrades(t *testing.T) {
	e, _ := newTestEngine(nil)
	got := e.Refresh(context.Background())
	assert.Equal(t, 0.0, got.Confidence)
}

type recordingObserver struct {
	degraded []bool
}

func (r *recordingObserver) SetSentiment(score, confidence float64, degraded bool) {
	r.degraded = append(r.degraded, degraded)
}

func TestEnginePublishesToObserver(t *testing.T) {
	src := &stubHeadlines{headlines: []string{"gold rally amid war fears"}}
	e, _ := newTestEngine(src)
	obs := &recordingObserver{}
	e.WithObserver(obs)

	e.Refresh(context.Background())
	src.fail(errors.New("boom"))
	e.Refresh(context.Background())

	assert.Equal(t, []bool{false, true}, obs.degraded)
}

func TestCacheSetReplacesWholesale(t *testing.T) {
	c := NewCache(time.Minute)
	in := domain.SentimentResult{Score: 0.4, TriggerWords: []string{"war"}}
	c.Set(in)
	in.TriggerWords[0] = "mutated"

	got, fresh, ok := c.Get()
	require.True(t, ok)
	assert.True(t, fresh)
	assert.Equal(t, []string{"war"}, got.TriggerWords)
}

type recordingArchive struct {
	saved []domain.SentimentResult
	err   error
}

func (a *recordingArchive) SaveSnapshot(_ context.Context, r domain.SentimentResult) error {
	a.saved = append(a.saved, r)
	return a.err
}

func TestEngineArchivesOnlyFreshResults(t *testing.T) {
	src := &stubHeadlines{headlines: []string{"gold rally amid war fears"}}
	e, _ := newTestEngine(src)
	archive := &recordingArchive{err: errors.New("db down")}
	e.WithArchive(archive)

	first := e.Refresh(context.Background())
	src.fail(errors.New("feed down"))
	e.Refresh(context.Background())

	require.Len(t, archive.saved, 1)
	assert.Equal(t, first.Score, archive.saved[0].Score)
}

func TestEngineCanceledRefreshKeepsConfidence(t *testing.T) {
	src := &stubHeadlines{headlines: []string{"gold rally amid war fears"}}
	e, _ := newTestEngine(src)
	require.Equal(t, 1.0, e.Refresh(context.Background()).Confidence)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := e.Refresh(ctx)

	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, 1.0, e.Latest().Confidence)
	assert.Equal(t, 1, src.calls)
}

func TestEngineSourceCancelDoesNotDegrade(t *testing.T) {
	src := &stubHeadlines{headlines: []string{"gold rally amid war fears"}}
	e, _ := newTestEngine(src)
	e.Refresh(context.Background())

	src.fail(fmt.Errorf("fetch feed: %w", context.Canceled))
	got := e.Refresh(context.Background())

	assert.Equal(t, 1.0, got.Confidence)
	_, fresh, ok := e.cache.Get()
	require.True(t, ok)
	assert.True(t, fresh)
}

// gatedHeadlines blocks every fetch until release is closed.
type gatedHeadlines struct {
	stubHeadlines
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (g *gatedHeadlines) FetchHeadlines(ctx context.Context) ([]string, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.stubHeadlines.FetchHeadlines(ctx)
}

func TestEngineSharedRefreshSurvivesFirstCallerCancel(t *testing.T) {
	src := &gatedHeadlines{
		stubHeadlines: stubHeadlines{headlines: []string{"gold rally amid war fears"}},
		release:       make(chan struct{}),
		started:       make(chan struct{}),
	}
	e, _ := newTestEngine(src)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leader := make(chan domain.SentimentResult, 1)
	go func() { leader <- e.Refresh(leaderCtx) }()
	<-src.started

	follower := make(chan domain.SentimentResult, 1)
	go func() { follower <- e.Refresh(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	cancelLeader()
	assert.Equal(t, 0.0, (<-leader).Confidence)

	close(src.release)
	got := <-follower
	assert.Equal(t, 1.0, got.Confidence)
	assert.Greater(t, got.Score, 0.0)
	assert.Equal(t, 1.0, e.Latest().Confidence)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 1, src.calls)
}
