package repository

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"gold-pulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type fakePool struct {
	execSQL  string
	execArgs []any
	execErr  error

	batch    *pgx.Batch
	batchErr error

	querySQL  string
	queryArgs []any
	rows      [][]any
	queryErr  error
}

func (p *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execSQL, p.execArgs = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), p.execErr
}

func (p *fakePool) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	p.batch = b
	return &fakeBatch{err: p.batchErr}
}

func (p *fakePool) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.querySQL, p.queryArgs = sql, args
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return &fakeRows{rows: p.rows, idx: -1}, nil
}

type fakeBatch struct {
	err   error
	execs int
}

func (b *fakeBatch) Exec() (pgconn.CommandTag, error) {
	b.execs++
	return pgconn.NewCommandTag("INSERT 0 1"), b.err
}
func (b *fakeBatch) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (b *fakeBatch) QueryRow() pgx.Row        { return nil }
func (b *fakeBatch) Close() error             { return nil }

type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.idx], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func TestUpsertSeriesQueuesOnePerPoint(t *testing.T) {
	pool := &fakePool{}
	repo := NewSeriesRepository(pool, testTracer)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := domain.NewTimeSeries("XAU", domain.SourceCoinGecko, domain.Interval1h, []domain.PricePoint{
		{Timestamp: base, Open: 1, High: 2, Low: 1, Close: 2},
		{Timestamp: base.Add(time.Hour), Open: 2, High: 3, Low: 2, Close: 3},
	})

	if err := repo.UpsertSeries(context.Background(), domain.Timeframe1W, series); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.batch == nil || pool.batch.Len() != 2 {
		t.Fatalf("expected 2 queued rows, got %+v", pool.batch)
	}
	args := pool.batch.QueuedQueries[1].Arguments
	if args[0] != "XAU" || args[1] != "1W" || args[2] != "coingecko" || args[7] != 3.0 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestUpsertSeriesSkipsEmpty(t *testing.T) {
	pool := &fakePool{}
	repo := NewSeriesRepository(pool, testTracer)

	if err := repo.UpsertSeries(context.Background(), domain.Timeframe1D, domain.TimeSeries{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.batch != nil {
		t.Fatal("expected no batch for an empty series")
	}
}

func TestUpsertSeriesReturnsExecError(t *testing.T) {
	pool := &fakePool{batchErr: errors.New("constraint")}
	repo := NewSeriesRepository(pool, testTracer)
	series := domain.NewTimeSeries("XAU", domain.SourceYahoo, domain.Interval1d, []domain.PricePoint{
		{Timestamp: time.Now(), Close: 1},
	})

	if err := repo.UpsertSeries(context.Background(), domain.Timeframe3M, series); err == nil {
		t.Fatal("expected exec error")
	}
}

func TestRecentSeriesReturnsAscending(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	pool := &fakePool{rows: [][]any{
		{"yahoo", base.Add(2 * time.Hour), 3.0, 3.0, 3.0, 3.0, 0.0},
		{"yahoo", base.Add(time.Hour), 2.0, 2.0, 2.0, 2.0, 0.0},
		{"yahoo", base, 1.0, 1.0, 1.0, 1.0, 0.0},
	}}
	repo := NewSeriesRepository(pool, testTracer)

	got, err := repo.RecentSeries(context.Background(), "XAU", domain.MustTimeframe(domain.Timeframe1W), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 3 || got.Points[0].Close != 1 || got.Points[2].Close != 3 {
		t.Fatalf("expected ascending closes, got %+v", got.Points)
	}
	if got.Source != domain.SourceYahoo || got.Interval != domain.Interval1h {
		t.Fatalf("unexpected series tags: %s %s", got.Source, got.Interval)
	}
	if pool.queryArgs[1] != "1W" || pool.queryArgs[2] != 3 {
		t.Fatalf("unexpected query args: %v", pool.queryArgs)
	}
}

func TestSaveSnapshot(t *testing.T) {
	pool := &fakePool{}
	repo := NewSentimentRepository(pool, testTracer)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	err := repo.SaveSnapshot(context.Background(), domain.SentimentResult{
		Score: 0.4, Confidence: 0.5, Category: domain.SentimentBullish,
		Summary: "Bullish for gold: war", Headlines: []string{"a", "b"}, Timestamp: at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(pool.execSQL, "sentiment_snapshots") {
		t.Fatalf("unexpected sql: %s", pool.execSQL)
	}
	if pool.execArgs[4] != "bullish" || pool.execArgs[7] != 2 {
		t.Fatalf("unexpected args: %v", pool.execArgs)
	}
	if words, ok := pool.execArgs[6].([]string); !ok || words == nil {
		t.Fatalf("expected non-nil trigger words, got %#v", pool.execArgs[6])
	}
}

func TestRecentSnapshotsOldestFirst(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pool := &fakePool{rows: [][]any{
		{at.Add(time.Hour), -0.2, -0.6, 0.5, "bearish", "Bearish for gold: ceasefire", []string{"ceasefire"}},
		{at, 0.3, 0.9, 1.0, "bullish", "Bullish for gold: war", []string{"war"}},
	}}
	repo := NewSentimentRepository(pool, testTracer)

	got, err := repo.RecentSnapshots(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Category != domain.SentimentBullish || got[1].Score != -0.2 {
		t.Fatalf("unexpected snapshots: %+v", got)
	}
}

func TestRecentSnapshotsQueryError(t *testing.T) {
	repo := NewSentimentRepository(&fakePool{queryErr: errors.New("down")}, testTracer)
	if _, err := repo.RecentSnapshots(context.Background(), 5); err == nil {
		t.Fatal("expected query error")
	}
}
