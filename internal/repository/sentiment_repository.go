package repository

import (
	"context"
	"time"

	"gold-pulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// SentimentRepository keeps the history of scored headline batches.
type SentimentRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSentimentRepository(pool PgxPool, tracer trace.Tracer) *SentimentRepository {
	return &SentimentRepository{pool: pool, tracer: tracer}
}

func (r *SentimentRepository) SaveSnapshot(ctx context.Context, s domain.SentimentResult) error {
	ctx, span := r.tracer.Start(ctx, "sentiment-repo.save-snapshot")
	defer span.End()

	triggers := s.TriggerWords
	if triggers == nil {
		triggers = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sentiment_snapshots
		     (captured_at, score, adjustment_percent, confidence, category, summary, trigger_words, headline_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.Timestamp.UTC(), s.Score, s.AdjustmentPercent, s.Confidence,
		string(s.Category), s.Summary, triggers, len(s.Headlines),
	)
	return err
}

// RecentSnapshots returns the newest limit snapshots, oldest first. Headlines
// are not stored; only their count is.
func (r *SentimentRepository) RecentSnapshots(ctx context.Context, limit int) ([]domain.SentimentResult, error) {
	ctx, span := r.tracer.Start(ctx, "sentiment-repo.recent-snapshots")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT captured_at, score, adjustment_percent, confidence, category, summary, trigger_words
		 FROM sentiment_snapshots
		 ORDER BY captured_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SentimentResult
	for rows.Next() {
		var (
			s        domain.SentimentResult
			ts       time.Time
			category string
		)
		if err := rows.Scan(&ts, &s.Score, &s.AdjustmentPercent, &s.Confidence, &category, &s.Summary, &s.TriggerWords); err != nil {
			return nil, err
		}
		s.Timestamp = ts.UTC()
		s.Category = domain.SentimentCategory(category)
		s.Headlines = []string{}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
