package repository

import (
	"context"
	"time"

	"gold-pulse/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const upsertPricePoint = `INSERT INTO price_points (symbol, timeframe, source, ts, open, high, low, close, volume)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (symbol, timeframe, ts) DO UPDATE SET
    source = EXCLUDED.source,
    open = EXCLUDED.open,
    high = EXCLUDED.high,
    low = EXCLUDED.low,
    close = EXCLUDED.close,
    volume = EXCLUDED.volume`

// SeriesRepository archives live series per timeframe.
type SeriesRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSeriesRepository(pool PgxPool, tracer trace.Tracer) *SeriesRepository {
	return &SeriesRepository{pool: pool, tracer: tracer}
}

func (r *SeriesRepository) UpsertSeries(ctx context.Context, tf domain.TimeframeKey, series domain.TimeSeries) error {
	if len(series.Points) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "series-repo.upsert-series")
	defer span.End()
	span.SetAttributes(
		attribute.String("timeframe", string(tf)),
		attribute.Int("points", len(series.Points)),
	)

	batch := &pgx.Batch{}
	for _, p := range series.Points {
		batch.Queue(upsertPricePoint,
			series.Symbol, string(tf), string(series.Source), p.Timestamp.UTC(),
			p.Open, p.High, p.Low, p.Close, p.Volume,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range series.Points {
		if _, err := br.Exec(); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}

// RecentSeries returns up to limit archived points for the timeframe,
// oldest first.
func (r *SeriesRepository) RecentSeries(ctx context.Context, symbol string, tf domain.Timeframe, limit int) (domain.TimeSeries, error) {
	ctx, span := r.tracer.Start(ctx, "series-repo.recent-series")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT source, ts, open, high, low, close, volume
		 FROM price_points
		 WHERE symbol = $1 AND timeframe = $2
		 ORDER BY ts DESC
		 LIMIT $3`,
		symbol, string(tf.Key), limit,
	)
	if err != nil {
		return domain.TimeSeries{}, err
	}
	defer rows.Close()

	var (
		points []domain.PricePoint
		source domain.DataSource
	)
	for rows.Next() {
		var (
			p   domain.PricePoint
			src string
			ts  time.Time
		)
		if err := rows.Scan(&src, &ts, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return domain.TimeSeries{}, err
		}
		p.Timestamp = ts.UTC()
		if source == "" {
			source = domain.DataSource(src)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return domain.TimeSeries{}, err
	}
	return domain.NewTimeSeries(symbol, source, tf.Interval, points), nil
}
