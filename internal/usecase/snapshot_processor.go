package usecase

import (
	"context"
	"fmt"
	"time"

	"CoinSentry/internal/domain/models"
	drepo "CoinSentry/internal/domain/repository"
	"CoinSentry/internal/pool"
)

// SnapshotProcessor applies a snapshot to the pool and persists its
// candles. Both the live stream pipeline and the Kafka consumer feed
// through it, so every source observes identical upsert semantics.
type SnapshotProcessor struct {
	tracker *pool.Tracker
	store   drepo.CandleStore
	metrics drepo.Metrics
	source  string
}

// NewSnapshotProcessor creates a new SnapshotProcessor instance.
func NewSnapshotProcessor(tracker *pool.Tracker, store drepo.CandleStore, metrics drepo.Metrics, source string) *SnapshotProcessor {
	return &SnapshotProcessor{tracker: tracker, store: store, metrics: metrics, source: source}
}

// Process upserts the snapshot into the pool and stores its candles.
func (p *SnapshotProcessor) Process(ctx context.Context, s *models.CoinSnapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot is nil")
	}

	start := time.Now()
	p.tracker.UpsertSnapshot(*s)
	p.metrics.RecordSnapshot(p.source, s.Symbol)
	p.metrics.RecordLastPrice(s.Symbol, s.Price)

	if p.store != nil && len(s.Candles) > 0 {
		if err := p.store.StoreCandles(ctx, s.Symbol, s.Candles); err != nil {
			p.metrics.RecordError("candle_store")
			return fmt.Errorf("store candles %s: %w", s.Symbol, err)
		}
	}
	p.metrics.RecordLatency("snapshot_process", time.Since(start).Seconds())
	return nil
}
