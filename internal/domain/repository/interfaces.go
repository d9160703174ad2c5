package repository

import (
	"context"
	"time"

	"CoinSentry/internal/domain/models"
)

// SnapshotStream is the inbound market-data feed supplying per-symbol
// coin snapshots at arbitrary rate.
type SnapshotStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.CoinSnapshot, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalPublisher delivers generated trading signals to downstream consumers.
type SignalPublisher interface {
	Publish(ctx context.Context, s *models.TradingSignal) error
	PublishBatch(ctx context.Context, signals []*models.TradingSignal) error
	Close() error
}

// CandleStore persists candle history and pool eviction events.
type CandleStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreCandles(ctx context.Context, symbol string, candles []models.CandleData) error
	StoreEviction(ctx context.Context, rec *models.CoinRecord, evictedAt time.Time) error
	QueryCandles(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.CandleData, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Metrics records operational metrics for the engine.
type Metrics interface {
	RecordSnapshot(source, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordPoolSize(status string, n int)
	RecordEviction()
	RecordLatency(op string, seconds float64)
}
