package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CoinSentry/internal/domain/models"
	domrepo "CoinSentry/internal/domain/repository"
	pkgch "CoinSentry/pkg/clickhouse"
	applogger "CoinSentry/pkg/logger"
)

const (
	candleTable   = "coin_candles"
	evictionTable = "pool_evictions"
)

var schemaStmts = []string{
	`CREATE TABLE IF NOT EXISTS ` + candleTable + ` (
        open_time DateTime,
        symbol    LowCardinality(String),
        open      Float64,
        high      Float64,
        low       Float64,
        close     Float64,
        volume    Float64
    ) ENGINE = ReplacingMergeTree
    ORDER BY (symbol, open_time)`,
	`CREATE TABLE IF NOT EXISTS ` + evictionTable + ` (
        evicted_at       DateTime,
        symbol           LowCardinality(String),
        cycles_in_pool   UInt32,
        last_price       Float64,
        volume_24h       Float64,
        first_added      DateTime,
        last_passed      DateTime
    ) ENGINE = MergeTree
    ORDER BY (evicted_at, symbol)`,
}

// CHCandleStore implements CandleStore backed by ClickHouse.
type CHCandleStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client) *CHCandleStore {
	return &CHCandleStore{db: ch.DB()}
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHCandleStore) Init(ctx context.Context) error {
	for _, stmt := range schemaStmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("candle store init: %w", err)
		}
	}
	return nil
}

func (s *CHCandleStore) StoreCandles(ctx context.Context, symbol string, candles []models.CandleData) error {
	if len(candles) == 0 {
		return nil
	}
	values := make([]string, 0, len(candles))
	args := make([]interface{}, 0, len(candles)*7)
	for _, c := range candles {
		if c.OpenTime.IsZero() {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, c.OpenTime, symbol, c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf(
		"INSERT INTO %s (open_time, symbol, open, high, low, close, volume) VALUES %s",
		candleTable, strings.Join(values, ","),
	)
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_candles error",
				applogger.String("symbol", symbol),
				applogger.Int("count", len(values)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store candles: %w", err)
	}
	return nil
}

func (s *CHCandleStore) StoreEviction(ctx context.Context, rec *models.CoinRecord, evictedAt time.Time) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (evicted_at, symbol, cycles_in_pool, last_price, volume_24h, first_added, last_passed) VALUES (?, ?, ?, ?, ?, ?, ?)",
		evictionTable,
	)
	_, err := s.db.ExecContext(ctx, q,
		evictedAt,
		rec.Symbol,
		uint32(rec.CyclesInPool),
		rec.CurrentPrice,
		rec.Volume24h,
		rec.FirstAddedTime,
		rec.LastPassedFiltersTime,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_eviction error",
				applogger.String("symbol", rec.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store eviction: %w", err)
	}
	return nil
}

func (s *CHCandleStore) QueryCandles(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.CandleData, error) {
	q := fmt.Sprintf(
		"SELECT open_time, open, high, low, close, volume FROM %s WHERE symbol = ? AND open_time >= ? AND open_time <= ? ORDER BY open_time DESC LIMIT ?",
		candleTable,
	)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse query_candles error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.CandleData, 0, limit)
	for rows.Next() {
		var c models.CandleData
		if err := rows.Scan(&c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// query returns newest first; callers expect chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *CHCandleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHCandleStore) Close() error {
	return nil // connection owned by pkg client
}
