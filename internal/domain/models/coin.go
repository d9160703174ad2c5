package models

import "time"

// CoinStatus represents the lifecycle state of a tracked coin.
type CoinStatus string

const (
	StatusNew      CoinStatus = "new"
	StatusStable   CoinStatus = "stable"
	StatusWarning  CoinStatus = "warning"
	StatusRemoving CoinStatus = "removing"
)

// CandleData is an immutable OHLCV snapshot for one time bucket.
type CandleData struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// CoinSnapshot carries the market fields of one per-symbol refresh from the
// data feed. The tracker stores these opaquely; it never interprets them.
type CoinSnapshot struct {
	Symbol    string
	Price     float64
	Volume24h float64
	NATR      *float64 // normalized ATR, nil until enough candles exist upstream
	Candles   []CandleData
	Timestamp time.Time
}

// CoinRecord is the full per-symbol state kept by the pool tracker.
// Lifecycle fields (cycles, timestamps, status) are owned exclusively by the
// tracker and mutated only through its operations.
type CoinRecord struct {
	Symbol        string
	Volume24h     float64
	CurrentPrice  float64
	NATR          *float64
	LastUpdated   time.Time
	RecentCandles []CandleData

	FirstAddedTime        time.Time
	LastPassedFiltersTime time.Time
	CyclesInPool          int
	PassedCurrentFilters  bool
	Status                CoinStatus
}
