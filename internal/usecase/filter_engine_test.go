package usecase

import (
	"testing"
	"time"

	"CoinSentry/internal/domain/models"
	"CoinSentry/internal/pool"
)

var filterBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func filterRecord(volume float64, natr *float64, candles []models.CandleData) *models.CoinRecord {
	return &models.CoinRecord{
		Symbol:        "BTCUSDT",
		Volume24h:     volume,
		NATR:          natr,
		RecentCandles: candles,
	}
}

func ptr(v float64) *float64 { return &v }

func freshCandles(n int, last time.Time) []models.CandleData {
	out := make([]models.CandleData, n)
	for i := range out {
		out[i] = models.CandleData{OpenTime: last.Add(-time.Duration(n-1-i) * time.Minute)}
	}
	return out
}

func testEngine(cfg FilterConfig) *FilterEngine {
	e := NewFilterEngine(cfg, pool.NewTracker())
	e.now = func() time.Time { return filterBase }
	return e
}

func TestFilterPassesHealthyCoin(t *testing.T) {
	e := testEngine(FilterConfig{
		MinVolume24h: 1_000_000,
		MinNATR:      0.5,
		MaxNATR:      10,
		MinCandles:   3,
		MaxCandleAge: 5 * time.Minute,
	})
	rec := filterRecord(5_000_000, ptr(2.0), freshCandles(5, filterBase.Add(-time.Minute)))
	ok, rule := e.Evaluate(rec)
	if !ok {
		t.Fatalf("expected pass, failed rule %q", rule)
	}
}

func TestFilterMinVolume(t *testing.T) {
	e := testEngine(FilterConfig{MinVolume24h: 1_000_000})
	ok, rule := e.Evaluate(filterRecord(500, ptr(2.0), nil))
	if ok || rule != "min_volume" {
		t.Fatalf("expected min_volume failure, got ok=%v rule=%q", ok, rule)
	}
}

func TestFilterNATRBand(t *testing.T) {
	e := testEngine(FilterConfig{MinNATR: 1, MaxNATR: 5})
	if ok, rule := e.Evaluate(filterRecord(0, ptr(0.2), nil)); ok || rule != "natr_low" {
		t.Fatalf("expected natr_low, got ok=%v rule=%q", ok, rule)
	}
	if ok, rule := e.Evaluate(filterRecord(0, ptr(9.0), nil)); ok || rule != "natr_high" {
		t.Fatalf("expected natr_high, got ok=%v rule=%q", ok, rule)
	}
}

func TestFilterMissingNATROptional(t *testing.T) {
	e := testEngine(FilterConfig{MinNATR: 1, MaxNATR: 5})
	if ok, _ := e.Evaluate(filterRecord(0, nil, nil)); !ok {
		t.Fatalf("missing natr should pass when not required")
	}
	e = testEngine(FilterConfig{RequireNATR: true})
	if ok, rule := e.Evaluate(filterRecord(0, nil, nil)); ok || rule != "natr_missing" {
		t.Fatalf("expected natr_missing, got ok=%v rule=%q", ok, rule)
	}
}

func TestFilterCandleFreshness(t *testing.T) {
	e := testEngine(FilterConfig{MinCandles: 3, MaxCandleAge: 5 * time.Minute})
	if ok, rule := e.Evaluate(filterRecord(0, nil, freshCandles(2, filterBase))); ok || rule != "candles_few" {
		t.Fatalf("expected candles_few, got ok=%v rule=%q", ok, rule)
	}
	stale := freshCandles(5, filterBase.Add(-30*time.Minute))
	if ok, rule := e.Evaluate(filterRecord(0, nil, stale)); ok || rule != "candles_stale" {
		t.Fatalf("expected candles_stale, got ok=%v rule=%q", ok, rule)
	}
}

func TestEvaluateAllRecordsVerdicts(t *testing.T) {
	clock := filterBase
	tracker := pool.NewTracker(pool.WithClock(func() time.Time { return clock }))
	tracker.UpsertSnapshot(models.CoinSnapshot{
		Symbol: "GOOD", Price: 1, Volume24h: 10_000_000, Timestamp: clock,
	})
	tracker.UpsertSnapshot(models.CoinSnapshot{
		Symbol: "BAD", Price: 1, Volume24h: 10, Timestamp: clock,
	})

	e := NewFilterEngine(FilterConfig{MinVolume24h: 1_000_000}, tracker)
	e.now = func() time.Time { return clock }

	if passed := e.EvaluateAll(); passed != 1 {
		t.Fatalf("expected 1 pass, got %d", passed)
	}
	good, _ := tracker.Coin("GOOD")
	bad, _ := tracker.Coin("BAD")
	if !good.PassedCurrentFilters || bad.PassedCurrentFilters {
		t.Fatalf("verdicts not recorded: good=%v bad=%v", good.PassedCurrentFilters, bad.PassedCurrentFilters)
	}
}
