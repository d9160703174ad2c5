package usecase

import (
	"context"
	"testing"
	"time"

	"CoinSentry/internal/domain/models"
	"CoinSentry/internal/pool"
)

type capturingPublisher struct {
	published []*models.TradingSignal
}

func (p *capturingPublisher) Publish(ctx context.Context, s *models.TradingSignal) error {
	p.published = append(p.published, s)
	return nil
}

func (p *capturingPublisher) PublishBatch(ctx context.Context, ss []*models.TradingSignal) error {
	p.published = append(p.published, ss...)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordSnapshot(source, symbol string)     {}
func (nopMetrics) RecordError(kind string)                  {}
func (nopMetrics) RecordLastPrice(symbol string, v float64) {}
func (nopMetrics) RecordPoolSize(status string, n int)      {}
func (nopMetrics) RecordEviction()                          {}
func (nopMetrics) RecordLatency(op string, seconds float64) {}

func flatCandles(n int, close float64, last time.Time) []models.CandleData {
	out := make([]models.CandleData, n)
	for i := range out {
		out[i] = models.CandleData{
			OpenTime: last.Add(-time.Duration(n-1-i) * time.Minute),
			Close:    close,
		}
	}
	return out
}

func rampCandles(last time.Time, closes ...float64) []models.CandleData {
	out := make([]models.CandleData, len(closes))
	for i, c := range closes {
		out[i] = models.CandleData{
			OpenTime: last.Add(-time.Duration(len(closes)-1-i) * time.Minute),
			Close:    c,
		}
	}
	return out
}

func signalTracker(t *testing.T, price float64, candles []models.CandleData) *pool.Tracker {
	t.Helper()
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := pool.NewTracker(pool.WithClock(func() time.Time { return clock }))
	tr.UpsertSnapshot(models.CoinSnapshot{
		Symbol:    "BTCUSDT",
		Price:     price,
		Volume24h: 1,
		Candles:   candles,
		Timestamp: clock,
	})
	return tr
}

func TestSellSignalOnHighZScore(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	candles := rampCandles(base, 100, 101, 99, 100, 100, 101, 99, 100)
	tr := signalTracker(t, 130, candles)
	pub := &capturingPublisher{}
	g := NewSignalGenerator(SignalConfig{ZScoreThreshold: 2, ActiveWindow: time.Hour}, tr, pub, nopMetrics{})

	if n := g.Run(context.Background()); n != 1 {
		t.Fatalf("expected 1 signal, got %d", n)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected publish, got %d", len(pub.published))
	}
	sig := pub.published[0]
	if sig.Action != models.ActionSell {
		t.Fatalf("expected SELL, got %s", sig.Action)
	}
	if sig.ID == "" {
		t.Fatalf("expected signal id")
	}
	if sig.ZScore < 2 {
		t.Fatalf("unexpected z-score %v", sig.ZScore)
	}
}

func TestBuySignalOnLowZScore(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	candles := rampCandles(base, 100, 101, 99, 100, 100, 101, 99, 100)
	tr := signalTracker(t, 70, candles)
	pub := &capturingPublisher{}
	g := NewSignalGenerator(SignalConfig{ZScoreThreshold: 2}, tr, pub, nopMetrics{})

	g.Run(context.Background())
	if len(pub.published) != 1 || pub.published[0].Action != models.ActionBuy {
		t.Fatalf("expected one BUY, got %+v", pub.published)
	}
}

func TestFlatSignalNotPublished(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	candles := rampCandles(base, 100, 101, 99, 100, 100, 101, 99, 100)
	tr := signalTracker(t, 100, candles)
	pub := &capturingPublisher{}
	g := NewSignalGenerator(SignalConfig{ZScoreThreshold: 2}, tr, pub, nopMetrics{})

	if n := g.Run(context.Background()); n != 0 {
		t.Fatalf("expected no emissions, got %d", n)
	}
	if len(pub.published) != 0 {
		t.Fatalf("flat signals must not publish")
	}
	// still recorded for the API
	if got := g.Recent("", 10); len(got) != 1 || got[0].Action != models.ActionFlat {
		t.Fatalf("expected recorded flat signal, got %+v", got)
	}
}

func TestZeroVarianceSkipped(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := signalTracker(t, 100, flatCandles(10, 100, base))
	g := NewSignalGenerator(SignalConfig{ZScoreThreshold: 2}, tr, &capturingPublisher{}, nopMetrics{})

	if n := g.Run(context.Background()); n != 0 {
		t.Fatalf("expected skip on zero variance, got %d", n)
	}
}

func TestMinDelayThrottlesRepeatSignals(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	candles := rampCandles(base, 100, 101, 99, 100, 100, 101, 99, 100)
	tr := signalTracker(t, 130, candles)
	pub := &capturingPublisher{}
	g := NewSignalGenerator(SignalConfig{ZScoreThreshold: 2, MinDelay: time.Hour}, tr, pub, nopMetrics{})

	g.Run(context.Background())
	g.Run(context.Background())
	if len(pub.published) != 1 {
		t.Fatalf("expected throttle to hold second signal, got %d", len(pub.published))
	}
}

func TestActiveCountRespectsWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	candles := rampCandles(base, 100, 101, 99, 100, 100, 101, 99, 100)
	tr := signalTracker(t, 130, candles)
	g := NewSignalGenerator(SignalConfig{ZScoreThreshold: 2, ActiveWindow: 10 * time.Minute}, tr, &capturingPublisher{}, nopMetrics{})

	now := base
	g.now = func() time.Time { return now }
	g.Run(context.Background())
	if got := g.ActiveCount(); got != 1 {
		t.Fatalf("expected 1 active, got %d", got)
	}
	now = base.Add(time.Hour)
	if got := g.ActiveCount(); got != 0 {
		t.Fatalf("expected 0 active after window, got %d", got)
	}
}

func TestRecentFiltersBySymbol(t *testing.T) {
	g := NewSignalGenerator(SignalConfig{}, pool.NewTracker(), nil, nopMetrics{})
	g.remember(&models.TradingSignal{ID: "1", Symbol: "BTCUSDT", Action: models.ActionBuy})
	g.remember(&models.TradingSignal{ID: "2", Symbol: "ETHUSDT", Action: models.ActionSell})
	g.remember(&models.TradingSignal{ID: "3", Symbol: "BTCUSDT", Action: models.ActionFlat})

	got := g.Recent("BTCUSDT", 10)
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "1" {
		t.Fatalf("unexpected recent %+v", got)
	}
}
