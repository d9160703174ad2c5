package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"CoinSentry/internal/domain/models"
	drepo "CoinSentry/internal/domain/repository"
	"CoinSentry/internal/pool"
	svcmetrics "CoinSentry/internal/service/metrics"
	"CoinSentry/internal/service/ratelimit"

	"github.com/google/uuid"
)

// SignalConfig tunes signal generation.
type SignalConfig struct {
	ZScoreThreshold float64       // |z| at or above this emits BUY/SELL
	Window          int           // closes used for mean/stddev
	MinDelay        time.Duration // per-symbol emission floor
	ActiveWindow    time.Duration // how long a signal counts as active
	BufferSize      int           // recent signals kept for the API
}

// SignalGenerator derives trading signals from the eligible set after
// each cycle. The latest close is scored against the mean of the recent
// candle window; a large positive deviation reads as overextension and
// emits SELL, a large negative one emits BUY.
type SignalGenerator struct {
	cfg     SignalConfig
	tracker *pool.Tracker
	pub     drepo.SignalPublisher
	limiter *ratelimit.Limiter
	metrics drepo.Metrics
	now     func() time.Time

	mu     sync.Mutex
	recent []models.TradingSignal // ring, newest last
}

func NewSignalGenerator(cfg SignalConfig, tracker *pool.Tracker, pub drepo.SignalPublisher, metrics drepo.Metrics) *SignalGenerator {
	if cfg.Window <= 0 {
		cfg.Window = 20
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	return &SignalGenerator{
		cfg:     cfg,
		tracker: tracker,
		pub:     pub,
		limiter: ratelimit.New(),
		metrics: metrics,
		now:     time.Now,
	}
}

// Run scores every eligible coin and publishes any actionable signals.
// Returns the number of signals emitted.
func (g *SignalGenerator) Run(ctx context.Context) int {
	emitted := 0
	var batch []*models.TradingSignal

	for _, c := range g.tracker.EligibleCoins() {
		sig, ok := g.score(&c)
		if !ok {
			continue
		}
		if sig.Action != models.ActionFlat && !g.allow(sig.Symbol) {
			continue
		}
		g.remember(sig)
		svcmetrics.SignalsEmitted.WithLabelValues(string(sig.Action)).Inc()
		if sig.Action != models.ActionFlat {
			batch = append(batch, sig)
			emitted++
		}
	}

	if g.pub != nil && len(batch) > 0 {
		if err := g.pub.PublishBatch(ctx, batch); err != nil {
			g.metrics.RecordError("signal_publish")
		}
	}
	return emitted
}

// score computes the z-score of the latest close against the window.
func (g *SignalGenerator) score(c *models.CoinRecord) (*models.TradingSignal, bool) {
	closes := closesWindow(c.RecentCandles, g.cfg.Window)
	if len(closes) < 2 {
		return nil, false
	}
	mean, std := meanStd(closes)
	if std == 0 {
		return nil, false
	}
	z := (c.CurrentPrice - mean) / std

	action := models.ActionFlat
	if z >= g.cfg.ZScoreThreshold {
		action = models.ActionSell
	} else if z <= -g.cfg.ZScoreThreshold {
		action = models.ActionBuy
	}

	return &models.TradingSignal{
		ID:           uuid.NewString(),
		Symbol:       c.Symbol,
		Action:       action,
		CurrentPrice: c.CurrentPrice,
		ZScore:       z,
		NATR:         c.NATR,
		Timestamp:    g.now().UTC(),
	}, true
}

func (g *SignalGenerator) allow(symbol string) bool {
	if g.cfg.MinDelay <= 0 {
		return true
	}
	// one token per MinDelay per symbol
	return g.limiter.Allow(symbol, 1, 1/g.cfg.MinDelay.Seconds())
}

func (g *SignalGenerator) remember(sig *models.TradingSignal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recent = append(g.recent, *sig)
	if len(g.recent) > g.cfg.BufferSize {
		g.recent = g.recent[len(g.recent)-g.cfg.BufferSize:]
	}
}

// ActiveCount returns how many actionable signals fall inside the
// active window.
func (g *SignalGenerator) ActiveCount() int {
	cutoff := g.now().Add(-g.cfg.ActiveWindow)
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, s := range g.recent {
		if s.Action != models.ActionFlat && s.Timestamp.After(cutoff) {
			n++
		}
	}
	return n
}

// Recent returns up to limit most recent signals, newest first,
// optionally restricted to one symbol.
func (g *SignalGenerator) Recent(symbol string, limit int) []models.TradingSignal {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.TradingSignal, 0, limit)
	for i := len(g.recent) - 1; i >= 0 && len(out) < limit; i-- {
		s := g.recent[i]
		if symbol != "" && s.Symbol != symbol {
			continue
		}
		out = append(out, s)
	}
	return out
}

func closesWindow(candles []models.CandleData, window int) []float64 {
	if len(candles) > window {
		candles = candles[len(candles)-window:]
	}
	out := make([]float64, 0, len(candles))
	for _, c := range candles {
		out = append(out, c.Close)
	}
	return out
}

func meanStd(vals []float64) (float64, float64) {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var varsum float64
	for _, v := range vals {
		d := v - mean
		varsum += d * d
	}
	return mean, math.Sqrt(varsum / float64(len(vals)))
}
