package usecase

import (
	"time"

	"CoinSentry/internal/domain/models"
	"CoinSentry/internal/pool"
	svcmetrics "CoinSentry/internal/service/metrics"
)

// FilterConfig holds the screening thresholds applied each cycle.
type FilterConfig struct {
	MinVolume24h float64
	MinNATR      float64
	MaxNATR      float64
	MinCandles   int
	MaxCandleAge time.Duration
	RequireNATR  bool
}

// FilterEngine screens every pooled coin once per cycle and records the
// verdict on the pool. A coin passes only if every enabled rule passes.
type FilterEngine struct {
	cfg     FilterConfig
	tracker *pool.Tracker
	now     func() time.Time
}

func NewFilterEngine(cfg FilterConfig, tracker *pool.Tracker) *FilterEngine {
	return &FilterEngine{cfg: cfg, tracker: tracker, now: time.Now}
}

// Evaluate runs all rules against one record. Returns the overall
// verdict and the name of the first failing rule, empty on pass.
func (f *FilterEngine) Evaluate(c *models.CoinRecord) (bool, string) {
	now := f.now()

	if f.cfg.MinVolume24h > 0 && c.Volume24h < f.cfg.MinVolume24h {
		return false, "min_volume"
	}

	if c.NATR == nil {
		if f.cfg.RequireNATR {
			return false, "natr_missing"
		}
	} else {
		if f.cfg.MinNATR > 0 && *c.NATR < f.cfg.MinNATR {
			return false, "natr_low"
		}
		if f.cfg.MaxNATR > 0 && *c.NATR > f.cfg.MaxNATR {
			return false, "natr_high"
		}
	}

	if f.cfg.MinCandles > 0 && len(c.RecentCandles) < f.cfg.MinCandles {
		return false, "candles_few"
	}
	if f.cfg.MaxCandleAge > 0 && len(c.RecentCandles) > 0 {
		last := c.RecentCandles[len(c.RecentCandles)-1].OpenTime
		if now.Sub(last) > f.cfg.MaxCandleAge {
			return false, "candles_stale"
		}
	}

	return true, ""
}

// EvaluateAll screens every coin currently in the pool and records each
// verdict. Returns how many coins passed.
func (f *FilterEngine) EvaluateAll() int {
	passed := 0
	for _, c := range f.tracker.EligibleCoins() {
		rec := c
		ok, rule := f.Evaluate(&rec)
		if ok {
			passed++
			svcmetrics.FilterResults.WithLabelValues("all", "pass").Inc()
		} else {
			svcmetrics.FilterResults.WithLabelValues(rule, "fail").Inc()
		}
		// symbol came from the pool moments ago; a concurrent eviction
		// between read and write is the only way this can miss
		_ = f.tracker.RecordFilterResult(rec.Symbol, ok)
	}
	return passed
}
