package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	drepo "CoinSentry/internal/domain/repository"
	"CoinSentry/internal/pool"
	svcmetrics "CoinSentry/internal/service/metrics"
	"CoinSentry/pkg/cache"
	applogger "CoinSentry/pkg/logger"

	"github.com/robfig/cron/v3"
)

// EligibleCacheKey is where the post-cycle eligible set is cached.
var EligibleCacheKey = cache.Key("pool", "eligible")

// CycleConfig tunes the periodic pool sweep.
type CycleConfig struct {
	Schedule     string        // cron expression, e.g. "*/5 * * * *"
	StaleAfter   time.Duration // snapshot freshness bound; 0 disables
	WarningGrace time.Duration // failure tolerance before eviction
	CacheTTL     time.Duration // eligible-set cache lifetime
}

// CycleRunner drives the evaluate-then-advance sweep on a cron
// schedule. Each tick screens every pooled coin, advances the
// lifecycle, persists evictions, regenerates signals, and refreshes
// the eligible-set cache.
type CycleRunner struct {
	cfg     CycleConfig
	tracker *pool.Tracker
	filters *FilterEngine
	signals *SignalGenerator
	store   drepo.CandleStore
	cache   cache.Service
	metrics drepo.Metrics
	log     *applogger.Logger
	now     func() time.Time

	cron    *cron.Cron
	entryID cron.EntryID

	mu      sync.Mutex
	running bool
	started time.Time
	lastRun time.Time
}

func NewCycleRunner(
	cfg CycleConfig,
	tracker *pool.Tracker,
	filters *FilterEngine,
	signals *SignalGenerator,
	store drepo.CandleStore,
	cacheSvc cache.Service,
	metrics drepo.Metrics,
	log *applogger.Logger,
) *CycleRunner {
	return &CycleRunner{
		cfg:     cfg,
		tracker: tracker,
		filters: filters,
		signals: signals,
		store:   store,
		cache:   cacheSvc,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// Start registers the cron entry and begins sweeping.
func (r *CycleRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	c := cron.New()
	id, err := c.AddFunc(r.cfg.Schedule, func() { r.RunCycle(ctx) })
	if err != nil {
		return err
	}
	r.cron = c
	r.entryID = id
	r.running = true
	r.started = r.now().UTC()
	c.Start()

	r.log.Info("cycle runner started", applogger.String("schedule", r.cfg.Schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep.
func (r *CycleRunner) Stop() {
	r.mu.Lock()
	c := r.cron
	r.running = false
	r.cron = nil
	r.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// RunCycle performs one evaluate-then-advance sweep. Exported so the
// scheduler and tests share the same path.
func (r *CycleRunner) RunCycle(ctx context.Context) {
	start := r.now()

	passed := r.filters.EvaluateAll()
	res := r.tracker.AdvanceCycle(start.UTC(), r.cfg.StaleAfter, r.cfg.WarningGrace)

	for i := range res.Evicted {
		rec := &res.Evicted[i]
		r.metrics.RecordEviction()
		if r.store != nil {
			if err := r.store.StoreEviction(ctx, rec, start.UTC()); err != nil {
				r.metrics.RecordError("eviction_store")
				r.log.Error("persist eviction",
					applogger.String("symbol", rec.Symbol),
					applogger.Error(err),
				)
			}
		}
	}

	if r.signals != nil {
		r.signals.Run(ctx)
	}

	r.refreshCache(ctx)
	r.publishPoolGauges()

	r.mu.Lock()
	r.lastRun = start.UTC()
	r.mu.Unlock()

	elapsed := time.Since(start)
	svcmetrics.CycleDuration.Observe(elapsed.Seconds())
	r.log.Info("cycle complete",
		applogger.Int("advanced", res.Advanced),
		applogger.Int("passed", passed),
		applogger.Int("evicted", len(res.Evicted)),
		applogger.Duration("elapsed", elapsed),
	)
}

// refreshCache stores the eligible set as JSON so both the memory and
// redis backends round-trip it identically.
func (r *CycleRunner) refreshCache(ctx context.Context) {
	if r.cache == nil {
		return
	}
	b, err := json.Marshal(r.tracker.EligibleCoins())
	if err != nil {
		r.metrics.RecordError("cache_marshal")
		return
	}
	if err := r.cache.Set(ctx, EligibleCacheKey, string(b), r.cfg.CacheTTL); err != nil {
		r.metrics.RecordError("cache_refresh")
	}
}

func (r *CycleRunner) publishPoolGauges() {
	for status, n := range r.tracker.CountByStatus() {
		r.metrics.RecordPoolSize(string(status), n)
	}
}

// IsRunning reports whether the schedule is active.
func (r *CycleRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// StartTime returns when the runner was started.
func (r *CycleRunner) StartTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// LastRun returns when the last sweep completed.
func (r *CycleRunner) LastRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}
