package pool

import (
	"fmt"
	"sync"
	"time"

	"CoinSentry/internal/domain/models"
)

// Tracker owns the rolling pool of tracked coins and their lifecycle
// records. Membership is guarded by a single RWMutex; each record carries
// its own lock so snapshot refreshes and filter verdicts for different
// symbols never contend, and a reader can never observe a record
// mid-transition.
type Tracker struct {
	mu      sync.RWMutex
	records map[string]*record
	now     func() time.Time
}

type record struct {
	mu sync.Mutex
	c  models.CoinRecord
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the tracker clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates an empty Tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		records: make(map[string]*record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// UpsertSnapshot creates the record for an unseen symbol or refreshes the
// snapshot fields of an existing one. Lifecycle fields are never touched on
// refresh; snapshot ingestion and cycle advancement are independent.
func (t *Tracker) UpsertSnapshot(snap models.CoinSnapshot) {
	ts := snap.Timestamp
	if ts.IsZero() {
		ts = t.now()
	}

	t.mu.RLock()
	r, ok := t.records[snap.Symbol]
	t.mu.RUnlock()

	if !ok {
		now := t.now()
		fresh := &record{c: models.CoinRecord{
			Symbol:                snap.Symbol,
			Volume24h:             snap.Volume24h,
			CurrentPrice:          snap.Price,
			NATR:                  snap.NATR,
			LastUpdated:           ts,
			RecentCandles:         snap.Candles,
			FirstAddedTime:        now,
			LastPassedFiltersTime: now,
			CyclesInPool:          1,
			PassedCurrentFilters:  true,
			Status:                models.StatusNew,
		}}
		t.mu.Lock()
		// another goroutine may have created it between the locks
		if r, ok = t.records[snap.Symbol]; !ok {
			t.records[snap.Symbol] = fresh
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
	}

	r.mu.Lock()
	r.c.Volume24h = snap.Volume24h
	r.c.CurrentPrice = snap.Price
	r.c.NATR = snap.NATR
	r.c.RecentCandles = snap.Candles
	r.c.LastUpdated = ts
	r.mu.Unlock()
}

// RecordFilterResult stores this cycle's filter verdict for a coin. A passing
// verdict refreshes the last-passed timestamp. No status transition happens
// here; transitions are committed only by AdvanceCycle.
func (t *Tracker) RecordFilterResult(symbol string, passed bool) error {
	t.mu.RLock()
	r, ok := t.records[symbol]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("record filter result for %q: %w", symbol, models.ErrCoinNotFound)
	}

	r.mu.Lock()
	r.c.PassedCurrentFilters = passed
	if passed {
		r.c.LastPassedFiltersTime = t.now()
	}
	r.mu.Unlock()
	return nil
}

// AdvanceResult reports one pool sweep.
type AdvanceResult struct {
	Advanced int
	Evicted  []models.CoinRecord
}

// AdvanceCycle commits one evaluation cycle for every record: the cycle
// counter is incremented, a record whose snapshot is staler than staleAfter
// is treated as having failed the cycle, the transition table is applied,
// and records that reached the removing state are evicted before the sweep
// returns, so no later query can observe them.
func (t *Tracker) AdvanceCycle(now time.Time, staleAfter, warningGrace time.Duration) AdvanceResult {
	t.mu.RLock()
	recs := make([]*record, 0, len(t.records))
	for _, r := range t.records {
		recs = append(recs, r)
	}
	t.mu.RUnlock()

	var res AdvanceResult
	for _, r := range recs {
		r.mu.Lock()
		r.c.CyclesInPool++
		if staleAfter > 0 && now.Sub(r.c.LastUpdated) > staleAfter {
			// dead feed for this symbol counts as a failed cycle
			r.c.PassedCurrentFilters = false
		}
		r.c.Status = nextStatus(
			r.c.Status,
			r.c.PassedCurrentFilters,
			r.c.CyclesInPool,
			now.Sub(r.c.LastPassedFiltersTime),
			warningGrace,
		)
		if r.c.Status == models.StatusRemoving {
			res.Evicted = append(res.Evicted, cloneRecord(&r.c))
		}
		res.Advanced++
		r.mu.Unlock()
	}

	if len(res.Evicted) > 0 {
		t.mu.Lock()
		for _, ev := range res.Evicted {
			delete(t.records, ev.Symbol)
		}
		t.mu.Unlock()
	}
	return res
}

// EligibleCoins returns a copy of every record not scheduled for removal.
// The returned slice is decoupled from tracker state and safe to iterate
// while ingestion continues.
func (t *Tracker) EligibleCoins() []models.CoinRecord {
	t.mu.RLock()
	recs := make([]*record, 0, len(t.records))
	for _, r := range t.records {
		recs = append(recs, r)
	}
	t.mu.RUnlock()

	out := make([]models.CoinRecord, 0, len(recs))
	for _, r := range recs {
		r.mu.Lock()
		if r.c.Status != models.StatusRemoving {
			out = append(out, cloneRecord(&r.c))
		}
		r.mu.Unlock()
	}
	return out
}

// Coin returns a copy of one record.
func (t *Tracker) Coin(symbol string) (models.CoinRecord, bool) {
	t.mu.RLock()
	r, ok := t.records[symbol]
	t.mu.RUnlock()
	if !ok {
		return models.CoinRecord{}, false
	}
	r.mu.Lock()
	c := cloneRecord(&r.c)
	r.mu.Unlock()
	return c, true
}

// Len returns the number of tracked records.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// CountByStatus returns the record count per lifecycle status.
func (t *Tracker) CountByStatus() map[models.CoinStatus]int {
	t.mu.RLock()
	recs := make([]*record, 0, len(t.records))
	for _, r := range t.records {
		recs = append(recs, r)
	}
	t.mu.RUnlock()

	counts := make(map[models.CoinStatus]int, 4)
	for _, r := range recs {
		r.mu.Lock()
		counts[r.c.Status]++
		r.mu.Unlock()
	}
	return counts
}

func cloneRecord(c *models.CoinRecord) models.CoinRecord {
	out := *c
	if len(c.RecentCandles) > 0 {
		out.RecentCandles = make([]models.CandleData, len(c.RecentCandles))
		copy(out.RecentCandles, c.RecentCandles)
	}
	return out
}
