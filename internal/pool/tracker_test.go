package pool

import (
	"errors"
	"testing"
	"time"

	"CoinSentry/internal/domain/models"
)

type testClock struct{ t time.Time }

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func snapFor(symbol string) models.CoinSnapshot {
	return models.CoinSnapshot{
		Symbol:    symbol,
		Price:     100,
		Volume24h: 5_000_000,
		Candles: []models.CandleData{
			{Open: 99, High: 101, Low: 98, Close: 100, Volume: 10},
		},
	}
}

func TestUpsertCreatesNewRecord(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))

	tr.UpsertSnapshot(snapFor("BTCUSDT"))

	c, ok := tr.Coin("BTCUSDT")
	if !ok {
		t.Fatalf("expected record")
	}
	if c.Status != models.StatusNew {
		t.Fatalf("status = %s, want new", c.Status)
	}
	if c.CyclesInPool != 1 {
		t.Fatalf("cycles = %d, want 1", c.CyclesInPool)
	}
	if !c.PassedCurrentFilters {
		t.Fatalf("expected passed filters on creation")
	}
	if !c.FirstAddedTime.Equal(clk.now()) || !c.LastPassedFiltersTime.Equal(clk.now()) {
		t.Fatalf("creation timestamps not set to now")
	}
}

func TestUpsertRefreshKeepsLifecycleFields(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))
	tr.UpsertSnapshot(snapFor("ETHUSDT"))
	tr.AdvanceCycle(clk.now(), 0, time.Hour)

	before, _ := tr.Coin("ETHUSDT")

	clk.advance(time.Minute)
	refreshed := snapFor("ETHUSDT")
	refreshed.Price = 123
	refreshed.Volume24h = 9_999_999
	refreshed.Timestamp = clk.now()
	tr.UpsertSnapshot(refreshed)

	after, _ := tr.Coin("ETHUSDT")
	if after.CurrentPrice != 123 || after.Volume24h != 9_999_999 {
		t.Fatalf("snapshot fields not refreshed")
	}
	if !after.LastUpdated.Equal(clk.now()) {
		t.Fatalf("last updated not refreshed")
	}
	if after.CyclesInPool != before.CyclesInPool ||
		after.Status != before.Status ||
		!after.FirstAddedTime.Equal(before.FirstAddedTime) ||
		!after.LastPassedFiltersTime.Equal(before.LastPassedFiltersTime) {
		t.Fatalf("refresh mutated lifecycle fields: before=%+v after=%+v", before, after)
	}
}

func TestCyclesIncrementOncePerAdvance(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))
	tr.UpsertSnapshot(snapFor("BTCUSDT"))

	const n = 5
	for i := 0; i < n; i++ {
		_ = tr.RecordFilterResult("BTCUSDT", true)
		clk.advance(time.Minute)
		tr.AdvanceCycle(clk.now(), 0, time.Hour)
	}

	c, _ := tr.Coin("BTCUSDT")
	if c.CyclesInPool != 1+n {
		t.Fatalf("cycles = %d, want %d", c.CyclesInPool, 1+n)
	}
}

func TestRecordFilterResultUnknownSymbol(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))
	tr.UpsertSnapshot(snapFor("BTCUSDT"))
	before, _ := tr.Coin("BTCUSDT")

	err := tr.RecordFilterResult("DOGEUSDT", true)
	if !errors.Is(err, models.ErrCoinNotFound) {
		t.Fatalf("err = %v, want ErrCoinNotFound", err)
	}

	after, _ := tr.Coin("BTCUSDT")
	if after.PassedCurrentFilters != before.PassedCurrentFilters ||
		!after.LastPassedFiltersTime.Equal(before.LastPassedFiltersTime) {
		t.Fatalf("failed verdict mutated an unrelated record")
	}
}

func TestNewPromotesToStableAfterSecondPassingCycle(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))
	tr.UpsertSnapshot(snapFor("BTCUSDT"))

	_ = tr.RecordFilterResult("BTCUSDT", true)
	clk.advance(time.Minute)
	tr.AdvanceCycle(clk.now(), 0, time.Hour)

	c, _ := tr.Coin("BTCUSDT")
	if c.Status != models.StatusStable {
		t.Fatalf("status = %s, want stable (cycle should be 2 and passing)", c.Status)
	}
	if c.CyclesInPool != 2 {
		t.Fatalf("cycles = %d, want 2", c.CyclesInPool)
	}
}

func TestStableDemotesToWarningOnFailure(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))
	tr.UpsertSnapshot(snapFor("BTCUSDT"))
	_ = tr.RecordFilterResult("BTCUSDT", true)
	clk.advance(time.Minute)
	tr.AdvanceCycle(clk.now(), 0, time.Hour)

	_ = tr.RecordFilterResult("BTCUSDT", false)
	clk.advance(time.Minute)
	tr.AdvanceCycle(clk.now(), 0, time.Hour)

	c, _ := tr.Coin("BTCUSDT")
	if c.Status != models.StatusWarning {
		t.Fatalf("status = %s, want warning", c.Status)
	}
}

func TestWarningRecoversToStable(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))
	tr.UpsertSnapshot(snapFor("BTCUSDT"))
	_ = tr.RecordFilterResult("BTCUSDT", false)
	clk.advance(time.Minute)
	tr.AdvanceCycle(clk.now(), 0, time.Hour) // new -> warning

	_ = tr.RecordFilterResult("BTCUSDT", true)
	clk.advance(time.Minute)
	tr.AdvanceCycle(clk.now(), 0, time.Hour)

	c, _ := tr.Coin("BTCUSDT")
	if c.Status != models.StatusStable {
		t.Fatalf("status = %s, want stable after recovery", c.Status)
	}
}

func TestSustainedFailureEvictsAfterGrace(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))
	grace := 2 * time.Minute

	tr.UpsertSnapshot(snapFor("BTCUSDT"))
	// promote to stable first
	_ = tr.RecordFilterResult("BTCUSDT", true)
	clk.advance(time.Minute)
	tr.AdvanceCycle(clk.now(), 0, grace)

	// three failing cycles one minute apart: warning, warning, removing
	var evicted []models.CoinRecord
	for i := 0; i < 3; i++ {
		_ = tr.RecordFilterResult("BTCUSDT", false)
		clk.advance(time.Minute)
		res := tr.AdvanceCycle(clk.now(), 0, grace)
		evicted = append(evicted, res.Evicted...)
	}

	if len(evicted) != 1 || evicted[0].Symbol != "BTCUSDT" {
		t.Fatalf("evicted = %+v, want BTCUSDT once", evicted)
	}
	if evicted[0].Status != models.StatusRemoving {
		t.Fatalf("evicted status = %s, want removing", evicted[0].Status)
	}
	if _, ok := tr.Coin("BTCUSDT"); ok {
		t.Fatalf("record still present after eviction")
	}
	for _, c := range tr.EligibleCoins() {
		if c.Symbol == "BTCUSDT" {
			t.Fatalf("evicted coin still eligible")
		}
	}
}

func TestEligibleCoinsExcludesRemoving(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))

	tr.UpsertSnapshot(snapFor("BTCUSDT"))
	tr.UpsertSnapshot(snapFor("ETHUSDT"))
	_ = tr.RecordFilterResult("BTCUSDT", false)
	_ = tr.RecordFilterResult("ETHUSDT", true)

	clk.advance(time.Minute)
	tr.AdvanceCycle(clk.now(), 0, time.Hour)

	eligible := tr.EligibleCoins()
	if len(eligible) != 2 {
		t.Fatalf("eligible = %d, want 2 (warning coins stay eligible)", len(eligible))
	}
	for _, c := range eligible {
		if c.Status == models.StatusRemoving {
			t.Fatalf("eligible set contains removing record")
		}
	}
}

func TestStaleSnapshotCountsAsFailure(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))
	tr.UpsertSnapshot(snapFor("BTCUSDT"))
	_ = tr.RecordFilterResult("BTCUSDT", true)
	clk.advance(time.Minute)
	tr.AdvanceCycle(clk.now(), 0, time.Hour) // stable

	// feed goes silent for 10 minutes with staleAfter of 5
	_ = tr.RecordFilterResult("BTCUSDT", true)
	clk.advance(10 * time.Minute)
	tr.AdvanceCycle(clk.now(), 5*time.Minute, time.Hour)

	c, _ := tr.Coin("BTCUSDT")
	if c.Status != models.StatusWarning {
		t.Fatalf("status = %s, want warning for stale feed", c.Status)
	}
	if c.PassedCurrentFilters {
		t.Fatalf("stale record should be marked failing")
	}
}

// Worked lifecycle: create, promote on the first passing advance, then fail
// out through warning into eviction once the grace window elapses.
func TestFullLifecycle(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))
	grace := 2 * time.Minute

	tr.UpsertSnapshot(snapFor("BTCUSDT"))
	c, _ := tr.Coin("BTCUSDT")
	if c.CyclesInPool != 1 || c.Status != models.StatusNew {
		t.Fatalf("creation: cycles=%d status=%s", c.CyclesInPool, c.Status)
	}

	_ = tr.RecordFilterResult("BTCUSDT", true)
	clk.advance(time.Minute)
	tr.AdvanceCycle(clk.now(), 0, grace)
	c, _ = tr.Coin("BTCUSDT")
	if c.CyclesInPool != 2 || c.Status != models.StatusStable {
		t.Fatalf("after first advance: cycles=%d status=%s", c.CyclesInPool, c.Status)
	}

	statuses := []models.CoinStatus{}
	for i := 0; i < 3; i++ {
		_ = tr.RecordFilterResult("BTCUSDT", false)
		clk.advance(time.Minute)
		tr.AdvanceCycle(clk.now(), 0, grace)
		if c, ok := tr.Coin("BTCUSDT"); ok {
			statuses = append(statuses, c.Status)
		}
	}
	// first failing advance demotes to warning; the second exceeds the
	// 2-minute grace since the last pass and evicts
	if len(statuses) != 1 || statuses[0] != models.StatusWarning {
		t.Fatalf("failing path = %v, want [warning] then eviction", statuses)
	}
	if tr.Len() != 0 {
		t.Fatalf("pool len = %d, want 0 after eviction", tr.Len())
	}
}

func TestCountByStatus(t *testing.T) {
	clk := newTestClock()
	tr := NewTracker(WithClock(clk.now))
	tr.UpsertSnapshot(snapFor("BTCUSDT"))
	tr.UpsertSnapshot(snapFor("ETHUSDT"))
	_ = tr.RecordFilterResult("BTCUSDT", true)
	_ = tr.RecordFilterResult("ETHUSDT", false)
	clk.advance(time.Minute)
	tr.AdvanceCycle(clk.now(), 0, time.Hour)

	counts := tr.CountByStatus()
	if counts[models.StatusStable] != 1 || counts[models.StatusWarning] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
