package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"CoinSentry/internal/domain/models"
)

type countingProc struct {
	mu     sync.Mutex
	calls  int
	failN  int // fail the first N calls
	lastIn *models.CoinSnapshot
}

func (p *countingProc) Process(_ context.Context, s *models.CoinSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failN {
		return fmt.Errorf("downstream unavailable")
	}
	p.lastIn = s
	return nil
}

func (p *countingProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type countingMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *countingMetrics) RecordSnapshot(string, string)   {}
func (m *countingMetrics) RecordLastPrice(string, float64) {}
func (m *countingMetrics) RecordPoolSize(string, int)      {}
func (m *countingMetrics) RecordEviction()                 {}
func (m *countingMetrics) RecordLatency(string, float64)   {}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[kind]++
}

func (m *countingMetrics) errCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func validSnap(symbol string) *models.CoinSnapshot {
	return &models.CoinSnapshot{
		Symbol:    symbol,
		Price:     100,
		Volume24h: 1_000_000,
		Timestamp: time.Now(),
	}
}

func TestPipelineForwardsValidSnapshot(t *testing.T) {
	proc := &countingProc{}
	p := NewSnapshotPipeline(proc, &countingMetrics{})

	if err := p.Process(context.Background(), validSnap("BTCUSDT")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if proc.count() != 1 {
		t.Fatalf("expected 1 downstream call, got %d", proc.count())
	}
	if proc.lastIn.Symbol != "BTCUSDT" {
		t.Fatalf("unexpected symbol %q", proc.lastIn.Symbol)
	}
}

func TestPipelineRejectsInvalidSnapshots(t *testing.T) {
	proc := &countingProc{}
	m := &countingMetrics{}
	p := NewSnapshotPipeline(proc, m)

	bad := []*models.CoinSnapshot{
		nil,
		{Price: 1, Timestamp: time.Now()},                     // empty symbol
		{Symbol: "BTCUSDT", Price: 1},                         // zero timestamp
		{Symbol: "BTCUSDT", Price: -1, Timestamp: time.Now()}, // negative price
	}
	for i, s := range bad {
		if err := p.Process(context.Background(), s); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if proc.count() != 0 {
		t.Fatalf("invalid snapshots reached downstream: %d", proc.count())
	}
	if m.errCount("pipeline_validate") != len(bad) {
		t.Fatalf("expected %d validation errors, got %d", len(bad), m.errCount("pipeline_validate"))
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &countingProc{}
	m := &countingMetrics{}
	p := NewSnapshotPipeline(proc, m, WithMaxRPS(1))

	// two back-to-back snapshots for the same symbol; second is throttled
	if err := p.Process(context.Background(), validSnap("ETHUSDT")); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := p.Process(context.Background(), validSnap("ETHUSDT")); err != nil {
		t.Fatalf("throttled snapshot should be dropped silently: %v", err)
	}
	// a different symbol passes through untouched
	if err := p.Process(context.Background(), validSnap("SOLUSDT")); err != nil {
		t.Fatalf("other symbol: %v", err)
	}
	if proc.count() != 2 {
		t.Fatalf("expected 2 downstream calls, got %d", proc.count())
	}
	if m.errCount("pipeline_throttle") != 1 {
		t.Fatalf("expected 1 throttle, got %d", m.errCount("pipeline_throttle"))
	}
}

func TestPipelineBuffersOnDownstreamFailure(t *testing.T) {
	proc := &countingProc{failN: 1}
	m := &countingMetrics{}
	p := NewSnapshotPipeline(proc, m, WithBufferSize(8))

	if err := p.Process(context.Background(), validSnap("BTCUSDT")); err == nil {
		t.Fatal("expected downstream error to propagate")
	}
	if m.errCount("pipeline_process") != 1 {
		t.Fatalf("expected 1 process error, got %d", m.errCount("pipeline_process"))
	}

	// background flush retries the buffered snapshot once downstream recovers
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for proc.count() < 2 {
		select {
		case <-deadline:
			t.Fatal("buffered snapshot was never flushed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if proc.lastIn == nil || proc.lastIn.Symbol != "BTCUSDT" {
		t.Fatal("flushed snapshot did not reach downstream")
	}
}
