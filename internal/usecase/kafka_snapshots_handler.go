package usecase

import (
	"context"
	"encoding/json"
	"time"

	"CoinSentry/internal/domain/models"
	drepo "CoinSentry/internal/domain/repository"
	pkgkafka "CoinSentry/pkg/kafka"
)

// KafkaSnapshotsHandler consumes snapshot messages produced by external
// scanners and applies them to the pool through the shared processor.
type KafkaSnapshotsHandler struct {
	topic   string
	proc    *SnapshotProcessor
	metrics drepo.Metrics
}

func NewKafkaSnapshotsHandler(topic string, proc *SnapshotProcessor, metrics drepo.Metrics) *KafkaSnapshotsHandler {
	return &KafkaSnapshotsHandler{topic: topic, proc: proc, metrics: metrics}
}

func (h *KafkaSnapshotsHandler) Topic() string { return h.topic }

type snapshotMessage struct {
	Symbol    string          `json:"symbol"`
	Price     float64         `json:"price"`
	Volume24h float64         `json:"volume_24h"`
	NATR      *float64        `json:"natr,omitempty"`
	Timestamp int64           `json:"ts"` // unix seconds or ms
	Candles   []candleMessage `json:"candles,omitempty"`
}

type candleMessage struct {
	T int64   `json:"t"` // open time, unix seconds or ms
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

func unixFlexible(v int64) time.Time {
	if v > 1e11 { // ms
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

func (h *KafkaSnapshotsHandler) Handle(ctx context.Context, b []byte) error {
	var m snapshotMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	ts := unixFlexible(m.Timestamp)
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(ts).Seconds())

	snap := &models.CoinSnapshot{
		Symbol:    m.Symbol,
		Price:     m.Price,
		Volume24h: m.Volume24h,
		NATR:      m.NATR,
		Timestamp: ts,
	}
	for _, c := range m.Candles {
		snap.Candles = append(snap.Candles, models.CandleData{
			OpenTime: unixFlexible(c.T),
			Open:     c.O,
			High:     c.H,
			Low:      c.L,
			Close:    c.C,
			Volume:   c.V,
		})
	}

	if err := h.proc.Process(ctx, snap); err != nil {
		h.metrics.RecordError("consumer_process")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotsHandler)(nil)
