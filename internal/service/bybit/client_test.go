package bybit

import (
	"encoding/json"
	"testing"
	"time"

	"CoinSentry/internal/domain/models"
)

func newTestClient() *Client {
	return &Client{
		candles: make(map[string][]models.CandleData),
		volumes: make(map[string]float64),
	}
}

func TestTickerFrameProducesSnapshot(t *testing.T) {
	c := newTestClient()
	f := &wsFrame{
		Topic: "tickers.BTCUSDT",
		Data:  json.RawMessage(`{"symbol":"BTCUSDT","lastPrice":"65000.5","turnover24h":"1200000"}`),
	}
	snap := c.handleFrame(f)
	if snap == nil {
		t.Fatalf("expected snapshot")
	}
	if snap.Symbol != "BTCUSDT" || snap.Price != 65000.5 || snap.Volume24h != 1200000 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestDeltaTickerKeepsLastTurnover(t *testing.T) {
	c := newTestClient()
	c.handleFrame(&wsFrame{
		Topic: "tickers.BTCUSDT",
		Data:  json.RawMessage(`{"symbol":"BTCUSDT","lastPrice":"65000","turnover24h":"1200000"}`),
	})
	snap := c.handleFrame(&wsFrame{
		Topic: "tickers.BTCUSDT",
		Data:  json.RawMessage(`{"symbol":"BTCUSDT","lastPrice":"65100"}`),
	})
	if snap == nil {
		t.Fatalf("expected snapshot")
	}
	if snap.Volume24h != 1200000 {
		t.Fatalf("expected merged turnover, got %v", snap.Volume24h)
	}
}

func TestOnlyConfirmedKlinesBuffered(t *testing.T) {
	c := newTestClient()
	c.handleFrame(&wsFrame{
		Topic: "kline.1.BTCUSDT",
		Data: json.RawMessage(`[
			{"start":1717236000000,"open":"100","high":"110","low":"95","close":"105","volume":"10","confirm":true},
			{"start":1717236060000,"open":"105","high":"108","low":"104","close":"107","volume":"5","confirm":false}
		]`),
	})
	if got := len(c.candles["BTCUSDT"]); got != 1 {
		t.Fatalf("expected 1 buffered candle, got %d", got)
	}
}

func TestKlineBufferCapped(t *testing.T) {
	c := newTestClient()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < candleWindow+10; i++ {
		c.applyKlines("ETHUSDT", []klineData{{
			Start: base.Add(time.Duration(i) * time.Minute).UnixMilli(),
			Open:  "1", High: "2", Low: "0.5", Close: "1.5", Volume: "1",
			Confirm: true,
		}})
	}
	if got := len(c.candles["ETHUSDT"]); got != candleWindow {
		t.Fatalf("expected %d candles, got %d", candleWindow, got)
	}
}

func TestSnapshotCarriesCandlesAndNATR(t *testing.T) {
	c := newTestClient()
	c.applyKlines("BTCUSDT", []klineData{
		{Start: 1717236000000, Open: "100", High: "110", Low: "95", Close: "105", Volume: "10", Confirm: true},
		{Start: 1717236060000, Open: "105", High: "112", Low: "103", Close: "110", Volume: "8", Confirm: true},
	})
	snap := c.handleFrame(&wsFrame{
		Topic: "tickers.BTCUSDT",
		Data:  json.RawMessage(`{"symbol":"BTCUSDT","lastPrice":"110","turnover24h":"500"}`),
	})
	if snap == nil {
		t.Fatalf("expected snapshot")
	}
	if len(snap.Candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(snap.Candles))
	}
	if snap.NATR == nil {
		t.Fatalf("expected natr")
	}
	// single interval: TR = max(112-103, |112-105|, |103-105|) = 9; NATR = 9/110*100
	want := 9.0 / 110 * 100
	if diff := *snap.NATR - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("unexpected natr %v want %v", *snap.NATR, want)
	}
}

func TestInvalidPriceIgnored(t *testing.T) {
	c := newTestClient()
	snap := c.handleFrame(&wsFrame{
		Topic: "tickers.BTCUSDT",
		Data:  json.RawMessage(`{"symbol":"BTCUSDT","lastPrice":"0"}`),
	})
	if snap != nil {
		t.Fatalf("expected nil snapshot for zero price")
	}
}
