package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"CoinSentry/internal/domain/models"
	drepo "CoinSentry/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// candleWindow is how many confirmed 1m bars we keep per symbol for
// snapshot enrichment and NATR computation.
const candleWindow = 30

// Client implements a SnapshotStream backed by the Bybit v5 public
// WebSocket. It merges ticker frames with a per-symbol buffer of
// confirmed klines so every emitted snapshot carries recent candles.
type Client struct {
	websocketURL   string
	apiKey         string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool

	mu      sync.Mutex
	candles map[string][]models.CandleData
	volumes map[string]float64 // last known 24h turnover per symbol
}

// New creates a new Bybit SnapshotStream.
func New(websocketURL, apiKey string, symbols []string, reconnectDelay, pingInterval time.Duration) drepo.SnapshotStream {
	return &Client{
		websocketURL:   websocketURL,
		apiKey:         apiKey,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		candles:        make(map[string][]models.CandleData),
		volumes:        make(map[string]float64),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("bybit connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("bybit: connected")
	return nil
}

// Subscribe subscribes to ticker and 1m kline topics for the configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("bybit not connected")
	}
	args := make([]string, 0, 2*len(c.symbols))
	for _, s := range c.symbols {
		args = append(args, "tickers."+s, "kline.1."+s)
	}
	msg := map[string]interface{}{"op": "subscribe", "args": args}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	log.Printf("bybit: subscribed %d symbols", len(c.symbols))
	return nil
}

type wsFrame struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
}

type tickerData struct {
	Symbol     string `json:"symbol"`
	LastPrice  string `json:"lastPrice"`
	Turnover24 string `json:"turnover24h"`
}

type klineData struct {
	Start   int64  `json:"start"` // ms
	Open    string `json:"open"`
	High    string `json:"high"`
	Low     string `json:"low"`
	Close   string `json:"close"`
	Volume  string `json:"volume"`
	Confirm bool   `json:"confirm"`
}

// Read streams CoinSnapshot events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.CoinSnapshot, <-chan error) {
	snaps := make(chan *models.CoinSnapshot, 1024)
	errs := make(chan error, 1)

	// ping loop; Bybit expects an application-level ping op
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(snaps)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("bybit conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("bybit read: %w", err)
					return
				}
				var f wsFrame
				if err := json.Unmarshal(b, &f); err != nil {
					// ignore op acks and pong frames
					continue
				}
				if snap := c.handleFrame(&f); snap != nil {
					select {
					case snaps <- snap:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return snaps, errs
}

func (c *Client) handleFrame(f *wsFrame) *models.CoinSnapshot {
	switch {
	case len(f.Topic) > 8 && f.Topic[:8] == "tickers.":
		var d tickerData
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil
		}
		return c.applyTicker(&d)
	case len(f.Topic) > 8 && f.Topic[:8] == "kline.1.":
		symbol := f.Topic[8:]
		var bars []klineData
		if err := json.Unmarshal(f.Data, &bars); err != nil {
			return nil
		}
		c.applyKlines(symbol, bars)
	}
	return nil
}

// applyTicker builds a snapshot from a ticker frame, merging last known
// turnover for delta frames that omit it.
func (c *Client) applyTicker(d *tickerData) *models.CoinSnapshot {
	if d.Symbol == "" {
		return nil
	}
	price, err := strconv.ParseFloat(d.LastPrice, 64)
	if err != nil || price <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if v, err := strconv.ParseFloat(d.Turnover24, 64); err == nil && v > 0 {
		c.volumes[d.Symbol] = v
	}

	snap := &models.CoinSnapshot{
		Symbol:    d.Symbol,
		Price:     price,
		Volume24h: c.volumes[d.Symbol],
		Timestamp: time.Now().UTC(),
	}
	if bars := c.candles[d.Symbol]; len(bars) > 0 {
		snap.Candles = append([]models.CandleData(nil), bars...)
		if natr, ok := computeNATR(bars, price); ok {
			snap.NATR = &natr
		}
	}
	return snap
}

// applyKlines appends confirmed bars into the per-symbol ring buffer.
func (c *Client) applyKlines(symbol string, bars []klineData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range bars {
		if !k.Confirm {
			continue
		}
		cd, ok := parseCandle(k)
		if !ok {
			continue
		}
		buf := c.candles[symbol]
		if n := len(buf); n > 0 && buf[n-1].OpenTime.Equal(cd.OpenTime) {
			buf[n-1] = cd
		} else {
			buf = append(buf, cd)
		}
		if len(buf) > candleWindow {
			buf = buf[len(buf)-candleWindow:]
		}
		c.candles[symbol] = buf
	}
}

func parseCandle(k klineData) (models.CandleData, bool) {
	open, err1 := strconv.ParseFloat(k.Open, 64)
	high, err2 := strconv.ParseFloat(k.High, 64)
	low, err3 := strconv.ParseFloat(k.Low, 64)
	cls, err4 := strconv.ParseFloat(k.Close, 64)
	vol, err5 := strconv.ParseFloat(k.Volume, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return models.CandleData{}, false
	}
	return models.CandleData{
		OpenTime: time.UnixMilli(k.Start).UTC(),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    cls,
		Volume:   vol,
	}, true
}

// computeNATR returns ATR over the buffered bars normalized by the
// current price, in percent. Needs at least two bars.
func computeNATR(bars []models.CandleData, price float64) (float64, bool) {
	if len(bars) < 2 || price <= 0 {
		return 0, false
	}
	var sum float64
	for i := 1; i < len(bars); i++ {
		tr := bars[i].High - bars[i].Low
		if hc := abs(bars[i].High - bars[i-1].Close); hc > tr {
			tr = hc
		}
		if lc := abs(bars[i].Low - bars[i-1].Close); lc > tr {
			tr = lc
		}
		sum += tr
	}
	atr := sum / float64(len(bars)-1)
	return atr / price * 100, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
