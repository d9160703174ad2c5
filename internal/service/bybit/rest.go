package bybit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"CoinSentry/internal/domain/models"
	xhttp "CoinSentry/pkg/http"
)

// Bootstrap fetches one round of ticker snapshots over REST so the pool
// is populated before the first WebSocket frame arrives.
type Bootstrap struct {
	client  *xhttp.Client
	baseURL string
	symbols map[string]bool
}

// NewBootstrap creates a REST bootstrap for the given symbols.
func NewBootstrap(baseURL string, symbols []string) *Bootstrap {
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}
	return &Bootstrap{
		client:  xhttp.NewClient(xhttp.WithClientTimeout(10 * time.Second)),
		baseURL: baseURL,
		symbols: want,
	}
}

type tickersResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol     string `json:"symbol"`
			LastPrice  string `json:"lastPrice"`
			Turnover24 string `json:"turnover24h"`
		} `json:"list"`
	} `json:"result"`
}

// FetchSnapshots pulls the current linear tickers and converts the
// configured symbols into snapshots.
func (b *Bootstrap) FetchSnapshots(ctx context.Context) ([]*models.CoinSnapshot, error) {
	var resp tickersResponse
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      "GET",
		URL:         b.baseURL + "/v5/market/tickers",
		QueryParams: map[string][]string{"category": {"linear"}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("bybit tickers: %w", err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit tickers: retCode=%d msg=%s", resp.RetCode, resp.RetMsg)
	}

	now := time.Now().UTC()
	out := make([]*models.CoinSnapshot, 0, len(b.symbols))
	for _, t := range resp.Result.List {
		if len(b.symbols) > 0 && !b.symbols[t.Symbol] {
			continue
		}
		price, err := strconv.ParseFloat(t.LastPrice, 64)
		if err != nil || price <= 0 {
			continue
		}
		vol, _ := strconv.ParseFloat(t.Turnover24, 64)
		out = append(out, &models.CoinSnapshot{
			Symbol:    t.Symbol,
			Price:     price,
			Volume24h: vol,
			Timestamp: now,
		})
	}
	return out, nil
}
