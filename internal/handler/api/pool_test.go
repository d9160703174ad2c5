package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CoinSentry/internal/domain/models"
	"CoinSentry/internal/pool"
	"CoinSentry/internal/usecase"
	applogger "CoinSentry/pkg/logger"

	"github.com/labstack/echo/v4"
)

func testHandler(t *testing.T) (*PoolHandler, *pool.Tracker) {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	tracker := pool.NewTracker()
	gen := usecase.NewSignalGenerator(usecase.SignalConfig{}, tracker, nil, nil)
	status := usecase.NewStatusProjector(tracker, nil, gen)
	return NewPoolHandler(l, tracker, status, gen, nil, nil), tracker
}

func doRequest(h *PoolHandler, method, target string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCoinsEndpoint(t *testing.T) {
	h, tracker := testHandler(t)
	tracker.UpsertSnapshot(models.CoinSnapshot{
		Symbol: "BTCUSDT", Price: 65000, Volume24h: 1e6, Timestamp: time.Now(),
	})

	rec := doRequest(h, http.MethodGet, "/api/coins")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected code %d", rec.Code)
	}
	var resp struct {
		Status int `json:"status"`
		Data   struct {
			Rows  []models.CoinRecord `json:"rows"`
			Total int64               `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Total != 1 || resp.Data.Rows[0].Symbol != "BTCUSDT" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCoinsStatusFilter(t *testing.T) {
	h, tracker := testHandler(t)
	tracker.UpsertSnapshot(models.CoinSnapshot{
		Symbol: "BTCUSDT", Price: 1, Volume24h: 1, Timestamp: time.Now(),
	})

	rec := doRequest(h, http.MethodGet, "/api/coins?status=stable")
	var resp struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Total != 0 {
		t.Fatalf("new coin must not match stable filter: %s", rec.Body.String())
	}

	rec = doRequest(h, http.MethodGet, "/api/coins?status=bogus")
	var bad struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bad); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bad.Status != http.StatusBadRequest {
		t.Fatalf("expected validation failure, got %s", rec.Body.String())
	}
}

func TestCoinEndpointNotFound(t *testing.T) {
	h, _ := testHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/coins/NOPE")
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Fatalf("expected 404 envelope, got %s", rec.Body.String())
	}
}

func TestStatusEndpoint(t *testing.T) {
	h, tracker := testHandler(t)
	tracker.UpsertSnapshot(models.CoinSnapshot{
		Symbol: "BTCUSDT", Price: 1, Volume24h: 1, Timestamp: time.Now(),
	})

	rec := doRequest(h, http.MethodGet, "/api/status")
	var resp struct {
		Data models.EngineStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.TotalCoinCount != 1 {
		t.Fatalf("unexpected status %s", rec.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := testHandler(t)
	rec := doRequest(h, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected code %d", rec.Code)
	}
}
