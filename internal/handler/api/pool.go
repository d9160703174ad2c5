package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"CoinSentry/internal/domain/models"
	drepo "CoinSentry/internal/domain/repository"
	"CoinSentry/internal/pool"
	icache "CoinSentry/internal/service/cache"
	svcmetrics "CoinSentry/internal/service/metrics"
	"CoinSentry/internal/usecase"
	xcache "CoinSentry/pkg/cache"
	xhttp "CoinSentry/pkg/http"
	xlogger "CoinSentry/pkg/logger"
	"CoinSentry/pkg/util"

	"github.com/labstack/echo/v4"
)

// PoolHandler serves the coin-pool HTTP API.
type PoolHandler struct {
	logger    *xlogger.Logger
	tracker   *pool.Tracker
	status    *usecase.StatusProjector
	signals   *usecase.SignalGenerator
	store     drepo.CandleStore
	eligible  xcache.Service
	respCache icache.BytesCache
}

func NewPoolHandler(
	logger *xlogger.Logger,
	tracker *pool.Tracker,
	status *usecase.StatusProjector,
	signals *usecase.SignalGenerator,
	store drepo.CandleStore,
	eligible xcache.Service,
) *PoolHandler {
	svcmetrics.Register()
	return &PoolHandler{
		logger:    logger,
		tracker:   tracker,
		status:    status,
		signals:   signals,
		store:     store,
		eligible:  eligible,
		respCache: icache.NewTTLCache(),
	}
}

func (h *PoolHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api")
	g.GET("/coins", h.Coins)
	g.GET("/coins/:symbol", h.Coin)
	g.GET("/coins/:symbol/candles", h.Candles)
	g.GET("/status", h.Status)
	g.GET("/signals", h.Signals)
}

// Coins returns the eligible set, optionally narrowed to one status.
// Reads go through the post-cycle cache when it is warm.
func (h *PoolHandler) Coins(c echo.Context) error {
	req := &models.CoinsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	coins := h.eligibleCoins(c.Request().Context())
	if req.Status != "" {
		want := models.CoinStatus(req.Status)
		filtered := coins[:0:0]
		for _, coin := range coins {
			if coin.Status == want {
				filtered = append(filtered, coin)
			}
		}
		coins = filtered
	}
	return xhttp.ListResponse(c, coins, int64(len(coins)))
}

func (h *PoolHandler) eligibleCoins(ctx context.Context) []models.CoinRecord {
	if h.eligible != nil {
		var raw interface{}
		if err := h.eligible.Get(ctx, usecase.EligibleCacheKey, &raw); err == nil {
			if s, ok := raw.(string); ok {
				var coins []models.CoinRecord
				if err := json.Unmarshal([]byte(s), &coins); err == nil {
					return coins
				}
			}
		}
	}
	return h.tracker.EligibleCoins()
}

func (h *PoolHandler) Coin(c echo.Context) error {
	req := &models.CoinRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	coin, ok := h.tracker.Coin(req.Symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("coin not found in pool").WithError(models.ErrCoinNotFound))
	}
	return xhttp.SuccessResponse(c, coin)
}

func (h *PoolHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.store == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("candle store disabled"))
	}

	now := time.Now().UTC()
	to := xhttp.ParseTimeDefault(req.To, now)
	from := xhttp.ParseTimeDefault(req.From, to.Add(-6*time.Hour))
	// minute alignment keeps cache keys stable across repeated polls
	from, to = util.AlignCandleRange(from, to)

	cacheKey := xcache.Key("candles", req.Symbol, from.Unix(), to.Unix(), req.Limit)
	if b, ok, _ := h.respCache.GetBytes(cacheKey); ok {
		return c.JSONBlob(http.StatusOK, b)
	}

	candles, err := h.store.QueryCandles(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("candles query error",
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, err)
	}

	resp := xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    &xhttp.ListDataResponse{Rows: candles, Total: int64(len(candles))},
	}
	if b, err := json.Marshal(resp); err == nil {
		_ = h.respCache.SetBytes(cacheKey, b, 15*time.Second)
	}
	return xhttp.ListResponse(c, candles, int64(len(candles)))
}

func (h *PoolHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.status.Status())
}

func (h *PoolHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	signals := h.signals.Recent(req.Symbol, req.Limit)
	return xhttp.ListResponse(c, signals, int64(len(signals)))
}

func (h *PoolHandler) Health(c echo.Context) error {
	type health struct {
		Status string `json:"status"`
		Store  string `json:"store,omitempty"`
	}
	res := health{Status: "ok"}
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Health(ctx); err != nil {
			res.Store = "unreachable"
			if !errors.Is(err, context.Canceled) {
				h.logger.Warn("store health check failed", xlogger.Error(err))
			}
		} else {
			res.Store = "ok"
		}
	}
	return xhttp.SuccessResponse(c, res)
}
