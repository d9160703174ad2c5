package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"CoinSentry/internal/domain/repository"
	"CoinSentry/internal/handler/api"
	"CoinSentry/internal/pool"
	"CoinSentry/internal/usecase"
	pkgcache "CoinSentry/pkg/cache"
	pkgch "CoinSentry/pkg/clickhouse"
	"CoinSentry/pkg/config"
	xhttp "CoinSentry/pkg/http"
	pkgkafka "CoinSentry/pkg/kafka"
	applogger "CoinSentry/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	tracker    *pool.Tracker
	collector  *usecase.SnapshotCollector
	runner     *usecase.CycleRunner
	signals    *usecase.SignalGenerator
	status     *usecase.StatusProjector
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	store      repository.CandleStore
	cache      pkgcache.Service
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	tracker *pool.Tracker,
	collector *usecase.SnapshotCollector,
	runner *usecase.CycleRunner,
	signals *usecase.SignalGenerator,
	status *usecase.StatusProjector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	store repository.CandleStore,
	cache pkgcache.Service,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		tracker:   tracker,
		collector: collector,
		runner:    runner,
		signals:   signals,
		status:    status,
		consumer:  consumer,
		kh:        kh,
		store:     store,
		cache:     cache,
		chClient:  chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log

	handler := api.NewPoolHandler(l, a.tracker, a.status, a.signals, a.store, a.cache)
	a.httpServer = xhttp.NewServer(handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(a.cfg.Metrics.Path),
		xhttp.WithServerLogger(l),
	)

	// Start stream collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("symbols", a.cfg.Stream.Symbols))

	// Start cycle runner
	if err := a.runner.Start(ctx); err != nil {
		l.Error("cycle runner start error", applogger.Error(err))
		return err
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.log
	l.Info("shutting down...")

	a.runner.Stop()

	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
