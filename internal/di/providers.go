package di

import (
	"context"
	"fmt"
	"time"

	"CoinSentry/internal/domain/repository"
	mid "CoinSentry/internal/middleware"
	"CoinSentry/internal/pool"
	internalrepo "CoinSentry/internal/repository"
	"CoinSentry/internal/service/bybit"
	"CoinSentry/internal/usecase"
	pkgcache "CoinSentry/pkg/cache"
	pkgch "CoinSentry/pkg/clickhouse"
	"CoinSentry/pkg/config"
	pkgkafka "CoinSentry/pkg/kafka"
	applogger "CoinSentry/pkg/logger"
	"CoinSentry/pkg/metrics"
	"CoinSentry/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideTracker creates the coin pool tracker.
func ProvideTracker() *pool.Tracker {
	return pool.NewTracker()
}

// ProvideClickHouseClient creates a ClickHouse client with the candle
// schema initialized. Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithConnPool(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideCandleStore creates the ClickHouse candle store. Nil when
// ClickHouse is disabled; consumers must tolerate a missing store.
func ProvideCandleStore(chClient *pkgch.Client, l *applogger.Logger) (repository.CandleStore, error) {
	if chClient == nil {
		return nil, nil
	}
	store := internalrepo.NewCHCandleStore(chClient)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("candle store schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer. Nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideSignalPublisher creates the Kafka signal publisher.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalTopic)
}

// ProvideKafkaConsumer creates the snapshot topic consumer. Nil when
// Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.SnapshotTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideEligibleCache creates the eligible-set cache. Layered over
// Redis when configured, in-memory otherwise.
func ProvideEligibleCache(cfg *config.Config) (pkgcache.Service, error) {
	if cfg.Cache.Redis.Enabled {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Cache.Redis.Addr),
			pkgcache.WithRedisAuth(cfg.Cache.Redis.Password, cfg.Cache.Redis.DB),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return pkgcache.NewLayeredCache(rc), nil
	}
	return pkgcache.NewMemoryCache(), nil
}

// ProvideSnapshotStream creates the Bybit WebSocket stream.
func ProvideSnapshotStream(cfg *config.Config) repository.SnapshotStream {
	return bybit.New(
		cfg.Stream.WebSocketURL,
		cfg.Stream.APIKey,
		cfg.Stream.Symbols,
		cfg.Stream.ReconnectDelay,
		cfg.Stream.PingInterval,
	)
}

// ProvideSnapshotProcessor creates the shared snapshot processor.
func ProvideSnapshotProcessor(
	tracker *pool.Tracker,
	store repository.CandleStore,
	m repository.Metrics,
) *usecase.SnapshotProcessor {
	return usecase.NewSnapshotProcessor(tracker, store, m, "bybit")
}

// ProvideSnapshotCollector creates the stream collector with its
// pipeline and optional REST bootstrap.
func ProvideSnapshotCollector(
	cfg *config.Config,
	stream repository.SnapshotStream,
	proc *usecase.SnapshotProcessor,
	m repository.Metrics,
) *usecase.SnapshotCollector {
	pipe := mid.NewSnapshotPipeline(proc, m,
		mid.WithMaxRPS(10),
		mid.WithBufferSize(2000),
	)
	collector := usecase.NewSnapshotCollector(stream, proc, m, pipe)
	if cfg.Stream.RESTURL != "" {
		collector.SetSeeder(bybit.NewBootstrap(cfg.Stream.RESTURL, cfg.Stream.Symbols))
	}
	return collector
}

// ProvideKafkaSnapshotsHandler registers the handler for the snapshot topic.
func ProvideKafkaSnapshotsHandler(
	proc *usecase.SnapshotProcessor,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.KafkaSnapshotsHandler {
	return usecase.NewKafkaSnapshotsHandler(cfg.Kafka.SnapshotTopic, proc, m)
}

// ProvideFilterEngine creates the per-cycle screening engine.
func ProvideFilterEngine(cfg *config.Config, tracker *pool.Tracker) *usecase.FilterEngine {
	return usecase.NewFilterEngine(usecase.FilterConfig{
		MinVolume24h: cfg.Filters.MinVolume24h,
		MinNATR:      cfg.Filters.MinNATR,
		MaxNATR:      cfg.Filters.MaxNATR,
		MinCandles:   cfg.Filters.MinCandles,
		MaxCandleAge: cfg.Filters.MaxCandleAge,
		RequireNATR:  cfg.Filters.RequireNATR,
	}, tracker)
}

// ProvideSignalGenerator creates the signal generator.
func ProvideSignalGenerator(
	cfg *config.Config,
	tracker *pool.Tracker,
	pub repository.SignalPublisher,
	m repository.Metrics,
) *usecase.SignalGenerator {
	return usecase.NewSignalGenerator(usecase.SignalConfig{
		ZScoreThreshold: cfg.Signals.ZScoreThreshold,
		Window:          cfg.Signals.Window,
		MinDelay:        cfg.Signals.MinDelay,
		ActiveWindow:    cfg.Signals.ActiveWindow,
		BufferSize:      cfg.Signals.BufferSize,
	}, tracker, pub, m)
}

// ProvideCycleRunner creates the cron-driven pool sweep.
func ProvideCycleRunner(
	cfg *config.Config,
	tracker *pool.Tracker,
	filters *usecase.FilterEngine,
	signals *usecase.SignalGenerator,
	store repository.CandleStore,
	cacheSvc pkgcache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.CycleRunner {
	return usecase.NewCycleRunner(usecase.CycleConfig{
		Schedule:     cfg.Pool.CycleCron,
		StaleAfter:   cfg.Pool.StaleAfter,
		WarningGrace: cfg.Pool.WarningGrace,
		CacheTTL:     cfg.Cache.TTL,
	}, tracker, filters, signals, store, cacheSvc, m, l)
}

// ProvideStatusProjector creates the on-demand status projection.
func ProvideStatusProjector(
	tracker *pool.Tracker,
	runner *usecase.CycleRunner,
	signals *usecase.SignalGenerator,
) *usecase.StatusProjector {
	return usecase.NewStatusProjector(tracker, runner, signals)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	tracker *pool.Tracker,
	collector *usecase.SnapshotCollector,
	runner *usecase.CycleRunner,
	signals *usecase.SignalGenerator,
	status *usecase.StatusProjector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSnapshotsHandler,
	store repository.CandleStore,
	cacheSvc pkgcache.Service,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, tracker, collector, runner, signals, status, consumer, kh, store, cacheSvc, chClient)
}
