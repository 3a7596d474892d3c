package di

import (
	"context"
	"fmt"
	"time"

	"FinCorr/internal/domain/repository"
	"FinCorr/internal/handler/api"
	internalrepo "FinCorr/internal/repository"
	"FinCorr/internal/service/ratelimit"
	"FinCorr/internal/service/session"
	"FinCorr/internal/services/correlation"
	"FinCorr/internal/usecase"
	"FinCorr/pkg/cache"
	pkgch "FinCorr/pkg/clickhouse"
	"FinCorr/pkg/config"
	xhttp "FinCorr/pkg/http"
	pkgkafka "FinCorr/pkg/kafka"
	applogger "FinCorr/pkg/logger"
	"FinCorr/pkg/metrics"
	"FinCorr/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", "fincorr"), applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideCacheBackend selects the session cache backend.
func ProvideCacheBackend(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	mem := func() *cache.MemoryCache {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
			cache.WithMemoryCleanup(cfg.Cache.MemoryCleanup),
			cache.WithMemoryDefaultTTL(cfg.Cache.SessionTTL),
		)
	}
	redis := func() (*cache.RedisCache, error) {
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
			cache.WithRedisPool(cfg.Cache.Redis.PoolSize, 2, 5*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return rc, nil
	}

	var backend cache.Service
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rc, err := redis()
		if err != nil {
			return nil, nil, err
		}
		backend = rc
	case config.CacheLayered:
		rc, err := redis()
		if err != nil {
			return nil, nil, err
		}
		backend = cache.NewLayeredCache(rc,
			cache.WithLayeredMemorySize(cfg.Cache.L1MaxSize),
			cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
		)
	default:
		backend = mem()
	}
	l.Info("session cache ready", applogger.String("backend", cfg.Cache.Backend), applogger.Duration("ttl", cfg.Cache.SessionTTL))

	cleanup := func() {
		if err := backend.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}
	return backend, cleanup, nil
}

// ProvideAnalysisStore wraps the cache backend with per-session locking.
func ProvideAnalysisStore(backend cache.Service, cfg *config.Config, l *applogger.Logger) repository.AnalysisStore {
	return session.NewCache(backend, session.WithTTL(cfg.Cache.SessionTTL), session.WithLogger(l))
}

// ProvideClickHouseClient creates a ClickHouse client and, when configured,
// initializes the closes table.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if !cfg.Prices.InitSchema {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ClosesSchema(cfg.Prices.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePriceStore selects the price history backend.
func ProvidePriceStore(cfg *config.Config, l *applogger.Logger) (repository.PriceSeriesStore, func(), error) {
	if cfg.Prices.Backend == config.PricesClickHouse {
		client, err := ProvideClickHouseClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		store := internalrepo.NewCHPriceStore(client, cfg.Prices.Table, cfg.Prices.MinObservations)
		store.SetLogger(l)
		l.Info("clickhouse price store ready",
			applogger.String("host", cfg.ClickHouse.Host),
			applogger.String("table", cfg.Prices.Table),
		)
		cleanup := func() {
			if err := client.Close(); err != nil {
				l.Warn("clickhouse close error", applogger.Error(err))
			}
		}
		return store, cleanup, nil
	}

	store := internalrepo.NewMemoryPriceStore(cfg.Prices.MinObservations)
	if cfg.Prices.Fixture != "" {
		if err := store.LoadFixture(cfg.Prices.Fixture); err != nil {
			return nil, nil, err
		}
		l.Info("price fixture loaded", applogger.String("path", cfg.Prices.Fixture))
	}
	return store, func() {}, nil
}

// ProvidePublisher returns a Kafka publisher, or a no-op one when Kafka is off.
func ProvidePublisher(cfg *config.Config, l *applogger.Logger) (repository.AnalysisPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.AutoCreateTopic),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaAnalysisPublisher(producer, cfg.Kafka.Topic)
	l.Info("kafka publisher ready", applogger.Strings("brokers", cfg.Kafka.Brokers), applogger.String("topic", cfg.Kafka.Topic))

	cleanup := func() {
		if err := pub.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return pub, cleanup, nil
}

// ProvideEngine creates the correlation engine.
func ProvideEngine(cfg *config.Config) *correlation.Engine {
	return correlation.NewEngine(correlation.WithWorkers(cfg.Analysis.Workers))
}

// ProvideCorrelationUseCase creates the correlation use case.
func ProvideCorrelationUseCase(
	prices repository.PriceSeriesStore,
	store repository.AnalysisStore,
	pub repository.AnalysisPublisher,
	m repository.Metrics,
	engine *correlation.Engine,
	l *applogger.Logger,
) *usecase.CorrelationUseCase {
	uc := usecase.NewCorrelationUseCase(prices, store, pub, m, engine)
	uc.SetLogger(l)
	return uc
}

// ProvideWeightsUseCase creates the factor weights use case.
func ProvideWeightsUseCase(l *applogger.Logger) *usecase.WeightsUseCase {
	uc := usecase.NewWeightsUseCase()
	uc.SetLogger(l)
	return uc
}

// ProvideLimiter creates the write-path rate limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(
	cfg *config.Config,
	l *applogger.Logger,
	uc *usecase.CorrelationUseCase,
	wuc *usecase.WeightsUseCase,
	limiter *ratelimit.Limiter,
) xhttp.Handler {
	return api.NewCorrelationEchoHandler(l, uc, wuc, limiter, api.Config{
		DefaultThreshold: cfg.Analysis.DefaultThreshold,
		RateCapacity:     cfg.Server.RateLimit.Capacity,
		RateRefillPerSec: cfg.Server.RateLimit.RefillPerSec,
	})
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h xhttp.Handler) *xhttp.Server {
	return xhttp.NewServer(l, h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, cfg.Server.AllowOrigins...),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
	)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, limiter *ratelimit.Limiter) *server.App {
	return server.New(cfg, l, srv, limiter)
}
