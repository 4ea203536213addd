package di

import (
	"context"
	"fmt"
	"time"

	"RegimeGuard/internal/domain/models"
	"RegimeGuard/internal/domain/repository"
	domsvc "RegimeGuard/internal/domain/service"
	"RegimeGuard/internal/handler/api"
	internalrepo "RegimeGuard/internal/repository"
	"RegimeGuard/internal/service/finnhub"
	"RegimeGuard/internal/service/marketdata"
	"RegimeGuard/internal/service/ratelimit"
	"RegimeGuard/internal/services/advisor"
	"RegimeGuard/internal/services/indicators"
	"RegimeGuard/internal/services/regime"
	"RegimeGuard/internal/services/veto"
	"RegimeGuard/internal/usecase"
	"RegimeGuard/pkg/cache"
	pkgch "RegimeGuard/pkg/clickhouse"
	"RegimeGuard/pkg/config"
	pkgkafka "RegimeGuard/pkg/kafka"
	applogger "RegimeGuard/pkg/logger"
	"RegimeGuard/pkg/metrics"
	"RegimeGuard/pkg/server"
)

const serviceName = "regimeguard"

// ProvideKafkaProducer creates the shared producer, or nil when kafka is off.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
		pkgkafka.WithBatch(cfg.Kafka.BatchSize, cfg.Kafka.BatchTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.AutoCreate),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the app logger. With the collector enabled, warn and
// error entries are aggregated and shipped to the log topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			FlushInterval:  cfg.Log.Collector.FlushInterval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Sink:           internalrepo.NewKafkaLogSink(producer, cfg.Kafka.LogTopic, serviceName),
		})
	}
	return l, l.RemoveCollector, nil
}

func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideCache returns the cache backend selected by cache.backend.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Store, func(), error) {
	if cfg.Cache.Backend == "memory" {
		mc := cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.Memory.MaxSize),
			cache.WithMemoryCleanup(cfg.Cache.Memory.CleanupInterval),
		)
		l.Info("using in-process cache", applogger.Int("max_size", cfg.Cache.Memory.MaxSize))
		return mc, func() { _ = mc.Close() }, nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.Timeout),
		cache.WithRedisPrefix(cfg.Cache.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis cache connected",
		applogger.String("addr", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)))
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideUpstreamLimiter is the one sliding window shared by every upstream call.
func ProvideUpstreamLimiter(cfg *config.Config, l *applogger.Logger) *ratelimit.SlidingWindow {
	return ratelimit.NewSlidingWindow(cfg.Finnhub.RateLimitPerMinute,
		ratelimit.WithWaitHook(func(d time.Duration) {
			l.Info("rate limit reached, waiting", applogger.Duration("wait_ms", d))
		}),
	)
}

func ProvideMarketDataProvider(cfg *config.Config) repository.MarketDataProvider {
	return finnhub.New(cfg.Finnhub.APIKey, cfg.Finnhub.Timeout, finnhub.WithBaseURL(cfg.Finnhub.BaseURL))
}

func ProvideMarketDataClient(
	cfg *config.Config,
	provider repository.MarketDataProvider,
	store cache.Store,
	limiter *ratelimit.SlidingWindow,
	m repository.Metrics,
	l *applogger.Logger,
) *marketdata.Client {
	return marketdata.NewClient(provider, store, limiter,
		marketdata.WithTTLs(marketdata.TTLConfig{
			Quote:           cfg.Cache.TTL.Quote,
			News:            cfg.Cache.TTL.News,
			Candles:         cfg.Cache.TTL.Candles,
			Financials:      cfg.Cache.TTL.Financials,
			Recommendations: cfg.Cache.TTL.Recommendations,
			Insiders:        cfg.Cache.TTL.Insiders,
			Earnings:        cfg.Cache.TTL.Earnings,
			Profile:         cfg.Cache.TTL.Profile,
			Peers:           cfg.Cache.TTL.Peers,
		}),
		marketdata.WithRetryPolicy(marketdata.RetryPolicy{
			MaxAttempts:       cfg.Retry.MaxAttempts,
			RateLimitBackoff:  cfg.Retry.RateLimitBackoff,
			ServerBackoffBase: cfg.Retry.ServerBackoffBase,
		}),
		marketdata.WithCacheErrorPolicy(marketdata.CacheErrorPolicy(cfg.Cache.OnError)),
		marketdata.WithMetrics(m),
		marketdata.WithLogger(l),
	)
}

// ProvideEvaluationStore opens the history backend and creates its schema.
func ProvideEvaluationStore(cfg *config.Config, l *applogger.Logger) (repository.EvaluationStore, func(), error) {
	var (
		store repository.EvaluationStore
		err   error
	)
	switch cfg.History.Backend {
	case "sqlite":
		store, err = internalrepo.NewSQLiteEvaluationStore(cfg.History.SQLitePath, l)
	case "clickhouse":
		store, err = newClickHouseStore(cfg, l)
	default:
		return internalrepo.NoopEvaluationStore{}, func() {}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("%s history schema: %w", cfg.History.Backend, err)
	}
	l.Info("history store ready", applogger.String("backend", cfg.History.Backend))
	return store, func() { _ = store.Close() }, nil
}

func newClickHouseStore(cfg *config.Config, l *applogger.Logger) (*internalrepo.CHEvaluationStore, error) {
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	store, err := internalrepo.NewCHEvaluationStore(client, cfg.History.Table, cfg.History.Retention, l)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

// ProvideVerdictPublisher publishes to kafka when a producer exists.
func ProvideVerdictPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.VerdictPublisher {
	if producer == nil {
		return internalrepo.NoopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

func ProvideNarrator(cfg *config.Config, l *applogger.Logger) domsvc.Narrator {
	if !cfg.Advisor.Enabled {
		return advisor.Disabled{}
	}
	return advisor.New(advisor.Config{
		BaseURL:         cfg.Advisor.BaseURL,
		APIKey:          cfg.Advisor.APIKey,
		Model:           cfg.Advisor.Model,
		MaxTokens:       cfg.Advisor.MaxTokens,
		Timeout:         cfg.Advisor.Timeout,
		BreakerFailures: cfg.Advisor.BreakerFailures,
		BreakerCooldown: cfg.Advisor.BreakerCooldown,
	}, l)
}

func ProvideEvaluator(
	cfg *config.Config,
	data *marketdata.Client,
	narrator domsvc.Narrator,
	store repository.EvaluationStore,
	pub repository.VerdictPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Evaluator {
	bench, _ := models.NormalizeSymbol(cfg.Evaluation.Benchmark)
	return usecase.NewEvaluator(
		data,
		indicators.NewEngine(indicators.WithVolatilityWindow(cfg.Evaluation.VolatilityWindow)),
		regime.NewClassifier(),
		veto.NewEngine(l),
		usecase.WithNarrator(narrator),
		usecase.WithStore(store),
		usecase.WithPublisher(pub),
		usecase.WithEvaluatorMetrics(m),
		usecase.WithEvaluatorLogger(l),
		usecase.WithEvaluatorConfig(usecase.EvaluatorConfig{
			LookbackDays: cfg.Evaluation.LookbackDays,
			Benchmark:    bench,
			Workers:      cfg.Evaluation.Workers,
			Timeout:      cfg.Evaluation.Timeout,
		}),
	)
}

// ProvideClientLimiter throttles API callers per IP.
func ProvideClientLimiter(cfg *config.Config) *ratelimit.KeyedLimiter {
	rl := cfg.Server.RateLimit
	return ratelimit.NewKeyed(rl.PerSecond, rl.Burst, rl.IdleTTL)
}

func ProvideHandler(
	l *applogger.Logger,
	eval *usecase.Evaluator,
	data *marketdata.Client,
	store cache.Store,
	history repository.EvaluationStore,
	narrator domsvc.Narrator,
	limiter *ratelimit.KeyedLimiter,
) *api.Handler {
	return api.NewHandler(l, eval, data, store,
		api.WithHistoryStore(history),
		api.WithNarrator(narrator),
		api.WithLimiter(limiter),
	)
}

func ProvideApp(cfg *config.Config, l *applogger.Logger, h *api.Handler, eval *usecase.Evaluator, data *marketdata.Client) *server.App {
	return server.New(cfg, l, h, eval, data)
}
