package di

import (
    "context"
    "fmt"
    "time"

    "FlipSight/internal/domain/models"
    "FlipSight/internal/domain/repository"
    "FlipSight/internal/handler/api"
    mid "FlipSight/internal/middleware"
    internalrepo "FlipSight/internal/repository"
    "FlipSight/internal/service/wiki"
    "FlipSight/internal/usecase"
    pkgcache "FlipSight/pkg/cache"
    pkgch "FlipSight/pkg/clickhouse"
    "FlipSight/pkg/config"
    xhttp "FlipSight/pkg/http"
    pkgkafka "FlipSight/pkg/kafka"
    "FlipSight/pkg/logger"
    "FlipSight/pkg/metrics"
    "FlipSight/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache selects the KV store backing the ledger and limit tracker.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	switch cfg.Cache.Backend {
	case "", "memory":
		return pkgcache.NewMemoryCache(), nil
	case "redis", "layered":
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisHost(cfg.Cache.Redis.Host),
			pkgcache.WithRedisPort(cfg.Cache.Redis.Port),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
			pkgcache.WithRedisPrefix(cfg.Cache.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Backend == "layered" {
			return pkgcache.NewLayeredCache(rc), nil
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend '%s'", cfg.Cache.Backend)
	}
}

// ProvideQuoteFeed creates the upstream price feed client.
func ProvideQuoteFeed(cfg *config.Config, log *logger.Logger) repository.QuoteFeed {
	var opts []xhttp.ClientOption
	if cfg.Feed.Timeout > 0 {
		opts = append(opts, xhttp.WithTimeout(cfg.Feed.Timeout))
	}
	return wiki.New(cfg.Feed.BaseURL, cfg.Feed.UserAgent, xhttp.NewClient(opts...), log)
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
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

// ProvideHistoryStore creates the ClickHouse tick history repository and
// ensures its schema exists.
func ProvideHistoryStore(chClient *pkgch.Client, cfg *config.Config, log *logger.Logger) (repository.HistoryStore, error) {
	table := cfg.Backend.Table
	if table == "" {
		table = cfg.ClickHouse.Database + ".quote_ticks"
	}
	store := internalrepo.NewClickHouseHistory(chClient, table)
	if ch, ok := store.(*internalrepo.ClickHouseHistory); ok {
		ch.SetLogger(log)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("history schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
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

// ProvideTickPublisher creates the Kafka tick publisher repository.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.TickPublisher {
	return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML. The
// clickhouse backend writes history in-process and runs no consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
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

// ProvideKafkaTicksHandler registers the handler for the ticks topic.
func ProvideKafkaTicksHandler(store repository.HistoryStore, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaTicksHandler {
	return usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideTickProcessor creates the backend-routing tick processor.
func ProvideTickProcessor(
	pub repository.TickPublisher,
	store repository.HistoryStore,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(pub, store, metrics, cfg.Backend.Type)
}

// ProvideMarket creates the in-memory market snapshot state.
func ProvideMarket(log *logger.Logger) *usecase.Market {
	return usecase.NewMarket(log)
}

// ProvideRefresher creates the scheduled feed refresher with its tick
// pipeline between the feed and the history backend.
func ProvideRefresher(
	feed repository.QuoteFeed,
	market *usecase.Market,
	proc *usecase.TickProcessor,
	metrics repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.Refresher {
	pipe := mid.NewTickPipeline(proc, metrics)
	return usecase.NewRefresher(feed, market, pipe, metrics, log, cfg.Flipper.Budget, usecase.RefreshSchedule{
		Quotes:  cfg.Flipper.Refresh.Quotes,
		Volumes: cfg.Flipper.Refresh.Volumes,
		Catalog: cfg.Flipper.Refresh.Catalog,
	})
}

// ProvideHistoryUseCase creates the daily bars/volatility use case.
func ProvideHistoryUseCase(store repository.HistoryStore) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(store)
}

// ProvideSuggestUseCase creates the suggestion scorer.
func ProvideSuggestUseCase(
	market *usecase.Market,
	history *usecase.HistoryUseCase,
	metrics repository.Metrics,
	log *logger.Logger,
) *usecase.SuggestUseCase {
	return usecase.NewSuggestUseCase(market, history, metrics, log)
}

// ProvideLedger creates the flip ledger and loads persisted state.
func ProvideLedger(store pkgcache.Service, log *logger.Logger, metrics repository.Metrics) (*usecase.Ledger, error) {
	ledger := usecase.NewLedger(store, log, metrics)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ledger.Load(ctx); err != nil {
		return nil, fmt.Errorf("ledger load: %w", err)
	}
	return ledger, nil
}

// ProvideBuyLimitTracker creates the rolling buy limit tracker.
func ProvideBuyLimitTracker(
	market *usecase.Market,
	store pkgcache.Service,
	log *logger.Logger,
	metrics repository.Metrics,
) (*usecase.BuyLimitTracker, error) {
	tracker := usecase.NewBuyLimitTracker(market, store, log, metrics)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracker.Load(ctx); err != nil {
		return nil, fmt.Errorf("limit tracker load: %w", err)
	}
	return tracker, nil
}

// ProvideStreamHub creates the websocket broadcast hub.
func ProvideStreamHub(log *logger.Logger) *api.StreamHub {
	return api.NewStreamHub(log)
}

// ProvideHTTPHandler composes the route handlers into one registrar.
func ProvideHTTPHandler(
	log *logger.Logger,
	market *usecase.Market,
	suggest *usecase.SuggestUseCase,
	history *usecase.HistoryUseCase,
	refresher *usecase.Refresher,
	ledger *usecase.Ledger,
	limits *usecase.BuyLimitTracker,
	hub *api.StreamHub,
) xhttp.Handler {
	return api.NewRouter(
		api.NewMarketHandler(log, market, suggest, history, refresher),
		api.NewLedgerHandler(log, ledger, limits),
		hub,
	)
}

// ProvideApp creates the application server and hooks up the cross-module
// subscriptions.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	refresher *usecase.Refresher,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaTicksHandler,
	chClient *pkgch.Client,
	handler xhttp.Handler,
	hub *api.StreamHub,
	ledger *usecase.Ledger,
	limits *usecase.BuyLimitTracker,
	proc *usecase.TickProcessor,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}

	// Push refresh summaries to websocket subscribers.
	refresher.Subscribe(func(s usecase.RefreshSummary) {
		hub.Broadcast(s)
	})

	// Replay ledger mutations into the rolling buy limit windows.
	ledger.Subscribe(func(flips []*models.FlipRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		limits.SyncFromLedger(ctx, flips)
	})

	app := server.New(cfg, log, refresher, consumer, kh, chClient, handler, hub)
	app.TickProc = proc
	return app
}
