package di

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"TradeCore/internal/domain/repository"
	domsvc "TradeCore/internal/domain/service"
	"TradeCore/internal/handler/api"
	mid "TradeCore/internal/middleware"
	internalrepo "TradeCore/internal/repository"
	icache "TradeCore/internal/service/cache"
	"TradeCore/internal/service/marketdata"
	"TradeCore/internal/services/execution"
	"TradeCore/internal/services/features"
	"TradeCore/internal/services/riskguard"
	"TradeCore/internal/services/router"
	"TradeCore/internal/usecase"
	pkgcache "TradeCore/pkg/cache"
	pkgch "TradeCore/pkg/clickhouse"
	"TradeCore/pkg/config"
	pkgkafka "TradeCore/pkg/kafka"
	applogger "TradeCore/pkg/logger"
	"TradeCore/pkg/metrics"
	"TradeCore/pkg/queue"
	"TradeCore/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideFeatureEngine creates the rolling feature state.
func ProvideFeatureEngine(cfg *config.Config) *features.Engine {
	fc := features.DefaultConfig()
	if cfg.Features.VolWindow > 0 {
		fc.VolWindow = cfg.Features.VolWindow
	}
	if cfg.Features.FlowWindow > 0 {
		fc.FlowWindow = cfg.Features.FlowWindow
	}
	if cfg.Features.ObsPerYear > 0 {
		fc.ObsPerYear = cfg.Features.ObsPerYear
	}
	if cfg.Features.RegimeDriftRatio > 0 {
		fc.RegimeDriftRatio = cfg.Features.RegimeDriftRatio
	}
	return features.NewEngine(fc)
}

// ProvideRouter creates the policy router from configured policies.
func ProvideRouter(cfg *config.Config) (*router.Router, error) {
	rc := router.DefaultConfig()
	if cfg.Router.LearningRate > 0 {
		rc.LearningRate = cfg.Router.LearningRate
	}
	if cfg.Router.BreakoutImbalanceLevel > 0 {
		rc.BreakoutImbalanceLevel = cfg.Router.BreakoutImbalanceLevel
	}
	ids := make([]string, 0, len(cfg.Router.Policies))
	for _, p := range cfg.Router.Policies {
		ids = append(ids, p.ID)
	}
	var rng *rand.Rand
	if cfg.Router.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Router.Seed))
	}
	rt, err := router.New(ids, rc, rng)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	return rt, nil
}

// ProvideImpactCalibrator creates the EWMA market-impact calibrator.
func ProvideImpactCalibrator(cfg *config.Config) *execution.ImpactCalibrator {
	return execution.NewImpactCalibrator(nil,
		cfg.Execution.Impact.Window,
		cfg.Execution.Impact.MinSamples,
		cfg.Execution.Impact.Rate,
	)
}

// ProvideOptimizer creates the execution optimizer.
func ProvideOptimizer(cfg *config.Config, impact *execution.ImpactCalibrator) (*execution.Optimizer, error) {
	opt, err := execution.New(execution.Config{
		Constraints:        cfg.Execution.Constraints,
		ImpactWeight:       cfg.Execution.ImpactWeight,
		DefaultCorrelation: cfg.Execution.DefaultCorrelation,
		MinOrderNotional:   cfg.Execution.MinOrderNotional,
		BaseDelayMs:        cfg.Execution.BaseDelayMs,
	}, impact)
	if err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	return opt, nil
}

// ProvideRiskGuard creates the pre-trade risk check client.
func ProvideRiskGuard(cfg *config.Config) domsvc.RiskGuard {
	return riskguard.NewHTTPRiskGuard(cfg)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
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

// ProvideDecisionLog creates the ClickHouse audit sink, or nil without it.
func ProvideDecisionLog(chClient *pkgch.Client) (repository.DecisionLog, error) {
	if chClient == nil {
		return nil, nil
	}
	dlog := internalrepo.NewClickHouseDecisionLog(chClient.DB())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dlog.Init(ctx); err != nil {
		return nil, fmt.Errorf("decision log schema: %w", err)
	}
	return dlog, nil
}

// ProvideAuditQuery creates the read side of the audit store.
func ProvideAuditQuery(chClient *pkgch.Client, l *applogger.Logger) repository.AuditQuery {
	if chClient == nil {
		return nil
	}
	q := internalrepo.NewCHAuditQuery(chClient)
	q.SetLogger(l)
	return q
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
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

// ProvideOrderPublisher creates the outbound orders publisher.
func ProvideOrderPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.OrderPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaOrderPublisher(producer, cfg.Kafka.OrdersTopic)
}

// ProvideKafkaConsumer creates the fills consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
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

// ProvideRedisCache creates the shared Redis client, or nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, port := splitAddr(cfg.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideSnapshotStore creates the posterior snapshot store.
func ProvideSnapshotStore(rc *pkgcache.RedisCache) repository.SnapshotStore {
	if rc == nil {
		return nil
	}
	return internalrepo.NewCacheSnapshotStore(rc)
}

// ProvideDispatchQueue creates the delayed-order queue consumer.
func ProvideDispatchQueue(
	cfg *config.Config,
	l *applogger.Logger,
	rc *pkgcache.RedisCache,
	pub repository.OrderPublisher,
	m repository.Metrics,
) *queue.RedisQueue {
	if !cfg.Dispatch.Enabled || rc == nil || pub == nil {
		return nil
	}
	job := usecase.NewOrderDispatchJob(pub, m)
	qc := &queue.QueueConfig{
		Workers:    cfg.Dispatch.Workers,
		QueueSize:  1000,
		RetryLimit: 3,
		RetryDelay: time.Second,
	}
	opts := []queue.RedisQueueOption{}
	if cfg.Dispatch.QueueName != "" {
		opts = append(opts, queue.WithKeyPrefix(cfg.Dispatch.QueueName))
	}
	return queue.NewRedisConsumer(l, qc, rc.Client(), []queue.Job{job}, opts...)
}

// ProvideOrderDispatcher creates the order pacing layer.
func ProvideOrderDispatcher(
	q *queue.RedisQueue,
	pub repository.OrderPublisher,
	m repository.Metrics,
) *usecase.OrderDispatcher {
	if pub == nil {
		return nil
	}
	return usecase.NewOrderDispatcher(q, pub, m)
}

// ProvideMarketStream creates the market data WebSocket stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	if !cfg.MarketData.Enabled {
		return nil
	}
	return marketdata.New(
		cfg.MarketData.APIKey,
		cfg.MarketData.WebSocketURL,
		cfg.MarketData.Symbols,
		cfg.MarketData.ReconnectDelay,
		cfg.MarketData.PingInterval,
	)
}

// ProvideTickProcessor creates the tick processor use case.
func ProvideTickProcessor(engine *features.Engine, m repository.Metrics) *usecase.TickProcessor {
	return usecase.NewTickProcessor(engine, m)
}

// ProvideTickCollector creates the tick collector use case.
func ProvideTickCollector(
	stream repository.MarketStream,
	proc *usecase.TickProcessor,
	m repository.Metrics,
) *usecase.TickCollector {
	if stream == nil {
		return nil
	}
	// Build middleware pipeline between WebSocket and the feature engine
	pipe := mid.NewRealtimePipeline(proc, m,
		mid.WithMaxRPS(200),
		mid.WithBufferSize(2000),
	)
	return usecase.NewTickCollector(stream, proc, m, pipe)
}

// ProvideDecisionPipeline assembles the full decision loop.
func ProvideDecisionPipeline(
	cfg *config.Config,
	rt *router.Router,
	opt *execution.Optimizer,
	engine *features.Engine,
	guard domsvc.RiskGuard,
	dlog repository.DecisionLog,
	disp *usecase.OrderDispatcher,
	snapshots repository.SnapshotStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.DecisionPipeline {
	return usecase.NewDecisionPipeline(
		rt, opt, engine, guard, dlog, disp, snapshots, m, l,
		cfg.Router.Policies, cfg.MarketData.Symbols,
	)
}

// ProvideFillsHandler registers the handler for the fills topic.
func ProvideFillsHandler(cfg *config.Config, pipeline *usecase.DecisionPipeline, m repository.Metrics) *usecase.KafkaFillsHandler {
	return usecase.NewKafkaFillsHandler(cfg.Kafka.FillsTopic, pipeline, m)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	pipeline *usecase.DecisionPipeline,
	collector *usecase.TickCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaFillsHandler,
	chClient *pkgch.Client,
	auditQuery repository.AuditQuery,
	dispatchQueue *queue.RedisQueue,
	l *applogger.Logger,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, pipeline, collector, consumer, kh, chClient)

	h := api.NewDecisionsEchoHandler(l, pipeline)
	if auditQuery != nil {
		ah := api.NewAuditHandler(auditQuery)
		ah.SetLogger(l)
		if cfg.Redis.Enabled {
			ah.SetCache(icache.NewRedisCache(icache.RedisConfig{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			}))
		} else {
			ah.SetCache(icache.NewTTLCache())
		}
		h.SetAudit(ah)
	}
	app.SetHTTPHandler(h)

	if dispatchQueue != nil {
		app.SetDispatchQueue(dispatchQueue)
	}
	return app
}

func splitAddr(addr string) (string, int) {
	host, portStr, ok := strings.Cut(addr, ":")
	if !ok {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
