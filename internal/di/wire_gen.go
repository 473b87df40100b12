// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"TradeCore/pkg/config"
	"TradeCore/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	router, err := ProvideRouter(cfg)
	if err != nil {
		return nil, err
	}
	impactCalibrator := ProvideImpactCalibrator(cfg)
	optimizer, err := ProvideOptimizer(cfg, impactCalibrator)
	if err != nil {
		return nil, err
	}
	engine := ProvideFeatureEngine(cfg)
	riskGuard := ProvideRiskGuard(cfg)
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	decisionLog, err := ProvideDecisionLog(client)
	if err != nil {
		return nil, err
	}
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	redisCache, err := ProvideRedisCache(cfg)
	if err != nil {
		return nil, err
	}
	producer, err := ProvideKafkaProducer(cfg)
	if err != nil {
		return nil, err
	}
	orderPublisher := ProvideOrderPublisher(producer, cfg)
	metrics := ProvideMetrics()
	redisQueue := ProvideDispatchQueue(cfg, logger, redisCache, orderPublisher, metrics)
	orderDispatcher := ProvideOrderDispatcher(redisQueue, orderPublisher, metrics)
	snapshotStore := ProvideSnapshotStore(redisCache)
	decisionPipeline := ProvideDecisionPipeline(cfg, router, optimizer, engine, riskGuard, decisionLog, orderDispatcher, snapshotStore, metrics, logger)
	marketStream := ProvideMarketStream(cfg)
	tickProcessor := ProvideTickProcessor(engine, metrics)
	tickCollector := ProvideTickCollector(marketStream, tickProcessor, metrics)
	consumer, err := ProvideKafkaConsumer(cfg)
	if err != nil {
		return nil, err
	}
	kafkaFillsHandler := ProvideFillsHandler(cfg, decisionPipeline, metrics)
	auditQuery := ProvideAuditQuery(client, logger)
	app := ProvideApp(cfg, decisionPipeline, tickCollector, consumer, kafkaFillsHandler, client, auditQuery, redisQueue, logger)
	return app, nil
}
