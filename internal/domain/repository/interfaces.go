package repository

import (
	"context"

	"TradeCore/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type OrderPublisher interface {
	Publish(ctx context.Context, o *models.ExecutionOrder) error
	PublishBatch(ctx context.Context, orders []models.ExecutionOrder) error
	Close() error
}

type DecisionLog interface {
	Init(ctx context.Context) error // ensure tables, health checks
	LogDecision(ctx context.Context, d *models.Decision) error
	LogExecution(ctx context.Context, policyID string, res *models.OptimalExecution) error
	LogFill(ctx context.Context, f *models.Fill) error
	Health(ctx context.Context) error // ping
	Close() error
}

// SnapshotStore persists router posteriors across restarts.
type SnapshotStore interface {
	SavePosteriors(ctx context.Context, ps []models.PolicyPosterior) error
	LoadPosteriors(ctx context.Context) ([]models.PolicyPosterior, error)
}

type Metrics interface {
	RecordDecision(policyID string)
	RecordHold(kind string)
	RecordOrder(symbol, orderType string)
	RecordReward(policyID string, reward float64)
	RecordSlippage(symbol string, bps float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
