package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TradeCore/internal/domain/models"
	"TradeCore/internal/domain/repository"
	pkgkafka "TradeCore/pkg/kafka"
)

// Audit tables. MergeTree ordered by time; the log is append-only.
var decisionLogSchema = []string{
	`CREATE TABLE IF NOT EXISTS tradecore_decisions (
        ts DateTime64(3),
        policy_id String,
        score Float64,
        exploration_bonus Float64,
        confidence Float64,
        regime String,
        spread_bps Float64,
        book_imbalance Float64,
        trade_imbalance Float64
    ) ENGINE = MergeTree() ORDER BY ts`,
	`CREATE TABLE IF NOT EXISTS tradecore_executions (
        ts DateTime64(3),
        policy_id String,
        orders UInt32,
        total_cost Float64,
        expected_slippage Float64,
        risk_score Float64,
        method String,
        reasoning String
    ) ENGINE = MergeTree() ORDER BY ts`,
	`CREATE TABLE IF NOT EXISTS tradecore_fills (
        ts DateTime64(3),
        symbol String,
        policy_id String,
        side String,
        size Float64,
        price Float64,
        slippage_bps Float64,
        pnl Float64
    ) ENGINE = MergeTree() ORDER BY ts`,
}

// ClickHouseDecisionLog implements DecisionLog for ClickHouse.
type ClickHouseDecisionLog struct {
	db *sql.DB
}

// NewClickHouseDecisionLog creates the ClickHouse-backed audit log.
func NewClickHouseDecisionLog(db *sql.DB) repository.DecisionLog {
	return &ClickHouseDecisionLog{db: db}
}

func (s *ClickHouseDecisionLog) Init(ctx context.Context) error {
	for _, stmt := range decisionLogSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init decision log schema: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseDecisionLog) LogDecision(ctx context.Context, d *models.Decision) error {
	const q = `INSERT INTO tradecore_decisions
        (ts, policy_id, score, exploration_bonus, confidence, regime, spread_bps, book_imbalance, trade_imbalance)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		d.Choice.Timestamp,
		d.Choice.PolicyID,
		d.Choice.Score,
		d.Choice.ExplorationBonus,
		d.Choice.Confidence,
		d.Context.Regime,
		d.Context.SpreadBps,
		d.Context.BookImbalance,
		d.Context.TradeImbalance,
	)
	return err
}

func (s *ClickHouseDecisionLog) LogExecution(ctx context.Context, policyID string, res *models.OptimalExecution) error {
	const q = `INSERT INTO tradecore_executions
        (ts, policy_id, orders, total_cost, expected_slippage, risk_score, method, reasoning)
        VALUES (now64(3), ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		policyID,
		uint32(len(res.Orders)),
		res.TotalCost,
		res.ExpectedSlippage,
		res.RiskScore,
		res.ExecutionMethod,
		res.Reasoning,
	)
	return err
}

func (s *ClickHouseDecisionLog) LogFill(ctx context.Context, f *models.Fill) error {
	const q = `INSERT INTO tradecore_fills
        (ts, symbol, policy_id, side, size, price, slippage_bps, pnl)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(f.Timestamp, 0),
		f.Symbol,
		f.PolicyID,
		f.Side,
		f.Size,
		f.Price,
		f.SlippageBps,
		f.PnL,
	)
	return err
}

func (s *ClickHouseDecisionLog) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseDecisionLog) Close() error {
	return nil // Managed by pkg
}

// KafkaOrderPublisher implements OrderPublisher for Kafka.
type KafkaOrderPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaOrderPublisher creates the Kafka order publisher.
func NewKafkaOrderPublisher(producer *pkgkafka.Producer, topic string) repository.OrderPublisher {
	return &KafkaOrderPublisher{producer: producer, topic: topic}
}

func (p *KafkaOrderPublisher) Publish(ctx context.Context, o *models.ExecutionOrder) error {
	return p.producer.Publish(ctx, p.topic, []byte(o.Symbol), o)
}

func (p *KafkaOrderPublisher) PublishBatch(ctx context.Context, orders []models.ExecutionOrder) error {
	if len(orders) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(orders))
	for i := range orders {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(orders[i].Symbol),
			Value: orders[i],
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaOrderPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
