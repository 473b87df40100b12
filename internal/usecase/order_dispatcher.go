package usecase

import (
	"context"
	"fmt"
	"time"

	"TradeCore/internal/domain/models"
	drepo "TradeCore/internal/domain/repository"
	"TradeCore/pkg/queue"
)

// OrderDispatchType is the queue message type carrying one execution order.
const OrderDispatchType = "order.dispatch"

// OrderDispatcher paces order release. With a queue configured, each order
// is scheduled ExecDelayMs into the future and a worker publishes it when
// due; without one, the whole batch goes straight to the publisher.
type OrderDispatcher struct {
	q       *queue.RedisQueue
	pub     drepo.OrderPublisher
	metrics drepo.Metrics
}

func NewOrderDispatcher(q *queue.RedisQueue, pub drepo.OrderPublisher, metrics drepo.Metrics) *OrderDispatcher {
	return &OrderDispatcher{q: q, pub: pub, metrics: metrics}
}

// Dispatch releases the orders of one execution plan.
func (d *OrderDispatcher) Dispatch(ctx context.Context, orders []models.ExecutionOrder) error {
	if len(orders) == 0 {
		return nil
	}
	if d.pub == nil {
		return fmt.Errorf("no order publisher configured")
	}

	if d.q == nil {
		if err := d.pub.PublishBatch(ctx, orders); err != nil {
			d.metrics.RecordError("dispatch_publish")
			return fmt.Errorf("publish orders: %w", err)
		}
		for i := range orders {
			d.metrics.RecordOrder(orders[i].Symbol, orders[i].OrderType)
		}
		return nil
	}

	for i := range orders {
		delay := time.Duration(orders[i].ExecDelayMs) * time.Millisecond
		if err := d.q.EnqueueDelayed(ctx, OrderDispatchType, orders[i], delay); err != nil {
			d.metrics.RecordError("dispatch_enqueue")
			return fmt.Errorf("enqueue order %s: %w", orders[i].Symbol, err)
		}
	}
	return nil
}

// OrderDispatchJob consumes scheduled orders and hands them to the
// publisher.
type OrderDispatchJob struct {
	pub     drepo.OrderPublisher
	metrics drepo.Metrics
}

func NewOrderDispatchJob(pub drepo.OrderPublisher, metrics drepo.Metrics) *OrderDispatchJob {
	return &OrderDispatchJob{pub: pub, metrics: metrics}
}

func (j *OrderDispatchJob) Name() string { return "order-dispatch" }
func (j *OrderDispatchJob) Type() string { return OrderDispatchType }

func (j *OrderDispatchJob) Handle(ctx context.Context, payload interface{}) error {
	o, err := queue.ParsePayload[models.ExecutionOrder](payload)
	if err != nil {
		j.metrics.RecordError("dispatch_payload")
		return fmt.Errorf("parse order payload: %w", err)
	}
	if err := j.pub.Publish(ctx, o); err != nil {
		j.metrics.RecordError("dispatch_publish")
		return fmt.Errorf("publish order %s: %w", o.Symbol, err)
	}
	j.metrics.RecordOrder(o.Symbol, o.OrderType)
	return nil
}

var _ queue.Job = (*OrderDispatchJob)(nil)
