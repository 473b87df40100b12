package usecase

import (
	"context"
	"encoding/json"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	pkgkafka "TradeCore/pkg/kafka"
)

// KafkaFillsHandler consumes fill reports from the exchange gateway and
// feeds them into the decision pipeline.
type KafkaFillsHandler struct {
	topic    string
	pipeline *DecisionPipeline
	metrics  domrepo.Metrics
}

func NewKafkaFillsHandler(topic string, pipeline *DecisionPipeline, metrics domrepo.Metrics) *KafkaFillsHandler {
	return &KafkaFillsHandler{topic: topic, pipeline: pipeline, metrics: metrics}
}

func (h *KafkaFillsHandler) Topic() string { return h.topic }

// incoming message schema matches models.Fill
func (h *KafkaFillsHandler) Handle(ctx context.Context, b []byte) error {
	var f models.Fill
	if err := json.Unmarshal(b, &f); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if f.Timestamp > 1e11 { // ms
		f.Timestamp = f.Timestamp / 1000
	}
	// E2E latency from fill time to now (approx)
	h.metrics.RecordLatency("fill_e2e_seconds", time.Since(time.Unix(f.Timestamp, 0)).Seconds())

	start := time.Now()
	err := h.pipeline.HandleFill(ctx, &f)
	h.metrics.RecordLatency("fill_process_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_fill")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaFillsHandler)(nil)
