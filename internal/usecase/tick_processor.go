package usecase

import (
	"context"
	"fmt"
	"time"

	"TradeCore/internal/domain/models"
	drepo "TradeCore/internal/domain/repository"
	"TradeCore/internal/services/features"
)

// TickProcessor folds validated ticks into the rolling feature state.
type TickProcessor struct {
	engine  *features.Engine
	metrics drepo.Metrics
}

// NewTickProcessor creates a new TickProcessor instance.
func NewTickProcessor(engine *features.Engine, metrics drepo.Metrics) *TickProcessor {
	return &TickProcessor{engine: engine, metrics: metrics}
}

// Process folds a single tick into the feature engine.
func (p *TickProcessor) Process(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}

	start := time.Now()
	p.engine.OnTick(*t)
	p.metrics.RecordLatency("tick_process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch folds multiple ticks.
func (p *TickProcessor) ProcessBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	start := time.Now()
	for _, t := range ticks {
		if t == nil {
			continue
		}
		p.engine.OnTick(*t)
	}
	p.metrics.RecordLatency("tick_process_batch", time.Since(start).Seconds())
	return nil
}
