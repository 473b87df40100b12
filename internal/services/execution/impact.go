package execution

import (
	"sync"

	"TradeCore/internal/domain/models"
)

// Default impact coefficients (basis points) for symbols that have never
// been calibrated.
const (
	defaultLinearImpact    = 0.5
	defaultSqrtImpact      = 1.0
	defaultTemporaryImpact = 2.0
	defaultPermanentImpact = 0.2
)

// ImpactCalibrator owns the per-symbol impact models and the realized
// slippage feedback loop. TemporaryImpact is nudged toward the rolling
// average of observed slippage once enough samples exist; the other
// coefficients stay fixed for the process lifetime.
type ImpactCalibrator struct {
	mu         sync.Mutex
	models     map[string]*models.MarketImpactModel
	history    map[string][]float64
	window     int
	minSamples int
	rate       float64
}

// NewImpactCalibrator creates a calibrator. seed provides optional initial
// coefficients per symbol (from config); missing symbols get defaults on
// first use.
func NewImpactCalibrator(seed map[string]models.MarketImpactModel, window, minSamples int, rate float64) *ImpactCalibrator {
	if window <= 0 {
		window = 100
	}
	if minSamples <= 0 {
		minSamples = 10
	}
	if rate <= 0 || rate > 1 {
		rate = 0.1
	}
	c := &ImpactCalibrator{
		models:     make(map[string]*models.MarketImpactModel),
		history:    make(map[string][]float64),
		window:     window,
		minSamples: minSamples,
		rate:       rate,
	}
	for sym, m := range seed {
		cp := m
		cp.Symbol = sym
		c.models[sym] = &cp
	}
	return c
}

// Model returns a copy of the symbol's impact model, creating the default
// model on first reference.
func (c *ImpactCalibrator) Model(symbol string) models.MarketImpactModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.modelLocked(symbol)
}

// Observe records one realized slippage sample and recalibrates
// TemporaryImpact via EWMA toward the rolling window average. A no-op until
// minSamples observations exist for the symbol.
func (c *ImpactCalibrator) Observe(symbol string, size, realizedSlippageBps float64) models.MarketImpactModel {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := append(c.history[symbol], realizedSlippageBps)
	if len(h) > c.window {
		h = h[len(h)-c.window:]
	}
	c.history[symbol] = h

	m := c.modelLocked(symbol)
	if len(h) >= c.minSamples {
		var sum float64
		for _, s := range h {
			sum += s
		}
		avg := sum / float64(len(h))
		m.TemporaryImpact += c.rate * (avg - m.TemporaryImpact)
	}
	return *m
}

// SampleCount returns how many slippage observations are buffered for the
// symbol.
func (c *ImpactCalibrator) SampleCount(symbol string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history[symbol])
}

func (c *ImpactCalibrator) modelLocked(symbol string) *models.MarketImpactModel {
	m, ok := c.models[symbol]
	if !ok {
		m = &models.MarketImpactModel{
			Symbol:          symbol,
			LinearImpact:    defaultLinearImpact,
			SqrtImpact:      defaultSqrtImpact,
			TemporaryImpact: defaultTemporaryImpact,
			PermanentImpact: defaultPermanentImpact,
		}
		c.models[symbol] = m
	}
	return m
}
