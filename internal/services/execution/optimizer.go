package execution

import (
	"fmt"
	"math"
	"sort"

	"TradeCore/internal/domain/models"
)

// Safe fallbacks for degenerate market data. A missing or zero volatility or
// spread must never turn into NaN downstream.
const (
	defaultVolatility = 0.2
	defaultSpread     = 0.001
)

// Config tunes the optimizer. Zero fields fall back to defaults; the
// constraints themselves are validated in New.
type Config struct {
	Constraints        models.ExecutionConstraints
	ImpactWeight       float64 // weight of the impact matrix in the cost, default 1.0
	DefaultCorrelation float64 // cross-asset correlation when no estimate exists
	MinOrderNotional   float64 // orders below this are dropped entirely
	SolverIterations   int
	SolverLearningRate float64
	SolverTolerance    float64
	BaseDelayMs        float64
}

func (c *Config) applyDefaults() {
	if c.ImpactWeight <= 0 {
		c.ImpactWeight = 1.0
	}
	if c.DefaultCorrelation == 0 {
		c.DefaultCorrelation = 0.3
	}
	if c.MinOrderNotional <= 0 {
		c.MinOrderNotional = 100
	}
	if c.SolverIterations <= 0 {
		c.SolverIterations = 100
	}
	if c.SolverLearningRate <= 0 {
		c.SolverLearningRate = 0.01
	}
	if c.SolverTolerance <= 0 {
		c.SolverTolerance = 1e-6
	}
	if c.BaseDelayMs <= 0 {
		c.BaseDelayMs = 100
	}
}

// Optimizer converts desired notional changes into bounded, cost-aware
// orders. It is deterministic: identical inputs with no intervening
// calibration produce identical output. The embedded calibrator carries the
// only mutable state.
type Optimizer struct {
	cfg    Config
	impact *ImpactCalibrator
}

// New validates constraints and builds an optimizer. Malformed constraints
// are programming/configuration errors and fail loudly here, never at call
// time.
func New(cfg Config, impact *ImpactCalibrator) (*Optimizer, error) {
	if cfg.Constraints.MaxNotional <= 0 {
		return nil, fmt.Errorf("optimizer: max_notional must be positive")
	}
	if cfg.Constraints.MaxSizePerSymbol <= 0 {
		return nil, fmt.Errorf("optimizer: max_size_per_symbol must be positive")
	}
	b := cfg.Constraints.InventoryBands
	if b.Lower >= b.Upper {
		return nil, fmt.Errorf("optimizer: inventory bands lower (%v) must be below upper (%v)", b.Lower, b.Upper)
	}
	cfg.applyDefaults()
	if impact == nil {
		impact = NewImpactCalibrator(nil, 0, 0, 0)
	}
	return &Optimizer{cfg: cfg, impact: impact}, nil
}

// Constraints returns the active risk envelope.
func (o *Optimizer) Constraints() models.ExecutionConstraints { return o.cfg.Constraints }

// ImpactModel exposes the calibrated impact model for a symbol.
func (o *Optimizer) ImpactModel(symbol string) models.MarketImpactModel {
	return o.impact.Model(symbol)
}

// UpdateImpactModel feeds one realized slippage observation into the
// calibration loop.
func (o *Optimizer) UpdateImpactModel(symbol string, size, realizedSlippageBps float64) models.MarketImpactModel {
	return o.impact.Observe(symbol, size, realizedSlippageBps)
}

// OptimizeExecution sizes and routes the desired notional changes.
// Infeasible input degrades to a hold carrying the blocking reason; the
// method never returns an error for business conditions.
func (o *Optimizer) OptimizeExecution(desired, inventory map[string]float64, feats map[string]models.SymbolFeatures) models.OptimalExecution {
	cons := o.cfg.Constraints

	symbols := make([]string, 0, len(desired))
	for sym := range desired {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	n := len(symbols)
	if n == 0 {
		return models.Hold("no desired sizes supplied")
	}

	// Feasibility: fail fast, no partial optimization.
	var totalDesired float64
	for _, sym := range symbols {
		totalDesired += math.Abs(desired[sym])
	}
	if totalDesired > cons.MaxNotional {
		return models.Hold(fmt.Sprintf(
			"total desired notional %.2f exceeds max notional %.2f", totalDesired, cons.MaxNotional))
	}
	for _, sym := range symbols {
		d := desired[sym]
		if math.Abs(d) > cons.MaxSizePerSymbol {
			return models.Hold(fmt.Sprintf(
				"desired size %.2f for %s exceeds per-symbol limit %.2f", math.Abs(d), sym, cons.MaxSizePerSymbol))
		}
		frac := (inventory[sym] + d) / cons.MaxSizePerSymbol
		if frac < cons.InventoryBands.Lower || frac > cons.InventoryBands.Upper {
			return models.Hold(fmt.Sprintf(
				"projected inventory %.2f for %s outside bands [%.2f, %.2f]",
				frac, sym, cons.InventoryBands.Lower, cons.InventoryBands.Upper))
		}
	}

	// Cost matrices: risk (covariance) plus impact, weighted.
	vols := make([]float64, n)
	impacts := make([]models.MarketImpactModel, n)
	safeFeats := make([]models.SymbolFeatures, n)
	for i, sym := range symbols {
		f := feats[sym]
		if f.Volatility <= 0 || math.IsNaN(f.Volatility) {
			f.Volatility = defaultVolatility
		}
		if f.Spread <= 0 || math.IsNaN(f.Spread) {
			f.Spread = defaultSpread
		}
		safeFeats[i] = f
		vols[i] = f.Volatility
		impacts[i] = o.impact.Model(sym)
	}

	q := make([][]float64, n)
	risk := make([][]float64, n)
	for i := range q {
		q[i] = make([]float64, n)
		risk[i] = make([]float64, n)
		for j := range q[i] {
			corr := o.cfg.DefaultCorrelation
			if i == j {
				corr = 1
			}
			risk[i][j] = corr * vols[i] * vols[j]

			// Impact coefficients are in bps; convert to a fraction of
			// notional so the quadratic term shares units with txCost.
			var imp float64
			if i == j {
				imp = impacts[i].LinearImpact + impacts[i].TemporaryImpact
			} else {
				di := impacts[i].LinearImpact + impacts[i].TemporaryImpact
				dj := impacts[j].LinearImpact + impacts[j].TemporaryImpact
				imp = 0.1 * corr * (di + dj) / 2
			}
			q[i][j] = risk[i][j] + o.cfg.ImpactWeight*imp/10000
		}
	}

	// Linear term: minimize cost, maximize expected edge.
	c := make([]float64, n)
	x0 := make([]float64, n)
	for i, sym := range symbols {
		d := desired[sym]
		sizePct := math.Abs(d) / cons.MaxSizePerSymbol
		txCost := (impacts[i].TemporaryImpact + impacts[i].LinearImpact*sizePct) / 10000
		c[i] = -safeFeats[i].ExpectedReturn + txCost
		x0[i] = d
	}

	inv := make([]float64, n)
	for i, sym := range symbols {
		inv[i] = inventory[sym]
	}
	project := func(x []float64) {
		// Box, then inventory band, then notional rescale. The order is
		// load-bearing: the notional rescale can leave box-feasible points
		// slightly inside the bands but never outside them.
		for i := range x {
			x[i] = clamp(x[i], -cons.MaxSizePerSymbol, cons.MaxSizePerSymbol)
		}
		for i := range x {
			lo := cons.InventoryBands.Lower*cons.MaxSizePerSymbol - inv[i]
			hi := cons.InventoryBands.Upper*cons.MaxSizePerSymbol - inv[i]
			x[i] = clamp(x[i], lo, hi)
		}
		var tot float64
		for i := range x {
			tot += math.Abs(x[i])
		}
		if tot > cons.MaxNotional {
			scale := cons.MaxNotional / tot
			for i := range x {
				x[i] *= scale
			}
		}
	}

	x := solveProjectedGradient(q, c, x0,
		o.cfg.SolverLearningRate, o.cfg.SolverIterations, o.cfg.SolverTolerance, project)

	// Order synthesis.
	orders := make([]models.ExecutionOrder, 0, n)
	var totalSize, slipWeighted, maxTox, maxSpread float64
	for i, sym := range symbols {
		size := math.Abs(x[i])
		f := safeFeats[i]
		if f.Toxicity > maxTox {
			maxTox = f.Toxicity
		}
		if f.Spread > maxSpread {
			maxSpread = f.Spread
		}
		if size < o.cfg.MinOrderNotional {
			continue
		}

		side := models.SideBuy
		if x[i] < 0 {
			side = models.SideSell
		}
		ord := models.ExecutionOrder{Symbol: sym, Side: side, Size: size}
		switch {
		case f.Toxicity > cons.ToxicityThreshold && f.Price > 0:
			// Passive in toxic flow: rest slightly inside the spread.
			ord.OrderType = models.OrderTypeLimit
			if side == models.SideBuy {
				ord.Price = f.Price * (1 - f.Spread/2)
			} else {
				ord.Price = f.Price * (1 + f.Spread/2)
			}
			ord.TimeInForce = "GTC"
		case size > cons.MaxSizePerSymbol/2:
			ord.OrderType = models.OrderTypeIOC
			ord.TimeInForce = "IOC"
		default:
			ord.OrderType = models.OrderTypeMarket
			ord.TimeInForce = "IOC"
		}
		ord.ExecDelayMs = o.execDelay(size, f.Toxicity)
		orders = append(orders, ord)

		sizePct := size / cons.MaxSizePerSymbol
		slip := impacts[i].TemporaryImpact +
			impacts[i].LinearImpact*sizePct +
			impacts[i].SqrtImpact*math.Sqrt(sizePct)
		slipWeighted += size * slip
		totalSize += size
	}

	res := models.OptimalExecution{
		Orders:    orders,
		TotalCost: quadraticCost(q, c, x),
	}
	if totalSize > 0 {
		res.ExpectedSlippage = slipWeighted / totalSize
		var riskQuad float64
		for i := range x {
			for j := range x {
				riskQuad += x[i] * risk[i][j] * x[j]
			}
		}
		res.RiskScore = math.Sqrt(math.Abs(riskQuad)) / totalSize
	}

	if len(orders) == 0 {
		res.ExecutionMethod = models.ExecMethodMarket
		res.Reasoning = fmt.Sprintf(
			"all optimized sizes below minimum order notional %.0f; holding", o.cfg.MinOrderNotional)
		return res
	}
	if cons.MaxSlippageBps > 0 && res.ExpectedSlippage > cons.MaxSlippageBps {
		return models.Hold(fmt.Sprintf(
			"expected slippage %.2f bps exceeds limit %.2f bps", res.ExpectedSlippage, cons.MaxSlippageBps))
	}

	res.ExecutionMethod = o.executionMethod(totalSize, maxTox, maxSpread)
	res.Reasoning = fmt.Sprintf(
		"%d order(s) across %d symbol(s), total size %.0f, method %s, expected slippage %.2f bps",
		len(orders), n, totalSize, res.ExecutionMethod, res.ExpectedSlippage)
	return res
}

// execDelay paces an order: a base delay plus a toxicity penalty and a
// log-scaled size penalty, capped at the latency budget.
func (o *Optimizer) execDelay(size, toxicity float64) float64 {
	d := o.cfg.BaseDelayMs +
		clamp(toxicity, 0, 1)*300 +
		10*math.Log1p(size/o.cfg.MinOrderNotional)
	if max := o.cfg.Constraints.MaxLatencyMs; max > 0 && d > max {
		d = max
	}
	return d
}

// executionMethod summarizes how the whole batch should be worked.
func (o *Optimizer) executionMethod(totalSize, maxTox, maxSpread float64) string {
	switch {
	case totalSize > 0.8*o.cfg.Constraints.MaxSizePerSymbol:
		return models.ExecMethodTWAP
	case maxTox > 0.6:
		return models.ExecMethodIceberg
	case maxSpread > 0.005:
		return models.ExecMethodLimit
	default:
		return models.ExecMethodMarket
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
