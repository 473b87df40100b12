package models

// Order sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order types emitted by the optimizer.
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
	OrderTypeIOC    = "ioc"
	OrderTypeFOK    = "fok"
)

// Batch execution methods.
const (
	ExecMethodMarket  = "market"
	ExecMethodLimit   = "limit"
	ExecMethodIceberg = "iceberg"
	ExecMethodTWAP    = "twap"
)

// InventoryBands bound post-trade inventory as a fraction of the per-symbol
// cap. Lower < Upper is enforced at config load.
type InventoryBands struct {
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
}

// ExecutionConstraints is the process-wide risk envelope for order sizing.
type ExecutionConstraints struct {
	MaxNotional       float64        `yaml:"max_notional" json:"max_notional"`
	MaxSizePerSymbol  float64        `yaml:"max_size_per_symbol" json:"max_size_per_symbol"`
	MaxSlippageBps    float64        `yaml:"max_slippage_bps" json:"max_slippage_bps"`
	MaxLatencyMs      float64        `yaml:"max_latency_ms" json:"max_latency_ms"`
	ToxicityThreshold float64        `yaml:"toxicity_threshold" json:"toxicity_threshold"`
	InventoryBands    InventoryBands `yaml:"inventory_bands" json:"inventory_bands"`
}

// MarketImpactModel holds per-symbol impact coefficients in basis points.
// TemporaryImpact is the only coefficient mutated online (EWMA toward
// realized slippage).
type MarketImpactModel struct {
	Symbol          string  `json:"symbol"`
	LinearImpact    float64 `json:"linear_impact"`
	SqrtImpact      float64 `json:"sqrt_impact"`
	TemporaryImpact float64 `json:"temporary_impact"`
	PermanentImpact float64 `json:"permanent_impact"`
}

// SymbolFeatures is the live market view for one instrument at optimization
// time. Zero values fall back to documented safe defaults inside the
// optimizer.
type SymbolFeatures struct {
	Price          float64 `json:"price"`
	Volatility     float64 `json:"volatility"`
	Spread         float64 `json:"spread"` // fraction of mid, not bps
	Toxicity       float64 `json:"toxicity"`
	ExpectedReturn float64 `json:"expected_return"`
	BookImbalance  float64 `json:"book_imbalance"`
}

// ExecutionOrder is one concrete instruction for the exchange gateway.
type ExecutionOrder struct {
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Size        float64 `json:"size"`
	OrderType   string  `json:"order_type"`
	Price       float64 `json:"price,omitempty"` // limit orders only
	TimeInForce string  `json:"time_in_force"`
	ExecDelayMs float64 `json:"exec_delay_ms,omitempty"`
}

// OptimalExecution is the optimizer's full answer. On infeasible input
// Orders is empty and Reasoning names the blocking constraint; the optimizer
// never returns an error for business conditions.
type OptimalExecution struct {
	Orders           []ExecutionOrder `json:"orders"`
	TotalCost        float64          `json:"total_cost"`
	ExpectedSlippage float64          `json:"expected_slippage"`
	RiskScore        float64          `json:"risk_score"`
	ExecutionMethod  string           `json:"execution_method"`
	Reasoning        string           `json:"reasoning"`
}

// Hold returns the documented no-op result for an infeasible request.
func Hold(reason string) OptimalExecution {
	return OptimalExecution{
		Orders:          []ExecutionOrder{},
		ExecutionMethod: ExecMethodMarket,
		Reasoning:       reason,
	}
}
