package execution

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"TradeCore/internal/domain/models"
)

func testConstraints() models.ExecutionConstraints {
	return models.ExecutionConstraints{
		MaxNotional:       100000,
		MaxSizePerSymbol:  50000,
		MaxLatencyMs:      1000,
		ToxicityThreshold: 0.7,
		InventoryBands:    models.InventoryBands{Lower: -0.5, Upper: 0.5},
	}
}

func newTestOptimizer(t *testing.T, cons models.ExecutionConstraints) *Optimizer {
	t.Helper()
	o, err := New(Config{Constraints: cons}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestNewRejectsBadConstraints(t *testing.T) {
	cons := testConstraints()
	cons.MaxNotional = 0
	if _, err := New(Config{Constraints: cons}, nil); err == nil {
		t.Fatalf("expected error for zero max notional")
	}

	cons = testConstraints()
	cons.InventoryBands = models.InventoryBands{Lower: 0.5, Upper: 0.5}
	if _, err := New(Config{Constraints: cons}, nil); err == nil {
		t.Fatalf("expected error for inverted bands")
	}
}

func TestHoldOnEmptyDesired(t *testing.T) {
	o := newTestOptimizer(t, testConstraints())
	res := o.OptimizeExecution(nil, nil, nil)
	if len(res.Orders) != 0 || !strings.Contains(res.Reasoning, "no desired sizes") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestHoldOnTotalNotional(t *testing.T) {
	o := newTestOptimizer(t, testConstraints())
	res := o.OptimizeExecution(map[string]float64{"A": 60000, "B": -50000}, nil, nil)
	if len(res.Orders) != 0 {
		t.Fatalf("expected hold, got %d orders", len(res.Orders))
	}
	if !strings.Contains(res.Reasoning, "max notional") {
		t.Fatalf("reasoning does not name the constraint: %q", res.Reasoning)
	}
}

func TestHoldOnPerSymbolLimit(t *testing.T) {
	o := newTestOptimizer(t, testConstraints())
	res := o.OptimizeExecution(map[string]float64{"X": 80000}, nil, nil)
	if len(res.Orders) != 0 {
		t.Fatalf("expected hold, got %d orders", len(res.Orders))
	}
	if !strings.Contains(res.Reasoning, "X") || !strings.Contains(res.Reasoning, "per-symbol limit") {
		t.Fatalf("reasoning does not name symbol and limit: %q", res.Reasoning)
	}
}

func TestHoldOnInventoryBands(t *testing.T) {
	o := newTestOptimizer(t, testConstraints())
	inv := map[string]float64{"X": 20000}
	res := o.OptimizeExecution(map[string]float64{"X": 10000}, inv, nil)
	if len(res.Orders) != 0 || !strings.Contains(res.Reasoning, "bands") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestFeasibleRequestProducesBoundedOrders(t *testing.T) {
	o := newTestOptimizer(t, testConstraints())
	desired := map[string]float64{"AAA": 10000, "BBB": -8000}
	res := o.OptimizeExecution(desired, nil, nil)
	if len(res.Orders) == 0 {
		t.Fatalf("expected orders, got hold: %q", res.Reasoning)
	}

	var total float64
	for _, ord := range res.Orders {
		if ord.Size < 100 || ord.Size > 50000 {
			t.Fatalf("order size out of bounds: %+v", ord)
		}
		if ord.TimeInForce == "" || ord.OrderType == "" {
			t.Fatalf("order missing routing fields: %+v", ord)
		}
		if ord.ExecDelayMs < 100 || ord.ExecDelayMs > 1000 {
			t.Fatalf("delay out of bounds: %+v", ord)
		}
		total += ord.Size
	}
	if total > 100000 {
		t.Fatalf("total size %v exceeds notional cap", total)
	}
	if res.Orders[0].Symbol != "AAA" || res.Orders[0].Side != models.SideBuy {
		t.Fatalf("expected sorted buy first, got %+v", res.Orders[0])
	}
	if res.Orders[1].Side != models.SideSell {
		t.Fatalf("expected sell for negative desired, got %+v", res.Orders[1])
	}
	if res.RiskScore <= 0 || res.ExpectedSlippage <= 0 {
		t.Fatalf("expected positive metrics, got %+v", res)
	}
}

func TestOptimizeIsDeterministic(t *testing.T) {
	o := newTestOptimizer(t, testConstraints())
	desired := map[string]float64{"AAA": 12000, "BBB": -6000}
	feats := map[string]models.SymbolFeatures{
		"AAA": {Price: 50, Volatility: 0.3, Spread: 0.002},
	}
	a := o.OptimizeExecution(desired, nil, feats)
	b := o.OptimizeExecution(desired, nil, feats)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("results diverged:\n%+v\n%+v", a, b)
	}
}

func TestToxicFlowRoutedAsPassiveLimit(t *testing.T) {
	o := newTestOptimizer(t, testConstraints())
	feats := map[string]models.SymbolFeatures{
		"BTC-USD": {Price: 100, Spread: 0.01, Toxicity: 0.9},
	}
	res := o.OptimizeExecution(map[string]float64{"BTC-USD": 10000}, nil, feats)
	if len(res.Orders) != 1 {
		t.Fatalf("expected one order, got %+v", res)
	}
	ord := res.Orders[0]
	if ord.OrderType != models.OrderTypeLimit || ord.TimeInForce != "GTC" {
		t.Fatalf("expected passive limit, got %+v", ord)
	}
	if ord.Price <= 0 || ord.Price >= 100 {
		t.Fatalf("expected buy limit inside the spread, got price %v", ord.Price)
	}
	if res.ExecutionMethod != models.ExecMethodIceberg {
		t.Fatalf("expected iceberg method for toxic flow, got %q", res.ExecutionMethod)
	}
}

func TestSellLimitPricedAboveMid(t *testing.T) {
	o := newTestOptimizer(t, testConstraints())
	feats := map[string]models.SymbolFeatures{
		"ETH-USD": {Price: 200, Spread: 0.01, Toxicity: 0.9},
	}
	res := o.OptimizeExecution(map[string]float64{"ETH-USD": -10000}, nil, feats)
	if len(res.Orders) != 1 {
		t.Fatalf("expected one order, got %+v", res)
	}
	ord := res.Orders[0]
	if ord.Side != models.SideSell || ord.Price <= 200 {
		t.Fatalf("expected sell limit above mid, got %+v", ord)
	}
}

func TestTinySizesDropped(t *testing.T) {
	o := newTestOptimizer(t, testConstraints())
	res := o.OptimizeExecution(map[string]float64{"X": 50}, nil, nil)
	if len(res.Orders) != 0 {
		t.Fatalf("expected no orders below min notional, got %+v", res.Orders)
	}
	if !strings.Contains(res.Reasoning, "minimum order notional") {
		t.Fatalf("unexpected reasoning %q", res.Reasoning)
	}
}

func TestSlippageBudgetHolds(t *testing.T) {
	cons := testConstraints()
	cons.MaxSlippageBps = 0.5
	o := newTestOptimizer(t, cons)
	res := o.OptimizeExecution(map[string]float64{"X": 10000}, nil, nil)
	if len(res.Orders) != 0 || !strings.Contains(res.Reasoning, "slippage") {
		t.Fatalf("expected slippage hold, got %+v", res)
	}
}

func TestExecDelayCappedAtLatencyBudget(t *testing.T) {
	cons := testConstraints()
	cons.MaxLatencyMs = 150
	o := newTestOptimizer(t, cons)
	feats := map[string]models.SymbolFeatures{
		"X": {Price: 100, Toxicity: 1},
	}
	res := o.OptimizeExecution(map[string]float64{"X": 10000}, nil, feats)
	if len(res.Orders) != 1 {
		t.Fatalf("expected one order, got %+v", res)
	}
	if got := res.Orders[0].ExecDelayMs; got != 150 {
		t.Fatalf("expected delay capped at 150, got %v", got)
	}
}

func TestCalibrationFeedsOptimizer(t *testing.T) {
	o := newTestOptimizer(t, testConstraints())
	before := o.ImpactModel("X").TemporaryImpact
	for i := 0; i < 20; i++ {
		o.UpdateImpactModel("X", 1000, 25)
	}
	after := o.ImpactModel("X").TemporaryImpact
	if after <= before {
		t.Fatalf("expected calibration to raise temporary impact: %v -> %v", before, after)
	}

	a := o.OptimizeExecution(map[string]float64{"X": 10000}, nil, nil)
	if len(a.Orders) != 1 {
		t.Fatalf("calibrated model must still yield a tradable plan, got %+v", a)
	}
	// Impact coefficients in bps must not dominate the quadratic term; a
	// calibrated book shades size, it does not collapse to a hold.
	if got := a.Orders[0].Size; got < 5000 {
		t.Fatalf("calibration shrank size too aggressively: %v", got)
	}
	if a.ExpectedSlippage <= defaultTemporaryImpact {
		t.Fatalf("expected calibrated slippage above default, got %v", a.ExpectedSlippage)
	}
}

func TestDefaultsAppliedOnDegenerateFeatures(t *testing.T) {
	o := newTestOptimizer(t, testConstraints())
	feats := map[string]models.SymbolFeatures{
		"X": {Volatility: math.NaN(), Spread: -1},
	}
	res := o.OptimizeExecution(map[string]float64{"X": 10000}, nil, feats)
	if math.IsNaN(res.TotalCost) || math.IsNaN(res.RiskScore) {
		t.Fatalf("NaN leaked through safe defaults: %+v", res)
	}
}
