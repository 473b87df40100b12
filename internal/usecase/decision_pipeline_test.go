package usecase

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"TradeCore/internal/domain/models"
	"TradeCore/internal/services/execution"
	"TradeCore/internal/services/features"
	"TradeCore/internal/services/router"
	"TradeCore/pkg/config"
	applogger "TradeCore/pkg/logger"
)

type fakeMetrics struct {
	mu        sync.Mutex
	decisions []string
	holds     []string
	orders    []string
	rewards   []string
	errors    []string
}

func (m *fakeMetrics) RecordDecision(policyID string) {
	m.mu.Lock()
	m.decisions = append(m.decisions, policyID)
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordHold(kind string) {
	m.mu.Lock()
	m.holds = append(m.holds, kind)
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordOrder(symbol, orderType string) {
	m.mu.Lock()
	m.orders = append(m.orders, symbol+"/"+orderType)
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordReward(policyID string, reward float64) {
	m.mu.Lock()
	m.rewards = append(m.rewards, policyID)
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordSlippage(symbol string, bps float64) {}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors = append(m.errors, kind)
	m.mu.Unlock()
}
func (m *fakeMetrics) RecordLatency(op string, seconds float64) {}

type capturePublisher struct {
	mu     sync.Mutex
	orders []models.ExecutionOrder
}

func (p *capturePublisher) Publish(ctx context.Context, o *models.ExecutionOrder) error {
	p.mu.Lock()
	p.orders = append(p.orders, *o)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) PublishBatch(ctx context.Context, orders []models.ExecutionOrder) error {
	p.mu.Lock()
	p.orders = append(p.orders, orders...)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func newTestPipeline(t *testing.T, m *fakeMetrics, disp *OrderDispatcher) *DecisionPipeline {
	t.Helper()
	rt, err := router.New([]string{"momentum", "meanrev"}, router.DefaultConfig(), rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("router.New: %v", err)
	}
	opt, err := execution.New(execution.Config{Constraints: models.ExecutionConstraints{
		MaxNotional:       100000,
		MaxSizePerSymbol:  50000,
		MaxLatencyMs:      1000,
		ToxicityThreshold: 0.7,
		InventoryBands:    models.InventoryBands{Lower: -0.5, Upper: 0.5},
	}}, nil)
	if err != nil {
		t.Fatalf("execution.New: %v", err)
	}
	engine := features.NewEngine(features.DefaultConfig())
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	policies := []config.PolicyConfig{
		{ID: "momentum", TargetWeight: 0.2},
		{ID: "meanrev", TargetWeight: 0.2},
	}
	return NewDecisionPipeline(rt, opt, engine, nil, nil, disp, nil, m, l, policies, []string{"AAA"})
}

func TestDecideHoldsWithoutMarketData(t *testing.T) {
	m := &fakeMetrics{}
	p := newTestPipeline(t, m, nil)

	res, err := p.Decide(context.Background(), models.DecideRequest{DryRun: true})
	if err != nil {
		t.Fatalf("Decide error: %v", err)
	}
	if res.Choice.PolicyID != "momentum" && res.Choice.PolicyID != "meanrev" {
		t.Fatalf("unexpected policy %q", res.Choice.PolicyID)
	}
	if len(res.Execution.Orders) != 0 {
		t.Fatalf("expected hold, got %d orders", len(res.Execution.Orders))
	}
	if res.Dispatched {
		t.Fatalf("hold must not dispatch")
	}
	if len(m.decisions) != 1 {
		t.Fatalf("expected 1 recorded decision, got %d", len(m.decisions))
	}
	if len(m.holds) != 1 {
		t.Fatalf("expected 1 recorded hold, got %d", len(m.holds))
	}
}

func TestExecuteProducesAndDispatchesOrders(t *testing.T) {
	m := &fakeMetrics{}
	pub := &capturePublisher{}
	p := newTestPipeline(t, m, NewOrderDispatcher(nil, pub, m))

	req := models.ExecuteRequest{
		DesiredSizes: map[string]float64{"AAA": 10000},
		Features: map[string]models.SymbolFeatures{
			"AAA": {Price: 100, Volatility: 0.2, Spread: 0.001, Toxicity: 0.1, ExpectedReturn: 0.001},
		},
	}
	res, err := p.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(res.Execution.Orders) == 0 {
		t.Fatalf("expected orders, got hold: %s", res.Execution.Reasoning)
	}
	if !res.Dispatched {
		t.Fatalf("expected dispatch to publisher")
	}
	if len(pub.orders) != len(res.Execution.Orders) {
		t.Fatalf("published %d orders, plan had %d", len(pub.orders), len(res.Execution.Orders))
	}
	for _, o := range res.Execution.Orders {
		if o.Side != models.SideBuy {
			t.Fatalf("positive desired size must buy, got %s", o.Side)
		}
	}
}

func TestExecuteDryRunSkipsDispatch(t *testing.T) {
	m := &fakeMetrics{}
	pub := &capturePublisher{}
	p := newTestPipeline(t, m, NewOrderDispatcher(nil, pub, m))

	req := models.ExecuteRequest{
		DesiredSizes: map[string]float64{"AAA": 10000},
		Features: map[string]models.SymbolFeatures{
			"AAA": {Price: 100, Volatility: 0.2, Spread: 0.001, Toxicity: 0.1},
		},
		DryRun: true,
	}
	res, err := p.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if res.Dispatched {
		t.Fatalf("dry run must not dispatch")
	}
	if len(pub.orders) != 0 {
		t.Fatalf("dry run published %d orders", len(pub.orders))
	}
}

func TestHandleFillUpdatesStateAndRewards(t *testing.T) {
	m := &fakeMetrics{}
	p := newTestPipeline(t, m, nil)

	fill := &models.Fill{
		Symbol:      "AAA",
		PolicyID:    "momentum",
		Side:        models.SideBuy,
		Size:        5000,
		Price:       100,
		SlippageBps: 2.5,
		PnL:         50,
		Timestamp:   time.Now().Unix(),
	}
	if err := p.HandleFill(context.Background(), fill); err != nil {
		t.Fatalf("HandleFill error: %v", err)
	}

	inv := p.Inventory()
	if inv["AAA"] != 5000 {
		t.Fatalf("inventory = %v, want 5000", inv["AAA"])
	}
	if len(m.rewards) != 1 || m.rewards[0] != "momentum" {
		t.Fatalf("rewards = %v, want one for momentum", m.rewards)
	}

	var post *models.PolicyPosterior
	for _, ps := range p.Posteriors() {
		if ps.PolicyID == "momentum" {
			cp := ps
			post = &cp
		}
	}
	if post == nil {
		t.Fatalf("momentum posterior missing")
	}
	if post.Count != 1 {
		t.Fatalf("posterior count = %d, want 1", post.Count)
	}

	sell := &models.Fill{Symbol: "AAA", Side: models.SideSell, Size: 2000, Price: 100}
	if err := p.HandleFill(context.Background(), sell); err != nil {
		t.Fatalf("HandleFill sell error: %v", err)
	}
	if got := p.Inventory()["AAA"]; got != 3000 {
		t.Fatalf("inventory after sell = %v, want 3000", got)
	}
}

func TestHandleFillRejectsInvalid(t *testing.T) {
	m := &fakeMetrics{}
	p := newTestPipeline(t, m, nil)
	if err := p.HandleFill(context.Background(), nil); err == nil {
		t.Fatalf("nil fill must error")
	}
	if err := p.HandleFill(context.Background(), &models.Fill{Size: 100}); err == nil {
		t.Fatalf("fill without symbol must error")
	}
}

func TestHoldKindLabels(t *testing.T) {
	cases := map[string]string{
		"total desired notional 200000.00 exceeds max notional 100000.00": "max_notional",
		"desired size 60000.00 for AAA exceeds per-symbol limit 50000.00": "per_symbol_limit",
		"projected inventory 30000.00 for AAA outside bands [-25000.00, 25000.00]": "inventory_bands",
		"expected slippage 12.00 bps exceeds limit 10.00 bps":                       "slippage_budget",
		"all optimized sizes below minimum order notional 100; holding":             "min_notional",
		"no desired sizes supplied":                                                 "other",
	}
	for reason, want := range cases {
		if got := holdKind(reason); got != want {
			t.Fatalf("holdKind(%q) = %q, want %q", reason, got, want)
		}
	}
}

func TestDecideWithContextOverride(t *testing.T) {
	m := &fakeMetrics{}
	p := newTestPipeline(t, m, nil)

	rctx := &models.RouterContext{Regime: models.RegimeBull, RealizedVol: 0.3, BookImbalance: 0.4}
	res, err := p.Decide(context.Background(), models.DecideRequest{DryRun: true, Context: rctx})
	if err != nil {
		t.Fatalf("Decide error: %v", err)
	}
	if res.Context.Regime != models.RegimeBull {
		t.Fatalf("context override ignored, regime = %q", res.Context.Regime)
	}
	if !strings.Contains(res.Execution.Reasoning, "no desired sizes") {
		t.Fatalf("expected empty-universe hold, got %q", res.Execution.Reasoning)
	}
}
