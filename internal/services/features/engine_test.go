package features

import (
	"math"
	"testing"
	"time"

	"TradeCore/internal/domain/models"
)

func testEngine() *Engine {
	return NewEngine(Config{VolWindow: 10, FlowWindow: 10})
}

func TestRealizedVolatilityInsufficientData(t *testing.T) {
	if got := RealizedVolatility([]float64{0.01}, 10, 252); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestRealizedVolatilityConstantSeriesIsZero(t *testing.T) {
	rs := make([]float64, 20)
	for i := range rs {
		rs[i] = 0.001
	}
	if got := RealizedVolatility(rs, 10, 252); got != 0 {
		t.Fatalf("expected 0 for constant returns, got %v", got)
	}
}

func TestImbalance(t *testing.T) {
	if got := Imbalance(3, 1); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := Imbalance(0, 0); got != 0 {
		t.Fatalf("expected 0 for empty book, got %v", got)
	}
}

func TestUnknownSymbol(t *testing.T) {
	e := testEngine()
	if _, ok := e.Features("NOPE"); ok {
		t.Fatalf("expected ok=false for unseen symbol")
	}
	if ctx := e.Context("NOPE"); ctx.Regime != models.RegimeUnknown {
		t.Fatalf("expected unknown regime, got %q", ctx.Regime)
	}
}

func TestQuoteFeatures(t *testing.T) {
	e := testEngine()
	e.OnTick(models.Tick{
		Symbol: "BTC-USD", Timestamp: time.Now().Unix(),
		Bid: 99.9, Ask: 100.1, BidSize: 30, AskSize: 10,
	})

	f, ok := e.Features("BTC-USD")
	if !ok {
		t.Fatalf("expected features after tick")
	}
	if math.Abs(f.Price-100) > 1e-9 {
		t.Fatalf("expected mid 100, got %v", f.Price)
	}
	if math.Abs(f.Spread-0.002) > 1e-9 {
		t.Fatalf("expected spread 0.002, got %v", f.Spread)
	}
	if math.Abs(f.BookImbalance-0.5) > 1e-9 {
		t.Fatalf("expected book imbalance 0.5, got %v", f.BookImbalance)
	}
}

func TestTradeImbalanceAndToxicity(t *testing.T) {
	e := testEngine()
	for i := 0; i < 10; i++ {
		e.OnTick(models.Tick{
			Symbol: "X", Price: 100, Volume: 5, Side: models.SideBuy,
		})
	}

	ctx := e.Context("X")
	if ctx.TradeImbalance != 1 {
		t.Fatalf("expected fully buy-sided flow, got %v", ctx.TradeImbalance)
	}
	f, _ := e.Features("X")
	if f.Toxicity < 0.5 {
		t.Fatalf("expected elevated toxicity for one-sided flow, got %v", f.Toxicity)
	}
}

func TestRegimeBullOnTrendingTape(t *testing.T) {
	e := testEngine()
	price := 100.0
	for i := 0; i < 30; i++ {
		// drift dominates the wiggle
		step := 0.002
		if i%2 == 0 {
			step = 0.001
		}
		price *= 1 + step
		e.OnTick(models.Tick{Symbol: "X", Price: price})
	}
	if ctx := e.Context("X"); ctx.Regime != models.RegimeBull {
		t.Fatalf("expected bull regime, got %q", ctx.Regime)
	}
}

func TestRegimeSidewaysOnChoppyTape(t *testing.T) {
	e := testEngine()
	price := 100.0
	for i := 0; i < 30; i++ {
		step := 0.001
		if i%2 == 0 {
			step = -0.001
		}
		price *= 1 + step
		e.OnTick(models.Tick{Symbol: "X", Price: price})
	}
	if ctx := e.Context("X"); ctx.Regime != models.RegimeSideways {
		t.Fatalf("expected sideways regime, got %q", ctx.Regime)
	}
}

func TestReturnWindowBounded(t *testing.T) {
	e := testEngine()
	price := 100.0
	for i := 0; i < 100; i++ {
		price *= 1.001
		e.OnTick(models.Tick{Symbol: "X", Price: price})
	}
	e.mu.Lock()
	n := len(e.state["X"].returns)
	e.mu.Unlock()
	if n != 10 {
		t.Fatalf("expected window of 10 returns, got %d", n)
	}
}
