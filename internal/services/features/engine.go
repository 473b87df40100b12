package features

import (
	"math"
	"sort"
	"sync"

	"TradeCore/internal/domain/models"
)

// Config tunes the rolling feature computation.
type Config struct {
	// VolWindow is how many log returns back the realized volatility and
	// drift estimates look.
	VolWindow int
	// FlowWindow is how many trades back the trade-imbalance estimate looks.
	FlowWindow int
	// ObsPerYear annualizes per-tick volatility. The default assumes roughly
	// one tick per second.
	ObsPerYear float64
	// RegimeDriftRatio is the |drift|/vol ratio above which the tape is
	// labeled trending rather than sideways.
	RegimeDriftRatio float64
	// SpreadEWMARate smooths the reference spread used by the toxicity
	// heuristic.
	SpreadEWMARate float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		VolWindow:        120,
		FlowWindow:       200,
		ObsPerYear:       365 * 24 * 60 * 60,
		RegimeDriftRatio: 0.25,
		SpreadEWMARate:   0.05,
	}
}

type symbolState struct {
	lastMid    float64
	returns    []float64
	flows      []float64 // signed trade volumes, buy positive
	bid, ask   float64
	bidSize    float64
	askSize    float64
	price      float64
	ewmaSpread float64 // spread as a fraction of mid
	updated    int64   // unix seconds of the last tick
}

// Engine maintains rolling per-symbol market features from a raw tick
// stream. One mutex guards all symbols; tick ingestion is O(window) worst
// case and allocation-free on the hot path once windows are full.
type Engine struct {
	mu    sync.Mutex
	cfg   Config
	state map[string]*symbolState
}

// NewEngine builds a feature engine. Zero config fields fall back to
// defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.VolWindow <= 1 {
		cfg.VolWindow = def.VolWindow
	}
	if cfg.FlowWindow <= 0 {
		cfg.FlowWindow = def.FlowWindow
	}
	if cfg.ObsPerYear <= 0 {
		cfg.ObsPerYear = def.ObsPerYear
	}
	if cfg.RegimeDriftRatio <= 0 {
		cfg.RegimeDriftRatio = def.RegimeDriftRatio
	}
	if cfg.SpreadEWMARate <= 0 || cfg.SpreadEWMARate > 1 {
		cfg.SpreadEWMARate = def.SpreadEWMARate
	}
	return &Engine{cfg: cfg, state: make(map[string]*symbolState)}
}

// OnTick folds one tick into the symbol's rolling state.
func (e *Engine) OnTick(t models.Tick) {
	if t.Symbol == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.state[t.Symbol]
	if !ok {
		s = &symbolState{}
		e.state[t.Symbol] = s
	}

	if t.Bid > 0 {
		s.bid = t.Bid
	}
	if t.Ask > 0 {
		s.ask = t.Ask
	}
	if t.BidSize > 0 {
		s.bidSize = t.BidSize
	}
	if t.AskSize > 0 {
		s.askSize = t.AskSize
	}
	if t.Price > 0 {
		s.price = t.Price
	}
	s.updated = t.Timestamp

	mid := s.mid()
	if mid > 0 {
		if s.lastMid > 0 {
			s.returns = appendWindow(s.returns, LogReturn(s.lastMid, mid), e.cfg.VolWindow)
		}
		s.lastMid = mid
		if s.bid > 0 && s.ask > s.bid {
			spread := (s.ask - s.bid) / mid
			if s.ewmaSpread == 0 {
				s.ewmaSpread = spread
			} else {
				s.ewmaSpread += e.cfg.SpreadEWMARate * (spread - s.ewmaSpread)
			}
		}
	}

	if t.Volume > 0 {
		v := t.Volume
		if t.Side == models.SideSell {
			v = -v
		}
		s.flows = appendWindow(s.flows, v, e.cfg.FlowWindow)
	}
}

// Features returns the current view for one symbol. ok is false when the
// symbol has never traded.
func (e *Engine) Features(symbol string) (models.SymbolFeatures, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.state[symbol]
	if !ok {
		return models.SymbolFeatures{}, false
	}
	return e.featuresLocked(s), true
}

// Context assembles the router's market context for one symbol. A symbol
// with no history yields the zero context with an unknown regime.
func (e *Engine) Context(symbol string) models.RouterContext {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx := models.RouterContext{Regime: models.RegimeUnknown}
	s, ok := e.state[symbol]
	if !ok {
		return ctx
	}

	f := e.featuresLocked(s)
	ctx.RealizedVol = f.Volatility
	ctx.BookImbalance = f.BookImbalance
	ctx.TradeImbalance = tradeImbalance(s.flows)
	ctx.SpreadBps = f.Spread * 10000

	if len(s.returns) >= e.cfg.VolWindow {
		drift := MeanReturn(s.returns, e.cfg.VolWindow)
		perTickVol := f.Volatility / math.Sqrt(e.cfg.ObsPerYear)
		if perTickVol > 0 {
			switch ratio := drift / perTickVol; {
			case ratio > e.cfg.RegimeDriftRatio:
				ctx.Regime = models.RegimeBull
			case ratio < -e.cfg.RegimeDriftRatio:
				ctx.Regime = models.RegimeBear
			default:
				ctx.Regime = models.RegimeSideways
			}
		}
	}
	return ctx
}

// Symbols lists every symbol seen so far, sorted.
func (e *Engine) Symbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.state))
	for sym := range e.state {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) featuresLocked(s *symbolState) models.SymbolFeatures {
	f := models.SymbolFeatures{
		Price:         s.price,
		BookImbalance: Imbalance(s.bidSize, s.askSize),
	}
	if mid := s.mid(); mid > 0 {
		f.Price = mid
		if s.bid > 0 && s.ask > s.bid {
			f.Spread = (s.ask - s.bid) / mid
		}
	}
	f.Volatility = RealizedVolatility(s.returns, e.cfg.VolWindow, e.cfg.ObsPerYear)
	f.ExpectedReturn = MeanReturn(s.returns, e.cfg.VolWindow) * float64(e.cfg.VolWindow)
	f.Toxicity = toxicity(tradeImbalance(s.flows), f.Spread, s.ewmaSpread)
	return f
}

func (s *symbolState) mid() float64 {
	if s.bid > 0 && s.ask > s.bid {
		return (s.bid + s.ask) / 2
	}
	return s.price
}

// tradeImbalance is signed flow over total flow in the window, in [-1, 1].
func tradeImbalance(flows []float64) float64 {
	var signed, total float64
	for _, v := range flows {
		signed += v
		total += math.Abs(v)
	}
	if total == 0 {
		return 0
	}
	return signed / total
}

// toxicity blends one-sided flow with spread widening relative to the
// smoothed reference spread. Both are signs of informed flow.
func toxicity(tradeImb, spread, refSpread float64) float64 {
	tox := 0.6 * math.Abs(tradeImb)
	if refSpread > 0 && spread > refSpread {
		tox += 0.4 * Clamp01((spread-refSpread)/refSpread)
	}
	return Clamp01(tox)
}

func appendWindow(buf []float64, v float64, window int) []float64 {
	buf = append(buf, v)
	if len(buf) > window {
		buf = buf[len(buf)-window:]
	}
	return buf
}
