package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"TradeCore/internal/domain/models"
	drepo "TradeCore/internal/domain/repository"
	domsvc "TradeCore/internal/domain/service"
	svcmetrics "TradeCore/internal/service/metrics"
	"TradeCore/internal/services/execution"
	"TradeCore/internal/services/features"
	"TradeCore/internal/services/router"
	"TradeCore/pkg/config"
	applogger "TradeCore/pkg/logger"
)

// DecideResponse is the full outcome of one routing + sizing pass.
type DecideResponse struct {
	Choice     models.PolicyChoice     `json:"choice"`
	Context    models.RouterContext    `json:"context"`
	Execution  models.OptimalExecution `json:"execution"`
	Dispatched bool                    `json:"dispatched"`
}

// DecisionPipeline wires the policy router and the execution optimizer into
// one decision loop: features in, orders (or a hold) out, rewards back.
type DecisionPipeline struct {
	router    *router.Router
	optimizer *execution.Optimizer
	engine    *features.Engine
	guard     domsvc.RiskGuard
	dlog      drepo.DecisionLog // optional
	disp      *OrderDispatcher  // optional
	snapshots drepo.SnapshotStore // optional
	metrics   drepo.Metrics
	log       *applogger.Logger

	weights map[string]float64 // policy id -> target weight
	symbols []string           // configured trading universe

	mu        sync.Mutex
	inventory map[string]float64 // net signed notional per symbol
}

func NewDecisionPipeline(
	rt *router.Router,
	opt *execution.Optimizer,
	engine *features.Engine,
	guard domsvc.RiskGuard,
	dlog drepo.DecisionLog,
	disp *OrderDispatcher,
	snapshots drepo.SnapshotStore,
	metrics drepo.Metrics,
	log *applogger.Logger,
	policies []config.PolicyConfig,
	symbols []string,
) *DecisionPipeline {
	svcmetrics.Register()
	weights := make(map[string]float64, len(policies))
	for _, p := range policies {
		weights[p.ID] = p.TargetWeight
	}
	return &DecisionPipeline{
		router:    rt,
		optimizer: opt,
		engine:    engine,
		guard:     guard,
		dlog:      dlog,
		disp:      disp,
		snapshots: snapshots,
		metrics:   metrics,
		log:       log,
		weights:   weights,
		symbols:   symbols,
		inventory: make(map[string]float64),
	}
}

// Restore warm-starts the router from the snapshot store. Safe to call with
// no snapshot configured or present.
func (p *DecisionPipeline) Restore(ctx context.Context) {
	if p.snapshots == nil {
		return
	}
	ps, err := p.snapshots.LoadPosteriors(ctx)
	if err != nil {
		p.metrics.RecordError("snapshot_load")
		p.log.Warn("posterior snapshot load failed", applogger.Error(err))
		return
	}
	if len(ps) == 0 {
		return
	}
	p.router.Restore(ps)
	p.log.Info("router posteriors restored", applogger.Int("policies", len(ps)))
}

// StartSnapshots persists posteriors on a fixed interval until ctx ends.
// Rewards also snapshot inline, so this is a backstop for quiet periods.
func (p *DecisionPipeline) StartSnapshots(ctx context.Context, interval time.Duration) {
	if p.snapshots == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.saveSnapshot(ctx)
			}
		}
	}()
}

// Decide runs one full pass: assemble context, pick a policy, size the
// book change, gate it, and dispatch unless dry-run.
func (p *DecisionPipeline) Decide(ctx context.Context, req models.DecideRequest) (*DecideResponse, error) {
	start := time.Now()

	symbols := p.universe()
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols in trading universe")
	}

	var rctx models.RouterContext
	if req.Context != nil {
		rctx = *req.Context
	} else {
		rctx = p.aggregateContext(symbols)
	}

	choice := p.router.Choose(rctx)
	p.metrics.RecordDecision(choice.PolicyID)

	desired, feats := p.desiredSizes(choice.PolicyID, symbols)
	res := p.optimizer.OptimizeExecution(desired, p.inventorySnapshot(), feats)

	dispatched, err := p.gateAndDispatch(ctx, choice.PolicyID, &res, req.DryRun)
	if err != nil {
		return nil, err
	}

	p.audit(ctx, choice.PolicyID, &res)
	p.metrics.RecordLatency("decide", time.Since(start).Seconds())
	p.log.Info("decision complete",
		applogger.String("policy", choice.PolicyID),
		applogger.Int("orders", len(res.Orders)),
		applogger.String("method", res.ExecutionMethod),
		applogger.Bool("dispatched", dispatched),
	)

	return &DecideResponse{
		Choice:     choice,
		Context:    rctx,
		Execution:  res,
		Dispatched: dispatched,
	}, nil
}

// Execute runs the optimizer directly on caller-provided sizes, bypassing
// the router. Missing features fall back to the live feature state.
func (p *DecisionPipeline) Execute(ctx context.Context, req models.ExecuteRequest) (*DecideResponse, error) {
	start := time.Now()

	feats := make(map[string]models.SymbolFeatures, len(req.DesiredSizes))
	for sym := range req.DesiredSizes {
		if f, ok := req.Features[sym]; ok {
			feats[sym] = f
		} else if f, ok := p.engine.Features(sym); ok {
			feats[sym] = f
		}
	}

	inv := p.inventorySnapshot()
	for sym, v := range req.Inventory {
		inv[sym] = v
	}

	res := p.optimizer.OptimizeExecution(req.DesiredSizes, inv, feats)
	dispatched, err := p.gateAndDispatch(ctx, "manual", &res, req.DryRun)
	if err != nil {
		return nil, err
	}

	p.audit(ctx, "manual", &res)
	p.metrics.RecordLatency("execute", time.Since(start).Seconds())

	return &DecideResponse{Execution: res, Dispatched: dispatched}, nil
}

// Reward folds one observed reward into the policy posterior and persists
// the updated beliefs.
func (p *DecisionPipeline) Reward(ctx context.Context, req models.RewardRequest) models.PolicyPosterior {
	post := p.router.Update(req.PolicyID, req.Reward, req.Context)
	p.metrics.RecordReward(req.PolicyID, req.Reward)
	svcmetrics.PosteriorMean.WithLabelValues(req.PolicyID).Set(post.Mean())
	p.saveSnapshot(ctx)
	return post
}

// HandleFill closes the loop on one executed order: reward the policy,
// recalibrate impact, adjust inventory, audit.
func (p *DecisionPipeline) HandleFill(ctx context.Context, f *models.Fill) error {
	if f == nil || f.Symbol == "" {
		return fmt.Errorf("invalid fill")
	}

	if f.PolicyID != "" && f.Size > 0 {
		// reward as return on traded notional, bounded
		reward := f.PnL / f.Size
		if reward > 1 {
			reward = 1
		}
		if reward < -1 {
			reward = -1
		}
		p.Reward(ctx, models.RewardRequest{PolicyID: f.PolicyID, Reward: reward})
	}

	p.optimizer.UpdateImpactModel(f.Symbol, f.Size, f.SlippageBps)
	p.metrics.RecordSlippage(f.Symbol, f.SlippageBps)

	p.mu.Lock()
	if f.Side == models.SideSell {
		p.inventory[f.Symbol] -= f.Size
	} else {
		p.inventory[f.Symbol] += f.Size
	}
	p.mu.Unlock()

	if p.dlog != nil {
		if err := p.dlog.LogFill(ctx, f); err != nil {
			p.metrics.RecordError("audit_fill")
			p.log.Warn("fill audit failed", applogger.String("symbol", f.Symbol), applogger.Error(err))
		}
	}
	return nil
}

// Posteriors exposes the router's belief state.
func (p *DecisionPipeline) Posteriors() []models.PolicyPosterior { return p.router.Posteriors() }

// LastDecision exposes the most recent routing decision.
func (p *DecisionPipeline) LastDecision() *models.Decision { return p.router.LastDecision() }

// ImpactModel exposes the calibrated impact model for a symbol.
func (p *DecisionPipeline) ImpactModel(symbol string) models.MarketImpactModel {
	return p.optimizer.ImpactModel(symbol)
}

// Inventory returns the current net signed notional per symbol.
func (p *DecisionPipeline) Inventory() map[string]float64 { return p.inventorySnapshot() }

func (p *DecisionPipeline) universe() []string {
	if len(p.symbols) > 0 {
		return p.symbols
	}
	return p.engine.Symbols()
}

// aggregateContext averages per-symbol signals into one routing context.
// The regime label is a majority vote over the universe.
func (p *DecisionPipeline) aggregateContext(symbols []string) models.RouterContext {
	var agg models.RouterContext
	votes := make(map[string]int)
	n := 0
	for _, sym := range symbols {
		c := p.engine.Context(sym)
		if c.Regime == models.RegimeUnknown && c.RealizedVol == 0 && c.SpreadBps == 0 {
			continue
		}
		agg.RealizedVol += c.RealizedVol
		agg.BookImbalance += c.BookImbalance
		agg.TradeImbalance += c.TradeImbalance
		agg.SpreadBps += c.SpreadBps
		votes[c.Regime]++
		n++
	}
	if n == 0 {
		agg.Regime = models.RegimeUnknown
		return agg
	}
	fn := float64(n)
	agg.RealizedVol /= fn
	agg.BookImbalance /= fn
	agg.TradeImbalance /= fn
	agg.SpreadBps /= fn

	agg.Regime = models.RegimeUnknown
	best := 0
	for regime, v := range votes {
		if v > best || (v == best && regime != models.RegimeUnknown && agg.Regime == models.RegimeUnknown) {
			agg.Regime = regime
			best = v
		}
	}
	return agg
}

// desiredSizes turns the chosen policy's target weight into signed notional
// changes, using the sign of each symbol's expected edge.
func (p *DecisionPipeline) desiredSizes(policyID string, symbols []string) (map[string]float64, map[string]models.SymbolFeatures) {
	tw := p.weights[policyID]
	if tw <= 0 {
		tw = 0.1
	}
	maxSize := p.optimizer.Constraints().MaxSizePerSymbol

	desired := make(map[string]float64, len(symbols))
	feats := make(map[string]models.SymbolFeatures, len(symbols))
	for _, sym := range symbols {
		f, ok := p.engine.Features(sym)
		if !ok {
			continue
		}
		dir := 0.0
		switch {
		case f.ExpectedReturn > 0:
			dir = 1
		case f.ExpectedReturn < 0:
			dir = -1
		case f.BookImbalance > 0:
			dir = 1
		case f.BookImbalance < 0:
			dir = -1
		}
		if dir == 0 {
			continue
		}
		desired[sym] = dir * tw * maxSize
		feats[sym] = f
	}
	return desired, feats
}

func (p *DecisionPipeline) inventorySnapshot() map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]float64, len(p.inventory))
	for k, v := range p.inventory {
		out[k] = v
	}
	return out
}

// gateAndDispatch applies the risk guard and releases orders. On rejection
// the result degrades to a hold in place.
func (p *DecisionPipeline) gateAndDispatch(ctx context.Context, policyID string, res *models.OptimalExecution, dryRun bool) (bool, error) {
	if len(res.Orders) == 0 {
		p.metrics.RecordHold(holdKind(res.Reasoning))
		return false, nil
	}

	if p.guard != nil {
		verdict, err := p.guard.CheckExecution(ctx, res)
		if err != nil {
			p.metrics.RecordError("risk_guard")
			p.log.Warn("risk guard error", applogger.Error(err))
		}
		if !verdict.Approved {
			*res = models.Hold(fmt.Sprintf("risk guard rejected: %s", verdict.Reason))
			p.metrics.RecordHold("risk_guard")
			return false, nil
		}
	}

	if dryRun || p.disp == nil {
		return false, nil
	}
	if err := p.disp.Dispatch(ctx, res.Orders); err != nil {
		return false, fmt.Errorf("dispatch: %w", err)
	}
	return true, nil
}

func (p *DecisionPipeline) audit(ctx context.Context, policyID string, res *models.OptimalExecution) {
	if p.dlog == nil {
		return
	}
	if d := p.router.LastDecision(); d != nil && policyID != "manual" {
		if err := p.dlog.LogDecision(ctx, d); err != nil {
			p.metrics.RecordError("audit_decision")
			p.log.Warn("decision audit failed", applogger.Error(err))
		}
	}
	if err := p.dlog.LogExecution(ctx, policyID, res); err != nil {
		p.metrics.RecordError("audit_execution")
		p.log.Warn("execution audit failed", applogger.Error(err))
	}
}

func (p *DecisionPipeline) saveSnapshot(ctx context.Context) {
	if p.snapshots == nil {
		return
	}
	if err := p.snapshots.SavePosteriors(ctx, p.router.Posteriors()); err != nil {
		p.metrics.RecordError("snapshot_save")
		p.log.Warn("posterior snapshot save failed", applogger.Error(err))
	}
}

// holdKind maps a hold reason to a low-cardinality metric label.
func holdKind(reason string) string {
	switch {
	case strings.Contains(reason, "max notional"):
		return "max_notional"
	case strings.Contains(reason, "per-symbol"):
		return "per_symbol_limit"
	case strings.Contains(reason, "bands"):
		return "inventory_bands"
	case strings.Contains(reason, "slippage"):
		return "slippage_budget"
	case strings.Contains(reason, "minimum order notional"):
		return "min_notional"
	case strings.Contains(reason, "risk guard"):
		return "risk_guard"
	default:
		return "other"
	}
}
