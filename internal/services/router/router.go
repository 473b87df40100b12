package router

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"TradeCore/internal/domain/models"
)

// Config tunes the router's learning and exploration behavior.
type Config struct {
	// LearningRate scales gradient updates of the shared feature weights.
	LearningRate float64
	// BreakoutImbalanceLevel is the |book imbalance| above which breakout
	// policies receive a contextual bonus.
	BreakoutImbalanceLevel float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		LearningRate:           0.01,
		BreakoutImbalanceLevel: 0.3,
	}
}

// Router is a contextual multi-armed bandit over a fixed set of trading
// policies. It keeps one Beta reward posterior per policy plus a single
// feature-weight vector shared across all policies: a reward attributed to
// one policy shifts every policy's contextual score. That sharing is
// intentional (faster global learning on sparse rewards).
//
// All state is guarded by one mutex; Choose and Update are safe for
// concurrent use and complete in bounded time.
type Router struct {
	mu  sync.Mutex
	cfg Config
	rng *rand.Rand

	ids        []string // registration order, also the tie-break order
	posteriors map[string]*models.PolicyPosterior
	weights    []float64
	decisions  int64
	last       *models.Decision
}

// New builds a router over the given policy ids. An empty id set is a
// configuration error. rng drives Thompson sampling; pass a seeded source
// for reproducible decisions, or nil for a time-seeded one.
func New(policyIDs []string, cfg Config, rng *rand.Rand) (*Router, error) {
	if len(policyIDs) == 0 {
		return nil, fmt.Errorf("router: at least one policy is required")
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = DefaultConfig().LearningRate
	}
	if cfg.BreakoutImbalanceLevel <= 0 {
		cfg.BreakoutImbalanceLevel = DefaultConfig().BreakoutImbalanceLevel
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	r := &Router{
		cfg:        cfg,
		rng:        rng,
		posteriors: make(map[string]*models.PolicyPosterior, len(policyIDs)),
		weights:    make([]float64, FeatureDim),
	}
	for _, id := range policyIDs {
		if _, dup := r.posteriors[id]; dup {
			return nil, fmt.Errorf("router: duplicate policy id %q", id)
		}
		p := models.NewPolicyPosterior(id)
		r.posteriors[id] = &p
		r.ids = append(r.ids, id)
	}
	return r, nil
}

// Choose samples every policy's posterior, adds the contextual score and an
// exploration bonus, and returns the maximizer. Ties go to the earliest
// registered policy (strictly-greater comparison), which keeps selection
// deterministic for a fixed RNG state.
func (r *Router) Choose(ctx models.RouterContext) models.PolicyChoice {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.decisions++
	f := Featurize(ctx)
	contextual := dot(r.weights, f)

	var best models.PolicyChoice
	for i, id := range r.ids {
		p := r.posteriors[id]
		score := r.sampleBeta(p.Alpha, p.Beta) +
			contextual +
			policyBias(id, ctx, r.cfg.BreakoutImbalanceLevel)
		bonus := r.explorationBonus(p.Count)
		total := score + bonus

		if i == 0 || total > best.Score {
			best = models.PolicyChoice{
				PolicyID:         id,
				Score:            total,
				ExplorationBonus: bonus,
				Confidence:       confidence(p),
			}
		}
	}
	best.Timestamp = time.Now()
	r.last = &models.Decision{Choice: best, Context: ctx}
	return best
}

// Update folds one observed reward into the policy's posterior and, when a
// context is supplied, gradient-updates the shared feature weights. Unknown
// policy ids are auto-registered with a flat prior rather than rejected.
// Returns the updated posterior for observability.
func (r *Router) Update(policyID string, reward float64, ctx *models.RouterContext) models.PolicyPosterior {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posteriors[policyID]
	if !ok {
		np := models.NewPolicyPosterior(policyID)
		p = &np
		r.posteriors[policyID] = p
		r.ids = append(r.ids, policyID)
	}

	if reward > 0 {
		p.Alpha += reward
	} else {
		p.Beta += math.Abs(reward)
	}
	p.Count++
	p.SumReward += reward
	p.SumRewardSq += reward * reward

	if ctx != nil {
		f := Featurize(*ctx)
		for i := range r.weights {
			r.weights[i] += r.cfg.LearningRate * reward * f[i]
		}
	}
	return *p
}

// LastDecision returns the most recent choice with its context, or nil
// before the first Choose.
func (r *Router) LastDecision() *models.Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	d := *r.last
	return &d
}

// Posteriors returns a snapshot of every policy's belief state in
// registration order.
func (r *Router) Posteriors() []models.PolicyPosterior {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.PolicyPosterior, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, *r.posteriors[id])
	}
	return out
}

// Restore warm-starts posteriors from a snapshot (e.g. loaded from the
// snapshot store after a restart). Unknown ids are registered; decision
// counters resume from the restored counts.
func (r *Router) Restore(snapshot []models.PolicyPosterior) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range snapshot {
		s := snapshot[i]
		if s.PolicyID == "" || s.Alpha < 1 || s.Beta < 1 {
			continue
		}
		if p, ok := r.posteriors[s.PolicyID]; ok {
			*p = s
		} else {
			cp := s
			r.posteriors[s.PolicyID] = &cp
			r.ids = append(r.ids, s.PolicyID)
		}
		r.decisions += s.Count
	}
}

// sampleBeta draws an approximate Beta(alpha, beta) sample via the
// ratio-of-uniforms form x/(x+y) with x=u1^(1/alpha), y=u2^(1/beta). Good
// enough for ranking arms; not an exact sampler, so never use it for
// tail-probability estimates.
func (r *Router) sampleBeta(alpha, beta float64) float64 {
	x := math.Pow(r.rng.Float64(), 1/alpha)
	y := math.Pow(r.rng.Float64(), 1/beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// explorationBonus is the UCB term sqrt(2*ln(N)/max(1,n)).
func (r *Router) explorationBonus(count int64) float64 {
	n := float64(count)
	if n < 1 {
		n = 1
	}
	return math.Sqrt(2 * math.Log(float64(r.decisions)) / n)
}

// confidence grows with sample count and shrinks with reward variance.
func confidence(p *models.PolicyPosterior) float64 {
	n := float64(p.Count)
	return (n / (n + 10)) / (1 + p.Variance())
}

// policyBias applies small per-policy heuristics keyed off the policy id.
// Breakout policies like one-sided books, momentum policies like flow that
// agrees with the regime, mean-reversion likes quiet sideways tape, carry
// policies like a funding skew.
func policyBias(id string, ctx models.RouterContext, breakoutLevel float64) float64 {
	var bias float64
	lid := strings.ToLower(id)
	switch {
	case strings.Contains(lid, "breakout"):
		if math.Abs(ctx.BookImbalance) > breakoutLevel {
			bias += 0.1
		}
	case strings.Contains(lid, "momentum") || strings.Contains(lid, "trend"):
		if (ctx.Regime == models.RegimeBull && ctx.TradeImbalance > 0) ||
			(ctx.Regime == models.RegimeBear && ctx.TradeImbalance < 0) {
			bias += 0.08
		}
	case strings.Contains(lid, "revert") || strings.Contains(lid, "meanrev"):
		if ctx.Regime == models.RegimeSideways {
			bias += 0.08
		}
	case strings.Contains(lid, "carry") || strings.Contains(lid, "funding"):
		if math.Abs(ctx.FundingRate) > 1e-4 {
			bias += 0.05
		}
	}
	return bias
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
