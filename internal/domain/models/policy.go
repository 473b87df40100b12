package models

import "time"

// Regime labels carried in RouterContext. "unknown" is the zero value for
// contexts that arrive without a regime estimate.
const (
	RegimeBull     = "bull"
	RegimeBear     = "bear"
	RegimeSideways = "sideways"
	RegimeUnknown  = "unknown"
)

// RouterContext is a sparse snapshot of market signals at decision time.
// Absent numeric fields are zero; an absent regime is "unknown".
type RouterContext struct {
	Regime         string  `json:"regime,omitempty"`          // "bull", "bear", "sideways", "unknown"
	RealizedVol    float64 `json:"realized_vol,omitempty"`    // realized volatility estimate
	ImpliedVol     float64 `json:"implied_vol,omitempty"`     // implied volatility estimate
	BookImbalance  float64 `json:"book_imbalance,omitempty"`  // order-book imbalance in [-1, 1]
	TradeImbalance float64 `json:"trade_imbalance,omitempty"` // signed trade-flow imbalance in [-1, 1]
	SpreadBps      float64 `json:"spread_bps,omitempty"`      // bid/ask spread in basis points
	RiskReversal   float64 `json:"risk_reversal,omitempty"`   // option skew / risk-reversal
	FundingRate    float64 `json:"funding_rate,omitempty"`    // perp funding rate
	Sentiment      float64 `json:"sentiment,omitempty"`       // sentiment score in [-1, 1]
	OnChainFlow    float64 `json:"onchain_flow,omitempty"`    // net on-chain flow signal
}

// PolicyPosterior is the per-policy reward belief: a Beta(Alpha, Beta)
// distribution plus online sums for mean/variance. Alpha and Beta start at 1
// and only grow.
type PolicyPosterior struct {
	PolicyID    string  `json:"policy_id"`
	Alpha       float64 `json:"alpha"`
	Beta        float64 `json:"beta"`
	Count       int64   `json:"count"`
	SumReward   float64 `json:"sum_reward"`
	SumRewardSq float64 `json:"sum_reward_sq"`
}

// NewPolicyPosterior returns a flat Beta(1,1) prior for a policy.
func NewPolicyPosterior(policyID string) PolicyPosterior {
	return PolicyPosterior{PolicyID: policyID, Alpha: 1, Beta: 1}
}

// Mean returns the average observed reward, or 0 before any update.
func (p PolicyPosterior) Mean() float64 {
	if p.Count == 0 {
		return 0
	}
	return p.SumReward / float64(p.Count)
}

// Variance returns the online reward variance. With at most one sample the
// variance is undefined and reported as 1 (maximum uncertainty).
func (p PolicyPosterior) Variance() float64 {
	if p.Count <= 1 {
		return 1
	}
	m := p.Mean()
	v := p.SumRewardSq/float64(p.Count) - m*m
	if v < 0 {
		return 0
	}
	return v
}

// PolicyChoice is the outcome of one routing decision. Ephemeral: only the
// most recent choice is retained for audit.
type PolicyChoice struct {
	PolicyID         string    `json:"policy_id"`
	Score            float64   `json:"score"`
	ExplorationBonus float64   `json:"exploration_bonus"`
	Confidence       float64   `json:"confidence"`
	Timestamp        time.Time `json:"timestamp"`
}

// Decision pairs a choice with the context it was made under, for the
// introspection endpoint and the audit log.
type Decision struct {
	Choice  PolicyChoice  `json:"choice"`
	Context RouterContext `json:"context"`
}
