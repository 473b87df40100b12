package router

import "TradeCore/internal/domain/models"

// Fixed feature-vector layout shared by scoring and weight updates. The
// regime label is one-hot encoded; every other signal maps to one slot.
// Absent fields featurize to 0, so sparse contexts are handled uniformly.
const (
	idxRegimeBull = iota
	idxRegimeBear
	idxRegimeSideways
	idxRealizedVol
	idxImpliedVol
	idxBookImbalance
	idxTradeImbalance
	idxSpreadBps
	idxRiskReversal
	idxFundingRate
	idxSentiment
	idxOnChainFlow

	// FeatureDim is the length of every feature vector and of the shared
	// weight vector.
	FeatureDim
)

// Featurize converts a sparse RouterContext into the fixed-order numeric
// vector used for contextual scoring.
func Featurize(ctx models.RouterContext) []float64 {
	f := make([]float64, FeatureDim)
	switch ctx.Regime {
	case models.RegimeBull:
		f[idxRegimeBull] = 1
	case models.RegimeBear:
		f[idxRegimeBear] = 1
	case models.RegimeSideways:
		f[idxRegimeSideways] = 1
	}
	f[idxRealizedVol] = ctx.RealizedVol
	f[idxImpliedVol] = ctx.ImpliedVol
	f[idxBookImbalance] = ctx.BookImbalance
	f[idxTradeImbalance] = ctx.TradeImbalance
	f[idxSpreadBps] = ctx.SpreadBps
	f[idxRiskReversal] = ctx.RiskReversal
	f[idxFundingRate] = ctx.FundingRate
	f[idxSentiment] = ctx.Sentiment
	f[idxOnChainFlow] = ctx.OnChainFlow
	return f
}
