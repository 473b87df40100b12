package models

// Requests for decision-core HTTP endpoints. Defined in domain for
// consistency and reuse.

// DecideRequest triggers one routing + sizing pass over the configured
// instruments. DryRun skips order dispatch and audit publishing.
type DecideRequest struct {
	DryRun  bool           `query:"dry_run" json:"dry_run"`
	Context *RouterContext `json:"context"` // optional override; defaults to live features
}

// RewardRequest feeds an observed reward back to a policy's posterior.
type RewardRequest struct {
	PolicyID string         `json:"policy_id" validate:"required"`
	Reward   float64        `json:"reward" validate:"gte=-1e6,lte=1e6"`
	Context  *RouterContext `json:"context"`
}

// ExecuteRequest runs the execution optimizer directly, without the policy
// router. Features fall back to the live feature state for missing symbols.
type ExecuteRequest struct {
	DesiredSizes map[string]float64        `json:"desired_sizes" validate:"required,min=1"`
	Inventory    map[string]float64        `json:"inventory"`
	Features     map[string]SymbolFeatures `json:"features"`
	DryRun       bool                      `json:"dry_run"`
}

// FillRequest reports an execution fill (the HTTP alternative to the Kafka
// fills topic).
type FillRequest struct {
	Symbol      string  `json:"symbol" validate:"required"`
	PolicyID    string  `json:"policy_id"`
	Side        string  `json:"side" validate:"omitempty,oneof=buy sell"`
	Size        float64 `json:"size" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	SlippageBps float64 `json:"slippage_bps"`
	PnL         float64 `json:"pnl"`
}

// ImpactRequest queries the calibrated impact model for one symbol.
type ImpactRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}
