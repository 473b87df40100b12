package models

// Tick is one market-data event from the exchange stream: a trade print
// and/or a top-of-book update. Timestamp is unix seconds.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"t"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	BidSize   float64 `json:"bid_size"`
	AskSize   float64 `json:"ask_size"`
	Side      string  `json:"side,omitempty"` // aggressor side of a trade, if known
}

// Fill is the exchange gateway's report for an executed order. SlippageBps
// feeds impact-model calibration; PnL feeds the policy reward loop.
type Fill struct {
	Symbol      string  `json:"symbol"`
	PolicyID    string  `json:"policy_id"`
	Side        string  `json:"side"`
	Size        float64 `json:"size"`
	Price       float64 `json:"price"`
	SlippageBps float64 `json:"slippage_bps"`
	PnL         float64 `json:"pnl"`
	Timestamp   int64   `json:"t"`
}
