package models

// RiskVerdict is the pre-trade approval decision from the risk guard.
type RiskVerdict struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}
