package riskguard

import (
	"context"
	"fmt"
	"time"

	"TradeCore/internal/domain/models"
	domsvc "TradeCore/internal/domain/service"
	"TradeCore/pkg/config"
	xhttp "TradeCore/pkg/http"
)

// HTTPRiskGuard asks an external risk service to approve an execution plan
// before orders are dispatched. When FailOpen is set, transport errors
// approve the plan; otherwise they reject it with the error as reason.
type HTTPRiskGuard struct {
	baseURL  string
	failOpen bool
	client   *xhttp.Client
}

func NewHTTPRiskGuard(cfg *config.Config) *HTTPRiskGuard {
	timeout := cfg.RiskGuard.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPRiskGuard{
		baseURL:  cfg.RiskGuard.URL,
		failOpen: cfg.RiskGuard.FailOpen,
		client:   xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type checkRequest struct {
	Orders           []models.ExecutionOrder `json:"orders"`
	TotalCost        float64                 `json:"total_cost"`
	ExpectedSlippage float64                 `json:"expected_slippage"`
	RiskScore        float64                 `json:"risk_score"`
}

type checkResponse struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

func (g *HTTPRiskGuard) CheckExecution(ctx context.Context, res *models.OptimalExecution) (models.RiskVerdict, error) {
	if g.baseURL == "" {
		// no guard configured: local approval
		return models.RiskVerdict{Approved: true}, nil
	}

	var cr checkResponse
	err := g.postWithRetry(ctx, "/risk/check", checkRequest{
		Orders:           res.Orders,
		TotalCost:        res.TotalCost,
		ExpectedSlippage: res.ExpectedSlippage,
		RiskScore:        res.RiskScore,
	}, &cr, 3)
	if err != nil {
		if g.failOpen {
			return models.RiskVerdict{Approved: true, Reason: "risk guard unreachable, failing open"}, nil
		}
		return models.RiskVerdict{Approved: false, Reason: err.Error()}, err
	}
	return models.RiskVerdict{Approved: cr.Approved, Reason: cr.Reason}, nil
}

func (g *HTTPRiskGuard) post(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	err := g.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    g.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

func (g *HTTPRiskGuard) postWithRetry(ctx context.Context, path string, payload interface{}, dest interface{}, attempts int) error {
	if attempts <= 1 {
		return g.post(ctx, path, payload, dest)
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = g.post(ctx, path, payload, dest)
		if err == nil {
			return nil
		}
		// simple backoff
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

var _ domsvc.RiskGuard = (*HTTPRiskGuard)(nil)
