package service

import (
	"context"

	"TradeCore/internal/domain/models"
)

// RiskGuard is the external pre-trade approval hook. Implementations must
// fail open or closed according to configuration, not panic.
type RiskGuard interface {
	CheckExecution(ctx context.Context, res *models.OptimalExecution) (models.RiskVerdict, error)
}
