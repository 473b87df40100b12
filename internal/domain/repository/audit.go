package repository

import (
	"context"

	"TradeCore/internal/domain/models"
)

// AuditQuery provides read-only access to the decision and fill history for
// introspection endpoints.
type AuditQuery interface {
	RecentDecisions(ctx context.Context, limit int) ([]models.Decision, error)
	RecentFills(ctx context.Context, symbol string, limit int) ([]models.Fill, error)
}
