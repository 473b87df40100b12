package repository

import (
	"context"
	"errors"
	"fmt"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	"TradeCore/pkg/cache"
)

const posteriorSnapshotKey = "router:posteriors"

// CacheSnapshotStore persists router posteriors through the shared cache
// service so a restarted process resumes with its learned beliefs.
type CacheSnapshotStore struct {
	cache cache.Service
}

func NewCacheSnapshotStore(c cache.Service) *CacheSnapshotStore {
	return &CacheSnapshotStore{cache: c}
}

func (s *CacheSnapshotStore) SavePosteriors(ctx context.Context, ps []models.PolicyPosterior) error {
	if err := s.cache.Set(ctx, posteriorSnapshotKey, ps, 0); err != nil {
		return fmt.Errorf("save posteriors: %w", err)
	}
	return nil
}

func (s *CacheSnapshotStore) LoadPosteriors(ctx context.Context) ([]models.PolicyPosterior, error) {
	var ps []models.PolicyPosterior
	err := s.cache.Get(ctx, posteriorSnapshotKey, &ps)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load posteriors: %w", err)
	}
	return ps, nil
}

var _ domrepo.SnapshotStore = (*CacheSnapshotStore)(nil)
