package usecase

import (
	"context"
	"fmt"
	"time"

	"medcatalog-backend/config"
	"medcatalog-backend/internal/domain"
	"medcatalog-backend/pkg/cache"

	"github.com/goccy/go-json"
)

const facetCacheKey = "medicines:filters"

// FacetUsecase serves the distinct filter values that populate filter UIs.
// The snapshot is eventually consistent: it is refreshed only by TTL expiry,
// never by catalog writes.
type FacetUsecase struct {
	repo  domain.MedicineRepository
	cache cache.CacheService
	cfg   *config.Config
}

func NewFacetUsecase(repo domain.MedicineRepository, cache cache.CacheService, cfg *config.Config) *FacetUsecase {
	return &FacetUsecase{
		repo:  repo,
		cache: cache,
		cfg:   cfg,
	}
}

// GetFilterOptions returns the facet snapshot and whether it came from cache.
func (u *FacetUsecase) GetFilterOptions(ctx context.Context) (*domain.FacetSnapshot, bool, error) {
	if b, found := u.cache.Get(ctx, facetCacheKey); found {
		var snap domain.FacetSnapshot
		if err := json.Unmarshal(b, &snap); err == nil {
			return &snap, true, nil
		}
	}

	qctx, cancel := context.WithTimeout(ctx, u.queryTimeout())
	defer cancel()

	snap, err := u.repo.FacetValues(qctx)
	if err != nil {
		return nil, false, fmt.Errorf("facet aggregation: %w", err)
	}

	if payload, err := json.Marshal(snap); err == nil {
		u.cache.Set(ctx, facetCacheKey, payload, u.cfg.CacheFacetTTL)
	}
	return snap, false, nil
}

func (u *FacetUsecase) queryTimeout() time.Duration {
	if u.cfg.QueryTimeout > 0 {
		return u.cfg.QueryTimeout
	}
	return 5 * time.Second
}
