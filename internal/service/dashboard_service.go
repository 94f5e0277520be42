package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/veloxschool/sims-api/internal/dto"
	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

type dashboardRepository interface {
	DashboardCounts(ctx context.Context, scope models.Scope) (*dto.DashboardCounts, error)
	DashboardCollection(ctx context.Context, scope models.Scope, now time.Time) (*dto.DashboardCollection, error)
	RecentReceipts(ctx context.Context, scope models.Scope, limit int) ([]dto.DashboardReceipt, error)
	RecentNotices(ctx context.Context, scope models.Scope, limit int) ([]dto.DashboardNotice, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL      time.Duration
	ReceiptsLimit int
	NoticesLimit  int
}

// DashboardService composes the landing-page payload with a per-tenant
// cache-aside window.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(repo dashboardRepository, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ReceiptsLimit <= 0 {
		cfg.ReceiptsLimit = 10
	}
	if cfg.NoticesLimit <= 0 {
		cfg.NoticesLimit = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, now: time.Now, cfg: cfg}
}

// Summary returns the dashboard payload and indicates cache utilisation.
func (s *DashboardService) Summary(ctx context.Context, scope models.Scope) (*dto.DashboardResponse, bool, error) {
	if !scope.Valid() {
		return nil, false, appErrors.Clone(appErrors.ErrTenantScope, "")
	}

	cacheKey := TenantKey(scope, "dashboard")
	if s.cache != nil {
		var cached dto.DashboardResponse
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			return nil, false, err
		}
		if hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compose(ctx, scope)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context, scope models.Scope) (*dto.DashboardResponse, error) {
	now := s.now().UTC()

	counts, err := s.repo.DashboardCounts(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard counts")
	}
	collection, err := s.repo.DashboardCollection(ctx, scope, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee collection")
	}
	receipts, err := s.repo.RecentReceipts(ctx, scope, s.cfg.ReceiptsLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent receipts")
	}
	notices, err := s.repo.RecentNotices(ctx, scope, s.cfg.NoticesLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent notices")
	}

	return &dto.DashboardResponse{
		Counts:         *counts,
		Collection:     *collection,
		RecentReceipts: receipts,
		Notices:        notices,
		GeneratedAt:    now,
	}, nil
}
