package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

type lookupRepository interface {
	Classes(ctx context.Context, scope models.Scope) ([]models.LookupItem, error)
	Sections(ctx context.Context, scope models.Scope, classID string) ([]models.LookupItem, error)
	Subjects(ctx context.Context, scope models.Scope) ([]models.LookupItem, error)
	Exams(ctx context.Context, scope models.Scope) ([]models.LookupItem, error)
	FeeCategories(ctx context.Context, scope models.Scope) ([]models.LookupItem, error)
}

// LookupService serves the dropdown lists. Lists are cached per tenant for a
// short window; any write invalidates the whole tenant prefix.
type LookupService struct {
	repo     lookupRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewLookupService constructs a LookupService.
func NewLookupService(repo lookupRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *LookupService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LookupService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Classes returns the class dropdown.
func (s *LookupService) Classes(ctx context.Context, scope models.Scope, includeAll bool) ([]models.LookupItem, error) {
	return s.serve(ctx, scope, "classes", includeAll, func(ctx context.Context) ([]models.LookupItem, error) {
		return s.repo.Classes(ctx, scope)
	})
}

// Sections returns the section dropdown, optionally limited to one class.
func (s *LookupService) Sections(ctx context.Context, scope models.Scope, classID string, includeAll bool) ([]models.LookupItem, error) {
	key := "sections"
	if classID != "" {
		key += ":" + classID
	}
	return s.serve(ctx, scope, key, includeAll, func(ctx context.Context) ([]models.LookupItem, error) {
		return s.repo.Sections(ctx, scope, classID)
	})
}

// Subjects returns the subject dropdown.
func (s *LookupService) Subjects(ctx context.Context, scope models.Scope, includeAll bool) ([]models.LookupItem, error) {
	return s.serve(ctx, scope, "subjects", includeAll, func(ctx context.Context) ([]models.LookupItem, error) {
		return s.repo.Subjects(ctx, scope)
	})
}

// Exams returns the exam dropdown.
func (s *LookupService) Exams(ctx context.Context, scope models.Scope, includeAll bool) ([]models.LookupItem, error) {
	return s.serve(ctx, scope, "exams", includeAll, func(ctx context.Context) ([]models.LookupItem, error) {
		return s.repo.Exams(ctx, scope)
	})
}

// FeeCategories returns the fee category dropdown.
func (s *LookupService) FeeCategories(ctx context.Context, scope models.Scope, includeAll bool) ([]models.LookupItem, error) {
	return s.serve(ctx, scope, "fee-categories", includeAll, func(ctx context.Context) ([]models.LookupItem, error) {
		return s.repo.FeeCategories(ctx, scope)
	})
}

func (s *LookupService) serve(ctx context.Context, scope models.Scope, name string, includeAll bool, load func(context.Context) ([]models.LookupItem, error)) ([]models.LookupItem, error) {
	if !scope.Valid() {
		return nil, appErrors.Clone(appErrors.ErrTenantScope, "")
	}

	cacheKey := TenantKey(scope, "lookup", name)
	var items []models.LookupItem
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &items); err == nil && hit {
			return s.withAll(items, includeAll), nil
		}
	}

	items, err := load(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+name)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, items, s.cacheTTL); err != nil {
			s.logger.Warn("lookup cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return s.withAll(items, includeAll), nil
}

// withAll prepends the ALL sentinel without mutating the cached slice.
func (s *LookupService) withAll(items []models.LookupItem, includeAll bool) []models.LookupItem {
	if !includeAll {
		return items
	}
	return append([]models.LookupItem{{ID: "", Name: "ALL"}}, items...)
}
