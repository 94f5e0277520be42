package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/veloxschool/sims-api/internal/datatable"
	"github.com/veloxschool/sims-api/internal/models"
	appErrors "github.com/veloxschool/sims-api/pkg/errors"
)

// MasterRepository is the persistence contract every master entity engine
// satisfies.
type MasterRepository[T any, PT datatable.Recordable[T]] interface {
	List(ctx context.Context, scope models.Scope, req models.PageRequest) (*models.PageResult[T], error)
	FindByID(ctx context.Context, scope models.Scope, id string) (*T, error)
	ExistsByName(ctx context.Context, scope models.Scope, name, excludeID string) (bool, error)
	NextSortOrder(ctx context.Context, scope models.Scope) (int, error)
	Insert(ctx context.Context, scope models.Scope, rec PT) error
	Update(ctx context.Context, scope models.Scope, rec PT) error
	Delete(ctx context.Context, scope models.Scope, id string) error
	Lookup(ctx context.Context, scope models.Scope) ([]models.LookupItem, error)
}

// SaveHook runs before a create or update is persisted. Entities with
// cross-record rules (subject mappings, shifts) attach one.
type SaveHook[T any, PT datatable.Recordable[T]] func(ctx context.Context, scope models.Scope, rec PT, isCreate bool) error

// MasterService drives the shared search/CRUD flow for one master entity.
// Every entity gets the same scope checks, validation, duplicate handling and
// cache invalidation; only the descriptor and hooks differ.
type MasterService[T any, PT datatable.Recordable[T]] struct {
	repo       MasterRepository[T, PT]
	entity     string
	validator  *validator.Validate
	logger     *zap.Logger
	cache      *CacheService
	metrics    *MetricsService
	beforeSave SaveHook[T, PT]
}

// MasterServiceParams groups constructor dependencies.
type MasterServiceParams[T any, PT datatable.Recordable[T]] struct {
	Repo       MasterRepository[T, PT]
	Entity     string
	Validator  *validator.Validate
	Logger     *zap.Logger
	Cache      *CacheService
	Metrics    *MetricsService
	BeforeSave SaveHook[T, PT]
}

// NewMasterService constructs a MasterService.
func NewMasterService[T any, PT datatable.Recordable[T]](params MasterServiceParams[T, PT]) *MasterService[T, PT] {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &MasterService[T, PT]{
		repo:       params.Repo,
		entity:     params.Entity,
		validator:  params.Validator,
		logger:     params.Logger,
		cache:      params.Cache,
		metrics:    params.Metrics,
		beforeSave: params.BeforeSave,
	}
}

// Entity returns the entity name used in routes and messages.
func (s *MasterService[T, PT]) Entity() string {
	return s.entity
}

// Search returns one grid window for the scope.
func (s *MasterService[T, PT]) Search(ctx context.Context, scope models.Scope, req models.PageRequest) (*models.PageResult[T], error) {
	if err := s.requireScope(scope); err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := s.repo.List(ctx, scope, req)
	if s.metrics != nil {
		s.metrics.ObserveGridSearch(s.entity, time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to search %s", s.entity))
	}
	return result, nil
}

// Get returns one record by identifier.
func (s *MasterService[T, PT]) Get(ctx context.Context, scope models.Scope, id string) (*T, error) {
	if err := s.requireScope(scope); err != nil {
		return nil, err
	}
	rec, err := s.repo.FindByID(ctx, scope, id)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", s.entity))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s", s.entity))
	}
	return rec, nil
}

// Create validates and persists a new record.
func (s *MasterService[T, PT]) Create(ctx context.Context, scope models.Scope, rec PT) (*T, error) {
	if err := s.requireScope(scope); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid %s payload", s.entity))
	}
	if s.beforeSave != nil {
		if err := s.beforeSave(ctx, scope, rec, true); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Insert(ctx, scope, rec); err != nil {
		return nil, s.mapWriteError(err, "create")
	}
	s.invalidate(ctx, scope)
	s.logger.Info("record created",
		zap.String("entity", s.entity),
		zap.String("id", rec.RecordID()),
		zap.String("tenant", scope.TenantCode))
	return (*T)(rec), nil
}

// Update validates and persists changes to an existing record.
func (s *MasterService[T, PT]) Update(ctx context.Context, scope models.Scope, id string, rec PT) (*T, error) {
	if err := s.requireScope(scope); err != nil {
		return nil, err
	}
	rec.SetRecordID(id)
	if err := s.validator.Struct(rec); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid %s payload", s.entity))
	}
	if s.beforeSave != nil {
		if err := s.beforeSave(ctx, scope, rec, false); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, scope, rec); err != nil {
		return nil, s.mapWriteError(err, "update")
	}
	s.invalidate(ctx, scope)
	s.logger.Info("record updated",
		zap.String("entity", s.entity),
		zap.String("id", id),
		zap.String("tenant", scope.TenantCode))
	return (*T)(rec), nil
}

// Delete removes a record. Most entities soft-delete; the descriptor decides.
func (s *MasterService[T, PT]) Delete(ctx context.Context, scope models.Scope, id string) error {
	if err := s.requireScope(scope); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, scope, id); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", s.entity))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to delete %s", s.entity))
	}
	s.invalidate(ctx, scope)
	s.logger.Info("record deleted",
		zap.String("entity", s.entity),
		zap.String("id", id),
		zap.String("tenant", scope.TenantCode))
	return nil
}

// NextSortOrder previews the position a new record would take. Informational
// only; the insert recomputes it atomically.
func (s *MasterService[T, PT]) NextSortOrder(ctx context.Context, scope models.Scope) (int, error) {
	if err := s.requireScope(scope); err != nil {
		return 0, err
	}
	next, err := s.repo.NextSortOrder(ctx, scope)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to compute %s sort order", s.entity))
	}
	return next, nil
}

// CheckDuplicate reports whether a visible record already uses the name.
func (s *MasterService[T, PT]) CheckDuplicate(ctx context.Context, scope models.Scope, name, excludeID string) (bool, error) {
	if err := s.requireScope(scope); err != nil {
		return false, err
	}
	exists, err := s.repo.ExistsByName(ctx, scope, name, excludeID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to check %s name", s.entity))
	}
	return exists, nil
}

// Lookup returns the dropdown list, optionally prefixed with the ALL sentinel.
func (s *MasterService[T, PT]) Lookup(ctx context.Context, scope models.Scope, includeAll bool) ([]models.LookupItem, error) {
	if err := s.requireScope(scope); err != nil {
		return nil, err
	}
	items, err := s.repo.Lookup(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to list %s options", s.entity))
	}
	if includeAll {
		items = append([]models.LookupItem{{ID: "", Name: "ALL"}}, items...)
	}
	return items, nil
}

func (s *MasterService[T, PT]) requireScope(scope models.Scope) error {
	if !scope.Valid() {
		return appErrors.Clone(appErrors.ErrTenantScope, "")
	}
	return nil
}

func (s *MasterService[T, PT]) invalidate(ctx context.Context, scope models.Scope) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTenant(ctx, scope); err != nil {
		s.logger.Warn("tenant cache invalidation failed",
			zap.String("entity", s.entity),
			zap.String("tenant", scope.TenantCode),
			zap.Error(err))
	}
}

func (s *MasterService[T, PT]) mapWriteError(err error, op string) error {
	switch {
	case errors.Is(err, appErrors.ErrDuplicate):
		return appErrors.Clone(appErrors.ErrDuplicate, fmt.Sprintf("%s name already exists", s.entity))
	case errors.Is(err, appErrors.ErrNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", s.entity))
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to %s %s", op, s.entity))
	}
}
