package lifecycle

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/shared"
)

// Entity is the contract every managed entity satisfies: an identifier plus
// the ownership attributes the authorization fallback needs.
type Entity interface {
	EntityID() int64
	CreatedByID() int64
	// AssignedToID returns the assignee and whether the entity carries an
	// assignment attribute at all.
	AssignedToID() (int64, bool)
}

// Store supplies the persistence primitives for one entity type. FindByID
// must exclude soft-deleted rows; SoftDelete sets the deletion timestamp;
// HardDelete removes the row physically.
type Store[T Entity, C any, U any] interface {
	Create(ctx context.Context, input C, createdBy int64) (T, error)
	FindMany(ctx context.Context, clause Clause, order Order, offset, limit int) ([]T, error)
	FindByID(ctx context.Context, id int64) (T, error)
	Update(ctx context.Context, id int64, input U) (T, error)
	SoftDelete(ctx context.Context, id int64) error
	HardDelete(ctx context.Context, id int64) error
	Count(ctx context.Context, clause Clause) (int, error)
}

// Service orchestrates the lifecycle of one entity type: permission
// sequencing, pagination, soft-delete filtering and the ownership fallback.
// Entity packages inject their store and optionally override the where and
// order builders.
//
// Every mutating operation evaluates its permission check before any store
// primitive runs; a failed check short-circuits with shared.ErrForbidden
// and no store call is made. Store errors are logged and re-raised
// unchanged so entity-specific error types reach the transport layer.
type Service[T Entity, C any, U any] struct {
	resource   authz.Resource
	store      Store[T, C, U]
	engine     *authz.Service
	logger     *slog.Logger
	buildWhere WhereFunc
	buildOrder OrderFunc
}

// Option customizes a lifecycle service.
type Option func(*options)

type options struct {
	where WhereFunc
	order OrderFunc
}

// WithWhere overrides the default clause builder.
func WithWhere(fn WhereFunc) Option {
	return func(o *options) { o.where = fn }
}

// WithOrder overrides the default order builder.
func WithOrder(fn OrderFunc) Option {
	return func(o *options) { o.order = fn }
}

// NewService constructs a lifecycle service for one entity type.
func NewService[T Entity, C any, U any](resource authz.Resource, store Store[T, C, U], engine *authz.Service, logger *slog.Logger, opts ...Option) *Service[T, C, U] {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := options{where: DefaultWhere, order: DefaultOrder}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Service[T, C, U]{
		resource:   resource,
		store:      store,
		engine:     engine,
		logger:     logger,
		buildWhere: cfg.where,
		buildOrder: cfg.order,
	}
}

// Resource returns the resource kind this service manages.
func (s *Service[T, C, U]) Resource() authz.Resource {
	return s.resource
}

// Create checks the create permission and delegates to the store.
func (s *Service[T, C, U]) Create(ctx context.Context, input C, principalID int64) (T, error) {
	var zero T
	if !s.engine.HasPermission(ctx, principalID, authz.Check{Resource: s.resource, Action: authz.ActionCreate}, nil) {
		return zero, shared.ErrForbidden
	}
	created, err := s.store.Create(ctx, input, principalID)
	if err != nil {
		s.logger.Error("lifecycle create", slog.String("resource", string(s.resource)), slog.Any("error", err))
		return zero, err
	}
	s.logger.Info("lifecycle created", slog.String("resource", string(s.resource)), slog.Int64("id", created.EntityID()))
	return created, nil
}

// FindAll checks the read permission and returns one page of entities with
// pagination metadata. The count and data queries run concurrently; strict
// consistency between them under concurrent writes is not guaranteed.
func (s *Service[T, C, U]) FindAll(ctx context.Context, principalID int64, req shared.PageRequest) (shared.Page[T], error) {
	if !s.engine.HasPermission(ctx, principalID, authz.Check{Resource: s.resource, Action: authz.ActionRead}, nil) {
		return shared.Page[T]{}, shared.ErrForbidden
	}
	req = req.Normalize()
	clause := s.buildWhere(ctx, principalID, req)
	order := s.buildOrder(req)

	var (
		items []T
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := s.store.FindMany(gctx, clause, order, req.Offset(), req.Limit)
		if err != nil {
			return err
		}
		items = result
		return nil
	})
	g.Go(func() error {
		count, err := s.store.Count(gctx, clause)
		if err != nil {
			return err
		}
		total = count
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("lifecycle list", slog.String("resource", string(s.resource)), slog.Any("error", err))
		return shared.Page[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	return shared.Page[T]{Data: items, Meta: shared.NewPageMeta(req.Page, req.Limit, total)}, nil
}

// FindOne checks the read permission, fetches the entity and runs the
// ownership fallback: when the principal is neither creator nor assignee,
// the row must still be visible under the principal's derived scope.
// Scoped principals get shared.ErrNotFound rather than ErrForbidden so
// record existence is not leaked outside their visibility.
func (s *Service[T, C, U]) FindOne(ctx context.Context, id, principalID int64) (T, error) {
	var zero T
	if !s.engine.HasPermission(ctx, principalID, authz.Check{Resource: s.resource, Action: authz.ActionRead}, nil) {
		return zero, shared.ErrForbidden
	}
	entity, err := s.store.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if entity.CreatedByID() != principalID {
		assigned, _ := entity.AssignedToID()
		scope := s.engine.PermissionFilters(ctx, principalID, s.resource)
		if !scope.Allows(entity.CreatedByID(), assigned) {
			return zero, shared.ErrNotFound
		}
	}
	return entity, nil
}

// Update checks the update permission, re-fetches through FindOne (which
// re-enforces read and ownership) and delegates to the store.
func (s *Service[T, C, U]) Update(ctx context.Context, id int64, input U, principalID int64) (T, error) {
	var zero T
	if !s.engine.HasPermission(ctx, principalID, authz.Check{Resource: s.resource, Action: authz.ActionUpdate}, nil) {
		return zero, shared.ErrForbidden
	}
	if _, err := s.FindOne(ctx, id, principalID); err != nil {
		return zero, err
	}
	updated, err := s.store.Update(ctx, id, input)
	if err != nil {
		s.logger.Error("lifecycle update", slog.String("resource", string(s.resource)), slog.Int64("id", id), slog.Any("error", err))
		return zero, err
	}
	return updated, nil
}

// Remove soft-deletes the entity. Removing an already soft-deleted id
// yields shared.ErrNotFound since FindOne no longer sees it.
func (s *Service[T, C, U]) Remove(ctx context.Context, id, principalID int64) error {
	if !s.engine.HasPermission(ctx, principalID, authz.Check{Resource: s.resource, Action: authz.ActionDelete}, nil) {
		return shared.ErrForbidden
	}
	if _, err := s.FindOne(ctx, id, principalID); err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, id); err != nil {
		s.logger.Error("lifecycle soft delete", slog.String("resource", string(s.resource)), slog.Int64("id", id), slog.Any("error", err))
		return err
	}
	s.logger.Info("lifecycle soft deleted", slog.String("resource", string(s.resource)), slog.Int64("id", id))
	return nil
}

// HardDelete physically removes the entity. Irreversible.
func (s *Service[T, C, U]) HardDelete(ctx context.Context, id, principalID int64) error {
	if !s.engine.HasPermission(ctx, principalID, authz.Check{Resource: s.resource, Action: authz.ActionDelete}, nil) {
		return shared.ErrForbidden
	}
	if _, err := s.FindOne(ctx, id, principalID); err != nil {
		return err
	}
	if err := s.store.HardDelete(ctx, id); err != nil {
		s.logger.Error("lifecycle hard delete", slog.String("resource", string(s.resource)), slog.Int64("id", id), slog.Any("error", err))
		return err
	}
	s.logger.Info("lifecycle hard deleted", slog.String("resource", string(s.resource)), slog.Int64("id", id))
	return nil
}
