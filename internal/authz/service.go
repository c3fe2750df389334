package authz

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/helios-crm/helios-crm/internal/shared"
)

// DefaultCacheTTL bounds how long a principal's resolved grants may be
// served from cache. The cache is also purged on every role-permission
// mutation, so the TTL is a safety net, not the invalidation mechanism.
const DefaultCacheTTL = 5 * time.Minute

const cacheSize = 1024

// grantSet is the cached resolution of a principal's grants.
type grantSet struct {
	super bool
	perms []Permission
}

// Service is the authorization engine. It resolves principals, evaluates
// permission checks and derives visibility filters for list queries.
//
// The engine never propagates backing-store errors to callers: lookups that
// fail are logged and treated as "no permission" so that storage trouble
// denies access instead of granting it.
type Service struct {
	store  Store
	teams  TeamResolver
	logger *slog.Logger
	cache  *expirable.LRU[int64, grantSet]
}

// NewService constructs an engine with the default cache TTL. A nil teams
// resolver falls back to SelfTeamResolver.
func NewService(store Store, teams TeamResolver, logger *slog.Logger) *Service {
	return NewServiceWithTTL(store, teams, logger, DefaultCacheTTL)
}

// NewServiceWithTTL constructs an engine with a custom grant cache TTL.
func NewServiceWithTTL(store Store, teams TeamResolver, logger *slog.Logger, ttl time.Duration) *Service {
	if teams == nil {
		teams = SelfTeamResolver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		teams:  teams,
		logger: logger,
		cache:  expirable.NewLRU[int64, grantSet](cacheSize, nil, ttl),
	}
}

// HasPermission reports whether the principal may perform the checked
// action. Conditions on the check are evaluated only when resource data is
// supplied; a conditioned check without data passes on the grant alone, so
// callers must supply data whenever they expect condition enforcement.
func (s *Service) HasPermission(ctx context.Context, principalID int64, check Check, data map[string]any) bool {
	grants, ok := s.grants(ctx, principalID)
	if !ok {
		return false
	}
	if grants.super {
		return true
	}
	matched := false
	for _, p := range grants.perms {
		if p.Grants(check.Resource, check.Action) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	if len(check.Conditions) == 0 || data == nil {
		return true
	}
	var teamIDs []int64
	if needsTeam(check.Conditions) {
		ids, err := s.teams.TeamMembers(ctx, principalID)
		if err != nil {
			s.logger.Error("authz resolve team", slog.Int64("principal", principalID), slog.Any("error", err))
			return false
		}
		teamIDs = ids
	}
	for _, cond := range check.Conditions {
		if !evalCondition(cond, principalID, teamIDs, data) {
			return false
		}
	}
	return true
}

// HasAnyPermission is an OR over HasPermission, short-circuiting on the
// first satisfied check.
func (s *Service) HasAnyPermission(ctx context.Context, principalID int64, checks []Check, data map[string]any) bool {
	for _, check := range checks {
		if s.HasPermission(ctx, principalID, check, data) {
			return true
		}
	}
	return false
}

// HasAllPermissions is an AND over HasPermission, short-circuiting on the
// first failed check.
func (s *Service) HasAllPermissions(ctx context.Context, principalID int64, checks []Check, data map[string]any) bool {
	for _, check := range checks {
		if !s.HasPermission(ctx, principalID, check, data) {
			return false
		}
	}
	return true
}

// UserPermissions returns the principal's flattened role-granted
// permissions. Empty when the principal is missing, inactive or roleless.
func (s *Service) UserPermissions(ctx context.Context, principalID int64) []Permission {
	grants, ok := s.grants(ctx, principalID)
	if !ok {
		return nil
	}
	perms := make([]Permission, len(grants.perms))
	copy(perms, grants.perms)
	return perms
}

// PermissionFilters derives the visibility filter for list and read
// operations on a resource. Missing principals fail closed to MatchNone;
// super-admins and grants without an own/team scope are unrestricted.
func (s *Service) PermissionFilters(ctx context.Context, principalID int64, resource Resource) QueryFilter {
	grants, ok := s.grants(ctx, principalID)
	if !ok {
		return MatchNone()
	}
	if grants.super {
		return Unrestricted()
	}
	hasTeam := false
	for _, p := range grants.perms {
		if p.Resource != resource {
			continue
		}
		switch p.EffectiveScope() {
		case ScopeOwn:
			return OwnedBy(principalID)
		case ScopeTeam, ScopeDepartment:
			hasTeam = true
		}
	}
	if hasTeam {
		ids, err := s.teams.TeamMembers(ctx, principalID)
		if err != nil {
			s.logger.Error("authz resolve team", slog.Int64("principal", principalID), slog.Any("error", err))
			return MatchNone()
		}
		return TeamOf(ids)
	}
	return Unrestricted()
}

// AssignPermissionToRole links a permission to a role and invalidates
// cached grants.
func (s *Service) AssignPermissionToRole(ctx context.Context, roleID, permissionID int64) error {
	if err := s.store.AttachPermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.InvalidateAll()
	return nil
}

// RemovePermissionFromRole unlinks a permission from a role and invalidates
// cached grants.
func (s *Service) RemovePermissionFromRole(ctx context.Context, roleID, permissionID int64) error {
	if err := s.store.DetachPermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.InvalidateAll()
	return nil
}

// InvalidateAll drops every cached grant set. Role-permission mutations and
// role reassignments must call this so stale grants never outlive the TTL.
func (s *Service) InvalidateAll() {
	s.cache.Purge()
}

// InvalidatePrincipal drops a single principal's cached grants.
func (s *Service) InvalidatePrincipal(principalID int64) {
	s.cache.Remove(principalID)
}

// grants resolves a principal's grant set, serving from cache when fresh.
// The second return is false when the principal is unknown, inactive or the
// lookup failed.
func (s *Service) grants(ctx context.Context, principalID int64) (grantSet, bool) {
	if cached, ok := s.cache.Get(principalID); ok {
		return cached, true
	}
	principal, err := s.store.FindPrincipal(ctx, principalID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("authz resolve principal", slog.Int64("principal", principalID), slog.Any("error", err))
		}
		return grantSet{}, false
	}
	if principal == nil || !principal.IsActive {
		return grantSet{}, false
	}
	set := grantSet{}
	if principal.Role != nil {
		set.super = principal.Role.IsSuperAdmin()
		set.perms = principal.Role.Permissions
	}
	s.cache.Add(principalID, set)
	return set, true
}

// FilterByPermissions filters an already-fetched collection down to the
// items the principal may act on, one check per item. Super-admins pass
// everything through. Not intended for high-cardinality streams.
func FilterByPermissions[T any](ctx context.Context, svc *Service, principalID int64, items []T, resource Resource, action Action, idOf func(T) int64) []T {
	grants, ok := svc.grants(ctx, principalID)
	if !ok {
		return nil
	}
	if grants.super {
		return items
	}
	check := Check{Resource: resource, Action: action}
	allowed := make([]T, 0, len(items))
	for _, item := range items {
		if svc.HasPermission(ctx, principalID, check, map[string]any{"id": idOf(item)}) {
			allowed = append(allowed, item)
		}
	}
	return allowed
}
