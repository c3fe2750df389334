package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]authz.Role, error)
	GetRole(ctx context.Context, id int64) (authz.Role, error)
	CreateRole(ctx context.Context, name, description string) (authz.Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (authz.Role, error)
	DeleteRole(ctx context.Context, id int64) error
	ListPermissions(ctx context.Context) ([]authz.Permission, error)
}

// Service handles role administration. Permission assignment goes through
// the authorization engine so cached grants are invalidated.
type Service struct {
	repo   RepositoryPort
	engine *authz.Service
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, engine *authz.Service) *Service {
	return &Service{repo: repo, engine: engine}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]authz.Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role with its permissions.
func (s *Service) GetRole(ctx context.Context, id int64) (authz.Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role. Sentinel names are reserved.
func (s *Service) CreateRole(ctx context.Context, name, description string) (authz.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return authz.Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	if name == authz.RoleSuperAdmin || name == authz.RoleSystemAdmin {
		return authz.Role{}, fmt.Errorf("%w: role name is reserved", shared.ErrValidation)
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole updates an existing role and drops all cached grants, since
// renaming can change super-admin status for every holder. Sentinel names
// stay reserved on rename too.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (authz.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return authz.Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	if name == authz.RoleSuperAdmin || name == authz.RoleSystemAdmin {
		return authz.Role{}, fmt.Errorf("%w: role name is reserved", shared.ErrValidation)
	}
	role, err := s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
	if err != nil {
		return authz.Role{}, err
	}
	s.engine.InvalidateAll()
	return role, nil
}

// DeleteRole removes a role and drops all cached grants.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.engine.InvalidateAll()
	return nil
}

// ListPermissions returns every known permission.
func (s *Service) ListPermissions(ctx context.Context) ([]authz.Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// AttachPermission grants a permission to a role via the engine.
func (s *Service) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	return s.engine.AssignPermissionToRole(ctx, roleID, permissionID)
}

// DetachPermission revokes a permission from a role via the engine.
func (s *Service) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	return s.engine.RemovePermissionFromRole(ctx, roleID, permissionID)
}
