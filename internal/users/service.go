package users

import (
	"context"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, req shared.PageRequest) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetRole(ctx context.Context, id int64, roleID *int64) error
}

// Service handles user administration. Role and activity mutations
// invalidate the authorization engine's cached grants for the principal.
type Service struct {
	repo   RepositoryPort
	engine *authz.Service
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, engine *authz.Service) *Service {
	return &Service{repo: repo, engine: engine}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, req shared.PageRequest) (shared.Page[User], error) {
	req = req.Normalize()
	list, total, err := s.repo.ListUsers(ctx, req)
	if err != nil {
		return shared.Page[User]{}, err
	}
	if list == nil {
		list = []User{}
	}
	return shared.Page[User]{Data: list, Meta: shared.NewPageMeta(req.Page, req.Limit, total)}, nil
}

// GetUser fetches one user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// SetActive toggles a user's active flag and drops their cached grants.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.engine.InvalidatePrincipal(id)
	return nil
}

// AssignRole changes a user's role and drops their cached grants.
func (s *Service) AssignRole(ctx context.Context, id int64, roleID *int64) error {
	if err := s.repo.SetRole(ctx, id, roleID); err != nil {
		return err
	}
	s.engine.InvalidatePrincipal(id)
	return nil
}

// Permissions returns the user's flattened effective permissions.
func (s *Service) Permissions(ctx context.Context, id int64) []authz.Permission {
	return s.engine.UserPermissions(ctx, id)
}
