package leads

import (
	"context"
	"log/slog"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/lifecycle"
	"github.com/helios-crm/helios-crm/internal/shared"
)

// Service handles lead business logic on top of the generic lifecycle.
type Service struct {
	*lifecycle.Service[Lead, CreateLeadInput, UpdateLeadInput]
	repo   Repository
	engine *authz.Service
}

// NewService constructs a lead service. Lead listings merge the principal's
// visibility scope into the query so own/team-scoped grants only see their
// records.
func NewService(repo Repository, engine *authz.Service, logger *slog.Logger) *Service {
	where := func(ctx context.Context, principalID int64, req shared.PageRequest) lifecycle.Clause {
		return lifecycle.Clause{
			Search: req.Search,
			Scope:  engine.PermissionFilters(ctx, principalID, authz.ResourceLead),
		}
	}
	return &Service{
		Service: lifecycle.NewService(authz.ResourceLead, repo, engine, logger, lifecycle.WithWhere(where)),
		repo:    repo,
		engine:  engine,
	}
}

// Assign hands the lead to a user. Requires the assign permission on leads.
func (s *Service) Assign(ctx context.Context, id int64, assignee int64, principalID int64) error {
	if !s.engine.HasPermission(ctx, principalID, authz.Check{Resource: authz.ResourceLead, Action: authz.ActionAssign}, nil) {
		return shared.ErrForbidden
	}
	if _, err := s.FindOne(ctx, id, principalID); err != nil {
		return err
	}
	return s.repo.SetAssignee(ctx, id, &assignee)
}

// Unassign clears the lead's assignee.
func (s *Service) Unassign(ctx context.Context, id int64, principalID int64) error {
	if !s.engine.HasPermission(ctx, principalID, authz.Check{Resource: authz.ResourceLead, Action: authz.ActionUnassign}, nil) {
		return shared.ErrForbidden
	}
	if _, err := s.FindOne(ctx, id, principalID); err != nil {
		return err
	}
	return s.repo.SetAssignee(ctx, id, nil)
}
