package deals

import (
	"context"
	"log/slog"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/lifecycle"
	"github.com/helios-crm/helios-crm/internal/shared"
)

// Service handles deal business logic on top of the generic lifecycle.
type Service struct {
	*lifecycle.Service[Deal, CreateDealInput, UpdateDealInput]
	repo   Repository
	engine *authz.Service
	logger *slog.Logger
}

// NewService constructs a deal service with scoped listings.
func NewService(repo Repository, engine *authz.Service, logger *slog.Logger) *Service {
	where := func(ctx context.Context, principalID int64, req shared.PageRequest) lifecycle.Clause {
		return lifecycle.Clause{
			Search: req.Search,
			Scope:  engine.PermissionFilters(ctx, principalID, authz.ResourceDeal),
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Service: lifecycle.NewService(authz.ResourceDeal, repo, engine, logger, lifecycle.WithWhere(where)),
		repo:    repo,
		engine:  engine,
		logger:  logger,
	}
}

// ConvertLead turns a lead into a deal. Requires create on deals and update
// on leads; both permission checks run before any write, and the two writes
// happen in one transaction inside the repository. The lead must also be
// visible under the principal's lead scope, otherwise the conversion reports
// not found just like a scoped read would.
func (s *Service) ConvertLead(ctx context.Context, leadID int64, input ConvertLeadInput, principalID int64) (Deal, error) {
	checks := []authz.Check{
		{Resource: authz.ResourceDeal, Action: authz.ActionCreate},
		{Resource: authz.ResourceLead, Action: authz.ActionUpdate},
	}
	if !s.engine.HasAllPermissions(ctx, principalID, checks, nil) {
		return Deal{}, shared.ErrForbidden
	}
	createdBy, assignedTo, err := s.repo.LeadOwnership(ctx, leadID)
	if err != nil {
		return Deal{}, err
	}
	var holder int64
	if assignedTo != nil {
		holder = *assignedTo
	}
	if !s.engine.PermissionFilters(ctx, principalID, authz.ResourceLead).Allows(createdBy, holder) {
		return Deal{}, shared.ErrNotFound
	}
	deal, err := s.repo.ConvertLead(ctx, leadID, input, principalID)
	if err != nil {
		s.logger.Error("convert lead", slog.Int64("lead", leadID), slog.Any("error", err))
		return Deal{}, err
	}
	s.logger.Info("lead converted", slog.Int64("lead", leadID), slog.Int64("deal", deal.ID))
	return deal, nil
}
