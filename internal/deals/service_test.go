package deals

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/lifecycle"
	"github.com/helios-crm/helios-crm/internal/shared"
)

type leadOwner struct {
	createdBy  int64
	assignedTo *int64
}

type memoryRepo struct {
	deals        map[int64]Deal
	leads        map[int64]leadOwner
	nextID       int64
	convertCalls int
	converted    map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		deals:     make(map[int64]Deal),
		leads:     make(map[int64]leadOwner),
		converted: make(map[int64]bool),
	}
}

func (r *memoryRepo) addLead(id, createdBy int64, assignedTo *int64) {
	r.leads[id] = leadOwner{createdBy: createdBy, assignedTo: assignedTo}
}

func (r *memoryRepo) Create(_ context.Context, input CreateDealInput, createdBy int64) (Deal, error) {
	r.nextID++
	stage := input.Stage
	if stage == "" {
		stage = StageProspecting
	}
	deal := Deal{ID: r.nextID, Title: input.Title, Amount: input.Amount, Stage: stage, CreatedBy: createdBy, CreatedAt: time.Now()}
	r.deals[deal.ID] = deal
	return deal, nil
}

func (r *memoryRepo) FindMany(_ context.Context, clause lifecycle.Clause, _ lifecycle.Order, offset, limit int) ([]Deal, error) {
	var out []Deal
	for _, d := range r.deals {
		if d.DeletedAt != nil && !clause.IncludeDeleted {
			continue
		}
		out = append(out, d)
	}
	if offset >= len(out) {
		return nil, nil
	}
	if offset+limit < len(out) {
		out = out[offset : offset+limit]
	} else {
		out = out[offset:]
	}
	return out, nil
}

func (r *memoryRepo) FindByID(_ context.Context, id int64) (Deal, error) {
	d, ok := r.deals[id]
	if !ok || d.DeletedAt != nil {
		return Deal{}, shared.ErrNotFound
	}
	return d, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, input UpdateDealInput) (Deal, error) {
	d, ok := r.deals[id]
	if !ok {
		return Deal{}, shared.ErrNotFound
	}
	if input.Title != nil {
		d.Title = *input.Title
	}
	if input.Amount != nil {
		d.Amount = *input.Amount
	}
	if input.Stage != nil {
		d.Stage = *input.Stage
	}
	r.deals[id] = d
	return d, nil
}

func (r *memoryRepo) SoftDelete(_ context.Context, id int64) error {
	d, ok := r.deals[id]
	if !ok || d.DeletedAt != nil {
		return shared.ErrNotFound
	}
	now := time.Now()
	d.DeletedAt = &now
	r.deals[id] = d
	return nil
}

func (r *memoryRepo) HardDelete(_ context.Context, id int64) error {
	if _, ok := r.deals[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.deals, id)
	return nil
}

func (r *memoryRepo) Count(_ context.Context, clause lifecycle.Clause) (int, error) {
	n := 0
	for _, d := range r.deals {
		if d.DeletedAt != nil && !clause.IncludeDeleted {
			continue
		}
		n++
	}
	return n, nil
}

func (r *memoryRepo) ConvertLead(_ context.Context, leadID int64, input ConvertLeadInput, principalID int64) (Deal, error) {
	r.convertCalls++
	if r.converted[leadID] {
		return Deal{}, shared.ErrConflict
	}
	r.converted[leadID] = true
	r.nextID++
	deal := Deal{ID: r.nextID, Title: input.Title, Amount: input.Amount, Stage: StageProspecting, LeadID: &leadID, CreatedBy: principalID}
	r.deals[deal.ID] = deal
	return deal, nil
}

func (r *memoryRepo) LeadOwnership(_ context.Context, leadID int64) (int64, *int64, error) {
	owner, ok := r.leads[leadID]
	if !ok {
		return 0, nil, shared.ErrNotFound
	}
	return owner.createdBy, owner.assignedTo, nil
}

type engineStore struct {
	principals map[int64]*authz.Principal
}

func (s engineStore) FindPrincipal(_ context.Context, id int64) (*authz.Principal, error) {
	p, ok := s.principals[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (s engineStore) AttachPermission(context.Context, int64, int64) error { return nil }
func (s engineStore) DetachPermission(context.Context, int64, int64) error { return nil }

func newEngine(perms map[int64][]authz.Permission) *authz.Service {
	principals := make(map[int64]*authz.Principal, len(perms))
	for id, p := range perms {
		principals[id] = &authz.Principal{ID: id, IsActive: true, Role: &authz.Role{ID: 1, Name: "Sales", Permissions: p}}
	}
	return authz.NewService(engineStore{principals: principals}, nil, nil)
}

func TestConvertLead(t *testing.T) {
	repo := newMemoryRepo()
	engine := newEngine(map[int64][]authz.Permission{
		1: {
			{Resource: authz.ResourceDeal, Action: authz.ActionCreate},
			{Resource: authz.ResourceLead, Action: authz.ActionUpdate},
		},
	})
	svc := NewService(repo, engine, nil)
	ctx := context.Background()
	repo.addLead(7, 1, nil)

	deal, err := svc.ConvertLead(ctx, 7, ConvertLeadInput{Title: "Acme expansion", Amount: 12000}, 1)
	require.NoError(t, err)
	require.NotNil(t, deal.LeadID)
	require.Equal(t, int64(7), *deal.LeadID)
	require.Equal(t, StageProspecting, deal.Stage)
	require.Equal(t, int64(1), deal.CreatedBy)

	// Converting the same lead twice conflicts.
	_, err = svc.ConvertLead(ctx, 7, ConvertLeadInput{Title: "again", Amount: 1}, 1)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestConvertLeadRequiresBothPermissions(t *testing.T) {
	repo := newMemoryRepo()
	engine := newEngine(map[int64][]authz.Permission{
		2: {{Resource: authz.ResourceDeal, Action: authz.ActionCreate}},
		3: {{Resource: authz.ResourceLead, Action: authz.ActionUpdate}},
	})
	svc := NewService(repo, engine, nil)
	ctx := context.Background()

	_, err := svc.ConvertLead(ctx, 7, ConvertLeadInput{Title: "half", Amount: 1}, 2)
	require.ErrorIs(t, err, shared.ErrForbidden)
	_, err = svc.ConvertLead(ctx, 7, ConvertLeadInput{Title: "half", Amount: 1}, 3)
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Zero(t, repo.convertCalls)
}

func TestConvertLeadRespectsLeadScope(t *testing.T) {
	repo := newMemoryRepo()
	engine := newEngine(map[int64][]authz.Permission{
		5: {
			{Resource: authz.ResourceDeal, Action: authz.ActionCreate},
			{Resource: authz.ResourceLead, Action: authz.ActionUpdate, Scope: authz.ScopeOwn},
		},
	})
	svc := NewService(repo, engine, nil)
	ctx := context.Background()

	// Someone else's lead is invisible to an own-scoped principal.
	repo.addLead(42, 1, nil)
	_, err := svc.ConvertLead(ctx, 42, ConvertLeadInput{Title: "poached", Amount: 1}, 5)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Zero(t, repo.convertCalls)

	// Assignment counts as ownership.
	holder := int64(5)
	repo.addLead(43, 1, &holder)
	deal, err := svc.ConvertLead(ctx, 43, ConvertLeadInput{Title: "assigned", Amount: 900}, 5)
	require.NoError(t, err)
	require.Equal(t, int64(5), deal.CreatedBy)

	// A missing lead reads the same as an invisible one.
	_, err = svc.ConvertLead(ctx, 99, ConvertLeadInput{Title: "ghost", Amount: 1}, 5)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDealLifecycleThroughService(t *testing.T) {
	repo := newMemoryRepo()
	engine := newEngine(map[int64][]authz.Permission{
		1: {{Resource: authz.ResourceDeal, Action: authz.ActionManage}},
	})
	svc := NewService(repo, engine, nil)
	ctx := context.Background()

	deal, err := svc.Create(ctx, CreateDealInput{Title: "New deal", Amount: 500}, 1)
	require.NoError(t, err)
	require.Equal(t, StageProspecting, deal.Stage)

	stage := StageWon
	updated, err := svc.Update(ctx, deal.ID, UpdateDealInput{Stage: &stage}, 1)
	require.NoError(t, err)
	require.Equal(t, StageWon, updated.Stage)

	require.NoError(t, svc.Remove(ctx, deal.ID, 1))
	_, err = svc.FindOne(ctx, deal.ID, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
