package leads

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/lifecycle"
	"github.com/helios-crm/helios-crm/internal/shared"
)

type memoryRepo struct {
	leads  map[int64]Lead
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{leads: make(map[int64]Lead)}
}

func (r *memoryRepo) matches(lead Lead, clause lifecycle.Clause) bool {
	if lead.DeletedAt != nil && !clause.IncludeDeleted {
		return false
	}
	var assigned int64
	if lead.AssignedTo != nil {
		assigned = *lead.AssignedTo
	}
	if !clause.Scope.Allows(lead.CreatedBy, assigned) {
		return false
	}
	if clause.Search != "" {
		needle := strings.ToLower(clause.Search)
		if !strings.Contains(strings.ToLower(lead.Name), needle) &&
			!strings.Contains(strings.ToLower(lead.Company), needle) {
			return false
		}
	}
	return true
}

func (r *memoryRepo) Create(_ context.Context, input CreateLeadInput, createdBy int64) (Lead, error) {
	r.nextID++
	lead := Lead{
		ID: r.nextID, Name: input.Name, Email: input.Email, Phone: input.Phone,
		Company: input.Company, Source: input.Source, Status: StatusNew,
		CreatedBy: createdBy, CreatedAt: time.Now(),
	}
	r.leads[lead.ID] = lead
	return lead, nil
}

func (r *memoryRepo) FindMany(_ context.Context, clause lifecycle.Clause, _ lifecycle.Order, offset, limit int) ([]Lead, error) {
	var out []Lead
	for _, lead := range r.leads {
		if r.matches(lead, clause) {
			out = append(out, lead)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (r *memoryRepo) FindByID(_ context.Context, id int64) (Lead, error) {
	lead, ok := r.leads[id]
	if !ok || lead.DeletedAt != nil {
		return Lead{}, shared.ErrNotFound
	}
	return lead, nil
}

func (r *memoryRepo) Update(_ context.Context, id int64, input UpdateLeadInput) (Lead, error) {
	lead, ok := r.leads[id]
	if !ok {
		return Lead{}, shared.ErrNotFound
	}
	if input.Name != nil {
		lead.Name = *input.Name
	}
	if input.Status != nil {
		lead.Status = *input.Status
	}
	r.leads[id] = lead
	return lead, nil
}

func (r *memoryRepo) SoftDelete(_ context.Context, id int64) error {
	lead, ok := r.leads[id]
	if !ok || lead.DeletedAt != nil {
		return shared.ErrNotFound
	}
	now := time.Now()
	lead.DeletedAt = &now
	r.leads[id] = lead
	return nil
}

func (r *memoryRepo) HardDelete(_ context.Context, id int64) error {
	if _, ok := r.leads[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.leads, id)
	return nil
}

func (r *memoryRepo) Count(_ context.Context, clause lifecycle.Clause) (int, error) {
	n := 0
	for _, lead := range r.leads {
		if r.matches(lead, clause) {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) SetAssignee(_ context.Context, id int64, assignee *int64) error {
	lead, ok := r.leads[id]
	if !ok || lead.DeletedAt != nil {
		return shared.ErrNotFound
	}
	lead.AssignedTo = assignee
	r.leads[id] = lead
	return nil
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

func leadManage() []authz.Permission {
	return []authz.Permission{{Resource: authz.ResourceLead, Action: authz.ActionManage}}
}

func TestAssignAndUnassign(t *testing.T) {
	repo := newMemoryRepo()
	engine := newEngine(map[int64][]authz.Permission{1: leadManage()})
	svc := NewService(repo, engine, nil)
	ctx := context.Background()

	lead, err := svc.Create(ctx, CreateLeadInput{Name: "Acme"}, 1)
	require.NoError(t, err)
	require.Equal(t, StatusNew, lead.Status)

	require.NoError(t, svc.Assign(ctx, lead.ID, 42, 1))
	got, err := svc.FindOne(ctx, lead.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedTo)
	require.Equal(t, int64(42), *got.AssignedTo)

	require.NoError(t, svc.Unassign(ctx, lead.ID, 1))
	got, err = svc.FindOne(ctx, lead.ID, 1)
	require.NoError(t, err)
	require.Nil(t, got.AssignedTo)
}

func TestAssignRequiresPermission(t *testing.T) {
	repo := newMemoryRepo()
	engine := newEngine(map[int64][]authz.Permission{
		1: leadManage(),
		2: {
			{Resource: authz.ResourceLead, Action: authz.ActionRead},
			{Resource: authz.ResourceLead, Action: authz.ActionUpdate},
		},
	})
	svc := NewService(repo, engine, nil)
	ctx := context.Background()

	lead, err := svc.Create(ctx, CreateLeadInput{Name: "Acme"}, 1)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Assign(ctx, lead.ID, 42, 2), shared.ErrForbidden)
	require.ErrorIs(t, svc.Unassign(ctx, lead.ID, 2), shared.ErrForbidden)
	require.ErrorIs(t, svc.Assign(ctx, 999, 42, 1), shared.ErrNotFound)
}

func TestListScopedToOwnRecords(t *testing.T) {
	repo := newMemoryRepo()
	own := []authz.Permission{{Resource: authz.ResourceLead, Action: authz.ActionManage, Scope: authz.ScopeOwn}}
	engine := newEngine(map[int64][]authz.Permission{
		1: leadManage(),
		2: own,
	})
	svc := NewService(repo, engine, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateLeadInput{Name: "one's lead"}, 1)
	require.NoError(t, err)
	mine, err := svc.Create(ctx, CreateLeadInput{Name: "two's lead"}, 2)
	require.NoError(t, err)

	page, err := svc.FindAll(ctx, 2, shared.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, page.Meta.Total)
	require.Equal(t, mine.ID, page.Data[0].ID)

	page, err = svc.FindAll(ctx, 1, shared.PageRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Meta.Total)
}

func TestListSearch(t *testing.T) {
	repo := newMemoryRepo()
	engine := newEngine(map[int64][]authz.Permission{1: leadManage()})
	svc := NewService(repo, engine, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateLeadInput{Name: "Globex deal", Company: "Globex"}, 1)
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateLeadInput{Name: "Initech intro", Company: "Initech"}, 1)
	require.NoError(t, err)

	page, err := svc.FindAll(ctx, 1, shared.PageRequest{Search: "globex"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Meta.Total)
	require.Equal(t, "Globex", page.Data[0].Company)
}
