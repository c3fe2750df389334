package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/shared"
)

type memoryRepo struct {
	users map[int64]User
}

func newMemoryRepo(users ...User) *memoryRepo {
	repo := &memoryRepo{users: make(map[int64]User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memoryRepo) ListUsers(_ context.Context, req shared.PageRequest) ([]User, int, error) {
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	total := len(out)
	offset := req.Offset()
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + req.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *memoryRepo) GetUser(_ context.Context, id int64) (User, error) {
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) SetActive(_ context.Context, id int64, active bool) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	r.users[id] = u
	return nil
}

func (r *memoryRepo) SetRole(_ context.Context, id int64, roleID *int64) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.RoleID = roleID
	r.users[id] = u
	return nil
}

type principalStore struct {
	principals map[int64]*authz.Principal
	findCalls  int
}

func (s *principalStore) FindPrincipal(_ context.Context, id int64) (*authz.Principal, error) {
	s.findCalls++
	p, ok := s.principals[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (s *principalStore) AttachPermission(context.Context, int64, int64) error { return nil }
func (s *principalStore) DetachPermission(context.Context, int64, int64) error { return nil }

func TestListUsersPagination(t *testing.T) {
	users := make([]User, 0, 12)
	for i := int64(1); i <= 12; i++ {
		users = append(users, User{ID: i, Email: "u@test.local", IsActive: true})
	}
	svc := NewService(newMemoryRepo(users...), authz.NewService(&principalStore{}, nil, nil))

	page, err := svc.ListUsers(context.Background(), shared.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Data, 10)
	require.Equal(t, 12, page.Meta.Total)
	require.Equal(t, 2, page.Meta.TotalPages)
	require.True(t, page.Meta.HasNext)
}

func TestSetActiveInvalidatesGrants(t *testing.T) {
	store := &principalStore{principals: map[int64]*authz.Principal{
		5: {ID: 5, IsActive: true, Role: &authz.Role{Name: "Sales", Permissions: []authz.Permission{
			{Resource: authz.ResourceLead, Action: authz.ActionRead},
		}}},
	}}
	engine := authz.NewService(store, nil, nil)
	svc := NewService(newMemoryRepo(User{ID: 5, IsActive: true}), engine)
	ctx := context.Background()

	check := authz.Check{Resource: authz.ResourceLead, Action: authz.ActionRead}
	require.True(t, engine.HasPermission(ctx, 5, check, nil))
	calls := store.findCalls

	// Deactivate the account and flip the backing store to match.
	require.NoError(t, svc.SetActive(ctx, 5, false))
	store.principals[5].IsActive = false

	require.False(t, engine.HasPermission(ctx, 5, check, nil))
	require.Greater(t, store.findCalls, calls)
}

func TestAssignRoleInvalidatesGrants(t *testing.T) {
	store := &principalStore{principals: map[int64]*authz.Principal{
		6: {ID: 6, IsActive: true, Role: &authz.Role{Name: "Viewer"}},
	}}
	engine := authz.NewService(store, nil, nil)
	svc := NewService(newMemoryRepo(User{ID: 6, IsActive: true}), engine)
	ctx := context.Background()

	check := authz.Check{Resource: authz.ResourceLead, Action: authz.ActionRead}
	require.False(t, engine.HasPermission(ctx, 6, check, nil))

	roleID := int64(2)
	require.NoError(t, svc.AssignRole(ctx, 6, &roleID))
	store.principals[6].Role = &authz.Role{ID: 2, Name: "Sales", Permissions: []authz.Permission{
		{Resource: authz.ResourceLead, Action: authz.ActionRead},
	}}

	require.True(t, engine.HasPermission(ctx, 6, check, nil))

	got, err := svc.GetUser(ctx, 6)
	require.NoError(t, err)
	require.NotNil(t, got.RoleID)
	require.Equal(t, int64(2), *got.RoleID)
}

func TestPermissions(t *testing.T) {
	store := &principalStore{principals: map[int64]*authz.Principal{
		7: {ID: 7, IsActive: true, Role: &authz.Role{Name: "Sales", Permissions: []authz.Permission{
			{Resource: authz.ResourceLead, Action: authz.ActionRead},
			{Resource: authz.ResourceDeal, Action: authz.ActionManage},
		}}},
	}}
	svc := NewService(newMemoryRepo(User{ID: 7, IsActive: true}), authz.NewService(store, nil, nil))

	perms := svc.Permissions(context.Background(), 7)
	require.Len(t, perms, 2)
	require.Empty(t, svc.Permissions(context.Background(), 99))
}
