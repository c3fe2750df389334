package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/shared"
)

type memoryRepo struct {
	roles  map[int64]authz.Role
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{roles: make(map[int64]authz.Role)}
}

func (r *memoryRepo) ListRoles(context.Context) ([]authz.Role, error) {
	out := make([]authz.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

func (r *memoryRepo) GetRole(_ context.Context, id int64) (authz.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return authz.Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (r *memoryRepo) CreateRole(_ context.Context, name, description string) (authz.Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			return authz.Role{}, shared.ErrConflict
		}
	}
	r.nextID++
	role := authz.Role{ID: r.nextID, Name: name, Description: description}
	r.roles[role.ID] = role
	return role, nil
}

func (r *memoryRepo) UpdateRole(_ context.Context, id int64, name, description string) (authz.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return authz.Role{}, shared.ErrNotFound
	}
	role.Name = name
	role.Description = description
	r.roles[id] = role
	return role, nil
}

func (r *memoryRepo) DeleteRole(_ context.Context, id int64) error {
	if _, ok := r.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

func (r *memoryRepo) ListPermissions(context.Context) ([]authz.Permission, error) {
	return []authz.Permission{{ID: 1, Resource: authz.ResourceLead, Action: authz.ActionRead}}, nil
}

type engineStore struct {
	attach int
	detach int
}

func (s *engineStore) FindPrincipal(context.Context, int64) (*authz.Principal, error) {
	return nil, shared.ErrNotFound
}

func (s *engineStore) AttachPermission(context.Context, int64, int64) error {
	s.attach++
	return nil
}

func (s *engineStore) DetachPermission(context.Context, int64, int64) error {
	s.detach++
	return nil
}

func newService() (*Service, *engineStore) {
	store := &engineStore{}
	return NewService(newMemoryRepo(), authz.NewService(store, nil, nil)), store
}

func TestCreateRole(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "  Sales Manager  ", "manages sales")
	require.NoError(t, err)
	require.Equal(t, "Sales Manager", role.Name)

	_, err = svc.CreateRole(ctx, "Sales Manager", "")
	require.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.CreateRole(ctx, "   ", "")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateRoleReservedNames(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, authz.RoleSuperAdmin, "")
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.CreateRole(ctx, authz.RoleSystemAdmin, "")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateRoleReservedNames(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Support", "")
	require.NoError(t, err)

	_, err = svc.UpdateRole(ctx, role.ID, authz.RoleSuperAdmin, "")
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.UpdateRole(ctx, role.ID, authz.RoleSystemAdmin, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	got, err := svc.GetRole(ctx, role.ID)
	require.NoError(t, err)
	require.Equal(t, "Support", got.Name)
}

func TestUpdateAndDeleteRole(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "Support", "")
	require.NoError(t, err)

	updated, err := svc.UpdateRole(ctx, role.ID, "Support L2", "second line")
	require.NoError(t, err)
	require.Equal(t, "Support L2", updated.Name)

	_, err = svc.UpdateRole(ctx, role.ID, "", "")
	require.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.DeleteRole(ctx, role.ID))
	require.ErrorIs(t, svc.DeleteRole(ctx, role.ID), shared.ErrNotFound)
}

func TestAttachDetachPermission(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	require.NoError(t, svc.AttachPermission(ctx, 1, 2))
	require.Equal(t, 1, store.attach)
	require.NoError(t, svc.DetachPermission(ctx, 1, 2))
	require.Equal(t, 1, store.detach)
}
