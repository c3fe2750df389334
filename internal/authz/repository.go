package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-crm/helios-crm/internal/shared"
)

// Store abstracts the principal/role/permission backing store.
type Store interface {
	// FindPrincipal resolves a principal together with its role and the
	// role's permissions in one call.
	FindPrincipal(ctx context.Context, id int64) (*Principal, error)
	AttachPermission(ctx context.Context, roleID, permissionID int64) error
	DetachPermission(ctx context.Context, roleID, permissionID int64) error
}

// Repository provides PostgreSQL backed persistence for principals, roles
// and permissions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindPrincipal loads a user with role and role permissions.
func (r *Repository) FindPrincipal(ctx context.Context, id int64) (*Principal, error) {
	const userQuery = `
		SELECT u.id, u.email, u.name, u.is_active,
		       r.id, r.name, r.description, r.created_at, r.updated_at
		FROM users u
		LEFT JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1`

	var (
		p        Principal
		roleID   *int64
		roleName *string
		roleDesc *string
		role     Role
	)
	err := r.pool.QueryRow(ctx, userQuery, id).Scan(
		&p.ID, &p.Email, &p.Name, &p.IsActive,
		&roleID, &roleName, &roleDesc, &role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("authz: find principal: %w", err)
	}
	if roleID == nil {
		return &p, nil
	}
	role.ID = *roleID
	role.Name = *roleName
	if roleDesc != nil {
		role.Description = *roleDesc
	}

	const permQuery = `
		SELECT p.id, p.resource, p.action, p.scope, p.description
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.resource, p.action`

	rows, err := r.pool.Query(ctx, permQuery, role.ID)
	if err != nil {
		return nil, fmt.Errorf("authz: load role permissions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var perm Permission
		var scope string
		if err := rows.Scan(&perm.ID, &perm.Resource, &perm.Action, &scope, &perm.Description); err != nil {
			return nil, fmt.Errorf("authz: scan permission: %w", err)
		}
		perm.Scope = Scope(scope)
		role.Permissions = append(role.Permissions, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: iterate permissions: %w", err)
	}

	p.Role = &role
	return &p, nil
}

// AttachPermission links a permission to a role.
func (r *Repository) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	const query = `
		INSERT INTO role_permissions (role_id, permission_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, roleID, permissionID); err != nil {
		return fmt.Errorf("authz: attach permission: %w", err)
	}
	return nil
}

// DetachPermission unlinks a permission from a role.
func (r *Repository) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	const query = `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`
	if _, err := r.pool.Exec(ctx, query, roleID, permissionID); err != nil {
		return fmt.Errorf("authz: detach permission: %w", err)
	}
	return nil
}

// TeamMembers resolves the ids of users sharing the principal's team. A
// principal without a team is its own one-member team.
func (r *Repository) TeamMembers(ctx context.Context, principalID int64) ([]int64, error) {
	const query = `
		SELECT u.id
		FROM users u
		JOIN users self ON self.team_id = u.team_id
		WHERE self.id = $1 AND u.team_id IS NOT NULL`

	rows, err := r.pool.Query(ctx, query, principalID)
	if err != nil {
		return nil, fmt.Errorf("authz: team members: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("authz: scan team member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("authz: iterate team members: %w", err)
	}
	if len(ids) == 0 {
		ids = []int64{principalID}
	}
	return ids, nil
}
