// Package roles manages role records and their permission assignments.
package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/platform/db"
	"github.com/helios-crm/helios-crm/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]authz.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	defer rows.Close()
	var roles []authz.Role
	for rows.Next() {
		var role authz.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, fmt.Errorf("roles: scan: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a role with its permissions.
func (r *Repository) GetRole(ctx context.Context, id int64) (authz.Role, error) {
	var role authz.Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Role{}, shared.ErrNotFound
		}
		return authz.Role{}, fmt.Errorf("roles: get: %w", err)
	}

	const permQuery = `
		SELECT p.id, p.resource, p.action, p.scope, p.description
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.resource, p.action`
	rows, err := r.pool.Query(ctx, permQuery, id)
	if err != nil {
		return authz.Role{}, fmt.Errorf("roles: permissions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var perm authz.Permission
		var scope string
		if err := rows.Scan(&perm.ID, &perm.Resource, &perm.Action, &scope, &perm.Description); err != nil {
			return authz.Role{}, fmt.Errorf("roles: scan permission: %w", err)
		}
		perm.Scope = authz.Scope(scope)
		role.Permissions = append(role.Permissions, perm)
	}
	return role, rows.Err()
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, name, description string) (authz.Role, error) {
	var role authz.Role
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())
		 RETURNING id, name, description, created_at, updated_at`,
		name, description,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return authz.Role{}, fmt.Errorf("%w: role name already exists", shared.ErrConflict)
		}
		return authz.Role{}, fmt.Errorf("roles: create: %w", err)
	}
	return role, nil
}

// UpdateRole updates an existing role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string) (authz.Role, error) {
	var role authz.Role
	err := r.pool.QueryRow(ctx,
		`UPDATE roles SET name = $1, description = $2, updated_at = NOW() WHERE id = $3
		 RETURNING id, name, description, created_at, updated_at`,
		name, description, id,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Role{}, shared.ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return authz.Role{}, fmt.Errorf("%w: role name already exists", shared.ErrConflict)
		}
		return authz.Role{}, fmt.Errorf("roles: update: %w", err)
	}
	return role, nil
}

// DeleteRole removes a role by id.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("roles: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListPermissions returns every known permission.
func (r *Repository) ListPermissions(ctx context.Context) ([]authz.Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, resource, action, scope, description FROM permissions ORDER BY resource, action`)
	if err != nil {
		return nil, fmt.Errorf("roles: list permissions: %w", err)
	}
	defer rows.Close()
	var perms []authz.Permission
	for rows.Next() {
		var perm authz.Permission
		var scope string
		if err := rows.Scan(&perm.ID, &perm.Resource, &perm.Action, &scope, &perm.Description); err != nil {
			return nil, fmt.Errorf("roles: scan permission: %w", err)
		}
		perm.Scope = authz.Scope(scope)
		perms = append(perms, perm)
	}
	return perms, rows.Err()
}
