package leads

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-crm/helios-crm/internal/lifecycle"
	"github.com/helios-crm/helios-crm/internal/platform/db"
	"github.com/helios-crm/helios-crm/internal/shared"
)

// Repository persists leads. It extends the lifecycle store contract with
// the assignment primitive.
type Repository interface {
	lifecycle.Store[Lead, CreateLeadInput, UpdateLeadInput]
	SetAssignee(ctx context.Context, id int64, assignee *int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const leadColumns = `id, name, email, phone, company, source, status, created_by, assigned_to, created_at, updated_at, deleted_at`

func (r *repository) Create(ctx context.Context, input CreateLeadInput, createdBy int64) (Lead, error) {
	const query = `
		INSERT INTO leads (name, email, phone, company, source, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + leadColumns
	row := r.pool.QueryRow(ctx, query, input.Name, input.Email, input.Phone, input.Company, input.Source, StatusNew, createdBy)
	lead, err := scanLead(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Lead{}, fmt.Errorf("%w: lead email already exists", shared.ErrConflict)
		}
		return Lead{}, fmt.Errorf("leads: create: %w", err)
	}
	return lead, nil
}

func (r *repository) FindMany(ctx context.Context, clause lifecycle.Clause, order lifecycle.Order, offset, limit int) ([]Lead, error) {
	where, args := renderClause(clause)
	query := `SELECT ` + leadColumns + ` FROM leads WHERE ` + where +
		` ORDER BY ` + sortColumn(order) +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list: %w", err)
	}
	defer rows.Close()
	var result []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan: %w", err)
		}
		result = append(result, lead)
	}
	return result, rows.Err()
}

func (r *repository) FindByID(ctx context.Context, id int64) (Lead, error) {
	const query = `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND deleted_at IS NULL`
	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, shared.ErrNotFound
		}
		return Lead{}, fmt.Errorf("leads: get: %w", err)
	}
	return lead, nil
}

func (r *repository) Update(ctx context.Context, id int64, input UpdateLeadInput) (Lead, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if input.Name != nil {
		add("name", *input.Name)
	}
	if input.Email != nil {
		add("email", *input.Email)
	}
	if input.Phone != nil {
		add("phone", *input.Phone)
	}
	if input.Company != nil {
		add("company", *input.Company)
	}
	if input.Source != nil {
		add("source", *input.Source)
	}
	if input.Status != nil {
		add("status", *input.Status)
	}
	args = append(args, id)
	query := `UPDATE leads SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` AND deleted_at IS NULL RETURNING ` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, shared.ErrNotFound
		}
		if db.IsUniqueViolation(err) {
			return Lead{}, fmt.Errorf("%w: lead email already exists", shared.ErrConflict)
		}
		return Lead{}, fmt.Errorf("leads: update: %w", err)
	}
	return lead, nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	const query = `UPDATE leads SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("leads: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) HardDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("leads: hard delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Count(ctx context.Context, clause lifecycle.Clause) (int, error) {
	where, args := renderClause(clause)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("leads: count: %w", err)
	}
	return total, nil
}

func (r *repository) SetAssignee(ctx context.Context, id int64, assignee *int64) error {
	const query = `UPDATE leads SET assigned_to = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, assignee, id)
	if err != nil {
		return fmt.Errorf("leads: set assignee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func renderClause(clause lifecycle.Clause) (string, []any) {
	conds := []string{}
	args := []any{}
	if !clause.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if clause.Search != "" {
		args = append(args, "%"+clause.Search+"%")
		p := "$" + strconv.Itoa(len(args))
		conds = append(conds, "(name ILIKE "+p+" OR email ILIKE "+p+" OR company ILIKE "+p+")")
	}
	if status, ok := clause.Fields["status"]; ok {
		args = append(args, status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if assignee, ok := clause.Fields["assigned_to"]; ok {
		args = append(args, assignee)
		conds = append(conds, "assigned_to = $"+strconv.Itoa(len(args)))
	}
	if fragment, scopeArgs := clause.Scope.SQL(len(args) + 1); fragment != "" {
		conds = append(conds, fragment)
		args = append(args, scopeArgs...)
	}
	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}

func sortColumn(order lifecycle.Order) string {
	column := "created_at"
	switch order.Column {
	case "name", "email", "company", "status", "created_at", "updated_at":
		column = order.Column
	}
	if order.Desc {
		return column + " DESC"
	}
	return column + " ASC"
}

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company, &l.Source, &l.Status,
		&l.CreatedBy, &l.AssignedTo, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt)
	return l, err
}
