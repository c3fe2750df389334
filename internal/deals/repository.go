package deals

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

// Repository persists deals. ConvertLead runs the conversion in a single
// transaction so the lead's status change and the deal creation are atomic.
type Repository interface {
	lifecycle.Store[Deal, CreateDealInput, UpdateDealInput]
	ConvertLead(ctx context.Context, leadID int64, input ConvertLeadInput, principalID int64) (Deal, error)
	// LeadOwnership reports who created and who holds the lead, for the
	// row-level visibility check before conversion.
	LeadOwnership(ctx context.Context, leadID int64) (createdBy int64, assignedTo *int64, err error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const dealColumns = `id, title, amount, stage, lead_id, created_by, assigned_to, created_at, updated_at, deleted_at`

func (r *repository) Create(ctx context.Context, input CreateDealInput, createdBy int64) (Deal, error) {
	stage := input.Stage
	if stage == "" {
		stage = StageProspecting
	}
	const query = `
		INSERT INTO deals (title, amount, stage, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + dealColumns
	deal, err := scanDeal(r.pool.QueryRow(ctx, query, input.Title, input.Amount, stage, createdBy))
	if err != nil {
		return Deal{}, fmt.Errorf("deals: create: %w", err)
	}
	return deal, nil
}

func (r *repository) FindMany(ctx context.Context, clause lifecycle.Clause, order lifecycle.Order, offset, limit int) ([]Deal, error) {
	where, args := renderClause(clause)
	query := `SELECT ` + dealColumns + ` FROM deals WHERE ` + where +
		` ORDER BY ` + sortColumn(order) +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("deals: list: %w", err)
	}
	defer rows.Close()
	var result []Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("deals: scan: %w", err)
		}
		result = append(result, deal)
	}
	return result, rows.Err()
}

func (r *repository) FindByID(ctx context.Context, id int64) (Deal, error) {
	const query = `SELECT ` + dealColumns + ` FROM deals WHERE id = $1 AND deleted_at IS NULL`
	deal, err := scanDeal(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Deal{}, shared.ErrNotFound
		}
		return Deal{}, fmt.Errorf("deals: get: %w", err)
	}
	return deal, nil
}

func (r *repository) Update(ctx context.Context, id int64, input UpdateDealInput) (Deal, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if input.Title != nil {
		add("title", *input.Title)
	}
	if input.Amount != nil {
		add("amount", *input.Amount)
	}
	if input.Stage != nil {
		add("stage", *input.Stage)
	}
	args = append(args, id)
	query := `UPDATE deals SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` AND deleted_at IS NULL RETURNING ` + dealColumns

	deal, err := scanDeal(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Deal{}, shared.ErrNotFound
		}
		return Deal{}, fmt.Errorf("deals: update: %w", err)
	}
	return deal, nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	const query = `UPDATE deals SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deals: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) HardDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deals: hard delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Count(ctx context.Context, clause lifecycle.Clause) (int, error) {
	where, args := renderClause(clause)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM deals WHERE `+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("deals: count: %w", err)
	}
	return total, nil
}

// ConvertLead marks the lead converted and creates the deal in one
// transaction. Either both writes commit or both roll back.
func (r *repository) ConvertLead(ctx context.Context, leadID int64, input ConvertLeadInput, principalID int64) (Deal, error) {
	var deal Deal
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const markConverted = `
			UPDATE leads SET status = 'converted', updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL AND status <> 'converted'`
		tag, err := tx.Exec(ctx, markConverted, leadID)
		if err != nil {
			return fmt.Errorf("deals: mark lead converted: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: lead already converted or missing", shared.ErrConflict)
		}
		const insertDeal = `
			INSERT INTO deals (title, amount, stage, lead_id, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING ` + dealColumns
		deal, err = scanDeal(tx.QueryRow(ctx, insertDeal, input.Title, input.Amount, StageProspecting, leadID, principalID))
		if err != nil {
			return fmt.Errorf("deals: create from lead: %w", err)
		}
		return nil
	})
	if err != nil {
		return Deal{}, err
	}
	return deal, nil
}

func (r *repository) LeadOwnership(ctx context.Context, leadID int64) (int64, *int64, error) {
	const query = `SELECT created_by, assigned_to FROM leads WHERE id = $1 AND deleted_at IS NULL`
	var createdBy int64
	var assignedTo *int64
	if err := r.pool.QueryRow(ctx, query, leadID).Scan(&createdBy, &assignedTo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, shared.ErrNotFound
		}
		return 0, nil, fmt.Errorf("deals: lead ownership: %w", err)
	}
	return createdBy, assignedTo, nil
}

func renderClause(clause lifecycle.Clause) (string, []any) {
	conds := []string{}
	args := []any{}
	if !clause.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if clause.Search != "" {
		args = append(args, "%"+clause.Search+"%")
		conds = append(conds, "title ILIKE $"+strconv.Itoa(len(args)))
	}
	if stage, ok := clause.Fields["stage"]; ok {
		args = append(args, stage)
		conds = append(conds, "stage = $"+strconv.Itoa(len(args)))
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
	case "title", "amount", "stage", "created_at", "updated_at":
		column = order.Column
	}
	if order.Desc {
		return column + " DESC"
	}
	return column + " ASC"
}

func scanDeal(row pgx.Row) (Deal, error) {
	var d Deal
	err := row.Scan(&d.ID, &d.Title, &d.Amount, &d.Stage, &d.LeadID,
		&d.CreatedBy, &d.AssignedTo, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt)
	return d, err
}
