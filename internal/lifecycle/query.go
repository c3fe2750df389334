// Package lifecycle provides the generic create/list/get/update/delete
// orchestration every business entity is built on.
package lifecycle

import (
	"context"

	"github.com/helios-crm/helios-crm/internal/authz"
	"github.com/helios-crm/helios-crm/internal/shared"
)

// Clause describes the row constraints a store must apply to list and count
// queries. It stays semantic so repositories render it to SQL and test
// fakes interpret it directly.
type Clause struct {
	// IncludeDeleted lifts the default soft-delete exclusion.
	IncludeDeleted bool
	// Search is matched case-insensitively against the entity's
	// searchable columns.
	Search string
	// Fields holds exact-match column filters.
	Fields map[string]any
	// Scope is the visibility filter derived from the principal's grants.
	Scope authz.QueryFilter
}

// Order describes the sort column and direction for list queries.
type Order struct {
	Column string
	Desc   bool
}

// WhereFunc builds the clause for a list request. Entity services override
// it to match their searchable columns and to merge permission filters.
type WhereFunc func(ctx context.Context, principalID int64, req shared.PageRequest) Clause

// OrderFunc builds the ordering for a list request.
type OrderFunc func(req shared.PageRequest) Order

// DefaultWhere excludes soft-deleted rows and forwards the search term.
func DefaultWhere(_ context.Context, _ int64, req shared.PageRequest) Clause {
	return Clause{Search: req.Search, Scope: authz.Unrestricted()}
}

// DefaultOrder sorts by the requested column, falling back to created_at
// descending.
func DefaultOrder(req shared.PageRequest) Order {
	column := req.SortBy
	if column == "" {
		column = "created_at"
	}
	return Order{Column: column, Desc: req.SortOrder != "asc"}
}
