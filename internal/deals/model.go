// Package deals implements the deal entity and lead conversion.
package deals

import "time"

// Deal stages.
const (
	StageProspecting = "prospecting"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageWon         = "won"
	StageLost        = "lost"
)

// Deal represents a sales deal.
type Deal struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Amount     float64    `json:"amount"`
	Stage      string     `json:"stage"`
	LeadID     *int64     `json:"lead_id,omitempty"`
	CreatedBy  int64      `json:"created_by"`
	AssignedTo *int64     `json:"assigned_to,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// EntityID implements lifecycle.Entity.
func (d Deal) EntityID() int64 { return d.ID }

// CreatedByID implements lifecycle.Entity.
func (d Deal) CreatedByID() int64 { return d.CreatedBy }

// AssignedToID implements lifecycle.Entity.
func (d Deal) AssignedToID() (int64, bool) {
	if d.AssignedTo == nil {
		return 0, false
	}
	return *d.AssignedTo, true
}

// CreateDealInput carries validated fields for deal creation.
type CreateDealInput struct {
	Title  string  `json:"title" validate:"required,max=200"`
	Amount float64 `json:"amount" validate:"gte=0"`
	Stage  string  `json:"stage" validate:"omitempty,oneof=prospecting proposal negotiation won lost"`
}

// UpdateDealInput carries partial updates; nil fields are left untouched.
type UpdateDealInput struct {
	Title  *string  `json:"title" validate:"omitempty,max=200"`
	Amount *float64 `json:"amount" validate:"omitempty,gte=0"`
	Stage  *string  `json:"stage" validate:"omitempty,oneof=prospecting proposal negotiation won lost"`
}

// ConvertLeadInput shapes a conversion of a qualified lead into a deal.
type ConvertLeadInput struct {
	Title  string  `json:"title" validate:"required,max=200"`
	Amount float64 `json:"amount" validate:"gte=0"`
}
