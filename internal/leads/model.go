// Package leads implements the lead entity on top of the generic lifecycle.
package leads

import "time"

// Lead statuses.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQualified = "qualified"
	StatusConverted = "converted"
	StatusLost      = "lost"
)

// Lead represents a sales lead.
type Lead struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Company    string     `json:"company"`
	Source     string     `json:"source"`
	Status     string     `json:"status"`
	CreatedBy  int64      `json:"created_by"`
	AssignedTo *int64     `json:"assigned_to,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// EntityID implements lifecycle.Entity.
func (l Lead) EntityID() int64 { return l.ID }

// CreatedByID implements lifecycle.Entity.
func (l Lead) CreatedByID() int64 { return l.CreatedBy }

// AssignedToID implements lifecycle.Entity.
func (l Lead) AssignedToID() (int64, bool) {
	if l.AssignedTo == nil {
		return 0, false
	}
	return *l.AssignedTo, true
}
