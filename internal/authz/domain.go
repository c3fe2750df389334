// Package authz implements the permission model and authorization engine.
package authz

import (
	"fmt"
	"strings"
	"time"
)

// Resource names a protected entity category.
type Resource string

// Known resources.
const (
	ResourceUser       Resource = "user"
	ResourceRole       Resource = "role"
	ResourcePermission Resource = "permission"
	ResourceContact    Resource = "contact"
	ResourceCompany    Resource = "company"
	ResourceLead       Resource = "lead"
	ResourceDeal       Resource = "deal"
	ResourceActivity   Resource = "activity"
	ResourceNote       Resource = "note"
	ResourceClient     Resource = "client"
	ResourceProject    Resource = "project"
	ResourceEmployee   Resource = "employee"
	ResourceAttendance Resource = "attendance"
	ResourceInvoice    Resource = "invoice"
	ResourceDashboard  Resource = "dashboard"
	ResourceReport     Resource = "report"
)

var resources = map[Resource]struct{}{
	ResourceUser: {}, ResourceRole: {}, ResourcePermission: {},
	ResourceContact: {}, ResourceCompany: {}, ResourceLead: {},
	ResourceDeal: {}, ResourceActivity: {}, ResourceNote: {},
	ResourceClient: {}, ResourceProject: {}, ResourceEmployee: {},
	ResourceAttendance: {}, ResourceInvoice: {}, ResourceDashboard: {},
	ResourceReport: {},
}

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	_, ok := resources[r]
	return ok
}

// Action names an operation kind performed on a resource.
type Action string

// Known actions. ActionManage is a wildcard satisfying any action check.
const (
	ActionCreate     Action = "create"
	ActionRead       Action = "read"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionManage     Action = "manage"
	ActionAssign     Action = "assign"
	ActionUnassign   Action = "unassign"
	ActionExport     Action = "export"
	ActionImport     Action = "import"
	ActionBulkEdit   Action = "bulk_edit"
	ActionBulkDelete Action = "bulk_delete"
)

var actions = map[Action]struct{}{
	ActionCreate: {}, ActionRead: {}, ActionUpdate: {}, ActionDelete: {},
	ActionManage: {}, ActionAssign: {}, ActionUnassign: {}, ActionExport: {},
	ActionImport: {}, ActionBulkEdit: {}, ActionBulkDelete: {},
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	_, ok := actions[a]
	return ok
}

// Scope restricts the visibility a permission grants on list and read
// operations. ScopeNone means unrestricted.
type Scope string

// Known scopes.
const (
	ScopeNone       Scope = ""
	ScopeOwn        Scope = "own"
	ScopeTeam       Scope = "team"
	ScopeDepartment Scope = "department"
)

// ScopeFromDescription derives a scope from legacy free-text permission
// descriptions that encode visibility as an "own"/"team" substring. Rows
// written before the scope column carry no explicit scope.
func ScopeFromDescription(description string) Scope {
	desc := strings.ToLower(description)
	switch {
	case strings.Contains(desc, "own"):
		return ScopeOwn
	case strings.Contains(desc, "team"):
		return ScopeTeam
	case strings.Contains(desc, "department"):
		return ScopeDepartment
	default:
		return ScopeNone
	}
}

// Operator is a condition predicate kind.
type Operator string

// Known operators.
const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpIn         Operator = "in"
	OpNin        Operator = "nin"
	OpOwn        Operator = "own"
	OpTeam       Operator = "team"
	OpDepartment Operator = "department"
)

// Condition narrows a permission grant to records matching a predicate.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// Permission grants an action on a resource, optionally narrowed by scope
// and conditions. Permissions are immutable value objects.
type Permission struct {
	ID          int64       `json:"id"`
	Resource    Resource    `json:"resource"`
	Action      Action      `json:"action"`
	Scope       Scope       `json:"scope,omitempty"`
	Description string      `json:"description,omitempty"`
	Conditions  []Condition `json:"conditions,omitempty"`
}

// Name returns the "resource:action" pair identifying the grant.
func (p Permission) Name() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// String serializes the permission as resource:action[:cond1,cond2,...].
func (p Permission) String() string {
	if len(p.Conditions) == 0 {
		return p.Name()
	}
	parts := make([]string, len(p.Conditions))
	for i, c := range p.Conditions {
		parts[i] = string(c.Operator)
	}
	return p.Name() + ":" + strings.Join(parts, ",")
}

// EffectiveScope resolves the typed scope, falling back to legacy
// description matching when no scope is set.
func (p Permission) EffectiveScope() Scope {
	if p.Scope != ScopeNone {
		return p.Scope
	}
	return ScopeFromDescription(p.Description)
}

// Equal reports structural equality of resource, action and conditions.
func (p Permission) Equal(other Permission) bool {
	if p.Resource != other.Resource || p.Action != other.Action {
		return false
	}
	if len(p.Conditions) != len(other.Conditions) {
		return false
	}
	for i, c := range p.Conditions {
		o := other.Conditions[i]
		if c.Field != o.Field || c.Operator != o.Operator || !looseEqual(c.Value, o.Value) {
			return false
		}
	}
	return true
}

// Grants reports whether this permission satisfies a check for the given
// resource and action, honoring the manage wildcard.
func (p Permission) Grants(resource Resource, action Action) bool {
	if p.Resource != resource {
		return false
	}
	return p.Action == action || p.Action == ActionManage
}

// Super-admin sentinel role names. A principal holding either bypasses all
// permission checks unconditionally.
const (
	RoleSuperAdmin  = "Super Admin"
	RoleSystemAdmin = "System Admin"
)

// Role groups permissions under a name.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// IsSuperAdmin reports whether the role is one of the reserved sentinels.
func (r Role) IsSuperAdmin() bool {
	return r.Name == RoleSuperAdmin || r.Name == RoleSystemAdmin
}

// Principal describes the authenticated actor.
type Principal struct {
	ID       int64
	Email    string
	Name     string
	IsActive bool
	Role     *Role
}

// Check is a permission requirement evaluated against a principal.
type Check struct {
	Resource   Resource
	Action     Action
	Conditions []Condition
}

// ParseCheck parses the "resource:action[:cond1,cond2]" declaration format
// used for route registration. Condition suffixes name operators only; the
// ownership operators are keyed on the acting principal at evaluation time.
func ParseCheck(raw string) (Check, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Check{}, fmt.Errorf("authz: malformed check %q", raw)
	}
	check := Check{
		Resource: Resource(strings.ToLower(parts[0])),
		Action:   Action(strings.ToLower(parts[1])),
	}
	if !check.Resource.Valid() {
		return Check{}, fmt.Errorf("authz: unknown resource %q", parts[0])
	}
	if !check.Action.Valid() {
		return Check{}, fmt.Errorf("authz: unknown action %q", parts[1])
	}
	if len(parts) == 3 {
		for _, cond := range strings.Split(parts[2], ",") {
			op := Operator(strings.ToLower(strings.TrimSpace(cond)))
			switch op {
			case OpOwn, OpTeam, OpDepartment:
				check.Conditions = append(check.Conditions, Condition{Operator: op})
			default:
				return Check{}, fmt.Errorf("authz: unknown condition %q in check %q", cond, raw)
			}
		}
	}
	return check, nil
}
