package authz

import "strconv"

// FilterKind discriminates the visibility filter variants.
type FilterKind int

// Filter variants, from widest to narrowest.
const (
	FilterUnrestricted FilterKind = iota
	FilterOwned
	FilterTeam
	FilterNone
)

// QueryFilter expresses the visibility scope for list and read queries on a
// resource. Repositories merge it into their where clauses; fakes and the
// per-row fallback use Allows.
type QueryFilter struct {
	Kind        FilterKind
	PrincipalID int64
	TeamIDs     []int64
}

// Unrestricted places no visibility restriction.
func Unrestricted() QueryFilter {
	return QueryFilter{Kind: FilterUnrestricted}
}

// MatchNone matches no rows. Used to fail closed.
func MatchNone() QueryFilter {
	return QueryFilter{Kind: FilterNone}
}

// OwnedBy restricts visibility to rows created by or assigned to the principal.
func OwnedBy(principalID int64) QueryFilter {
	return QueryFilter{Kind: FilterOwned, PrincipalID: principalID}
}

// TeamOf restricts visibility to rows created by or assigned to team members.
func TeamOf(memberIDs []int64) QueryFilter {
	return QueryFilter{Kind: FilterTeam, TeamIDs: memberIDs}
}

// SQL renders the filter as a where-clause fragment using positional
// arguments starting at argIndex. An unrestricted filter renders empty.
// Column names follow the shared lifecycle schema (created_by, assigned_to).
func (f QueryFilter) SQL(argIndex int) (string, []any) {
	switch f.Kind {
	case FilterNone:
		return "FALSE", nil
	case FilterOwned:
		p := "$" + strconv.Itoa(argIndex)
		return "(created_by = " + p + " OR assigned_to = " + p + ")", []any{f.PrincipalID}
	case FilterTeam:
		p := "$" + strconv.Itoa(argIndex)
		return "(created_by = ANY(" + p + ") OR assigned_to = ANY(" + p + "))", []any{f.TeamIDs}
	default:
		return "", nil
	}
}

// Allows evaluates the filter against a single row's ownership attributes.
// assignedTo zero means the row has no assignee.
func (f QueryFilter) Allows(createdBy, assignedTo int64) bool {
	switch f.Kind {
	case FilterNone:
		return false
	case FilterOwned:
		return createdBy == f.PrincipalID || (assignedTo != 0 && assignedTo == f.PrincipalID)
	case FilterTeam:
		for _, member := range f.TeamIDs {
			if createdBy == member || (assignedTo != 0 && assignedTo == member) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
