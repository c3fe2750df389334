package authz

import (
	"context"
	"strconv"
)

// Resource data field names the condition evaluator understands.
const (
	FieldCreatedBy  = "createdById"
	FieldAssignedTo = "assignedToId"
)

// TeamResolver looks up the member ids of the acting principal's team.
type TeamResolver interface {
	TeamMembers(ctx context.Context, principalID int64) ([]int64, error)
}

// SelfTeamResolver treats every principal as its own one-member team.
type SelfTeamResolver struct{}

// TeamMembers returns the principal itself.
func (SelfTeamResolver) TeamMembers(_ context.Context, principalID int64) ([]int64, error) {
	return []int64{principalID}, nil
}

// evalCondition evaluates a single condition against resource data. The
// ownership operators compare the record's creator/assignee fields with the
// acting principal; when the data carries neither field there is nothing to
// evaluate against and the condition is skipped (treated as satisfied), the
// same way checks without resource data are.
func evalCondition(cond Condition, principalID int64, teamIDs []int64, data map[string]any) bool {
	switch cond.Operator {
	case OpEq:
		return looseEqual(data[cond.Field], cond.Value)
	case OpNe:
		return !looseEqual(data[cond.Field], cond.Value)
	case OpIn:
		return valueIn(data[cond.Field], cond.Value)
	case OpNin:
		return !valueIn(data[cond.Field], cond.Value)
	case OpOwn:
		created, hasCreated := asInt64(data[FieldCreatedBy])
		assigned, hasAssigned := asInt64(data[FieldAssignedTo])
		if !hasCreated && !hasAssigned {
			return true
		}
		return (hasCreated && created == principalID) || (hasAssigned && assigned == principalID)
	case OpTeam, OpDepartment:
		created, hasCreated := asInt64(data[FieldCreatedBy])
		assigned, hasAssigned := asInt64(data[FieldAssignedTo])
		if !hasCreated && !hasAssigned {
			return true
		}
		for _, member := range teamIDs {
			if (hasCreated && created == member) || (hasAssigned && assigned == member) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// needsTeam reports whether any condition requires team resolution.
func needsTeam(conds []Condition) bool {
	for _, c := range conds {
		if c.Operator == OpTeam || c.Operator == OpDepartment {
			return true
		}
	}
	return false
}

// looseEqual compares two values, normalizing numeric types so that ids
// read back as int, int64 or float64 compare equal.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if ai, ok := asInt64(a); ok {
		if bi, bok := asInt64(b); bok {
			return ai == bi
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	return a == b
}

func valueIn(v, set any) bool {
	switch items := set.(type) {
	case []any:
		for _, item := range items {
			if looseEqual(v, item) {
				return true
			}
		}
	case []string:
		for _, item := range items {
			if looseEqual(v, item) {
				return true
			}
		}
	case []int64:
		for _, item := range items {
			if looseEqual(v, item) {
				return true
			}
		}
	}
	return false
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
