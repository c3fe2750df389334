package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryFilterSQL(t *testing.T) {
	sql, args := Unrestricted().SQL(1)
	require.Empty(t, sql)
	require.Empty(t, args)

	sql, args = MatchNone().SQL(1)
	require.Equal(t, "FALSE", sql)
	require.Empty(t, args)

	sql, args = OwnedBy(7).SQL(3)
	require.Equal(t, "(created_by = $3 OR assigned_to = $3)", sql)
	require.Equal(t, []any{int64(7)}, args)

	sql, args = TeamOf([]int64{1, 2}).SQL(2)
	require.Equal(t, "(created_by = ANY($2) OR assigned_to = ANY($2))", sql)
	require.Equal(t, []any{[]int64{1, 2}}, args)
}

func TestQueryFilterAllows(t *testing.T) {
	require.True(t, Unrestricted().Allows(1, 0))
	require.False(t, MatchNone().Allows(1, 0))

	owned := OwnedBy(7)
	require.True(t, owned.Allows(7, 0))
	require.True(t, owned.Allows(2, 7))
	require.False(t, owned.Allows(2, 3))
	// zero assignee means unassigned, never a match
	require.False(t, OwnedBy(0).Allows(1, 0))

	team := TeamOf([]int64{4, 5})
	require.True(t, team.Allows(4, 0))
	require.True(t, team.Allows(1, 5))
	require.False(t, team.Allows(1, 0))
}
