package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/mxindex/internal/domain"
)

func boolPtr(b bool) *bool {
	return &b
}

func TestBuildServerWhereEmpty(t *testing.T) {
	where, args := buildServerWhere(domain.ServerFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildServerWhereSearch(t *testing.T) {
	where, args := buildServerWhere(domain.ServerFilter{Search: "matrix"})

	assert.Equal(t, "WHERE (domain ILIKE $1 OR name ILIKE $1 OR description ILIKE $1)", where)
	require.Len(t, args, 1)
	assert.Equal(t, "%matrix%", args[0])
}

func TestBuildServerWhereHasRooms(t *testing.T) {
	where, args := buildServerWhere(domain.ServerFilter{HasRooms: boolPtr(true)})
	assert.Equal(t, "WHERE public_rooms_count > 0", where)
	assert.Empty(t, args)

	where, args = buildServerWhere(domain.ServerFilter{HasRooms: boolPtr(false)})
	assert.Equal(t, "WHERE (public_rooms_count IS NULL OR public_rooms_count <= 0)", where)
	assert.Empty(t, args)
}

func TestBuildServerWhereCombined(t *testing.T) {
	where, args := buildServerWhere(domain.ServerFilter{
		Search:           "matrix",
		RegistrationOpen: boolPtr(true),
		HasRooms:         boolPtr(true),
		RoomVersion:      "9",
	})

	assert.Equal(t,
		"WHERE (domain ILIKE $1 OR name ILIKE $1 OR description ILIKE $1)"+
			" AND registration_open = $2 AND public_rooms_count > 0 AND room_versions ILIKE $3",
		where,
	)
	require.Len(t, args, 3)
	assert.Equal(t, "%matrix%", args[0])
	assert.Equal(t, true, args[1])
	assert.Equal(t, "%9%", args[2])
}

func TestBuildServerWhereEscapesWildcards(t *testing.T) {
	// User terms match literally; ILIKE metacharacters never act as wildcards.
	_, args := buildServerWhere(domain.ServerFilter{Search: "50%"})
	require.Len(t, args, 1)
	assert.Equal(t, `%50\%%`, args[0])

	_, args = buildServerWhere(domain.ServerFilter{Search: "my_server"})
	require.Len(t, args, 1)
	assert.Equal(t, `%my\_server%`, args[0])

	_, args = buildServerWhere(domain.ServerFilter{RoomVersion: `v_1\`})
	require.Len(t, args, 1)
	assert.Equal(t, `%v\_1\\%`, args[0])
}

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name   string
		filter domain.ServerFilter
		want   string
	}{
		{
			name:   "default",
			filter: domain.ServerFilter{SortBy: domain.SortByCreatedAt, SortOrder: "desc"},
			want:   "ORDER BY created_at DESC, id ASC",
		},
		{
			name:   "name ascending uses coalesce",
			filter: domain.ServerFilter{SortBy: domain.SortByName, SortOrder: "asc"},
			want:   "ORDER BY COALESCE(name, '') ASC, id ASC",
		},
		{
			name:   "rooms count",
			filter: domain.ServerFilter{SortBy: domain.SortByRoomsCount, SortOrder: "asc"},
			want:   "ORDER BY COALESCE(public_rooms_count, 0) ASC, id ASC",
		},
		{
			name:   "unknown sort falls back",
			filter: domain.ServerFilter{SortBy: "bogus", SortOrder: "bogus"},
			want:   "ORDER BY created_at DESC, id ASC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.filter))
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(assert.AnError))
}
