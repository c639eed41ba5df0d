package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/mxindex/internal/domain"
)

func TestServerInfoKey(t *testing.T) {
	assert.Equal(t, "server:info:matrix.org", ServerInfoKey("matrix.org"))
}

func TestSearchKeyIncludesEveryField(t *testing.T) {
	open := true
	rooms := false
	f := domain.ServerFilter{
		Search:           "matrix",
		RegistrationOpen: &open,
		HasRooms:         &rooms,
		RoomVersion:      "9",
		SortBy:           domain.SortByName,
		SortOrder:        "asc",
		Limit:            10,
		Offset:           20,
	}

	assert.Equal(t, "servers:search:matrix:true:false:9:name:asc:10:20", SearchKey(f))
}

func TestSearchKeyDistinguishesUnsetBooleans(t *testing.T) {
	var f domain.ServerFilter
	unset := SearchKey(f)

	val := false
	f.HasRooms = &val
	assert.NotEqual(t, unset, SearchKey(f))
}
