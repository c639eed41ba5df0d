package cache

import (
	"fmt"
	"strconv"

	"github.com/jonesrussell/mxindex/internal/domain"
)

// Cache TTL tiers.
const (
	TTLShort  = 60
	TTLMedium = 300
	TTLLong   = 3600
)

// KeyServersList is the cache key for the default server listing.
const KeyServersList = "servers:list"

// PatternServers matches every server listing and search entry.
const PatternServers = "servers:*"

// ServerInfoKey builds the cache key for a single server's liveness view.
func ServerInfoKey(domain string) string {
	return "server:info:" + domain
}

// SearchKey builds a deterministic cache key for a search filter. Every
// filter field participates so distinct queries never collide.
func SearchKey(f domain.ServerFilter) string {
	return fmt.Sprintf(
		"servers:search:%s:%s:%s:%s:%s:%s:%d:%d",
		f.Search,
		boolParam(f.RegistrationOpen),
		boolParam(f.HasRooms),
		f.RoomVersion,
		f.SortBy,
		f.SortOrder,
		f.Limit,
		f.Offset,
	)
}

// boolParam renders an optional boolean as it appeared in the query string.
func boolParam(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
