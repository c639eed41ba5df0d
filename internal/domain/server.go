// Package domain defines the core types shared across the service.
package domain

import (
	"strings"
	"time"
)

// Sort field names accepted by ServerFilter.
const (
	SortByCreatedAt  = "created_at"
	SortByName       = "name"
	SortByDomain     = "domain"
	SortByRoomsCount = "public_rooms_count"
)

// Pagination bounds.
const (
	DefaultLimit = 50
	MaxLimit     = 100
	MinLimit     = 1
)

// Server is a homeserver record persisted in the index.
type Server struct {
	ID                int64      `db:"id"                 json:"id"`
	Domain            string     `db:"domain"             json:"domain"`
	Name              *string    `db:"name"               json:"name"`
	Description       *string    `db:"description"        json:"description"`
	LogoURL           *string    `db:"logo_url"           json:"logo_url"`
	Theme             *string    `db:"theme"              json:"theme"`
	RegistrationOpen  *bool      `db:"registration_open"  json:"registration_open"`
	PublicRoomsCount  *int32     `db:"public_rooms_count" json:"public_rooms_count"`
	Version           *string    `db:"version"            json:"version"`
	FederationVersion *string    `db:"federation_version" json:"federation_version"`
	DelegatedServer   *string    `db:"delegated_server"   json:"delegated_server"`
	RoomVersions      *string    `db:"room_versions"      json:"room_versions"`
	CreatedAt         time.Time  `db:"created_at"         json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"         json:"updated_at"`
}

// DiscoveredInfo holds the attributes a probe extracted from a homeserver.
// Unset fields mean the corresponding sub-probe did not answer.
type DiscoveredInfo struct {
	Name              *string
	Description       *string
	LogoURL           *string
	Theme             *string
	RegistrationOpen  *bool
	PublicRoomsCount  *int32
	Version           *string
	FederationVersion *string
	DelegatedServer   *string
	RoomVersions      *string
}

// NewServer is the insertable shape of a server record.
type NewServer struct {
	Domain string
	Info   DiscoveredInfo
}

// ServerInfo is the liveness view of a single homeserver.
type ServerInfo struct {
	Server  string  `json:"server"`
	Status  string  `json:"status"`
	Version *string `json:"version"`
	Error   *string `json:"error"`
}

// Server liveness statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// ServerFilter describes a filtered, sorted, paginated read of the index.
type ServerFilter struct {
	Search           string
	RegistrationOpen *bool
	HasRooms         *bool
	RoomVersion      string
	SortBy           string
	SortOrder        string
	Limit            int
	Offset           int
}

// PaginatedServers is the result of a filtered read: the page of records plus
// the total count over the filtered set before pagination.
type PaginatedServers struct {
	Servers []Server `json:"servers"`
	Total   int64    `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Normalize clamps pagination bounds and falls back to the default sort for
// unknown sort fields or orders. Absent query parameters get their defaults at
// the boundary; here limit zero clamps to the minimum like any other
// out-of-range value.
func (f *ServerFilter) Normalize() {
	switch f.SortBy {
	case SortByCreatedAt, SortByName, SortByDomain, SortByRoomsCount:
	default:
		f.SortBy = SortByCreatedAt
	}

	switch strings.ToLower(f.SortOrder) {
	case "asc":
		f.SortOrder = "asc"
	case "desc":
		f.SortOrder = "desc"
	default:
		f.SortOrder = "desc"
	}

	if f.Limit < MinLimit {
		f.Limit = MinLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// ValidDomain reports whether s looks like a bare domain name: non-empty,
// without a path or a port.
func ValidDomain(s string) bool {
	return s != "" && !strings.Contains(s, "/") && !strings.Contains(s, ":")
}

// NormalizeDomain lowercases a domain so that lookups and the uniqueness
// constraint are case-insensitive.
func NormalizeDomain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
