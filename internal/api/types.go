// Package api implements the HTTP boundary of the index service.
package api

import (
	"context"

	"github.com/jonesrussell/mxindex/internal/discovery"
	"github.com/jonesrussell/mxindex/internal/domain"
	"github.com/jonesrussell/mxindex/internal/service"
)

// IndexService is the service surface the handlers need.
type IndexService interface {
	ServerInfo(ctx context.Context, d string) (*domain.ServerInfo, error)
	AddServer(ctx context.Context, d string) (*domain.Server, error)
	ListServers(ctx context.Context) (*domain.PaginatedServers, error)
	SearchServers(ctx context.Context, filter domain.ServerFilter) (*domain.PaginatedServers, error)
	HealthCheck(ctx context.Context) *service.Health
}

// DiscoveryRunner starts a federation discovery run.
type DiscoveryRunner interface {
	Run(ctx context.Context, seeds []string) (*discovery.Result, error)
}

// Recorder counts boundary-level events. A nil Recorder disables counting.
type Recorder interface {
	ServerIndexed()
	DiscoveryRun()
}

// APIInfo is the service identity document served on GET /.
type APIInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// AddServerRequest is the body of POST /servers.
type AddServerRequest struct {
	Domain string `json:"domain"`
}

// DiscoverResponse is the body returned by POST /discover.
type DiscoverResponse struct {
	RunID string `json:"run_id"`
	Added int    `json:"added"`
}

// ErrorResponse is the JSON error body rendered for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
