// Package service implements the read and write paths over the cache, the
// repository, and the prober. Handlers and the discovery engine both go
// through it so cache invalidation cannot be skipped.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/jonesrussell/mxindex/internal/cache"
	"github.com/jonesrussell/mxindex/internal/database"
	"github.com/jonesrussell/mxindex/internal/domain"
	"github.com/jonesrussell/mxindex/internal/logger"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	Insert(ctx context.Context, ns *domain.NewServer) (*domain.Server, error)
	GetByDomain(ctx context.Context, d string) (*domain.Server, error)
	Exists(ctx context.Context, d string) (bool, error)
	Find(ctx context.Context, filter domain.ServerFilter) (*domain.PaginatedServers, error)
	Ping(ctx context.Context) error
}

// Cache is the cache surface the service needs. Every cache failure is
// swallowed; the repository is always authoritative.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	InvalidatePattern(ctx context.Context, pattern string) error
}

// Prober is the probe surface the service needs.
type Prober interface {
	DiscoverServerInfo(ctx context.Context, serverDomain string) (*domain.DiscoveredInfo, error)
	CheckServerStatus(ctx context.Context, serverDomain string) error
	ServerVersion(ctx context.Context, serverDomain string) (string, error)
}

// Health reports service dependency availability.
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Service composes the cache, the repository, and the prober.
type Service struct {
	repo   Repository
	cache  Cache
	prober Prober
	log    logger.Interface
}

// New creates a service.
func New(repo Repository, c Cache, prober Prober, log logger.Interface) *Service {
	return &Service{
		repo:   repo,
		cache:  c,
		prober: prober,
		log:    log,
	}
}

// ServerInfo returns the liveness view of a homeserver, cached for a short
// TTL. An unreachable server is an online=false view, not an error.
func (s *Service) ServerInfo(ctx context.Context, d string) (*domain.ServerInfo, error) {
	d = domain.NormalizeDomain(d)
	if !domain.ValidDomain(d) {
		return nil, domain.NewError(domain.ErrInvalidServer, "invalid server domain")
	}

	key := cache.ServerInfoKey(d)
	var cached domain.ServerInfo
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	info := domain.ServerInfo{Server: d, Status: domain.StatusOnline}
	if err := s.prober.CheckServerStatus(ctx, d); err != nil {
		msg := err.Error()
		info.Status = domain.StatusOffline
		info.Error = &msg
	} else if version, err := s.prober.ServerVersion(ctx, d); err == nil && version != "" {
		info.Version = &version
	}

	s.cacheSet(ctx, key, info, cache.TTLShort*time.Second)
	return &info, nil
}

// AddServer probes a homeserver and inserts it into the index. On success the
// listing and search cache entries are invalidated so readers see the new
// record within one request.
func (s *Service) AddServer(ctx context.Context, d string) (*domain.Server, error) {
	d = domain.NormalizeDomain(d)
	if !domain.ValidDomain(d) {
		return nil, domain.NewError(domain.ErrInvalidDomain, "invalid server domain")
	}

	exists, err := s.repo.Exists(ctx, d)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabase, "failed to check server existence", err)
	}
	if exists {
		return nil, domain.NewError(domain.ErrServerExists, "server already indexed")
	}

	info, err := s.prober.DiscoverServerInfo(ctx, d)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDiscoveryFailed, "failed to probe server", err)
	}

	server, err := s.repo.Insert(ctx, &domain.NewServer{Domain: d, Info: *info})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, domain.NewError(domain.ErrServerExists, "server already indexed")
		}
		return nil, domain.WrapError(domain.ErrDatabase, "failed to insert server", err)
	}

	s.invalidateServerCaches(ctx, d)
	s.log.Info("added server to index", "domain", d)

	return server, nil
}

// HasServer reports whether a domain is already indexed.
func (s *Service) HasServer(ctx context.Context, d string) (bool, error) {
	d = domain.NormalizeDomain(d)
	if !domain.ValidDomain(d) {
		return false, domain.NewError(domain.ErrInvalidDomain, "invalid server domain")
	}
	exists, err := s.repo.Exists(ctx, d)
	if err != nil {
		return false, domain.WrapError(domain.ErrDatabase, "failed to check server existence", err)
	}
	return exists, nil
}

// GetServer returns the persisted record for a domain, or nil when the domain
// is not indexed.
func (s *Service) GetServer(ctx context.Context, d string) (*domain.Server, error) {
	d = domain.NormalizeDomain(d)
	if !domain.ValidDomain(d) {
		return nil, domain.NewError(domain.ErrInvalidServer, "invalid server domain")
	}
	server, err := s.repo.GetByDomain(ctx, d)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabase, "failed to get server", err)
	}
	return server, nil
}

// ListServers returns the default listing, cached for the medium TTL.
func (s *Service) ListServers(ctx context.Context) (*domain.PaginatedServers, error) {
	var cached domain.PaginatedServers
	if s.cacheGet(ctx, cache.KeyServersList, &cached) {
		return &cached, nil
	}

	page, err := s.repo.Find(ctx, domain.ServerFilter{Limit: domain.DefaultLimit})
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabase, "failed to list servers", err)
	}

	s.cacheSet(ctx, cache.KeyServersList, page, cache.TTLMedium*time.Second)
	return page, nil
}

// SearchServers returns a filtered listing, cached per distinct filter for the
// short TTL. The filter is normalized before the key is built so equivalent
// queries share an entry.
func (s *Service) SearchServers(ctx context.Context, filter domain.ServerFilter) (*domain.PaginatedServers, error) {
	filter.Normalize()

	key := cache.SearchKey(filter)
	var cached domain.PaginatedServers
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	page, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrDatabase, "failed to search servers", err)
	}

	s.cacheSet(ctx, key, page, cache.TTLShort*time.Second)
	return page, nil
}

// HealthCheck reports database availability.
func (s *Service) HealthCheck(ctx context.Context) *Health {
	h := &Health{Status: "ok", Database: "ok"}
	if err := s.repo.Ping(ctx); err != nil {
		s.log.Warn("database health check failed", "error", err)
		h.Status = "degraded"
		h.Database = "unavailable"
	}
	return h
}

// invalidateServerCaches drops every listing entry plus the liveness view of
// one domain after a write.
func (s *Service) invalidateServerCaches(ctx context.Context, d string) {
	if err := s.cache.InvalidatePattern(ctx, cache.PatternServers); err != nil && !errors.Is(err, cache.ErrNotInitialized) {
		s.log.Warn("failed to invalidate server listings", "error", err)
	}
	if err := s.cache.Delete(ctx, cache.ServerInfoKey(d)); err != nil && !errors.Is(err, cache.ErrNotInitialized) {
		s.log.Warn("failed to invalidate server info", "domain", d, "error", err)
	}
}

// cacheGet reports whether key was a cache hit, decoding into dest on hit.
func (s *Service) cacheGet(ctx context.Context, key string, dest any) bool {
	err := s.cache.Get(ctx, key, dest)
	if err == nil {
		return true
	}
	if !errors.Is(err, cache.ErrMiss) && !errors.Is(err, cache.ErrNotInitialized) {
		s.log.Debug("cache read failed", "key", key, "error", err)
	}
	return false
}

// cacheSet writes a cache entry, best effort.
func (s *Service) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, value, ttl); err != nil && !errors.Is(err, cache.ErrNotInitialized) {
		s.log.Debug("cache write failed", "key", key, "error", err)
	}
}
