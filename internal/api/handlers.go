package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/mxindex/internal/config"
	"github.com/jonesrussell/mxindex/internal/domain"
	"github.com/jonesrussell/mxindex/internal/logger"
)

// Handler handles HTTP requests for the index API.
type Handler struct {
	service  IndexService
	runner   DiscoveryRunner
	recorder Recorder
	seeds    []string
	log      logger.Interface
}

// NewHandler creates a new API handler. The runner may be nil when the
// discovery endpoint is not exposed.
func NewHandler(svc IndexService, runner DiscoveryRunner, recorder Recorder, seeds []string, log logger.Interface) *Handler {
	return &Handler{
		service:  svc,
		runner:   runner,
		recorder: recorder,
		seeds:    seeds,
		log:      log,
	}
}

// Root handles GET /.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, APIInfo{
		Name:        config.AppName,
		Version:     config.AppVersion,
		Description: config.AppDescription,
	})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.HealthCheck(c.Request.Context()))
}

// GetServerInfo handles GET /servers/:domain.
func (h *Handler) GetServerInfo(c *gin.Context) {
	info, err := h.service.ServerInfo(c.Request.Context(), c.Param("domain"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// AddServer handles POST /servers.
func (h *Handler) AddServer(c *gin.Context) {
	var req AddServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, domain.NewError(domain.ErrInvalidDomain, "invalid request body"))
		return
	}

	server, err := h.service.AddServer(c.Request.Context(), req.Domain)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if h.recorder != nil {
		h.recorder.ServerIndexed()
	}
	c.JSON(http.StatusCreated, server)
}

// ListServers handles GET /servers.
func (h *Handler) ListServers(c *gin.Context) {
	page, err := h.service.ListServers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SearchServers handles GET /servers/search.
func (h *Handler) SearchServers(c *gin.Context) {
	page, err := h.service.SearchServers(c.Request.Context(), parseServerFilter(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Discover handles POST /discover. The run executes synchronously under the
// request context.
func (h *Handler) Discover(c *gin.Context) {
	if h.recorder != nil {
		h.recorder.DiscoveryRun()
	}

	result, err := h.runner.Run(c.Request.Context(), h.seeds)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, DiscoverResponse{RunID: result.RunID, Added: result.Added})
}

// parseServerFilter builds a ServerFilter from query parameters. Values out
// of range are clamped downstream; absent values get the documented defaults.
func parseServerFilter(c *gin.Context) domain.ServerFilter {
	filter := domain.ServerFilter{
		Search:      c.Query("search"),
		RoomVersion: c.Query("room_version"),
		SortBy:      c.DefaultQuery("sort_by", domain.SortByCreatedAt),
		SortOrder:   c.DefaultQuery("sort_order", "desc"),
		Limit:       intQuery(c, "limit", domain.DefaultLimit),
		Offset:      intQuery(c, "offset", 0),
	}
	filter.RegistrationOpen = boolQuery(c, "registration_open")
	filter.HasRooms = boolQuery(c, "has_rooms")
	return filter
}

// intQuery parses an integer query parameter, falling back to a default on
// absence or parse failure.
func intQuery(c *gin.Context, name string, fallback int) int {
	raw, ok := c.GetQuery(name)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// boolQuery parses an optional boolean query parameter. Absent or unparsable
// values mean "no filter".
func boolQuery(c *gin.Context, name string) *bool {
	raw, ok := c.GetQuery(name)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

// errorStatus maps an error kind to its HTTP status.
var errorStatus = map[domain.ErrorKind]int{
	domain.ErrInvalidDomain:     http.StatusBadRequest,
	domain.ErrInvalidServer:     http.StatusBadRequest,
	domain.ErrServerExists:      http.StatusConflict,
	domain.ErrDiscoveryFailed:   http.StatusBadGateway,
	domain.ErrDatabase:          http.StatusInternalServerError,
	domain.ErrPool:              http.StatusServiceUnavailable,
	domain.ErrRateLimitExceeded: http.StatusTooManyRequests,
}

// respondError renders the JSON error body for a tagged error.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status, ok := errorStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := "internal error"
	var tagged *domain.Error
	if errors.As(err, &tagged) {
		message = tagged.Message
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "kind", string(kind), "error", err)
	} else {
		h.log.Debug("request rejected", "kind", string(kind), "error", err)
	}

	c.JSON(status, ErrorResponse{Error: string(kind), Message: message})
}
