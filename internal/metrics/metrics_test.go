package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheOperation(t *testing.T) {
	m := New()

	m.CacheOperation("get", "hit")
	m.CacheOperation("get", "hit")
	m.CacheOperation("get", "miss")

	assert.InDelta(t, 2, testutil.ToFloat64(m.CacheOperationsTotal.WithLabelValues("get", "hit")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CacheOperationsTotal.WithLabelValues("get", "miss")), 0.001)
}

func TestServersIndexedGauge(t *testing.T) {
	m := New()

	m.SetServersIndexed(10)
	m.ServerIndexed()

	assert.InDelta(t, 11, testutil.ToFloat64(m.ServersIndexed), 0.001)
}

func TestDiscoveryCounters(t *testing.T) {
	m := New()

	m.DiscoveryRun()
	m.DiscoveryError("discovery_failed")

	assert.InDelta(t, 1, testutil.ToFloat64(m.DiscoveryRunsTotal), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DiscoveryErrorsTotal.WithLabelValues("discovery_failed")), 0.001)
}

func TestMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := New()
	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/servers/:domain", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/servers/matrix.org", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 1,
		testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/servers/:domain", "200")), 0.001)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.SetServersIndexed(3)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mxindex_servers_indexed 3")
}
