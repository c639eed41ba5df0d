package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/mxindex/internal/logger"
)

// newTestProber points a prober at an httptest server by stripping the
// http:// prefix off its URL and probing over plain HTTP.
func newTestProber(t *testing.T, handler http.Handler) (*Prober, string) {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	p := New(ts.Client(), logger.NewNoOp())
	p.scheme = "http"

	return p, strings.TrimPrefix(ts.URL, "http://")
}

func TestDiscoverServerInfoAllEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathClientVersions, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"versions":["r0.6.0","v1.1","v1.2"]}`))
	})
	mux.HandleFunc(pathFederationVersion, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"server":{"name":"Synapse","version":"1.99.0"}}`))
	})
	mux.HandleFunc(pathWellKnownClient, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"m.homeserver":{"base_url":"https://example.com"},
			"name":"Example","description":"An example server",
			"logo_url":"https://example.com/logo.png","theme":"dark"}`))
	})
	mux.HandleFunc(pathWellKnownServer, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"m.server":"matrix.example.com:443"}`))
	})
	mux.HandleFunc("/_matrix/client/r0/capabilities", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"capabilities":{
			"m.change_password":{"enabled":true},
			"m.room_versions":{"default":"9","available":{"9":"stable","10":"stable","6":"stable"}}}}`))
	})
	mux.HandleFunc("/_matrix/client/r0/publicRooms", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"chunk":[],"total_room_count_estimate":42}`))
	})

	p, serverDomain := newTestProber(t, mux)

	info, err := p.DiscoverServerInfo(context.Background(), serverDomain)
	require.NoError(t, err)

	require.NotNil(t, info.Version)
	assert.Equal(t, "r0.6.0,v1.1,v1.2", *info.Version)

	require.NotNil(t, info.FederationVersion)
	assert.Equal(t, "Synapse 1.99.0", *info.FederationVersion)

	require.NotNil(t, info.Name)
	assert.Equal(t, "Example", *info.Name)
	require.NotNil(t, info.Description)
	assert.Equal(t, "An example server", *info.Description)
	require.NotNil(t, info.LogoURL)
	assert.Equal(t, "https://example.com/logo.png", *info.LogoURL)
	require.NotNil(t, info.Theme)
	assert.Equal(t, "dark", *info.Theme)

	require.NotNil(t, info.DelegatedServer)
	assert.Equal(t, "matrix.example.com:443", *info.DelegatedServer)

	require.NotNil(t, info.RegistrationOpen)
	assert.True(t, *info.RegistrationOpen)

	require.NotNil(t, info.RoomVersions)
	assert.Equal(t, "10,6,9", *info.RoomVersions)

	require.NotNil(t, info.PublicRoomsCount)
	assert.Equal(t, int32(42), *info.PublicRoomsCount)
}

func TestDiscoverServerInfoPartialFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathClientVersions, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"versions":["v1.1"]}`))
	})
	// Every other endpoint 404s.

	p, serverDomain := newTestProber(t, mux)

	info, err := p.DiscoverServerInfo(context.Background(), serverDomain)
	require.NoError(t, err)

	require.NotNil(t, info.Version)
	assert.Equal(t, "v1.1", *info.Version)

	assert.Nil(t, info.Name)
	assert.Nil(t, info.Description)
	assert.Nil(t, info.DelegatedServer)
	assert.Nil(t, info.RegistrationOpen)
	assert.Nil(t, info.RoomVersions)
	assert.Nil(t, info.PublicRoomsCount)
	assert.Nil(t, info.FederationVersion)
}

func TestDiscoverServerInfoNoEndpointAnswered(t *testing.T) {
	p, serverDomain := newTestProber(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	info, err := p.DiscoverServerInfo(context.Background(), serverDomain)
	require.Error(t, err)
	assert.Nil(t, info)
	assert.Contains(t, err.Error(), ErrKindServer)
}

func TestDiscoverServerInfoObjectRoomVersionValues(t *testing.T) {
	// Some homeservers report available room versions as objects rather than
	// stability strings. Only the keys matter either way.
	mux := http.NewServeMux()
	mux.HandleFunc("/_matrix/client/r0/capabilities", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"capabilities":{
			"m.change_password":{"enabled":true},
			"m.room_versions":{"default":"9","available":{"6":{},"9":{}}}}}`))
	})

	p, serverDomain := newTestProber(t, mux)

	info, err := p.DiscoverServerInfo(context.Background(), serverDomain)
	require.NoError(t, err)

	require.NotNil(t, info.RegistrationOpen)
	assert.True(t, *info.RegistrationOpen)

	require.NotNil(t, info.RoomVersions)
	assert.Equal(t, "6,9", *info.RoomVersions)
}

func TestDiscoverServerInfoRegistrationUnknown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_matrix/client/r0/capabilities", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"capabilities":{}}`))
	})

	p, serverDomain := newTestProber(t, mux)

	info, err := p.DiscoverServerInfo(context.Background(), serverDomain)
	require.NoError(t, err)

	assert.Nil(t, info.RegistrationOpen)
	assert.Nil(t, info.RoomVersions)
}

func TestDiscoverServerInfoClampsRoomCount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_matrix/client/r0/publicRooms", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"total_room_count_estimate":-5}`))
	})

	p, serverDomain := newTestProber(t, mux)

	info, err := p.DiscoverServerInfo(context.Background(), serverDomain)
	require.NoError(t, err)

	require.NotNil(t, info.PublicRoomsCount)
	assert.Equal(t, int32(0), *info.PublicRoomsCount)
}

func TestCheckServerStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathClientVersions, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"versions":["v1.1"]}`))
	})

	p, serverDomain := newTestProber(t, mux)

	assert.NoError(t, p.CheckServerStatus(context.Background(), serverDomain))
}

func TestCheckServerStatusDown(t *testing.T) {
	p, serverDomain := newTestProber(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	err := p.CheckServerStatus(context.Background(), serverDomain)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrKindServer)
}

func TestServerVersion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(pathClientVersions, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"versions":["v1.1","v1.2"]}`))
	})

	p, serverDomain := newTestProber(t, mux)

	version, err := p.ServerVersion(context.Background(), serverDomain)
	require.NoError(t, err)
	assert.Equal(t, "v1.1,v1.2", version)
}

func TestFetchPublicRooms(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_matrix/client/r0/publicRooms", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"chunk":[{"room_id":"!a:b"}]}`))
	})

	p, serverDomain := newTestProber(t, mux)

	raw, err := p.FetchPublicRooms(context.Background(), serverDomain, 50)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "room_id")
}

func TestClampRoomCount(t *testing.T) {
	assert.Equal(t, int32(0), clampRoomCount(-1))
	assert.Equal(t, int32(0), clampRoomCount(0))
	assert.Equal(t, int32(1234), clampRoomCount(1234))
	assert.Equal(t, int32(2147483647), clampRoomCount(1<<40))
}
