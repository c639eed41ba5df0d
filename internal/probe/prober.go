package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/jonesrussell/mxindex/internal/domain"
	"github.com/jonesrussell/mxindex/internal/logger"
)

// Matrix endpoints inspected during a probe.
const (
	pathClientVersions    = "/_matrix/client/versions"
	pathFederationVersion = "/_matrix/federation/v1/version"
	pathWellKnownClient   = "/.well-known/matrix/client"
	pathWellKnownServer   = "/.well-known/matrix/server"
	pathCapabilities      = "/_matrix/client/r0/capabilities"
	pathPublicRooms       = "/_matrix/client/r0/publicRooms?limit=1"
)

// maxResponseBodyBytes caps how much of a probe response is read. Homeserver
// metadata responses are small; anything larger is not worth decoding.
const maxResponseBodyBytes = 1 << 20

// Prober inspects Matrix homeservers over their public HTTP endpoints.
type Prober struct {
	client *http.Client
	log    logger.Interface
	scheme string
}

// New creates a prober that talks to homeservers over HTTPS.
func New(client *http.Client, log logger.Interface) *Prober {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &Prober{
		client: client,
		log:    log,
		scheme: "https",
	}
}

type versionsResponse struct {
	Versions []string `json:"versions"`
}

type federationVersionResponse struct {
	Server struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"server"`
}

type wellKnownClientResponse struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	LogoURL     *string `json:"logo_url"`
	Theme       *string `json:"theme"`
}

type wellKnownServerResponse struct {
	Server *string `json:"m.server"`
}

type capabilitiesResponse struct {
	Capabilities struct {
		ChangePassword *struct {
			Enabled bool `json:"enabled"`
		} `json:"m.change_password"`
		// Only the available version keys matter; servers disagree on the
		// value shape (stability strings vs objects), so values are left raw.
		RoomVersions *struct {
			Default   string                     `json:"default"`
			Available map[string]json.RawMessage `json:"available"`
		} `json:"m.room_versions"`
	} `json:"capabilities"`
}

type publicRoomsResponse struct {
	TotalRoomCountEstimate *int64 `json:"total_room_count_estimate"`
}

// DiscoverServerInfo runs every sub-probe against a homeserver and merges
// the results. Each sub-probe is best effort: a failing endpoint leaves its
// attributes unset. The probe as a whole fails only when not a single
// endpoint answered, with the first transport error classified into a stable
// failure kind.
func (p *Prober) DiscoverServerInfo(ctx context.Context, serverDomain string) (*domain.DiscoveredInfo, error) {
	info := &domain.DiscoveredInfo{}
	answered := false
	var firstErr error

	note := func(err error) bool {
		if err == nil {
			answered = true
			return true
		}
		if firstErr == nil {
			firstErr = err
		}
		p.log.Debug("probe endpoint failed", "domain", serverDomain, "error", err)
		return false
	}

	var versions versionsResponse
	if note(p.getJSON(ctx, p.url(serverDomain, pathClientVersions), &versions)) && len(versions.Versions) > 0 {
		v := strings.Join(versions.Versions, ",")
		info.Version = &v
	}

	var fed federationVersionResponse
	if note(p.getJSON(ctx, p.url(serverDomain, pathFederationVersion), &fed)) && fed.Server.Name != "" {
		fv := fed.Server.Name
		if fed.Server.Version != "" {
			fv = fed.Server.Name + " " + fed.Server.Version
		}
		info.FederationVersion = &fv
	}

	var wkc wellKnownClientResponse
	if note(p.getJSON(ctx, p.url(serverDomain, pathWellKnownClient), &wkc)) {
		info.Name = wkc.Name
		info.Description = wkc.Description
		info.LogoURL = wkc.LogoURL
		info.Theme = wkc.Theme
	}

	var wks wellKnownServerResponse
	if note(p.getJSON(ctx, p.url(serverDomain, pathWellKnownServer), &wks)) {
		info.DelegatedServer = wks.Server
	}

	var caps capabilitiesResponse
	if note(p.getJSON(ctx, p.url(serverDomain, pathCapabilities), &caps)) {
		if caps.Capabilities.ChangePassword != nil {
			open := caps.Capabilities.ChangePassword.Enabled
			info.RegistrationOpen = &open
		}
		if caps.Capabilities.RoomVersions != nil && len(caps.Capabilities.RoomVersions.Available) > 0 {
			rv := joinRoomVersions(caps.Capabilities.RoomVersions.Available)
			info.RoomVersions = &rv
		}
	}

	var rooms publicRoomsResponse
	if note(p.getJSON(ctx, p.url(serverDomain, pathPublicRooms), &rooms)) && rooms.TotalRoomCountEstimate != nil {
		count := clampRoomCount(*rooms.TotalRoomCountEstimate)
		info.PublicRoomsCount = &count
	}

	if !answered {
		kind := Classify(firstErr)
		return nil, fmt.Errorf("%s: probing %s: %w", kind, serverDomain, firstErr)
	}

	return info, nil
}

// CheckServerStatus reports whether a homeserver answers its client versions
// endpoint. A nil error means the server is reachable.
func (p *Prober) CheckServerStatus(ctx context.Context, serverDomain string) error {
	var versions versionsResponse
	if err := p.getJSON(ctx, p.url(serverDomain, pathClientVersions), &versions); err != nil {
		return fmt.Errorf("%s: %w", Classify(err), err)
	}
	return nil
}

// ServerVersion fetches the supported client versions of a live homeserver.
func (p *Prober) ServerVersion(ctx context.Context, serverDomain string) (string, error) {
	var versions versionsResponse
	if err := p.getJSON(ctx, p.url(serverDomain, pathClientVersions), &versions); err != nil {
		return "", fmt.Errorf("%s: %w", Classify(err), err)
	}
	return strings.Join(versions.Versions, ","), nil
}

// FetchPublicRooms fetches the public rooms listing of a homeserver. The
// response is returned raw so callers decode only the fields they need.
func (p *Prober) FetchPublicRooms(ctx context.Context, serverDomain string, limit int) (json.RawMessage, error) {
	url := fmt.Sprintf("%s://%s/_matrix/client/r0/publicRooms?limit=%d", p.scheme, serverDomain, limit)

	var raw json.RawMessage
	if err := p.getJSON(ctx, url, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", Classify(err), err)
	}
	return raw, nil
}

func (p *Prober) url(serverDomain, path string) string {
	return fmt.Sprintf("%s://%s%s", p.scheme, serverDomain, path)
}

// getJSON performs a GET and decodes the JSON body into dest. Non-2xx
// responses are errors.
func (p *Prober) getJSON(ctx context.Context, url string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}

	return nil
}

// joinRoomVersions renders the available room versions as a deterministic
// comma-joined list.
func joinRoomVersions(available map[string]json.RawMessage) string {
	versions := make([]string, 0, len(available))
	for v := range available {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return strings.Join(versions, ",")
}

// clampRoomCount bounds a reported room count to a non-negative int32.
func clampRoomCount(n int64) int32 {
	if n < 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(n)
}
