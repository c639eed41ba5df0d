// Package discovery walks the federation graph outward from seed servers,
// indexing every reachable homeserver up to a configured depth.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jonesrussell/mxindex/internal/domain"
)

// peerRoomLimit bounds how many public rooms are scanned for peer references
// on a single server.
const peerRoomLimit = 100

// domainPattern matches bare domain names embedded in free text such as room
// topics. Ports and paths are not part of the match.
var domainPattern = regexp.MustCompile(`[a-zA-Z0-9][-a-zA-Z0-9]*(?:\.[a-zA-Z0-9][-a-zA-Z0-9]*)*\.[a-zA-Z]{2,}`)

// RoomLister fetches the raw public rooms listing of a homeserver.
// Implemented by probe.Prober.
type RoomLister interface {
	FetchPublicRooms(ctx context.Context, serverDomain string, limit int) (json.RawMessage, error)
}

// PeerFetcher extracts peer homeserver domains from a server's public rooms
// directory. Room member ids and room topics both carry references to other
// servers in the federation.
type PeerFetcher struct {
	rooms RoomLister
}

// NewPeerFetcher creates a peer fetcher backed by a room lister.
func NewPeerFetcher(rooms RoomLister) *PeerFetcher {
	return &PeerFetcher{rooms: rooms}
}

type publicRoomsChunk struct {
	Chunk []struct {
		Topic  string `json:"topic"`
		Heroes []struct {
			MXID string `json:"mxid"`
		} `json:"heroes"`
	} `json:"chunk"`
}

// FetchPeers returns the deduplicated peer domains referenced by a server's
// public rooms. The origin server itself and .onion addresses are excluded.
func (f *PeerFetcher) FetchPeers(ctx context.Context, serverDomain string) ([]string, error) {
	raw, err := f.rooms.FetchPublicRooms(ctx, serverDomain, peerRoomLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list public rooms on %s: %w", serverDomain, err)
	}

	var listing publicRoomsChunk
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode public rooms from %s: %w", serverDomain, err)
	}

	origin := domain.NormalizeDomain(serverDomain)
	seen := make(map[string]struct{})
	peers := []string{}

	add := func(candidate string) {
		d := domain.NormalizeDomain(candidate)
		if !usablePeer(d, origin) {
			return
		}
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		peers = append(peers, d)
	}

	for _, room := range listing.Chunk {
		for _, hero := range room.Heroes {
			add(ExtractDomainFromMXID(hero.MXID))
		}
		for _, match := range domainPattern.FindAllString(room.Topic, -1) {
			add(match)
		}
	}

	return peers, nil
}

// ExtractDomainFromMXID pulls the server part out of a Matrix user id of the
// form @localpart:server, dropping any port. Returns "" for malformed ids.
func ExtractDomainFromMXID(mxid string) string {
	if !strings.HasPrefix(mxid, "@") {
		return ""
	}

	idx := strings.IndexByte(mxid, ':')
	if idx < 0 || idx == len(mxid)-1 {
		return ""
	}

	host := mxid[idx+1:]
	if portIdx := strings.IndexByte(host, ':'); portIdx >= 0 {
		host = host[:portIdx]
	}

	return host
}

// usablePeer reports whether a normalized candidate domain is worth probing.
func usablePeer(d, origin string) bool {
	if !domain.ValidDomain(d) {
		return false
	}
	if d == origin {
		return false
	}
	if strings.HasSuffix(d, ".onion") {
		return false
	}
	return true
}
