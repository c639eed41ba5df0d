package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoomLister struct {
	raw json.RawMessage
	err error
}

func (f *fakeRoomLister) FetchPublicRooms(_ context.Context, _ string, _ int) (json.RawMessage, error) {
	return f.raw, f.err
}

func TestFetchPeersFromHeroesAndTopics(t *testing.T) {
	listing := `{"chunk":[
		{"topic":"Bridged to chat.example.org and matrix.org",
		 "heroes":[{"mxid":"@alice:envs.net"},{"mxid":"@bob:envs.net"}]},
		{"topic":"","heroes":[{"mxid":"@carol:tchncs.de:8448"}]}
	]}`

	f := NewPeerFetcher(&fakeRoomLister{raw: json.RawMessage(listing)})

	peers, err := f.FetchPeers(context.Background(), "seed.example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"envs.net", "chat.example.org", "matrix.org", "tchncs.de"}, peers)
}

func TestFetchPeersExcludesOriginAndOnion(t *testing.T) {
	listing := `{"chunk":[
		{"topic":"See also seed.example.com and hidden.onion",
		 "heroes":[{"mxid":"@local:SEED.example.com"},{"mxid":"@tor:abc123.onion"}]}
	]}`

	f := NewPeerFetcher(&fakeRoomLister{raw: json.RawMessage(listing)})

	peers, err := f.FetchPeers(context.Background(), "seed.example.com")
	require.NoError(t, err)
	assert.Empty(t, peers)
}

func TestFetchPeersDeduplicates(t *testing.T) {
	listing := `{"chunk":[
		{"topic":"matrix.org matrix.org","heroes":[{"mxid":"@a:matrix.org"},{"mxid":"@b:Matrix.ORG"}]}
	]}`

	f := NewPeerFetcher(&fakeRoomLister{raw: json.RawMessage(listing)})

	peers, err := f.FetchPeers(context.Background(), "seed.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"matrix.org"}, peers)
}

func TestFetchPeersListerError(t *testing.T) {
	f := NewPeerFetcher(&fakeRoomLister{err: errors.New("connection refused")})

	_, err := f.FetchPeers(context.Background(), "seed.example.com")
	assert.Error(t, err)
}

func TestExtractDomainFromMXID(t *testing.T) {
	tests := []struct {
		mxid string
		want string
	}{
		{"@alice:matrix.org", "matrix.org"},
		{"@bob:example.com:8448", "example.com"},
		{"alice:matrix.org", ""},
		{"@alice", ""},
		{"@alice:", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractDomainFromMXID(tt.mxid), "mxid %q", tt.mxid)
	}
}
