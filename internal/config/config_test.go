package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeedServers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "matrix.org", []string{"matrix.org"}},
		{"multiple", "matrix.org,envs.net,tchncs.de", []string{"matrix.org", "envs.net", "tchncs.de"}},
		{"spaces", " matrix.org , envs.net ", []string{"matrix.org", "envs.net"}},
		{"empty entries", "matrix.org,,envs.net,", []string{"matrix.org", "envs.net"}},
		{"empty string", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeedServers(tt.input))
		})
	}
}

func TestDiscoveryConfigNormalize(t *testing.T) {
	c := DiscoveryConfig{MaxConcurrent: -1, MaxDepth: 0, BatchSize: 0}
	c.normalize()

	assert.Equal(t, DefaultMaxConcurrent, c.MaxConcurrent)
	assert.Equal(t, DefaultMaxDepth, c.MaxDepth)
	assert.Equal(t, DefaultBatchSize, c.BatchSize)
	assert.Equal(t, DefaultProbeTimeout, c.ProbeTimeout)
	assert.Equal(t, []string{DefaultSeedServer}, c.SeedServers)
}

func TestDiscoveryConfigNormalizeKeepsValues(t *testing.T) {
	c := DiscoveryConfig{
		MaxConcurrent: 10,
		MaxDepth:      5,
		BatchSize:     50,
		ProbeTimeout:  DefaultProbeTimeout,
		SeedServers:   []string{"envs.net"},
	}
	c.normalize()

	assert.Equal(t, 10, c.MaxConcurrent)
	assert.Equal(t, 5, c.MaxDepth)
	assert.Equal(t, 50, c.BatchSize)
	assert.Equal(t, []string{"envs.net"}, c.SeedServers)
}
