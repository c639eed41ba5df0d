package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterNormalizeClampsBounds(t *testing.T) {
	tests := []struct {
		name       string
		filter     ServerFilter
		wantLimit  int
		wantOffset int
	}{
		{"zero limit", ServerFilter{Limit: 0}, MinLimit, 0},
		{"negative limit", ServerFilter{Limit: -5}, MinLimit, 0},
		{"oversized limit", ServerFilter{Limit: 1000}, MaxLimit, 0},
		{"negative offset", ServerFilter{Limit: 10, Offset: -1}, 10, 0},
		{"in range", ServerFilter{Limit: 25, Offset: 50}, 25, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Normalize()
			assert.Equal(t, tt.wantLimit, tt.filter.Limit)
			assert.Equal(t, tt.wantOffset, tt.filter.Offset)
		})
	}
}

func TestFilterNormalizeSortFallbacks(t *testing.T) {
	f := ServerFilter{SortBy: "bogus", SortOrder: "sideways", Limit: 10}
	f.Normalize()
	assert.Equal(t, SortByCreatedAt, f.SortBy)
	assert.Equal(t, "desc", f.SortOrder)

	f = ServerFilter{SortBy: SortByRoomsCount, SortOrder: "ASC", Limit: 10}
	f.Normalize()
	assert.Equal(t, SortByRoomsCount, f.SortBy)
	assert.Equal(t, "asc", f.SortOrder)
}

func TestValidDomain(t *testing.T) {
	assert.True(t, ValidDomain("matrix.org"))
	assert.True(t, ValidDomain("sub.matrix.org"))
	assert.False(t, ValidDomain(""))
	assert.False(t, ValidDomain("matrix.org/path"))
	assert.False(t, ValidDomain("matrix.org:8448"))
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "matrix.org", NormalizeDomain("  Matrix.ORG "))
	assert.Equal(t, "envs.net", NormalizeDomain("envs.net"))
}
