package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(ErrServerExists, "server already indexed")
	assert.Equal(t, "server_exists: server already indexed", err.Error())

	wrapped := WrapError(ErrDiscoveryFailed, "failed to probe server", errors.New("no such host"))
	assert.Equal(t, "discovery_failed: failed to probe server: no such host", wrapped.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrInvalidDomain, KindOf(NewError(ErrInvalidDomain, "bad")))

	// Wrapping with %w keeps the kind reachable.
	inner := WrapError(ErrDiscoveryFailed, "probe failed", errors.New("timeout"))
	outer := fmt.Errorf("run aborted: %w", inner)
	assert.Equal(t, ErrDiscoveryFailed, KindOf(outer))

	// Untagged errors default to database_error.
	assert.Equal(t, ErrDatabase, KindOf(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(ErrDiscoveryFailed, "probe failed", cause)
	require.ErrorIs(t, err, cause)
}
