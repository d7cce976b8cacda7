package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeysForEmbedsHashTag(t *testing.T) {
	k := keysFor(42)
	for _, key := range []string{k.available, k.reserved, k.sold, k.pool, k.reservedExp} {
		// All five containers must share the same hash tag so that a Redis
		// Cluster colocates them and multi-key scripts stay legal.
		require.Contains(t, key, "{42}")
		require.True(t, strings.HasPrefix(key, "ticket:"))
	}
}

func TestKeysForDistinctPerClassAndKind(t *testing.T) {
	a, b := keysFor(1), keysFor(2)
	require.NotEqual(t, a.available, b.available)

	kinds := map[string]bool{}
	for _, key := range []string{a.available, a.reserved, a.sold, a.pool, a.reservedExp} {
		require.False(t, kinds[key], "duplicate container name %s", key)
		kinds[key] = true
	}
}
