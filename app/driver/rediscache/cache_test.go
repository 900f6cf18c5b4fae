package rediscache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"session-hub/app/cachekeys"
)

func TestStorageKeyRoundTrip(t *testing.T) {
	key := cachekeys.Profile("user-1")

	raw := storageKey(key)
	assert.Equal(t, "session-hub:profile:user-1", raw)
	assert.Equal(t, key, cacheKey(raw))
}

func TestCacheKey_ForeignKeyPassesThrough(t *testing.T) {
	// Keys without our prefix are returned untouched; the scoped predicate
	// will simply never match them.
	assert.Equal(t, cachekeys.Key("other:thing"), cacheKey("other:thing"))
}
