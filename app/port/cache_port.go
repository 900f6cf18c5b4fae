package port

import (
	"context"
	"time"

	"session-hub/app/cachekeys"
)

// Cache is the derived-data cache collaborator. Values are opaque JSON
// blobs; keys come exclusively from the cachekeys package. All mutation of
// user-scoped entries goes through these operations, never ad hoc writes.
type Cache interface {
	Get(ctx context.Context, key cachekeys.Key) ([]byte, bool)
	Set(ctx context.Context, key cachekeys.Key, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context, key cachekeys.Key)
	// InvalidateMatching removes every entry whose key satisfies the
	// predicate. The scoped user purge is implemented on top of this.
	InvalidateMatching(ctx context.Context, match func(cachekeys.Key) bool)
	Clear(ctx context.Context)
}
