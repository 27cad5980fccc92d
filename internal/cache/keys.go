package cache

import (
	"context"
	"time"
)

// ViewKeyPrefix namespaces cached view payloads by view path.
const ViewKeyPrefix = "view:"

// DefaultViewTTL applies when no TTL is configured.
const DefaultViewTTL = 30 * time.Second

// ViewKey is the cache key for the view rendered at path, e.g. "/thread/42".
func ViewKey(path string) string {
	return ViewKeyPrefix + path
}

// Invalidate deletes key. It is a no-op when caching is off.
func Invalidate(ctx context.Context, key string) error {
	if client == nil {
		return nil
	}
	return client.Del(ctx, key).Err()
}
