// Package cache provides the key/value store used for list-response caching
// and session-scoped sets, with Redis and in-memory implementations.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Store is a small key/value + set store. Values are JSON encoded.
type Store interface {
	// GetJSON decodes the value at key into dest. Reports false on a miss.
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	// SetJSON stores value at key. A zero ttl means no expiry.
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	// AddMember adds member to the set at key and refreshes its ttl.
	// Reports true only when the member was not already present.
	AddMember(ctx context.Context, key, member string, ttl time.Duration) (bool, error)
	// Incr atomically increments the integer at key and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

// QueryKey builds a stable cache key for a set of query parameters.
// Parameter order does not matter.
func QueryKey(prefix string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(":")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}

	sum := md5.Sum([]byte(b.String()))
	return prefix + ":" + hex.EncodeToString(sum[:])
}
