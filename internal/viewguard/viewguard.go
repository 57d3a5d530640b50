// Package viewguard remembers which properties a browsing session has already
// viewed so the view counter moves at most once per property per session.
package viewguard

import (
	"context"
	"fmt"
	"time"

	"github.com/evcraddock/house-market/internal/cache"
	"github.com/evcraddock/house-market/internal/errs"
)

const keyPrefix = "viewed:"

// Guard records first views per session in a cache set.
type Guard struct {
	store cache.Store
	ttl   time.Duration
}

// New creates a guard whose per-session sets expire after ttl, normally the
// session lifetime.
func New(store cache.Store, ttl time.Duration) *Guard {
	return &Guard{store: store, ttl: ttl}
}

// FirstView marks propertyID as viewed in sessionID and reports whether this
// is the first view in that session.
func (g *Guard) FirstView(ctx context.Context, sessionID, propertyID string) (bool, error) {
	if sessionID == "" || propertyID == "" {
		return false, fmt.Errorf("%w: session and property are required", errs.ErrInvalid)
	}

	added, err := g.store.AddMember(ctx, keyPrefix+sessionID, propertyID, g.ttl)
	if err != nil {
		return false, fmt.Errorf("recording view: %w", err)
	}
	return added, nil
}
