package client

import (
	"context"

	"github.com/evcraddock/house-market/internal/membership"
	"github.com/evcraddock/house-market/internal/preference"
	"github.com/evcraddock/house-market/internal/querycache"
)

const preferencesKey = "preferences"

// Preferences keeps the signed-in user's saved listings in a local cache and
// applies toggles optimistically.
type Preferences struct {
	client *Client
	cache  *querycache.Cache[preference.Preference]
}

// NewPreferences wraps c with a preference cache.
func NewPreferences(c *Client) *Preferences {
	return &Preferences{client: c, cache: querycache.New[preference.Preference]()}
}

// Get returns the cached preferences, reading the server when the cache is
// empty or stale.
func (p *Preferences) Get(ctx context.Context) (preference.Preference, error) {
	return p.cache.Fetch(ctx, preferencesKey, func(ctx context.Context) (preference.Preference, error) {
		pref, err := p.client.GetPreferences(ctx)
		if err != nil {
			return preference.Preference{}, err
		}
		return *pref, nil
	})
}

// Current returns the cached value without a server read. It includes
// toggles still in flight.
func (p *Preferences) Current() (preference.Preference, bool) {
	return p.cache.Get(preferencesKey)
}

// Contains reports whether propertyID is in list according to the cache.
func (p *Preferences) Contains(list preference.List, propertyID string) bool {
	pref, ok := p.Current()
	if !ok {
		return false
	}
	return membership.Contains(listOf(pref, list), propertyID)
}

// Toggle flips propertyID in list. The cache shows the new membership
// immediately; if the server rejects the change the previous value is
// restored and the server's error is returned. A toggle of the same id
// made while an earlier one is still pending joins it, so a double click
// flips the membership once. The preferences are read first when nothing is
// cached yet.
func (p *Preferences) Toggle(ctx context.Context, list preference.List, propertyID string) error {
	if _, ok := p.Current(); !ok {
		if _, err := p.Get(ctx); err != nil {
			return err
		}
	}

	apply := func(prev preference.Preference, _ bool) preference.Preference {
		next := prev
		ids := membership.Toggle(listOf(prev, list), propertyID)
		if list == preference.Favorites {
			next.Favorites = ids
		} else {
			next.Catalogue = ids
		}
		return next
	}
	commit := func(ctx context.Context) error {
		_, err := p.client.TogglePreference(ctx, list, propertyID)
		return err
	}
	return p.cache.MutateShared(ctx, preferencesKey, string(list)+"/"+propertyID, apply, commit)
}

func listOf(p preference.Preference, list preference.List) []string {
	if list == preference.Favorites {
		return p.Favorites
	}
	return p.Catalogue
}
