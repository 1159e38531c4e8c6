// Package cache provides the process-wide keyed store backing the token
// and catalog caches.
package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// Well-known keys used by the API client.
const (
	// KeyAccessToken holds the current edflex.AccessToken.
	KeyAccessToken = "edflex_access_token"
	// KeyCatalogs holds the cached catalog listing tuple.
	KeyCatalogs = "edflex_catalogs"
)

// Store is a keyed in-memory store with external TTL semantics: entries
// never expire on their own, callers are responsible for checking whatever
// expiry information they stored alongside the value.
type Store struct {
	c *gocache.Cache
}

// New creates an empty Store.
func New() *Store {
	// Janitor disabled: expiry is enforced by callers, not the store.
	return &Store{c: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns the value stored under key, or (nil, false) when absent.
func (s *Store) Get(key string) (any, bool) {
	return s.c.Get(key)
}

// Set stores value under key, replacing any previous entry.
func (s *Store) Set(key string, value any) {
	s.c.Set(key, value, gocache.NoExpiration)
}

// Delete removes the entry under key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) {
	s.c.Delete(key)
}

// Has reports whether an entry exists under key.
func (s *Store) Has(key string) bool {
	_, ok := s.c.Get(key)
	return ok
}
