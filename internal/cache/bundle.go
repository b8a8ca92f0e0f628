// Package cache holds the query-level result cache.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/lighteternal/dendrite/internal/model"
	"github.com/lighteternal/dendrite/internal/textutil"
)

// BundleCache memoizes resolved bundles per normalized query. Entries expire
// after the TTL and the least recently used entry is evicted at capacity.
type BundleCache struct {
	lru *expirable.LRU[string, *model.QueryEntityBundle]
}

// NewBundleCache creates a cache with the given capacity and TTL.
func NewBundleCache(maxEntries int, ttl time.Duration) *BundleCache {
	return &BundleCache{lru: expirable.NewLRU[string, *model.QueryEntityBundle](maxEntries, nil, ttl)}
}

// Get returns the cached bundle for a query, if present. Queries differing
// only in case or whitespace share an entry.
func (c *BundleCache) Get(query string) (*model.QueryEntityBundle, bool) {
	return c.lru.Get(textutil.Normalize(query))
}

// Set stores a bundle under the query's normalized form.
func (c *BundleCache) Set(query string, bundle *model.QueryEntityBundle) {
	c.lru.Add(textutil.Normalize(query), bundle)
}

// Len returns the number of live entries.
func (c *BundleCache) Len() int { return c.lru.Len() }

// Purge drops all entries.
func (c *BundleCache) Purge() { c.lru.Purge() }
