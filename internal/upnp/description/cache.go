package description

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// CachingSource memoises documents from another Source, keyed by location.
// Only successful fetches are cached. Cached documents are shared between
// callers, which is safe because Elements are never modified after parsing.
type CachingSource struct {
	next  Source
	cache *lru.Cache
}

// NewCachingSource wraps next with an LRU cache holding up to size documents.
func NewCachingSource(next Source, size int) (*CachingSource, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("creating document cache: %w", err)
	}
	return &CachingSource{next: next, cache: cache}, nil
}

// Fetch returns the cached document for location, fetching it on a miss.
func (c *CachingSource) Fetch(ctx context.Context, location string) (*Document, error) {
	if v, ok := c.cache.Get(location); ok {
		if doc, ok := v.(*Document); ok {
			return doc, nil
		}
	}

	doc, err := c.next.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}
	c.cache.Add(location, doc)
	return doc, nil
}

// Forget drops a single location, e.g. after its device disappeared.
func (c *CachingSource) Forget(location string) {
	c.cache.Remove(location)
}

// Purge empties the cache.
func (c *CachingSource) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached documents.
func (c *CachingSource) Len() int {
	return c.cache.Len()
}
