// Package cache keeps directory listings and per-file metadata status out of
// the hot path. Listings are cheap to rebuild but hit the filesystem hard;
// metadata status is keyed by (path, mtime) so it survives Invalidate.
package cache

import (
	"sync"
	"time"

	"imagegallery/internal/scanner"
)

const (
	DefaultListingTTL  = 30 * time.Second
	DefaultMetadataTTL = 5 * time.Minute
)

type listingEntry struct {
	at      time.Time
	listing scanner.Listing
}

type metaEntry struct {
	at       time.Time
	hasMeta  bool
	modStamp int64
}

// ListingCache is a TTL cache for folder scans plus a longer-lived metadata
// status cache. Safe for concurrent use.
type ListingCache struct {
	mu          sync.Mutex
	listingTTL  time.Duration
	metadataTTL time.Duration
	listings    map[string]listingEntry
	metadata    map[string]metaEntry
	scan        func(root string) (scanner.Listing, error)
	now         func() time.Time
}

// New creates a cache with the given TTLs; zero values select the defaults.
func New(listingTTL, metadataTTL time.Duration) *ListingCache {
	if listingTTL <= 0 {
		listingTTL = DefaultListingTTL
	}
	if metadataTTL <= 0 {
		metadataTTL = DefaultMetadataTTL
	}
	return &ListingCache{
		listingTTL:  listingTTL,
		metadataTTL: metadataTTL,
		listings:    map[string]listingEntry{},
		metadata:    map[string]metaEntry{},
		scan:        scanner.Scan,
		now:         time.Now,
	}
}

// Listing returns the cached listing for a folder, rescanning when the entry
// is missing or expired.
func (c *ListingCache) Listing(root string) (scanner.Listing, error) {
	c.mu.Lock()
	if ent, ok := c.listings[root]; ok && c.now().Sub(ent.at) <= c.listingTTL {
		l := ent.listing
		c.mu.Unlock()
		return l, nil
	}
	c.mu.Unlock()

	// Scan outside the lock; concurrent misses may race, last write wins.
	l, err := c.scan(root)
	if err != nil {
		return scanner.Listing{}, err
	}
	c.mu.Lock()
	c.listings[root] = listingEntry{at: c.now(), listing: l}
	c.mu.Unlock()
	return l, nil
}

// MetadataStatus returns the cached has-metadata flag for an image, or
// ok=false when unknown. Entries for a stale mtime never match.
func (c *ListingCache) MetadataStatus(path string, mtime int64) (hasMeta, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, found := c.metadata[path]
	if !found || ent.modStamp != mtime || c.now().Sub(ent.at) > c.metadataTTL {
		return false, false
	}
	return ent.hasMeta, true
}

// SetMetadataStatus records the has-metadata flag for an image version.
func (c *ListingCache) SetMetadataStatus(path string, mtime int64, hasMeta bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[path] = metaEntry{at: c.now(), hasMeta: hasMeta, modStamp: mtime}
}

// Invalidate drops all cached listings. Metadata status is kept: it is keyed
// by mtime, so stale entries can never be served for a changed file.
func (c *ListingCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings = map[string]listingEntry{}
}
