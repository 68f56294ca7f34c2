package cache

import (
	"testing"
	"time"

	"imagegallery/internal/scanner"
)

func newTestCache(t *testing.T) (*ListingCache, *int) {
	t.Helper()
	c := New(30*time.Second, 5*time.Minute)
	scans := 0
	c.scan = func(root string) (scanner.Listing, error) {
		scans++
		return scanner.Listing{Images: []scanner.Entry{{RelPath: "a.png", ModTime: 1}}}, nil
	}
	return c, &scans
}

func TestListingCachedWithinTTL(t *testing.T) {
	c, scans := newTestCache(t)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	if _, err := c.Listing("/data"); err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if _, err := c.Listing("/data"); err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if *scans != 1 {
		t.Fatalf("scans=%d, want 1 (second call served from cache)", *scans)
	}

	// Expire the entry.
	now = now.Add(31 * time.Second)
	if _, err := c.Listing("/data"); err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if *scans != 2 {
		t.Fatalf("scans=%d, want 2 after TTL expiry", *scans)
	}
}

func TestInvalidateDropsListingsKeepsMetadata(t *testing.T) {
	c, scans := newTestCache(t)

	if _, err := c.Listing("/data"); err != nil {
		t.Fatalf("Listing: %v", err)
	}
	c.SetMetadataStatus("/data/a.png", 1, true)

	c.Invalidate()

	if _, err := c.Listing("/data"); err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if *scans != 2 {
		t.Fatalf("scans=%d, want 2 (listing dropped by Invalidate)", *scans)
	}
	if has, ok := c.MetadataStatus("/data/a.png", 1); !ok || !has {
		t.Fatal("metadata status must survive Invalidate")
	}
}

func TestMetadataStatusKeyedByModTime(t *testing.T) {
	c, _ := newTestCache(t)
	c.SetMetadataStatus("/data/a.png", 1, true)

	if _, ok := c.MetadataStatus("/data/a.png", 2); ok {
		t.Fatal("status for a different mtime must miss")
	}
	if has, ok := c.MetadataStatus("/data/a.png", 1); !ok || !has {
		t.Fatal("status for the recorded mtime must hit")
	}
}
