package cache

import (
	"path/filepath"
	"testing"
)

func TestBoltCacheRoundTrip(t *testing.T) {
	c, err := NewBoltCache(filepath.Join(t.TempDir(), "analyses.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, ok := c.Get("https://example.com"); ok {
		t.Error("empty cache reported a hit")
	}

	if err := c.Put("https://example.com", "two-column layout"); err != nil {
		t.Fatal(err)
	}

	analysis, ok := c.Get("https://example.com")
	if !ok || analysis != "two-column layout" {
		t.Errorf("unexpected cache entry: %q (%v)", analysis, ok)
	}

	if c.Len() != 1 {
		t.Errorf("unexpected cache size: %d", c.Len())
	}
}
