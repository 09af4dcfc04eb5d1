package cache

import (
	"testing"
	"time"

	"github.com/use-agent/sitemapper/models"
)

func newTestCache(t *testing.T, maxEntries int, ttl time.Duration) (*Cache, *time.Time) {
	t.Helper()
	c := New(maxEntries, ttl)
	t.Cleanup(c.Close)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestKey(t *testing.T) {
	a := Key("https://site.example/", 2, 50)
	if a != Key("https://site.example/", 2, 50) {
		t.Error("Key is not deterministic")
	}
	for _, other := range []string{
		Key("https://site.example/x", 2, 50),
		Key("https://site.example/", 3, 50),
		Key("https://site.example/", 2, 51),
	} {
		if other == a {
			t.Error("different crawl parameters share a key")
		}
	}
}

func TestCache_GetRespectsMaxAge(t *testing.T) {
	c, now := newTestCache(t, 10, time.Hour)
	data := &models.CrawlData{BaseURL: "https://site.example/", TotalPages: 1}
	c.Set("k", data)

	tests := []struct {
		name    string
		advance time.Duration
		maxAge  int
		wantHit bool
	}{
		{"lookup disabled", 0, 0, false},
		{"fresh", time.Second, 5000, true},
		{"older than maxAge", 10 * time.Second, 5000, false},
		{"older than ttl", 2 * time.Hour, int((3 * time.Hour).Milliseconds()), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			*now = base.Add(tt.advance)
			got, hit := c.Get("k", tt.maxAge)
			if hit != tt.wantHit {
				t.Fatalf("hit = %v, want %v", hit, tt.wantHit)
			}
			if hit && got != data {
				t.Errorf("Get returned %+v, want %+v", got, data)
			}
		})
	}

	if _, hit := c.Get("missing", 5000); hit {
		t.Error("hit for a key never set")
	}
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	c, now := newTestCache(t, 2, time.Hour)

	c.Set("first", &models.CrawlData{})
	*now = now.Add(time.Second)
	c.Set("second", &models.CrawlData{})
	*now = now.Add(time.Second)
	c.Set("third", &models.CrawlData{})

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, hit := c.Get("first", 60000); hit {
		t.Error("oldest entry was not evicted")
	}
	for _, k := range []string{"second", "third"} {
		if _, hit := c.Get(k, 60000); !hit {
			t.Errorf("%s was evicted", k)
		}
	}

	// Overwriting an existing key must not evict anything.
	c.Set("third", &models.CrawlData{TotalPages: 3})
	if c.Len() != 2 {
		t.Errorf("Len = %d after overwrite, want 2", c.Len())
	}
}

func TestCache_EvictExpired(t *testing.T) {
	c, now := newTestCache(t, 10, time.Minute)
	c.Set("old", &models.CrawlData{})
	*now = now.Add(2 * time.Minute)
	c.Set("new", &models.CrawlData{})

	c.evictExpired()

	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if _, hit := c.Get("new", 1000); !hit {
		t.Error("fresh entry was evicted")
	}
}

func TestCache_CloseIdempotent(t *testing.T) {
	c := New(1, time.Minute)
	c.Close()
	c.Close()
}
