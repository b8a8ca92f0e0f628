package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/lighteternal/dendrite/internal/model"
)

func TestBundleCache_NormalizedKeySharing(t *testing.T) {
	c := NewBundleCache(8, time.Minute)
	bundle := &model.QueryEntityBundle{Query: "what causes ALS?"}
	c.Set("what causes ALS?", bundle)

	for _, variant := range []string{"What Causes ALS?", "  what causes als?  ", "what  causes als"} {
		got, ok := c.Get(variant)
		if !ok {
			t.Errorf("expected cache hit for %q", variant)
			continue
		}
		if got != bundle {
			t.Errorf("expected the same bundle pointer for %q", variant)
		}
	}
}

func TestBundleCache_Miss(t *testing.T) {
	c := NewBundleCache(8, time.Minute)
	if _, ok := c.Get("never stored"); ok {
		t.Error("expected miss for unknown query")
	}
}

func TestBundleCache_TTLExpiry(t *testing.T) {
	c := NewBundleCache(8, 15*time.Millisecond)
	c.Set("q", &model.QueryEntityBundle{Query: "q"})
	if _, ok := c.Get("q"); !ok {
		t.Fatal("expected fresh entry present")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("q"); ok {
		t.Error("expected entry expired after TTL")
	}
}

func TestBundleCache_CapacityEviction(t *testing.T) {
	c := NewBundleCache(2, time.Minute)
	for i := 0; i < 3; i++ {
		q := fmt.Sprintf("query %d", i)
		c.Set(q, &model.QueryEntityBundle{Query: q})
	}

	if c.Len() != 2 {
		t.Errorf("expected cache bounded at 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get("query 0"); ok {
		t.Error("expected oldest entry evicted")
	}
	if _, ok := c.Get("query 2"); !ok {
		t.Error("expected newest entry retained")
	}
}

func TestBundleCache_Purge(t *testing.T) {
	c := NewBundleCache(8, time.Minute)
	c.Set("q", &model.QueryEntityBundle{Query: "q"})
	c.Purge()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after purge, got %d", c.Len())
	}
}
