package service

import "testing"

func TestPoolCachePutGet(t *testing.T) {
	c := NewPoolCache()

	if _, ok := c.Get("org-1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	pool := newLazyPool(t, "tenant1")
	c.Put("org-1", pool)

	got, ok := c.Get("org-1")
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got != pool {
		t.Fatal("Get returned a different pool than Put stored")
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestPoolCachePutOverwrites(t *testing.T) {
	c := NewPoolCache()
	first := newLazyPool(t, "tenant1")
	second := newLazyPool(t, "tenant1b")

	c.Put("org-1", first)
	c.Put("org-1", second)

	got, _ := c.Get("org-1")
	if got != second {
		t.Fatal("expected last writer to win")
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestPoolCacheRemove(t *testing.T) {
	c := NewPoolCache()
	c.Put("org-1", newLazyPool(t, "tenant1"))

	c.Remove("org-1")
	if _, ok := c.Get("org-1"); ok {
		t.Fatal("expected miss after Remove")
	}

	// Removing an absent key is a no-op.
	c.Remove("org-1")
	c.Remove("never-existed")
}

func TestPoolCacheRemoveAll(t *testing.T) {
	c := NewPoolCache()
	c.Put("org-1", newLazyPool(t, "tenant1"))
	c.Put("org-2", newLazyPool(t, "tenant2"))

	c.RemoveAll()
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}
