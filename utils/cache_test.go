package utils

import (
	"bytes"
	"testing"
	"time"
)

func TestMemoryPageCacheRoundTrip(t *testing.T) {
	c := NewMemoryPageCache()

	if _, ok := c.GetBytes("missing"); ok {
		t.Fatal("expected a miss for an unknown key")
	}

	c.SetBytes("index_page:page=1", []byte("payload"), time.Minute)
	b, ok := c.GetBytes("index_page:page=1")
	if !ok || !bytes.Equal(b, []byte("payload")) {
		t.Fatalf("expected the stored payload back, got %q (hit=%v)", b, ok)
	}
}

func TestMemoryPageCacheExpiry(t *testing.T) {
	c := NewMemoryPageCache()

	c.SetBytes("short", []byte("gone soon"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.GetBytes("short"); ok {
		t.Fatal("expected the entry to expire")
	}
}

func TestMemoryPageCacheClearPrefix(t *testing.T) {
	c := NewMemoryPageCache()

	c.SetBytes("index_page:page=1", []byte("a"), time.Minute)
	c.SetBytes("index_page:page=2", []byte("b"), time.Minute)
	c.SetBytes("other:page=1", []byte("c"), time.Minute)

	c.Clear("index_page")

	if _, ok := c.GetBytes("index_page:page=1"); ok {
		t.Error("expected index_page:page=1 to be cleared")
	}
	if _, ok := c.GetBytes("index_page:page=2"); ok {
		t.Error("expected index_page:page=2 to be cleared")
	}
	if _, ok := c.GetBytes("other:page=1"); !ok {
		t.Error("expected other keys to survive")
	}
}
