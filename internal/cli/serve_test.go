package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/evcraddock/house-market/internal/cache"
)

func TestNewCacheStoreMemory(t *testing.T) {
	store, closeStore, err := newCacheStore(context.Background(), "")
	if err != nil {
		t.Fatalf("newCacheStore: %v", err)
	}
	defer closeStore()

	if _, ok := store.(*cache.MemoryStore); !ok {
		t.Errorf("store = %T, want *cache.MemoryStore", store)
	}
}

func TestNewCacheStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	store, closeStore, err := newCacheStore(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("newCacheStore: %v", err)
	}
	defer closeStore()

	if err := store.SetJSON(context.Background(), "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("k") {
		t.Error("expected key in redis")
	}
}

func TestNewCacheStoreBadURL(t *testing.T) {
	if _, _, err := newCacheStore(context.Background(), "not a url"); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}

func TestStorageDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("HM_STORAGE_DIR", "")

	dir, err := storageDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".config", "hm", "files"); dir != want {
		t.Errorf("storageDir = %q, want %q", dir, want)
	}

	t.Setenv("HM_STORAGE_DIR", "/srv/hm")
	if dir, _ = storageDir(); dir != "/srv/hm" {
		t.Errorf("storageDir = %q, want /srv/hm", dir)
	}
}
