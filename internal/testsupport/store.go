package testsupport

import (
	"testing"

	"chorus/internal/cache"
	"chorus/internal/config"
	"chorus/internal/runstore"
)

// NewCacheStore opens a cache.Store rooted at the test config's cache dir.
func NewCacheStore(t testing.TB, cfg *config.Config) *cache.Store {
	t.Helper()
	return cache.NewStore(cfg.Paths.CacheDir, cfg.Cache.Enabled, nil)
}

// MustOpenRunStore opens a runstore.Store for tests and registers cleanup.
func MustOpenRunStore(t testing.TB, cfg *config.Config) *runstore.Store {
	t.Helper()

	store, err := runstore.Open(cfg.Paths.RunDBPath)
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
