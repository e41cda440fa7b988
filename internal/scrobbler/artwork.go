package scrobbler

import "sync"

// artworkCache remembers artwork lookups, including misses, so the same
// track is not looked up twice.
type artworkCache struct {
	mu    sync.Mutex
	cache map[string]string
}

func newArtworkCache() *artworkCache {
	return &artworkCache{cache: make(map[string]string)}
}

func (a *artworkCache) get(key string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.cache[key]
	return u, ok
}

func (a *artworkCache) put(key, url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache[key] = url
}
