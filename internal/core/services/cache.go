package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

// ContentKey returns the cache key of a text: the SHA-256 of its
// lower-cased, whitespace-collapsed form.
func ContentKey(text string) string {
	normalised := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:])
}

// resultCache holds successful inference results until they expire.
// Expired entries are evicted lazily on lookup and by purge.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result    domain.InferenceResult
	expiresAt time.Time
}

func newResultCache(ttl time.Duration, now func() time.Time) *resultCache {
	return &resultCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// get returns a live entry. An entry at or past its expiry is a miss.
func (c *resultCache) get(key string) (*domain.InferenceResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	result := copyInference(e.result)
	return &result, true
}

func (c *resultCache) put(key string, result *domain.InferenceResult) {
	if c.ttl <= 0 || result == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		result:    copyInference(*result),
		expiresAt: c.now().Add(c.ttl),
	}
}

// purge evicts expired entries and returns how many were removed.
func (c *resultCache) purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// copyInference deep-copies the slices and maps of a result so cached
// values are never shared with callers.
func copyInference(r domain.InferenceResult) domain.InferenceResult {
	out := r
	out.Tags = append([]string(nil), r.Tags...)
	if r.Fields != nil {
		out.Fields = make(map[string]any, len(r.Fields))
		for k, v := range r.Fields {
			if arr, ok := v.([]string); ok {
				v = append([]string(nil), arr...)
			}
			out.Fields[k] = v
		}
	}
	return out
}
