package availability

import (
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Cache TTLs. Identity and availability answers change when files land
// in the library, so they stay short; a series' season structure almost
// never changes, so it is kept for a day.
const (
	identityTTL = 10 * time.Minute
	episodesTTL = 24 * time.Hour
)

type cacheEntry[T any] struct {
	value   T
	expires time.Time
}

// ttlCache is an in-memory key/value cache with lazy expiry: an expired
// entry reads as a miss and is overwritten by the next Put. There is no
// background eviction. Negative results are cached with the same TTL as
// positive ones, so a newly-imported file becomes visible within one
// TTL window without explicit invalidation.
type ttlCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry[T]
	ttl     time.Duration
}

func newTTLCache[T any](ttl time.Duration) *ttlCache[T] {
	return &ttlCache[T]{
		entries: make(map[string]cacheEntry[T]),
		ttl:     ttl,
	}
}

func (c *ttlCache[T]) get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expires) {
		var zero T
		return zero, false
	}
	return entry.value, true
}

func (c *ttlCache[T]) put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry[T]{
		value:   value,
		expires: time.Now().Add(c.ttl),
	}
}

// Cache key builders. Resolved item IDs are keyed (kind, id, "id") or
// (kind, name); availability answers are keyed (kind, id).
func idKey(kind string, id int64) string {
	return kind + ":" + strconv.FormatInt(id, 10) + ":id"
}

func nameKey(kind, name string) string {
	return kind + ":name:" + name
}

func answerKey(kind string, id int64) string {
	return kind + ":" + strconv.FormatInt(id, 10)
}

func episodeAnswerKey(q EpisodeQuery) string {
	return fmt.Sprintf("episode:%d:%d:s%de%d:%s",
		q.CatalogID, q.LegacyID, q.Season, q.Episode, q.AirDate.Format("2006-01-02"))
}

func episodesKey(seriesID string) string {
	return "series-episodes:" + seriesID
}
