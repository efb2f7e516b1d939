package identity

import (
	"context"
	"sync"
	"time"

	"courier-engine/internal/domain/user"
)

// Clock is injected so TTL expiry is testable.
type Clock func() time.Time

type cacheEntry struct {
	users []user.User
	exp   time.Time
}

// Cache is an in-memory TTL cache over identity fetches, keyed by
// (org, adminsOnly[, groupId]). The lock guards only map access; fetches on a
// miss run unlocked, so two concurrent misses may both hit upstream and one
// write wins. That approximation is accepted.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     Clock
	entries map[FetchKey]cacheEntry
}

func NewCache(ttl time.Duration, now Clock) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now, entries: make(map[FetchKey]cacheEntry)}
}

func (c *Cache) Get(key FetchKey) ([]user.User, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.exp) {
		return nil, false
	}
	return e.users, true
}

func (c *Cache) Set(key FetchKey, users []user.User) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{users: users, exp: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// CachedSource wraps a Source with the TTL cache.
type CachedSource struct {
	src   Source
	cache *Cache
}

func NewCachedSource(src Source, cache *Cache) *CachedSource {
	return &CachedSource{src: src, cache: cache}
}

func (s *CachedSource) FetchAllUsers(ctx context.Context, orgID string, adminsOnly bool) ([]user.User, error) {
	key := FetchKey{OrgID: orgID, AdminsOnly: adminsOnly}
	if users, ok := s.cache.Get(key); ok {
		return users, nil
	}
	users, err := s.src.FetchAllUsers(ctx, orgID, adminsOnly)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, users)
	return users, nil
}

func (s *CachedSource) FetchGroupUsers(ctx context.Context, orgID string, adminsOnly bool, groupID string) ([]user.User, error) {
	key := FetchKey{OrgID: orgID, AdminsOnly: adminsOnly, GroupID: groupID}
	if users, ok := s.cache.Get(key); ok {
		return users, nil
	}
	users, err := s.src.FetchGroupUsers(ctx, orgID, adminsOnly, groupID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, users)
	return users, nil
}
