// Package cache adds a Redis read-aside layer in front of the user store so
// broadcast runs do not re-read the whole users collection every time.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tinywideclouds/go-push-dispatcher/pkg/fanout"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns the value or a specific error if not found.
	Get(ctx context.Context, key string, dest interface{}) error
	// Set stores the value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Del removes the key.
	Del(ctx context.Context, key string) error
}

// audienceKey caches the full user listing consumed by "all" runs.
const audienceKey = "dispatch:audience:all"

// CachedUserStore is a decorator that adds read-aside caching to any
// fanout.UserStore. Token writes invalidate, never update, so the next read
// is always forced back to the source of truth.
type CachedUserStore struct {
	realStore fanout.UserStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedUserStore(realStore fanout.UserStore, cache CacheClient, ttl time.Duration) *CachedUserStore {
	return &CachedUserStore{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// --- READ PATHS (Read-Aside) ---

func (s *CachedUserStore) ListUsers(ctx context.Context) ([]fanout.User, error) {
	var cached []fanout.User
	if err := s.cache.Get(ctx, audienceKey, &cached); err == nil {
		return cached, nil
	}

	users, err := s.realStore.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	// Caching is an optimization, not a transaction. If Redis is down we
	// just serve from the store.
	_ = s.cache.Set(ctx, audienceKey, users, s.ttl)
	return users, nil
}

func (s *CachedUserStore) GetUser(ctx context.Context, id string) (*fanout.User, error) {
	var cached fanout.User
	if err := s.cache.Get(ctx, s.userKey(id), &cached); err == nil {
		return &cached, nil
	}

	user, err := s.realStore.GetUser(ctx, id)
	if err != nil || user == nil {
		// Absence is not cached: a user created moments later must be
		// visible to the next run.
		return user, err
	}

	_ = s.cache.Set(ctx, s.userKey(id), user, s.ttl)
	return user, nil
}

// --- WRITE PATHS (Invalidate-on-Write) ---

func (s *CachedUserStore) SetToken(ctx context.Context, userID, token string) error {
	if err := s.realStore.SetToken(ctx, userID, token); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

// ClearToken invalidates even though the DB write already succeeded: a stale
// cached token would keep a dead device in every broadcast until the TTL.
func (s *CachedUserStore) ClearToken(ctx context.Context, userID string) error {
	if err := s.realStore.ClearToken(ctx, userID); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

// --- Helpers ---

func (s *CachedUserStore) invalidate(ctx context.Context, userID string) error {
	if err := s.cache.Del(ctx, s.userKey(userID)); err != nil {
		return err
	}
	return s.cache.Del(ctx, audienceKey)
}

func (s *CachedUserStore) userKey(id string) string {
	return fmt.Sprintf("dispatch:user:%s", id)
}
