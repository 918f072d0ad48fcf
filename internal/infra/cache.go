// Package infra provides shared infrastructure components used across
// the application: caching, outbound call queueing, and HTTP utilities.
package infra

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry holds a cached payload with the instant it was stored. Entries are
// returned even after their freshness window has passed so callers can fall
// back to stale data and report its age.
type Entry struct {
	Payload  json.RawMessage `json:"payload"`
	StoredAt time.Time       `json:"stored_at"`
}

// Backend is the storage layer behind a Cache. Implementations must be safe
// for concurrent use.
type Backend interface {
	Get(ctx context.Context, key string) (Entry, bool)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context, prefix string) error
	// Sweep drops entries stored more than olderThan ago. It bounds growth of
	// backends that do not evict on their own.
	Sweep(ctx context.Context, olderThan time.Duration) error
}

// --- Memory backend ---

// MemoryBackend is an in-process Backend.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (Entry, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	return e, ok
}

func (m *MemoryBackend) Set(_ context.Context, key string, e Entry) error {
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Flush(_ context.Context, prefix string) error {
	m.mu.Lock()
	for k := range m.entries {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Sweep(_ context.Context, olderThan time.Duration) error {
	cutoff := m.now().Add(-olderThan)
	m.mu.Lock()
	for k, e := range m.entries {
		if e.StoredAt.Before(cutoff) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
	return nil
}

// --- Redis backend ---

// RedisBackend stores entries in Redis. Each entry is written with a hard
// retention TTL; Redis handles eviction, so Sweep is a no-op.
type RedisBackend struct {
	client    *redis.Client
	retention time.Duration
}

func (r *RedisBackend) Get(ctx context.Context, key string) (Entry, bool) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return Entry{}, false
	}
	return e, true
}

func (r *RedisBackend) Set(ctx context.Context, key string, e Entry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, b, r.retention).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisBackend) Flush(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (r *RedisBackend) Sweep(_ context.Context, _ time.Duration) error { return nil }

// NewBackend connects to Redis at redisURL and returns a RedisBackend when the
// server answers a ping within 2s; otherwise it falls back to an in-process
// MemoryBackend. An empty URL selects the memory backend directly.
func NewBackend(redisURL string, retention time.Duration) Backend {
	if redisURL == "" {
		return NewMemoryBackend()
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return NewMemoryBackend()
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return NewMemoryBackend()
	}
	return &RedisBackend{client: client, retention: retention}
}

// --- Typed cache view ---

// Cache is one freshness category over a Backend: a key prefix plus the
// timeout that decides whether an entry is still valid. Stale entries are not
// purged at read time; they are overwritten by the next successful fetch.
type Cache struct {
	backend Backend
	prefix  string
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a cache category with the given key prefix and freshness
// timeout.
func NewCache(b Backend, prefix string, ttl time.Duration) *Cache {
	return &Cache{backend: b, prefix: prefix, ttl: ttl, now: time.Now}
}

// TTL returns the category's freshness timeout.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Valid reports whether the entry is within the freshness window:
// 0 <= now - stored < ttl.
func (c *Cache) Valid(e Entry) bool {
	age := c.now().Sub(e.StoredAt)
	return age >= 0 && age < c.ttl
}

// Age returns how long ago the entry was stored.
func (c *Cache) Age(e Entry) time.Duration {
	return c.now().Sub(e.StoredAt)
}

// Get returns the entry for key if present, fresh or stale.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool) {
	return c.backend.Get(ctx, c.prefix+key)
}

// Fresh returns the entry for key only when it is still valid.
func (c *Cache) Fresh(ctx context.Context, key string) (Entry, bool) {
	e, ok := c.Get(ctx, key)
	if !ok || !c.Valid(e) {
		return Entry{}, false
	}
	return e, true
}

// Set stores v under key with the current instant.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, c.prefix+key, Entry{Payload: payload, StoredAt: c.now()})
}

// SetEntry stores a raw entry under key, keeping its recorded timestamp.
func (c *Cache) SetEntry(ctx context.Context, key string, e Entry) error {
	return c.backend.Set(ctx, c.prefix+key, e)
}

// Flush removes every entry in this category.
func (c *Cache) Flush(ctx context.Context) error {
	return c.backend.Flush(ctx, c.prefix)
}

// Decode unmarshals an entry payload into T.
func Decode[T any](e Entry) (T, error) {
	var v T
	err := json.Unmarshal(e.Payload, &v)
	return v, err
}
