// ABOUTME: Thread-safe TTL cache of seen ids with optional durable snapshot
// ABOUTME: Used by checkout to accept each payment confirmation at most once

package dedupe

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/storefront/internal/store"
)

// cacheEntry stores when a key was marked and its list element.
type cacheEntry struct {
	marked  time.Time
	element *list.Element
}

// persistedEntry is one key in the storage snapshot, oldest first.
type persistedEntry struct {
	Key    string    `json:"key"`
	Marked time.Time `json:"marked"`
}

// Cache is a TTL-based, size-limited set of seen keys. Insertion order is
// kept in a linked list so the oldest key is evicted in O(1). With a storage
// slot configured, every mark is mirrored into it so a new process can
// Load the keys seen by earlier ones.
type Cache struct {
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	storage store.Storage
	slot    string
	logger  *slog.Logger
	sweep   time.Duration

	mu     sync.RWMutex
	seen   map[string]*cacheEntry
	order  *list.List // oldest at front
	done   chan struct{}
	closed bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithStorage mirrors the cache into slot of storage.
func WithStorage(storage store.Storage, slot string) Option {
	return func(c *Cache) {
		c.storage = storage
		c.slot = slot
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger for persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// WithSweepInterval sets how often expired keys are dropped in the background.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) { c.sweep = d }
}

// New creates a cache holding keys for ttl, at most maxSize at a time.
// A background goroutine drops expired keys until Close is called.
func New(ttl time.Duration, maxSize int, opts ...Option) *Cache {
	c := &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		logger:  slog.Default(),
		sweep:   time.Minute,
		seen:    make(map[string]*cacheEntry),
		order:   list.New(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "dedupe")
	go c.cleanup()
	return c
}

// Load replaces the in-memory keys with the storage snapshot, skipping
// expired ones. A missing slot leaves the cache empty. An unreadable or
// corrupt snapshot is logged and also leaves the cache empty; the next mark
// overwrites it. Load returns the number of keys restored.
func (c *Cache) Load(ctx context.Context) int {
	if c.storage == nil {
		return 0
	}
	raw, err := c.storage.GetItem(ctx, c.slot)
	if errors.Is(err, store.ErrNotFound) {
		return 0
	}
	var entries []persistedEntry
	if err == nil {
		err = json.Unmarshal([]byte(raw), &entries)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen = make(map[string]*cacheEntry, len(entries))
	c.order.Init()
	if err != nil {
		c.logger.Warn("dedupe snapshot unreadable, starting empty", "slot", c.slot, "error", err)
		return 0
	}
	now := c.now()
	for _, e := range entries {
		if now.Sub(e.Marked) >= c.ttl {
			continue
		}
		c.insertLocked(e.Key, e.Marked)
	}
	return len(c.seen)
}

// CheckAndMark atomically checks key and marks it if unseen. It returns true
// for a duplicate and false when the key was new and is now marked.
func (c *Cache) CheckAndMark(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.seen[key]
	if ok && c.now().Sub(entry.marked) < c.ttl {
		return true
	}
	c.markLocked(key)
	c.persistLocked(ctx)
	return false
}

// markLocked must be called with mu held.
func (c *Cache) markLocked(key string) {
	now := c.now()
	if entry, exists := c.seen[key]; exists {
		entry.marked = now
		c.order.MoveToBack(entry.element)
		return
	}
	c.insertLocked(key, now)
}

func (c *Cache) insertLocked(key string, marked time.Time) {
	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}
	elem := c.order.PushBack(key)
	c.seen[key] = &cacheEntry{marked: marked, element: elem}
}

// evictOldest must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}

// persistLocked writes the snapshot. Failures are logged; the in-memory
// cache still rejects duplicates for the life of the process.
func (c *Cache) persistLocked(ctx context.Context) {
	if c.storage == nil {
		return
	}
	entries := make([]persistedEntry, 0, len(c.seen))
	for e := c.order.Front(); e != nil; e = e.Next() {
		key, _ := e.Value.(string)
		entries = append(entries, persistedEntry{Key: key, Marked: c.seen[key].marked})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warn("encoding dedupe snapshot failed", "error", err)
		return
	}
	if err := c.storage.SetItem(ctx, c.slot, string(data)); err != nil {
		c.logger.Warn("persisting dedupe snapshot failed", "slot", c.slot, "error", err)
	}
}

// cleanup periodically removes expired entries until Close.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(c.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

// runCleanup drops expired entries from memory. The snapshot is rewritten on
// the next mark, and Load skips expired entries anyway.
func (c *Cache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.seen {
		if now.Sub(entry.marked) >= c.ttl {
			c.order.Remove(entry.element)
			delete(c.seen, key)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
