// Package roomcache holds the room-scoped deduplication layer: three
// TTL-bounded caches (STT, translation, TTS) whose read path coalesces
// concurrent identical requests, plus the per-room listener registry.
//
// The guarantee: for any key, at most one compute function is in flight at a
// time. Concurrent callers with the same key either observe the cached
// result or await the single in-flight computation.
package roomcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/babelroom/babelroom/internal/config"
	"github.com/babelroom/babelroom/internal/observe"
	"github.com/babelroom/babelroom/pkg/provider/stt"
	"github.com/babelroom/babelroom/pkg/provider/tts"
)

// entry is one cached value with its creation time.
type entry[V any] struct {
	value     V
	createdAt time.Time
}

// dedupCache is a TTL cache with per-key request coalescing. The mutex is
// held only for map operations, never across a compute call.
type dedupCache[V any] struct {
	name    string
	ttl     time.Duration
	metrics *observe.Metrics
	clock   func() time.Time

	mu      sync.Mutex
	entries map[string]entry[V]
	pending map[string]chan struct{}
}

func newDedupCache[V any](name string, ttl time.Duration, metrics *observe.Metrics, clock func() time.Time) *dedupCache[V] {
	return &dedupCache[V]{
		name:    name,
		ttl:     ttl,
		metrics: metrics,
		clock:   clock,
		entries: make(map[string]entry[V]),
		pending: make(map[string]chan struct{}),
	}
}

// lookup returns the live entry for key, if any. Caller must hold c.mu.
func (c *dedupCache[V]) lookup(key string) (V, bool) {
	e, ok := c.entries[key]
	if !ok || c.clock().Sub(e.createdAt) > c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// getOrCreate returns the value for key, computing it with fn when absent.
// The boolean result reports whether the value came from the cache.
//
// Concurrent callers with the same key coalesce: the first becomes the
// leader and runs fn; the rest wait for the leader's signal (bounded by
// timeout and ctx), then re-check the cache. A waiter that wakes to an empty
// cache — leader failure or timeout — retries as a new leader, so compute
// attempts are serial per key until one succeeds or callers give up.
func (c *dedupCache[V]) getOrCreate(ctx context.Context, key string, timeout time.Duration, fn func(context.Context) (V, error)) (V, bool, error) {
	for {
		c.mu.Lock()
		if v, ok := c.lookup(key); ok {
			c.mu.Unlock()
			c.metrics.RecordCacheRequest(ctx, c.name, "hit")
			return v, true, nil
		}
		if sig, ok := c.pending[key]; ok {
			c.mu.Unlock()
			c.metrics.RecordCacheRequest(ctx, c.name, "coalesced")

			timer := time.NewTimer(timeout)
			select {
			case <-sig:
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				var zero V
				return zero, false, ctx.Err()
			}
			timer.Stop()

			c.mu.Lock()
			if v, ok := c.lookup(key); ok {
				c.mu.Unlock()
				return v, true, nil
			}
			c.mu.Unlock()
			// Leader failed or timed out; loop and contend to lead.
			continue
		}

		sig := make(chan struct{})
		c.pending[key] = sig
		c.mu.Unlock()
		c.metrics.RecordCacheRequest(ctx, c.name, "miss")

		cctx, cancel := context.WithTimeout(ctx, timeout)
		v, err := fn(cctx)
		cancel()

		c.mu.Lock()
		if err == nil {
			c.entries[key] = entry[V]{value: v, createdAt: c.clock()}
		}
		delete(c.pending, key)
		close(sig)
		c.mu.Unlock()

		if err != nil {
			var zero V
			return zero, false, err
		}
		return v, false, nil
	}
}

// sweep discards expired entries and returns how many were removed.
func (c *dedupCache[V]) sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// dropRoom removes all entries whose key belongs to room.
func (c *dedupCache[V]) dropRoom(room string) {
	prefix := room + keySep
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
}

// len returns the live entry count, for logs and tests.
func (c *dedupCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cache bundles the three deduplication caches and the listener registry for
// all rooms in the process.
type Cache struct {
	sttCache         *dedupCache[stt.Result]
	translationCache *dedupCache[string]
	ttsCache         *dedupCache[tts.Result]

	cleanupInterval time.Duration
	log             *slog.Logger

	listenersMu sync.Mutex
	listeners   map[string]map[string]map[string]struct{} // room → lang → listener ids
}

// Option customises a [Cache].
type Option func(*cacheOptions)

type cacheOptions struct {
	metrics *observe.Metrics
	clock   func() time.Time
}

// WithMetrics replaces the default metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *cacheOptions) { o.metrics = m }
}

// WithClock replaces the wall clock, for TTL tests.
func WithClock(clock func() time.Time) Option {
	return func(o *cacheOptions) { o.clock = clock }
}

// New builds a Cache from the cache configuration. Start the expiry sweeper
// with [Cache.Run].
func New(cfg config.CacheConfig, opts ...Option) *Cache {
	o := &cacheOptions{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}

	ttl := cfg.TTL()
	return &Cache{
		sttCache:         newDedupCache[stt.Result]("stt", ttl, o.metrics, o.clock),
		translationCache: newDedupCache[string]("translation", ttl, o.metrics, o.clock),
		ttsCache:         newDedupCache[tts.Result]("tts", ttl, o.metrics, o.clock),
		cleanupInterval:  cfg.CleanupInterval(),
		log:              slog.With("component", "roomcache"),
		listeners:        make(map[string]map[string]map[string]struct{}),
	}
}

// GetOrCreateSTT deduplicates transcription of one audio segment.
func (c *Cache) GetOrCreateSTT(ctx context.Context, room, speaker string, audio []byte, timeout time.Duration, fn func(context.Context) (stt.Result, error)) (stt.Result, bool, error) {
	return c.sttCache.getOrCreate(ctx, STTKey(room, speaker, audio), timeout, fn)
}

// GetOrCreateTranslation deduplicates translation of one text to one target.
func (c *Cache) GetOrCreateTranslation(ctx context.Context, room, sourceLang, targetLang, text string, timeout time.Duration, fn func(context.Context) (string, error)) (string, bool, error) {
	return c.translationCache.getOrCreate(ctx, TranslationKey(room, sourceLang, targetLang, text), timeout, fn)
}

// GetOrCreateTTS deduplicates synthesis of one text in one language.
func (c *Cache) GetOrCreateTTS(ctx context.Context, room, targetLang, text string, timeout time.Duration, fn func(context.Context) (tts.Result, error)) (tts.Result, bool, error) {
	return c.ttsCache.getOrCreate(ctx, TTSKey(room, targetLang, text), timeout, fn)
}

// Run sweeps expired entries every cleanup interval until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Sweep discards expired entries from all three caches once.
func (c *Cache) Sweep() {
	removed := c.sttCache.sweep() + c.translationCache.sweep() + c.ttsCache.sweep()
	if removed > 0 {
		c.log.Debug("cache sweep",
			"removed", removed,
			"stt", c.sttCache.len(),
			"translation", c.translationCache.len(),
			"tts", c.ttsCache.len(),
		)
	}
}

// InvalidateRoom drops a room's cache entries and listener registrations.
// Called when the room's last session ends.
func (c *Cache) InvalidateRoom(room string) {
	c.sttCache.dropRoom(room)
	c.translationCache.dropRoom(room)
	c.ttsCache.dropRoom(room)

	c.listenersMu.Lock()
	delete(c.listeners, room)
	c.listenersMu.Unlock()

	c.log.Debug("room invalidated", "room_id", room)
}
