// Package cache holds small in-process caches with TTL expiry. The service
// layer uses it to avoid hitting the report sink for the previous total on
// every page render.
package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"cafereport/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	SetWithTTL(key string, data T, ttl time.Duration)
	Delete(key string)
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Loader wraps a cache so concurrent misses for one key share a single load.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
}

func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// GetOrLoad returns the cached value for key, or runs load once for all
// callers waiting on the same key. load decides the TTL of what it returns;
// a zero TTL stores nothing.
func (l *Loader[T]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (T, time.Duration)) T {
	if v, ok := l.cache.Get(key); ok {
		return v
	}
	v, _, _ := l.group.Do(key, func() (any, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		// The load outlives a single caller's cancellation.
		v, ttl := load(context.WithoutCancel(ctx))
		if ttl > 0 {
			l.cache.SetWithTTL(key, v, ttl)
		}
		return v, nil
	})
	return v.(T)
}

// Forget drops key so the next GetOrLoad reloads it.
func (l *Loader[T]) Forget(key string) {
	l.cache.Delete(key)
	l.group.Forget(key)
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewManager creates a new cache manager
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		caches:      make([]Cleaner, 0),
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				m.logger.Debug("Removed expired cache entries", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// CleanNow cleans every registered cache once and returns how many entries went.
func (m *Manager) CleanNow() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop stops the cleanup routine. It must follow StartCleanup.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
