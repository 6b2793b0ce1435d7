package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(maxSize int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](maxSize, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Fatalf("expected overwrite, got %q", v)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache(4, time.Minute)

	c.Set("long", "x")
	c.SetWithTTL("short", "y", 10*time.Second)

	clock.Advance(10 * time.Second)
	if _, ok := c.Get("short"); ok {
		t.Fatal("short entry should have expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Fatal("long entry should still be live")
	}

	clock.Advance(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a was used recently and should remain")
	}
}

func TestLRUCache_Delete(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Delete("a")
	c.Delete("missing")
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be gone")
	}
}

func TestLoader_CoalescesConcurrentMisses(t *testing.T) {
	l := NewLoader[string](NewLRUCache[string](4, time.Minute))

	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (string, time.Duration) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", time.Minute
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.GetOrLoad(context.Background(), "k", load)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("load ran %d times, want 1", n)
	}
	for i, r := range results {
		if r != "v" {
			t.Fatalf("result %d = %q", i, r)
		}
	}

	if v := l.GetOrLoad(context.Background(), "k", load); v != "v" || atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected cached value without another load")
	}
}

func TestLoader_ZeroTTLIsNotCached(t *testing.T) {
	l := NewLoader[string](NewLRUCache[string](4, time.Minute))
	calls := 0
	load := func(context.Context) (string, time.Duration) {
		calls++
		return "", 0
	}

	l.GetOrLoad(context.Background(), "k", load)
	l.GetOrLoad(context.Background(), "k", load)
	if calls != 2 {
		t.Fatalf("zero TTL results must not be cached, load ran %d times", calls)
	}
}

func TestLoader_Forget(t *testing.T) {
	l := NewLoader[string](NewLRUCache[string](4, time.Minute))
	n := 0
	load := func(context.Context) (string, time.Duration) {
		n++
		return "v", time.Minute
	}

	l.GetOrLoad(context.Background(), "k", load)
	l.Forget("k")
	l.GetOrLoad(context.Background(), "k", load)
	if n != 2 {
		t.Fatalf("expected reload after Forget, load ran %d times", n)
	}
}

func TestManager_CleansRegisteredCaches(t *testing.T) {
	c, clock := newTestCache(4, time.Second)
	c.Set("a", "1")
	c.Set("b", "2")
	clock.Advance(2 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 2 {
		t.Fatalf("CleanNow() = %d, want 2", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
}
