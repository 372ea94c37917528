// Package cache: Generic in-memory TTL cache.
//
// TTLCache, belirli bir süre sonra otomatik olarak süresi dolan kayıtları tutar.
// Typing indicator state'i bu yapı üzerinde durur: her typing:start entry'nin
// süresini yeniler, süresi dolan entry'ler eviction callback'i ile bildirilir.
//
// Thread safety: sync.Mutex ile korunur. Eviction callback'leri lock
// bırakıldıktan sonra çağrılır, callback içinden cache'e tekrar erişilebilir.
package cache

import (
	"sync"
	"time"
)

// entry, cache'teki tek bir kayıttır.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// EvictFunc, süresi dolarak silinen her entry için çağrılır.
// Delete ile açıkça silinen entry'ler için çağrılmaz.
type EvictFunc[K comparable, V any] func(key K, value V)

// TTLCache, generic in-memory TTL cache.
//
//	c := cache.New[string, int](3*time.Second, 500*time.Millisecond, nil)
//	c.Set("key", 42)
//	val, ok := c.Get("key")
type TTLCache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	ttl     time.Duration
	onEvict EvictFunc[K, V]
	now     func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// New, yeni bir TTLCache oluşturur ve periyodik temizleme goroutine'ini başlatır.
//
// cleanupInterval, süresi dolan entry'lerin ne sıklıkla bulunacağını belirler.
// Eviction gecikmesi en fazla ttl + cleanupInterval olur.
func New[K comparable, V any](ttl, cleanupInterval time.Duration, onEvict EvictFunc[K, V]) *TTLCache[K, V] {
	c := &TTLCache[K, V]{
		entries:     make(map[K]entry[V]),
		ttl:         ttl,
		onEvict:     onEvict,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.EvictExpired()
			case <-c.stopCleanup:
				return
			}
		}
	}()

	return c
}

// Get, süresi dolmamış değeri döner.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set, değeri yazar ve süresini yeniler.
// Key map'te yoksa true döner; yeni bir "başlangıç" olduğunu çağırana bildirir.
//
// Süresi dolmuş ama henüz evict edilmemiş entry hâlâ mevcut sayılır:
// onEvict çağrılmadığı sürece karşı olay (bitiş) yayınlanmamıştır.
func (c *TTLCache[K, V]) Set(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, existed := c.entries[key]
	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
	return !existed
}

// Delete, key'i siler. Map'te bir entry silindiyse true döner.
// onEvict çağrılmaz.
func (c *TTLCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// DeleteFunc, predicate'i sağlayan tüm key'leri siler ve silinen entry'leri döner.
func (c *TTLCache[K, V]) DeleteFunc(predicate func(key K) bool) map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := make(map[K]V)
	for key, e := range c.entries {
		if predicate(key) {
			delete(c.entries, key)
			removed[key] = e.value
		}
	}
	return removed
}

// Len, cache'teki toplam entry sayısını döner (süresi dolmuşlar dahil).
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Close, periyodik temizleme goroutine'ini durdurur. Birden fazla çağrı güvenlidir.
func (c *TTLCache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

// EvictExpired, süresi dolan entry'leri siler ve onEvict'i çağırır.
// Cleanup goroutine'i tarafından çağrılır; testler de doğrudan kullanır.
func (c *TTLCache[K, V]) EvictExpired() {
	c.mu.Lock()
	now := c.now()
	type kv struct {
		key   K
		value V
	}
	var expired []kv
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			expired = append(expired, kv{key, e.value})
		}
	}
	c.mu.Unlock()

	if c.onEvict == nil {
		return
	}
	for _, e := range expired {
		c.onEvict(e.key, e.value)
	}
}
