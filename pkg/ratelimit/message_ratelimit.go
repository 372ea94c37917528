// Package ratelimit, kullanıcı bazlı mesaj gönderim kısıtlaması (MessageLimiter).
//
// Her kullanıcı için ayrı bir token bucket (golang.org/x/time/rate) tutulur.
// Bucket'lar idleTTL süresince kullanılmazsa arka plan temizliğinde silinir.
//
// Kullanım:
//
//	limiter := ratelimit.NewMessageLimiter(10, 5*time.Second, 5)
//	if ok, retry := limiter.Allow(userID); !ok { ... retry sonra tekrar dene ... }
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type userBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MessageLimiter, kullanıcı bazlı mesaj spam koruması.
type MessageLimiter struct {
	mu      sync.Mutex
	buckets map[string]*userBucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewMessageLimiter, window içinde maxMessages mesaja izin veren limiter oluşturur.
// burst, art arda hemen gönderilebilecek mesaj sayısıdır.
func NewMessageLimiter(maxMessages int, window time.Duration, burst int) *MessageLimiter {
	if maxMessages <= 0 {
		maxMessages = 1
	}
	if burst <= 0 {
		burst = maxMessages
	}

	l := &MessageLimiter{
		buckets:     make(map[string]*userBucket),
		limit:       rate.Every(window / time.Duration(maxMessages)),
		burst:       burst,
		idleTTL:     10 * window,
		stopCleanup: make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow, kullanıcının şimdi mesaj gönderip gönderemeyeceğini döner.
// Reddedilirse bir sonraki token'a kadar beklenecek süre de döner.
func (l *MessageLimiter) Allow(userID string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[userID]
	if !ok {
		b = &userBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Stop, temizlik goroutine'ini durdurur.
func (l *MessageLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

func (l *MessageLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Now())
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *MessageLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, id)
		}
	}
}
