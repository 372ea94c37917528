package ratelimit

import (
	"testing"
	"time"
)

func TestMessageLimiterBurstThenReject(t *testing.T) {
	l := NewMessageLimiter(10, time.Minute, 3)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("alice"); !ok {
			t.Fatalf("message %d should be allowed within burst", i+1)
		}
	}

	ok, retry := l.Allow("alice")
	if ok {
		t.Fatal("expected rejection after burst")
	}
	if retry <= 0 || retry > 6*time.Second {
		t.Fatalf("unexpected retry delay %v", retry)
	}

	if ok, _ := l.Allow("bob"); !ok {
		t.Fatal("users must have separate buckets")
	}
}

func TestMessageLimiterRejectionDoesNotConsume(t *testing.T) {
	l := NewMessageLimiter(1000, time.Second, 1)
	defer l.Stop()

	if ok, _ := l.Allow("alice"); !ok {
		t.Fatal("first message should pass")
	}
	_, retry := l.Allow("alice")
	time.Sleep(retry + 5*time.Millisecond)

	if ok, _ := l.Allow("alice"); !ok {
		t.Fatal("token should be available after waiting the reported delay")
	}
}

func TestEvictIdle(t *testing.T) {
	l := NewMessageLimiter(10, time.Second, 1)
	defer l.Stop()

	l.Allow("alice")
	l.evictIdle(time.Now().Add(time.Hour))

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buckets) != 0 {
		t.Fatalf("expected idle bucket to be evicted, got %d", len(l.buckets))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewMessageLimiter(1, time.Second, 1)
	l.Stop()
	l.Stop()
}
