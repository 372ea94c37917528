package ws

import (
	"time"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg/cache"
)

type typingKey struct {
	conversationID string
	userID         string
}

// TypingTracker, kimin hangi konuşmada yazdığını bellekte tutar.
//
// Her typing:start entry'nin TTL'ini yeniler. Stop gelmezse (client çöktü)
// entry TTL sonunda düşer ve is_typing=false yayınlanır.
// Sadece geçişlerde (başladı / durdu) event üretilir.
type TypingTracker struct {
	entries *cache.TTLCache[typingKey, struct{}]
	publish func(conversationID string, event Event)
}

// NewTypingTracker, tracker'ı oluşturur. publish bir konuşmanın abonelerine yayın yapar.
func NewTypingTracker(ttl, sweepInterval time.Duration, publish func(conversationID string, event Event)) *TypingTracker {
	t := &TypingTracker{publish: publish}
	t.entries = cache.New[typingKey, struct{}](ttl, sweepInterval, func(k typingKey, _ struct{}) {
		t.emit(k, false)
	})
	return t
}

// Start, yazma durumunu açar veya süresini yeniler.
func (t *TypingTracker) Start(conversationID, userID string) {
	k := typingKey{conversationID: conversationID, userID: userID}
	if t.entries.Set(k, struct{}{}) {
		t.emit(k, true)
	}
}

// Stop, yazma durumunu kapatır. Zaten kapalıysa event üretmez.
func (t *TypingTracker) Stop(conversationID, userID string) {
	k := typingKey{conversationID: conversationID, userID: userID}
	if t.entries.Delete(k) {
		t.emit(k, false)
	}
}

// StopAll, kullanıcının tüm konuşmalardaki yazma durumunu kapatır.
func (t *TypingTracker) StopAll(userID string) {
	removed := t.entries.DeleteFunc(func(k typingKey) bool { return k.userID == userID })
	for k := range removed {
		t.emit(k, false)
	}
}

// IsTyping, test ve debug için.
func (t *TypingTracker) IsTyping(conversationID, userID string) bool {
	_, ok := t.entries.Get(typingKey{conversationID: conversationID, userID: userID})
	return ok
}

// Close, temizlik goroutine'ini durdurur.
func (t *TypingTracker) Close() {
	t.entries.Close()
}

func (t *TypingTracker) emit(k typingKey, typing bool) {
	t.publish(k.conversationID, Event{
		Op: OpTypingUpdate,
		Data: models.TypingUpdate{
			ConversationID: k.conversationID,
			UserID:         k.userID,
			IsTyping:       typing,
		},
	})
}
