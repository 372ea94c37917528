package models

import "time"

// MaxPinsPerConversation, bir konuşmada aynı anda sabitlenebilecek mesaj sayısı.
const MaxPinsPerConversation = 50

// PinnedMessage, konuşmada sabitlenmiş bir mesaj.
// Pin durumu ayrı tabloda tutulur, messages satırı değişmez.
type PinnedMessage struct {
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	PinnedBy       string    `json:"pinned_by"`
	PinnedAt       time.Time `json:"pinned_at"`
	Message        *Message  `json:"message,omitempty"`
}

// PinUpdate, pin toggle sonrası yayınlanan olay.
type PinUpdate struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Pinned         bool   `json:"pinned"`
	ActorID        string `json:"actor_id"`
}
