package models

import (
	"fmt"
	"strings"
	"time"
)

// Reaction, bir kullanıcının bir mesaja verdiği tek emoji tepkisi.
//
// PRIMARY KEY(message_id, user_id, emoji): aynı kullanıcı aynı emojiyi
// bir mesaja sadece bir kez ekleyebilir. Toggle iki kez uygulanınca eski hale döner.
type Reaction struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// ReactionGroup, bir mesajdaki aynı emojinin toplu görünümü.
//
// Örnek: 👍 3 [u1, u2, u3]
type ReactionGroup struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// ToggleReactionRequest, POST /api/messages/{id}/reactions body'si.
type ToggleReactionRequest struct {
	Emoji string `json:"emoji"`
}

// Validate, emoji alanını kontrol eder.
func (r *ToggleReactionRequest) Validate() error {
	r.Emoji = strings.TrimSpace(r.Emoji)
	if r.Emoji == "" || len(r.Emoji) > 32 {
		return fmt.Errorf("emoji must be between 1 and 32 bytes")
	}
	return nil
}

// ReactionUpdate, toggle sonrası yayınlanan güncel durum.
type ReactionUpdate struct {
	ConversationID string          `json:"conversation_id"`
	MessageID      string          `json:"message_id"`
	ActorID        string          `json:"actor_id"`
	Emoji          string          `json:"emoji"`
	Added          bool            `json:"added"`
	Reactions      []ReactionGroup `json:"reactions"`
}
