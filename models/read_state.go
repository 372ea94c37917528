package models

import (
	"fmt"
	"time"
)

// UnreadCount, kullanıcının tüm konuşmalardaki okunmamış özeti.
//
// TotalUnread: başkalarının gönderdiği, watermark sonrası mesajlar.
// UnreadMentions: okunmamış mention bildirimleri.
type UnreadCount struct {
	TotalUnread    int            `json:"total_unread"`
	UnreadMentions int            `json:"unread_mentions"`
	Conversations  map[string]int `json:"conversations"`
}

// MarkReadRequest, POST /api/messages/mark-read body'si.
type MarkReadRequest struct {
	ConversationID string `json:"conversation_id"`
}

// Validate, istek alanlarını kontrol eder.
func (r *MarkReadRequest) Validate() error {
	if r.ConversationID == "" {
		return fmt.Errorf("conversation_id is required")
	}
	return nil
}

// ReadUpdate, watermark ilerlediğinde okuyucunun diğer oturumlarına
// ve konuşmanın katılımcılarına gönderilen olay.
type ReadUpdate struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	LastReadAt     time.Time `json:"last_read_at"`
}

