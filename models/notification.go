package models

import (
	"encoding/json"
	"time"
)

// NotificationType, bildirimin kaynağı.
type NotificationType string

const (
	NotificationMention       NotificationType = "mention"
	NotificationDirectMessage NotificationType = "direct_message"
	NotificationSharedContent NotificationType = "shared_content"
	NotificationSystem        NotificationType = "system"
)

// Notification, tek alıcıya ait kalıcı bildirim.
// Sadece alıcı okuyabilir ve okundu işaretleyebilir.
type Notification struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	Type           NotificationType `json:"type"`
	MessageID      *string          `json:"message_id"`
	ConversationID *string          `json:"conversation_id"`
	Title          string           `json:"title"`
	Body           string           `json:"body"`
	Data           json.RawMessage  `json:"data,omitempty"`
	IsRead         bool             `json:"is_read"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NotificationFilter, GET /api/notifications sorgu parametreleri.
type NotificationFilter struct {
	Limit      int
	UnreadOnly bool
}
