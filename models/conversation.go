package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ConversationType, konuşma türü.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// Conversation, bir direct veya group konuşmayı temsil eder.
//
// Direct: tam iki katılımcı, sıralı kullanıcı çifti başına tek kayıt (pair_key UNIQUE).
// Group: creator dahil en az 3 katılımcı, isim zorunlu.
// Konuşmalar fiziksel olarak silinmez.
type Conversation struct {
	ID           string           `json:"id"`
	Type         ConversationType `json:"type"`
	Name         *string          `json:"name"`
	CreatorID    string           `json:"creator_id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	Participants []Participant    `json:"participants"`
}

// HasParticipant, userID'nin katılımcı olup olmadığını döner.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant(userID) != nil
}

// Participant, userID'ye ait katılımcı kaydını döner (yoksa nil).
func (c *Conversation) Participant(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// ParticipantIDs, tüm katılımcı kullanıcı ID'lerini döner.
func (c *Conversation) ParticipantIDs() []string {
	ids := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// Participant, (conversation, user) çifti ve kişiye özel durum.
// LastReadAt okuma watermark'ıdır; nil ise hiç okunmamış demektir.
type Participant struct {
	ConversationID string     `json:"conversation_id"`
	UserID         string     `json:"user_id"`
	LastReadAt     *time.Time `json:"last_read_at"`
	IsMuted        bool       `json:"is_muted"`
	JoinedAt       time.Time  `json:"joined_at"`
	User           *User      `json:"user,omitempty"`
}

// ConversationSummary, konuşma listesindeki tek satır:
// son mesaj önizlemesi + kişiye özel okunmamış sayısı.
type ConversationSummary struct {
	Conversation
	LastMessage *Message `json:"last_message"`
	UnreadCount int      `json:"unread_count"`
	IsMuted     bool     `json:"is_muted"`
}

// DirectPairKey, iki kullanıcı ID'sinden sıra bağımsız anahtar üretir.
// (a, b) ve (b, a) aynı anahtarı verir.
func DirectPairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// CreateConversationRequest, POST /api/conversations body'si.
//
//	{ "type": "direct", "participant_ids": ["u2"] }
//	{ "type": "group", "name": "Team", "participant_ids": ["u2", "u3"] }
type CreateConversationRequest struct {
	Type           ConversationType `json:"type"`
	Name           string           `json:"name"`
	ParticipantIDs []string         `json:"participant_ids"`
}

// Validate, isteğin şeklini kontrol eder. Üye sayısı kuralları service'tedir.
func (r *CreateConversationRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)

	switch r.Type {
	case ConversationDirect:
		if len(r.ParticipantIDs) != 1 || strings.TrimSpace(r.ParticipantIDs[0]) == "" {
			return fmt.Errorf("direct conversation requires exactly one other participant")
		}
	case ConversationGroup:
		nameLen := utf8.RuneCountInString(r.Name)
		if nameLen < 1 || nameLen > 100 {
			return fmt.Errorf("group name must be between 1 and 100 characters")
		}
	default:
		return fmt.Errorf("conversation type must be 'direct' or 'group'")
	}
	return nil
}
