package repository

import (
	"context"
	"time"
)

// ReadStateRepository, katılımcı watermark'ları (participants.last_read_at).
//
// Okunmamış = created_at > COALESCE(last_read_at, 0) AND sender_id != user.
// Mesaj başına okundu kaydı tutulmaz; "seen by" watermark'lardan hesaplanır.
type ReadStateRepository interface {
	AdvanceLastRead(ctx context.Context, conversationID, userID string, at time.Time) (time.Time, error)
	UnreadByConversation(ctx context.Context, userID string) (map[string]int, error)
	SeenBy(ctx context.Context, conversationID, senderID string, createdAt time.Time) ([]string, error)
}
