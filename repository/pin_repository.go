package repository

import (
	"context"

	"github.com/akinalp/huddle/models"
)

// PinRepository, konuşmada sabitlenmiş mesajlar.
// (conversation_id, message_id) PK: bir mesaj bir konuşmada en fazla bir kez pinlenir.
type PinRepository interface {
	Create(ctx context.Context, pin *models.PinnedMessage) error
	Delete(ctx context.Context, conversationID, messageID string) (bool, error)
	Exists(ctx context.Context, conversationID, messageID string) (bool, error)
	CountByConversation(ctx context.Context, conversationID string) (int, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.PinnedMessage, error)
	PinnedAmong(ctx context.Context, messageIDs []string) (map[string]bool, error)
}
