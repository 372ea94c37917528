package services

import (
	"context"
	"fmt"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/repository"
)

// loadConversationFor, konuşmayı katılımcılarıyla yükler ve userID'nin
// katılımcı olduğunu doğrular.
func loadConversationFor(ctx context.Context, store *repository.Store, conversationID, userID string) (*models.Conversation, error) {
	conv, err := store.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: not a participant of this conversation", pkg.ErrForbidden)
	}
	return conv, nil
}

// loadMessageFor, mesajı ve konuşmasını yükler; userID katılımcı olmalıdır.
func loadMessageFor(ctx context.Context, store *repository.Store, messageID, userID string) (*models.Message, *models.Conversation, error) {
	msg, err := store.Messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}
	conv, err := loadConversationFor(ctx, store, msg.ConversationID, userID)
	if err != nil {
		return nil, nil, err
	}
	return msg, conv, nil
}
