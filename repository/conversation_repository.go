package repository

import (
	"context"
	"time"

	"github.com/akinalp/huddle/models"
)

// ConversationRepository, konuşma ve katılımcı kayıtları.
//
// Create: konuşmayı ve Participants listesini ekler. Direct konuşmada pairKey
// dolu gelir; UNIQUE(pair_key) ihlali pkg.ErrAlreadyExists olarak döner,
// service kazanan satırı yeniden okur.
//
// ListSummariesForUser: son mesaj + kişiye özel okunmamış sayısı ile birlikte,
// updated_at DESC sıralı.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation, pairKey *string) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	GetByPairKey(ctx context.Context, pairKey string) (*models.Conversation, error)
	ListSummariesForUser(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	ListCoParticipantIDs(ctx context.Context, userID string) ([]string, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	Touch(ctx context.Context, conversationID string, at time.Time) error
	SetMuted(ctx context.Context, conversationID, userID string, muted bool) error
}
