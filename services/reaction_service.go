package services

import (
	"context"
	"fmt"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/repository"
	"github.com/akinalp/huddle/ws"
)

// ReactionService, emoji tepkileri.
type ReactionService interface {
	ToggleReaction(ctx context.Context, messageID, userID, emoji string) ([]models.ReactionGroup, error)
}

type reactionService struct {
	store *repository.Store
	hub   ws.EventPublisher
	locks *KeyedMutex
}

// NewReactionService, constructor. locks diğer interaction service'leriyle paylaşılır.
func NewReactionService(store *repository.Store, hub ws.EventPublisher, locks *KeyedMutex) ReactionService {
	return &reactionService{store: store, hub: hub, locks: locks}
}

// ToggleReaction, (mesaj, kullanıcı, emoji) üçlüsünü ekler; varsa kaldırır.
// Mesajın güncel reaction listesini döner ve reaction:update yayınlar.
func (s *reactionService) ToggleReaction(ctx context.Context, messageID, userID, emoji string) ([]models.ReactionGroup, error) {
	req := models.ToggleReactionRequest{Emoji: emoji}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	unlock := s.locks.Lock(messageID)
	defer unlock()

	msg, conv, err := loadMessageFor(ctx, s.store, messageID, userID)
	if err != nil {
		return nil, err
	}

	added, err := s.store.Reactions.Toggle(ctx, msg.ID, userID, req.Emoji)
	if err != nil {
		return nil, err
	}
	groups, err := s.store.Reactions.GetByMessageID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastToConversation(conv.ID, conv.ParticipantIDs(), ws.Event{
		Op: ws.OpReactionUpdate,
		Data: models.ReactionUpdate{
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			ActorID:        userID,
			Emoji:          req.Emoji,
			Added:          added,
			Reactions:      groups,
		},
	})
	return groups, nil
}
