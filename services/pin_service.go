package services

import (
	"context"
	"fmt"
	"time"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/repository"
	"github.com/akinalp/huddle/ws"
)

// PinService, konuşmada mesaj sabitleme.
type PinService interface {
	TogglePin(ctx context.Context, conversationID, messageID, userID string) (bool, error)
	ListPins(ctx context.Context, userID, conversationID string) ([]models.PinnedMessage, error)
}

type pinService struct {
	store *repository.Store
	hub   ws.EventPublisher
	locks *KeyedMutex
}

func NewPinService(store *repository.Store, hub ws.EventPublisher, locks *KeyedMutex) PinService {
	return &pinService{store: store, hub: hub, locks: locks}
}

// TogglePin, mesaj sabitli değilse sabitler, sabitliyse kaldırır.
// Dönüş değeri mesajın işlemden sonra sabitli olup olmadığıdır.
func (s *pinService) TogglePin(ctx context.Context, conversationID, messageID, userID string) (bool, error) {
	unlock := s.locks.Lock(messageID)
	defer unlock()

	conv, err := loadConversationFor(ctx, s.store, conversationID, userID)
	if err != nil {
		return false, err
	}
	msg, err := s.store.Messages.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg.ConversationID != conv.ID {
		return false, fmt.Errorf("%w: message does not belong to this conversation", pkg.ErrBadRequest)
	}

	var pinned bool
	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		removed, err := tx.Pins.Delete(ctx, conv.ID, msg.ID)
		if err != nil {
			return err
		}
		if removed {
			pinned = false
			return nil
		}

		count, err := tx.Pins.CountByConversation(ctx, conv.ID)
		if err != nil {
			return err
		}
		if count >= models.MaxPinsPerConversation {
			return fmt.Errorf("%w: a conversation can have at most %d pinned messages", pkg.ErrBadRequest, models.MaxPinsPerConversation)
		}

		pinned = true
		return tx.Pins.Create(ctx, &models.PinnedMessage{
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			PinnedBy:       userID,
			PinnedAt:       time.Now().UTC(),
		})
	})
	if err != nil {
		return false, err
	}

	s.hub.BroadcastToConversation(conv.ID, conv.ParticipantIDs(), ws.Event{
		Op: ws.OpPinUpdate,
		Data: models.PinUpdate{
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			Pinned:         pinned,
			ActorID:        userID,
		},
	})
	return pinned, nil
}

// ListPins, sabitli mesajları en yeni pin önce döner.
func (s *pinService) ListPins(ctx context.Context, userID, conversationID string) ([]models.PinnedMessage, error) {
	if _, err := loadConversationFor(ctx, s.store, conversationID, userID); err != nil {
		return nil, err
	}

	pins, err := s.store.Pins.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(pins) == 0 {
		return pins, nil
	}

	messages := make([]models.Message, len(pins))
	for i := range pins {
		messages[i] = *pins[i].Message
	}
	if err := enrichMessages(ctx, s.store, messages); err != nil {
		return nil, err
	}
	for i := range pins {
		pins[i].Message = &messages[i]
	}
	return pins, nil
}
