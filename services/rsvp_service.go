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

// RSVPService, etkinlik mesajlarına katılım cevapları.
type RSVPService interface {
	RSVPToEvent(ctx context.Context, messageID, userID string, status models.RSVPStatus) (*models.RSVPTally, error)
}

type rsvpService struct {
	store *repository.Store
	hub   ws.EventPublisher
	locks *KeyedMutex
}

func NewRSVPService(store *repository.Store, hub ws.EventPublisher, locks *KeyedMutex) RSVPService {
	return &rsvpService{store: store, hub: hub, locks: locks}
}

// RSVPToEvent, cevabı kaydeder; son yazılan geçerlidir.
func (s *rsvpService) RSVPToEvent(ctx context.Context, messageID, userID string, status models.RSVPStatus) (*models.RSVPTally, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status must be going, maybe or declined", pkg.ErrBadRequest)
	}

	unlock := s.locks.Lock(messageID)
	defer unlock()

	msg, conv, err := loadMessageFor(ctx, s.store, messageID, userID)
	if err != nil {
		return nil, err
	}
	if msg.Type != models.MessageEvent {
		return nil, fmt.Errorf("%w: message is not an event", pkg.ErrBadRequest)
	}

	if err := s.store.RSVPs.Upsert(ctx, &models.EventRSVP{
		MessageID: msg.ID,
		UserID:    userID,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	rsvps, err := s.store.RSVPs.ListByMessageIDs(ctx, []string{msg.ID})
	if err != nil {
		return nil, err
	}
	tally := buildRSVPTally(msg.ID, rsvps[msg.ID])

	s.hub.BroadcastToConversation(conv.ID, conv.ParticipantIDs(), ws.Event{
		Op: ws.OpEventRSVPUpdate,
		Data: models.RSVPUpdate{
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			ActorID:        userID,
			Status:         status,
			RSVP:           tally,
		},
	})
	return &tally, nil
}
