package services

import (
	"context"
	"time"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/repository"
	"github.com/akinalp/huddle/ws"
)

// ReadStateService, okuma watermark'ları ve okunmamış sayaçları.
//
// Watermark sadece ileri gider. Okunmamış sayısı başkalarının watermark
// sonrası gönderdiği mesajlardır; kendi mesajları sayılmaz.
type ReadStateService interface {
	MarkAsRead(ctx context.Context, conversationID, userID string) (*models.ReadUpdate, error)
	UnreadCount(ctx context.Context, userID string) (*models.UnreadCount, error)
}

type readStateService struct {
	store         *repository.Store
	hub           ws.EventPublisher
	notifications NotificationService
	now           func() time.Time
}

func NewReadStateService(store *repository.Store, hub ws.EventPublisher, notifications NotificationService) ReadStateService {
	return &readStateService{
		store:         store,
		hub:           hub,
		notifications: notifications,
		now:           time.Now,
	}
}

// MarkAsRead, watermark'ı max(now, konuşmanın son mesajı) yapar.
// Saat kayması olsa bile o ana kadarki tüm mesajlar okunmuş sayılır.
func (s *readStateService) MarkAsRead(ctx context.Context, conversationID, userID string) (*models.ReadUpdate, error) {
	conv, err := loadConversationFor(ctx, s.store, conversationID, userID)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC().Truncate(time.Microsecond)
	latest, ok, err := s.store.Messages.LatestCreatedAt(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if ok && latest.After(at) {
		at = latest
	}

	watermark, err := s.store.ReadStates.AdvanceLastRead(ctx, conversationID, userID, at)
	if err != nil {
		return nil, err
	}

	update := &models.ReadUpdate{
		ConversationID: conversationID,
		UserID:         userID,
		LastReadAt:     watermark,
	}
	s.hub.BroadcastToConversation(conv.ID, conv.ParticipantIDs(), ws.Event{
		Op:   ws.OpReadUpdate,
		Data: update,
	})
	return update, nil
}

// UnreadCount, toplam okunmamış mesaj ve okunmamış mention sayısı.
// İki sayı bağımsızdır: mention'sız okunmamış mesaj olabilir.
func (s *readStateService) UnreadCount(ctx context.Context, userID string) (*models.UnreadCount, error) {
	perConv, err := s.store.ReadStates.UnreadByConversation(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range perConv {
		total += n
	}

	mentions, err := s.notifications.UnreadMentionCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.UnreadCount{
		TotalUnread:    total,
		UnreadMentions: mentions,
		Conversations:  perConv,
	}, nil
}
