package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/pkg/metrics"
	"github.com/akinalp/huddle/repository"
	"github.com/akinalp/huddle/ws"
)

// Bildirim sayfalama limitleri.
const (
	DefaultNotificationLimit = 20
	MaxNotificationLimit     = 100
)

// sinkTimeout, tek bir downstream teslimi için üst süre.
const sinkTimeout = 10 * time.Second

// NotificationService, ledger yazımlarından bildirim türetir ve okuma durumunu yönetir.
type NotificationService interface {
	FanOut(ctx context.Context, conv *models.Conversation, msg *models.Message) ([]models.Notification, error)
	List(ctx context.Context, userID string, limit int, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	UnreadMentionCount(ctx context.Context, userID string) (int, error)
	// Wait, devam eden sink teslimlerinin bitmesini bekler.
	Wait()
}

type notificationService struct {
	store *repository.Store
	hub   ws.EventPublisher
	sinks []NotificationSink
	log   *logger.Logger
	wg    sync.WaitGroup
}

// NewNotificationService, constructor. sinks boş olabilir.
func NewNotificationService(store *repository.Store, hub ws.EventPublisher, log *logger.Logger, sinks ...NotificationSink) NotificationService {
	return &notificationService{
		store: store,
		hub:   hub,
		sinks: sinks,
		log:   log,
	}
}

// notificationData, Notification.Data alanının içeriği.
type notificationData struct {
	ConversationID string             `json:"conversation_id"`
	MessageID      string             `json:"message_id"`
	SenderID       string             `json:"sender_id"`
	MessageType    models.MessageType `json:"message_type"`
}

// FanOut, mesajdan bildirimleri üretir, kaydeder ve alıcılara iletir.
//
// Kurallar:
//   - Mention varsa: her mention edilen kullanıcıya bir "mention" (mute dikkate alınmaz)
//   - Yoksa: gönderen hariç sessize almamış her katılımcıya tipe göre bir bildirim
func (s *notificationService) FanOut(ctx context.Context, conv *models.Conversation, msg *models.Message) ([]models.Notification, error) {
	ctx, span := tracer.Start(ctx, "notifications.fanout",
		trace.WithAttributes(attribute.String("message.id", msg.ID)))
	defer span.End()

	notifications, err := s.derive(conv, msg)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("notifications.count", len(notifications)))
	if len(notifications) == 0 {
		return notifications, nil
	}

	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		for i := range notifications {
			if err := tx.Notifications.Create(ctx, &notifications[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	for i := range notifications {
		n := notifications[i]
		metrics.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
		s.hub.BroadcastToUser(n.UserID, ws.Event{Op: ws.OpNotificationNew, Data: n})
		s.deliver(n, msg)
	}
	return notifications, nil
}

// derive, message_type üzerinde tam switch ile alıcıları ve tipi belirler.
func (s *notificationService) derive(conv *models.Conversation, msg *models.Message) ([]models.Notification, error) {
	senderName := msg.SenderID
	if p := conv.Participant(msg.SenderID); p != nil && p.User != nil {
		senderName = p.User.Name()
	}

	data, err := json.Marshal(notificationData{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		MessageType:    msg.Type,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification data: %w", err)
	}

	preview := msg.Content.Preview()
	now := time.Now().UTC()
	build := func(userID string, typ models.NotificationType, title string) models.Notification {
		return models.Notification{
			ID:             uuid.NewString(),
			UserID:         userID,
			Type:           typ,
			MessageID:      &msg.ID,
			ConversationID: &conv.ID,
			Title:          title,
			Body:           preview,
			Data:           data,
			CreatedAt:      now,
		}
	}

	var out []models.Notification

	if mentions := msg.Content.Mentions(); len(mentions) > 0 {
		for _, userID := range mentions {
			if userID == msg.SenderID || !conv.HasParticipant(userID) {
				continue
			}
			out = append(out, build(userID, models.NotificationMention, senderName+" mentioned you"))
		}
		return out, nil
	}

	var (
		typ   models.NotificationType
		title string
	)
	switch msg.Type {
	case models.MessageText, models.MessagePoll, models.MessageEvent:
		typ = models.NotificationDirectMessage
		title = messageTitle(conv, senderName)
	case models.MessageSharedChat, models.MessageSharedEmail:
		typ = models.NotificationSharedContent
		title = senderName + " shared content"
	case models.MessageSystem:
		typ = models.NotificationSystem
		title = messageTitle(conv, "huddle")
	default:
		return nil, fmt.Errorf("unhandled message type %q", msg.Type)
	}

	for _, p := range conv.Participants {
		if p.UserID == msg.SenderID || p.IsMuted {
			continue
		}
		out = append(out, build(p.UserID, typ, title))
	}
	return out, nil
}

func messageTitle(conv *models.Conversation, from string) string {
	if conv.Type == models.ConversationGroup && conv.Name != nil {
		return from + " in " + *conv.Name
	}
	return "New message from " + from
}

// deliver, bildirimi sink'lere arka planda iletir. Hatalar sadece loglanır.
func (s *notificationService) deliver(n models.Notification, msg *models.Message) {
	for _, sink := range s.sinks {
		s.wg.Add(1)
		go func(sink NotificationSink) {
			defer s.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
			defer cancel()

			if err := sink.Deliver(ctx, n, msg); err != nil {
				metrics.SinkFailures.WithLabelValues(sink.Name()).Inc()
				s.log.Warn("notification sink delivery failed",
					zap.String("sink", sink.Name()),
					zap.String("notification_id", n.ID),
					zap.Error(err))
			}
		}(sink)
	}
}

func (s *notificationService) Wait() {
	s.wg.Wait()
}

// List, bildirimleri en yeniden eskiye döner.
func (s *notificationService) List(ctx context.Context, userID string, limit int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	if limit > MaxNotificationLimit {
		limit = MaxNotificationLimit
	}
	return s.store.Notifications.List(ctx, userID, models.NotificationFilter{Limit: limit, UnreadOnly: unreadOnly})
}

// MarkRead, tek bildirimi okundu işaretler. Zaten okunmuşsa başarı döner.
func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.Notifications.MarkRead(ctx, userID, notificationID)
}

// MarkAllRead, kullanıcının tüm bildirimlerini okundu işaretler; etkilenen sayıyı döner.
func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.Notifications.MarkAllRead(ctx, userID)
}

func (s *notificationService) UnreadMentionCount(ctx context.Context, userID string) (int, error) {
	return s.store.Notifications.CountUnread(ctx, userID, models.NotificationMention)
}
