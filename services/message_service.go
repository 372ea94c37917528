package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/pkg/metrics"
	"github.com/akinalp/huddle/repository"
	"github.com/akinalp/huddle/ws"
)

// Sayfalama limitleri.
const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 100
)

var tracer = otel.Tracer("github.com/akinalp/huddle/services")

// SendLimiter, kullanıcı başına mesaj gönderim hızı.
// pkg/ratelimit.MessageLimiter bunu karşılar.
type SendLimiter interface {
	Allow(userID string) (bool, time.Duration)
}

// Notifier, ledger yazımından bildirim üretir.
type Notifier interface {
	FanOut(ctx context.Context, conv *models.Conversation, msg *models.Message) ([]models.Notification, error)
}

// MessageOutbox, yeni mesajları downstream tüketicilere iletir (NATS).
type MessageOutbox interface {
	PublishMessage(ctx context.Context, msg *models.Message) error
}

// MessageService, konuşma ledger'ı.
//
// Append yeni konuşma içeriğinin tek yazım yoludur; anket ve etkinlikler de
// birer message_type varyantıdır. Sunucunun atadığı ID ve created_at her zaman
// senkron olarak döner; client yerel kaydını bununla eşler.
type MessageService interface {
	Append(ctx context.Context, conversationID, senderID string, content models.MessageContent, parentID *string) (*models.Message, error)
	AppendSystem(ctx context.Context, conversationID, actorID, body, code string) (*models.Message, error)
	List(ctx context.Context, userID, conversationID string, limit int, beforeMessageID string) (*models.MessagePage, error)
	EditText(ctx context.Context, userID, messageID, text string) (*models.Message, error)
	SeenBy(ctx context.Context, userID, messageID string) ([]string, error)
}

type messageService struct {
	store       *repository.Store
	hub         ws.EventPublisher
	notifier    Notifier
	limiter     SendLimiter
	outbox      MessageOutbox
	convLocks   *KeyedMutex
	messageLock *KeyedMutex
	log         *logger.Logger
	now         func() time.Time
}

// NewMessageService, constructor.
// limiter ve outbox nil olabilir. messageLocks interaction service'leriyle paylaşılır.
func NewMessageService(
	store *repository.Store,
	hub ws.EventPublisher,
	notifier Notifier,
	limiter SendLimiter,
	outbox MessageOutbox,
	messageLocks *KeyedMutex,
	log *logger.Logger,
) MessageService {
	return &messageService{
		store:       store,
		hub:         hub,
		notifier:    notifier,
		limiter:     limiter,
		outbox:      outbox,
		convLocks:   NewKeyedMutex(),
		messageLock: messageLocks,
		log:         log,
		now:         time.Now,
	}
}

// Append, client'tan gelen mesajı ledger'a ekler.
//
// Akış:
//  1. İçerik doğrulaması (system tipi client'tan kabul edilmez)
//  2. Katılımcı kontrolü
//  3. parent_message_id aynı konuşmada olmalı
//  4. Gönderim hızı limiti
//  5. Konuşma kilidi altında created_at ataması + insert + updated_at
//  6. message:new yayını, ardından bildirim fan-out'u
func (s *messageService) Append(ctx context.Context, conversationID, senderID string, content models.MessageContent, parentID *string) (*models.Message, error) {
	if content.Type == models.MessageSystem {
		return nil, fmt.Errorf("%w: system messages cannot be sent by clients", pkg.ErrBadRequest)
	}
	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	conv, err := loadConversationFor(ctx, s.store, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	if parentID != nil {
		parent, err := s.store.Messages.GetByID(ctx, *parentID)
		if errors.Is(err, pkg.ErrNotFound) || (err == nil && parent.ConversationID != conversationID) {
			return nil, fmt.Errorf("%w: parent message must belong to the same conversation", pkg.ErrBadRequest)
		}
		if err != nil {
			return nil, err
		}
	}

	if s.limiter != nil {
		if ok, retryAfter := s.limiter.Allow(senderID); !ok {
			return nil, fmt.Errorf("%w: retry after %s", pkg.ErrRateLimited, retryAfter.Round(time.Millisecond))
		}
	}

	return s.append(ctx, conv, senderID, content, parentID)
}

// AppendSystem, sunucu tarafı bilgi mesajı ekler (ör: grup oluşturuldu).
func (s *messageService) AppendSystem(ctx context.Context, conversationID, actorID, body, code string) (*models.Message, error) {
	content := models.MessageContent{
		Type:   models.MessageSystem,
		System: &models.SystemContent{Body: body, Code: code},
	}
	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	conv, err := s.store.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return s.append(ctx, conv, actorID, content, nil)
}

func (s *messageService) append(ctx context.Context, conv *models.Conversation, senderID string, content models.MessageContent, parentID *string) (*models.Message, error) {
	ctx, span := tracer.Start(ctx, "ledger.append")
	defer span.End()
	span.SetAttributes(
		attribute.String("conversation.id", conv.ID),
		attribute.String("message.type", string(content.Type)),
	)

	// Mention'lar gönderim anındaki katılımcılara göre bir kez çözülür.
	if src := content.MentionSource(); src != "" {
		content.SetMentions(ResolveMentions(src, senderID, participantUsers(conv)))
	} else {
		content.SetMentions(nil)
	}

	msg := &models.Message{
		ID:              uuid.Must(uuid.NewV7()).String(),
		ConversationID:  conv.ID,
		SenderID:        senderID,
		Type:            content.Type,
		Content:         content,
		ParentMessageID: parentID,
		Reactions:       []models.ReactionGroup{},
	}

	if err := s.persist(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return nil, err
	}
	metrics.MessagesAppended.WithLabelValues(string(msg.Type)).Inc()

	switch msg.Type {
	case models.MessagePoll:
		tally := buildPollTally(msg, nil)
		msg.Poll = &tally
	case models.MessageEvent:
		tally := buildRSVPTally(msg.ID, nil)
		msg.RSVP = &tally
	case models.MessageText, models.MessageSharedChat, models.MessageSharedEmail, models.MessageSystem:
	}

	s.hub.BroadcastToConversation(conv.ID, conv.ParticipantIDs(), ws.Event{
		Op:   ws.OpMessageNew,
		Data: msg,
	})

	// Gönderim başarılıdır; bildirim veya outbox hataları sadece loglanır.
	fanCtx := context.WithoutCancel(ctx)
	if s.notifier != nil {
		if _, err := s.notifier.FanOut(fanCtx, conv, msg); err != nil {
			s.log.Error("notification fan-out failed",
				zap.String("message_id", msg.ID),
				zap.String("conversation_id", conv.ID),
				zap.Error(err))
		}
	}
	if s.outbox != nil {
		if err := s.outbox.PublishMessage(fanCtx, msg); err != nil {
			metrics.SinkFailures.WithLabelValues("outbox").Inc()
			s.log.Warn("message outbox publish failed", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}

	return msg, nil
}

// persist, konuşma kilidi altında created_at atar ve mesajı yazar.
//
// created_at = max(now, son mesaj + 1µs): aynı konuşmada sıra her zaman
// ekleme sırasıdır, saat geri gitse bile.
func (s *messageService) persist(ctx context.Context, msg *models.Message) error {
	unlock := s.convLocks.Lock(msg.ConversationID)
	defer unlock()

	return s.store.WithTx(ctx, func(tx *repository.Store) error {
		createdAt := s.now().UTC().Truncate(time.Microsecond)
		latest, ok, err := tx.Messages.LatestCreatedAt(ctx, msg.ConversationID)
		if err != nil {
			return err
		}
		if ok && !createdAt.After(latest) {
			createdAt = latest.Add(time.Microsecond)
		}
		msg.CreatedAt = createdAt

		if err := tx.Messages.Create(ctx, msg); err != nil {
			return err
		}
		return tx.Conversations.Touch(ctx, msg.ConversationID, createdAt)
	})
}

// List, mesajları yeniden eskiye, (created_at, id) cursor'ı ile sayfalar.
func (s *messageService) List(ctx context.Context, userID, conversationID string, limit int, beforeMessageID string) (*models.MessagePage, error) {
	if _, err := loadConversationFor(ctx, s.store, conversationID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}

	var cursor *models.Message
	if beforeMessageID != "" {
		c, err := s.store.Messages.GetByID(ctx, beforeMessageID)
		if err != nil {
			return nil, err
		}
		if c.ConversationID != conversationID {
			return nil, fmt.Errorf("%w: cursor message not found in conversation", pkg.ErrNotFound)
		}
		cursor = c
	}

	// limit+1: fazladan bir satır gelirse daha eski mesaj vardır.
	messages, err := s.store.Messages.ListBefore(ctx, conversationID, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	if err := enrichMessages(ctx, s.store, messages); err != nil {
		return nil, err
	}

	return &models.MessagePage{Messages: messages, HasMore: hasMore}, nil
}

// EditText, text mesajın gövdesini değiştirir. Sadece yazar düzenleyebilir.
// Mention'lar yeniden çözülmez.
func (s *messageService) EditText(ctx context.Context, userID, messageID, text string) (*models.Message, error) {
	req := models.EditMessageRequest{Text: text}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	unlock := s.messageLock.Lock(messageID)
	defer unlock()

	msg, conv, err := loadMessageFor(ctx, s.store, messageID, userID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, fmt.Errorf("%w: only the author can edit a message", pkg.ErrForbidden)
	}
	if msg.Type != models.MessageText || msg.Content.Text == nil {
		return nil, fmt.Errorf("%w: only text messages can be edited", pkg.ErrBadRequest)
	}
	if strings.TrimSpace(msg.Content.Text.Body) == req.Text {
		return msg, nil
	}

	editedAt := s.now().UTC().Truncate(time.Microsecond)
	msg.Content.Text.Body = req.Text
	msg.IsEdited = true
	msg.EditedAt = &editedAt

	if err := s.store.Messages.UpdateContent(ctx, msg); err != nil {
		return nil, err
	}
	if err := enrichMessage(ctx, s.store, msg); err != nil {
		return nil, err
	}

	s.hub.BroadcastToConversation(conv.ID, conv.ParticipantIDs(), ws.Event{
		Op:   ws.OpMessageUpdate,
		Data: msg,
	})
	return msg, nil
}

// SeenBy, kendi gönderdiği mesajı watermark'ı created_at'e ulaşmış katılımcıları döner.
func (s *messageService) SeenBy(ctx context.Context, userID, messageID string) ([]string, error) {
	msg, _, err := loadMessageFor(ctx, s.store, messageID, userID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, fmt.Errorf("%w: seen-by is only available for your own messages", pkg.ErrForbidden)
	}
	return s.store.ReadStates.SeenBy(ctx, msg.ConversationID, msg.SenderID, msg.CreatedAt)
}
