package services

import (
	"context"
	"strings"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg/email"
	"github.com/akinalp/huddle/pkg/natsbus"
	"github.com/akinalp/huddle/repository"
	"github.com/akinalp/huddle/ws"
)

// NotificationSink, bildirimleri bu servisin dışına taşıyan downstream kanal
// (push gateway, email, analitik). Teslim best effort'tur.
type NotificationSink interface {
	Name() string
	Deliver(ctx context.Context, n models.Notification, msg *models.Message) error
}

// ─── NATS ───

// NATSSink, bildirimleri ve yeni mesajları NATS subject'lerine yayınlar.
// MessageOutbox'ı da karşılar.
type NATSSink struct {
	bus *natsbus.Client
}

func NewNATSSink(bus *natsbus.Client) *NATSSink {
	return &NATSSink{bus: bus}
}

func (s *NATSSink) Name() string { return "nats" }

// Deliver, <prefix>.notifications.<user_id> subject'ine yayınlar.
func (s *NATSSink) Deliver(_ context.Context, n models.Notification, _ *models.Message) error {
	return s.bus.PublishJSON(s.bus.Subject("notifications", n.UserID), n)
}

// PublishMessage, <prefix>.messages.<conversation_id> subject'ine yayınlar.
func (s *NATSSink) PublishMessage(_ context.Context, msg *models.Message) error {
	return s.bus.PublishJSON(s.bus.Subject("messages", msg.ConversationID), msg)
}

// ─── Email ───

// EmailSink, çevrimdışı kullanıcılara mention email'i gönderir.
// Diğer bildirim tipleri ve çevrimiçi alıcılar atlanır.
type EmailSink struct {
	sender  email.Sender
	users   repository.UserRepository
	online  ws.EventPublisher
	baseURL string
}

func NewEmailSink(sender email.Sender, users repository.UserRepository, online ws.EventPublisher, baseURL string) *EmailSink {
	return &EmailSink{
		sender:  sender,
		users:   users,
		online:  online,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, n models.Notification, msg *models.Message) error {
	if n.Type != models.NotificationMention || s.online.IsUserOnline(n.UserID) {
		return nil
	}

	recipient, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		return err
	}
	if recipient.Email == "" {
		return nil
	}

	authorName := msg.SenderID
	if author, err := s.users.GetByID(ctx, msg.SenderID); err == nil {
		authorName = author.Name()
	}

	link := s.baseURL + "/conversations/" + msg.ConversationID
	return s.sender.SendMention(ctx, recipient.Email, authorName, n.Body, link)
}
