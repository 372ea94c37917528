// Package main: Service katmanı başlatma.
//
// initServices, tüm service implementasyonlarını oluşturur.
//
// Sıralama kuralları:
//  1. NotificationService → MessageService'den ÖNCE (fan-out hedefi)
//  2. MessageService → ConversationService'den ÖNCE (grup bilgi mesajı)
//  3. Interaction service'leri MessageService ile aynı message kilidini paylaşır
package main

import (
	"github.com/akinalp/huddle/config"
	"github.com/akinalp/huddle/pkg/email"
	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/pkg/natsbus"
	"github.com/akinalp/huddle/pkg/ratelimit"
	"github.com/akinalp/huddle/repository"
	"github.com/akinalp/huddle/services"
	"github.com/akinalp/huddle/ws"
	"go.uber.org/zap"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Tokens       *services.TokenResolver
	User         services.UserService
	Conversation services.ConversationService
	Message      services.MessageService
	Reaction     services.ReactionService
	Pin          services.PinService
	Poll         services.PollService
	RSVP         services.RSVPService
	Notification services.NotificationService
	ReadState    services.ReadStateService
	Presence     *services.PresenceTracker
	Retention    *services.RetentionJob

	MessageLimiter *ratelimit.MessageLimiter
}

// initServices, service'leri oluşturur. bus nil ise NATS sink'i devre dışıdır.
func initServices(store *repository.Store, hub *ws.Hub, bus *natsbus.Client, cfg *config.Config, log *logger.Logger) (*Services, error) {
	// ─── Downstream sink'ler (opsiyonel) ───
	var (
		sinks  []services.NotificationSink
		outbox services.MessageOutbox
	)
	if bus != nil {
		natsSink := services.NewNATSSink(bus)
		sinks = append(sinks, natsSink)
		outbox = natsSink
	}
	if cfg.Email.ResendAPIKey != "" && cfg.Email.From != "" {
		sender := email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From)
		sinks = append(sinks, services.NewEmailSink(sender, store.Users, hub, cfg.Email.AppURL))
		log.Info("mention email sink enabled", zap.String("from", cfg.Email.From))
	} else {
		log.Info("mention email sink disabled (RESEND_API_KEY or EMAIL_FROM not set)")
	}

	// ─── Sıralama-kritik service'ler ───
	messageLimiter := ratelimit.NewMessageLimiter(cfg.RateLimit.Messages, cfg.RateLimit.MessageWindow, cfg.RateLimit.MessageBurst)
	messageLocks := services.NewKeyedMutex()

	notificationService := services.NewNotificationService(store, hub, log.Named("notifications"), sinks...)
	messageService := services.NewMessageService(
		store, hub, notificationService, messageLimiter, outbox, messageLocks, log.Named("ledger"),
	)
	conversationService := services.NewConversationService(store, hub, messageService, log.Named("conversations"))

	// ─── Diğer service'ler (sıralama bağımsız) ───
	retention, err := services.NewRetentionJob(store.Notifications, cfg.Retention.Schedule, cfg.Retention.MaxAge, log.Named("retention"))
	if err != nil {
		messageLimiter.Stop()
		return nil, err
	}

	return &Services{
		Tokens:       services.NewTokenResolver(cfg.Auth.JWTSecret, store.Users),
		User:         services.NewUserService(store.Users),
		Conversation: conversationService,
		Message:      messageService,
		Reaction:     services.NewReactionService(store, hub, messageLocks),
		Pin:          services.NewPinService(store, hub, messageLocks),
		Poll:         services.NewPollService(store, hub, messageLocks),
		RSVP:         services.NewRSVPService(store, hub, messageLocks),
		Notification: notificationService,
		ReadState:    services.NewReadStateService(store, hub, notificationService),
		Presence: services.NewPresenceTracker(
			hub, cfg.Presence.Timeout, cfg.Presence.SweepInterval, log.Named("presence"),
		),
		Retention:      retention,
		MessageLimiter: messageLimiter,
	}, nil
}
