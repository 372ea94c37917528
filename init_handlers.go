// Package main: Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Handler'lar "thin" dir: sadece HTTP parse + service call + response write.
package main

import (
	"database/sql"

	"github.com/akinalp/huddle/config"
	"github.com/akinalp/huddle/handlers"
	"github.com/akinalp/huddle/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Conversation *handlers.ConversationHandler
	Message      *handlers.MessageHandler
	Interaction  *handlers.InteractionHandler
	ReadState    *handlers.ReadStateHandler
	Notification *handlers.NotificationHandler
	Presence     *handlers.PresenceHandler
	User         *handlers.UserHandler
	Health       *handlers.HealthHandler
	WS           *ws.Handler
}

func initHandlers(svcs *Services, conn *sql.DB, hub *ws.Hub, cfg *config.Config) *Handlers {
	return &Handlers{
		Conversation: handlers.NewConversationHandler(svcs.Conversation),
		Message:      handlers.NewMessageHandler(svcs.Message),
		Interaction:  handlers.NewInteractionHandler(svcs.Reaction, svcs.Pin, svcs.Poll, svcs.RSVP),
		ReadState:    handlers.NewReadStateHandler(svcs.ReadState),
		Notification: handlers.NewNotificationHandler(svcs.Notification),
		Presence:     handlers.NewPresenceHandler(svcs.Presence),
		User:         handlers.NewUserHandler(svcs.User),
		Health:       handlers.NewHealthHandler(conn, hub),
		WS:           ws.NewHandler(hub, svcs.Tokens, cfg.Server.CORSOrigins),
	}
}
