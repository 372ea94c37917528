// Package main: HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ları burada tanımlıdır:
//   - auth: Bearer token doğrulaması + kullanıcı başına istek limiti
package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akinalp/huddle/config"
	"github.com/akinalp/huddle/middleware"
	"github.com/akinalp/huddle/services"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Route sıralama kuralı: Literal path'ler parametrik path'lerden ÖNCE tanımlanmalı.
// Örnek: "/api/messages/mark-read" → "/api/messages/{id}" öncesinde.
func initRoutes(mux *http.ServeMux, h *Handlers, tokens *services.TokenResolver, cfg *config.Config) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(tokens)
	userLimit := middleware.UserRateLimit(cfg.RateLimit.RequestsPerMinute, time.Minute)

	// ─── Middleware Chain Helpers ───
	// Limit kullanıcıya göre tutulduğu için auth'tan SONRA çalışır.
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(userLimit(http.HandlerFunc(handler)))
	}

	// ─── Public ───
	mux.HandleFunc("GET /api/health", h.Health.Check)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", h.WS.HandleConnection)

	// ─── User ───
	mux.Handle("GET /api/users/me", auth(h.User.Me))
	mux.Handle("PUT /api/users/me", auth(h.User.SyncMe))

	// ─── Conversations ───
	mux.Handle("GET /api/conversations", auth(h.Conversation.List))
	mux.Handle("POST /api/conversations", auth(h.Conversation.Create))
	mux.Handle("GET /api/conversations/{id}", auth(h.Conversation.Get))
	mux.Handle("PUT /api/conversations/{id}/mute", auth(h.Conversation.SetMuted))

	// Messages (ledger)
	mux.Handle("GET /api/conversations/{id}/messages", auth(h.Message.List))
	mux.Handle("POST /api/conversations/{id}/messages", auth(h.Message.Send))

	// Pins
	mux.Handle("GET /api/conversations/{id}/pins", auth(h.Interaction.ListPins))
	mux.Handle("POST /api/conversations/{id}/pins/{messageId}", auth(h.Interaction.TogglePin))

	// ─── Messages ───
	// Literal path'ler önce
	mux.Handle("POST /api/messages/mark-read", auth(h.ReadState.MarkRead))
	mux.Handle("GET /api/messages/unread-count", auth(h.ReadState.UnreadCount))

	mux.Handle("PATCH /api/messages/{id}", auth(h.Message.Edit))
	mux.Handle("GET /api/messages/{id}/seen-by", auth(h.Message.SeenBy))
	mux.Handle("POST /api/messages/{id}/reactions", auth(h.Interaction.ToggleReaction))
	mux.Handle("POST /api/messages/{id}/votes", auth(h.Interaction.Vote))
	mux.Handle("POST /api/messages/{id}/rsvp", auth(h.Interaction.RSVP))

	// ─── Notifications ───
	mux.Handle("GET /api/notifications", auth(h.Notification.List))
	mux.Handle("POST /api/notifications/mark-all-read", auth(h.Notification.MarkAllRead))
	mux.Handle("POST /api/notifications/{id}/read", auth(h.Notification.MarkRead))

	// ─── Presence ───
	mux.Handle("GET /api/presence", auth(h.Presence.Get))
}
