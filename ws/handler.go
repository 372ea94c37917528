package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/akinalp/huddle/models"
)

// Authenticator, bağlantı token'ını kullanıcıya çözer.
// services.TokenResolver bu interface'i karşılar; ws paketi services'i import etmez.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Handler, /ws bağlantı isteklerini karşılar.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
}

// NewHandler, handler oluşturur. allowedOrigins içinde "*" varsa her origin kabul edilir.
func NewHandler(hub *Hub, auth Authenticator, allowedOrigins []string) *Handler {
	allowAll := false
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[strings.TrimRight(o, "/")] = struct{}{}
	}

	return &Handler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if allowAll || origin == "" {
					return true
				}
				_, ok := origins[strings.TrimRight(origin, "/")]
				return ok
			},
		},
	}
}

// HandleConnection, token'ı doğrular, bağlantıyı yükseltir ve oturumu kaydeder.
//
// Tarayıcılar WS handshake'inde header gönderemediği için token ?token= ile de gelebilir:
//
//	ws://server/ws?token=JWT
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	user, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Warn("upgrade failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, user.ID)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}
