package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/akinalp/huddle/config"
	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/ws"
)

const testSecret = "test-secret"

func newGateway(t *testing.T) (*ws.Hub, *Services, *httptest.Server) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "huddle.db"), database.Migrations(), logger.Nop())
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := &config.Config{
		Auth:      config.AuthConfig{JWTSecret: testSecret},
		Presence:  config.PresenceConfig{HeartbeatInterval: 30 * time.Second, Timeout: 90 * time.Second, SweepInterval: time.Minute},
		RateLimit: config.RateLimitConfig{Messages: 10, MessageWindow: 5 * time.Second, MessageBurst: 5},
		Retention: config.RetentionConfig{Schedule: "0 4 * * *", MaxAge: time.Hour},
	}

	hub := ws.NewHub(ws.Config{Workers: 2, QueueSize: 16}, logger.Nop())
	svcs, err := initServices(initStore(db.Conn), hub, nil, cfg, logger.Nop())
	if err != nil {
		t.Fatalf("initServices: %v", err)
	}
	t.Cleanup(svcs.MessageLimiter.Stop)

	registerHubCallbacks(hub, svcs, logger.Nop())
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(http.HandlerFunc(ws.NewHandler(hub, svcs.Tokens, []string{"*"}).HandleConnection))
	t.Cleanup(srv.Close)
	return hub, svcs, srv
}

func signToken(t *testing.T, userID string) string {
	t.Helper()
	claims := &models.IdentityClaims{
		Username: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func dialGateway(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func presenceOf(svcs *Services, userID string) models.PresenceStatus {
	return svcs.Presence.Get([]string{userID})[0].Status
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestQuickDisconnectLeavesUserOffline(t *testing.T) {
	hub, svcs, srv := newGateway(t)

	// ready hazırlığı yavaş: oturum, bağlantı adımı bitmeden kapanır.
	hub.OnConnect(func(context.Context, *ws.Client) any {
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	token := signToken(t, "alice")
	for i := 0; i < 3; i++ {
		conn := dialGateway(t, srv, token)
		conn.Close()

		waitUntil(t, "session cleanup", func() bool { return hub.SessionCount() == 0 })
		waitUntil(t, "offline presence", func() bool { return presenceOf(svcs, "alice") == models.PresenceOffline })
	}

	// Sayaç sızmadıysa yeni oturum online, kapanışı offline yapar.
	conn := dialGateway(t, srv, token)
	waitUntil(t, "online presence", func() bool { return presenceOf(svcs, "alice") == models.PresenceOnline })
	conn.Close()
	waitUntil(t, "offline after last session", func() bool { return presenceOf(svcs, "alice") == models.PresenceOffline })
}

func TestMultiSessionPresence(t *testing.T) {
	hub, svcs, srv := newGateway(t)
	token := signToken(t, "bob")

	first := dialGateway(t, srv, token)
	second := dialGateway(t, srv, token)
	waitUntil(t, "two sessions", func() bool { return hub.SessionCount() == 2 })

	first.Close()
	waitUntil(t, "one session", func() bool { return hub.SessionCount() == 1 })
	if got := presenceOf(svcs, "bob"); got != models.PresenceOnline {
		t.Fatalf("bob still has a session, expected online, got %s", got)
	}

	second.Close()
	waitUntil(t, "offline presence", func() bool { return presenceOf(svcs, "bob") == models.PresenceOffline })
}
