package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/repository"
	"github.com/akinalp/huddle/services"
	"github.com/akinalp/huddle/ws"
)

// nopPublisher, yayınları yutar.
type nopPublisher struct{}

func (nopPublisher) BroadcastToConversation(string, []string, ws.Event) {}
func (nopPublisher) BroadcastToUser(string, ws.Event)                   {}
func (nopPublisher) BroadcastPresence(string, ws.Event)                 {}
func (nopPublisher) IsUserOnline(string) bool                           { return false }

type fixedSessions int

func (n fixedSessions) SessionCount() int { return int(n) }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	mux *http.ServeMux
	db  *database.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "huddle.db"), database.Migrations(), logger.Nop())
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := repository.NewStore(db.Conn)
	pub := nopPublisher{}
	locks := services.NewKeyedMutex()
	notifications := services.NewNotificationService(store, pub, logger.Nop())
	messages := services.NewMessageService(store, pub, notifications, nil, nil, locks, logger.Nop())
	conversations := services.NewConversationService(store, pub, messages, logger.Nop())
	readState := services.NewReadStateService(store, pub, notifications)

	for _, id := range []string{"alice", "bob", "carol", "dave"} {
		if err := store.Users.Upsert(context.Background(), &models.User{ID: id, Username: id, Email: id + "@example.com"}); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	conv := NewConversationHandler(conversations)
	msg := NewMessageHandler(messages)
	interaction := NewInteractionHandler(
		services.NewReactionService(store, pub, locks),
		services.NewPinService(store, pub, locks),
		services.NewPollService(store, pub, locks),
		services.NewRSVPService(store, pub, locks),
	)
	rs := NewReadStateHandler(readState)
	notif := NewNotificationHandler(notifications)
	health := NewHealthHandler(db.Conn, fixedSessions(3))
	presence := NewPresenceHandler(services.NewPresenceTracker(pub, 0, 0, logger.Nop()))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", health.Check)
	mux.HandleFunc("POST /api/conversations", conv.Create)
	mux.HandleFunc("GET /api/conversations", conv.List)
	mux.HandleFunc("GET /api/conversations/{id}/messages", msg.List)
	mux.HandleFunc("POST /api/conversations/{id}/messages", msg.Send)
	mux.HandleFunc("POST /api/conversations/{id}/pins/{messageId}", interaction.TogglePin)
	mux.HandleFunc("POST /api/messages/mark-read", rs.MarkRead)
	mux.HandleFunc("GET /api/messages/unread-count", rs.UnreadCount)
	mux.HandleFunc("PATCH /api/messages/{id}", msg.Edit)
	mux.HandleFunc("POST /api/messages/{id}/reactions", interaction.ToggleReaction)
	mux.HandleFunc("GET /api/notifications", notif.List)
	mux.HandleFunc("POST /api/notifications/mark-all-read", notif.MarkAllRead)
	mux.HandleFunc("GET /api/presence", presence.Get)

	return &testServer{mux: mux, db: db}
}

// do, isteği kullanıcı context'iyle çalıştırır. userID boşsa anonimdir.
func (s *testServer) do(t *testing.T, method, path, userID string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req = req.WithContext(context.WithValue(req.Context(), UserContextKey, &models.User{ID: userID, Username: userID}))
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid envelope %q", method, path, rec.Body.String())
	}
	return rec.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
	return v
}

func (s *testServer) directConversation(t *testing.T, a, b string) models.Conversation {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/conversations", a, map[string]any{
		"type":            "direct",
		"participant_ids": []string{b},
	})
	if code != http.StatusOK {
		t.Fatalf("create direct: %d %s", code, env.Error)
	}
	return decodeData[models.Conversation](t, env)
}

func (s *testServer) send(t *testing.T, convID, userID, text string) models.Message {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/conversations/"+convID+"/messages", userID, map[string]any{
		"message_type": "text",
		"content":      map[string]string{"text": text},
	})
	if code != http.StatusCreated {
		t.Fatalf("send: %d %s", code, env.Error)
	}
	return decodeData[models.Message](t, env)
}

func TestRequiresUser(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/conversations", "", nil)
	if code != http.StatusUnauthorized || env.Success {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	data := decodeData[map[string]any](t, env)
	if data["status"] != "ok" || data["sessions"] != float64(3) {
		t.Fatalf("unexpected health payload: %v", data)
	}

	_ = s.db.Close()
	if code, _ := s.do(t, http.MethodGet, "/api/health", "", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after db close, got %d", code)
	}
}

func TestCreateConversationStatusCodes(t *testing.T) {
	s := newTestServer(t)

	first := s.directConversation(t, "alice", "bob")
	second := s.directConversation(t, "bob", "alice")
	if first.ID != second.ID {
		t.Fatalf("direct conversation not reused: %s vs %s", first.ID, second.ID)
	}

	code, env := s.do(t, http.MethodPost, "/api/conversations", "alice", map[string]any{
		"type":            "group",
		"name":            "Team",
		"participant_ids": []string{"bob", "carol"},
	})
	if code != http.StatusCreated {
		t.Fatalf("expected 201 for group, got %d %s", code, env.Error)
	}

	code, _ = s.do(t, http.MethodPost, "/api/conversations", "alice", "{not json")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", code)
	}

	code, _ = s.do(t, http.MethodPost, "/api/conversations", "alice", map[string]any{
		"type":            "direct",
		"participant_ids": []string{"alice"},
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for self conversation, got %d", code)
	}
}

func TestSendAndListMessages(t *testing.T) {
	s := newTestServer(t)
	conv := s.directConversation(t, "alice", "bob")

	sent := s.send(t, conv.ID, "alice", "hello")
	if sent.ID == "" || sent.SenderID != "alice" {
		t.Fatalf("unexpected message: %+v", sent)
	}
	s.send(t, conv.ID, "bob", "hi")

	code, env := s.do(t, http.MethodGet, "/api/conversations/"+conv.ID+"/messages?limit=1", "bob", nil)
	if code != http.StatusOK {
		t.Fatalf("list: %d %s", code, env.Error)
	}
	page := decodeData[models.MessagePage](t, env)
	if len(page.Messages) != 1 || !page.HasMore || page.Messages[0].SenderID != "bob" {
		t.Fatalf("unexpected page: %+v", page)
	}

	code, _ = s.do(t, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", "carol", nil)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider, got %d", code)
	}

	code, _ = s.do(t, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", "alice", map[string]any{
		"message_type": "system",
		"content":      map[string]string{"event": "x"},
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for client system message, got %d", code)
	}
}

func TestEditMessage(t *testing.T) {
	s := newTestServer(t)
	conv := s.directConversation(t, "alice", "bob")
	sent := s.send(t, conv.ID, "alice", "helo")

	code, _ := s.do(t, http.MethodPatch, "/api/messages/"+sent.ID, "bob", map[string]string{"text": "hacked"})
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-author, got %d", code)
	}

	code, env := s.do(t, http.MethodPatch, "/api/messages/"+sent.ID, "alice", map[string]string{"text": "hello"})
	if code != http.StatusOK {
		t.Fatalf("edit: %d %s", code, env.Error)
	}
	if edited := decodeData[models.Message](t, env); !edited.IsEdited {
		t.Fatal("expected is_edited")
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	s := newTestServer(t)
	conv := s.directConversation(t, "alice", "bob")
	s.send(t, conv.ID, "alice", "one")
	s.send(t, conv.ID, "alice", "two")

	type counts struct {
		TotalUnread int `json:"total_unread"`
	}

	_, env := s.do(t, http.MethodGet, "/api/messages/unread-count", "bob", nil)
	if got := decodeData[counts](t, env).TotalUnread; got != 2 {
		t.Fatalf("expected 2 unread, got %d", got)
	}

	code, _ := s.do(t, http.MethodPost, "/api/messages/mark-read", "bob", map[string]string{})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 without conversation_id, got %d", code)
	}

	code, env = s.do(t, http.MethodPost, "/api/messages/mark-read", "bob", map[string]string{"conversation_id": conv.ID})
	if code != http.StatusOK {
		t.Fatalf("mark-read: %d %s", code, env.Error)
	}

	_, env = s.do(t, http.MethodGet, "/api/messages/unread-count", "bob", nil)
	if got := decodeData[counts](t, env).TotalUnread; got != 0 {
		t.Fatalf("expected 0 unread after mark-read, got %d", got)
	}
}

func TestReactionAndPin(t *testing.T) {
	s := newTestServer(t)
	conv := s.directConversation(t, "alice", "bob")
	sent := s.send(t, conv.ID, "alice", "ship it")

	code, env := s.do(t, http.MethodPost, "/api/messages/"+sent.ID+"/reactions", "bob", map[string]string{"emoji": "👍"})
	if code != http.StatusOK {
		t.Fatalf("reaction: %d %s", code, env.Error)
	}
	groups := decodeData[[]models.ReactionGroup](t, env)
	if len(groups) != 1 || groups[0].Count != 1 {
		t.Fatalf("unexpected reaction groups: %+v", groups)
	}

	code, _ = s.do(t, http.MethodPost, "/api/messages/"+sent.ID+"/reactions", "bob", map[string]string{"emoji": ""})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty emoji, got %d", code)
	}

	code, env = s.do(t, http.MethodPost, "/api/conversations/"+conv.ID+"/pins/"+sent.ID, "bob", nil)
	if code != http.StatusOK {
		t.Fatalf("pin: %d %s", code, env.Error)
	}
	if update := decodeData[models.PinUpdate](t, env); !update.Pinned || update.ActorID != "bob" {
		t.Fatalf("unexpected pin update: %+v", update)
	}
}

func TestNotificationsFlow(t *testing.T) {
	s := newTestServer(t)
	conv := s.directConversation(t, "alice", "bob")
	s.send(t, conv.ID, "alice", "ping")

	code, env := s.do(t, http.MethodGet, "/api/notifications?unread_only=true", "bob", nil)
	if code != http.StatusOK {
		t.Fatalf("list: %d %s", code, env.Error)
	}
	if list := decodeData[[]models.Notification](t, env); len(list) != 1 || list[0].UserID != "bob" {
		t.Fatalf("expected one notification for bob, got %+v", list)
	}

	_, env = s.do(t, http.MethodGet, "/api/notifications", "alice", nil)
	if list := decodeData[[]models.Notification](t, env); len(list) != 0 {
		t.Fatalf("sender must not be notified, got %+v", list)
	}

	_, env = s.do(t, http.MethodPost, "/api/notifications/mark-all-read", "bob", nil)
	if updated := decodeData[map[string]int64](t, env)["updated"]; updated != 1 {
		t.Fatalf("expected 1 updated, got %d", updated)
	}
}

func TestPresenceRequiresIDs(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/presence", "alice", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}

	code, env := s.do(t, http.MethodGet, "/api/presence?user_ids=bob,%20carol", "alice", nil)
	if code != http.StatusOK {
		t.Fatalf("presence: %d %s", code, env.Error)
	}
	if states := decodeData[[]models.PresenceState](t, env); len(states) != 2 {
		t.Fatalf("expected 2 states, got %+v", states)
	}
}
