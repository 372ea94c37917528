package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/repository"
	"github.com/akinalp/huddle/ws"
)

// recordedEvent, sahte publisher'ın kaydettiği tek yayın.
type recordedEvent struct {
	kind   string // conversation | user | presence
	target string
	users  []string
	event  ws.Event
}

// recorder, ws.EventPublisher'ın yayınları kaydeden test implementasyonu.
type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
	online map[string]bool
}

func newRecorder() *recorder {
	return &recorder{online: map[string]bool{}}
}

func (r *recorder) BroadcastToConversation(conversationID string, userIDs []string, event ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: "conversation", target: conversationID, users: userIDs, event: event})
}

func (r *recorder) BroadcastToUser(userID string, event ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: "user", target: userID, event: event})
}

func (r *recorder) BroadcastPresence(userID string, event ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: "presence", target: userID, event: event})
}

func (r *recorder) IsUserOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online[userID]
}

// ops, kaydedilen yayınlardan verilen op'a sahip olanları döner.
func (r *recorder) ops(op string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.event.Op == op {
			out = append(out, e)
		}
	}
	return out
}

// stepClock, her çağrıda 1ms ilerleyen deterministik saat.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type testEnv struct {
	store         *repository.Store
	pub           *recorder
	clock         *stepClock
	notifications NotificationService
	messages      MessageService
	conversations ConversationService
	reactions     ReactionService
	pins          PinService
	polls         PollService
	rsvps         RSVPService
	readState     ReadStateService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "huddle.db"), database.Migrations(), logger.Nop())
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := repository.NewStore(db.Conn)
	pub := newRecorder()
	clock := newStepClock()
	locks := NewKeyedMutex()

	notifications := NewNotificationService(store, pub, logger.Nop())
	messages := NewMessageService(store, pub, notifications, nil, nil, locks, logger.Nop())
	messages.(*messageService).now = clock.Now
	readState := NewReadStateService(store, pub, notifications)
	readState.(*readStateService).now = clock.Now

	return &testEnv{
		store:         store,
		pub:           pub,
		clock:         clock,
		notifications: notifications,
		messages:      messages,
		conversations: NewConversationService(store, pub, messages, logger.Nop()),
		reactions:     NewReactionService(store, pub, locks),
		pins:          NewPinService(store, pub, locks),
		polls:         NewPollService(store, pub, locks),
		rsvps:         NewRSVPService(store, pub, locks),
		readState:     readState,
	}
}

// seedUsers, username'i ID ile aynı olan kullanıcılar oluşturur.
func (e *testEnv) seedUsers(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := e.store.Users.Upsert(context.Background(), &models.User{ID: id, Username: id, Email: id + "@example.com"}); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}
}

func (e *testEnv) direct(t *testing.T, a, b string) *models.Conversation {
	t.Helper()
	conv, _, err := e.conversations.GetOrCreateDirect(context.Background(), a, b)
	if err != nil {
		t.Fatalf("GetOrCreateDirect(%s, %s): %v", a, b, err)
	}
	return conv
}

func (e *testEnv) group(t *testing.T, creator, name string, members ...string) *models.Conversation {
	t.Helper()
	conv, err := e.conversations.CreateGroup(context.Background(), creator, name, members)
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	return conv
}

func (e *testEnv) sendText(t *testing.T, convID, sender, body string) *models.Message {
	t.Helper()
	msg, err := e.messages.Append(context.Background(), convID, sender, textContent(body), nil)
	if err != nil {
		t.Fatalf("Append(%q): %v", body, err)
	}
	return msg
}

func textContent(body string) models.MessageContent {
	return models.MessageContent{Type: models.MessageText, Text: &models.TextContent{Body: body}}
}

func pollContent(question string, options ...string) models.MessageContent {
	return models.MessageContent{Type: models.MessagePoll, Poll: &models.PollContent{Question: question, Options: options}}
}

// notificationsOf, kullanıcının tüm bildirimlerini döner.
func (e *testEnv) notificationsOf(t *testing.T, userID string) []models.Notification {
	t.Helper()
	list, err := e.notifications.List(context.Background(), userID, MaxNotificationLimit, false)
	if err != nil {
		t.Fatalf("List notifications for %s: %v", userID, err)
	}
	return list
}
