package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/ws"
)

func countByType(list []models.Notification) map[models.NotificationType]int {
	out := map[models.NotificationType]int{}
	for _, n := range list {
		out[n.Type]++
	}
	return out
}

func TestMentionReplacesDirectMessageNotification(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob")
	conv := env.direct(t, "alice", "bob")

	msg := env.sendText(t, conv.ID, "alice", "hi @bob")
	if mentions := msg.Content.Mentions(); len(mentions) != 1 || mentions[0] != "bob" {
		t.Fatalf("expected bob to be mentioned, got %v", mentions)
	}

	got := countByType(env.notificationsOf(t, "bob"))
	if got[models.NotificationMention] != 1 || got[models.NotificationDirectMessage] != 0 {
		t.Fatalf("expected exactly one mention and no direct_message, got %v", got)
	}
	if len(env.notificationsOf(t, "alice")) != 0 {
		t.Fatal("sender must not be notified")
	}

	counts, err := env.readState.UnreadCount(context.Background(), "bob")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if counts.TotalUnread != 1 || counts.UnreadMentions != 1 {
		t.Fatalf("expected 1 unread and 1 mention, got %+v", counts)
	}
}

func TestPlainMessageNotifiesEveryoneButSender(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob", "carol")
	conv := env.group(t, "alice", "Team", "bob", "carol")

	env.sendText(t, conv.ID, "alice", "standup in 5")

	for _, id := range []string{"bob", "carol"} {
		got := countByType(env.notificationsOf(t, id))
		if got[models.NotificationDirectMessage] != 1 {
			t.Fatalf("%s: expected one direct_message, got %v", id, got)
		}
		if got[models.NotificationSystem] != 1 {
			t.Fatalf("%s: expected group created system notification, got %v", id, got)
		}
	}
	if got := countByType(env.notificationsOf(t, "alice")); got[models.NotificationDirectMessage] != 0 {
		t.Fatalf("sender got notified: %v", got)
	}
	if len(env.pub.ops(ws.OpNotificationNew)) == 0 {
		t.Fatal("expected notification:new events")
	}
}

func TestMutedParticipantSkippedExceptMentions(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob", "carol")
	conv := env.group(t, "alice", "Team", "bob", "carol")
	ctx := context.Background()

	if err := env.conversations.SetMuted(ctx, conv.ID, "carol", true); err != nil {
		t.Fatalf("SetMuted: %v", err)
	}

	env.sendText(t, conv.ID, "alice", "lunch?")
	if got := countByType(env.notificationsOf(t, "carol")); got[models.NotificationDirectMessage] != 0 {
		t.Fatalf("muted participant notified: %v", got)
	}
	if got := countByType(env.notificationsOf(t, "bob")); got[models.NotificationDirectMessage] != 1 {
		t.Fatalf("bob should be notified once, got %v", got)
	}

	env.sendText(t, conv.ID, "alice", "@carol you too")
	if got := countByType(env.notificationsOf(t, "carol")); got[models.NotificationMention] != 1 {
		t.Fatalf("muted participant must still get mentions, got %v", got)
	}
}

func TestSharedContentNotification(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob")
	conv := env.direct(t, "alice", "bob")

	_, err := env.messages.Append(context.Background(), conv.ID, "alice", models.MessageContent{
		Type:   models.MessageSharedChat,
		Shared: &models.SharedContent{OriginalQuery: "q", AIResponse: "a"},
	}, nil)
	if err != nil {
		t.Fatalf("Append shared: %v", err)
	}
	if got := countByType(env.notificationsOf(t, "bob")); got[models.NotificationSharedContent] != 1 {
		t.Fatalf("expected shared_content notification, got %v", got)
	}
}

func TestNotificationReadState(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob")
	conv := env.direct(t, "alice", "bob")
	ctx := context.Background()

	env.sendText(t, conv.ID, "alice", "one")
	env.sendText(t, conv.ID, "alice", "two")

	list := env.notificationsOf(t, "bob")
	if len(list) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(list))
	}
	if list[0].CreatedAt.Before(list[1].CreatedAt) {
		t.Fatal("notifications must be newest first")
	}

	// İki kez okundu işaretlemek hata değildir.
	for i := 0; i < 2; i++ {
		if err := env.notifications.MarkRead(ctx, "bob", list[0].ID); err != nil {
			t.Fatalf("MarkRead #%d: %v", i+1, err)
		}
	}
	if err := env.notifications.MarkRead(ctx, "alice", list[0].ID); !errors.Is(err, pkg.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's notification, got %v", err)
	}

	unread, err := env.notifications.List(ctx, "bob", 0, true)
	if err != nil {
		t.Fatalf("List unread: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("expected 1 unread notification, got %d", len(unread))
	}

	updated, err := env.notifications.MarkAllRead(ctx, "bob")
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 updated, got %d", updated)
	}
	if updated, _ = env.notifications.MarkAllRead(ctx, "bob"); updated != 0 {
		t.Fatalf("second MarkAllRead should update nothing, got %d", updated)
	}
}

type captureSink struct {
	mu    sync.Mutex
	got   []models.Notification
	fail  bool
	delay time.Duration
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Deliver(_ context.Context, n models.Notification, _ *models.Message) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	if s.fail {
		return errors.New("sink down")
	}
	return nil
}

func TestSinkFailureDoesNotFailAppend(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob")
	conv := env.direct(t, "alice", "bob")

	sink := &captureSink{fail: true, delay: 10 * time.Millisecond}
	notifications := NewNotificationService(env.store, env.pub, logger.Nop(), sink)
	env.messages.(*messageService).notifier = notifications

	if _, err := env.messages.Append(context.Background(), conv.ID, "alice", textContent("hello"), nil); err != nil {
		t.Fatalf("Append must succeed despite sink failure: %v", err)
	}
	notifications.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.got) != 1 || sink.got[0].UserID != "bob" {
		t.Fatalf("expected one delivery attempt for bob, got %+v", sink.got)
	}
}
