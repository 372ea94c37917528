package services

import (
	"context"
	"errors"
	"testing"

	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/ws"
)

func TestUnreadCountLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob")
	conv := env.direct(t, "alice", "bob")
	ctx := context.Background()

	for _, body := range []string{"one", "two", "three"} {
		env.sendText(t, conv.ID, "alice", body)
	}

	counts, err := env.readState.UnreadCount(ctx, "bob")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if counts.TotalUnread != 3 || counts.Conversations[conv.ID] != 3 {
		t.Fatalf("expected 3 unread, got %+v", counts)
	}
	if counts.UnreadMentions != 0 {
		t.Fatalf("expected 0 mentions, got %d", counts.UnreadMentions)
	}

	// Kendi mesajları okunmamış sayılmaz.
	if own, _ := env.readState.UnreadCount(ctx, "alice"); own.TotalUnread != 0 {
		t.Fatalf("sender should have no unread messages, got %+v", own)
	}

	update, err := env.readState.MarkAsRead(ctx, conv.ID, "bob")
	if err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	if update.UserID != "bob" || update.LastReadAt.IsZero() {
		t.Fatalf("unexpected read update: %+v", update)
	}
	if len(env.pub.ops(ws.OpReadUpdate)) != 1 {
		t.Fatal("expected one read:update event")
	}

	counts, _ = env.readState.UnreadCount(ctx, "bob")
	if counts.TotalUnread != 0 {
		t.Fatalf("expected 0 unread after mark read, got %+v", counts)
	}

	env.sendText(t, conv.ID, "alice", "four")
	counts, _ = env.readState.UnreadCount(ctx, "bob")
	if counts.TotalUnread != 1 {
		t.Fatalf("expected 1 unread after new message, got %+v", counts)
	}
}

func TestMarkAsReadIsMonotonicAndIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob")
	conv := env.direct(t, "alice", "bob")
	env.sendText(t, conv.ID, "alice", "hello")
	ctx := context.Background()

	first, err := env.readState.MarkAsRead(ctx, conv.ID, "bob")
	if err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	second, err := env.readState.MarkAsRead(ctx, conv.ID, "bob")
	if err != nil {
		t.Fatalf("second MarkAsRead: %v", err)
	}
	if second.LastReadAt.Before(first.LastReadAt) {
		t.Fatalf("watermark moved backwards: %s → %s", first.LastReadAt, second.LastReadAt)
	}

	if _, err := env.readState.MarkAsRead(ctx, conv.ID, "mallory"); !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
}

func TestSeenBy(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob", "carol")
	conv := env.group(t, "alice", "Team", "bob", "carol")
	msg := env.sendText(t, conv.ID, "alice", "did you see this?")
	ctx := context.Background()

	if _, err := env.readState.MarkAsRead(ctx, conv.ID, "bob"); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}

	seen, err := env.messages.SeenBy(ctx, "alice", msg.ID)
	if err != nil {
		t.Fatalf("SeenBy: %v", err)
	}
	if len(seen) != 1 || seen[0] != "bob" {
		t.Fatalf("expected only bob to have seen the message, got %v", seen)
	}
}
