package services

import (
	"context"
	"testing"

	"github.com/akinalp/huddle/models"
)

type sentMention struct {
	to, author, preview, link string
}

type fakeSender struct {
	sent []sentMention
}

func (f *fakeSender) SendMention(_ context.Context, toEmail, authorName, preview, link string) error {
	f.sent = append(f.sent, sentMention{toEmail, authorName, preview, link})
	return nil
}

func TestEmailSinkOnlyOfflineMentions(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob", "carol")
	env.pub.online["carol"] = true

	sender := &fakeSender{}
	sink := NewEmailSink(sender, env.store.Users, env.pub, "https://app.example/")
	msg := &models.Message{ID: "m1", ConversationID: "c1", SenderID: "alice"}
	ctx := context.Background()

	deliveries := []models.Notification{
		{UserID: "bob", Type: models.NotificationMention, Body: "hi @bob"},
		{UserID: "bob", Type: models.NotificationDirectMessage, Body: "hi"},
		{UserID: "carol", Type: models.NotificationMention, Body: "hi @carol"},
	}
	for _, n := range deliveries {
		if err := sink.Deliver(ctx, n, msg); err != nil {
			t.Fatalf("Deliver: %v", err)
		}
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %+v", sender.sent)
	}
	got := sender.sent[0]
	if got.to != "bob@example.com" || got.author != "alice" || got.link != "https://app.example/conversations/c1" {
		t.Fatalf("unexpected email: %+v", got)
	}
}
