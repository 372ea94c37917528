package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/ws"
)

func TestToggleReactionIsItsOwnInverse(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob")
	conv := env.direct(t, "alice", "bob")
	msg := env.sendText(t, conv.ID, "alice", "ship it")
	ctx := context.Background()

	groups, err := env.reactions.ToggleReaction(ctx, msg.ID, "bob", "👍")
	if err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if len(groups) != 1 || groups[0].Count != 1 || groups[0].Users[0] != "bob" {
		t.Fatalf("unexpected groups after add: %+v", groups)
	}

	groups, err = env.reactions.ToggleReaction(ctx, msg.ID, "bob", "👍")
	if err != nil {
		t.Fatalf("ToggleReaction: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected no reactions after second toggle, got %+v", groups)
	}

	events := env.pub.ops(ws.OpReactionUpdate)
	if len(events) != 2 {
		t.Fatalf("expected two reaction:update events, got %d", len(events))
	}
	last := events[1].event.Data.(models.ReactionUpdate)
	if last.Added {
		t.Fatal("second toggle must report removal")
	}
}

func TestToggleReactionConcurrentUsers(t *testing.T) {
	env := newTestEnv(t)
	members := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		members = append(members, fmt.Sprintf("user%d", i))
	}
	env.seedUsers(t, append([]string{"alice"}, members...)...)
	conv := env.group(t, "alice", "Everyone", members...)
	msg := env.sendText(t, conv.ID, "alice", "react please")

	var wg sync.WaitGroup
	for _, id := range members {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := env.reactions.ToggleReaction(context.Background(), msg.ID, id, "🎉"); err != nil {
				t.Errorf("ToggleReaction(%s): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	groups, err := env.store.Reactions.GetByMessageID(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("GetByMessageID: %v", err)
	}
	if len(groups) != 1 || groups[0].Count != len(members) {
		t.Fatalf("expected one group with %d users, got %+v", len(members), groups)
	}
}

func TestToggleReactionValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob", "mallory")
	conv := env.direct(t, "alice", "bob")
	msg := env.sendText(t, conv.ID, "alice", "hi")
	ctx := context.Background()

	if _, err := env.reactions.ToggleReaction(ctx, msg.ID, "bob", ""); !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for empty emoji, got %v", err)
	}
	long := "this-emoji-name-is-way-too-long-to-be-real"
	if _, err := env.reactions.ToggleReaction(ctx, msg.ID, "bob", long); !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for long emoji, got %v", err)
	}
	if _, err := env.reactions.ToggleReaction(ctx, msg.ID, "mallory", "👍"); !errors.Is(err, pkg.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
	if _, err := env.reactions.ToggleReaction(ctx, "missing", "bob", "👍"); !errors.Is(err, pkg.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown message, got %v", err)
	}
}

func TestTogglePin(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob")
	conv := env.direct(t, "alice", "bob")
	msg := env.sendText(t, conv.ID, "alice", "remember this")
	ctx := context.Background()

	pinned, err := env.pins.TogglePin(ctx, conv.ID, msg.ID, "bob")
	if err != nil || !pinned {
		t.Fatalf("expected pin, got pinned=%v err=%v", pinned, err)
	}

	pins, err := env.pins.ListPins(ctx, "alice", conv.ID)
	if err != nil {
		t.Fatalf("ListPins: %v", err)
	}
	if len(pins) != 1 || pins[0].Message == nil || !pins[0].Message.IsPinned {
		t.Fatalf("expected one enriched pin, got %+v", pins)
	}

	pinned, err = env.pins.TogglePin(ctx, conv.ID, msg.ID, "alice")
	if err != nil || pinned {
		t.Fatalf("expected unpin, got pinned=%v err=%v", pinned, err)
	}
	if got := len(env.pub.ops(ws.OpPinUpdate)); got != 2 {
		t.Fatalf("expected two pin:update events, got %d", got)
	}
}

func TestTogglePinRejectsForeignMessage(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob", "carol")
	conv := env.direct(t, "alice", "bob")
	other := env.direct(t, "alice", "carol")
	foreign := env.sendText(t, other.ID, "alice", "not here")

	_, err := env.pins.TogglePin(context.Background(), conv.ID, foreign.ID, "alice")
	if !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}

func TestPollVoting(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob", "carol")
	conv := env.group(t, "alice", "Lunch", "bob", "carol")
	ctx := context.Background()

	poll, err := env.messages.Append(ctx, conv.ID, "alice", pollContent("Where?", "pizza", "sushi", "tacos"), nil)
	if err != nil {
		t.Fatalf("Append poll: %v", err)
	}
	if poll.Poll == nil || poll.Poll.TotalVotes != 0 {
		t.Fatalf("new poll must carry an empty tally, got %+v", poll.Poll)
	}

	for _, v := range []struct {
		user   string
		option int
	}{{"alice", 0}, {"bob", 1}, {"carol", 1}, {"bob", 2}} {
		if _, err := env.polls.VoteOnPoll(ctx, poll.ID, v.user, v.option); err != nil {
			t.Fatalf("VoteOnPoll(%s, %d): %v", v.user, v.option, err)
		}
	}

	page, err := env.messages.List(ctx, "carol", conv.ID, 1, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	tally := page.Messages[0].Poll
	if tally == nil {
		t.Fatal("expected poll tally on listed message")
	}
	// bob 1 → 2 değiştirdi: tek kullanıcı tek oy.
	if tally.TotalVotes != 3 || tally.Counts[0] != 1 || tally.Counts[1] != 1 || tally.Counts[2] != 1 {
		t.Fatalf("unexpected tally: %+v", tally)
	}

	if _, err := env.polls.VoteOnPoll(ctx, poll.ID, "bob", 3); !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for out of range option, got %v", err)
	}
	text := env.sendText(t, conv.ID, "alice", "not a poll")
	if _, err := env.polls.VoteOnPoll(ctx, text.ID, "bob", 0); !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for non-poll message, got %v", err)
	}
}

func TestRSVPLastWriteWins(t *testing.T) {
	env := newTestEnv(t)
	env.seedUsers(t, "alice", "bob", "carol")
	conv := env.group(t, "alice", "Offsite", "bob", "carol")
	ctx := context.Background()

	event, err := env.messages.Append(ctx, conv.ID, "alice", models.MessageContent{
		Type:  models.MessageEvent,
		Event: &models.EventContent{Title: "Offsite", StartsAt: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)},
	}, nil)
	if err != nil {
		t.Fatalf("Append event: %v", err)
	}

	if _, err := env.rsvps.RSVPToEvent(ctx, event.ID, "bob", models.RSVPGoing); err != nil {
		t.Fatalf("RSVP: %v", err)
	}
	tally, err := env.rsvps.RSVPToEvent(ctx, event.ID, "bob", models.RSVPDeclined)
	if err != nil {
		t.Fatalf("RSVP: %v", err)
	}
	if len(tally.Going) != 0 || len(tally.Declined) != 1 || tally.Declined[0] != "bob" {
		t.Fatalf("unexpected tally: %+v", tally)
	}

	if _, err := env.rsvps.RSVPToEvent(ctx, event.ID, "carol", "perhaps"); !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for invalid status, got %v", err)
	}
	if got := len(env.pub.ops(ws.OpEventRSVPUpdate)); got != 2 {
		t.Fatalf("expected two event:rsvp:update events, got %d", got)
	}
}
