package repository

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "huddle.db"), database.Migrations(), logger.Nop())
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db.Conn)
}

// seedMessage, tek kullanıcılı bir konuşmaya text mesaj ekler.
func seedMessage(t *testing.T, s *Store, messageID string) {
	t.Helper()

	stmts := []string{
		`INSERT INTO users (id, username, email, created_at, updated_at) VALUES ('owner', 'owner', '', 1, 1)`,
		`INSERT INTO conversations (id, type, name, creator_id, created_at, updated_at) VALUES ('c1', 'group', 'g', 'owner', 1, 1)`,
		`INSERT INTO messages (id, conversation_id, sender_id, message_type, content, created_at)
		 VALUES ('` + messageID + `', 'c1', 'owner', 'text', '{"text":"hi"}', 1)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestReactionUsersKeepCommas(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedMessage(t, s, "m1")

	for _, user := range []string{"a,b", "c"} {
		added, err := s.Reactions.Toggle(ctx, "m1", user, "👍")
		if err != nil || !added {
			t.Fatalf("Toggle(%q) = %v, %v", user, added, err)
		}
	}

	groups, err := s.Reactions.GetByMessageID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByMessageID: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %+v", groups)
	}
	if groups[0].Count != 2 {
		t.Fatalf("expected count 2, got %d", groups[0].Count)
	}
	if want := []string{"a,b", "c"}; !reflect.DeepEqual(groups[0].Users, want) {
		t.Fatalf("expected users %q, got %q", want, groups[0].Users)
	}
}

func TestReactionToggleTwiceRemoves(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedMessage(t, s, "m1")

	if added, err := s.Reactions.Toggle(ctx, "m1", "u1", "🎉"); err != nil || !added {
		t.Fatalf("first toggle = %v, %v", added, err)
	}
	if added, err := s.Reactions.Toggle(ctx, "m1", "u1", "🎉"); err != nil || added {
		t.Fatalf("second toggle = %v, %v", added, err)
	}

	groups, err := s.Reactions.GetByMessageID(ctx, "m1")
	if err != nil {
		t.Fatalf("GetByMessageID: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected no groups, got %+v", groups)
	}

	byID, err := s.Reactions.GetByMessageIDs(ctx, []string{"m1", "missing"})
	if err != nil {
		t.Fatalf("GetByMessageIDs: %v", err)
	}
	if len(byID) != 0 {
		t.Fatalf("expected empty map, got %+v", byID)
	}
}
