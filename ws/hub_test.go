package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/pkg/logger"
)

func newTestHub(t *testing.T, cfg Config) *Hub {
	t.Helper()
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 16
	}
	h := NewHub(cfg, logger.Nop())
	t.Cleanup(h.Shutdown)
	return h
}

// attach, bağlantısız bir oturumu doğrudan kaydeder.
func attach(h *Hub, userID string) *Client {
	c := NewClient(h, nil, userID)
	h.addClient(c)
	return c
}

// drain, oturumun buffer'ındaki event'leri çözer.
func drain(t *testing.T, c *Client) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case raw, ok := <-c.send:
			if !ok {
				return out
			}
			var e Event
			if err := json.Unmarshal(raw, &e); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestBroadcastToConversationDeliversOncePerSession(t *testing.T) {
	h := newTestHub(t, Config{})

	alice1 := attach(h, "alice")
	alice2 := attach(h, "alice")
	bob := attach(h, "bob")
	carol := attach(h, "carol")

	// alice1 hem abone hem katılımcı: yine de tek kopya almalı.
	h.Subscribe(alice1, "conv")
	h.Subscribe(carol, "conv")

	h.BroadcastToConversation("conv", []string{"alice", "bob"}, Event{Op: OpMessageNew, Data: "x"})

	for name, c := range map[string]*Client{"alice1": alice1, "alice2": alice2, "bob": bob, "carol": carol} {
		if got := len(drain(t, c)); got != 1 {
			t.Fatalf("%s: expected exactly one event, got %d", name, got)
		}
	}
}

func seqsOf(events []Event) []int64 {
	out := make([]int64, 0, len(events))
	for _, e := range events {
		out = append(out, e.Seq)
	}
	return out
}

func TestSeqIsContiguousPerSession(t *testing.T) {
	h := newTestHub(t, Config{})
	alice := attach(h, "alice")
	bob := attach(h, "bob")

	h.BroadcastToUser("alice", Event{Op: OpNotificationNew})
	h.BroadcastToUser("bob", Event{Op: OpNotificationNew})
	h.BroadcastToConversation("conv", []string{"alice", "bob"}, Event{Op: OpMessageNew})
	h.BroadcastToUser("alice", Event{Op: OpNotificationNew})

	if got := seqsOf(drain(t, alice)); !reflect.DeepEqual(got, []int64{1, 2, 3}) {
		t.Fatalf("alice: expected contiguous seq, got %v", got)
	}
	if got := seqsOf(drain(t, bob)); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Fatalf("bob: expected contiguous seq, got %v", got)
	}
}

func TestDroppedEventLeavesSeqGap(t *testing.T) {
	h := newTestHub(t, Config{SendBufferSize: 1, MaxDrops: 100})
	c := attach(h, "alice")

	h.BroadcastToUser("alice", Event{Op: OpMessageNew})
	h.BroadcastToUser("alice", Event{Op: OpMessageNew}) // buffer dolu, düşer
	first := drain(t, c)

	h.BroadcastToUser("alice", Event{Op: OpMessageNew})
	second := drain(t, c)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one event per drain, got %d and %d", len(first), len(second))
	}
	if first[0].Seq != 1 || second[0].Seq != 3 {
		t.Fatalf("expected seq 1 then 3 around the drop, got %d and %d", first[0].Seq, second[0].Seq)
	}
}

func TestWithSeqProducesValidJSON(t *testing.T) {
	for _, raw := range []string{`{}`, `{"op":"ack"}`, `{"op":"message:new","d":{"x":1},"nonce":"n"}`} {
		var out map[string]any
		if err := json.Unmarshal(withSeq([]byte(raw), 7), &out); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if out["seq"] != float64(7) {
			t.Fatalf("%s: expected seq 7, got %v", raw, out["seq"])
		}
	}
}

func TestSessionOpenRunsBeforeDisconnect(t *testing.T) {
	h := newTestHub(t, Config{})

	var (
		mu     sync.Mutex
		events []string
	)
	record := func(e string) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}
	h.OnSessionOpen(func(userID string) { record("open:" + userID) })
	h.OnDisconnect(func(userID string) { record("close:" + userID) })
	h.OnConnect(func(context.Context, *Client) any {
		time.Sleep(50 * time.Millisecond)
		return nil
	})
	go h.Run()

	c := NewClient(h, nil, "alice")
	if !h.Register(c) {
		t.Fatal("register failed")
	}
	h.requestUnregister(c)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	})
	mu.Lock()
	defer mu.Unlock()
	if events[0] != "open:alice" || events[1] != "close:alice" {
		t.Fatalf("unexpected callback order: %v", events)
	}
}

func TestSlowSessionDropsWithoutBlocking(t *testing.T) {
	h := newTestHub(t, Config{SendBufferSize: 2, MaxDrops: 1000})
	slow := attach(h, "slow")
	fast := attach(h, "fast")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			h.BroadcastToConversation("conv", []string{"slow"}, Event{Op: OpMessageNew})
			h.BroadcastToUser("fast", Event{Op: OpMessageNew})
			<-fast.send
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow session")
	}

	if got := len(drain(t, slow)); got != 2 {
		t.Fatalf("slow session should keep only its buffer, got %d", got)
	}
	if got := slow.drops.Load(); got != 8 {
		t.Fatalf("expected 8 dropped events, got %d", got)
	}
}

func TestSlowSessionIsDisconnected(t *testing.T) {
	h := newTestHub(t, Config{SendBufferSize: 1, MaxDrops: 2})
	go h.Run()

	slow := NewClient(h, nil, "slow")
	if !h.Register(slow) {
		t.Fatal("register failed")
	}
	waitFor(t, func() bool { return h.IsUserOnline("slow") })

	// ready event'i buffer'ı doldurabilir; her durumda MaxDrops aşılır.
	for i := 0; i < 5; i++ {
		h.BroadcastToUser("slow", Event{Op: OpMessageNew})
	}
	waitFor(t, func() bool { return !h.IsUserOnline("slow") })
}

func TestRemoveClientCleansIndexes(t *testing.T) {
	h := newTestHub(t, Config{})
	c := attach(h, "alice")
	h.Subscribe(c, "conv")
	h.Watch(c, []string{"bob"})

	if !h.removeClient(c) {
		t.Fatal("first remove should succeed")
	}
	if h.removeClient(c) {
		t.Fatal("second remove should be a no-op")
	}
	if len(h.convSubs) != 0 || len(h.watchers) != 0 || len(h.userClients) != 0 {
		t.Fatalf("indexes not cleaned: subs=%v watchers=%v users=%v", h.convSubs, h.watchers, h.userClients)
	}

	// Kapanmış oturuma yayın panik üretmez.
	h.BroadcastToConversation("conv", []string{"alice"}, Event{Op: OpMessageNew})
	h.Subscribe(c, "conv")
	if h.IsSubscribed(c, "conv") {
		t.Fatal("closed session must not be resubscribed")
	}
}

func TestBroadcastPresenceReachesWatchersAndSelf(t *testing.T) {
	h := newTestHub(t, Config{})
	alice := attach(h, "alice")
	bob := attach(h, "bob")
	carol := attach(h, "carol")
	h.Watch(bob, []string{"alice"})

	h.BroadcastPresence("alice", Event{Op: OpPresenceUpdate})

	if len(drain(t, alice)) != 1 || len(drain(t, bob)) != 1 {
		t.Fatal("alice and her watcher should both receive presence")
	}
	if len(drain(t, carol)) != 0 {
		t.Fatal("non-watcher received presence")
	}
}

func TestTypingTrackerExpiry(t *testing.T) {
	var (
		mu     sync.Mutex
		events []models.TypingUpdate
	)
	tracker := NewTypingTracker(50*time.Millisecond, 10*time.Millisecond, func(_ string, e Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e.Data.(models.TypingUpdate))
	})
	defer tracker.Close()

	tracker.Start("conv", "alice")
	tracker.Start("conv", "alice")
	if !tracker.IsTyping("conv", "alice") {
		t.Fatal("expected alice to be typing")
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if !events[0].IsTyping || events[1].IsTyping {
		t.Fatalf("expected start then expiry, got %+v", events)
	}
}

func TestTypingStopAll(t *testing.T) {
	var (
		mu    sync.Mutex
		stops int
	)
	tracker := NewTypingTracker(time.Minute, time.Minute, func(_ string, e Event) {
		if !e.Data.(models.TypingUpdate).IsTyping {
			mu.Lock()
			stops++
			mu.Unlock()
		}
	})
	defer tracker.Close()

	tracker.Start("c1", "alice")
	tracker.Start("c2", "alice")
	tracker.Start("c1", "bob")
	tracker.StopAll("alice")
	tracker.Stop("c1", "alice")

	mu.Lock()
	defer mu.Unlock()
	if stops != 2 {
		t.Fatalf("expected 2 stop events, got %d", stops)
	}
	if !tracker.IsTyping("c1", "bob") {
		t.Fatal("bob must still be typing")
	}
}

func TestDispatcherPreservesOrderPerKey(t *testing.T) {
	d := NewDispatcher(4, 128, logger.Nop())

	var (
		mu  sync.Mutex
		got = map[string][]int{}
	)
	for i := 0; i < 50; i++ {
		for _, key := range []string{"conv-a", "conv-b", "conv-c"} {
			i, key := i, key
			if err := d.Submit(key, func(context.Context) {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
			}); err != nil {
				t.Fatalf("Submit: %v", err)
			}
		}
	}
	d.Stop()

	for key, seq := range got {
		if len(seq) != 50 {
			t.Fatalf("%s: expected 50 jobs, got %d", key, len(seq))
		}
		for i := range seq {
			if seq[i] != i {
				t.Fatalf("%s: out of order at %d: %v", key, i, seq)
			}
		}
	}
}

func TestDispatcherRejectsWhenFull(t *testing.T) {
	d := NewDispatcher(1, 1, logger.Nop())
	release := make(chan struct{})
	started := make(chan struct{})

	if err := d.Submit("k", func(context.Context) { close(started); <-release }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started
	if err := d.Submit("k", func(context.Context) {}); err != nil {
		t.Fatalf("queue should accept one job: %v", err)
	}
	if err := d.Submit("k", func(context.Context) {}); !errors.Is(err, pkg.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	close(release)
	d.Stop()
	if err := d.Submit("k", func(context.Context) {}); !errors.Is(err, pkg.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after stop, got %v", err)
	}
}

func TestDispatcherRecoversPanics(t *testing.T) {
	d := NewDispatcher(1, 4, logger.Nop())
	ran := make(chan struct{})

	_ = d.Submit("k", func(context.Context) { panic("boom") })
	_ = d.Submit("k", func(context.Context) { close(ran) })

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("worker died after panic")
	}
	d.Stop()
}

// ─── Uçtan uca gateway ───

type staticAuth map[string]string

func (a staticAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	id, ok := a[token]
	if !ok {
		return nil, fmt.Errorf("%w: bad token", pkg.ErrUnauthorized)
	}
	return &models.User{ID: id}, nil
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, op string) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var e struct {
			Op    string          `json:"op"`
			Data  json.RawMessage `json:"d"`
			Seq   int64           `json:"seq"`
			Nonce string          `json:"nonce"`
		}
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("waiting for %s: %v", op, err)
		}
		if e.Op == op {
			return Event{Op: e.Op, Data: e.Data, Seq: e.Seq, Nonce: e.Nonce}
		}
	}
}

func TestGatewayJoinAndCommand(t *testing.T) {
	h := newTestHub(t, Config{})
	h.AuthorizeJoin(func(_ context.Context, userID, conversationID string) error {
		if conversationID != "conv" {
			return fmt.Errorf("%w: not a participant", pkg.ErrForbidden)
		}
		return nil
	})
	h.HandleCommand("echo", ByConversation, func(_ context.Context, userID string, data json.RawMessage) (any, error) {
		return map[string]string{"user_id": userID}, nil
	})
	go h.Run()

	srv := httptest.NewServer(http.HandlerFunc(NewHandler(h, staticAuth{"t-alice": "alice"}, []string{"*"}).HandleConnection))
	defer srv.Close()

	conn := dial(t, srv, "t-alice")
	ready := readUntil(t, conn, OpReady)
	var readyData ReadyData
	if err := json.Unmarshal(ready.Data.(json.RawMessage), &readyData); err != nil || readyData.UserID != "alice" {
		t.Fatalf("unexpected ready payload: %s (%v)", ready.Data, err)
	}

	_ = conn.WriteJSON(map[string]any{"op": OpConversationJoin, "nonce": "n1", "d": map[string]string{"conversation_id": "conv"}})
	if ack := readUntil(t, conn, OpAck); ack.Nonce != "n1" {
		t.Fatalf("expected ack for n1, got %q", ack.Nonce)
	}

	_ = conn.WriteJSON(map[string]any{"op": OpConversationJoin, "nonce": "n2", "d": map[string]string{"conversation_id": "secret"}})
	errEvent := readUntil(t, conn, OpError)
	var errData ErrorData
	_ = json.Unmarshal(errEvent.Data.(json.RawMessage), &errData)
	if errEvent.Nonce != "n2" || errData.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for n2, got nonce=%q data=%+v", errEvent.Nonce, errData)
	}

	_ = conn.WriteJSON(map[string]any{"op": "echo", "nonce": "n3", "d": map[string]string{"conversation_id": "conv"}})
	if ack := readUntil(t, conn, OpAck); ack.Nonce != "n3" {
		t.Fatalf("expected ack for n3, got %q", ack.Nonce)
	}

	_ = conn.WriteJSON(map[string]any{"op": "nope", "nonce": "n4"})
	if e := readUntil(t, conn, OpError); e.Nonce != "n4" {
		t.Fatalf("expected error for unknown op, got %q", e.Nonce)
	}

	// Abone oturum konuşma yayınını alır.
	h.BroadcastToConversation("conv", nil, Event{Op: OpMessageNew, Data: "hello"})
	readUntil(t, conn, OpMessageNew)
}

func TestGatewayRejectsBadToken(t *testing.T) {
	h := newTestHub(t, Config{})
	go h.Run()

	srv := httptest.NewServer(http.HandlerFunc(NewHandler(h, staticAuth{}, []string{"*"}).HandleConnection))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=bad"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
