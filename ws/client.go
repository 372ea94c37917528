package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/pkg/metrics"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: tek bir frame'i yazmak için en fazla bekleme.
	writeWait = 10 * time.Second

	// pongWait: bu süre içinde hiçbir frame (komut, heartbeat veya pong) gelmezse bağlantı kopmuş sayılır.
	pongWait = 90 * time.Second

	// pingPeriod: WS ping aralığı, pongWait'ten kısa olmalı.
	pingPeriod = 30 * time.Second

	// maxMessageSize: paylaşılan AI içerikleri için geniş tutulur.
	maxMessageSize = 256 * 1024

	// maxWatchIDs: tek presence:subscribe'da kabul edilen kullanıcı sayısı.
	maxWatchIDs = 500
)

// Client, tek bir WebSocket oturumu.
//
// Her bağlantı için iki goroutine çalışır:
//   - ReadPump: komutları okur; hafif olanları (heartbeat, typing, presence)
//     yerinde işler, mutasyonları Dispatcher'a verir
//   - WritePump: send channel'ındaki event'leri yazar ve ping atar
//
// convs / watching / closed alanları Hub.mu ile korunur.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
	drops  atomic.Int32
	mu     sync.Mutex

	// seq, bu oturuma gönderilen son event'in sırası. seqMu ile korunur.
	seqMu sync.Mutex
	seq   int64

	convs    map[string]struct{}
	watching map[string]struct{}
	closed   bool
}

// NewClient, yeni oturum oluşturur. Oturum ID'si UUID'dir.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		id:       uuid.NewString(),
		hub:      hub,
		conn:     conn,
		userID:   userID,
		send:     make(chan []byte, hub.cfg.SendBufferSize),
		convs:    make(map[string]struct{}),
		watching: make(map[string]struct{}),
	}
}

// ID, oturum ID'si.
func (c *Client) ID() string { return c.id }

// UserID, oturumun kullanıcısı.
func (c *Client) UserID() string { return c.userID }

// ReadPump, bağlantı kapanana kadar komut okur.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.requestUnregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Info("unexpected close",
					zap.String("session_id", c.id),
					zap.String("user_id", c.userID),
					zap.Error(err))
			}
			return
		}

		// Her frame bağlantının canlı olduğunu gösterir.
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}

		var in incoming
		if err := json.Unmarshal(raw, &in); err != nil {
			c.replyError("", fmt.Errorf("%w: malformed frame", pkg.ErrBadRequest))
			continue
		}
		c.handle(in)
	}
}

// handle, gelen komutu türüne göre işler.
func (c *Client) handle(in incoming) {
	switch in.Op {
	case OpPresenceHeartbeat:
		if c.hub.onHeartbeat != nil {
			c.hub.onHeartbeat(c.userID)
		}
		c.hub.sendTo(c, Event{Op: OpHeartbeatAck, Nonce: in.Nonce})

	case OpPresenceStatus:
		var data PresenceStatusData
		if err := Decode(in.Data, &data); err != nil {
			c.replyError(in.Nonce, err)
			return
		}
		if c.hub.onPresenceStatus != nil {
			if err := c.hub.onPresenceStatus(c.userID, data.Status); err != nil {
				c.replyError(in.Nonce, err)
				return
			}
		}
		c.ack(in.Nonce, nil)

	case OpPresenceSubscribe:
		var data PresenceSubscribeData
		if err := Decode(in.Data, &data); err != nil {
			c.replyError(in.Nonce, err)
			return
		}
		if len(data.UserIDs) > maxWatchIDs {
			data.UserIDs = data.UserIDs[:maxWatchIDs]
		}
		c.hub.Watch(c, data.UserIDs)
		c.ack(in.Nonce, nil)

	case OpTypingStart, OpTypingStop:
		// Best effort: hatalı veya abonesiz typing sessizce düşer.
		var data ConversationRef
		if err := Decode(in.Data, &data); err != nil || data.ConversationID == "" {
			return
		}
		if !c.hub.IsSubscribed(c, data.ConversationID) {
			return
		}
		if in.Op == OpTypingStart {
			c.hub.typing.Start(data.ConversationID, c.userID)
		} else {
			c.hub.typing.Stop(data.ConversationID, c.userID)
		}

	case OpConversationJoin, OpConversationLeave:
		c.handleMembership(in)

	default:
		cmd, ok := c.hub.commands[in.Op]
		if !ok {
			c.replyError(in.Nonce, fmt.Errorf("%w: unknown op %q", pkg.ErrBadRequest, in.Op))
			return
		}
		c.submit(cmd.key(in.Data), in.Nonce, func(ctx context.Context) (any, error) {
			return cmd.run(ctx, c.userID, in.Data)
		})
	}
}

// handleMembership, conversation:join / leave. Aynı konuşmanın diğer komutlarıyla
// aynı shard'da çalışır.
func (c *Client) handleMembership(in incoming) {
	var data ConversationRef
	if err := Decode(in.Data, &data); err != nil {
		c.replyError(in.Nonce, err)
		return
	}
	if data.ConversationID == "" {
		c.replyError(in.Nonce, fmt.Errorf("%w: conversation_id is required", pkg.ErrBadRequest))
		return
	}

	c.submit(data.ConversationID, in.Nonce, func(ctx context.Context) (any, error) {
		if in.Op == OpConversationLeave {
			c.hub.Unsubscribe(c, data.ConversationID)
			c.hub.typing.Stop(data.ConversationID, c.userID)
			return data, nil
		}
		if c.hub.authorizeJoin != nil {
			if err := c.hub.authorizeJoin(ctx, c.userID, data.ConversationID); err != nil {
				return nil, err
			}
		}
		c.hub.Subscribe(c, data.ConversationID)
		return data, nil
	})
}

// submit, işi worker pool'a verir ve sonucu nonce ile yanıtlar.
// Kuyruk doluysa hemen 503 döner; client yeniden gönderebilir.
func (c *Client) submit(key, nonce string, fn func(ctx context.Context) (any, error)) {
	err := c.hub.dispatcher.Submit(key, func(ctx context.Context) {
		result, err := fn(ctx)
		if err != nil {
			c.replyError(nonce, err)
			return
		}
		c.ack(nonce, result)
	})
	if err != nil {
		metrics.CommandsRejected.Inc()
		c.replyError(nonce, err)
	}
}

func (c *Client) ack(nonce string, data any) {
	c.hub.sendTo(c, Event{Op: OpAck, Nonce: nonce, Data: data})
}

func (c *Client) replyError(nonce string, err error) {
	code := pkg.StatusCode(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		c.hub.log.Error("command failed",
			zap.String("session_id", c.id),
			zap.String("user_id", c.userID),
			zap.Error(err))
		msg = pkg.ErrInternal.Error()
	}
	c.hub.sendTo(c, Event{Op: OpError, Nonce: nonce, Data: ErrorData{Code: code, Message: msg}})
}

// WritePump, send channel'ındaki event'leri bağlantıya yazar.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub oturumu kapattı.
				_ = c.writeMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.writeMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeMessage, gorilla/websocket aynı anda tek yazıcıya izin verir.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// Decode, komut payload'ını çözer. Hatalar ValidationError'dır.
func Decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", pkg.ErrBadRequest)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w: malformed payload", pkg.ErrBadRequest)
		}
		return fmt.Errorf("%w: invalid payload: %v", pkg.ErrBadRequest, err)
	}
	return nil
}
