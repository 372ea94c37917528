package ws

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/pkg/metrics"
)

// EventPublisher, service katmanının event yayınlamak için kullandığı interface.
// Service'ler Hub'a değil bu interface'e bağımlıdır; testlerde kayıt tutan
// sahte bir publisher kullanılır.
type EventPublisher interface {
	// BroadcastToConversation, konuşmaya abone oturumlar ile userIDs'in tüm
	// oturumlarının birleşimine yayın yapar. Her oturum event'i tam bir kez alır.
	BroadcastToConversation(conversationID string, userIDs []string, event Event)
	BroadcastToUser(userID string, event Event)
	// BroadcastPresence, userID'yi izleyen oturumlara ve kullanıcının kendi oturumlarına yayın yapar.
	BroadcastPresence(userID string, event Event)
	IsUserOnline(userID string) bool
}

// Config, gateway ayarları.
type Config struct {
	Workers        int
	QueueSize      int
	SendBufferSize int
	// MaxDrops, art arda düşürülen event sayısı bu değeri aşan oturum kapatılır.
	MaxDrops    int
	TypingTTL   time.Duration
	TypingSweep time.Duration
}

// CommandFunc, worker pool'da çalışan mutasyon komutu. Dönen değer ack'in "d" alanıdır.
type CommandFunc func(ctx context.Context, userID string, data json.RawMessage) (any, error)

// KeyFunc, komutun shard anahtarını (conversation / message ID) payload'dan çıkarır.
type KeyFunc func(data json.RawMessage) string

type command struct {
	key KeyFunc
	run CommandFunc
}

type clientSet map[*Client]struct{}

// Hub, oturum kaydı.
//
// İlişkiler:
//
//	clients       session ID → oturum
//	userClients   user ID → oturumlar
//	convSubs      conversation ID → abone oturumlar (ters index: Client.convs)
//	watchers      izlenen user ID → izleyen oturumlar (ters index: Client.watching)
//
// Tüm map'ler mu ile korunur. Yayınlar RLock altında non-blocking yapılır.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*Client
	userClients map[string]clientSet
	convSubs    map[string]clientSet
	watchers    map[string]clientSet

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once

	cfg        Config
	log        *logger.Logger
	dispatcher *Dispatcher
	typing     *TypingTracker
	commands   map[string]command

	onSessionOpen    func(userID string)
	onConnect        func(ctx context.Context, c *Client) any
	onDisconnect     func(userID string)
	onHeartbeat      func(userID string)
	onPresenceStatus func(userID, status string) error
	authorizeJoin    func(ctx context.Context, userID, conversationID string) error
}

// NewHub, hub'ı, worker pool'u ve typing tracker'ı oluşturur.
// Run ayrı goroutine'de başlatılmalıdır.
func NewHub(cfg Config, log *logger.Logger) *Hub {
	if cfg.SendBufferSize < 1 {
		cfg.SendBufferSize = 256
	}
	if cfg.MaxDrops < 1 {
		cfg.MaxDrops = 64
	}
	if cfg.TypingTTL <= 0 {
		cfg.TypingTTL = 3 * time.Second
	}
	if cfg.TypingSweep <= 0 {
		cfg.TypingSweep = 500 * time.Millisecond
	}

	h := &Hub{
		clients:     make(map[string]*Client),
		userClients: make(map[string]clientSet),
		convSubs:    make(map[string]clientSet),
		watchers:    make(map[string]clientSet),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		cfg:         cfg,
		log:         log,
		dispatcher:  NewDispatcher(cfg.Workers, cfg.QueueSize, log.Named("dispatcher")),
		commands:    make(map[string]command),
	}
	h.typing = NewTypingTracker(cfg.TypingTTL, cfg.TypingSweep, func(conversationID string, event Event) {
		h.BroadcastToConversation(conversationID, nil, event)
	})
	return h
}

// ─── Callback kayıtları (init_callbacks.go'da bağlanır) ───

// OnSessionOpen, oturum kaydedilir kaydedilmez kayıt döngüsünde çağrılır.
// Aynı oturumun OnDisconnect çağrısından her zaman önce çalışır; hızlı ve
// bloklamayan olmalıdır.
func (h *Hub) OnSessionOpen(fn func(userID string)) { h.onSessionOpen = fn }

// OnConnect, oturum kaydedildikten sonra çağrılır. Dönen değer ready event'inde
// presence olarak gönderilir.
func (h *Hub) OnConnect(fn func(ctx context.Context, c *Client) any) { h.onConnect = fn }

// OnDisconnect, her oturum kapandığında kayıt döngüsünde çağrılır.
func (h *Hub) OnDisconnect(fn func(userID string)) { h.onDisconnect = fn }

// OnHeartbeat, presence:heartbeat geldiğinde çağrılır.
func (h *Hub) OnHeartbeat(fn func(userID string)) { h.onHeartbeat = fn }

// OnPresenceStatus, presence:status geldiğinde çağrılır.
func (h *Hub) OnPresenceStatus(fn func(userID, status string) error) { h.onPresenceStatus = fn }

// AuthorizeJoin, conversation:join için üyelik kontrolü.
func (h *Hub) AuthorizeJoin(fn func(ctx context.Context, userID, conversationID string) error) {
	h.authorizeJoin = fn
}

// HandleCommand, worker pool'da çalışacak bir komut kaydeder.
func (h *Hub) HandleCommand(op string, key KeyFunc, fn CommandFunc) {
	h.commands[op] = command{key: key, run: fn}
}

// ─── Yaşam döngüsü ───

// Run, kayıt / çıkış döngüsü. Shutdown ile sonlanır.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
			if h.onSessionOpen != nil {
				h.onSessionOpen(c.userID)
			}
			go h.connected(c)

		case c := <-h.unregister:
			if h.removeClient(c) {
				if h.onDisconnect != nil {
					h.onDisconnect(c.userID)
				}
			}

		case <-h.done:
			return
		}
	}
}

// Register, oturumu kayıt döngüsüne iletir. Hub kapandıysa false döner.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) requestUnregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) connected(c *Client) {
	var presence any
	if h.onConnect != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		presence = h.onConnect(ctx, c)
		cancel()
	}
	h.sendTo(c, Event{Op: OpReady, Data: ReadyData{
		SessionID: c.id,
		UserID:    c.userID,
		Presence:  presence,
	}})
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
	addTo(h.userClients, c.userID, c)
	addTo(h.watchers, c.userID, c)
	c.watching[c.userID] = struct{}{}
	metrics.SessionsActive.Inc()

	h.log.Debug("session connected",
		zap.String("session_id", c.id),
		zap.String("user_id", c.userID),
		zap.Int("user_sessions", len(h.userClients[c.userID])))
}

// removeClient, oturumu tüm index'lerden çıkarır ve send channel'ını kapatır.
// Oturum zaten çıkarılmışsa false döner.
func (h *Hub) removeClient(c *Client) bool {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return false
	}

	delete(h.clients, c.id)
	removeFrom(h.userClients, c.userID, c)
	for convID := range c.convs {
		removeFrom(h.convSubs, convID, c)
	}
	for userID := range c.watching {
		removeFrom(h.watchers, userID, c)
	}
	c.convs = nil
	c.watching = nil
	c.closed = true
	close(c.send)
	lastSession := len(h.userClients[c.userID]) == 0
	h.mu.Unlock()

	metrics.SessionsActive.Dec()
	if lastSession {
		h.typing.StopAll(c.userID)
	}

	h.log.Debug("session disconnected",
		zap.String("session_id", c.id),
		zap.String("user_id", c.userID),
		zap.Bool("last_session", lastSession))
	return true
}

// Shutdown, tüm oturumları kapatır, worker pool'u ve typing tracker'ı durdurur.
func (h *Hub) Shutdown() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		count := len(h.clients)
		for _, c := range h.clients {
			c.closed = true
			close(c.send)
		}
		h.clients = make(map[string]*Client)
		h.userClients = make(map[string]clientSet)
		h.convSubs = make(map[string]clientSet)
		h.watchers = make(map[string]clientSet)
		h.mu.Unlock()

		metrics.SessionsActive.Sub(float64(count))
		h.dispatcher.Stop()
		h.typing.Close()
		h.log.Info("hub shut down", zap.Int("closed_sessions", count))
	})
}

// ─── Abonelikler ───

// Subscribe, oturumu konuşmanın yayın grubuna ekler.
func (h *Hub) Subscribe(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return
	}
	addTo(h.convSubs, conversationID, c)
	c.convs[conversationID] = struct{}{}
}

// Unsubscribe, oturumu konuşmanın yayın grubundan çıkarır.
func (h *Hub) Unsubscribe(c *Client, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return
	}
	removeFrom(h.convSubs, conversationID, c)
	delete(c.convs, conversationID)
}

// IsSubscribed, oturumun konuşmaya abone olup olmadığını döner.
func (h *Hub) IsSubscribed(c *Client, conversationID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := c.convs[conversationID]
	return ok
}

// Watch, oturumu verilen kullanıcıların presence yayınlarına ekler.
func (h *Hub) Watch(c *Client, userIDs []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return
	}
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		addTo(h.watchers, id, c)
		c.watching[id] = struct{}{}
	}
}

// ─── Yayın ───

// encode, event'i seq olmadan kodlar. seq her oturum için trySend'de eklenir.
func (h *Hub) encode(event Event) ([]byte, bool) {
	event.Seq = 0
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal event", zap.String("op", event.Op), zap.Error(err))
		return nil, false
	}
	return data, true
}

// BroadcastToConversation, abone oturumlar ∪ userIDs'in oturumları.
func (h *Hub) BroadcastToConversation(conversationID string, userIDs []string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(clientSet, len(h.convSubs[conversationID]))
	for c := range h.convSubs[conversationID] {
		targets[c] = struct{}{}
	}
	for _, id := range userIDs {
		for c := range h.userClients[id] {
			targets[c] = struct{}{}
		}
	}
	for c := range targets {
		h.trySend(c, data)
	}
}

// BroadcastToUser, kullanıcının tüm oturumlarına yayın yapar.
func (h *Hub) BroadcastToUser(userID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.userClients[userID] {
		h.trySend(c, data)
	}
}

// BroadcastPresence, userID'yi izleyen oturumlara yayın yapar.
// Kullanıcının kendi oturumları bağlanırken kendini izlemeye alınır.
func (h *Hub) BroadcastPresence(userID string, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.watchers[userID] {
		h.trySend(c, data)
	}
}

// IsUserOnline, kullanıcının en az bir açık oturumu varsa true döner.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userClients[userID]) > 0
}

// SessionCount, açık oturum sayısı.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendTo, tek bir oturuma event gönderir (ack, error, ready).
func (h *Hub) sendTo(c *Client, event Event) {
	data, ok := h.encode(event)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if c.closed {
		return
	}
	h.trySend(c, data)
}

// trySend, non-blocking gönderim. RLock altında çağrılmalıdır.
//
// Her oturumun kendi seq sayacı vardır ve düşürülen event de bir seq tüketir;
// client sayaçta boşluk görürse event kaçırmıştır ve state'i yeniden çeker.
// Art arda MaxDrops'u aşan oturum kayıt döngüsü üzerinden kapatılır;
// diğer oturumlara teslimat beklemez.
func (h *Hub) trySend(c *Client, data []byte) {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()

	c.seq++
	select {
	case c.send <- withSeq(data, c.seq):
		c.drops.Store(0)
	default:
		metrics.BroadcastDropped.Inc()
		if int(c.drops.Add(1)) == h.cfg.MaxDrops+1 {
			h.log.Warn("session too slow, disconnecting",
				zap.String("session_id", c.id),
				zap.String("user_id", c.userID))
			go h.requestUnregister(c)
		}
	}
}

// withSeq, kodlanmış event nesnesinin başına "seq" alanını ekler.
func withSeq(data []byte, seq int64) []byte {
	frame := make([]byte, 0, len(data)+24)
	frame = append(frame, `{"seq":`...)
	frame = strconv.AppendInt(frame, seq, 10)
	if len(data) > 2 {
		frame = append(frame, ',')
	}
	return append(frame, data[1:]...)
}

func addTo(m map[string]clientSet, key string, c *Client) {
	set, ok := m[key]
	if !ok {
		set = make(clientSet)
		m[key] = set
	}
	set[c] = struct{}{}
}

func removeFrom(m map[string]clientSet, key string, c *Client) {
	if set, ok := m[key]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(m, key)
		}
	}
}
