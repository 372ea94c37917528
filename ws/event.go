// Package ws, realtime gateway: oturum kaydı, abonelikler ve event dağıtımı.
//
// Yapı:
//   - Hub: oturum (session) kaydı. Oturum ↔ konuşma, oturum ↔ kullanıcı ve
//     izlenen kullanıcı ↔ oturum ilişkileri açık map'lerle tutulur.
//   - Client: tek bir WebSocket bağlantısı (ReadPump + WritePump).
//   - Dispatcher: mutasyon komutlarını çalıştıran sharded worker pool.
//   - TypingTracker: TTL ile kendiliğinden sönen typing durumu.
//
// Event akışı:
//  1. Client komut gönderir (örn. message:send) veya REST isteği gelir
//  2. Komut Dispatcher'da ilgili service'e iletilir
//  3. Service, sonucu EventPublisher üzerinden konuşma grubuna yayınlar
//  4. Gönderen de grubun bir üyesidir; ayrıca nonce ile ack alır
package ws

import "encoding/json"

// Event, WebSocket üzerinden iletilen mesaj.
//
// Seq oturum başına 1'den başlayıp her outbound event'te bir artar; client
// boşluk görürse event kaçırmıştır ve state'i yeniden çeker.
// Nonce, client komutuna verilen ack / error yanıtlarını eşlemek için geri yansıtılır.
type Event struct {
	Op    string `json:"op"`
	Data  any    `json:"d,omitempty"`
	Seq   int64  `json:"seq,omitempty"`
	Nonce string `json:"nonce,omitempty"`
}

// incoming, client'tan gelen ham komut. Data komuta göre sonradan çözülür.
type incoming struct {
	Op    string          `json:"op"`
	Data  json.RawMessage `json:"d"`
	Nonce string          `json:"nonce"`
}

// Client → Server operasyonları
const (
	OpPresenceHeartbeat = "presence:heartbeat"
	OpPresenceStatus    = "presence:status"
	OpPresenceSubscribe = "presence:subscribe"
	OpConversationJoin  = "conversation:join"
	OpConversationLeave = "conversation:leave"
	OpTypingStart       = "typing:start"
	OpTypingStop        = "typing:stop"
	OpMessageSend       = "message:send"
	OpReactionToggle    = "reaction:toggle"
	OpPinToggle         = "pin:toggle"
	OpPollVote          = "poll:vote"
	OpEventRSVP         = "event:rsvp"
	OpMessagesRead      = "messages:read"
)

// Server → Client operasyonları
const (
	OpReady           = "ready"
	OpAck             = "ack"
	OpError           = "error"
	OpHeartbeatAck    = "presence:heartbeat:ack"
	OpPresenceUpdate  = "presence:update"
	OpMessageNew      = "message:new"
	OpMessageUpdate   = "message:update"
	OpTypingUpdate    = "typing:update"
	OpNotificationNew = "notification:new"
	OpReactionUpdate  = "reaction:update"
	OpPinUpdate       = "pin:update"
	OpPollVoteUpdate  = "poll:vote:update"
	OpEventRSVPUpdate = "event:rsvp:update"
	OpConversationNew = "conversation:new"
	OpReadUpdate      = "read:update"
)

// ConversationRef, sadece conversation_id taşıyan komutlar için payload
// (conversation:join/leave, typing:start/stop, messages:read).
type ConversationRef struct {
	ConversationID string `json:"conversation_id"`
}

// PresenceStatusData, presence:status payload'ı.
type PresenceStatusData struct {
	Status string `json:"status"`
}

// PresenceSubscribeData, presence:subscribe payload'ı.
type PresenceSubscribeData struct {
	UserIDs []string `json:"user_ids"`
}

// ReadyData, bağlantı kurulduğunda gönderilen ilk event.
type ReadyData struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Presence  any    `json:"presence,omitempty"`
}

// ErrorData, başarısız komut yanıtı. Code HTTP karşılığıdır.
type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ─── Mutasyon komutu payload'ları ───

// MessageSendData, message:send payload'ı. Alanlar REST gövdesiyle aynıdır.
type MessageSendData struct {
	ConversationID  string          `json:"conversation_id"`
	MessageType     string          `json:"message_type"`
	Content         json.RawMessage `json:"content"`
	ParentMessageID *string         `json:"parent_message_id"`
}

// ReactionToggleData, reaction:toggle payload'ı.
type ReactionToggleData struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

// PinToggleData, pin:toggle payload'ı.
type PinToggleData struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// PollVoteData, poll:vote payload'ı.
type PollVoteData struct {
	MessageID   string `json:"message_id"`
	OptionIndex *int   `json:"option_index"`
}

// EventRSVPData, event:rsvp payload'ı.
type EventRSVPData struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

type shardRef struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// ByConversation, komutu conversation_id'ye göre shard'lar; aynı konuşmanın
// komutları geliş sırasıyla çalışır.
func ByConversation(data json.RawMessage) string {
	var ref shardRef
	_ = json.Unmarshal(data, &ref)
	return ref.ConversationID
}

// ByMessage, komutu message_id'ye göre shard'lar.
func ByMessage(data json.RawMessage) string {
	var ref shardRef
	_ = json.Unmarshal(data, &ref)
	return ref.MessageID
}
