package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MessageType, mesajın içerik varyantını belirler.
type MessageType string

const (
	MessageText        MessageType = "text"
	MessageSharedChat  MessageType = "shared_chat"
	MessageSharedEmail MessageType = "shared_email"
	MessagePoll        MessageType = "poll"
	MessageEvent       MessageType = "event"
	MessageSystem      MessageType = "system"
)

// İçerik limitleri.
const (
	MaxTextLength      = 4000
	MaxAttachments     = 10
	MaxPollOptions     = 10
	MinPollOptions     = 2
	MaxPollOptionLen   = 100
	MaxPollQuestionLen = 300
	MaxEventTitleLen   = 200
	MaxPreviewLength   = 140
)

// Message, bir konuşmanın ledger'ındaki tek kayıt.
//
// (CreatedAt, ID) çifti konuşma içinde kesin sıralamayı tanımlar ve
// oluşturulduktan sonra değişmez. Sadece text mesajlar düzenlenebilir.
//
// Reactions / IsPinned / Poll / RSVP alanları side table'lardan doldurulur,
// ledger'ın parçası değildir.
type Message struct {
	ID              string         `json:"id"`
	ConversationID  string         `json:"conversation_id"`
	SenderID        string         `json:"sender_id"`
	Type            MessageType    `json:"message_type"`
	Content         MessageContent `json:"content"`
	ParentMessageID *string        `json:"parent_message_id"`
	IsEdited        bool           `json:"is_edited"`
	EditedAt        *time.Time     `json:"edited_at"`
	CreatedAt       time.Time      `json:"created_at"`

	Reactions []ReactionGroup `json:"reactions"`
	IsPinned  bool            `json:"is_pinned"`
	Poll      *PollTally      `json:"poll,omitempty"`
	RSVP      *RSVPTally      `json:"rsvp,omitempty"`
}

// MessagePage, (created_at, id) cursor'lı sayfa. Mesajlar yeniden eskiye sıralıdır.
type MessagePage struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}

// Attachment, text mesajına eklenmiş dosya referansı.
// Dosya yüklemesi bu servisin dışındadır; sadece URL saklanır.
type Attachment struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// TextContent, düz metin mesajı.
type TextContent struct {
	Body           string       `json:"text,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	MentionedUsers []string     `json:"mentioned_users,omitempty"`
}

// SharedContent, paylaşılan AI sohbeti veya email taslağı.
// Alanlar opaktır; servis içeriği yorumlamaz, sadece Note'taki mention'ları çözer.
type SharedContent struct {
	OriginalQuery  string   `json:"original_query,omitempty"`
	AIResponse     string   `json:"ai_response,omitempty"`
	EmailSubject   string   `json:"email_subject,omitempty"`
	EmailBody      string   `json:"email_body,omitempty"`
	Note           string   `json:"note,omitempty"`
	MentionedUsers []string `json:"mentioned_users,omitempty"`
}

// PollContent, anket sorusu ve sıralı seçenekler.
type PollContent struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// EventContent, takvim etkinliği.
type EventContent struct {
	Title       string    `json:"title"`
	StartsAt    time.Time `json:"datetime"`
	Location    *string   `json:"location,omitempty"`
	Description *string   `json:"description,omitempty"`
}

// SystemContent, sunucunun ürettiği bilgi mesajı (ör: "group created").
type SystemContent struct {
	Body string `json:"text"`
	Code string `json:"code,omitempty"`
}

// MessageContent, message_type'a göre etiketlenmiş içerik (tagged union).
//
// Type'a karşılık gelen pointer dolu, diğerleri nil'dir.
// Tüketiciler (validation, fan-out, serialization) Type üzerinde switch yapar;
// default dalı bilinmeyen tipi reddeder.
type MessageContent struct {
	Type   MessageType
	Text   *TextContent
	Shared *SharedContent
	Poll   *PollContent
	Event  *EventContent
	System *SystemContent
}

// DecodeContent, ham JSON'u verilen tipe göre çözer.
// JSON içinde "type" alanı varsa t ile aynı olmalıdır.
func DecodeContent(t MessageType, raw json.RawMessage) (MessageContent, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return MessageContent{}, fmt.Errorf("content is required")
	}

	var probe struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return MessageContent{}, fmt.Errorf("content must be an object: %v", err)
	}
	if probe.Type != "" && probe.Type != t {
		return MessageContent{}, fmt.Errorf("content type %q does not match message_type %q", probe.Type, t)
	}

	c := MessageContent{Type: t}
	var err error
	switch t {
	case MessageText:
		c.Text = &TextContent{}
		err = json.Unmarshal(raw, c.Text)
	case MessageSharedChat, MessageSharedEmail:
		c.Shared = &SharedContent{}
		err = json.Unmarshal(raw, c.Shared)
	case MessagePoll:
		c.Poll = &PollContent{}
		err = json.Unmarshal(raw, c.Poll)
	case MessageEvent:
		c.Event = &EventContent{}
		err = json.Unmarshal(raw, c.Event)
	case MessageSystem:
		c.System = &SystemContent{}
		err = json.Unmarshal(raw, c.System)
	default:
		return MessageContent{}, fmt.Errorf("unknown message_type %q", t)
	}
	if err != nil {
		return MessageContent{}, fmt.Errorf("invalid %s content: %v", t, err)
	}
	return c, nil
}

// MarshalJSON, içeriği {"type": "...", ...varyant alanları} olarak yazar.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	type tag struct {
		Type MessageType `json:"type"`
	}
	switch c.Type {
	case MessageText:
		return json.Marshal(struct {
			tag
			*TextContent
		}{tag{c.Type}, c.Text})
	case MessageSharedChat, MessageSharedEmail:
		return json.Marshal(struct {
			tag
			*SharedContent
		}{tag{c.Type}, c.Shared})
	case MessagePoll:
		return json.Marshal(struct {
			tag
			*PollContent
		}{tag{c.Type}, c.Poll})
	case MessageEvent:
		return json.Marshal(struct {
			tag
			*EventContent
		}{tag{c.Type}, c.Event})
	case MessageSystem:
		return json.Marshal(struct {
			tag
			*SystemContent
		}{tag{c.Type}, c.System})
	default:
		return nil, fmt.Errorf("cannot marshal content of type %q", c.Type)
	}
}

// UnmarshalJSON, "type" alanını okuyup ilgili varyantı çözer.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	decoded, err := DecodeContent(probe.Type, data)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

// Validate, içeriğin Type ile eşleştiğini ve varyant kurallarını kontrol eder.
func (c *MessageContent) Validate() error {
	set := 0
	for _, present := range []bool{c.Text != nil, c.Shared != nil, c.Poll != nil, c.Event != nil, c.System != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("content must carry exactly one variant")
	}

	switch c.Type {
	case MessageText:
		if c.Text == nil {
			return fmt.Errorf("text message requires text content")
		}
		return c.Text.validate()
	case MessageSharedChat, MessageSharedEmail:
		if c.Shared == nil {
			return fmt.Errorf("%s message requires shared content", c.Type)
		}
		return c.Shared.validate()
	case MessagePoll:
		if c.Poll == nil {
			return fmt.Errorf("poll message requires poll content")
		}
		return c.Poll.validate()
	case MessageEvent:
		if c.Event == nil {
			return fmt.Errorf("event message requires event content")
		}
		return c.Event.validate()
	case MessageSystem:
		if c.System == nil || strings.TrimSpace(c.System.Body) == "" {
			return fmt.Errorf("system message requires text")
		}
		return nil
	default:
		return fmt.Errorf("unknown message_type %q", c.Type)
	}
}

func (t *TextContent) validate() error {
	t.Body = strings.TrimSpace(t.Body)
	if t.Body == "" && len(t.Attachments) == 0 {
		return fmt.Errorf("text message requires text or attachments")
	}
	if utf8.RuneCountInString(t.Body) > MaxTextLength {
		return fmt.Errorf("text must be at most %d characters", MaxTextLength)
	}
	if len(t.Attachments) > MaxAttachments {
		return fmt.Errorf("at most %d attachments allowed", MaxAttachments)
	}
	for _, a := range t.Attachments {
		if strings.TrimSpace(a.URL) == "" {
			return fmt.Errorf("attachment url is required")
		}
	}
	return nil
}

func (s *SharedContent) validate() error {
	if s.OriginalQuery == "" && s.AIResponse == "" && s.EmailSubject == "" && s.EmailBody == "" && strings.TrimSpace(s.Note) == "" {
		return fmt.Errorf("shared content is empty")
	}
	if utf8.RuneCountInString(s.Note) > MaxTextLength {
		return fmt.Errorf("note must be at most %d characters", MaxTextLength)
	}
	return nil
}

func (p *PollContent) validate() error {
	p.Question = strings.TrimSpace(p.Question)
	qLen := utf8.RuneCountInString(p.Question)
	if qLen < 1 || qLen > MaxPollQuestionLen {
		return fmt.Errorf("poll question must be between 1 and %d characters", MaxPollQuestionLen)
	}
	if len(p.Options) < MinPollOptions || len(p.Options) > MaxPollOptions {
		return fmt.Errorf("poll must have between %d and %d options", MinPollOptions, MaxPollOptions)
	}
	for i, opt := range p.Options {
		p.Options[i] = strings.TrimSpace(opt)
		n := utf8.RuneCountInString(p.Options[i])
		if n < 1 || n > MaxPollOptionLen {
			return fmt.Errorf("poll option %d must be between 1 and %d characters", i, MaxPollOptionLen)
		}
	}
	return nil
}

func (e *EventContent) validate() error {
	e.Title = strings.TrimSpace(e.Title)
	n := utf8.RuneCountInString(e.Title)
	if n < 1 || n > MaxEventTitleLen {
		return fmt.Errorf("event title must be between 1 and %d characters", MaxEventTitleLen)
	}
	if e.StartsAt.IsZero() {
		return fmt.Errorf("event datetime is required")
	}
	return nil
}

// MentionSource, mention taraması yapılacak metni döner.
// Sadece text gövdesi ve paylaşım notu taranır.
func (c *MessageContent) MentionSource() string {
	switch c.Type {
	case MessageText:
		if c.Text != nil {
			return c.Text.Body
		}
	case MessageSharedChat, MessageSharedEmail:
		if c.Shared != nil {
			return c.Shared.Note
		}
	case MessagePoll, MessageEvent, MessageSystem:
	}
	return ""
}

// Mentions, çözülmüş mention listesini döner.
func (c *MessageContent) Mentions() []string {
	switch c.Type {
	case MessageText:
		if c.Text != nil {
			return c.Text.MentionedUsers
		}
	case MessageSharedChat, MessageSharedEmail:
		if c.Shared != nil {
			return c.Shared.MentionedUsers
		}
	case MessagePoll, MessageEvent, MessageSystem:
	}
	return nil
}

// SetMentions, gönderim anında çözülen mention'ları içeriğe yazar.
// Client'ın gönderdiği mentioned_users her zaman üzerine yazılır.
func (c *MessageContent) SetMentions(ids []string) {
	switch c.Type {
	case MessageText:
		if c.Text != nil {
			c.Text.MentionedUsers = ids
		}
	case MessageSharedChat, MessageSharedEmail:
		if c.Shared != nil {
			c.Shared.MentionedUsers = ids
		}
	case MessagePoll, MessageEvent, MessageSystem:
	}
}

// Preview, bildirim gövdesi ve konuşma listesi için kısa özet.
func (c *MessageContent) Preview() string {
	var s string
	switch c.Type {
	case MessageText:
		if c.Text != nil {
			s = c.Text.Body
			if s == "" && len(c.Text.Attachments) > 0 {
				s = "[attachment] " + c.Text.Attachments[0].Filename
			}
		}
	case MessageSharedChat:
		if c.Shared != nil {
			s = firstNonEmpty(c.Shared.Note, c.Shared.OriginalQuery, "[shared chat]")
		}
	case MessageSharedEmail:
		if c.Shared != nil {
			s = firstNonEmpty(c.Shared.Note, c.Shared.EmailSubject, "[shared email]")
		}
	case MessagePoll:
		if c.Poll != nil {
			s = "[poll] " + c.Poll.Question
		}
	case MessageEvent:
		if c.Event != nil {
			s = "[event] " + c.Event.Title
		}
	case MessageSystem:
		if c.System != nil {
			s = c.System.Body
		}
	}
	return truncateRunes(s, MaxPreviewLength)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

// SendMessageRequest, POST /api/conversations/{id}/messages body'si.
type SendMessageRequest struct {
	MessageType     MessageType     `json:"message_type"`
	Content         json.RawMessage `json:"content"`
	ParentMessageID *string         `json:"parent_message_id"`
}

// Decode, isteği tipli içeriğe çevirir.
func (r *SendMessageRequest) Decode() (MessageContent, error) {
	if r.MessageType == "" {
		return MessageContent{}, fmt.Errorf("message_type is required")
	}
	if r.ParentMessageID != nil && strings.TrimSpace(*r.ParentMessageID) == "" {
		r.ParentMessageID = nil
	}
	return DecodeContent(r.MessageType, r.Content)
}

// EditMessageRequest, PATCH /api/messages/{id} body'si. Sadece text mesajlar.
type EditMessageRequest struct {
	Text string `json:"text"`
}

// Validate, düzenleme metnini kontrol eder.
func (r *EditMessageRequest) Validate() error {
	r.Text = strings.TrimSpace(r.Text)
	n := utf8.RuneCountInString(r.Text)
	if n < 1 || n > MaxTextLength {
		return fmt.Errorf("text must be between 1 and %d characters", MaxTextLength)
	}
	return nil
}
