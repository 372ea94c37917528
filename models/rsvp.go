package models

import "time"

// RSVPStatus, etkinlik katılım cevabı.
type RSVPStatus string

const (
	RSVPGoing    RSVPStatus = "going"
	RSVPMaybe    RSVPStatus = "maybe"
	RSVPDeclined RSVPStatus = "declined"
)

// Valid, status değerinin tanımlı olup olmadığını döner.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPGoing, RSVPMaybe, RSVPDeclined:
		return true
	}
	return false
}

// EventRSVP, kullanıcının bir event mesajına verdiği cevap.
type EventRSVP struct {
	MessageID string     `json:"message_id"`
	UserID    string     `json:"user_id"`
	Status    RSVPStatus `json:"status"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RSVPTally, event mesajı için cevap dağılımı.
type RSVPTally struct {
	MessageID string   `json:"message_id"`
	Going     []string `json:"going"`
	Maybe     []string `json:"maybe"`
	Declined  []string `json:"declined"`
}

// Add, kullanıcıyı status'una göre ilgili listeye ekler.
func (t *RSVPTally) Add(userID string, status RSVPStatus) {
	switch status {
	case RSVPGoing:
		t.Going = append(t.Going, userID)
	case RSVPMaybe:
		t.Maybe = append(t.Maybe, userID)
	case RSVPDeclined:
		t.Declined = append(t.Declined, userID)
	}
}

// NewRSVPTally, boş listelerle tally oluşturur (JSON'da null yerine []).
func NewRSVPTally(messageID string) RSVPTally {
	return RSVPTally{MessageID: messageID, Going: []string{}, Maybe: []string{}, Declined: []string{}}
}

// RSVPRequest, POST /api/messages/{id}/rsvp body'si.
type RSVPRequest struct {
	Status RSVPStatus `json:"status"`
}

// RSVPUpdate, cevap sonrası yayınlanan olay.
type RSVPUpdate struct {
	ConversationID string     `json:"conversation_id"`
	MessageID      string     `json:"message_id"`
	ActorID        string     `json:"actor_id"`
	Status         RSVPStatus `json:"status"`
	RSVP           RSVPTally  `json:"rsvp"`
}
