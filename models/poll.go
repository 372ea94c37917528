package models

import "time"

// PollVote, bir kullanıcının ankette seçtiği tek seçenek.
// Kullanıcı başına tek oy; yeni oy eskisinin yerine geçer.
type PollVote struct {
	MessageID   string    `json:"message_id"`
	UserID      string    `json:"user_id"`
	OptionIndex int       `json:"option_index"`
	VotedAt     time.Time `json:"voted_at"`
}

// PollTally, anket sonuçları. Counts her seçenek index'i için oy sayısı.
type PollTally struct {
	MessageID  string           `json:"message_id"`
	Counts     map[int]int      `json:"counts"`
	Voters     map[int][]string `json:"voters"`
	TotalVotes int              `json:"total_votes"`
}

// NewPollTally, her seçenek için sıfır sayaçlı tally oluşturur.
func NewPollTally(messageID string, optionCount int) PollTally {
	t := PollTally{
		MessageID: messageID,
		Counts:    make(map[int]int, optionCount),
		Voters:    make(map[int][]string, optionCount),
	}
	for i := 0; i < optionCount; i++ {
		t.Counts[i] = 0
		t.Voters[i] = []string{}
	}
	return t
}

// VotePollRequest, POST /api/messages/{id}/votes body'si.
type VotePollRequest struct {
	OptionIndex *int `json:"option_index"`
}

// PollVoteUpdate, oy sonrası yayınlanan olay.
type PollVoteUpdate struct {
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	ActorID        string    `json:"actor_id"`
	OptionIndex    int       `json:"option_index"`
	Poll           PollTally `json:"poll"`
}
