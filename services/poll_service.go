package services

import (
	"context"
	"fmt"
	"time"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/repository"
	"github.com/akinalp/huddle/ws"
)

// PollService, anket oyları. Anketin kendisi bir poll mesajıdır.
type PollService interface {
	VoteOnPoll(ctx context.Context, messageID, userID string, optionIndex int) (*models.PollTally, error)
}

type pollService struct {
	store *repository.Store
	hub   ws.EventPublisher
	locks *KeyedMutex
}

func NewPollService(store *repository.Store, hub ws.EventPublisher, locks *KeyedMutex) PollService {
	return &pollService{store: store, hub: hub, locks: locks}
}

// VoteOnPoll, kullanıcının oyunu kaydeder. Önceki oy varsa yerine geçer.
func (s *pollService) VoteOnPoll(ctx context.Context, messageID, userID string, optionIndex int) (*models.PollTally, error) {
	unlock := s.locks.Lock(messageID)
	defer unlock()

	msg, conv, err := loadMessageFor(ctx, s.store, messageID, userID)
	if err != nil {
		return nil, err
	}
	if msg.Type != models.MessagePoll || msg.Content.Poll == nil {
		return nil, fmt.Errorf("%w: message is not a poll", pkg.ErrBadRequest)
	}
	if optionIndex < 0 || optionIndex >= len(msg.Content.Poll.Options) {
		return nil, fmt.Errorf("%w: option_index out of range", pkg.ErrBadRequest)
	}

	if err := s.store.Polls.Vote(ctx, &models.PollVote{
		MessageID:   msg.ID,
		UserID:      userID,
		OptionIndex: optionIndex,
		VotedAt:     time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	votes, err := s.store.Polls.ListByMessageIDs(ctx, []string{msg.ID})
	if err != nil {
		return nil, err
	}
	tally := buildPollTally(msg, votes[msg.ID])

	s.hub.BroadcastToConversation(conv.ID, conv.ParticipantIDs(), ws.Event{
		Op: ws.OpPollVoteUpdate,
		Data: models.PollVoteUpdate{
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			ActorID:        userID,
			OptionIndex:    optionIndex,
			Poll:           tally,
		},
	})
	return &tally, nil
}
