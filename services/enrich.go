package services

import (
	"context"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/repository"
)

// enrichMessages, side table durumunu (reaction, pin, anket, RSVP) mesajlara
// batch olarak ekler. Her tablo için tek sorgu yapılır.
func enrichMessages(ctx context.Context, store *repository.Store, messages []models.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]string, len(messages))
	var pollIDs, eventIDs []string
	for i := range messages {
		ids[i] = messages[i].ID
		switch messages[i].Type {
		case models.MessagePoll:
			pollIDs = append(pollIDs, messages[i].ID)
		case models.MessageEvent:
			eventIDs = append(eventIDs, messages[i].ID)
		case models.MessageText, models.MessageSharedChat, models.MessageSharedEmail, models.MessageSystem:
		}
	}

	reactions, err := store.Reactions.GetByMessageIDs(ctx, ids)
	if err != nil {
		return err
	}
	pinned, err := store.Pins.PinnedAmong(ctx, ids)
	if err != nil {
		return err
	}
	votes, err := store.Polls.ListByMessageIDs(ctx, pollIDs)
	if err != nil {
		return err
	}
	rsvps, err := store.RSVPs.ListByMessageIDs(ctx, eventIDs)
	if err != nil {
		return err
	}

	for i := range messages {
		m := &messages[i]
		if groups, ok := reactions[m.ID]; ok {
			m.Reactions = groups
		} else {
			m.Reactions = []models.ReactionGroup{}
		}
		m.IsPinned = pinned[m.ID]

		switch m.Type {
		case models.MessagePoll:
			tally := buildPollTally(m, votes[m.ID])
			m.Poll = &tally
		case models.MessageEvent:
			tally := buildRSVPTally(m.ID, rsvps[m.ID])
			m.RSVP = &tally
		case models.MessageText, models.MessageSharedChat, models.MessageSharedEmail, models.MessageSystem:
		}
	}
	return nil
}

func enrichMessage(ctx context.Context, store *repository.Store, msg *models.Message) error {
	list := []models.Message{*msg}
	if err := enrichMessages(ctx, store, list); err != nil {
		return err
	}
	*msg = list[0]
	return nil
}

func buildPollTally(msg *models.Message, votes []models.PollVote) models.PollTally {
	options := 0
	if msg.Content.Poll != nil {
		options = len(msg.Content.Poll.Options)
	}
	tally := models.NewPollTally(msg.ID, options)
	for _, v := range votes {
		if v.OptionIndex < 0 || v.OptionIndex >= options {
			continue
		}
		tally.Counts[v.OptionIndex]++
		tally.Voters[v.OptionIndex] = append(tally.Voters[v.OptionIndex], v.UserID)
		tally.TotalVotes++
	}
	return tally
}

func buildRSVPTally(messageID string, rsvps []models.EventRSVP) models.RSVPTally {
	tally := models.NewRSVPTally(messageID)
	for _, r := range rsvps {
		tally.Add(r.UserID, r.Status)
	}
	return tally
}
