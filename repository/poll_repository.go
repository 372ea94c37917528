package repository

import (
	"context"

	"github.com/akinalp/huddle/models"
)

// PollRepository, anket oyları. PK(message_id, user_id) sayesinde
// Vote bir upsert'tür: kullanıcının önceki oyu atomik olarak değişir.
type PollRepository interface {
	Vote(ctx context.Context, vote *models.PollVote) error
	ListByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.PollVote, error)
}

// RSVPRepository, event cevapları. Upsert; son yazan kazanır.
type RSVPRepository interface {
	Upsert(ctx context.Context, rsvp *models.EventRSVP) error
	ListByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.EventRSVP, error)
}
