package repository

import (
	"context"
	"fmt"

	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/models"
)

type sqlitePollRepo struct {
	db database.TxQuerier
}

// NewSQLitePollRepo, constructor, interface döner.
func NewSQLitePollRepo(db database.TxQuerier) PollRepository {
	return &sqlitePollRepo{db: db}
}

func (r *sqlitePollRepo) Vote(ctx context.Context, vote *models.PollVote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO poll_votes (message_id, user_id, option_index, voted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(message_id, user_id) DO UPDATE SET
			option_index = excluded.option_index,
			voted_at     = excluded.voted_at`,
		vote.MessageID, vote.UserID, vote.OptionIndex, toMicros(vote.VotedAt))
	if err != nil {
		return fmt.Errorf("failed to record vote: %w", err)
	}
	return nil
}

func (r *sqlitePollRepo) ListByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.PollVote, error) {
	result := make(map[string][]models.PollVote)
	if len(messageIDs) == 0 {
		return result, nil
	}

	in, args := inClause(messageIDs)
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, user_id, option_index, voted_at
		FROM poll_votes
		WHERE message_id IN (`+in+`)
		ORDER BY voted_at ASC, user_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v       models.PollVote
			votedAt int64
		)
		if err := rows.Scan(&v.MessageID, &v.UserID, &v.OptionIndex, &votedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		v.VotedAt = fromMicros(votedAt)
		result[v.MessageID] = append(result[v.MessageID], v)
	}
	return result, rows.Err()
}
