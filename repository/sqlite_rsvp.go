package repository

import (
	"context"
	"fmt"

	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/models"
)

type sqliteRSVPRepo struct {
	db database.TxQuerier
}

// NewSQLiteRSVPRepo, constructor, interface döner.
func NewSQLiteRSVPRepo(db database.TxQuerier) RSVPRepository {
	return &sqliteRSVPRepo{db: db}
}

func (r *sqliteRSVPRepo) Upsert(ctx context.Context, rsvp *models.EventRSVP) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO event_rsvps (message_id, user_id, status, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(message_id, user_id) DO UPDATE SET
			status     = excluded.status,
			updated_at = excluded.updated_at`,
		rsvp.MessageID, rsvp.UserID, rsvp.Status, toMicros(rsvp.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert rsvp: %w", err)
	}
	return nil
}

func (r *sqliteRSVPRepo) ListByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.EventRSVP, error) {
	result := make(map[string][]models.EventRSVP)
	if len(messageIDs) == 0 {
		return result, nil
	}

	in, args := inClause(messageIDs)
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, user_id, status, updated_at
		FROM event_rsvps
		WHERE message_id IN (`+in+`)
		ORDER BY updated_at ASC, user_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v         models.EventRSVP
			updatedAt int64
		)
		if err := rows.Scan(&v.MessageID, &v.UserID, &v.Status, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		v.UpdatedAt = fromMicros(updatedAt)
		result[v.MessageID] = append(result[v.MessageID], v)
	}
	return result, rows.Err()
}
