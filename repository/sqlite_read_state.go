package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/pkg"
)

type sqliteReadStateRepo struct {
	db database.TxQuerier
}

// NewSQLiteReadStateRepo, constructor, interface döner.
func NewSQLiteReadStateRepo(db database.TxQuerier) ReadStateRepository {
	return &sqliteReadStateRepo{db: db}
}

// AdvanceLastRead, watermark'ı at'e ilerletir; geri almaz.
// Sonuçta geçerli olan watermark döner.
func (r *sqliteReadStateRepo) AdvanceLastRead(ctx context.Context, conversationID, userID string, at time.Time) (time.Time, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE participants
		SET last_read_at = MAX(COALESCE(last_read_at, 0), ?)
		WHERE conversation_id = ? AND user_id = ?`,
		toMicros(at), conversationID, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to update read state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return time.Time{}, fmt.Errorf("%w: participant not found", pkg.ErrNotFound)
	}

	var current int64
	err = r.db.QueryRowContext(ctx,
		`SELECT last_read_at FROM participants WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%w: participant not found", pkg.ErrNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read watermark: %w", err)
	}
	return fromMicros(current), nil
}

// UnreadByConversation, kullanıcının okunmamış mesajı olan konuşmalarını sayılarıyla döner.
func (r *sqliteReadStateRepo) UnreadByConversation(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.conversation_id, COUNT(m.id)
		FROM participants p
		JOIN messages m ON m.conversation_id = p.conversation_id
		WHERE p.user_id = ?
		  AND m.sender_id != p.user_id
		  AND m.created_at > COALESCE(p.last_read_at, 0)
		GROUP BY p.conversation_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var (
			convID string
			count  int
		)
		if err := rows.Scan(&convID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan unread count: %w", err)
		}
		result[convID] = count
	}
	return result, rows.Err()
}

// SeenBy, gönderen dışında watermark'ı createdAt'e ulaşmış katılımcıları döner.
func (r *sqliteReadStateRepo) SeenBy(ctx context.Context, conversationID, senderID string, createdAt time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM participants
		WHERE conversation_id = ? AND user_id != ? AND last_read_at >= ?
		ORDER BY last_read_at ASC, user_id ASC`,
		conversationID, senderID, toMicros(createdAt))
	if err != nil {
		return nil, fmt.Errorf("failed to compute seen by: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan seen by: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
