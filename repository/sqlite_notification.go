package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
)

type sqliteNotificationRepo struct {
	db database.TxQuerier
}

// NewSQLiteNotificationRepo, constructor, interface döner.
func NewSQLiteNotificationRepo(db database.TxQuerier) NotificationRepository {
	return &sqliteNotificationRepo{db: db}
}

func (r *sqliteNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	var data any
	if len(n.Data) > 0 {
		data = string(n.Data)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, message_id, conversation_id, title, body, data, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.MessageID, n.ConversationID, n.Title, n.Body, data, n.IsRead, toMicros(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *sqliteNotificationRepo) List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, type, message_id, conversation_id, title, body, data, is_read, created_at
		FROM notifications
		WHERE user_id = ?`
	if filter.UnreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	list := []models.Notification{}
	for rows.Next() {
		var (
			n                 models.Notification
			messageID, convID sql.NullString
			data              sql.NullString
			createdAt         int64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &messageID, &convID,
			&n.Title, &n.Body, &data, &n.IsRead, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.MessageID = fromNullString(messageID)
		n.ConversationID = fromNullString(convID)
		if data.Valid {
			n.Data = []byte(data.String)
		}
		n.CreatedAt = fromMicros(createdAt)
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *sqliteNotificationRepo) MarkRead(ctx context.Context, userID, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM notifications WHERE id = ? AND user_id = ?`, id, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: notification not found", pkg.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get notification: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (r *sqliteNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return result.RowsAffected()
}

func (r *sqliteNotificationRepo) CountUnread(ctx context.Context, userID string, typ models.NotificationType) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0 AND type = ?`,
		userID, typ).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// DeleteReadBefore, cutoff'tan eski ve okunmuş bildirimleri siler.
func (r *sqliteNotificationRepo) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read = 1 AND created_at < ?`, toMicros(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to prune notifications: %w", err)
	}
	return result.RowsAffected()
}
