package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
)

type sqlitePinRepo struct {
	db database.TxQuerier
}

// NewSQLitePinRepo, constructor, interface döner.
func NewSQLitePinRepo(db database.TxQuerier) PinRepository {
	return &sqlitePinRepo{db: db}
}

func (r *sqlitePinRepo) Create(ctx context.Context, pin *models.PinnedMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pins (conversation_id, message_id, pinned_by, pinned_at)
		VALUES (?, ?, ?, ?)`,
		pin.ConversationID, pin.MessageID, pin.PinnedBy, toMicros(pin.PinnedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: message already pinned", pkg.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to pin message: %w", err)
	}
	return nil
}

func (r *sqlitePinRepo) Delete(ctx context.Context, conversationID, messageID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM pins WHERE conversation_id = ? AND message_id = ?`, conversationID, messageID)
	if err != nil {
		return false, fmt.Errorf("failed to unpin message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *sqlitePinRepo) Exists(ctx context.Context, conversationID, messageID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM pins WHERE conversation_id = ? AND message_id = ?`,
		conversationID, messageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check pin: %w", err)
	}
	return true, nil
}

func (r *sqlitePinRepo) CountByConversation(ctx context.Context, conversationID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pins WHERE conversation_id = ?`, conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pins: %w", err)
	}
	return count, nil
}

// ListByConversation, pinleri mesajlarıyla birlikte en yeni pin önce döner.
func (r *sqlitePinRepo) ListByConversation(ctx context.Context, conversationID string) ([]models.PinnedMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.conversation_id, p.message_id, p.pinned_by, p.pinned_at, `+messageColumns+`
		FROM pins p
		JOIN messages m ON m.id = p.message_id
		WHERE p.conversation_id = ?
		ORDER BY p.pinned_at DESC, p.message_id DESC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pins: %w", err)
	}
	defer rows.Close()

	pins := []models.PinnedMessage{}
	for rows.Next() {
		var (
			pin      models.PinnedMessage
			pinnedAt int64
		)
		msg, err := scanMessage(prefixScanner{rows, []any{&pin.ConversationID, &pin.MessageID, &pin.PinnedBy, &pinnedAt}})
		if err != nil {
			return nil, fmt.Errorf("failed to scan pin: %w", err)
		}
		pin.PinnedAt = fromMicros(pinnedAt)
		msg.IsPinned = true
		pin.Message = msg
		pins = append(pins, pin)
	}
	return pins, rows.Err()
}

func (r *sqlitePinRepo) PinnedAmong(ctx context.Context, messageIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(messageIDs) == 0 {
		return result, nil
	}

	in, args := inClause(messageIDs)
	rows, err := r.db.QueryContext(ctx, `SELECT message_id FROM pins WHERE message_id IN (`+in+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load pinned set: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan pinned id: %w", err)
		}
		result[id] = true
	}
	return result, rows.Err()
}

// prefixScanner, ortak scan fonksiyonunun önüne ek kolonlar koyar.
type prefixScanner struct {
	s      rowScanner
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.s.Scan(append(append([]any{}, p.prefix...), dest...)...)
}
