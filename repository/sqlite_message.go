package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
)

type sqliteMessageRepo struct {
	db database.TxQuerier
}

// NewSQLiteMessageRepo, constructor, interface döner.
func NewSQLiteMessageRepo(db database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

const messageColumns = `m.id, m.conversation_id, m.sender_id, m.message_type, m.content,
	m.parent_message_id, m.is_edited, m.edited_at, m.created_at`

func (r *sqliteMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return fmt.Errorf("failed to encode message content: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, message_type, content,
			parent_message_id, is_edited, edited_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Type, string(content),
		msg.ParentMessageID, msg.IsEdited, nullableMicros(msg.EditedAt), toMicros(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages m WHERE m.id = ?`, id)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// ListBefore, cursor'dan kesin olarak daha eski mesajları yeniden eskiye döner.
func (r *sqliteMessageRepo) ListBefore(ctx context.Context, conversationID string, cursor *models.Message, limit int) ([]models.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if cursor == nil {
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+messageColumns+`
			FROM messages m
			WHERE m.conversation_id = ?
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?`, conversationID, limit)
	} else {
		ts := toMicros(cursor.CreatedAt)
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+messageColumns+`
			FROM messages m
			WHERE m.conversation_id = ?
			  AND (m.created_at < ? OR (m.created_at = ? AND m.id < ?))
			ORDER BY m.created_at DESC, m.id DESC
			LIMIT ?`, conversationID, ts, ts, cursor.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

func (r *sqliteMessageRepo) LatestCreatedAt(ctx context.Context, conversationID string) (time.Time, bool, error) {
	var latest sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get latest message time: %w", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return fromMicros(latest.Int64), true, nil
}

// UpdateContent, düzenlenen içeriği ve is_edited / edited_at alanlarını yazar.
func (r *sqliteMessageRepo) UpdateContent(ctx context.Context, msg *models.Message) error {
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return fmt.Errorf("failed to encode message content: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE messages SET content = ?, is_edited = ?, edited_at = ? WHERE id = ?`,
		string(content), msg.IsEdited, nullableMicros(msg.EditedAt), msg.ID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	return nil
}

// getMessagesByIDs, konuşma özetlerindeki son mesajlar için batch yükleme.
func getMessagesByIDs(ctx context.Context, db database.TxQuerier, ids []string) (map[string]*models.Message, error) {
	result := make(map[string]*models.Message, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	in, args := inClause(ids)
	rows, err := db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages m WHERE m.id IN (`+in+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		result[msg.ID] = msg
	}
	return result, rows.Err()
}

func scanMessage(s rowScanner) (*models.Message, error) {
	var (
		m         models.Message
		content   string
		parentID  sql.NullString
		editedAt  sql.NullInt64
		createdAt int64
	)
	if err := s.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Type, &content,
		&parentID, &m.IsEdited, &editedAt, &createdAt); err != nil {
		return nil, err
	}

	decoded, err := models.DecodeContent(m.Type, json.RawMessage(content))
	if err != nil {
		return nil, fmt.Errorf("corrupt content for message %s: %w", m.ID, err)
	}
	m.Content = decoded
	m.ParentMessageID = fromNullString(parentID)
	m.EditedAt = fromNullMicros(editedAt)
	m.CreatedAt = fromMicros(createdAt)
	m.Reactions = []models.ReactionGroup{}
	return &m, nil
}
