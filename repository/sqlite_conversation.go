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

type sqliteConversationRepo struct {
	db database.TxQuerier
}

// NewSQLiteConversationRepo, constructor, interface döner.
func NewSQLiteConversationRepo(db database.TxQuerier) ConversationRepository {
	return &sqliteConversationRepo{db: db}
}

func (r *sqliteConversationRepo) Create(ctx context.Context, conv *models.Conversation, pairKey *string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, type, name, creator_id, pair_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.Type, conv.Name, conv.CreatorID, pairKey,
		toMicros(conv.CreatedAt), toMicros(conv.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: conversation already exists", pkg.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	for _, p := range conv.Participants {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO participants (conversation_id, user_id, last_read_at, is_muted, joined_at)
			VALUES (?, ?, ?, ?, ?)`,
			conv.ID, p.UserID, nullableMicros(p.LastReadAt), p.IsMuted, toMicros(p.JoinedAt))
		if err != nil {
			return fmt.Errorf("failed to add participant %s: %w", p.UserID, err)
		}
	}
	return nil
}

const conversationColumns = `c.id, c.type, c.name, c.creator_id, c.created_at, c.updated_at`

func scanConversation(s rowScanner, extra ...any) (*models.Conversation, error) {
	var (
		c                    models.Conversation
		name                 sql.NullString
		createdAt, updatedAt int64
	)
	dest := append([]any{&c.ID, &c.Type, &name, &c.CreatorID, &createdAt, &updatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	c.Name = fromNullString(name)
	c.CreatedAt = fromMicros(createdAt)
	c.UpdatedAt = fromMicros(updatedAt)
	return &c, nil
}

func (r *sqliteConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations c WHERE c.id = ?`, id)
	return r.getOne(ctx, row)
}

func (r *sqliteConversationRepo) GetByPairKey(ctx context.Context, pairKey string) (*models.Conversation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations c WHERE c.pair_key = ?`, pairKey)
	return r.getOne(ctx, row)
}

func (r *sqliteConversationRepo) getOne(ctx context.Context, row *sql.Row) (*models.Conversation, error) {
	conv, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: conversation not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	participants, err := r.participantsOf(ctx, []string{conv.ID})
	if err != nil {
		return nil, err
	}
	conv.Participants = participants[conv.ID]
	return conv, nil
}

// participantsOf, verilen konuşmaların katılımcılarını kullanıcı bilgisiyle yükler.
func (r *sqliteConversationRepo) participantsOf(ctx context.Context, conversationIDs []string) (map[string][]models.Participant, error) {
	result := make(map[string][]models.Participant, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return result, nil
	}

	in, args := inClause(conversationIDs)
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.conversation_id, p.user_id, p.last_read_at, p.is_muted, p.joined_at,
			u.id, u.username, u.display_name, u.email, u.created_at, u.updated_at
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.conversation_id IN (`+in+`)
		ORDER BY p.joined_at ASC, p.user_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p                    models.Participant
			u                    models.User
			lastRead             sql.NullInt64
			joinedAt             int64
			displayName          sql.NullString
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&p.ConversationID, &p.UserID, &lastRead, &p.IsMuted, &joinedAt,
			&u.ID, &u.Username, &displayName, &u.Email, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.LastReadAt = fromNullMicros(lastRead)
		p.JoinedAt = fromMicros(joinedAt)
		u.DisplayName = fromNullString(displayName)
		u.CreatedAt = fromMicros(createdAt)
		u.UpdatedAt = fromMicros(updatedAt)
		p.User = &u
		result[p.ConversationID] = append(result[p.ConversationID], p)
	}
	return result, rows.Err()
}

// ListSummariesForUser, kullanıcının konuşmalarını özetleriyle döner.
//
// Okunmamış sayısı ve son mesaj ID'si correlated subquery ile tek sorguda hesaplanır;
// katılımcılar ve son mesajlar sonra batch olarak yüklenir.
func (r *sqliteConversationRepo) ListSummariesForUser(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`, p.is_muted,
			(SELECT COUNT(*) FROM messages m
			 WHERE m.conversation_id = c.id
			   AND m.sender_id != p.user_id
			   AND m.created_at > COALESCE(p.last_read_at, 0)) AS unread,
			(SELECT m.id FROM messages m
			 WHERE m.conversation_id = c.id
			 ORDER BY m.created_at DESC, m.id DESC LIMIT 1) AS last_message_id
		FROM conversations c
		JOIN participants p ON p.conversation_id = c.id AND p.user_id = ?
		ORDER BY c.updated_at DESC, c.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	var (
		summaries []models.ConversationSummary
		lastIDs   = make(map[int]string)
	)
	for rows.Next() {
		var (
			muted  bool
			unread int
			lastID sql.NullString
		)
		conv, err := scanConversation(rows, &muted, &unread, &lastID)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if lastID.Valid {
			lastIDs[len(summaries)] = lastID.String
		}
		summaries = append(summaries, models.ConversationSummary{
			Conversation: *conv,
			UnreadCount:  unread,
			IsMuted:      muted,
		})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	rows.Close()

	if len(summaries) == 0 {
		return []models.ConversationSummary{}, nil
	}

	convIDs := make([]string, len(summaries))
	for i := range summaries {
		convIDs[i] = summaries[i].ID
	}
	participants, err := r.participantsOf(ctx, convIDs)
	if err != nil {
		return nil, err
	}

	msgIDs := make([]string, 0, len(lastIDs))
	for _, id := range lastIDs {
		msgIDs = append(msgIDs, id)
	}
	lastMessages, err := getMessagesByIDs(ctx, r.db, msgIDs)
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		summaries[i].Participants = participants[summaries[i].ID]
		if id, ok := lastIDs[i]; ok {
			summaries[i].LastMessage = lastMessages[id]
		}
	}
	return summaries, nil
}

func (r *sqliteConversationRepo) ListCoParticipantIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT other.user_id
		FROM participants me
		JOIN participants other ON other.conversation_id = me.conversation_id
		WHERE me.user_id = ? AND other.user_id != ?`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list co-participants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan co-participant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sqliteConversationRepo) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM participants WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return true, nil
}

// Touch, son aktivite zamanını ileri alır. Geri almaz.
func (r *sqliteConversationRepo) Touch(ctx context.Context, conversationID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = MAX(updated_at, ?) WHERE id = ?`,
		toMicros(at), conversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	return nil
}

func (r *sqliteConversationRepo) SetMuted(ctx context.Context, conversationID, userID string, muted bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE participants SET is_muted = ? WHERE conversation_id = ? AND user_id = ?`,
		muted, conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to set muted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: participant not found", pkg.ErrNotFound)
	}
	return nil
}
