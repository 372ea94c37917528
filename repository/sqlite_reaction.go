package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akinalp/huddle/database"
	"github.com/akinalp/huddle/models"
)

type sqliteReactionRepo struct {
	db database.TxQuerier
}

// NewSQLiteReactionRepo, constructor, interface döner.
func NewSQLiteReactionRepo(db database.TxQuerier) ReactionRepository {
	return &sqliteReactionRepo{db: db}
}

// Toggle, reaction'ı ekler veya kaldırır.
// Aynı mesaj için çağrılar service katmanında mesaj bazlı kilitle sıralanır.
func (r *sqliteReactionRepo) Toggle(ctx context.Context, messageID, userID, emoji string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO reactions (message_id, user_id, emoji, created_at)
		VALUES (?, ?, ?, ?)`,
		messageID, userID, emoji, toMicros(time.Now().UTC()))
	if err != nil {
		return false, fmt.Errorf("toggle reaction insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("toggle reaction rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return true, nil
	}

	_, err = r.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND emoji = ?`,
		messageID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("toggle reaction delete: %w", err)
	}
	return false, nil
}

// GetByMessageID, tek mesajın reaction'larını emoji bazında gruplar.
// Gruplar ilk eklenme sırasına göre döner.
func (r *sqliteReactionRepo) GetByMessageID(ctx context.Context, messageID string) ([]models.ReactionGroup, error) {
	groups, err := r.GetByMessageIDs(ctx, []string{messageID})
	if err != nil {
		return nil, err
	}
	if g, ok := groups[messageID]; ok {
		return g, nil
	}
	return []models.ReactionGroup{}, nil
}

// GetByMessageIDs, birden fazla mesajın reaction'larını tek sorguda yükler.
// Reaction'ı olmayan mesajlar map'te bulunmaz.
// Kullanıcılar JSON dizisi olarak toplanır.
func (r *sqliteReactionRepo) GetByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.ReactionGroup, error) {
	result := make(map[string][]models.ReactionGroup)
	if len(messageIDs) == 0 {
		return result, nil
	}

	in, args := inClause(messageIDs)
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id, emoji, COUNT(*) AS count, json_group_array(user_id) AS users
		FROM (
			SELECT message_id, emoji, user_id, created_at
			FROM reactions
			WHERE message_id IN (`+in+`)
			ORDER BY created_at ASC, user_id ASC
		)
		GROUP BY message_id, emoji
		ORDER BY message_id, MIN(created_at) ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("get reactions by message ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			messageID string
			g         models.ReactionGroup
			users     string
		)
		if err := rows.Scan(&messageID, &g.Emoji, &g.Count, &users); err != nil {
			return nil, fmt.Errorf("scan reaction group: %w", err)
		}
		g.Users = []string{}
		if err := json.Unmarshal([]byte(users), &g.Users); err != nil {
			return nil, fmt.Errorf("decode reaction users: %w", err)
		}
		result[messageID] = append(result[messageID], g)
	}
	return result, rows.Err()
}
