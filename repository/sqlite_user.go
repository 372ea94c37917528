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

type sqliteUserRepo struct {
	db database.TxQuerier
}

// NewSQLiteUserRepo, constructor, interface döner.
func NewSQLiteUserRepo(db database.TxQuerier) UserRepository {
	return &sqliteUserRepo{db: db}
}

func (r *sqliteUserRepo) Upsert(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO users (id, username, display_name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username     = CASE WHEN excluded.username != '' THEN excluded.username ELSE users.username END,
			display_name = COALESCE(excluded.display_name, users.display_name),
			email        = CASE WHEN excluded.email != '' THEN excluded.email ELSE users.email END,
			updated_at   = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.DisplayName, user.Email, toMicros(now), toMicros(now))
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (r *sqliteUserRepo) EnsureExists(ctx context.Context, ids []string) error {
	now := toMicros(time.Now().UTC())
	for _, id := range ids {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO users (id, created_at, updated_at) VALUES (?, ?, ?)`,
			id, now, now)
		if err != nil {
			return fmt.Errorf("failed to ensure user %s: %w", id, err)
		}
	}
	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, email, created_at, updated_at FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *sqliteUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	result := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	in, args := inClause(ids)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, display_name, email, created_at, updated_at FROM users WHERE id IN (`+in+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		result[user.ID] = user
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*models.User, error) {
	var (
		u                    models.User
		displayName          sql.NullString
		createdAt, updatedAt int64
	)
	if err := s.Scan(&u.ID, &u.Username, &displayName, &u.Email, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.DisplayName = fromNullString(displayName)
	u.CreatedAt = fromMicros(createdAt)
	u.UpdatedAt = fromMicros(updatedAt)
	return &u, nil
}
