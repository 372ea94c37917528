package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxQuerier, *sql.DB ve *sql.Tx'in ortak sorgu yüzeyi.
// Repository'ler bunu alır; aynı kod transaction içinde ve dışında çalışır.
type TxQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx, fn'i tek transaction içinde çalıştırır. fn hata dönerse veya
// panic atarsa ROLLBACK yapılır.
//
// Havuzda tek bağlantı vardır: fn içinden db'ye doğrudan sorgu atılırsa
// bağlantı beklenir ve istek kilitlenir. fn sadece tx'i kullanmalıdır.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	done = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
