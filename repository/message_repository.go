package repository

import (
	"context"
	"time"

	"github.com/akinalp/huddle/models"
)

// MessageRepository, konuşma ledger'ı.
//
// Create: sadece ekleme yapar; created_at service tarafından atanır.
//
// ListBefore: (created_at, id) tuple cursor ile geriye doğru sayfalama.
// cursor nil ise en yeniden başlar. Offset kullanılmaz; sayfalama sırasında
// gelen yeni mesajlar satır atlatmaz veya tekrarlatmaz.
//
// LatestCreatedAt: monotonik created_at ataması için son mesaj zamanı.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	ListBefore(ctx context.Context, conversationID string, cursor *models.Message, limit int) ([]models.Message, error)
	LatestCreatedAt(ctx context.Context, conversationID string) (time.Time, bool, error)
	UpdateContent(ctx context.Context, msg *models.Message) error
}
