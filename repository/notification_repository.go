package repository

import (
	"context"
	"time"

	"github.com/akinalp/huddle/models"
)

// NotificationRepository, kalıcı bildirimler. Her sorgu alıcı kullanıcıyla sınırlıdır.
//
// MarkRead: zaten okunmuş bildirimde de başarılıdır; başka kullanıcının
// veya olmayan bir ID pkg.ErrNotFound döner.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string, typ models.NotificationType) (int, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
