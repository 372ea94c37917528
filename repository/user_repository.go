package repository

import (
	"context"

	"github.com/akinalp/huddle/models"
)

// UserRepository, dış kimlik kullanıcılarının yerel yansıması.
//
// Upsert: token claim'leri veya PUT /api/users/me ile kaydı günceller.
// Boş gelen alanlar mevcut değeri ezmez.
//
// EnsureExists: henüz hiç bağlanmamış kullanıcılar konuşmaya eklenirken
// FK için boş bir kayıt açar.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	EnsureExists(ctx context.Context, ids []string) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}
