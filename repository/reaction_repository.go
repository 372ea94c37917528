package repository

import (
	"context"

	"github.com/akinalp/huddle/models"
)

// ReactionRepository, emoji reaction side table'ı.
//
// Toggle: INSERT OR IGNORE dener; satır eklenmediyse (PK zaten var) DELETE yapar.
// added=true yeni reaction eklendi, false mevcut reaction kaldırıldı.
//
// GetByMessageIDs: N+1'i önlemek için çoklu mesajın reaction'larını tek sorguda yükler.
type ReactionRepository interface {
	Toggle(ctx context.Context, messageID, userID, emoji string) (added bool, err error)
	GetByMessageID(ctx context.Context, messageID string) ([]models.ReactionGroup, error)
	GetByMessageIDs(ctx context.Context, messageIDs []string) (map[string][]models.ReactionGroup, error)
}
