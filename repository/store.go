package repository

import (
	"context"
	"database/sql"

	"github.com/akinalp/huddle/database"
)

// Store, tüm repository'leri tek bir querier üzerinde toplar.
//
// Normal akışta querier *sql.DB'dir. WithTx içinde fn'e verilen Store'un
// tüm repository'leri aynı *sql.Tx'i kullanır; böylece service'ler birden
// fazla tabloya yazan işlemleri atomik yapabilir.
type Store struct {
	db *sql.DB

	Users         UserRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Reactions     ReactionRepository
	Pins          PinRepository
	Polls         PollRepository
	RSVPs         RSVPRepository
	Notifications NotificationRepository
	ReadStates    ReadStateRepository
}

// NewStore, *sql.DB üzerinde çalışan Store oluşturur.
func NewStore(db *sql.DB) *Store {
	s := newStore(db)
	s.db = db
	return s
}

func newStore(q database.TxQuerier) *Store {
	return &Store{
		Users:         NewSQLiteUserRepo(q),
		Conversations: NewSQLiteConversationRepo(q),
		Messages:      NewSQLiteMessageRepo(q),
		Reactions:     NewSQLiteReactionRepo(q),
		Pins:          NewSQLitePinRepo(q),
		Polls:         NewSQLitePollRepo(q),
		RSVPs:         NewSQLiteRSVPRepo(q),
		Notifications: NewSQLiteNotificationRepo(q),
		ReadStates:    NewSQLiteReadStateRepo(q),
	}
}

// WithTx, fn'i tek transaction içinde çalıştırır.
// Zaten transaction içindeki bir Store'da fn doğrudan çağrılır.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(newStore(tx))
	})
}
