package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/pkg/logger"
	"github.com/akinalp/huddle/repository"
	"github.com/akinalp/huddle/ws"
)

// minGroupMembers, creator hariç bir grubun en az üye sayısı.
const minGroupMembers = 2

// SystemAppender, konuşmaya sunucu kaynaklı bilgi mesajı ekler.
// MessageService bunu karşılar.
type SystemAppender interface {
	AppendSystem(ctx context.Context, conversationID, actorID, body, code string) (*models.Message, error)
}

// ConversationService, konuşma oluşturma ve listeleme iş mantığı.
type ConversationService interface {
	Create(ctx context.Context, userID string, req *models.CreateConversationRequest) (*models.Conversation, bool, error)
	GetOrCreateDirect(ctx context.Context, userA, userB string) (*models.Conversation, bool, error)
	CreateGroup(ctx context.Context, creatorID, name string, memberIDs []string) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	Get(ctx context.Context, userID, conversationID string) (*models.Conversation, error)
	SetMuted(ctx context.Context, conversationID, userID string, muted bool) error
	RequireParticipant(ctx context.Context, conversationID, userID string) error
	CoParticipants(ctx context.Context, userID string) ([]string, error)
}

type conversationService struct {
	store  *repository.Store
	hub    ws.EventPublisher
	system SystemAppender
	log    *logger.Logger
}

// NewConversationService, constructor. system nil olabilir (grup bilgi mesajı atlanır).
func NewConversationService(store *repository.Store, hub ws.EventPublisher, system SystemAppender, log *logger.Logger) ConversationService {
	return &conversationService{
		store:  store,
		hub:    hub,
		system: system,
		log:    log,
	}
}

// Create, isteğin tipine göre direct veya group oluşturur.
// İkinci dönüş değeri yeni bir kayıt oluşup oluşmadığıdır.
func (s *conversationService) Create(ctx context.Context, userID string, req *models.CreateConversationRequest) (*models.Conversation, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	switch req.Type {
	case models.ConversationDirect:
		return s.GetOrCreateDirect(ctx, userID, strings.TrimSpace(req.ParticipantIDs[0]))
	case models.ConversationGroup:
		conv, err := s.CreateGroup(ctx, userID, req.Name, req.ParticipantIDs)
		if err != nil {
			return nil, false, err
		}
		return conv, true, nil
	default:
		return nil, false, fmt.Errorf("%w: unknown conversation type", pkg.ErrBadRequest)
	}
}

// GetOrCreateDirect, iki kullanıcı arasındaki tek direct konuşmayı döner.
//
// Eşzamanlı iki istek aynı çifti oluşturmaya çalışırsa pair_key UNIQUE
// kısıtı birini reddeder; kaybeden kazananın kaydını okur. İki çağrı da
// aynı konuşmayı görür, çağırana çakışma hatası dönmez.
func (s *conversationService) GetOrCreateDirect(ctx context.Context, userA, userB string) (*models.Conversation, bool, error) {
	if userA == "" || userB == "" {
		return nil, false, fmt.Errorf("%w: both users are required", pkg.ErrBadRequest)
	}
	if userA == userB {
		return nil, false, fmt.Errorf("%w: cannot start a conversation with yourself", pkg.ErrBadRequest)
	}

	pairKey := models.DirectPairKey(userA, userB)
	existing, err := s.store.Conversations.GetByPairKey(ctx, pairKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, pkg.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		Type:      models.ConversationDirect,
		CreatorID: userA,
		CreatedAt: now,
		UpdatedAt: now,
		Participants: []models.Participant{
			{UserID: userA, JoinedAt: now},
			{UserID: userB, JoinedAt: now},
		},
	}

	err = s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Users.EnsureExists(ctx, []string{userA, userB}); err != nil {
			return err
		}
		return tx.Conversations.Create(ctx, conv, &pairKey)
	})
	if errors.Is(err, pkg.ErrAlreadyExists) {
		winner, err := s.store.Conversations.GetByPairKey(ctx, pairKey)
		if err != nil {
			return nil, false, err
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	created, err := s.store.Conversations.GetByID(ctx, conv.ID)
	if err != nil {
		return nil, false, err
	}
	s.announce(created)
	return created, true, nil
}

// CreateGroup, creator + en az iki üyeli grup oluşturur.
func (s *conversationService) CreateGroup(ctx context.Context, creatorID, name string, memberIDs []string) (*models.Conversation, error) {
	name = strings.TrimSpace(name)
	req := models.CreateConversationRequest{Type: models.ConversationGroup, Name: name, ParticipantIDs: memberIDs}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	members := dedupeMembers(creatorID, memberIDs)
	if len(members) < minGroupMembers {
		return nil, fmt.Errorf("%w: a group needs at least %d other members", pkg.ErrBadRequest, minGroupMembers)
	}

	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		Type:      models.ConversationGroup,
		Name:      &name,
		CreatorID: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	all := append([]string{creatorID}, members...)
	for _, id := range all {
		conv.Participants = append(conv.Participants, models.Participant{UserID: id, JoinedAt: now})
	}

	err := s.store.WithTx(ctx, func(tx *repository.Store) error {
		if err := tx.Users.EnsureExists(ctx, all); err != nil {
			return err
		}
		return tx.Conversations.Create(ctx, conv, nil)
	})
	if err != nil {
		return nil, err
	}

	created, err := s.store.Conversations.GetByID(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	s.announce(created)

	if s.system != nil {
		if _, err := s.system.AppendSystem(ctx, created.ID, creatorID, "group created", "group_created"); err != nil {
			s.log.Warn("failed to append group created message",
				zap.String("conversation_id", created.ID),
				zap.Error(err))
		}
	}
	return created, nil
}

// announce, yeni konuşmayı tüm katılımcılara bildirir.
func (s *conversationService) announce(conv *models.Conversation) {
	event := ws.Event{Op: ws.OpConversationNew, Data: conv}
	for _, id := range conv.ParticipantIDs() {
		s.hub.BroadcastToUser(id, event)
	}
}

func (s *conversationService) ListForUser(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	return s.store.Conversations.ListSummariesForUser(ctx, userID)
}

func (s *conversationService) Get(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	return loadConversationFor(ctx, s.store, conversationID, userID)
}

func (s *conversationService) SetMuted(ctx context.Context, conversationID, userID string, muted bool) error {
	if err := s.RequireParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.store.Conversations.SetMuted(ctx, conversationID, userID, muted)
}

// RequireParticipant, konuşma yoksa NotFound, katılımcı değilse Forbidden döner.
// Gateway'in conversation:join yetkilendirmesi bunu kullanır.
func (s *conversationService) RequireParticipant(ctx context.Context, conversationID, userID string) error {
	ok, err := s.store.Conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.store.Conversations.GetByID(ctx, conversationID); err != nil {
		return err
	}
	return fmt.Errorf("%w: not a participant of this conversation", pkg.ErrForbidden)
}

// CoParticipants, kullanıcıyla en az bir konuşmayı paylaşan kullanıcılar.
// Bağlantı anında presence izleme listesi bundan oluşur.
func (s *conversationService) CoParticipants(ctx context.Context, userID string) ([]string, error) {
	return s.store.Conversations.ListCoParticipantIDs(ctx, userID)
}

func dedupeMembers(creatorID string, ids []string) []string {
	seen := map[string]struct{}{creatorID: {}}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
