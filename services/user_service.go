package services

import (
	"context"
	"fmt"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/repository"
)

// UserService, kullanıcı yansımasının elle senkronizasyonu (PUT /api/users/me).
type UserService interface {
	Sync(ctx context.Context, userID string, req *models.SyncUserRequest) (*models.User, error)
}

type userService struct {
	users repository.UserRepository
}

// NewUserService, constructor.
func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Sync(ctx context.Context, userID string, req *models.SyncUserRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err)
	}

	if err := s.users.Upsert(ctx, &models.User{
		ID:          userID,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Email:       req.Email,
	}); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}
