package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/repository"
)

// TokenResolver, dış kimlik sisteminin imzaladığı token'ı kullanıcıya çözer.
//
// Token bir yetenek (capability) olarak ele alınır: imza geçerliyse sub claim'i
// kullanıcı ID'sidir. Login / şifre / session yönetimi bu servisin dışındadır.
// Claim'lerde username / email / name varsa yerel User yansıması güncellenir.
type TokenResolver struct {
	secret []byte
	users  repository.UserRepository
}

// NewTokenResolver, HS256 secret'ı ile resolver oluşturur.
func NewTokenResolver(secret string, users repository.UserRepository) *TokenResolver {
	return &TokenResolver{secret: []byte(secret), users: users}
}

// Parse, token imzasını ve süresini doğrular.
func (r *TokenResolver) Parse(tokenString string) (*models.IdentityClaims, error) {
	claims := &models.IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}
	if !token.Valid || strings.TrimSpace(claims.UserID()) == "" {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}
	return claims, nil
}

// Authenticate, token'ı doğrular, kullanıcı yansımasını günceller ve döner.
func (r *TokenResolver) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := r.Parse(tokenString)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:       claims.UserID(),
		Username: claims.Username,
		Email:    claims.Email,
	}
	if claims.Name != "" {
		name := claims.Name
		user.DisplayName = &name
	}
	if err := r.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return r.users.GetByID(ctx, user.ID)
}
