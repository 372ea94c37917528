// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Zincir: RequestID → RealIP → Recoverer → Logging → mux → Auth → RateLimit → handler
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/akinalp/huddle/handlers"
	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
)

// Authenticator, opak kimlik token'ını kullanıcıya çözer.
// services.TokenResolver bunu karşılar.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware, Bearer token doğrulama middleware'ı.
type AuthMiddleware struct {
	auth Authenticator
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Require, token zorunlu kılar. Token yoksa veya geçersizse 401 döner.
//
// HTTP header formatı: Authorization: Bearer <token>
//
// Token geçerliyse kullanıcı yansıması güncellenir ve context'e eklenir;
// handler'lar handlers.UserFromContext ile erişir.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		user, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			pkg.Error(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
