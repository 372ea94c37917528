// Package handlers, REST endpoint'lerini barındırır.
//
// Thin handler pattern: handler'lar sadece request parse + response yazımı
// yapar. İş mantığı, yetki kontrolü ve yayınlar service katmanındadır.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
)

// maxBodySize, JSON body üst sınırı.
const maxBodySize = 1 << 20

// contextKey, context.Value çakışmalarını önlemek için özel tip.
type contextKey string

// UserContextKey, auth middleware'ın kullanıcıyı koyduğu key.
const UserContextKey contextKey = "user"

// UserFromContext, auth middleware'ın eklediği kullanıcıyı döner (yoksa nil).
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserContextKey).(*models.User)
	return user
}

// requireUser, kullanıcı yoksa 401 yazar.
func requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := UserFromContext(r.Context())
	if user == nil {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return nil, false
	}
	return user, true
}

// decodeJSON, body'yi v'ye çözer. Hata ErrBadRequest sarar.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", pkg.ErrBadRequest)
		}
		return fmt.Errorf("%w: invalid request body", pkg.ErrBadRequest)
	}
	return nil
}

// queryInt, sayısal query parametresi. Boş veya bozuksa 0 döner; service varsayılanı uygular.
func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
