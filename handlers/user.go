package handlers

import (
	"net/http"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/services"
)

// UserHandler, kullanıcı yansıması endpoint'leri.
type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me godoc
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	pkg.JSON(w, http.StatusOK, user)
}

// SyncMe godoc
// PUT /api/users/me
//
//	{ "username": "bob", "display_name": "Bob", "email": "bob@example.com" }
//
// Kimlik sistemi dışarıdadır; bu endpoint mention çözümlemesinin okuduğu
// yerel kaydı günceller.
func (h *UserHandler) SyncMe(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.SyncUserRequest
	if err := decodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	updated, err := h.userService.Sync(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, updated)
}
