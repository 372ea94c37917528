package handlers

import (
	"net/http"
	"strconv"

	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/services"
)

// NotificationHandler, bildirim endpoint'leri. Sadece alıcı kendi bildirimlerini görür.
type NotificationHandler struct {
	notificationService services.NotificationService
}

func NewNotificationHandler(notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List godoc
// GET /api/notifications?limit=20&unread_only=true
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread_only"))
	notifications, err := h.notificationService.List(r.Context(), user.ID, queryInt(r, "limit"), unreadOnly)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, notifications)
}

// MarkRead godoc
// POST /api/notifications/{id}/read
// Zaten okunmuşsa da 200 döner.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), user.ID, r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]string{"message": "notification marked as read"})
}

// MarkAllRead godoc
// POST /api/notifications/mark-all-read
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
