package handlers

import (
	"fmt"
	"net/http"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/services"
)

// ReadStateHandler, okundu işaretleme ve okunmamış sayaç endpoint'leri.
type ReadStateHandler struct {
	readStateService services.ReadStateService
}

func NewReadStateHandler(readStateService services.ReadStateService) *ReadStateHandler {
	return &ReadStateHandler{readStateService: readStateService}
}

// MarkRead godoc
// POST /api/messages/mark-read
//
//	{ "conversation_id": "..." }
func (h *ReadStateHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.MarkReadRequest
	if err := decodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		pkg.Error(w, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err))
		return
	}

	update, err := h.readStateService.MarkAsRead(r.Context(), req.ConversationID, user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, update)
}

// UnreadCount godoc
// GET /api/messages/unread-count
// total_unread ve unread_mentions bağımsız iki sayıdır.
func (h *ReadStateHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	counts, err := h.readStateService.UnreadCount(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, counts)
}
