package handlers

import (
	"net/http"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/services"
)

// ConversationHandler, konuşma endpoint'leri.
type ConversationHandler struct {
	conversationService services.ConversationService
}

func NewConversationHandler(conversationService services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// List godoc
// GET /api/conversations
// updated_at'e göre en yeni önce; her satırda son mesaj ve okunmamış sayısı.
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	summaries, err := h.conversationService.ListForUser(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, summaries)
}

// Create godoc
// POST /api/conversations
//
//	{ "type": "direct", "participant_ids": ["u2"] }          → 200 (varsa aynı kayıt)
//	{ "type": "group", "name": "Team", "participant_ids": [...] } → 201
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.CreateConversationRequest
	if err := decodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	conv, _, err := h.conversationService.Create(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	status := http.StatusCreated
	if conv.Type == models.ConversationDirect {
		status = http.StatusOK
	}
	pkg.JSON(w, status, conv)
}

// Get godoc
// GET /api/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	conv, err := h.conversationService.Get(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, conv)
}

type muteRequest struct {
	Muted *bool `json:"muted"`
}

// SetMuted godoc
// PUT /api/conversations/{id}/mute
//
//	{ "muted": true }
func (h *ConversationHandler) SetMuted(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req muteRequest
	if err := decodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}
	if req.Muted == nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "muted is required")
		return
	}

	conversationID := r.PathValue("id")
	if err := h.conversationService.SetMuted(r.Context(), conversationID, user.ID, *req.Muted); err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string]any{"conversation_id": conversationID, "muted": *req.Muted})
}
