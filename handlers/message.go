package handlers

import (
	"fmt"
	"net/http"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/services"
)

// MessageHandler, mesaj endpoint'lerini yöneten struct.
type MessageHandler struct {
	messageService services.MessageService
}

// NewMessageHandler, constructor.
func NewMessageHandler(messageService services.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// List godoc
// GET /api/conversations/{id}/messages?before_message_id=ID&limit=50
// Mesajları (created_at, id) cursor'ı ile yeniden eskiye döner.
//
// Query parametreleri:
// - before_message_id: bu mesajdan önceki mesajlar (boşsa en yenilerden başla)
// - limit: default 50, max 100
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	page, err := h.messageService.List(r.Context(), user.ID, r.PathValue("id"),
		queryInt(r, "limit"), r.URL.Query().Get("before_message_id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, page)
}

// Send godoc
// POST /api/conversations/{id}/messages
//
//	{ "message_type": "text", "content": { "text": "hi @bob" }, "parent_message_id": null }
//
// Yanıt sunucunun atadığı id ve created_at ile kaydedilen mesajdır.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}
	content, err := req.Decode()
	if err != nil {
		pkg.Error(w, fmt.Errorf("%w: %v", pkg.ErrBadRequest, err))
		return
	}

	msg, err := h.messageService.Append(r.Context(), r.PathValue("id"), user.ID, content, req.ParentMessageID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusCreated, msg)
}

// Edit godoc
// PATCH /api/messages/{id}
// Sadece yazar, sadece text mesaj.
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.EditMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	msg, err := h.messageService.EditText(r.Context(), user.ID, r.PathValue("id"), req.Text)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, msg)
}

// SeenBy godoc
// GET /api/messages/{id}/seen-by
func (h *MessageHandler) SeenBy(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	ids, err := h.messageService.SeenBy(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, map[string][]string{"user_ids": ids})
}
