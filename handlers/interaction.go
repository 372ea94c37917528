package handlers

import (
	"net/http"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
	"github.com/akinalp/huddle/services"
)

// InteractionHandler, reaction / pin / anket oyu / RSVP endpoint'leri.
// Hepsi mesaj üzerinde yan tablo durumu değiştirir, ledger'a yazmaz.
type InteractionHandler struct {
	reactionService services.ReactionService
	pinService      services.PinService
	pollService     services.PollService
	rsvpService     services.RSVPService
}

func NewInteractionHandler(
	reactionService services.ReactionService,
	pinService services.PinService,
	pollService services.PollService,
	rsvpService services.RSVPService,
) *InteractionHandler {
	return &InteractionHandler{
		reactionService: reactionService,
		pinService:      pinService,
		pollService:     pollService,
		rsvpService:     rsvpService,
	}
}

// ToggleReaction godoc
// POST /api/messages/{id}/reactions
//
//	{ "emoji": "👍" }
//
// Emoji body'de gönderilir (URL path'te encoding sorunu olmasın).
func (h *InteractionHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.ToggleReactionRequest
	if err := decodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	groups, err := h.reactionService.ToggleReaction(r.Context(), r.PathValue("id"), user.ID, req.Emoji)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, groups)
}

// ListPins godoc
// GET /api/conversations/{id}/pins
func (h *InteractionHandler) ListPins(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	pins, err := h.pinService.ListPins(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, pins)
}

// TogglePin godoc
// POST /api/conversations/{id}/pins/{messageId}
func (h *InteractionHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	conversationID := r.PathValue("id")
	messageID := r.PathValue("messageId")
	pinned, err := h.pinService.TogglePin(r.Context(), conversationID, messageID, user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, models.PinUpdate{
		ConversationID: conversationID,
		MessageID:      messageID,
		Pinned:         pinned,
		ActorID:        user.ID,
	})
}

// Vote godoc
// POST /api/messages/{id}/votes
//
//	{ "option_index": 1 }
func (h *InteractionHandler) Vote(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.VotePollRequest
	if err := decodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}
	if req.OptionIndex == nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "option_index is required")
		return
	}

	tally, err := h.pollService.VoteOnPoll(r.Context(), r.PathValue("id"), user.ID, *req.OptionIndex)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, tally)
}

// RSVP godoc
// POST /api/messages/{id}/rsvp
//
//	{ "status": "going" | "maybe" | "declined" }
func (h *InteractionHandler) RSVP(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.RSVPRequest
	if err := decodeJSON(r, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	tally, err := h.rsvpService.RSVPToEvent(r.Context(), r.PathValue("id"), user.ID, req.Status)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	pkg.JSON(w, http.StatusOK, tally)
}
