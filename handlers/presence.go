package handlers

import (
	"net/http"
	"strings"

	"github.com/akinalp/huddle/models"
	"github.com/akinalp/huddle/pkg"
)

// maxPresenceQuery, tek istekte sorgulanabilecek kullanıcı sayısı.
const maxPresenceQuery = 200

// PresenceReader, anlık presence durumları. services.PresenceTracker bunu karşılar.
type PresenceReader interface {
	Get(userIDs []string) []models.PresenceState
}

// PresenceHandler, presence sorgu endpoint'i. Değişiklikler WebSocket üzerinden gelir.
type PresenceHandler struct {
	presence PresenceReader
}

func NewPresenceHandler(presence PresenceReader) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// Get godoc
// GET /api/presence?user_ids=a,b
func (h *PresenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("user_ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "user_ids is required")
		return
	}
	if len(ids) > maxPresenceQuery {
		ids = ids[:maxPresenceQuery]
	}

	pkg.JSON(w, http.StatusOK, h.presence.Get(ids))
}
