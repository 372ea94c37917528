package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/akinalp/huddle/pkg"
)

// SessionCounter, açık gateway oturumu sayısı. ws.Hub bunu karşılar.
type SessionCounter interface {
	SessionCount() int
}

// HealthHandler, GET /api/health.
type HealthHandler struct {
	db       *sql.DB
	sessions SessionCounter
}

func NewHealthHandler(db *sql.DB, sessions SessionCounter) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions}
}

// Check godoc
// GET /api/health
// Veritabanına ulaşılamıyorsa 503 döner.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		pkg.ErrorWithMessage(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.sessions.SessionCount(),
	})
}
