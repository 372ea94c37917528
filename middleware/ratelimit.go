package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/akinalp/huddle/handlers"
	"github.com/akinalp/huddle/pkg"
)

// UserRateLimit, kullanıcı başına REST istek limiti. Auth'tan sonra takılır;
// kullanıcı yoksa IP'ye göre sayar.
func UserRateLimit(requestLimit int, windowLength time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		windowLength,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if user := handlers.UserFromContext(r.Context()); user != nil {
				return "user:" + user.ID, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			pkg.ErrorWithMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
		}),
	)
}
