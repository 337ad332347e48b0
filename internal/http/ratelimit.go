package http

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/MrJamesThe3rd/bananas/internal/http/respond"
)

// throttle rejects requests once limiter runs out of tokens. One limiter is
// shared by every caller; the ledger has a single operator dashboard.
func throttle(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "60")
				respond.Fail(w, http.StatusTooManyRequests, respond.CodeRateLimited, "too many imports, try again later")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
