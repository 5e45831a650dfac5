package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

// Middleware limits authenticated callers. A failing store lets requests
// through; the ledger's own checks still apply.
type Middleware struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
}

func New(store Store, limit int, window time.Duration, logger *slog.Logger) *Middleware {
	return &Middleware{store: store, limit: limit, window: window, logger: logger}
}

// PerCaller must run after RequireAuth.
func (m *Middleware) PerCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		caller := requestcontext.Caller(ctx)

		result, err := m.store.AllowN(ctx, "caller:"+caller.String(), 1, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check rate limit",
				"caller", caller,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"caller", caller,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, ExceededResponse{
				Error:      "rate_limit_exceeded",
				Message:    "Too many requests from this account. Please try again later.",
				RetryAfter: result.RetryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
