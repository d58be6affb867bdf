package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLog collects attributes filled in by middleware deeper in the chain.
// The resolver runs inside the logger's span and attaches the tenant to a
// derived context the logger never sees, so the routing key travels back out
// through this holder instead.
type requestLog struct {
	tenant string
}

type requestLogKey struct{}

func annotateTenant(ctx context.Context, routingKey string) {
	if rl, ok := ctx.Value(requestLogKey{}).(*requestLog); ok {
		rl.tenant = routingKey
	}
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		rl := &requestLog{}
		r = r.WithContext(context.WithValue(r.Context(), requestLogKey{}, rl))

		next.ServeHTTP(rec, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chimiddleware.GetReqID(r.Context()),
		}
		if rl.tenant != "" {
			attrs = append(attrs, "tenant", rl.tenant)
		}
		slog.Info("request", attrs...)
	})
}
