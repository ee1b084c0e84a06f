package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/teemow/meetscribe/internal/instrumentation"
	"github.com/teemow/meetscribe/internal/logging"
)

// requestLogger logs every request and records it in http_requests_total,
// labelled by route pattern so ids do not explode metric cardinality.
func requestLogger(logger *slog.Logger, metrics *instrumentation.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			duration := time.Since(start)

			metrics.RecordHTTPRequest(r.Context(), r.Method, route, status, duration)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int(logging.KeyStatus, status),
				slog.Duration(logging.KeyDuration, duration),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
