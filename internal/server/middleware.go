package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tartampluch/remindme/internal/config"
	"github.com/tartampluch/remindme/internal/metrics"
)

// logging writes one structured line per request.
func logging(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info(config.MsgRequest,
				slog.String(config.LogKeyMethod, r.Method),
				slog.String(config.LogKeyPath, r.URL.Path),
				slog.Int(config.LogKeyStatus, status(ww)),
				slog.Int64(config.LogKeyDuration, time.Since(start).Milliseconds()),
				slog.String(config.LogKeyReqID, chimiddleware.GetReqID(r.Context())),
				slog.String(config.LogKeyRemote, r.RemoteAddr),
				slog.String(config.LogKeyUA, r.UserAgent()),
			)
		})
	}
}

// instrument records request metrics labelled by route pattern, which keeps
// ids out of the label values.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		metrics.ObserveRequest(r.Method, path, status(ww), time.Since(start))
	})
}

// status defaults to 200 for handlers that never call WriteHeader.
func status(ww chimiddleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}

func corsHandler() func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: config.CORSOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			config.HeaderContentType, config.HeaderRequestID,
			config.HeaderAcceptLanguage, config.HeaderIfNoneMatch,
		},
		ExposedHeaders:   []string{config.HeaderRequestID, config.HeaderETag},
		AllowCredentials: true,
		MaxAge:           config.CORSMaxAge,
	})
}
