package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/membership/pkg/logger"
)

// Health probe paths mounted by NewRouter.
const (
	LivenessPath  = "/health/live"
	ReadinessPath = "/health/ready"
)

// NewRouter returns the root handler: request id, real ip, panic recovery
// and access logging around the health probes and the api handler at "/".
func NewRouter(api http.Handler, log *slog.Logger, probeTimeout time.Duration, checks ...Check) http.Handler {
	if log == nil {
		log = logger.Discard()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get(LivenessPath, LivenessHandler())
	r.Get(ReadinessPath, ReadinessHandler(log, probeTimeout, checks...))

	if api != nil {
		r.Mount("/", api)
	}
	return r
}

// requestLogger logs one line per request. Probe requests are logged at debug.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				level = slog.LevelError
			case r.URL.Path == LivenessPath || r.URL.Path == ReadinessPath:
				level = slog.LevelDebug
			}

			log.Log(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("remote_addr", r.RemoteAddr),
				logger.Duration(time.Since(start)),
			)
		})
	}
}
