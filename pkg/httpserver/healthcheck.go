package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/membership/pkg/logger"
)

// Check is a named readiness dependency, such as a database ping.
type Check struct {
	Name string
	Fn   func(context.Context) error
}

// HealthStatus is the body written by health handlers.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

const (
	statusAlive    = "alive"
	statusReady    = "ready"
	statusNotReady = "not_ready"
	checkOK        = "ok"
)

// LivenessHandler reports that the process is serving requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, HealthStatus{Status: statusAlive})
	}
}

// ReadinessHandler runs every check with its own timeout and responds 503
// if any of them fails. Error details are logged, not exposed.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		res := HealthStatus{Status: statusReady, Checks: make(map[string]string, len(checks))}
		code := http.StatusOK

		for _, c := range checks {
			if err := runCheck(r.Context(), timeout, c); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed",
					logger.Component(c.Name),
					logger.Error(err),
				)
				res.Checks[c.Name] = statusNotReady
				res.Status = statusNotReady
				code = http.StatusServiceUnavailable
				continue
			}
			res.Checks[c.Name] = checkOK
		}

		writeHealth(w, code, res)
	}
}

func runCheck(ctx context.Context, timeout time.Duration, c Check) error {
	if c.Fn == nil {
		return nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.Fn(ctx)
}

func writeHealth(w http.ResponseWriter, code int, body HealthStatus) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
