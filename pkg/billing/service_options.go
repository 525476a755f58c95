package billing

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithEventVerifier enables HandleWebhook with the given signature verifier.
func WithEventVerifier(v EventVerifier) ServiceOption {
	return func(s *service) {
		if v != nil {
			s.verifier = v
		}
	}
}

// WithNormalizer sets the normalizer used to interpret provider events.
func WithNormalizer(n *Normalizer) ServiceOption {
	return func(s *service) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithLocker replaces the default in-process per-user lock.
// Use a RedisLocker when several instances share one store.
func WithLocker(l Locker) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithDeduplicator enables provider event id deduplication.
func WithDeduplicator(d Deduplicator) ServiceOption {
	return func(s *service) {
		if d != nil {
			s.dedup = d
		}
	}
}

// WithClock overrides the time source. Useful for reports at a fixed instant.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithNewMemberWindow sets how long a new subscription counts as new.
func WithNewMemberWindow(d time.Duration) ServiceOption {
	return func(s *service) {
		if d > 0 {
			s.newWindow = d
		}
	}
}

// WithMaxWriteAttempts bounds optimistic write retries on concurrent modification.
func WithMaxWriteAttempts(n int) ServiceOption {
	return func(s *service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithLocation sets the time zone report buckets are computed in. Default is UTC.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithConfig applies the tunables of cfg. The report time zone is not part of
// it: resolve cfg.Location at startup and pass it to WithLocation.
func WithConfig(cfg Config) ServiceOption {
	return func(s *service) {
		WithNewMemberWindow(cfg.NewMemberWindow)(s)
		WithMaxWriteAttempts(cfg.MaxWriteAttempts)(s)
	}
}
