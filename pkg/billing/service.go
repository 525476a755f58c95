package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/membership/pkg/logger"
)

// Service is the public API of the billing module: webhook intake, ledger
// writes, per-user status and cross-user reports.
type Service interface {
	// Webhook intake
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	ApplyEvent(ctx context.Context, ev ProviderEvent) error

	// Ledger
	AddSubscription(ctx context.Context, userID, customerID string, period Period) error
	UpdateSubscription(ctx context.Context, userID, customerID string, plan PlanInfo, subscriptionID string) error

	// Per-user status
	ResolveStatus(ctx context.Context, userID string) (UserStatus, error)
	ResolveCurrentInfo(ctx context.Context, userID string) (CurrentInfo, error)

	// Membership reports
	ActiveMembers(ctx context.Context) ([]string, error)
	ActiveMembersCount(ctx context.Context) (int, error)
	NewMembersCount(ctx context.Context) (int, error)
	LostMembersCount(ctx context.Context) (int, error)
	MembersSummary(ctx context.Context) (MembersSummary, error)

	// Financial reports
	TurnoverByPeriod(ctx context.Context, year int, kind PeriodKind) ([]Turnover, error)
	GrowthRate(ctx context.Context, year int, kind PeriodKind, baseline float64) ([]Growth, error)
}

type service struct {
	store       Store
	locker      Locker
	dedup       Deduplicator
	verifier    EventVerifier
	normalizer  *Normalizer
	ledger      *Ledger
	now         func() time.Time
	loc         *time.Location
	newWindow   time.Duration
	maxAttempts int
	log         *slog.Logger
}

// NewService creates a billing Service over store.
// Panics if store is nil to fail fast on misconfiguration.
// Webhook intake needs WithEventVerifier and WithNormalizer.
func NewService(store Store, opts ...ServiceOption) Service {
	if store == nil {
		panic("billing: Store is required")
	}

	s := &service{
		store:       store,
		locker:      NewMemoryLocker(),
		now:         time.Now,
		loc:         time.UTC,
		newWindow:   DefaultNewMemberWindow,
		maxAttempts: 5,
		log:         logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ledger = NewLedger(s.store, s.locker, s.now, s.maxAttempts, s.log)
	return s
}

// HandleWebhook verifies and applies a raw provider webhook.
func (s *service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.verifier == nil {
		return ErrWebhookNotConfigured
	}
	ev, err := s.verifier.Verify(payload, signature)
	if err != nil {
		return err
	}
	return s.ApplyEvent(ctx, ev)
}

// ApplyEvent normalizes a verified provider event and writes it to the ledger.
// Redelivered events and unsupported event types are acknowledged without effect.
func (s *service) ApplyEvent(ctx context.Context, ev ProviderEvent) (err error) {
	if s.normalizer == nil {
		return ErrWebhookNotConfigured
	}

	log := s.log.With(logger.EventID(ev.ID), logger.EventType(ev.Type))

	if s.dedup != nil && ev.ID != "" {
		claimed, claimErr := s.dedup.Claim(ctx, ev.ID)
		if claimErr != nil {
			return claimErr
		}
		if !claimed {
			log.InfoContext(ctx, "duplicate billing event skipped")
			return nil
		}
		defer func() {
			if err == nil {
				return
			}
			// Let the provider redeliver an event we failed to apply.
			if relErr := s.dedup.Release(context.WithoutCancel(ctx), ev.ID); relErr != nil {
				log.WarnContext(ctx, "failed to release billing event claim", logger.Error(relErr))
			}
		}()
	}

	se, err := s.normalizer.Normalize(ctx, ev)
	if errors.Is(err, ErrUnsupportedEvent) {
		log.DebugContext(ctx, "ignoring unsupported billing event")
		return nil
	}
	if err != nil {
		if ev.Type == ProviderInvoicePaymentSucceeded && !IsRetriable(err) {
			// Acknowledged final failures are never redelivered.
			log.ErrorContext(ctx, "payment event dropped, revenue not recorded",
				slog.String("api_version", ev.APIVersion),
				logger.Error(err),
			)
		}
		return err
	}

	log = log.With(
		logger.UserID(se.UserID),
		logger.CustomerID(se.CustomerID),
		logger.SubscriptionID(se.SubscriptionID),
	)

	switch se.Kind {
	case EventPaymentSucceeded:
		err = s.ledger.AddSubscription(ctx, se.UserID, se.CustomerID, se.Period())
	case EventSubscriptionUpdated:
		err = s.ledger.UpdateSubscription(ctx, se.UserID, se.CustomerID, se.PlanInfo, se.SubscriptionID)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedEvent, se.Kind)
	}
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "billing event applied", slog.String("kind", string(se.Kind)))
	return nil
}

func (s *service) AddSubscription(ctx context.Context, userID, customerID string, period Period) error {
	return s.ledger.AddSubscription(ctx, userID, customerID, period)
}

func (s *service) UpdateSubscription(ctx context.Context, userID, customerID string, plan PlanInfo, subscriptionID string) error {
	return s.ledger.UpdateSubscription(ctx, userID, customerID, plan, subscriptionID)
}

// ResolveStatus returns the membership status of the user now.
// Users without a record get no labels and a failed payment status.
func (s *service) ResolveStatus(ctx context.Context, userID string) (UserStatus, error) {
	rec, err := s.record(ctx, userID)
	if err != nil {
		return UserStatus{}, err
	}
	return ResolveStatus(rec, s.now(), s.newWindow), nil
}

// ResolveCurrentInfo returns the subscription the user currently pays for.
func (s *service) ResolveCurrentInfo(ctx context.Context, userID string) (CurrentInfo, error) {
	rec, err := s.record(ctx, userID)
	if err != nil {
		return CurrentInfo{}, err
	}
	return ResolveCurrentInfo(rec, s.now()), nil
}

// record returns nil without error when the user has no record.
func (s *service) record(ctx context.Context, userID string) (*Record, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	rec, err := s.ledger.Record(ctx, userID)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}
	return rec, err
}

// TurnoverByPeriod buckets paid amounts of the report window by kind.
func (s *service) TurnoverByPeriod(ctx context.Context, year int, kind PeriodKind) ([]Turnover, error) {
	if _, err := kind.Labels(year); err != nil {
		return nil, err
	}

	from, to := kind.Window(year, s.loc)
	periods, err := s.store.Periods(ctx, PeriodFilter{
		Status:      PeriodStatusActive,
		StartFrom:   from,
		StartBefore: to,
	})
	if err != nil {
		return nil, wrapStorage(err)
	}
	return BucketTurnover(periods, year, kind, s.loc)
}

// GrowthRate computes growth over the real turnover series of the report.
func (s *service) GrowthRate(ctx context.Context, year int, kind PeriodKind, baseline float64) ([]Growth, error) {
	series, err := s.TurnoverByPeriod(ctx, year, kind)
	if err != nil {
		return nil, err
	}
	return GrowthRates(series, baseline), nil
}
