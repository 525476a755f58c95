package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/membership/pkg/logger"
)

// Ledger owns the write path of the per-user subscription history.
// Each mutation runs under the user's lock and is saved with a version check;
// if another writer got in between, the whole read-modify-write is repeated.
type Ledger struct {
	store       Store
	locker      Locker
	now         func() time.Time
	maxAttempts int
	log         *slog.Logger
}

// NewLedger creates a ledger over store, serializing writes with locker.
func NewLedger(store Store, locker Locker, now func() time.Time, maxAttempts int, log *slog.Logger) *Ledger {
	if store == nil {
		panic("billing: Store is required")
	}
	if locker == nil {
		locker = NewMemoryLocker()
	}
	if now == nil {
		now = time.Now
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Ledger{store: store, locker: locker, now: now, maxAttempts: maxAttempts, log: log}
}

// AddSubscription appends period to the user's history, creating the record
// on the first payment. Periods are appended without deduplication.
func (l *Ledger) AddSubscription(ctx context.Context, userID, customerID string, period Period) error {
	if userID == "" {
		return ErrMissingUserID
	}

	return l.write(ctx, userID, func() error {
		rec, err := l.store.Find(ctx, userID)
		if errors.Is(err, ErrRecordNotFound) {
			return l.store.Create(ctx, &Record{
				UserID:     userID,
				CustomerID: customerID,
				Periods:    []Period{period},
			})
		}
		if err != nil {
			return err
		}

		rec.CustomerID = customerID
		rec.Periods = append(rec.Periods, period)
		return l.store.Save(ctx, rec)
	})
}

// UpdateSubscription replaces the plan of the user's active period that
// belongs to subscriptionID. Nothing else on the period changes.
func (l *Ledger) UpdateSubscription(ctx context.Context, userID, customerID string, plan PlanInfo, subscriptionID string) error {
	if userID == "" {
		return ErrMissingUserID
	}

	return l.write(ctx, userID, func() error {
		rec, err := l.store.Find(ctx, userID)
		if err != nil {
			return err
		}

		now := l.now()
		idx := -1
		for i, p := range rec.Periods {
			if p.SubscriptionID == subscriptionID && p.ActiveAt(now) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrNoActivePeriod
		}

		rec.Periods[idx].PlanInfo = plan
		rec.CustomerID = customerID
		return l.store.Save(ctx, rec)
	})
}

// Record returns the user's record or ErrRecordNotFound.
func (l *Ledger) Record(ctx context.Context, userID string) (*Record, error) {
	rec, err := l.store.Find(ctx, userID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return rec, nil
}

func (l *Ledger) write(ctx context.Context, userID string, fn func() error) error {
	unlock, err := l.locker.Lock(ctx, userID)
	if err != nil {
		return errors.Join(ErrLockNotAcquired, err)
	}
	defer unlock()

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, ErrVersionConflict) && !errors.Is(err, ErrRecordExists) {
			return wrapStorage(err)
		}
		l.log.DebugContext(ctx, "subscription record changed concurrently, retrying",
			logger.UserID(userID),
			logger.Attempt(attempt),
		)
	}
	return errors.Join(ErrTooManyConflicts, err)
}

// wrapStorage passes classified errors through and tags the rest as storage failures.
func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrInvalidInput, ErrNoActivePeriod, ErrStorage} {
		if errors.Is(err, known) {
			return err
		}
	}
	return errors.Join(ErrStorage, err)
}
