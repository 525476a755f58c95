package billing

import (
	"context"
	"slices"
	"time"
)

// Store persists subscription records, one per user.
type Store interface {
	// Find returns the record of the user or ErrRecordNotFound.
	Find(ctx context.Context, userID string) (*Record, error)

	// Create inserts a new record with version 1.
	// Returns ErrRecordExists if the user already has one.
	Create(ctx context.Context, record *Record) error

	// Save replaces the record if its stored version still equals record.Version,
	// then increments record.Version. Returns ErrVersionConflict otherwise.
	Save(ctx context.Context, record *Record) error

	// DistinctUsers returns the ids of users with at least one period matching filter.
	DistinctUsers(ctx context.Context, filter PeriodFilter) ([]string, error)

	// Periods returns every period matching filter across all users.
	Periods(ctx context.Context, filter PeriodFilter) ([]Period, error)
}

// PeriodFilter selects ledger periods. Zero fields are ignored.
// Time bounds are inclusive for *From fields and exclusive for *Before fields.
type PeriodFilter struct {
	Status        PeriodStatus
	BillingReason string
	StartFrom     time.Time
	StartBefore   time.Time
	EndFrom       time.Time
	EndBefore     time.Time
	ExcludeUsers  []string
}

// Match reports whether the period of the given user satisfies the filter.
func (f PeriodFilter) Match(userID string, p Period) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.BillingReason != "" && p.BillingReason != f.BillingReason {
		return false
	}
	if !f.StartFrom.IsZero() && p.StartDate.Before(f.StartFrom) {
		return false
	}
	if !f.StartBefore.IsZero() && !p.StartDate.Before(f.StartBefore) {
		return false
	}
	if !f.EndFrom.IsZero() && p.EndDate.Before(f.EndFrom) {
		return false
	}
	if !f.EndBefore.IsZero() && !p.EndDate.Before(f.EndBefore) {
		return false
	}
	if len(f.ExcludeUsers) > 0 && slices.Contains(f.ExcludeUsers, userID) {
		return false
	}
	return true
}
