package billing

import (
	"context"
	"time"
)

// ActiveMembers returns the users with at least one period active now.
func (s *service) ActiveMembers(ctx context.Context) ([]string, error) {
	return s.activeMembers(ctx, s.now())
}

func (s *service) ActiveMembersCount(ctx context.Context) (int, error) {
	users, err := s.activeMembers(ctx, s.now())
	return len(users), err
}

// NewMembersCount counts users whose active period was opened by a
// subscription_create payment within the new-member window.
func (s *service) NewMembersCount(ctx context.Context) (int, error) {
	users, err := s.newMembers(ctx, s.now())
	return len(users), err
}

// LostMembersCount counts users with an expired period and no active one.
func (s *service) LostMembersCount(ctx context.Context) (int, error) {
	users, err := s.lostMembers(ctx, s.now())
	return len(users), err
}

// MembersSummary computes the three counts against the same instant.
func (s *service) MembersSummary(ctx context.Context) (MembersSummary, error) {
	now := s.now()

	active, err := s.activeMembers(ctx, now)
	if err != nil {
		return MembersSummary{}, err
	}
	fresh, err := s.newMembers(ctx, now)
	if err != nil {
		return MembersSummary{}, err
	}
	lost, err := s.store.DistinctUsers(ctx, PeriodFilter{EndBefore: now, ExcludeUsers: active})
	if err != nil {
		return MembersSummary{}, wrapStorage(err)
	}

	return MembersSummary{Active: len(active), New: len(fresh), Lost: len(lost), At: now}, nil
}

func (s *service) activeMembers(ctx context.Context, now time.Time) ([]string, error) {
	users, err := s.store.DistinctUsers(ctx, PeriodFilter{
		Status:  PeriodStatusActive,
		EndFrom: now,
	})
	return users, wrapStorage(err)
}

func (s *service) newMembers(ctx context.Context, now time.Time) ([]string, error) {
	users, err := s.store.DistinctUsers(ctx, PeriodFilter{
		Status:        PeriodStatusActive,
		BillingReason: BillingReasonSubscriptionCreate,
		StartFrom:     now.Add(-s.newWindow),
		EndFrom:       now,
	})
	return users, wrapStorage(err)
}

func (s *service) lostMembers(ctx context.Context, now time.Time) ([]string, error) {
	active, err := s.activeMembers(ctx, now)
	if err != nil {
		return nil, err
	}
	users, err := s.store.DistinctUsers(ctx, PeriodFilter{
		EndBefore:    now,
		ExcludeUsers: active,
	})
	return users, wrapStorage(err)
}
