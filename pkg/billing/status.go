package billing

import (
	"slices"
	"time"
)

// DefaultNewMemberWindow is how long after a subscription_create payment a
// member still counts as new.
const DefaultNewMemberWindow = 30 * 24 * time.Hour

// ResolveStatus derives the membership labels and payment status of a user at now.
// A nil record means the user never paid and yields no labels.
func ResolveStatus(rec *Record, now time.Time, newWindow time.Duration) UserStatus {
	if rec == nil {
		return UserStatus{Status: []MembershipStatus{}, PaymentStatus: PaymentFailed}
	}

	isActive := slices.ContainsFunc(rec.Periods, func(p Period) bool { return p.ActiveAt(now) })
	isNew := slices.ContainsFunc(rec.Periods, func(p Period) bool { return p.NewAt(now, newWindow) })

	switch {
	case isActive && isNew:
		return UserStatus{Status: []MembershipStatus{MembershipNew, MembershipActive}, PaymentStatus: PaymentSuccess}
	case isNew:
		return UserStatus{Status: []MembershipStatus{MembershipNew}, PaymentStatus: PaymentSuccess}
	case isActive:
		return UserStatus{Status: []MembershipStatus{MembershipActive}, PaymentStatus: PaymentSuccess}
	default:
		return UserStatus{Status: []MembershipStatus{MembershipLost}, PaymentStatus: PaymentFailed}
	}
}

// ResolveCurrentInfo describes the first period active at now, if any.
func ResolveCurrentInfo(rec *Record, now time.Time) CurrentInfo {
	p, ok := rec.ActivePeriod(now)
	if !ok {
		return CurrentInfo{}
	}
	return CurrentInfo{
		Active:         true,
		SubscriptionID: p.SubscriptionID,
		PlanName:       p.PlanInfo.Name,
		ProductID:      p.PlanInfo.ProductID,
		Amount:         p.PaidAmount,
	}
}
