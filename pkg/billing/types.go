package billing

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// EventKind is the normalized billing event type.
type EventKind string

const (
	EventPaymentSucceeded    EventKind = "payment_succeeded"
	EventSubscriptionUpdated EventKind = "subscription_updated"
)

// Provider event names handled by the normalizer.
const (
	ProviderInvoicePaymentSucceeded = "invoice.payment_succeeded"
	ProviderSubscriptionUpdated     = "customer.subscription.updated"
)

// BillingReasonSubscriptionCreate marks the invoice that opened a subscription.
// Renewals and prorations carry other reasons.
const BillingReasonSubscriptionCreate = "subscription_create"

// PeriodStatus is the state of a single ledger period.
type PeriodStatus string

const (
	PeriodStatusActive PeriodStatus = "active"
)

// PlanInfo is a snapshot of the plan the customer paid for.
// Amount is in major currency units (provider minor units divided by 100).
type PlanInfo struct {
	ProductID   string  `bson:"product_id" json:"product_id" validate:"required"`
	Name        string  `bson:"name" json:"name"`
	Description string  `bson:"description" json:"description"`
	PriceID     string  `bson:"price_id" json:"price_id"`
	Amount      float64 `bson:"amount" json:"amount" validate:"gte=0"`
	Currency    string  `bson:"currency" json:"currency" validate:"omitempty,len=3"`
}

// SubscriptionEvent is the canonical form of a provider webhook.
// Treat it as immutable once constructed.
type SubscriptionEvent struct {
	EventID        string    `json:"event_id"`
	Kind           EventKind `json:"kind" validate:"required,oneof=payment_succeeded subscription_updated"`
	UserID         string    `json:"user_id" validate:"required"`
	CustomerID     string    `json:"customer_id" validate:"required"`
	SubscriptionID string    `json:"subscription_id" validate:"required"`
	ChargeID       string    `json:"charge_id,omitempty"`
	PlanInfo       PlanInfo  `json:"plan_info"`
	BillingReason  string    `json:"billing_reason,omitempty"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
}

var validate = validator.New()

// Validate checks the event is complete enough to be applied to the ledger.
// Period boundaries are only required for payment events.
func (e SubscriptionEvent) Validate() error {
	if err := validate.Struct(e); err != nil {
		return errors.Join(ErrInvalidEvent, err)
	}
	if e.Kind == EventPaymentSucceeded {
		if e.StartDate.IsZero() || e.EndDate.IsZero() {
			return errors.Join(ErrInvalidEvent, errors.New("payment event has no period boundaries"))
		}
		if e.EndDate.Before(e.StartDate) {
			return errors.Join(ErrInvalidEvent, errors.New("period ends before it starts"))
		}
	}
	return nil
}

// Period converts a payment event into a new active ledger period.
func (e SubscriptionEvent) Period() Period {
	return Period{
		SubscriptionID: e.SubscriptionID,
		ChargeID:       e.ChargeID,
		PlanInfo:       e.PlanInfo,
		BillingReason:  e.BillingReason,
		StartDate:      e.StartDate,
		EndDate:        e.EndDate,
		Status:         PeriodStatusActive,
		PaidAmount:     e.PlanInfo.Amount,
	}
}

// Period is one entry of a user's subscription ledger.
type Period struct {
	SubscriptionID string       `bson:"subscription_id" json:"subscription_id"`
	ChargeID       string       `bson:"charge_id,omitempty" json:"charge_id,omitempty"`
	PlanInfo       PlanInfo     `bson:"plan_info" json:"plan_info"`
	BillingReason  string       `bson:"billing_reason" json:"billing_reason"`
	StartDate      time.Time    `bson:"start_date" json:"start_date"`
	EndDate        time.Time    `bson:"end_date" json:"end_date"`
	Status         PeriodStatus `bson:"status" json:"status"`
	PaidAmount     float64      `bson:"paid_amount" json:"paid_amount"`
}

// ActiveAt reports whether the period is active and not yet expired at now.
func (p Period) ActiveAt(now time.Time) bool {
	return p.Status == PeriodStatusActive && !p.EndDate.Before(now)
}

// NewAt reports whether the period is active at now and was opened by a
// subscription_create invoice no earlier than now-window.
func (p Period) NewAt(now time.Time, window time.Duration) bool {
	return p.ActiveAt(now) &&
		!p.StartDate.Before(now.Add(-window)) &&
		p.BillingReason == BillingReasonSubscriptionCreate
}

// Record is the per-user subscription document.
// Periods keep arrival order and are never removed.
type Record struct {
	UserID     string    `bson:"user_id" json:"user_id"`
	CustomerID string    `bson:"customer_id" json:"customer_id"`
	Periods    []Period  `bson:"subscriptions" json:"subscriptions"`
	Version    int64     `bson:"version" json:"-"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// ActivePeriod returns the first period active at now.
func (r *Record) ActivePeriod(now time.Time) (*Period, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Periods {
		if r.Periods[i].ActiveAt(now) {
			return &r.Periods[i], true
		}
	}
	return nil, false
}

// clone returns a deep copy so stores never share period slices with callers.
func (r *Record) clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Periods = append([]Period(nil), r.Periods...)
	return &c
}

// MembershipStatus is a status label shown for a user.
type MembershipStatus string

const (
	MembershipNew    MembershipStatus = "New"
	MembershipActive MembershipStatus = "Active"
	MembershipLost   MembershipStatus = "Lost"
)

// PaymentStatus summarizes whether the user currently pays.
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "Success"
	PaymentFailed  PaymentStatus = "Failed"
)

// UserStatus is the point-in-time membership status of a user.
type UserStatus struct {
	Status        []MembershipStatus `json:"status"`
	PaymentStatus PaymentStatus      `json:"payment_status"`
}

// CurrentInfo describes the subscription a user is currently paying for.
type CurrentInfo struct {
	Active         bool    `json:"status"`
	SubscriptionID string  `json:"subscription_id"`
	PlanName       string  `json:"plan_name"`
	ProductID      string  `json:"product_id"`
	Amount         float64 `json:"amount"`
}

// MembersSummary holds the aggregate member counts for one instant.
type MembersSummary struct {
	Active int       `json:"active"`
	New    int       `json:"new"`
	Lost   int       `json:"lost"`
	At     time.Time `json:"at"`
}
