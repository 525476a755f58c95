package billing

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Transports map them to status codes with errors.Is;
// anything matching none of them is an internal failure.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNoActivePeriod  = errors.New("no active subscription with this subscription id found")
	ErrEventProcessing = errors.New("unable to process billing event")
)

var (
	ErrRecordNotFound   = fmt.Errorf("%w: no subscription found", ErrNotFound)
	ErrCustomerNotFound = fmt.Errorf("%w: customer is not mapped to a user", ErrNotFound)
	ErrProductNotFound  = fmt.Errorf("%w: product not found", ErrNotFound)

	ErrInvalidPeriod  = fmt.Errorf("%w: invalid period", ErrInvalidInput)
	ErrInvalidPayload = fmt.Errorf("%w: malformed event payload", ErrInvalidInput)
	ErrInvalidEvent   = fmt.Errorf("%w: subscription event failed validation", ErrInvalidInput)
	ErrMissingUserID  = fmt.Errorf("%w: user id is required", ErrInvalidInput)

	ErrUnsupportedEvent          = errors.New("unsupported billing event type")
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
	ErrDuplicateEvent            = errors.New("billing event already processed")
	ErrWebhookNotConfigured      = errors.New("webhook processing is not configured")
)

// Storage and coordination errors.
var (
	ErrRecordExists      = errors.New("subscription record already exists")
	ErrVersionConflict   = errors.New("subscription record was modified concurrently")
	ErrStorage           = errors.New("subscription storage error")
	ErrLockNotAcquired   = errors.New("failed to acquire subscription lock")
	ErrTooManyConflicts  = errors.New("gave up after repeated concurrent modifications")
	ErrProviderError     = errors.New("billing provider error")
	ErrMissingAPIKey     = errors.New("billing provider API key is required")
	ErrMissingWebhookKey = errors.New("billing provider webhook secret is required")

	ErrInvalidProviderEnvironment = errors.New("invalid billing provider environment")
)

// IsRetriable reports whether err is a transient failure the event sender
// should retry. Malformed events, unknown customers or products and ledger
// rule violations are final.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for _, transient := range []error{ErrStorage, ErrLockNotAcquired, ErrTooManyConflicts, ErrProviderError} {
		if errors.Is(err, transient) {
			return true
		}
	}
	return false
}
