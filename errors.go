package recur

import "errors"

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("recur: not found")
	ErrAlreadyExists = errors.New("recur: already exists")
	ErrInvalidInput  = errors.New("recur: invalid input")
	ErrUnauthorized  = errors.New("recur: unauthorized")

	// Plan errors
	ErrPlanNotFound    = errors.New("recur: plan not found")
	ErrInvalidInterval = errors.New("recur: interval must be positive")
	ErrNameTooLong     = errors.New("recur: plan name too long")
	ErrPlanInactive    = errors.New("recur: plan is inactive")
	ErrPlanStillActive = errors.New("recur: plan is still active")

	// Subscription errors
	ErrSubscriptionNotFound = errors.New("recur: subscription not found")
	ErrNotActive            = errors.New("recur: subscription is not active")
	ErrSubscriptionExpired  = errors.New("recur: subscription is expired")
	ErrRenewalTooEarly      = errors.New("recur: renewal before billing time")
	ErrOverflow             = errors.New("recur: arithmetic overflow")

	// Ledger errors
	ErrAccountNotFound   = errors.New("recur: account not found")
	ErrInsufficientFunds = errors.New("recur: insufficient funds")

	// Integrity errors
	ErrAddressMismatch = errors.New("recur: record address does not match derivation")

	// Store errors
	ErrStoreNotReady     = errors.New("recur: store not ready")
	ErrStoreClosed       = errors.New("recur: store is closed")
	ErrTransactionFailed = errors.New("recur: transaction failed")
	ErrMigrationFailed   = errors.New("recur: migration failed")
)

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrAccountNotFound)
}

// IsValidation returns true if the error is a rejected-input error: the
// request itself was malformed regardless of current record state.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrNameTooLong)
}

// IsPrecondition returns true if the error means the operation is not valid
// for the record's current state. Retrying without a state change will fail
// the same way; retrying after time passes may succeed (ErrRenewalTooEarly).
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPlanInactive) ||
		errors.Is(err, ErrPlanStillActive) ||
		errors.Is(err, ErrNotActive) ||
		errors.Is(err, ErrSubscriptionExpired) ||
		errors.Is(err, ErrRenewalTooEarly) ||
		errors.Is(err, ErrInsufficientFunds)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
