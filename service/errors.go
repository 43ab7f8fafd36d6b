package service

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrInsufficientFunds is returned when a debit would take a balance below zero
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientPoolFunds is the pool-side variant of ErrInsufficientFunds
	ErrInsufficientPoolFunds = fmt.Errorf("%w: community pool", ErrInsufficientFunds)

	ErrAlreadyEntered      = errors.New("already entered")
	ErrAlreadyClaimedToday = errors.New("daily reward already claimed today")

	// ErrInvalidState is returned for operations on a giveaway in a terminal state
	ErrInvalidState = errors.New("invalid state")

	ErrNotFound   = errors.New("not found")
	ErrExcluded   = errors.New("excluded from giveaway")
	ErrClosed     = errors.New("giveaway is closed")
	ErrNotDue     = errors.New("giveaway has not reached its end time")
	ErrOutOfStock = errors.New("out of stock")

	// ErrDuplicateTransfer is returned when an idempotency key was already used
	ErrDuplicateTransfer = errors.New("duplicate transfer")

	// ErrStoreUnavailable wraps failures to reach the persistent store
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvariantViolation marks a state that must never be observed
	ErrInvariantViolation = errors.New("invariant violation")

	ErrInvalidAmount = errors.New("amount must be positive")
)

// DailyCooldownError is returned by a second daily claim on the same UTC day
type DailyCooldownError struct {
	NextEligibleAt time.Time
}

func (e *DailyCooldownError) Error() string {
	return fmt.Sprintf("%s, next claim at %s", ErrAlreadyClaimedToday, e.NextEligibleAt.Format(time.RFC3339))
}

func (e *DailyCooldownError) Is(target error) bool {
	return target == ErrAlreadyClaimedToday
}

// reportInvariantViolation logs a violation for an operator and returns it
// wrapped so the enclosing transaction is rolled back.
func reportInvariantViolation(fields log.Fields, format string, args ...any) error {
	err := fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
	fields["operator_attention"] = true
	log.WithFields(fields).WithError(err).Error("Economy invariant violated")
	return err
}
