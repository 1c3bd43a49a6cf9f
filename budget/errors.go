/*
errors.go - Error taxonomy for the ledger

ERROR CATEGORIES:
  1. Business outcomes - InvalidInput, InvalidAmount, BucketNotFound,
     InsufficientFunds. Expected, typed, never leave partial state.
  2. Internal failures - storage unavailable or commit failed. The caller
     cannot assume the operation did not apply.

USAGE:
  res, err := engine.Expense(ctx, id, amount, "")
  switch {
  case errors.Is(err, budget.ErrInsufficientFunds):
      // tell the user
  case budget.IsInternal(err):
      // surface loudly
  }
*/
package budget

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for malformed or missing caller-supplied fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAmount is returned for non-positive, non-finite or over-precise amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrBucketNotFound is returned when a referenced bucket doesn't exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrTransactionNotFound is returned when a log lookup misses.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInsufficientFunds is returned when the pool, a bucket or the total
	// balance cannot cover the requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInternal marks storage failures. The atomic-commit guarantee is
	// suspect when this is returned.
	ErrInternal = errors.New("internal failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FundsSource names what ran short.
type FundsSource string

const (
	SourcePool   FundsSource = "pool"
	SourceBucket FundsSource = "bucket"
	SourceTotal  FundsSource = "total"
)

// InsufficientFundsError provides details about a shortage.
type InsufficientFundsError struct {
	Source    FundsSource
	BucketID  BucketID // empty unless Source is SourceBucket
	Available Money
	Requested Money
}

func (e *InsufficientFundsError) Error() string {
	what := "free money"
	switch e.Source {
	case SourceBucket:
		what = fmt.Sprintf("bucket %s", e.BucketID)
	case SourceTotal:
		what = "total balance"
	}
	return fmt.Sprintf("insufficient funds in %s: available %s, requested %s", what, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// BucketNotFoundError names the missing bucket.
type BucketNotFoundError struct {
	ID BucketID
}

func (e *BucketNotFoundError) Error() string { return fmt.Sprintf("bucket not found: %s", e.ID) }
func (e *BucketNotFoundError) Unwrap() error { return ErrBucketNotFound }

// internal wraps a storage failure so both ErrInternal and the cause match.
func internal(op string, err error) error {
	if err == nil || isBusiness(err) || errors.Is(err, ErrInternal) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func isBusiness(err error) bool {
	return IsClientError(err) || IsNotFound(err)
}

// IsClientError returns true for expected business rejections caused by the
// caller's request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientFunds)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound) || errors.Is(err, ErrTransactionNotFound)
}

// IsInternal returns true if the error is a storage failure.
func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

// Code returns a stable machine-readable code for an error.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrBucketNotFound):
		return "bucket_not_found"
	case errors.Is(err, ErrTransactionNotFound):
		return "transaction_not_found"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
