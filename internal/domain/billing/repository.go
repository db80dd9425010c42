package billing

import (
	"context"
	"errors"
)

// ErrInsufficientCredits reports a deduction against an empty balance.
var ErrInsufficientCredits = errors.New("insufficient credits")

// Repository exposes credit balance access for user accounts.
type Repository interface {
	// IncrementCredits atomically adds delta to the account balance,
	// creating the account row with that balance when it does not exist.
	IncrementCredits(ctx context.Context, uid string, delta int64) error
	// DeductCredit atomically removes one credit and returns the remaining
	// balance, failing with ErrInsufficientCredits at zero.
	DeductCredit(ctx context.Context, uid string) (int64, error)
	// Credits returns the current balance; missing accounts report zero.
	Credits(ctx context.Context, uid string) (int64, error)
}
