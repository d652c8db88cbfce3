// Package strategy defines the adapter protocol between the pool and an
// external yield venue. The pool never branches on adapter identity; venue
// selection happens once, by ID, through the Registry.
package strategy

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrSlippage means a deposit or redemption would return less than the
	// caller's minimum. The caller resubmits with an adjusted tolerance.
	ErrSlippage = errors.New("strategy: return below minimum")
	// ErrNotOwner means a privileged call came from anyone but the bound owner.
	ErrNotOwner = errors.New("strategy: caller is not the owner")
	// ErrOwnerBound means ownership was already transferred.
	ErrOwnerBound = errors.New("strategy: ownership already transferred")
)

// RewardBalance is a secondary reward token balance held at the venue.
type RewardBalance struct {
	Token  string          `json:"token"`
	Amount decimal.Decimal `json:"amount"`
}

// Strategy custodies pooled funds at a yield venue.
//
// Deposit and Redeem are privileged: they require the caller identity on the
// context (WithCaller) to match the owner set by TransferOwnership.
// TotalAmount and RewardTokens are pure queries with no side effects.
// Redeem with a zero amount redeems the venue's entire balance.
type Strategy interface {
	Deposit(ctx context.Context, amount, minReturn decimal.Decimal) (net decimal.Decimal, err error)
	Redeem(ctx context.Context, amount, minReturn decimal.Decimal) (returned decimal.Decimal, err error)
	TotalAmount(ctx context.Context) (decimal.Decimal, error)
	RewardTokens(ctx context.Context) ([]RewardBalance, error)
}

// Ownable is implemented by adapters whose privileged operations are bound to
// a single owner. Ownership is transferred to the pool exactly once, before
// any player joins.
type Ownable interface {
	TransferOwnership(owner string) error
}

type callerKey struct{}

// WithCaller tags ctx with the caller identity checked by privileged adapter
// operations.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller identity from ctx, or "".
func CallerFrom(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

// CheckOwner is the shared owner guard for adapters.
func CheckOwner(ctx context.Context, owner string) error {
	if owner == "" || CallerFrom(ctx) != owner {
		return ErrNotOwner
	}
	return nil
}
