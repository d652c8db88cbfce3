// Package fixedrate is an in-process venue accruing linear interest on
// custodied principal. It backs local development and tests; the pool drives
// it through the same protocol as a real venue.
package fixedrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nolossgames/savings-pool-server/strategy"
	"github.com/shopspring/decimal"
)

var secondsPerYear = decimal.NewFromInt(365 * 24 * 3600)

// Venue accrues interest at a fixed yearly rate. A slippage fraction is
// applied to deposits and redemptions so slippage-guard paths are testable.
type Venue struct {
	mu          sync.Mutex
	owner       string
	now         func() time.Time
	apr         decimal.Decimal
	slippage    decimal.Decimal
	principal   decimal.Decimal
	accrued     decimal.Decimal
	lastAccrual time.Time
	rewards     []strategy.RewardBalance
}

// Option configures a Venue.
type Option func(*Venue)

// WithNow injects the clock.
func WithNow(now func() time.Time) Option {
	return func(v *Venue) { v.now = now }
}

// WithSlippage sets the fraction withheld on each deposit and redemption.
func WithSlippage(f decimal.Decimal) Option {
	return func(v *Venue) { v.slippage = f }
}

// New creates a venue with the given yearly rate.
func New(apr decimal.Decimal, opts ...Option) *Venue {
	v := &Venue{
		apr: apr,
		now: time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	v.lastAccrual = v.now()
	return v
}

// NewFromSettings is the registry factory. Settings: "apr" (decimal, default
// 0.05), "slippage" (fraction, default 0).
func NewFromSettings(settings map[string]string) (strategy.Strategy, error) {
	apr := decimal.NewFromFloat(0.05)
	if s := settings["apr"]; s != "" {
		var err error
		if apr, err = decimal.NewFromString(s); err != nil {
			return nil, fmt.Errorf("fixedrate: bad apr %q: %w", s, err)
		}
	}
	v := New(apr)
	if s := settings["slippage"]; s != "" {
		slip, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("fixedrate: bad slippage %q: %w", s, err)
		}
		v.slippage = slip
	}
	return v, nil
}

// TransferOwnership binds privileged operations to owner, once.
func (v *Venue) TransferOwnership(owner string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.owner != "" {
		return strategy.ErrOwnerBound
	}
	v.owner = owner
	return nil
}

// AddReward credits a reward token balance, standing in for venue incentive
// emissions.
func (v *Venue) AddReward(token string, amount decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.rewards {
		if v.rewards[i].Token == token {
			v.rewards[i].Amount = v.rewards[i].Amount.Add(amount)
			return
		}
	}
	v.rewards = append(v.rewards, strategy.RewardBalance{Token: token, Amount: amount})
}

// accrueLocked folds interest earned since lastAccrual into accrued.
func (v *Venue) accrueLocked() {
	now := v.now()
	elapsed := now.Sub(v.lastAccrual)
	v.lastAccrual = now
	if elapsed <= 0 || v.principal.Sign() <= 0 || v.apr.Sign() <= 0 {
		return
	}
	seconds := decimal.NewFromInt(int64(elapsed / time.Second))
	v.accrued = v.accrued.Add(v.principal.Mul(v.apr).Mul(seconds).Div(secondsPerYear))
}

func (v *Venue) Deposit(ctx context.Context, amount, minReturn decimal.Decimal) (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := strategy.CheckOwner(ctx, v.owner); err != nil {
		return decimal.Zero, err
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("fixedrate: non-positive deposit %s", amount)
	}
	net := amount.Mul(decimal.NewFromInt(1).Sub(v.slippage))
	if net.LessThan(minReturn) {
		return decimal.Zero, strategy.ErrSlippage
	}
	v.accrueLocked()
	v.principal = v.principal.Add(net)
	return net, nil
}

func (v *Venue) Redeem(ctx context.Context, amount, minReturn decimal.Decimal) (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := strategy.CheckOwner(ctx, v.owner); err != nil {
		return decimal.Zero, err
	}
	v.accrueLocked()
	total := v.principal.Add(v.accrued)
	gross := amount
	if gross.Sign() <= 0 || gross.GreaterThan(total) {
		gross = total
	}
	returned := gross.Mul(decimal.NewFromInt(1).Sub(v.slippage))
	if returned.LessThan(minReturn) {
		return decimal.Zero, strategy.ErrSlippage
	}
	remaining := total.Sub(gross)
	v.principal = remaining
	v.accrued = decimal.Zero
	return returned, nil
}

func (v *Venue) TotalAmount(ctx context.Context) (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	// Pure query: compute pending interest without folding it in.
	total := v.principal.Add(v.accrued)
	elapsed := v.now().Sub(v.lastAccrual)
	if elapsed > 0 && v.principal.Sign() > 0 && v.apr.Sign() > 0 {
		seconds := decimal.NewFromInt(int64(elapsed / time.Second))
		total = total.Add(v.principal.Mul(v.apr).Mul(seconds).Div(secondsPerYear))
	}
	return total, nil
}

func (v *Venue) RewardTokens(ctx context.Context) ([]strategy.RewardBalance, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]strategy.RewardBalance, len(v.rewards))
	copy(out, v.rewards)
	return out, nil
}
