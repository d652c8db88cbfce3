package venue

import (
	"context"
	"fmt"
	"sync"

	"github.com/nolossgames/savings-pool-server/strategy"
	"github.com/shopspring/decimal"
)

// Adapter implements the strategy protocol over the vault REST client.
// The venue reports net amounts; the adapter enforces the caller's minimum on
// top of whatever the venue enforces server-side, so a lenient venue cannot
// under-deliver silently.
type Adapter struct {
	mu     sync.Mutex
	owner  string
	client *Client
}

func New(client *Client) *Adapter {
	return &Adapter{client: client}
}

// NewFromSettings is the registry factory. Settings: "url", "secret".
func NewFromSettings(settings map[string]string) (strategy.Strategy, error) {
	url := settings["url"]
	if url == "" {
		return nil, fmt.Errorf("venue: url is required")
	}
	return New(NewClient(url, settings["secret"])), nil
}

func (a *Adapter) TransferOwnership(owner string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.owner != "" {
		return strategy.ErrOwnerBound
	}
	a.owner = owner
	return nil
}

func (a *Adapter) checkOwner(ctx context.Context) error {
	a.mu.Lock()
	owner := a.owner
	a.mu.Unlock()
	return strategy.CheckOwner(ctx, owner)
}

func (a *Adapter) Deposit(ctx context.Context, amount, minReturn decimal.Decimal) (decimal.Decimal, error) {
	if err := a.checkOwner(ctx); err != nil {
		return decimal.Zero, err
	}
	net, err := a.client.Deposit(ctx, amount, minReturn)
	if err != nil {
		return decimal.Zero, err
	}
	if net.LessThan(minReturn) {
		return decimal.Zero, strategy.ErrSlippage
	}
	return net, nil
}

func (a *Adapter) Redeem(ctx context.Context, amount, minReturn decimal.Decimal) (decimal.Decimal, error) {
	if err := a.checkOwner(ctx); err != nil {
		return decimal.Zero, err
	}
	returned, err := a.client.Redeem(ctx, amount, minReturn)
	if err != nil {
		return decimal.Zero, err
	}
	if returned.LessThan(minReturn) {
		return decimal.Zero, strategy.ErrSlippage
	}
	return returned, nil
}

func (a *Adapter) TotalAmount(ctx context.Context) (decimal.Decimal, error) {
	return a.client.Balance(ctx)
}

func (a *Adapter) RewardTokens(ctx context.Context) ([]strategy.RewardBalance, error) {
	entries, err := a.client.Rewards(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]strategy.RewardBalance, 0, len(entries))
	for _, e := range entries {
		out = append(out, strategy.RewardBalance{Token: e.Token, Amount: e.Amount})
	}
	return out, nil
}
