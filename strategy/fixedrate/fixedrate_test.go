package fixedrate

import (
	"context"
	"testing"
	"time"

	"github.com/nolossgames/savings-pool-server/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func ownedVenue(t *testing.T, apr string, opts ...Option) (*Venue, context.Context) {
	t.Helper()
	v := New(decimal.RequireFromString(apr), opts...)
	require.NoError(t, v.TransferOwnership("pool-1"))
	return v, strategy.WithCaller(context.Background(), "pool-1")
}

func TestOwnerGuard(t *testing.T) {
	v := New(decimal.Zero)
	ctx := strategy.WithCaller(context.Background(), "pool-1")

	// Unbound venue rejects everything privileged.
	_, err := v.Deposit(ctx, decimal.NewFromInt(10), decimal.Zero)
	require.ErrorIs(t, err, strategy.ErrNotOwner)

	require.NoError(t, v.TransferOwnership("pool-1"))
	require.ErrorIs(t, v.TransferOwnership("pool-2"), strategy.ErrOwnerBound)

	_, err = v.Deposit(strategy.WithCaller(context.Background(), "intruder"), decimal.NewFromInt(10), decimal.Zero)
	require.ErrorIs(t, err, strategy.ErrNotOwner)

	_, err = v.Deposit(ctx, decimal.NewFromInt(10), decimal.Zero)
	require.NoError(t, err)
}

func TestDepositRedeem_NoYield(t *testing.T) {
	v, ctx := ownedVenue(t, "0")

	net, err := v.Deposit(ctx, decimal.NewFromInt(10), decimal.Zero)
	require.NoError(t, err)
	require.True(t, net.Equal(decimal.NewFromInt(10)))

	total, err := v.TotalAmount(ctx)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromInt(10)))

	returned, err := v.Redeem(ctx, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.True(t, returned.Equal(decimal.NewFromInt(10)))

	total, err = v.TotalAmount(ctx)
	require.NoError(t, err)
	require.True(t, total.IsZero())
}

func TestAccrual(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	v, ctx := ownedVenue(t, "0.10", WithNow(clock))

	_, err := v.Deposit(ctx, decimal.NewFromInt(1000), decimal.Zero)
	require.NoError(t, err)

	// Half a year at 10% APR on 1000 is 50.
	now = now.Add(365 * 24 * time.Hour / 2)
	total, err := v.TotalAmount(ctx)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromInt(1050)), "got %s", total)

	returned, err := v.Redeem(ctx, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	require.True(t, returned.Equal(decimal.NewFromInt(1050)), "got %s", returned)
}

func TestSlippageGuard(t *testing.T) {
	v, ctx := ownedVenue(t, "0", WithSlippage(decimal.RequireFromString("0.01")))

	// 1% slippage: 10 in, 9.9 credited. A 10 floor must fail.
	_, err := v.Deposit(ctx, decimal.NewFromInt(10), decimal.NewFromInt(10))
	require.ErrorIs(t, err, strategy.ErrSlippage)

	net, err := v.Deposit(ctx, decimal.NewFromInt(10), decimal.RequireFromString("9.9"))
	require.NoError(t, err)
	require.True(t, net.Equal(decimal.RequireFromString("9.9")))

	_, err = v.Redeem(ctx, decimal.Zero, decimal.NewFromInt(10))
	require.ErrorIs(t, err, strategy.ErrSlippage)
}

func TestPartialRedeem(t *testing.T) {
	v, ctx := ownedVenue(t, "0")
	_, err := v.Deposit(ctx, decimal.NewFromInt(30), decimal.Zero)
	require.NoError(t, err)

	returned, err := v.Redeem(ctx, decimal.NewFromInt(9), decimal.Zero)
	require.NoError(t, err)
	require.True(t, returned.Equal(decimal.NewFromInt(9)))

	total, err := v.TotalAmount(ctx)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromInt(21)), "got %s", total)
}

func TestRewards(t *testing.T) {
	v, ctx := ownedVenue(t, "0")
	v.AddReward("CRV", decimal.NewFromInt(5))
	v.AddReward("CRV", decimal.NewFromInt(3))
	v.AddReward("LDO", decimal.NewFromInt(1))

	rewards, err := v.RewardTokens(ctx)
	require.NoError(t, err)
	require.Len(t, rewards, 2)
	require.Equal(t, "CRV", rewards[0].Token)
	require.True(t, rewards[0].Amount.Equal(decimal.NewFromInt(8)))
}

func TestNewFromSettings(t *testing.T) {
	s, err := NewFromSettings(map[string]string{"apr": "0.2", "slippage": "0.001"})
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = NewFromSettings(map[string]string{"apr": "nope"})
	require.Error(t, err)
}
