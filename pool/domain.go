// Package pool implements the savings game engine: the segment clock, the
// player registry, the aggregate ledgers, and the single redemption of
// custodied funds from the external venue.
package pool

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the derived lifecycle state of the game.
type Status string

const (
	StatusNotInitialized Status = "not_initialized"
	StatusOpen           Status = "open"
	StatusWaitingRound   Status = "waiting_round"
	StatusCompleted      Status = "completed"
)

// Config fixes the game parameters. Immutable once the pool is constructed.
type Config struct {
	Asset              string
	SegmentCount       uint64 // N deposit segments, numbered 0..N-1
	SegmentLength      time.Duration
	WaitingRoundLength time.Duration
	PaymentAmount      decimal.Decimal // fixed payment; ignored when Flexible
	MaxFlexibleAmount  decimal.Decimal // ceiling for flexible payments
	EarlyWithdrawFee   int64           // percent, 0..100
	AdminFee           int64           // percent of interest, 0..100
	MaxPlayers         int
	Flexible           bool
	NativeAsset        bool
	AllowList          bool
	Admin              string
}

func (c Config) Validate() error {
	if c.SegmentCount == 0 {
		return errors.New("segment count must be at least 1")
	}
	if c.SegmentLength <= 0 {
		return errors.New("segment length must be positive")
	}
	if c.WaitingRoundLength < 0 {
		return errors.New("waiting round length must not be negative")
	}
	if c.EarlyWithdrawFee < 0 || c.EarlyWithdrawFee > 100 {
		return fmt.Errorf("early withdraw fee out of range: %d", c.EarlyWithdrawFee)
	}
	if c.AdminFee < 0 || c.AdminFee > 100 {
		return fmt.Errorf("admin fee out of range: %d", c.AdminFee)
	}
	if c.MaxPlayers <= 0 {
		return errors.New("max players must be positive")
	}
	if !c.Flexible && c.PaymentAmount.Sign() <= 0 {
		return errors.New("fixed payment amount must be positive")
	}
	if c.Flexible && c.MaxFlexibleAmount.Sign() <= 0 {
		return errors.New("flexible payment ceiling must be positive")
	}
	if c.Admin == "" {
		return errors.New("admin address is required")
	}
	return nil
}

// Player is one active entry in the registry. An early exit removes the entry;
// a later re-join under the same address starts a fresh one.
type Player struct {
	Address               string          `json:"address"`
	AmountPaid            decimal.Decimal `json:"amount_paid"`
	NetAmountPaid         decimal.Decimal `json:"net_amount_paid"`
	MostRecentSegmentPaid uint64          `json:"most_recent_segment_paid"`
	PaidCount             uint64          `json:"paid_count"`
	Withdrawn             bool            `json:"withdrawn"`
	JoinedAt              time.Time       `json:"joined_at"`
}

// RedemptionResult is latched exactly once when funds are pulled back from the
// venue.
type RedemptionResult struct {
	TotalAmountRecovered   decimal.Decimal `json:"total_amount_recovered"`
	NetPrincipal           decimal.Decimal `json:"net_principal"` // snapshot at redemption
	TotalGameInterest      decimal.Decimal `json:"total_game_interest"`
	AdminFeeAmount         decimal.Decimal `json:"admin_fee_amount"`
	PerWinnerInterestShare decimal.Decimal `json:"per_winner_interest_share"`
	WinnerCount            int             `json:"winner_count"`
	Shortfall              bool            `json:"shortfall"`
	RewardTotals           []RewardSplit   `json:"reward_totals,omitempty"`
	RedeemedAt             time.Time       `json:"redeemed_at"`
}

// RewardSplit is the latched division of one reward token balance.
type RewardSplit struct {
	Token          string          `json:"token"`
	Total          decimal.Decimal `json:"total"`
	AdminShare     decimal.Decimal `json:"admin_share"`
	PerWinnerShare decimal.Decimal `json:"per_winner_share"`
}

// Precondition, authorization, and lifecycle errors. Slippage errors surface
// from the strategy package unchanged.
var (
	ErrNotInitialized     = errors.New("pool: game not initialized")
	ErrAlreadyInitialized = errors.New("pool: game already initialized")
	ErrNotAdmin           = errors.New("pool: caller is not the admin")
	ErrGameFull           = errors.New("pool: game is full")
	ErrAlreadyJoined      = errors.New("pool: address already has an active entry")
	ErrNotAllowlisted     = errors.New("pool: address not on the allow list")
	ErrWrongSegment       = errors.New("pool: operation not allowed in the current segment")
	ErrInvalidPayment     = errors.New("pool: invalid payment amount")
	ErrNotJoined          = errors.New("pool: no active entry for address")
	ErrAlreadyPaid        = errors.New("pool: current segment already paid")
	ErrGameCompleted      = errors.New("pool: game already completed")
	ErrGameNotCompleted   = errors.New("pool: game not yet completed")
	ErrAlreadyWithdrawn   = errors.New("pool: already withdrawn")
	ErrBelowExpected      = errors.New("pool: payout below expected amount")
	ErrMerkleRootRequired = errors.New("pool: allow-listed game requires a valid merkle root")
	ErrNegativeIncentive  = errors.New("pool: negative incentive amount")
)
