package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full service configuration. Game parameters are fixed at
// startup; the pool treats them as immutable once constructed.
type Config struct {
	Port        int    `env:"PORT" envDefault:"8081"`
	DatabaseURL string `env:"DATABASE_URL"`
	DataDir     string `env:"POOL_DATA_DIR" envDefault:"data"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	AdminAddress string `env:"ADMIN_ADDRESS" envDefault:"admin"`
	AdminSecret  string `env:"ADMIN_SECRET"`

	// Game parameters.
	Asset              string        `env:"POOL_ASSET" envDefault:"DAI"`
	SegmentCount       uint64        `env:"SEGMENT_COUNT" envDefault:"6"`
	SegmentLength      time.Duration `env:"SEGMENT_LENGTH" envDefault:"168h"`
	WaitingRoundLength time.Duration `env:"WAITING_ROUND_LENGTH" envDefault:"168h"`
	PaymentAmount      string        `env:"PAYMENT_AMOUNT" envDefault:"10"`
	MaxFlexibleAmount  string        `env:"MAX_FLEXIBLE_AMOUNT" envDefault:"0"`
	EarlyWithdrawFee   int64         `env:"EARLY_WITHDRAW_FEE_PCT" envDefault:"1"`
	AdminFee           int64         `env:"ADMIN_FEE_PCT" envDefault:"5"`
	MaxPlayers         int           `env:"MAX_PLAYERS" envDefault:"100"`
	FlexiblePayments   bool          `env:"FLEXIBLE_PAYMENTS" envDefault:"false"`
	NativeAsset        bool          `env:"NATIVE_ASSET" envDefault:"false"`
	AllowList          bool          `env:"ALLOW_LIST" envDefault:"false"`

	// Venue selection. "fixedrate" runs the in-process venue; anything else is
	// looked up in the strategy registry (e.g. "venue" for the HTTP adapter).
	VenueID      string `env:"VENUE_ID" envDefault:"fixedrate"`
	VenueURL     string `env:"VENUE_URL"`
	VenueSecret  string `env:"VENUE_SECRET"`
	FixedRateAPR string `env:"FIXED_RATE_APR" envDefault:"0.05"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SegmentCount == 0 {
		return nil, fmt.Errorf("SEGMENT_COUNT must be at least 1")
	}
	if cfg.EarlyWithdrawFee < 0 || cfg.EarlyWithdrawFee > 100 {
		return nil, fmt.Errorf("EARLY_WITHDRAW_FEE_PCT out of range: %d", cfg.EarlyWithdrawFee)
	}
	if cfg.AdminFee < 0 || cfg.AdminFee > 100 {
		return nil, fmt.Errorf("ADMIN_FEE_PCT out of range: %d", cfg.AdminFee)
	}
	return &cfg, nil
}
