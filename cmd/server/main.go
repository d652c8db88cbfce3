package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nolossgames/savings-pool-server/config"
	"github.com/nolossgames/savings-pool-server/ledger"
	"github.com/nolossgames/savings-pool-server/pool"
	"github.com/nolossgames/savings-pool-server/server"
	"github.com/nolossgames/savings-pool-server/strategy"
	"github.com/nolossgames/savings-pool-server/strategy/fixedrate"
	"github.com/nolossgames/savings-pool-server/strategy/venue"
)

func main() {
	// Load .env so DATABASE_URL and friends are set: cwd .env or project root.
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	registry := strategy.NewRegistry()
	registry.Register("fixedrate", fixedrate.NewFromSettings)
	registry.Register("venue", venue.NewFromSettings)
	strat, err := registry.New(cfg.VenueID, map[string]string{
		"apr":    cfg.FixedRateAPR,
		"url":    cfg.VenueURL,
		"secret": cfg.VenueSecret,
	})
	if err != nil {
		log.Fatal().Err(err).Str("venue", cfg.VenueID).Msg("build strategy")
	}

	payment, err := decimal.NewFromString(cfg.PaymentAmount)
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.PaymentAmount).Msg("parse PAYMENT_AMOUNT")
	}
	maxFlexible, err := decimal.NewFromString(cfg.MaxFlexibleAmount)
	if err != nil {
		log.Fatal().Err(err).Str("value", cfg.MaxFlexibleAmount).Msg("parse MAX_FLEXIBLE_AMOUNT")
	}

	journal := ledger.NewJournal(cfg.DataDir, log)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ledger.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("event table unavailable; file journal only")
	}
	cancel()

	p, err := pool.New(pool.Config{
		Asset:              cfg.Asset,
		SegmentCount:       cfg.SegmentCount,
		SegmentLength:      cfg.SegmentLength,
		WaitingRoundLength: cfg.WaitingRoundLength,
		PaymentAmount:      payment,
		MaxFlexibleAmount:  maxFlexible,
		EarlyWithdrawFee:   cfg.EarlyWithdrawFee,
		AdminFee:           cfg.AdminFee,
		MaxPlayers:         cfg.MaxPlayers,
		Flexible:           cfg.FlexiblePayments,
		NativeAsset:        cfg.NativeAsset,
		AllowList:          cfg.AllowList,
		Admin:              cfg.AdminAddress,
	}, strat, pool.WithSink(pool.LogSink{Log: log}), pool.WithSink(journal))
	if err != nil {
		log.Fatal().Err(err).Msg("build pool")
	}

	log.Info().
		Str("asset", cfg.Asset).
		Uint64("segments", cfg.SegmentCount).
		Str("venue", cfg.VenueID).
		Msg("savings pool server starting")

	srv := server.New(cfg, p, journal, log)
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
