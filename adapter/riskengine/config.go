// Package riskengine is a pre-trade gate for orders on their way to
// pkg/execution: Evaluate approves and sizes a prospective entry or
// denies it with a reason, and DeniedEvent turns a denial into an
// order.NewDeniedEvent, the same Denied event kind pkg/execution applies
// when it cannot route an order (venue rejections arrive as Rejected
// events instead). cmd/kerneld's demo run calls Evaluate before each
// submission; the reactor's command path does not.
package riskengine

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config mirrors the percentage-of-equity risk controls of the venue's
// original risk manager, generalized from a single-account/single-venue
// bot to the kernel's multi-account, multi-instrument cache.
type Config struct {
	PerTradeRiskPct      decimal.Decimal // fraction of equity risked per trade
	MaxPositionPct       decimal.Decimal // max fraction of equity in one position
	MinPositionSize      decimal.Decimal // floor that a smaller computed size is raised to
	MaxOpenPositions     int
	MaxDailyLossPct      decimal.Decimal
	MinRiskRewardRatio   decimal.Decimal
	MaxConsecutiveLosses int
	CooldownDuration     time.Duration
}

func DefaultConfig() Config {
	return Config{
		PerTradeRiskPct:      decimal.NewFromFloat(0.02),
		MaxPositionPct:       decimal.NewFromFloat(0.25),
		MinPositionSize:      decimal.NewFromInt(1),
		MaxOpenPositions:     5,
		MaxDailyLossPct:      decimal.NewFromFloat(0.05),
		MinRiskRewardRatio:   decimal.NewFromFloat(1.5),
		MaxConsecutiveLosses: 5,
		CooldownDuration:     time.Hour,
	}
}

// ConfigFromEnv overlays DefaultConfig with environment variables (the
// RISK_* names plus MAX_POSITIONS, MAX_DAILY_LOSS_PCT, MIN_RISK_REWARD
// and MAX_CONSECUTIVE_LOSSES), the same names the venue's risk manager
// read.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.PerTradeRiskPct = decimalEnvOr("RISK_PER_TRADE_PCT", cfg.PerTradeRiskPct)
	cfg.MaxPositionPct = decimalEnvOr("RISK_MAX_POSITION_PCT", cfg.MaxPositionPct)
	cfg.MinPositionSize = decimalEnvOr("RISK_MIN_POSITION_SIZE", cfg.MinPositionSize)
	cfg.MaxOpenPositions = intEnvOr("MAX_POSITIONS", cfg.MaxOpenPositions)
	cfg.MaxDailyLossPct = decimalEnvOr("MAX_DAILY_LOSS_PCT", cfg.MaxDailyLossPct)
	cfg.MinRiskRewardRatio = decimalEnvOr("MIN_RISK_REWARD", cfg.MinRiskRewardRatio)
	cfg.MaxConsecutiveLosses = intEnvOr("MAX_CONSECUTIVE_LOSSES", cfg.MaxConsecutiveLosses)
	cfg.CooldownDuration = durationEnvOr("RISK_COOLDOWN", cfg.CooldownDuration)
	return cfg
}

func decimalEnvOr(key string, fallback decimal.Decimal) decimal.Decimal {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fallback
	}
	return d
}

func intEnvOr(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func durationEnvOr(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
