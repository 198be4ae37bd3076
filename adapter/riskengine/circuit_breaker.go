package riskengine

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// circuitBreaker halts new entries after a string of losses or a daily
// drawdown breach, same trip/cooldown/reset cycle as the venue's
// CircuitBreaker, generalized off a single global account to whatever
// equity the caller passes at Check time.
type circuitBreaker struct {
	mu sync.RWMutex

	maxConsecutiveLosses int
	maxDailyLossPct      decimal.Decimal
	cooldown             time.Duration

	consecutiveLosses int
	dailyLoss         decimal.Decimal
	peakEquity        decimal.Decimal
	tripped           bool
	trippedAt         time.Time
	reason            string

	lastResetDate string
	now           func() time.Time
}

func newCircuitBreaker(cfg Config) *circuitBreaker {
	return &circuitBreaker{
		maxConsecutiveLosses: cfg.MaxConsecutiveLosses,
		maxDailyLossPct:      cfg.MaxDailyLossPct,
		cooldown:             cfg.CooldownDuration,
		now:                  time.Now,
	}
}

// check reports whether trading should currently be halted for the
// given equity, rolling the daily-loss window over on UTC date change.
func (cb *circuitBreaker) check(equity decimal.Decimal) (halted bool, reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	today := cb.now().UTC().Format("2006-01-02")
	if cb.lastResetDate == "" {
		cb.lastResetDate = today
	} else if cb.lastResetDate != today {
		cb.resetLocked()
		cb.lastResetDate = today
	}

	if equity.GreaterThan(cb.peakEquity) {
		cb.peakEquity = equity
	}

	if cb.tripped {
		if cb.now().Sub(cb.trippedAt) > cb.cooldown {
			cb.resetLocked()
			log.Info().Msg("riskengine: circuit breaker reset after cooldown")
			return false, ""
		}
		return true, cb.reason
	}

	if !cb.peakEquity.IsZero() {
		drawdown := cb.dailyLoss.Abs().Div(cb.peakEquity)
		if drawdown.GreaterThan(cb.maxDailyLossPct) {
			cb.tripLocked("max daily loss exceeded")
			return true, cb.reason
		}
	}

	return false, ""
}

func (cb *circuitBreaker) recordLoss(amount decimal.Decimal) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveLosses++
	cb.dailyLoss = cb.dailyLoss.Add(amount)

	if cb.consecutiveLosses >= cb.maxConsecutiveLosses {
		cb.tripLocked("max consecutive losses")
	}
}

func (cb *circuitBreaker) recordWin(amount decimal.Decimal) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveLosses = 0
	cb.dailyLoss = cb.dailyLoss.Add(amount)
}

func (cb *circuitBreaker) tripLocked(reason string) {
	cb.tripped = true
	cb.trippedAt = cb.now()
	cb.reason = reason
	log.Warn().Str("reason", reason).Int("consecutive_losses", cb.consecutiveLosses).
		Str("daily_loss", cb.dailyLoss.StringFixed(2)).Dur("cooldown", cb.cooldown).
		Msg("riskengine: circuit breaker tripped")
}

func (cb *circuitBreaker) resetLocked() {
	cb.consecutiveLosses = 0
	cb.dailyLoss = decimal.Zero
	cb.tripped = false
	cb.reason = ""
}

func (cb *circuitBreaker) isTripped() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.tripped
}

func (cb *circuitBreaker) forceReset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.resetLocked()
}

func (cb *circuitBreaker) stats() (consecutiveLosses int, dailyLoss decimal.Decimal, tripped bool, reason string) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.consecutiveLosses, cb.dailyLoss, cb.tripped, cb.reason
}
