package riskengine

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"
)

// Request is everything Evaluate needs to gate one prospective entry.
// Callers (cmd/kerneld's demo run, ahead of
// pkg/execution.Engine.SubmitOrder) fill it in: equity from the account
// balance, OpenPositions and HasOpenForSameInstrument from the positions
// they track.
type Request struct {
	ClientOrderId            ident.ClientOrderId
	InstrumentId             ident.InstrumentId
	Entry                    num.Price
	StopLoss                 *num.Price
	TakeProfit               *num.Price
	Equity                   num.Money
	OpenPositions            int
	HasOpenForSameInstrument bool
	QuantityPrecision        uint8
	TsEvent                  int64
}

// Decision is Evaluate's verdict. A denied Decision carries no Size;
// callers turn it into an order.Event via DeniedEvent.
type Decision struct {
	Approved bool
	Size     num.Quantity
	Reason   string
}

// Engine is the centralized pre-trade risk gate, generalized from the
// venue's RiskGate: one circuit breaker plus a sizer, evaluated fresh
// against whatever equity and position counts the caller supplies
// rather than tracking a shadow copy of the cache's position state.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	cb  *circuitBreaker
	sz  *sizer
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		cfg: cfg,
		cb:  newCircuitBreaker(cfg),
		sz:  newSizer(cfg),
	}
	log.Info().
		Str("per_trade_risk_pct", cfg.PerTradeRiskPct.String()).
		Int("max_open_positions", cfg.MaxOpenPositions).
		Str("max_daily_loss_pct", cfg.MaxDailyLossPct.String()).
		Msg("riskengine: engine initialized")
	return e
}

// Evaluate runs every capital-protection check in the order the venue's
// CanEnter did: circuit breaker, position-count limits, then
// risk:reward, before sizing the order.
func (e *Engine) Evaluate(req Request) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	equityDec := req.Equity.Decimal()

	if halted, reason := e.cb.check(equityDec); halted {
		return Decision{Reason: "circuit breaker tripped: " + reason}
	}

	if req.OpenPositions >= e.cfg.MaxOpenPositions {
		return Decision{Reason: "max open positions reached"}
	}

	if req.HasOpenForSameInstrument {
		return Decision{Reason: "position already open for instrument"}
	}

	if req.StopLoss == nil {
		return Decision{Reason: "no stop loss supplied"}
	}

	if req.TakeProfit != nil {
		rr := riskReward(req.Entry, *req.TakeProfit, *req.StopLoss)
		if rr.LessThan(e.cfg.MinRiskRewardRatio) {
			return Decision{Reason: "risk:reward below minimum"}
		}
	}

	size, err := e.sz.calculate(req.Equity, req.Entry, *req.StopLoss, req.QuantityPrecision)
	if err != nil {
		return Decision{Reason: err.Error()}
	}

	return Decision{Approved: true, Size: size}
}

// RecordClose feeds a realized PnL into the circuit breaker's win/loss
// tracking. pnl is signed: negative is a loss, positive or zero a win.
func (e *Engine) RecordClose(pnl num.Money) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := pnl.Decimal()
	if d.IsNegative() {
		e.cb.recordLoss(d)
	} else {
		e.cb.recordWin(d)
	}
}

// ForceReset manually clears the circuit breaker, mirroring the venue's
// operator override.
func (e *Engine) ForceReset() {
	e.cb.forceReset()
}

// Stats reports the circuit breaker's current counters. dailyLoss is
// the running realized PnL for the day, in whatever currency units
// RecordClose was called with; callers that need it as num.Money know
// their own account currency and can wrap it via num.MoneyFromDecimal.
func (e *Engine) Stats() (consecutiveLosses int, dailyLoss decimal.Decimal, tripped bool, reason string) {
	return e.cb.stats()
}

// DeniedEvent turns a rejected Decision into a Denied order.Event, the
// same event kind pkg/execution applies when it cannot route an order.
// A venue-side rejection is a Rejected event, not a Denied one.
func DeniedEvent(req Request, decision Decision) order.Event {
	return order.NewDeniedEvent(req.ClientOrderId, decision.Reason, req.TsEvent)
}
