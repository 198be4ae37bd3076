package riskengine

import (
	"github.com/shopspring/decimal"

	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
)

// sizer computes a position size from a fixed fraction of equity risked
// per trade, the venue's "% based compounding position sizing": size =
// (equity * riskPct) / (entry - stop), clamped to [minPosition,
// equity*maxPositionPct/entry].
type sizer struct {
	riskPct     decimal.Decimal
	minPosition decimal.Decimal
	maxPct      decimal.Decimal
}

func newSizer(cfg Config) *sizer {
	return &sizer{
		riskPct:     cfg.PerTradeRiskPct,
		minPosition: cfg.MinPositionSize,
		maxPct:      cfg.MaxPositionPct,
	}
}

// calculate returns the position size, in entry's quantity precision,
// for risking riskPct of equity between entry and stop. stop and entry
// must share a currency frame; callers pass prices already converted to
// the account's quote currency.
func (s *sizer) calculate(equity num.Money, entry, stop num.Price, qtyPrecision uint8) (num.Quantity, error) {
	equityDec := equity.Decimal()
	riskAmount := equityDec.Mul(s.riskPct)

	riskPerUnit := entry.Decimal().Sub(stop.Decimal()).Abs()
	if riskPerUnit.IsZero() {
		return num.QuantityFromDecimal(s.minPosition, qtyPrecision), nil
	}

	size := riskAmount.Div(riskPerUnit)
	size = s.applyConstraints(size, entry.Decimal(), equityDec)

	if size.IsNegative() || size.IsZero() {
		return num.Quantity{}, kernerr.New(kernerr.InvalidInput, "riskengine: computed non-positive size %s", size.String())
	}

	return num.QuantityFromDecimal(size, qtyPrecision), nil
}

func (s *sizer) applyConstraints(size, entryPrice, equity decimal.Decimal) decimal.Decimal {
	if size.LessThan(s.minPosition) {
		return s.minPosition
	}

	maxNotional := equity.Mul(s.maxPct)
	if entryPrice.IsZero() {
		return size
	}
	maxUnits := maxNotional.Div(entryPrice)
	if size.GreaterThan(maxUnits) {
		return maxUnits
	}

	return size
}

// riskReward returns the reward:risk ratio for a target/stop pair
// relative to entry, used by the gate to reject signals below
// MinRiskRewardRatio.
func riskReward(entry, target, stop num.Price) decimal.Decimal {
	reward := target.Decimal().Sub(entry.Decimal()).Abs()
	risk := entry.Decimal().Sub(stop.Decimal()).Abs()
	if risk.IsZero() {
		return decimal.Zero
	}
	return reward.Div(risk)
}
