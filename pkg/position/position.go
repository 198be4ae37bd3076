// Package position implements the position aggregator: positions
// derived from fills, including flip semantics and realized/unrealized
// PnL.
package position

import (
	"github.com/shopspring/decimal"

	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
)

// Fill is the minimal fill record the aggregator consumes; the execution
// engine builds one of these from each order.Event of kind Filled.
type Fill struct {
	Side          enum.Side
	Price         num.Price
	Quantity      num.Quantity
	LiquiditySide enum.LiquiditySide
	Commission    num.Money
	TsEvent       int64
	OrderId       ident.ClientOrderId
}

// Position is the derived aggregate. Invariants: Side == Flat iff
// SignedQty.IsZero(); |SignedQty| <= PeakQty.
type Position struct {
	Id            ident.PositionId
	InstrumentId  ident.InstrumentId
	AccountId     ident.AccountId
	Multiplier    num.Quantity
	QuoteCurrency num.Currency
	Inverse       bool

	Side     enum.PositionSide
	// SignedQty is positive for Long, negative for Short, zero for Flat,
	// at the instrument's size precision.
	SignedQty num.Quantity
	PeakQty   num.Quantity

	AvgPxOpen  *num.Price
	AvgPxClose *num.Price

	RealizedReturn decimal.Decimal
	RealizedPnl    num.Money
	Commissions    map[string]num.Money

	OpeningOrderId ident.ClientOrderId
	ClosingOrderId *ident.ClientOrderId

	TsOpened int64
	TsClosed *int64
	TsLast   int64
	Duration int64 // ns, valid once TsClosed is set

	sealed bool // set true once flipped away from; further fills must go to the flip's successor
}

// New creates a flat position shell ready to receive its opening fill.
func New(id ident.PositionId, instrumentId ident.InstrumentId, accountId ident.AccountId, multiplier num.Quantity, quoteCurrency num.Currency, inverse bool, sizePrecision uint8) *Position {
	zero := num.NewQuantityRaw(0, sizePrecision)
	return &Position{
		Id:            id,
		InstrumentId:  instrumentId,
		AccountId:     accountId,
		Multiplier:    multiplier,
		QuoteCurrency: quoteCurrency,
		Inverse:       inverse,
		Side:          enum.PositionFlat,
		SignedQty:     zero,
		PeakQty:       zero,
		Commissions:   make(map[string]num.Money),
		RealizedPnl:   num.ZeroMoney(quoteCurrency),
	}
}

func (p *Position) IsFlat() bool  { return p.Side == enum.PositionFlat }
func (p *Position) IsOpen() bool  { return p.Side != enum.PositionFlat }
func (p *Position) IsSealed() bool { return p.sealed }

func (p *Position) accumulateCommission(m num.Money) {
	code := m.Currency.Code
	if existing, ok := p.Commissions[code]; ok {
		p.Commissions[code] = existing.Add(m)
	} else {
		p.Commissions[code] = m
	}
}

// signedFillQty returns the fill quantity signed by side: positive for a
// buy, negative for a sell.
func signedFillQty(f Fill) num.Quantity {
	if f.Side == enum.SideSell {
		return num.NewQuantityRaw(-f.Quantity.Raw(), f.Quantity.Precision())
	}
	return f.Quantity
}

// FlipResult carries the closed original (sealed) and the newly opened
// residual position when a fill flips the position.
type FlipResult struct {
	Closed *Position
	Opened *Position
}

// ApplyFill updates the position from one fill. If the fill's
// quantity exceeds the current absolute quantity on the opposite side, the
// position flips: ApplyFill seals p (closing it) and returns a
// FlipResult whose Opened field is the fresh residual position, built via
// newPositionId (normally ident.PositionIdGenerator.Generate(instrument,
// true)). flip is nil unless a flip occurred.
func (p *Position) ApplyFill(f Fill, newPositionId func() ident.PositionId) (flip *FlipResult, err error) {
	if p.sealed {
		return nil, kernerr.New(kernerr.InvariantViolation, "position: %s is sealed, fills must route to its successor", p.Id.String())
	}

	signed := signedFillQty(f)

	if p.IsFlat() {
		p.open(f, signed)
		return nil, nil
	}

	sameDirection := (p.SignedQty.Raw() > 0) == (signed.Raw() > 0)
	if sameDirection {
		p.add(f, signed)
		return nil, nil
	}

	currentAbs := p.SignedQty.Abs()
	fillAbs := f.Quantity

	if fillAbs.LessEq(currentAbs) {
		p.reduce(f)
		return nil, nil
	}

	return p.flip(f, newPositionId)
}

func (p *Position) open(f Fill, signed num.Quantity) {
	p.Side = enum.SideToPositionSide(f.Side)
	p.SignedQty = signed
	p.PeakQty = f.Quantity
	p.AvgPxOpen = &f.Price
	p.OpeningOrderId = f.OrderId
	p.TsOpened = f.TsEvent
	p.TsLast = f.TsEvent
	p.accumulateCommission(f.Commission)
}

func (p *Position) add(f Fill, signed num.Quantity) {
	prevAbs := p.SignedQty.Abs()
	newSigned := p.SignedQty.Add(signed)
	newAbs := newSigned.Abs()

	weighted := p.AvgPxOpen.Decimal().Mul(prevAbs.Decimal()).Add(f.Price.Decimal().Mul(f.Quantity.Decimal()))
	newAvg := num.PriceFromDecimal(weighted.Div(newAbs.Decimal()), p.AvgPxOpen.Precision())

	p.SignedQty = newSigned
	p.AvgPxOpen = &newAvg
	if newAbs.Greater(p.PeakQty) {
		p.PeakQty = newAbs
	}
	p.TsLast = f.TsEvent
	p.accumulateCommission(f.Commission)
}

// reduce closes part or all of the position at f.Price, realizing PnL
// for the closed quantity.
func (p *Position) reduce(f Fill) {
	closedQty := f.Quantity
	pnl := p.realizedPnlFor(closedQty, f.Price)
	p.RealizedPnl = p.RealizedPnl.Add(pnl)

	notional := p.AvgPxOpen.Decimal().Mul(closedQty.Decimal()).Mul(p.Multiplier.Decimal())
	if !notional.IsZero() {
		p.RealizedReturn = p.RealizedReturn.Add(pnl.Decimal().Div(notional))
	}

	signed := signedFillQty(f)
	p.SignedQty = p.SignedQty.Add(signed)
	p.TsLast = f.TsEvent
	p.accumulateCommission(f.Commission)

	if p.AvgPxClose == nil {
		avg := f.Price
		p.AvgPxClose = &avg
	} else {
		// vwap over all closing fills, weighted by closed quantity so far.
		prevClosed := p.PeakQty.Sub(p.SignedQty.Abs()).Sub(closedQty)
		weighted := p.AvgPxClose.Decimal().Mul(prevClosed.Decimal()).Add(f.Price.Decimal().Mul(closedQty.Decimal()))
		totalClosed := prevClosed.Add(closedQty)
		newAvg := num.PriceFromDecimal(weighted.Div(totalClosed.Decimal()), p.AvgPxClose.Precision())
		p.AvgPxClose = &newAvg
	}

	if p.SignedQty.IsZero() {
		p.Side = enum.PositionFlat
		p.ClosingOrderId = &f.OrderId
		ts := f.TsEvent
		p.TsClosed = &ts
		p.Duration = ts - p.TsOpened
	}
}

// flip splits the fill atomically: the portion that closes the current
// position is realized via reduce(), then the current position is sealed
// and a fresh one is opened on the opposite side with the residual.
func (p *Position) flip(f Fill, newPositionId func() ident.PositionId) (*FlipResult, error) {
	currentAbs := p.SignedQty.Abs()
	residual := f.Quantity.Sub(currentAbs)

	closingPortion := f
	closingPortion.Quantity = currentAbs
	p.reduce(closingPortion)
	p.sealed = true

	opened := New(newPositionId(), p.InstrumentId, p.AccountId, p.Multiplier, p.QuoteCurrency, p.Inverse, residual.Precision())
	residualFill := f
	residualFill.Quantity = residual
	opened.open(residualFill, signedFillQty(residualFill))

	return &FlipResult{Closed: p, Opened: opened}, nil
}

// realizedPnlFor computes the realized PnL for closing closedQty at
// closePrice against the position's current avg open price.
func (p *Position) realizedPnlFor(closedQty num.Quantity, closePrice num.Price) num.Money {
	var perUnit decimal.Decimal
	if p.Inverse {
		perUnit = decimal.NewFromInt(1).Div(p.AvgPxOpen.Decimal()).Sub(decimal.NewFromInt(1).Div(closePrice.Decimal()))
	} else {
		perUnit = closePrice.Decimal().Sub(p.AvgPxOpen.Decimal())
	}
	if p.Side == enum.PositionShort {
		perUnit = perUnit.Neg()
	}
	amount := perUnit.Mul(closedQty.Decimal()).Mul(p.Multiplier.Decimal())
	return num.NewMoneyRaw(amount.Shift(int32(p.QuoteCurrency.Precision)).Round(0).IntPart(), p.QuoteCurrency)
}

// UnrealizedPnl computes the mark-to-market PnL at mark. Returns zero
// Money if the position is flat.
func (p *Position) UnrealizedPnl(mark num.Price) num.Money {
	if p.IsFlat() {
		return num.ZeroMoney(p.QuoteCurrency)
	}
	var perUnit decimal.Decimal
	if p.Inverse {
		perUnit = decimal.NewFromInt(1).Div(p.AvgPxOpen.Decimal()).Sub(decimal.NewFromInt(1).Div(mark.Decimal()))
	} else {
		perUnit = mark.Decimal().Sub(p.AvgPxOpen.Decimal())
	}
	// SignedQty is negative for shorts, so perUnit*SignedQty already
	// carries the correct sign without a separate short-side negation.
	amount := perUnit.Mul(p.SignedQty.Decimal()).Mul(p.Multiplier.Decimal())
	return num.NewMoneyRaw(amount.Shift(int32(p.QuoteCurrency.Precision)).Round(0).IntPart(), p.QuoteCurrency)
}

// NetPnl returns realized PnL minus commissions in currency. Commission
// currency-conversion (xrate table) lives in the cache and is applied
// by the caller before calling this with a single already-converted
// total.
func (p *Position) NetPnl(commissionsInQuoteCcy num.Money) num.Money {
	return p.RealizedPnl.Sub(commissionsInQuoteCcy)
}
