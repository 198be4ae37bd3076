// Package order implements the order state machine: typed order
// variants over a shared intrinsic Base, a total transition function
// over enum.OrderStatus, and an append-only event log.
package order

import (
	"github.com/shopspring/decimal"

	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
)

// Base holds every attribute common to all order variants. Variants
// that don't use a field (e.g. Price on a Market order) simply leave it
// nil/zero; Type() tells callers which fields are meaningful, the same
// discriminated-union shape pkg/instrument uses.
type Base struct {
	ClientOrderId ident.ClientOrderId
	VenueOrderId  *ident.VenueOrderId
	StrategyId    ident.StrategyId
	InstrumentId  ident.InstrumentId
	AccountId     *ident.AccountId

	Side     enum.Side
	Quantity num.Quantity

	FilledQty num.Quantity
	AvgPx     *num.Price

	Price              *num.Price // limit price; nil for Market-family orders
	TriggerPrice       *num.Price // stop/if-touched trigger; nil otherwise
	TrailingOffset     *decimal.Decimal
	TrailingOffsetType enum.TrailingOffsetType

	TimeInForce  enum.TimeInForce
	ExpireTimeNs *int64

	PostOnly      bool
	ReduceOnly    bool
	QuoteQuantity bool

	Status enum.OrderStatus

	ExecAlgorithmId *ident.ExecAlgorithmId
	ParentOrderId   *ident.ClientOrderId
	LinkedOrderIds  []ident.ClientOrderId

	Commissions map[string]num.Money // by currency code

	Events []Event

	TsInit      int64
	TsLastEvent int64

	preAmendStatus enum.OrderStatus // saved on entry to PendingUpdate/PendingCancel
}

func newBase(clientOrderId ident.ClientOrderId, strategyId ident.StrategyId, instrumentId ident.InstrumentId, side enum.Side, quantity num.Quantity, timeInForce enum.TimeInForce, tsInit int64) Base {
	return Base{
		ClientOrderId: clientOrderId,
		StrategyId:    strategyId,
		InstrumentId:  instrumentId,
		Side:          side,
		Quantity:      quantity,
		FilledQty:     num.NewQuantityRaw(0, quantity.Precision()),
		TimeInForce:   timeInForce,
		Status:        enum.OrderStatusInitialized,
		Commissions:   make(map[string]num.Money),
		TsInit:        tsInit,
		TsLastEvent:   tsInit,
	}
}

// LeavesQty is the unfilled remainder.
func (b *Base) LeavesQty() num.Quantity { return b.Quantity.Sub(b.FilledQty) }

func (b *Base) IsOpen() bool {
	switch b.Status {
	case enum.OrderStatusAccepted, enum.OrderStatusTriggered, enum.OrderStatusUpdated,
		enum.OrderStatusPartiallyFilled, enum.OrderStatusPendingUpdate, enum.OrderStatusPendingCancel:
		return true
	default:
		return false
	}
}

func (b *Base) IsClosed() bool {
	switch b.Status {
	case enum.OrderStatusDenied, enum.OrderStatusRejected, enum.OrderStatusCanceled,
		enum.OrderStatusExpired, enum.OrderStatusFilled:
		return true
	default:
		return false
	}
}

// Order is the sealed interface every variant implements.
type Order interface {
	Type() enum.OrderType
	Common() *Base
	Apply(e Event) error
	sealed()
}

func (b *Base) Common() *Base { return b }

func requirePrice(kind string, price *num.Price) error {
	if price == nil {
		return kernerr.New(kernerr.InvalidInput, "order: %s requires a price", kind)
	}
	return nil
}

func requireTrigger(kind string, trigger *num.Price) error {
	if trigger == nil {
		return kernerr.New(kernerr.InvalidInput, "order: %s requires a trigger price", kind)
	}
	return nil
}

// Market is a marketable order with no limit price.
type Market struct{ Base }

func NewMarketOrder(clientOrderId ident.ClientOrderId, strategyId ident.StrategyId, instrumentId ident.InstrumentId, side enum.Side, quantity num.Quantity, tsInit int64) *Market {
	return &Market{Base: newBase(clientOrderId, strategyId, instrumentId, side, quantity, enum.TimeInForceIOC, tsInit)}
}

func (o *Market) Type() enum.OrderType { return enum.OrderTypeMarket }
func (o *Market) sealed()              {}
func (o *Market) Apply(e Event) error  { return applyEvent(&o.Base, e) }

// Limit rests at Price until filled or cancelled.
type Limit struct{ Base }

func NewLimitOrder(clientOrderId ident.ClientOrderId, strategyId ident.StrategyId, instrumentId ident.InstrumentId, side enum.Side, quantity num.Quantity, price num.Price, timeInForce enum.TimeInForce, postOnly bool, tsInit int64) (*Limit, error) {
	if err := requirePrice("Limit", &price); err != nil {
		return nil, err
	}
	b := newBase(clientOrderId, strategyId, instrumentId, side, quantity, timeInForce, tsInit)
	b.Price = &price
	b.PostOnly = postOnly
	return &Limit{Base: b}, nil
}

func (o *Limit) Type() enum.OrderType { return enum.OrderTypeLimit }
func (o *Limit) sealed()              {}
func (o *Limit) Apply(e Event) error  { return applyEvent(&o.Base, e) }

// StopMarket becomes marketable once TriggerPrice trades through.
type StopMarket struct{ Base }

func NewStopMarketOrder(clientOrderId ident.ClientOrderId, strategyId ident.StrategyId, instrumentId ident.InstrumentId, side enum.Side, quantity num.Quantity, triggerPrice num.Price, timeInForce enum.TimeInForce, tsInit int64) (*StopMarket, error) {
	if err := requireTrigger("StopMarket", &triggerPrice); err != nil {
		return nil, err
	}
	b := newBase(clientOrderId, strategyId, instrumentId, side, quantity, timeInForce, tsInit)
	b.TriggerPrice = &triggerPrice
	return &StopMarket{Base: b}, nil
}

func (o *StopMarket) Type() enum.OrderType { return enum.OrderTypeStopMarket }
func (o *StopMarket) sealed()              {}
func (o *StopMarket) Apply(e Event) error  { return applyEvent(&o.Base, e) }

// StopLimit becomes a resting Limit at Price once TriggerPrice trades through.
type StopLimit struct{ Base }

func NewStopLimitOrder(clientOrderId ident.ClientOrderId, strategyId ident.StrategyId, instrumentId ident.InstrumentId, side enum.Side, quantity num.Quantity, price, triggerPrice num.Price, timeInForce enum.TimeInForce, tsInit int64) (*StopLimit, error) {
	if err := requirePrice("StopLimit", &price); err != nil {
		return nil, err
	}
	if err := requireTrigger("StopLimit", &triggerPrice); err != nil {
		return nil, err
	}
	b := newBase(clientOrderId, strategyId, instrumentId, side, quantity, timeInForce, tsInit)
	b.Price = &price
	b.TriggerPrice = &triggerPrice
	return &StopLimit{Base: b}, nil
}

func (o *StopLimit) Type() enum.OrderType { return enum.OrderTypeStopLimit }
func (o *StopLimit) sealed()              {}
func (o *StopLimit) Apply(e Event) error  { return applyEvent(&o.Base, e) }

// MarketToLimit submits as Market but any unfilled remainder rests as a
// Limit at the fill price of the marketable portion.
type MarketToLimit struct{ Base }

func NewMarketToLimitOrder(clientOrderId ident.ClientOrderId, strategyId ident.StrategyId, instrumentId ident.InstrumentId, side enum.Side, quantity num.Quantity, tsInit int64) *MarketToLimit {
	return &MarketToLimit{Base: newBase(clientOrderId, strategyId, instrumentId, side, quantity, enum.TimeInForceGTC, tsInit)}
}

func (o *MarketToLimit) Type() enum.OrderType { return enum.OrderTypeMarketToLimit }
func (o *MarketToLimit) sealed()              {}
func (o *MarketToLimit) Apply(e Event) error  { return applyEvent(&o.Base, e) }

// MarketIfTouched submits as Market once TriggerPrice trades through.
type MarketIfTouched struct{ Base }

func NewMarketIfTouchedOrder(clientOrderId ident.ClientOrderId, strategyId ident.StrategyId, instrumentId ident.InstrumentId, side enum.Side, quantity num.Quantity, triggerPrice num.Price, tsInit int64) (*MarketIfTouched, error) {
	if err := requireTrigger("MarketIfTouched", &triggerPrice); err != nil {
		return nil, err
	}
	b := newBase(clientOrderId, strategyId, instrumentId, side, quantity, enum.TimeInForceGTC, tsInit)
	b.TriggerPrice = &triggerPrice
	return &MarketIfTouched{Base: b}, nil
}

func (o *MarketIfTouched) Type() enum.OrderType { return enum.OrderTypeMarketIfTouched }
func (o *MarketIfTouched) sealed()              {}
func (o *MarketIfTouched) Apply(e Event) error  { return applyEvent(&o.Base, e) }

// LimitIfTouched submits as Limit at Price once TriggerPrice trades through.
type LimitIfTouched struct{ Base }

func NewLimitIfTouchedOrder(clientOrderId ident.ClientOrderId, strategyId ident.StrategyId, instrumentId ident.InstrumentId, side enum.Side, quantity num.Quantity, price, triggerPrice num.Price, tsInit int64) (*LimitIfTouched, error) {
	if err := requirePrice("LimitIfTouched", &price); err != nil {
		return nil, err
	}
	if err := requireTrigger("LimitIfTouched", &triggerPrice); err != nil {
		return nil, err
	}
	b := newBase(clientOrderId, strategyId, instrumentId, side, quantity, enum.TimeInForceGTC, tsInit)
	b.Price = &price
	b.TriggerPrice = &triggerPrice
	return &LimitIfTouched{Base: b}, nil
}

func (o *LimitIfTouched) Type() enum.OrderType { return enum.OrderTypeLimitIfTouched }
func (o *LimitIfTouched) sealed()              {}
func (o *LimitIfTouched) Apply(e Event) error  { return applyEvent(&o.Base, e) }

// TrailingStopMarket trails TriggerPrice by TrailingOffset behind the market.
type TrailingStopMarket struct{ Base }

func NewTrailingStopMarketOrder(clientOrderId ident.ClientOrderId, strategyId ident.StrategyId, instrumentId ident.InstrumentId, side enum.Side, quantity num.Quantity, triggerPrice num.Price, offset decimal.Decimal, offsetType enum.TrailingOffsetType, tsInit int64) (*TrailingStopMarket, error) {
	if err := requireTrigger("TrailingStopMarket", &triggerPrice); err != nil {
		return nil, err
	}
	b := newBase(clientOrderId, strategyId, instrumentId, side, quantity, enum.TimeInForceGTC, tsInit)
	b.TriggerPrice = &triggerPrice
	b.TrailingOffset = &offset
	b.TrailingOffsetType = offsetType
	return &TrailingStopMarket{Base: b}, nil
}

func (o *TrailingStopMarket) Type() enum.OrderType { return enum.OrderTypeTrailingStopMarket }
func (o *TrailingStopMarket) sealed()              {}
func (o *TrailingStopMarket) Apply(e Event) error  { return applyEvent(&o.Base, e) }

// TrailingStopLimit trails both TriggerPrice and Price by TrailingOffset.
type TrailingStopLimit struct{ Base }

func NewTrailingStopLimitOrder(clientOrderId ident.ClientOrderId, strategyId ident.StrategyId, instrumentId ident.InstrumentId, side enum.Side, quantity num.Quantity, price, triggerPrice num.Price, offset decimal.Decimal, offsetType enum.TrailingOffsetType, tsInit int64) (*TrailingStopLimit, error) {
	if err := requirePrice("TrailingStopLimit", &price); err != nil {
		return nil, err
	}
	if err := requireTrigger("TrailingStopLimit", &triggerPrice); err != nil {
		return nil, err
	}
	b := newBase(clientOrderId, strategyId, instrumentId, side, quantity, enum.TimeInForceGTC, tsInit)
	b.Price = &price
	b.TriggerPrice = &triggerPrice
	b.TrailingOffset = &offset
	b.TrailingOffsetType = offsetType
	return &TrailingStopLimit{Base: b}, nil
}

func (o *TrailingStopLimit) Type() enum.OrderType { return enum.OrderTypeTrailingStopLimit }
func (o *TrailingStopLimit) sealed()              {}
func (o *TrailingStopLimit) Apply(e Event) error  { return applyEvent(&o.Base, e) }
