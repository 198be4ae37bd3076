// Package execution implements the execution engine core: command
// routing to a venue-keyed execution client, execution-report
// consumption that drives the order state machine and position
// aggregator, and mass-status reconciliation on client reconnect.
package execution

import (
	"github.com/rs/zerolog/log"

	"github.com/gotradekernel/kernel/pkg/bus"
	"github.com/gotradekernel/kernel/pkg/cache"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/instrument"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"
	"github.com/gotradekernel/kernel/pkg/position"
)

// Client is the adapter boundary. Submit/Cancel/Modify return once the
// adapter has queued the request; the venue's actual response arrives
// later as an order.Event through OnOrderEvent, consistent with the
// single-threaded reactor model.
type Client interface {
	Submit(o order.Order) error
	Cancel(clientOrderId ident.ClientOrderId, venueOrderId *ident.VenueOrderId) error
	Modify(clientOrderId ident.ClientOrderId, newQty *num.Quantity, newPrice, newTrigger *num.Price) error
	GenerateMassStatus() (MassStatus, error)
}

// Engine routes commands to the client registered for each instrument's
// venue and folds the resulting events back into the cache, the order
// state machine, and the position aggregator.
type Engine struct {
	bus   *bus.Bus
	cache *cache.Cache

	clients map[ident.Venue]Client

	clientOrderIds *ident.ClientOrderIdGenerator
	positionIds    *ident.PositionIdGenerator
}

func New(b *bus.Bus, c *cache.Cache, clientOrderIds *ident.ClientOrderIdGenerator, positionIds *ident.PositionIdGenerator) *Engine {
	return &Engine{
		bus:            b,
		cache:          c,
		clients:        make(map[ident.Venue]Client),
		clientOrderIds: clientOrderIds,
		positionIds:    positionIds,
	}
}

// RegisterClient wires the client that handles every instrument quoted
// on venue. One client per venue; registering again replaces it.
func (e *Engine) RegisterClient(venue ident.Venue, client Client) {
	e.clients[venue] = client
}

// NextClientOrderId mints the next deterministic client order id;
// callers use it to build the order before calling SubmitOrder.
func (e *Engine) NextClientOrderId() ident.ClientOrderId {
	return e.clientOrderIds.Generate()
}

func (e *Engine) clientFor(instrumentId ident.InstrumentId) (Client, ident.Venue, error) {
	_, venue := instrumentId.Parts()
	client, ok := e.clients[venue]
	if !ok {
		return nil, venue, kernerr.New(kernerr.InvalidInput, "execution: no client registered for venue %s", venue.String())
	}
	return client, venue, nil
}

// resolvePositionId finds the open position already carrying accountId's
// exposure to instrumentId, or pre-assigns a fresh one. A new order is
// linked to its position id at submission time, before the position
// necessarily exists in the cache: it is actually opened by the order's
// first fill.
func (e *Engine) resolvePositionId(accountId ident.AccountId, instrumentId ident.InstrumentId) ident.PositionId {
	for _, id := range e.cache.PositionsOpen() {
		p, ok := e.cache.Position(id)
		if ok && p.InstrumentId == instrumentId && p.AccountId == accountId {
			return id
		}
	}
	return e.positionIds.Generate(instrumentId, false)
}

// SubmitOrder registers o in the cache, links it to the resolved
// position, advances it through Released/Submitted, and routes it to
// the venue client. A routing failure denies the order and returns the
// error; a client-side rejection at submission time rejects the order and
// returns nil. Either terminal status is set on o before SubmitOrder
// returns.
func (e *Engine) SubmitOrder(o order.Order, accountId ident.AccountId, tsEvent int64) error {
	base := o.Common()
	base.AccountId = &accountId

	e.cache.AddOrder(o)
	positionId := e.resolvePositionId(accountId, base.InstrumentId)
	e.cache.LinkOrderToPosition(base.ClientOrderId, positionId)

	if err := o.Apply(order.NewReleasedEvent(base.ClientOrderId, tsEvent)); err != nil {
		return kernerr.New(kernerr.InvariantViolation, "execution: %v", err)
	}
	e.cache.UpdateOrder(o)

	client, _, err := e.clientFor(base.InstrumentId)
	if err != nil {
		_ = o.Apply(order.NewDeniedEvent(base.ClientOrderId, err.Error(), tsEvent))
		e.cache.UpdateOrder(o)
		_ = e.bus.Publish("order.denied."+base.ClientOrderId.String(), o)
		return err
	}

	if err := o.Apply(order.NewSubmittedEvent(base.ClientOrderId, tsEvent)); err != nil {
		return kernerr.New(kernerr.InvariantViolation, "execution: %v", err)
	}
	e.cache.UpdateOrder(o)

	if err := client.Submit(o); err != nil {
		_ = o.Apply(order.NewRejectedEvent(base.ClientOrderId, err.Error(), tsEvent))
		e.cache.UpdateOrder(o)
		_ = e.bus.Publish("order.rejected."+base.ClientOrderId.String(), o)
		return nil
	}
	return nil
}

// CancelOrder marks the order PendingCancel and routes the cancel to the
// venue client; a client-side rejection reopens it via CancelRejected.
func (e *Engine) CancelOrder(clientOrderId ident.ClientOrderId, tsEvent int64) error {
	o, ok := e.cache.Order(clientOrderId)
	if !ok {
		return kernerr.New(kernerr.NotFound, "execution: order %s not found", clientOrderId.String())
	}
	base := o.Common()

	client, _, err := e.clientFor(base.InstrumentId)
	if err != nil {
		return err
	}

	if err := o.Apply(order.NewPendingCancelEvent(clientOrderId, tsEvent)); err != nil {
		return kernerr.New(kernerr.InvariantViolation, "execution: %v", err)
	}
	e.cache.UpdateOrder(o)

	if err := client.Cancel(clientOrderId, base.VenueOrderId); err != nil {
		_ = o.Apply(order.NewCancelRejectedEvent(clientOrderId, err.Error(), tsEvent))
		e.cache.UpdateOrder(o)
		return nil
	}
	return nil
}

// CancelAllOrders cancels every open order on instrumentId, continuing
// past individual failures and returning the first error encountered.
func (e *Engine) CancelAllOrders(instrumentId ident.InstrumentId, tsEvent int64) error {
	var firstErr error
	for _, id := range e.cache.OrdersForInstrument(instrumentId) {
		o, ok := e.cache.Order(id)
		if !ok || !o.Common().IsOpen() {
			continue
		}
		if err := e.CancelOrder(id, tsEvent); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BatchCancelOrders cancels exactly the given ids, continuing past
// individual failures and returning the first error encountered.
func (e *Engine) BatchCancelOrders(ids []ident.ClientOrderId, tsEvent int64) error {
	var firstErr error
	for _, id := range ids {
		if err := e.CancelOrder(id, tsEvent); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ModifyOrder marks the order PendingUpdate and routes the amendment to
// the venue client; a client-side rejection reopens it via
// ModifyRejected.
func (e *Engine) ModifyOrder(clientOrderId ident.ClientOrderId, newQty *num.Quantity, newPrice, newTrigger *num.Price, tsEvent int64) error {
	o, ok := e.cache.Order(clientOrderId)
	if !ok {
		return kernerr.New(kernerr.NotFound, "execution: order %s not found", clientOrderId.String())
	}

	client, _, err := e.clientFor(o.Common().InstrumentId)
	if err != nil {
		return err
	}

	if err := o.Apply(order.NewPendingUpdateEvent(clientOrderId, tsEvent)); err != nil {
		return kernerr.New(kernerr.InvariantViolation, "execution: %v", err)
	}
	e.cache.UpdateOrder(o)

	if err := client.Modify(clientOrderId, newQty, newPrice, newTrigger); err != nil {
		_ = o.Apply(order.NewModifyRejectedEvent(clientOrderId, err.Error(), tsEvent))
		e.cache.UpdateOrder(o)
		return nil
	}
	return nil
}

// OnOrderEvent folds one execution report into the order state machine
// and, on a Filled event, into the position aggregator. Unknown order
// ids are logged and dropped rather than treated as fatal: a report for
// an order this instance never saw is expected after a restart, ahead
// of the mass-status reconciliation that would synthesize it.
func (e *Engine) OnOrderEvent(ev order.Event) {
	o, ok := e.cache.Order(ev.ClientOrderId)
	if !ok {
		log.Warn().Str("client_order_id", ev.ClientOrderId.String()).Str("event", ev.Kind.String()).
			Msg("execution: event for unknown order dropped")
		return
	}
	if err := o.Apply(ev); err != nil {
		log.Error().Err(err).Str("client_order_id", ev.ClientOrderId.String()).Msg("execution: illegal event application")
		return
	}
	e.cache.UpdateOrder(o)
	_ = e.bus.Publish("order."+eventTopic(ev.Kind)+"."+ev.ClientOrderId.String(), ev)

	if ev.Kind == order.EventFilled {
		e.applyFill(o, ev)
	}
}

func eventTopic(k order.EventKind) string {
	switch k {
	case order.EventAccepted:
		return "accepted"
	case order.EventRejected:
		return "rejected"
	case order.EventCanceled:
		return "canceled"
	case order.EventExpired:
		return "expired"
	case order.EventFilled:
		return "filled"
	case order.EventUpdated:
		return "updated"
	case order.EventTriggered:
		return "triggered"
	default:
		return "event"
	}
}

// applyFill drives the position aggregator from one Filled event (spec
// §4.4/§4.8). A position is opened lazily on its first fill; a flip
// seals the current position and opens a fresh one on the residual,
// relinking the filled order to the successor.
func (e *Engine) applyFill(o order.Order, ev order.Event) {
	base := o.Common()
	positionId, ok := e.cache.PositionForOrder(base.ClientOrderId)
	if !ok {
		log.Error().Str("client_order_id", base.ClientOrderId.String()).Msg("execution: filled order has no linked position")
		return
	}

	fill := position.Fill{
		Side:          base.Side,
		Price:         ev.FillPrice,
		Quantity:      ev.FillQty,
		LiquiditySide: ev.LiquiditySide,
		Commission:    ev.Commission,
		TsEvent:       ev.TsEvent,
		OrderId:       base.ClientOrderId,
	}

	p, exists := e.cache.Position(positionId)
	if !exists {
		inst, iok := e.cache.Instrument(base.InstrumentId)
		if !iok {
			log.Error().Str("instrument_id", base.InstrumentId.String()).Msg("execution: fill for unknown instrument dropped")
			return
		}
		p = newPosition(positionId, inst, base)
	}

	flip, err := p.ApplyFill(fill, func() ident.PositionId { return e.positionIds.Generate(base.InstrumentId, true) })
	if err != nil {
		log.Error().Err(err).Str("position_id", positionId.String()).Msg("execution: fill rejected by position aggregator")
		return
	}

	if flip != nil {
		e.cache.UpdatePosition(flip.Closed)
		e.cache.AddPosition(flip.Opened)
		e.cache.LinkOrderToPosition(base.ClientOrderId, flip.Opened.Id)
		_ = e.bus.Publish("position.flipped."+base.InstrumentId.String(), flip)
		return
	}

	if exists {
		e.cache.UpdatePosition(p)
	} else {
		e.cache.AddPosition(p)
	}
	_ = e.bus.Publish("position.updated."+base.InstrumentId.String(), p)
}

func newPosition(id ident.PositionId, inst instrument.Instrument, base *order.Base) *position.Position {
	common := inst.Common()
	accountId := ident.AccountId{}
	if base.AccountId != nil {
		accountId = *base.AccountId
	}
	return position.New(id, base.InstrumentId, accountId, common.Multiplier, common.QuoteCurrency, inst.IsInverse(), base.Quantity.Precision())
}
