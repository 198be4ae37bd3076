package execution

import (
	"github.com/rs/zerolog/log"

	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"
)

// VenueOrderReport is one order as the venue currently sees it, returned
// by GenerateMassStatus.
type VenueOrderReport struct {
	VenueOrderId  ident.VenueOrderId
	InstrumentId  ident.InstrumentId
	Side          enum.Side
	Quantity      num.Quantity
	FilledQty     num.Quantity
	Price         *num.Price
	Status        enum.OrderStatus
	TsEvent       int64
}

// FillReport is one fill the venue recorded, independent of whether the
// originating order is currently known locally.
type FillReport struct {
	VenueOrderId  ident.VenueOrderId
	TradeId       ident.TradeId
	InstrumentId  ident.InstrumentId
	Side          enum.Side
	Price         num.Price
	Quantity      num.Quantity
	LiquiditySide enum.LiquiditySide
	Commission    num.Money
	TsEvent       int64
}

// PositionStatusReport is the venue's view of one net position, used to
// cross-check (not replace) the locally aggregated position.
type PositionStatusReport struct {
	InstrumentId ident.InstrumentId
	Side         enum.PositionSide
	Quantity     num.Quantity
	TsEvent      int64
}

// MassStatus is the full reconciliation snapshot generate_mass_status()
// returns.
type MassStatus struct {
	VenueOrders []VenueOrderReport
	Fills       []FillReport
	Positions   []PositionStatusReport
}

// Reconcile applies one MassStatus snapshot: any venue-known order
// absent locally is synthesized with
// StrategyId::external(); any locally open order on venue missing from
// the snapshot is expired. Position reports are cross-checked against
// the cache and any mismatch is logged and published as an
// IntegrityWarning; they are not replayed into the position aggregator
// here, since doing so would double-count fills the engine already
// applied live. The snapshot's fill reports are not examined.
func (e *Engine) Reconcile(venue ident.Venue, status MassStatus, tsEvent int64) error {
	seen := make(map[ident.VenueOrderId]bool, len(status.VenueOrders))
	for _, report := range status.VenueOrders {
		seen[report.VenueOrderId] = true
		if _, ok := e.cache.OrderByVenueOrderId(report.VenueOrderId); ok {
			continue
		}
		if err := e.synthesizeOrder(report, tsEvent); err != nil {
			log.Warn().Err(err).Str("venue_order_id", report.VenueOrderId.String()).
				Msg("execution: reconciliation could not synthesize venue order")
		}
	}

	for _, id := range e.cache.OrdersForVenue(venue) {
		o, ok := e.cache.Order(id)
		if !ok || !o.Common().IsOpen() {
			continue
		}
		base := o.Common()
		if base.VenueOrderId != nil && seen[*base.VenueOrderId] {
			continue
		}
		if err := o.Apply(order.NewExpiredEvent(id, tsEvent)); err != nil {
			log.Warn().Err(err).Str("client_order_id", id.String()).
				Msg("execution: reconciliation could not expire venue-missing order")
			continue
		}
		e.cache.UpdateOrder(o)
	}

	for _, pr := range status.Positions {
		e.checkPositionReport(pr)
	}

	return nil
}

// synthesizeOrder reconstructs a minimal local order for a venue order
// this engine has never seen, tagged StrategyId::external() (spec
// §4.8). It is brought up through Accepted (and Filled, if the venue
// reports a partial or complete fill) so its lifecycle bucket in the
// cache matches the venue's view.
func (e *Engine) synthesizeOrder(report VenueOrderReport, tsEvent int64) error {
	clientOrderId := ident.NewClientOrderId("EXTERNAL-" + report.VenueOrderId.String())
	strategyId := ident.ExternalStrategyId()

	var o order.Order
	var err error
	if report.Price != nil {
		o, err = order.NewLimitOrder(clientOrderId, strategyId, report.InstrumentId, report.Side, report.Quantity, *report.Price, enum.TimeInForceGTC, false, tsEvent)
	} else {
		o = order.NewMarketOrder(clientOrderId, strategyId, report.InstrumentId, report.Side, report.Quantity, tsEvent)
	}
	if err != nil {
		return err
	}

	e.cache.AddOrder(o)
	venueOrderId := report.VenueOrderId
	for _, ev := range []order.Event{
		order.NewReleasedEvent(clientOrderId, tsEvent),
		order.NewSubmittedEvent(clientOrderId, tsEvent),
		order.NewAcceptedEvent(clientOrderId, venueOrderId, tsEvent),
	} {
		if err := o.Apply(ev); err != nil {
			return err
		}
	}
	e.cache.UpdateOrder(o)

	if report.FilledQty.IsZero() {
		return nil
	}
	var fillPrice num.Price
	if report.Price != nil {
		fillPrice = *report.Price
	}
	var quoteCcy num.Currency
	if inst, ok := e.cache.Instrument(report.InstrumentId); ok {
		quoteCcy = inst.Common().QuoteCurrency
	}
	zeroCommission := num.ZeroMoney(quoteCcy)
	tradeId := ident.NewTradeId("EXTERNAL-" + report.VenueOrderId.String())
	if err := o.Apply(order.NewFilledEvent(clientOrderId, tradeId, fillPrice, report.FilledQty, enum.LiquidityMaker, zeroCommission, tsEvent)); err != nil {
		return err
	}
	e.cache.UpdateOrder(o)
	return nil
}

// checkPositionReport logs and publishes an IntegrityWarning when the
// venue's reported net position diverges from the locally aggregated
// one; it never overwrites the cache's state from a venue report (the
// local fill stream remains authoritative between reconciliations).
func (e *Engine) checkPositionReport(pr PositionStatusReport) {
	for _, id := range e.cache.PositionsOpen() {
		p, ok := e.cache.Position(id)
		if !ok || p.InstrumentId != pr.InstrumentId {
			continue
		}
		if p.Side != pr.Side || !p.SignedQty.Abs().Equal(pr.Quantity) {
			e.raiseIntegrityWarning(pr.InstrumentId, "position report diverges from local aggregate: local %s %s vs venue %s %s",
				p.Side.String(), p.SignedQty.Abs().String(), pr.Side.String(), pr.Quantity.String())
		}
		return
	}
	if pr.Side != enum.PositionFlat && !pr.Quantity.IsZero() {
		e.raiseIntegrityWarning(pr.InstrumentId, "venue reports an open position with none held locally")
	}
}

// raiseIntegrityWarning logs and publishes one IntegrityWarning on
// integrity.position.<instrumentId> for adapter/metrics (or any other
// subscriber) to count: it is a counted bus event, not a propagated
// error.
func (e *Engine) raiseIntegrityWarning(instrumentId ident.InstrumentId, format string, args ...any) {
	warning := kernerr.New(kernerr.IntegrityWarning, format, args...)
	log.Warn().Str("instrument_id", instrumentId.String()).Msg("execution: " + warning.Message)
	_ = e.bus.Publish("integrity.position."+instrumentId.String(), warning)
}
