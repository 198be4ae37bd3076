package main

import (
	"strconv"
	"sync"

	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/execution"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"
)

// simVenue is an in-memory stand-in for execution.Client, grounded on
// adapter/execclient's real CLOB wiring but without the network: demo
// mode fills every order at the instrument's last known trade price
// instead of signing and posting to Polymarket. It satisfies the same
// execution.Client contract so the reactor treats it identically to a
// real adapter, reporting back through reportCh rather than a mutation
// of the engine's own state.
type simVenue struct {
	mu        sync.Mutex
	reportCh  chan<- order.Event
	quoteCcy  num.Currency
	lastPrice map[ident.InstrumentId]num.Price
	venueSeq  uint64
}

func newSimVenue(reportCh chan<- order.Event, quoteCcy num.Currency) *simVenue {
	return &simVenue{reportCh: reportCh, quoteCcy: quoteCcy, lastPrice: make(map[ident.InstrumentId]num.Price)}
}

func (s *simVenue) setLastPrice(instrumentId ident.InstrumentId, px num.Price) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPrice[instrumentId] = px
}

func (s *simVenue) Submit(o order.Order) error {
	base := o.Common()

	s.mu.Lock()
	s.venueSeq++
	seq := s.venueSeq
	fillPx, known := s.lastPrice[base.InstrumentId]
	if base.Price != nil {
		fillPx = *base.Price
	} else if !known {
		fillPx = num.NewPriceRaw(0, 2)
	}
	s.mu.Unlock()

	venueOrderId := ident.NewVenueOrderId("SIM-" + strconv.FormatUint(seq, 10))
	tradeId := ident.NewTradeId("SIM-T-" + strconv.FormatUint(seq, 10))

	s.reportCh <- order.NewAcceptedEvent(base.ClientOrderId, venueOrderId, base.TsInit)
	s.reportCh <- order.NewFilledEvent(
		base.ClientOrderId,
		tradeId,
		fillPx,
		base.Quantity,
		enum.LiquidityTaker,
		num.NewMoneyRaw(0, s.quoteCcy),
		base.TsInit,
	)
	return nil
}

func (s *simVenue) Cancel(clientOrderId ident.ClientOrderId, _ *ident.VenueOrderId) error {
	s.reportCh <- order.NewCanceledEvent(clientOrderId, 0)
	return nil
}

func (s *simVenue) Modify(clientOrderId ident.ClientOrderId, newQty *num.Quantity, newPrice, newTrigger *num.Price) error {
	s.reportCh <- order.NewUpdatedEvent(clientOrderId, newPrice, newTrigger, newQty, 0)
	return nil
}

func (s *simVenue) GenerateMassStatus() (execution.MassStatus, error) {
	return execution.MassStatus{}, nil
}
