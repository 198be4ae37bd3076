// Package cache implements the central in-memory state store: the
// primary maps (orders, positions, instruments, accounts, books, latest
// market data) plus every derived index the rest of the kernel queries
// by. Only the execution engine and the data engine are expected to
// mutate a Cache; every other component reads it.
package cache

import (
	"reflect"

	"github.com/gotradekernel/kernel/pkg/account"
	"github.com/gotradekernel/kernel/pkg/book"
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/instrument"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/marketdata"
	"github.com/gotradekernel/kernel/pkg/order"
	"github.com/gotradekernel/kernel/pkg/position"
)

type idSet[K comparable] map[K]struct{}

func (s idSet[K]) add(k K)          { s[k] = struct{}{} }
func (s idSet[K]) remove(k K)       { delete(s, k) }
func (s idSet[K]) has(k K) bool     { _, ok := s[k]; return ok }
func (s idSet[K]) clone() idSet[K] {
	out := make(idSet[K], len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Cache holds every piece of state the kernel keeps about orders,
// positions, accounts, instruments, and market data, plus the derived
// indices the kernel's query paths rely on.
type Cache struct {
	orders      map[ident.ClientOrderId]order.Order
	positions   map[ident.PositionId]*position.Position
	instruments map[ident.InstrumentId]instrument.Instrument
	accounts    map[ident.AccountId]*account.Account
	books       map[ident.InstrumentId]*book.OrderBook
	quotes      map[ident.InstrumentId]marketdata.Quote
	trades      map[ident.InstrumentId]marketdata.Trade
	bars        map[ident.InstrumentId]map[string][]marketdata.Bar

	// derived indices
	venueAccount       map[ident.Venue]ident.AccountId
	venueOrders        map[ident.Venue]idSet[ident.ClientOrderId]
	venuePositions     map[ident.Venue]idSet[ident.PositionId]
	venueOrderId       map[ident.VenueOrderId]ident.ClientOrderId
	orderPosition      map[ident.ClientOrderId]ident.PositionId
	orderStrategy      map[ident.ClientOrderId]ident.StrategyId
	positionOrders     map[ident.PositionId]idSet[ident.ClientOrderId]
	instrumentOrders   map[ident.InstrumentId]idSet[ident.ClientOrderId]
	strategyOrders     map[ident.StrategyId]idSet[ident.ClientOrderId]
	execAlgorithmOrders map[ident.ExecAlgorithmId]idSet[ident.ClientOrderId]

	ordersOpen         idSet[ident.ClientOrderId]
	ordersClosed       idSet[ident.ClientOrderId]
	ordersEmulated     idSet[ident.ClientOrderId]
	ordersInflight     idSet[ident.ClientOrderId]
	ordersPendingCancel idSet[ident.ClientOrderId]

	positionsOpen   idSet[ident.PositionId]
	positionsClosed idSet[ident.PositionId]
}

func New() *Cache {
	return &Cache{
		orders:      make(map[ident.ClientOrderId]order.Order),
		positions:   make(map[ident.PositionId]*position.Position),
		instruments: make(map[ident.InstrumentId]instrument.Instrument),
		accounts:    make(map[ident.AccountId]*account.Account),
		books:       make(map[ident.InstrumentId]*book.OrderBook),
		quotes:      make(map[ident.InstrumentId]marketdata.Quote),
		trades:      make(map[ident.InstrumentId]marketdata.Trade),
		bars:        make(map[ident.InstrumentId]map[string][]marketdata.Bar),

		venueAccount:        make(map[ident.Venue]ident.AccountId),
		venueOrders:         make(map[ident.Venue]idSet[ident.ClientOrderId]),
		venuePositions:      make(map[ident.Venue]idSet[ident.PositionId]),
		venueOrderId:        make(map[ident.VenueOrderId]ident.ClientOrderId),
		orderPosition:       make(map[ident.ClientOrderId]ident.PositionId),
		orderStrategy:       make(map[ident.ClientOrderId]ident.StrategyId),
		positionOrders:      make(map[ident.PositionId]idSet[ident.ClientOrderId]),
		instrumentOrders:    make(map[ident.InstrumentId]idSet[ident.ClientOrderId]),
		strategyOrders:      make(map[ident.StrategyId]idSet[ident.ClientOrderId]),
		execAlgorithmOrders: make(map[ident.ExecAlgorithmId]idSet[ident.ClientOrderId]),

		ordersOpen:          make(idSet[ident.ClientOrderId]),
		ordersClosed:        make(idSet[ident.ClientOrderId]),
		ordersEmulated:      make(idSet[ident.ClientOrderId]),
		ordersInflight:      make(idSet[ident.ClientOrderId]),
		ordersPendingCancel: make(idSet[ident.ClientOrderId]),

		positionsOpen:   make(idSet[ident.PositionId]),
		positionsClosed: make(idSet[ident.PositionId]),
	}
}

// --- instruments / accounts -------------------------------------------------

func (c *Cache) AddInstrument(i instrument.Instrument) {
	c.instruments[i.Common().ID] = i
}

func (c *Cache) Instrument(id ident.InstrumentId) (instrument.Instrument, bool) {
	i, ok := c.instruments[id]
	return i, ok
}

func (c *Cache) AddAccount(a *account.Account) {
	c.accounts[a.Id] = a
	venue := ident.NewVenue(venueOf(a.Id))
	c.venueAccount[venue] = a.Id
}

func (c *Cache) Account(id ident.AccountId) (*account.Account, bool) {
	a, ok := c.accounts[id]
	return a, ok
}

func (c *Cache) AccountForVenue(v ident.Venue) (*account.Account, bool) {
	id, ok := c.venueAccount[v]
	if !ok {
		return nil, false
	}
	return c.Account(id)
}

func venueOf(accountId ident.AccountId) string {
	issuer, _, _ := splitAccountId(accountId.String())
	return issuer
}

func splitAccountId(s string) (issuer, acct string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

// --- order book / market data ------------------------------------------------

// EnsureBook returns the book for instrumentId, creating an empty one of
// bookType if none exists yet.
func (c *Cache) EnsureBook(instrumentId ident.InstrumentId, bookType enum.BookType) *book.OrderBook {
	b, ok := c.books[instrumentId]
	if !ok {
		b = book.New(instrumentId, bookType)
		c.books[instrumentId] = b
	}
	return b
}

func (c *Cache) Book(instrumentId ident.InstrumentId) (*book.OrderBook, bool) {
	b, ok := c.books[instrumentId]
	return b, ok
}

func (c *Cache) UpdateQuote(q marketdata.Quote) {
	c.quotes[q.InstrumentId] = q
}

func (c *Cache) LatestQuote(instrumentId ident.InstrumentId) (marketdata.Quote, bool) {
	q, ok := c.quotes[instrumentId]
	return q, ok
}

func (c *Cache) UpdateTrade(t marketdata.Trade) {
	c.trades[t.InstrumentId] = t
}

func (c *Cache) LatestTrade(instrumentId ident.InstrumentId) (marketdata.Trade, bool) {
	t, ok := c.trades[instrumentId]
	return t, ok
}

// AddBar appends a closed bar to its series; only closed bars are ever
// added, never a partially-filled one.
func (c *Cache) AddBar(b marketdata.Bar) {
	series, ok := c.bars[b.InstrumentId]
	if !ok {
		series = make(map[string][]marketdata.Bar)
		c.bars[b.InstrumentId] = series
	}
	key := b.Spec.String()
	series[key] = append(series[key], b)
}

func (c *Cache) Bars(instrumentId ident.InstrumentId, spec marketdata.BarSpecification) []marketdata.Bar {
	series, ok := c.bars[instrumentId]
	if !ok {
		return nil
	}
	return series[spec.String()]
}

// --- orders ------------------------------------------------------------------

// AddOrder registers a newly-created order and indexes it under its
// instrument, strategy, exec algorithm (if any), and lifecycle bucket.
func (c *Cache) AddOrder(o order.Order) {
	base := o.Common()
	c.orders[base.ClientOrderId] = o

	indexSetFor(c.instrumentOrders, base.InstrumentId).add(base.ClientOrderId)
	indexSetFor(c.strategyOrders, base.StrategyId).add(base.ClientOrderId)
	c.orderStrategy[base.ClientOrderId] = base.StrategyId
	if base.ExecAlgorithmId != nil {
		indexSetFor(c.execAlgorithmOrders, *base.ExecAlgorithmId).add(base.ClientOrderId)
	}
	if venue, ok := instrumentVenue(c, base.InstrumentId); ok {
		indexSetFor(c.venueOrders, venue).add(base.ClientOrderId)
	}
	c.reindexOrderStatus(o)
}

func instrumentVenue(c *Cache, instrumentId ident.InstrumentId) (ident.Venue, bool) {
	if _, ok := c.instruments[instrumentId]; !ok {
		return ident.Venue{}, false
	}
	_, venue := instrumentId.Parts()
	return venue, true
}

// UpdateOrder re-reads an order's current status/venue-order-id and
// refreshes the lifecycle-bucket indices and the venue-order-id lookup.
// Callers apply events to the order itself, then call UpdateOrder so the
// cache's view stays in sync in one step.
func (c *Cache) UpdateOrder(o order.Order) {
	base := o.Common()
	c.orders[base.ClientOrderId] = o
	if base.VenueOrderId != nil {
		c.venueOrderId[*base.VenueOrderId] = base.ClientOrderId
	}
	c.reindexOrderStatus(o)
}

func (c *Cache) reindexOrderStatus(o order.Order) {
	base := o.Common()
	id := base.ClientOrderId

	c.ordersOpen.remove(id)
	c.ordersClosed.remove(id)
	c.ordersEmulated.remove(id)
	c.ordersInflight.remove(id)
	c.ordersPendingCancel.remove(id)

	switch {
	case base.IsOpen():
		c.ordersOpen.add(id)
	case base.IsClosed():
		c.ordersClosed.add(id)
	}
	switch base.Status {
	case enum.OrderStatusEmulated:
		c.ordersEmulated.add(id)
	case enum.OrderStatusInitialized, enum.OrderStatusSubmitted, enum.OrderStatusReleased:
		c.ordersInflight.add(id)
	}
	if base.Status == enum.OrderStatusPendingCancel {
		c.ordersPendingCancel.add(id)
	}
}

func (c *Cache) Order(id ident.ClientOrderId) (order.Order, bool) {
	o, ok := c.orders[id]
	return o, ok
}

func (c *Cache) OrderByVenueOrderId(id ident.VenueOrderId) (order.Order, bool) {
	clientId, ok := c.venueOrderId[id]
	if !ok {
		return nil, false
	}
	return c.Order(clientId)
}

func (c *Cache) OrdersOpen() []ident.ClientOrderId       { return keysOf(c.ordersOpen) }
func (c *Cache) OrdersClosed() []ident.ClientOrderId     { return keysOf(c.ordersClosed) }
func (c *Cache) OrdersEmulated() []ident.ClientOrderId   { return keysOf(c.ordersEmulated) }
func (c *Cache) OrdersInflight() []ident.ClientOrderId   { return keysOf(c.ordersInflight) }
func (c *Cache) OrdersPendingCancel() []ident.ClientOrderId {
	return keysOf(c.ordersPendingCancel)
}

func (c *Cache) OrdersForInstrument(instrumentId ident.InstrumentId) []ident.ClientOrderId {
	return keysOf(c.instrumentOrders[instrumentId])
}

func (c *Cache) OrdersForStrategy(strategyId ident.StrategyId) []ident.ClientOrderId {
	return keysOf(c.strategyOrders[strategyId])
}

func (c *Cache) OrdersForPosition(positionId ident.PositionId) []ident.ClientOrderId {
	return keysOf(c.positionOrders[positionId])
}

// --- positions ---------------------------------------------------------------

// LinkOrderToPosition records which position an order's fills belong to,
// needed before the position itself necessarily exists: a position is
// opened by its first fill, so the order is linked at submission time to
// the position id the execution engine pre-assigns.
func (c *Cache) LinkOrderToPosition(orderId ident.ClientOrderId, positionId ident.PositionId) {
	c.orderPosition[orderId] = positionId
	indexSetFor(c.positionOrders, positionId).add(orderId)
}

func (c *Cache) PositionForOrder(orderId ident.ClientOrderId) (ident.PositionId, bool) {
	id, ok := c.orderPosition[orderId]
	return id, ok
}

// AddPosition registers a position (new open, or the successor of a
// flip) and indexes its lifecycle bucket.
func (c *Cache) AddPosition(p *position.Position) {
	c.positions[p.Id] = p
	if venue, ok := instrumentVenue(c, p.InstrumentId); ok {
		indexSetFor(c.venuePositions, venue).add(p.Id)
	}
	c.reindexPositionStatus(p)
}

// UpdatePosition refreshes a position's lifecycle bucket after a fill or
// a flip has mutated it in place.
func (c *Cache) UpdatePosition(p *position.Position) {
	c.positions[p.Id] = p
	c.reindexPositionStatus(p)
}

func (c *Cache) reindexPositionStatus(p *position.Position) {
	c.positionsOpen.remove(p.Id)
	c.positionsClosed.remove(p.Id)
	if p.IsOpen() {
		c.positionsOpen.add(p.Id)
	} else {
		c.positionsClosed.add(p.Id)
	}
}

func (c *Cache) Position(id ident.PositionId) (*position.Position, bool) {
	p, ok := c.positions[id]
	return p, ok
}

func (c *Cache) PositionsOpen() []ident.PositionId   { return keysOf(c.positionsOpen) }
func (c *Cache) PositionsClosed() []ident.PositionId { return keysOf(c.positionsClosed) }

func (c *Cache) PositionsForVenue(v ident.Venue) []ident.PositionId {
	return keysOf(c.venuePositions[v])
}

func (c *Cache) OrdersForVenue(v ident.Venue) []ident.ClientOrderId {
	return keysOf(c.venueOrders[v])
}

// --- consistency check ---------------------------------------------------

// indexSetFor returns the order-id set for key in m, creating it if
// absent. A free function, not a method: Go methods cannot carry their
// own type parameters beyond the receiver's.
func indexSetFor[K comparable](m map[K]idSet[ident.ClientOrderId], key K) idSet[ident.ClientOrderId] {
	s, ok := m[key]
	if !ok {
		s = make(idSet[ident.ClientOrderId])
		m[key] = s
	}
	return s
}

func keysOf[K comparable](s idSet[K]) []K {
	out := make([]K, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// RebuildIndices recomputes every derived index from the primary order
// and position maps from scratch. Spec §4.5 requires that, after any
// sequence of operations, this rebuild equals the live indices exactly;
// Verify calls this and diffs the result against the live state.
func (c *Cache) RebuildIndices() *Cache {
	rebuilt := New()
	rebuilt.instruments = c.instruments
	rebuilt.accounts = c.accounts
	for _, a := range c.accounts {
		rebuilt.venueAccount[ident.NewVenue(venueOf(a.Id))] = a.Id
	}
	for _, o := range c.orders {
		rebuilt.AddOrder(o)
		if posId, ok := c.orderPosition[o.Common().ClientOrderId]; ok {
			rebuilt.LinkOrderToPosition(o.Common().ClientOrderId, posId)
		}
		if o.Common().VenueOrderId != nil {
			rebuilt.venueOrderId[*o.Common().VenueOrderId] = o.Common().ClientOrderId
		}
	}
	for _, p := range c.positions {
		rebuilt.AddPosition(p)
	}
	return rebuilt
}

// Verify reports the first inconsistency found between the cache's live
// indices and a from-scratch rebuild, or nil if they match exactly.
func (c *Cache) Verify() error {
	rebuilt := c.RebuildIndices()

	checks := []struct {
		name string
		a, b interface{}
	}{
		{"orders_open", setOf(c.ordersOpen), setOf(rebuilt.ordersOpen)},
		{"orders_closed", setOf(c.ordersClosed), setOf(rebuilt.ordersClosed)},
		{"orders_emulated", setOf(c.ordersEmulated), setOf(rebuilt.ordersEmulated)},
		{"orders_inflight", setOf(c.ordersInflight), setOf(rebuilt.ordersInflight)},
		{"orders_pending_cancel", setOf(c.ordersPendingCancel), setOf(rebuilt.ordersPendingCancel)},
		{"positions_open", setOf(c.positionsOpen), setOf(rebuilt.positionsOpen)},
		{"positions_closed", setOf(c.positionsClosed), setOf(rebuilt.positionsClosed)},
		{"instrument_orders", c.instrumentOrders, rebuilt.instrumentOrders},
		{"strategy_orders", c.strategyOrders, rebuilt.strategyOrders},
		{"position_orders", c.positionOrders, rebuilt.positionOrders},
		{"venue_orders", c.venueOrders, rebuilt.venueOrders},
		{"venue_positions", c.venuePositions, rebuilt.venuePositions},
		{"venue_order_ids", c.venueOrderId, rebuilt.venueOrderId},
	}
	for _, chk := range checks {
		if !reflect.DeepEqual(chk.a, chk.b) {
			return kernerr.New(kernerr.InvariantViolation, "cache: index %q diverges from rebuild_indices()", chk.name)
		}
	}
	return nil
}

func setOf[K comparable](s idSet[K]) map[K]struct{} {
	return map[K]struct{}(s)
}
