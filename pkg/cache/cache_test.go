package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/pkg/account"
	"github.com/gotradekernel/kernel/pkg/cache"
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/instrument"
	"github.com/gotradekernel/kernel/pkg/marketdata"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"
	"github.com/gotradekernel/kernel/pkg/position"
)

var usdt = num.MustCurrency("USDT")

func newSpot(instrumentId ident.InstrumentId) instrument.Spot {
	return instrument.Spot{Base: instrument.Base{
		ID:             instrumentId,
		PricePrecision: 2,
		SizePrecision:  6,
		QuoteCurrency:  usdt,
		SettlementCcy:  usdt,
		Multiplier:     num.NewQuantityRaw(1, 0),
	}}
}

func price(s string) num.Price {
	p, err := num.NewPriceFromString(s, 2)
	Expect(err).NotTo(HaveOccurred())
	return p
}

func qty(s string) num.Quantity {
	q, err := num.NewQuantityFromString(s, 6)
	Expect(err).NotTo(HaveOccurred())
	return q
}

var _ = Describe("Cache", func() {
	var (
		c            *cache.Cache
		instrumentId ident.InstrumentId
		accountId    ident.AccountId
	)

	BeforeEach(func() {
		c = cache.New()
		instrumentId = ident.NewInstrumentId("BTCUSDT", ident.NewVenue("BINANCE"))
		accountId = ident.NewAccountId("BINANCE", "001")

		c.AddInstrument(newSpot(instrumentId))
		c.AddAccount(account.NewCashAccount(accountId))
	})

	It("indexes a new order under its instrument, strategy, and venue", func() {
		strategyId := ident.NewStrategyId("momentum", "001")
		o, err := order.NewLimitOrder(ident.NewClientOrderId("O-1"), strategyId, instrumentId, enum.SideBuy, qty("1"), price("100.00"), enum.TimeInForceGTC, false, 1)
		Expect(err).NotTo(HaveOccurred())

		c.AddOrder(o)

		Expect(c.OrdersForInstrument(instrumentId)).To(ConsistOf(o.ClientOrderId))
		Expect(c.OrdersForStrategy(strategyId)).To(ConsistOf(o.ClientOrderId))
		Expect(c.OrdersForVenue(ident.NewVenue("BINANCE"))).To(ConsistOf(o.ClientOrderId))
		Expect(c.OrdersOpen()).To(BeEmpty()) // Initialized is neither open nor closed
	})

	It("moves an order between lifecycle buckets as it transitions", func() {
		o, err := order.NewLimitOrder(ident.NewClientOrderId("O-2"), ident.NewStrategyId("momentum", "001"), instrumentId, enum.SideBuy, qty("1"), price("100.00"), enum.TimeInForceGTC, false, 1)
		Expect(err).NotTo(HaveOccurred())
		c.AddOrder(o)

		Expect(o.Apply(order.NewReleasedEvent(o.ClientOrderId, 2))).To(Succeed())
		Expect(o.Apply(order.NewSubmittedEvent(o.ClientOrderId, 2))).To(Succeed())
		Expect(o.Apply(order.NewAcceptedEvent(o.ClientOrderId, ident.NewVenueOrderId("V-1"), 2))).To(Succeed())
		c.UpdateOrder(o)

		Expect(c.OrdersOpen()).To(ConsistOf(o.ClientOrderId))
		Expect(c.OrdersClosed()).To(BeEmpty())

		byVenue, ok := c.OrderByVenueOrderId(ident.NewVenueOrderId("V-1"))
		Expect(ok).To(BeTrue())
		Expect(byVenue.Common().ClientOrderId).To(Equal(o.ClientOrderId))

		Expect(o.Apply(order.NewCanceledEvent(o.ClientOrderId, 3))).To(Succeed())
		c.UpdateOrder(o)

		Expect(c.OrdersOpen()).To(BeEmpty())
		Expect(c.OrdersClosed()).To(ConsistOf(o.ClientOrderId))
	})

	It("tracks a position's open/closed bucket and its linked orders", func() {
		positionId := ident.NewPositionId("P-1")
		orderId := ident.NewClientOrderId("O-3")
		c.LinkOrderToPosition(orderId, positionId)

		p := position.New(positionId, instrumentId, accountId, num.NewQuantityRaw(1, 0), usdt, false, 6)
		c.AddPosition(p)

		Expect(c.PositionsOpen()).To(BeEmpty()) // still flat
		Expect(c.OrdersForPosition(positionId)).To(ConsistOf(orderId))

		_, err := p.ApplyFill(position.Fill{Side: enum.SideBuy, Price: price("100.00"), Quantity: qty("1")}, func() ident.PositionId { return ident.NewPositionId("P-1F") })
		Expect(err).NotTo(HaveOccurred())
		c.UpdatePosition(p)

		Expect(c.PositionsOpen()).To(ConsistOf(positionId))
		Expect(c.PositionsForVenue(ident.NewVenue("BINANCE"))).To(ConsistOf(positionId))
	})

	It("stores and retrieves the latest quote, trade, and a closed bar", func() {
		c.UpdateQuote(marketdata.Quote{
			InstrumentId: instrumentId,
			BidPrice:     price("100.00"),
			AskPrice:     price("100.50"),
			BidSize:      qty("1"),
			AskSize:      qty("1"),
			TsEvent:      1,
		})
		q, ok := c.LatestQuote(instrumentId)
		Expect(ok).To(BeTrue())
		Expect(q.BidPrice.String()).To(Equal("100.00"))

		c.AddBar(marketdata.Bar{
			InstrumentId: instrumentId,
			Spec:         marketdata.BarSpecification{Aggregation: marketdata.BarAggregationTime, Step: 60_000_000_000},
			Open:         price("100.00"), High: price("101.00"), Low: price("99.00"), Close: price("100.50"),
			Volume: qty("10"), TsEvent: 60,
		})
		bars := c.Bars(instrumentId, marketdata.BarSpecification{Aggregation: marketdata.BarAggregationTime, Step: 60_000_000_000})
		Expect(bars).To(HaveLen(1))
	})

	It("rebuilds every index to match the live state exactly", func() {
		strategyId := ident.NewStrategyId("momentum", "001")
		o, err := order.NewLimitOrder(ident.NewClientOrderId("O-4"), strategyId, instrumentId, enum.SideBuy, qty("1"), price("100.00"), enum.TimeInForceGTC, false, 1)
		Expect(err).NotTo(HaveOccurred())
		c.AddOrder(o)
		Expect(o.Apply(order.NewReleasedEvent(o.ClientOrderId, 2))).To(Succeed())
		Expect(o.Apply(order.NewSubmittedEvent(o.ClientOrderId, 2))).To(Succeed())
		Expect(o.Apply(order.NewAcceptedEvent(o.ClientOrderId, ident.NewVenueOrderId("V-2"), 2))).To(Succeed())
		c.UpdateOrder(o)

		Expect(c.Verify()).To(Succeed())
	})
})
