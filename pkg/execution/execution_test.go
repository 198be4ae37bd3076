package execution_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/pkg/account"
	"github.com/gotradekernel/kernel/pkg/bus"
	"github.com/gotradekernel/kernel/pkg/cache"
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/execution"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/instrument"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"
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

// fakeClient is a venue-keyed execution.Client test double. submitErr/
// cancelErr/modifyErr let a test force a venue-side rejection.
type fakeClient struct {
	submitted []order.Order
	canceled  []ident.ClientOrderId
	modified  []ident.ClientOrderId

	submitErr error
	cancelErr error
	modifyErr error

	massStatus execution.MassStatus
}

func (f *fakeClient) Submit(o order.Order) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, o)
	return nil
}

func (f *fakeClient) Cancel(clientOrderId ident.ClientOrderId, venueOrderId *ident.VenueOrderId) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.canceled = append(f.canceled, clientOrderId)
	return nil
}

func (f *fakeClient) Modify(clientOrderId ident.ClientOrderId, newQty *num.Quantity, newPrice, newTrigger *num.Price) error {
	if f.modifyErr != nil {
		return f.modifyErr
	}
	f.modified = append(f.modified, clientOrderId)
	return nil
}

func (f *fakeClient) GenerateMassStatus() (execution.MassStatus, error) {
	return f.massStatus, nil
}

var _ = Describe("Execution engine", func() {
	var (
		venue        ident.Venue
		instrumentId ident.InstrumentId
		accountId    ident.AccountId
		strategyId   ident.StrategyId

		b       *bus.Bus
		c       *cache.Cache
		client  *fakeClient
		engine  *execution.Engine
	)

	BeforeEach(func() {
		venue = ident.NewVenue("BINANCE")
		instrumentId = ident.NewInstrumentId("BTCUSDT", venue)
		accountId = ident.NewAccountId("BINANCE", "001")
		strategyId = ident.NewStrategyId("momentum", "001")

		b = bus.New()
		c = cache.New()
		c.AddInstrument(newSpot(instrumentId))
		c.AddAccount(account.NewCashAccount(accountId))

		client = &fakeClient{}

		clientOrderIds := ident.NewClientOrderIdGenerator(ident.NewTraderId("T1"), strategyId, 0, func() int64 { return 1000 })
		positionIds := ident.NewPositionIdGenerator()
		engine = execution.New(b, c, clientOrderIds, positionIds)
		engine.RegisterClient(venue, client)
	})

	newLimitOrder := func(side enum.Side, qtyStr, priceStr string) order.Order {
		id := engine.NextClientOrderId()
		o, err := order.NewLimitOrder(id, strategyId, instrumentId, side, qty(qtyStr), price(priceStr), enum.TimeInForceGTC, false, 1)
		Expect(err).NotTo(HaveOccurred())
		return o
	}

	It("submits an order through Released/Submitted and routes it to the venue client", func() {
		o := newLimitOrder(enum.SideBuy, "1", "100.00")
		Expect(engine.SubmitOrder(o, accountId, 1)).To(Succeed())

		Expect(o.Common().Status).To(Equal(enum.OrderStatusSubmitted))
		Expect(client.submitted).To(HaveLen(1))
		Expect(c.OrdersInflight()).To(ContainElement(o.Common().ClientOrderId))
	})

	It("denies an order when no client is registered for its venue", func() {
		otherVenue := ident.NewVenue("COINBASE")
		otherInstrument := ident.NewInstrumentId("ETHUSD", otherVenue)
		c.AddInstrument(newSpot(otherInstrument))

		id := engine.NextClientOrderId()
		o, err := order.NewLimitOrder(id, strategyId, otherInstrument, enum.SideBuy, qty("1"), price("100.00"), enum.TimeInForceGTC, false, 1)
		Expect(err).NotTo(HaveOccurred())

		Expect(engine.SubmitOrder(o, accountId, 1)).To(HaveOccurred())
		Expect(o.Common().Status).To(Equal(enum.OrderStatusDenied))
	})

	It("rejects an order the venue client refuses at submission", func() {
		client.submitErr = kernerr.New(kernerr.Transport, "venue unreachable")
		o := newLimitOrder(enum.SideBuy, "1", "100.00")

		Expect(engine.SubmitOrder(o, accountId, 1)).To(Succeed())
		Expect(o.Common().Status).To(Equal(enum.OrderStatusRejected))
	})

	It("captures the venue order id on the first Accepted event", func() {
		o := newLimitOrder(enum.SideBuy, "1", "100.00")
		Expect(engine.SubmitOrder(o, accountId, 1)).To(Succeed())

		venueOrderId := ident.NewVenueOrderId("V-1")
		engine.OnOrderEvent(order.NewAcceptedEvent(o.Common().ClientOrderId, venueOrderId, 2))

		Expect(o.Common().Status).To(Equal(enum.OrderStatusAccepted))
		found, ok := c.OrderByVenueOrderId(venueOrderId)
		Expect(ok).To(BeTrue())
		Expect(found.Common().ClientOrderId).To(Equal(o.Common().ClientOrderId))
	})

	It("opens a position on an order's first fill", func() {
		o := newLimitOrder(enum.SideBuy, "1", "100.00")
		Expect(engine.SubmitOrder(o, accountId, 1)).To(Succeed())
		engine.OnOrderEvent(order.NewAcceptedEvent(o.Common().ClientOrderId, ident.NewVenueOrderId("V-1"), 2))

		commission := num.NewMoneyRaw(0, usdt)
		engine.OnOrderEvent(order.NewFilledEvent(o.Common().ClientOrderId, ident.NewTradeId("TR-1"), price("100.00"), qty("1"), enum.LiquidityTaker, commission, 3))

		Expect(c.PositionsOpen()).To(HaveLen(1))
		positionId, ok := c.PositionForOrder(o.Common().ClientOrderId)
		Expect(ok).To(BeTrue())
		p, ok := c.Position(positionId)
		Expect(ok).To(BeTrue())
		Expect(p.Side).To(Equal(enum.PositionLong))
		Expect(p.SignedQty.String()).To(Equal("1.000000"))
	})

	It("flips a position when an opposing fill exceeds its quantity", func() {
		buy := newLimitOrder(enum.SideBuy, "1", "100.00")
		Expect(engine.SubmitOrder(buy, accountId, 1)).To(Succeed())
		engine.OnOrderEvent(order.NewAcceptedEvent(buy.Common().ClientOrderId, ident.NewVenueOrderId("V-1"), 2))
		commission := num.NewMoneyRaw(0, usdt)
		engine.OnOrderEvent(order.NewFilledEvent(buy.Common().ClientOrderId, ident.NewTradeId("TR-1"), price("100.00"), qty("1"), enum.LiquidityTaker, commission, 3))

		originalPositionId, ok := c.PositionForOrder(buy.Common().ClientOrderId)
		Expect(ok).To(BeTrue())

		sell := newLimitOrder(enum.SideSell, "2", "110.00")
		Expect(engine.SubmitOrder(sell, accountId, 4)).To(Succeed())
		engine.OnOrderEvent(order.NewAcceptedEvent(sell.Common().ClientOrderId, ident.NewVenueOrderId("V-2"), 5))
		engine.OnOrderEvent(order.NewFilledEvent(sell.Common().ClientOrderId, ident.NewTradeId("TR-2"), price("110.00"), qty("2"), enum.LiquidityTaker, commission, 6))

		Expect(c.PositionsClosed()).To(ContainElement(originalPositionId))

		newPositionId, ok := c.PositionForOrder(sell.Common().ClientOrderId)
		Expect(ok).To(BeTrue())
		Expect(newPositionId).NotTo(Equal(originalPositionId))

		p, ok := c.Position(newPositionId)
		Expect(ok).To(BeTrue())
		Expect(p.Side).To(Equal(enum.PositionShort))
		Expect(p.SignedQty.String()).To(Equal("-1.000000"))
	})

	It("marks an order PendingCancel and routes the cancel to the venue client", func() {
		o := newLimitOrder(enum.SideBuy, "1", "100.00")
		Expect(engine.SubmitOrder(o, accountId, 1)).To(Succeed())
		engine.OnOrderEvent(order.NewAcceptedEvent(o.Common().ClientOrderId, ident.NewVenueOrderId("V-1"), 2))

		Expect(engine.CancelOrder(o.Common().ClientOrderId, 3)).To(Succeed())

		Expect(o.Common().Status).To(Equal(enum.OrderStatusPendingCancel))
		Expect(client.canceled).To(ConsistOf(o.Common().ClientOrderId))
		Expect(c.OrdersPendingCancel()).To(ContainElement(o.Common().ClientOrderId))
	})

	It("reconciles a venue-known order absent locally by synthesizing it with the external strategy", func() {
		venueOrderId := ident.NewVenueOrderId("V-EXTERNAL")
		status := execution.MassStatus{
			VenueOrders: []execution.VenueOrderReport{{
				VenueOrderId: venueOrderId,
				InstrumentId: instrumentId,
				Side:         enum.SideBuy,
				Quantity:     qty("1"),
				FilledQty:    qty("0"),
				Price:        ptrPrice(price("100.00")),
				Status:       enum.OrderStatusAccepted,
				TsEvent:      1,
			}},
		}

		Expect(engine.Reconcile(venue, status, 1)).To(Succeed())

		found, ok := c.OrderByVenueOrderId(venueOrderId)
		Expect(ok).To(BeTrue())
		Expect(found.Common().StrategyId.IsExternal()).To(BeTrue())
		Expect(found.Common().Status).To(Equal(enum.OrderStatusAccepted))
	})

	It("expires a locally open order on venue whose mass status no longer lists it", func() {
		o := newLimitOrder(enum.SideBuy, "1", "100.00")
		Expect(engine.SubmitOrder(o, accountId, 1)).To(Succeed())
		engine.OnOrderEvent(order.NewAcceptedEvent(o.Common().ClientOrderId, ident.NewVenueOrderId("V-1"), 2))

		Expect(engine.Reconcile(venue, execution.MassStatus{}, 3)).To(Succeed())

		Expect(o.Common().Status).To(Equal(enum.OrderStatusExpired))
	})
})

func ptrPrice(p num.Price) *num.Price { return &p }
