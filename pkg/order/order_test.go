package order_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"
)

func px(s string) num.Price     { p, err := num.NewPriceFromString(s, 2); Expect(err).NotTo(HaveOccurred()); return p }
func qty(s string) num.Quantity { q, err := num.NewQuantityFromString(s, 4); Expect(err).NotTo(HaveOccurred()); return q }

var usdt = num.MustCurrency("USDT")

func newTestLimit() *order.Limit {
	clientOrderId := ident.NewClientOrderId("O-1")
	strategyId := ident.NewStrategyId("EMA", "001")
	instrumentId := ident.NewInstrumentId("BTCUSDT", ident.NewVenue("BINANCE"))
	l, err := order.NewLimitOrder(clientOrderId, strategyId, instrumentId, enum.SideBuy, qty("1.0"), px("100.00"), enum.TimeInForceGTC, false, 1)
	Expect(err).NotTo(HaveOccurred())
	return l
}

var _ = Describe("Order state machine", func() {
	Context("happy path lifecycle", func() {
		It("moves Initialized -> Released -> Submitted -> Accepted -> Filled", func() {
			l := newTestLimit()
			Expect(l.Common().Status).To(Equal(enum.OrderStatusInitialized))

			Expect(l.Apply(order.NewReleasedEvent(l.Common().ClientOrderId, 2))).To(Succeed())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusReleased))

			Expect(l.Apply(order.NewSubmittedEvent(l.Common().ClientOrderId, 3))).To(Succeed())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusSubmitted))

			venueOrderId := ident.NewVenueOrderId("V-1")
			Expect(l.Apply(order.NewAcceptedEvent(l.Common().ClientOrderId, venueOrderId, 4))).To(Succeed())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusAccepted))
			Expect(l.Common().VenueOrderId.String()).To(Equal("V-1"))

			fill := order.NewFilledEvent(l.Common().ClientOrderId, ident.NewTradeId("T-1"), px("100.00"), qty("1.0"), enum.LiquidityMaker, num.NewMoneyRaw(0, usdt), 5)
			Expect(l.Apply(fill)).To(Succeed())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusFilled))
			Expect(l.Common().LeavesQty().IsZero()).To(BeTrue())
			Expect(l.Common().Events).To(HaveLen(4))
		})

		It("computes the weighted average fill price across partial fills", func() {
			clientOrderId := ident.NewClientOrderId("O-2")
			strategyId := ident.NewStrategyId("EMA", "001")
			instrumentId := ident.NewInstrumentId("BTCUSDT", ident.NewVenue("BINANCE"))
			l, err := order.NewLimitOrder(clientOrderId, strategyId, instrumentId, enum.SideBuy, qty("2.0"), px("100.00"), enum.TimeInForceGTC, false, 1)
			Expect(err).NotTo(HaveOccurred())

			Expect(l.Apply(order.NewReleasedEvent(clientOrderId, 2))).To(Succeed())
			Expect(l.Apply(order.NewSubmittedEvent(clientOrderId, 2))).To(Succeed())
			Expect(l.Apply(order.NewAcceptedEvent(clientOrderId, ident.NewVenueOrderId("V-2"), 2))).To(Succeed())

			Expect(l.Apply(order.NewFilledEvent(clientOrderId, ident.NewTradeId("T-1"), px("100.00"), qty("1.0"), enum.LiquidityMaker, num.NewMoneyRaw(0, usdt), 3))).To(Succeed())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusPartiallyFilled))

			Expect(l.Apply(order.NewFilledEvent(clientOrderId, ident.NewTradeId("T-2"), px("102.00"), qty("1.0"), enum.LiquidityTaker, num.NewMoneyRaw(0, usdt), 4))).To(Succeed())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusFilled))
			Expect(l.Common().AvgPx.String()).To(Equal("101.00"))
		})
	})

	Context("invalid transitions", func() {
		It("rejects an event not legal from the current status", func() {
			l := newTestLimit()
			err := l.Apply(order.NewFilledEvent(l.Common().ClientOrderId, ident.NewTradeId("T-1"), px("100.00"), qty("1.0"), enum.LiquidityMaker, num.NewMoneyRaw(0, usdt), 2))
			Expect(err).To(HaveOccurred())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusInitialized))
		})

		It("rejects an event whose client_order_id does not match", func() {
			l := newTestLimit()
			foreign := order.NewReleasedEvent(ident.NewClientOrderId("O-other"), 2)
			err := l.Apply(foreign)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("pending amend revert", func() {
		It("reverts to the pre-amend status on ModifyRejected", func() {
			l := newTestLimit()
			Expect(l.Apply(order.NewReleasedEvent(l.Common().ClientOrderId, 2))).To(Succeed())
			Expect(l.Apply(order.NewSubmittedEvent(l.Common().ClientOrderId, 3))).To(Succeed())
			Expect(l.Apply(order.NewAcceptedEvent(l.Common().ClientOrderId, ident.NewVenueOrderId("V-1"), 4))).To(Succeed())

			Expect(l.Apply(order.NewPendingUpdateEvent(l.Common().ClientOrderId, 5))).To(Succeed())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusPendingUpdate))

			Expect(l.Apply(order.NewModifyRejectedEvent(l.Common().ClientOrderId, "reduce-only breach", 6))).To(Succeed())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusAccepted))
		})

		It("reverts to the pre-cancel status on CancelRejected", func() {
			l := newTestLimit()
			Expect(l.Apply(order.NewReleasedEvent(l.Common().ClientOrderId, 2))).To(Succeed())
			Expect(l.Apply(order.NewSubmittedEvent(l.Common().ClientOrderId, 3))).To(Succeed())
			Expect(l.Apply(order.NewAcceptedEvent(l.Common().ClientOrderId, ident.NewVenueOrderId("V-1"), 4))).To(Succeed())
			Expect(l.Apply(order.NewFilledEvent(l.Common().ClientOrderId, ident.NewTradeId("T-1"), px("100.00"), qty("0.5"), enum.LiquidityMaker, num.NewMoneyRaw(0, usdt), 5))).To(Succeed())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusPartiallyFilled))

			Expect(l.Apply(order.NewPendingCancelEvent(l.Common().ClientOrderId, 6))).To(Succeed())
			Expect(l.Apply(order.NewCancelRejectedEvent(l.Common().ClientOrderId, "already filled", 7))).To(Succeed())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusPartiallyFilled))
		})
	})

	Context("post-only protection", func() {
		It("maps a venue post-only-cross rejection to Rejected with the canonical reason", func() {
			clientOrderId := ident.NewClientOrderId("O-3")
			strategyId := ident.NewStrategyId("EMA", "001")
			instrumentId := ident.NewInstrumentId("BTCUSDT", ident.NewVenue("BINANCE"))
			l, err := order.NewLimitOrder(clientOrderId, strategyId, instrumentId, enum.SideBuy, qty("1.0"), px("100.00"), enum.TimeInForceGTC, true, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(l.Common().PostOnly).To(BeTrue())

			Expect(l.Apply(order.NewReleasedEvent(clientOrderId, 2))).To(Succeed())
			Expect(l.Apply(order.NewSubmittedEvent(clientOrderId, 3))).To(Succeed())
			Expect(l.Apply(order.NewRejectedEvent(clientOrderId, order.PostOnlyRejectReason, 4))).To(Succeed())
			Expect(l.Common().Status).To(Equal(enum.OrderStatusRejected))
			Expect(l.Common().Events[len(l.Common().Events)-1].Reason).To(Equal(order.PostOnlyRejectReason))
		})
	})
})
