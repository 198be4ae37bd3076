package execclient_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/adapter/execclient"
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"
)

var _ = Describe("execclient.Client", func() {
	var (
		venue        ident.Venue
		instrumentId ident.InstrumentId
		strategyId   ident.StrategyId
	)

	BeforeEach(func() {
		venue = ident.NewVenue("POLYMARKET")
		instrumentId = ident.NewInstrumentId("0xdeadbeef", venue)
		strategyId = ident.NewStrategyId("momentum", "001")
	})

	newOrder := func(side enum.Side) order.Order {
		id := ident.NewClientOrderIdGenerator(ident.NewTraderId("T1"), strategyId, 0, func() int64 { return 1 }).Generate()
		q, err := num.NewQuantityFromString("10", 6)
		Expect(err).NotTo(HaveOccurred())
		p, err := num.NewPriceFromString("0.55", 2)
		Expect(err).NotTo(HaveOccurred())
		o, err := order.NewLimitOrder(id, strategyId, instrumentId, side, q, p, enum.TimeInForceGTC, false, 1)
		Expect(err).NotTo(HaveOccurred())
		return o
	}

	It("constructs in dry-run mode without a wallet key", func() {
		c, err := execclient.New(execclient.Config{BaseURL: "https://clob.example", DryRun: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(c).NotTo(BeNil())
	})

	It("refuses to construct a live client without a wallet key", func() {
		_, err := execclient.New(execclient.Config{BaseURL: "https://clob.example", DryRun: false})
		Expect(err).To(HaveOccurred())
	})

	It("records and reports a dry-run order without touching the network", func() {
		c, err := execclient.New(execclient.Config{DryRun: true})
		Expect(err).NotTo(HaveOccurred())

		o := newOrder(enum.SideBuy)
		Expect(c.Submit(o)).To(Succeed())

		status, err := c.GenerateMassStatus()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.VenueOrders).To(HaveLen(1))
		Expect(status.VenueOrders[0].InstrumentId).To(Equal(instrumentId))
		Expect(status.VenueOrders[0].Quantity.String()).To(Equal(o.Common().Quantity.String()))
	})

	It("removes a dry-run order from the mass status after cancel", func() {
		c, err := execclient.New(execclient.Config{DryRun: true})
		Expect(err).NotTo(HaveOccurred())

		o := newOrder(enum.SideSell)
		Expect(c.Submit(o)).To(Succeed())

		status, err := c.GenerateMassStatus()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.VenueOrders).To(HaveLen(1))
		venueOrderId := status.VenueOrders[0].VenueOrderId

		Expect(c.Cancel(o.Common().ClientOrderId, &venueOrderId)).To(Succeed())

		status, err = c.GenerateMassStatus()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.VenueOrders).To(BeEmpty())
	})

	It("rejects cancel without a venue order id", func() {
		c, err := execclient.New(execclient.Config{DryRun: true})
		Expect(err).NotTo(HaveOccurred())

		o := newOrder(enum.SideBuy)
		Expect(c.Cancel(o.Common().ClientOrderId, nil)).To(HaveOccurred())
	})

	It("always rejects Modify since the venue has no in-place amendment", func() {
		c, err := execclient.New(execclient.Config{DryRun: true})
		Expect(err).NotTo(HaveOccurred())

		o := newOrder(enum.SideBuy)
		q := o.Common().Quantity
		Expect(c.Modify(o.Common().ClientOrderId, &q, nil, nil)).To(HaveOccurred())
	})
})
