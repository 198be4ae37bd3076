package dataclient

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/pkg/bus"
	"github.com/gotradekernel/kernel/pkg/cache"
	"github.com/gotradekernel/kernel/pkg/data"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/instrument"
	"github.com/gotradekernel/kernel/pkg/num"
)

var _ = Describe("dataclient.Client", func() {
	var (
		instrumentId ident.InstrumentId
		b            *bus.Bus
		c            *cache.Cache
		cl           *Client
		engine       *data.Engine
	)

	BeforeEach(func() {
		venue := ident.NewVenue("POLYMARKET")
		instrumentId = ident.NewInstrumentId("0xdeadbeef", venue)

		usdc := num.MustCurrency("USDC")
		b = bus.New()
		c = cache.New()
		c.AddInstrument(instrument.Spot{Base: instrument.Base{
			ID:             instrumentId,
			PricePrecision: 2,
			SizePrecision:  6,
			QuoteCurrency:  usdc,
			SettlementCcy:  usdc,
			Multiplier:     num.NewQuantityRaw(1, 0),
		}})

		cl = New(ConfigFromEnv(), b, c)
		engine = data.New(cl, b, c)
		cl.SetEngine(engine)

		Expect(cl.Subscribe(data.SubscriptionKey{InstrumentId: instrumentId, Kind: data.KindQuote})).To(Succeed())
	})

	It("applies a book snapshot to the cache and derives a quote", func() {
		msg := []byte(`{"event_type":"book","market":"m1","asset_id":"0xdeadbeef","sequence":1,
			"bids":[["0.45","100"]],"asks":[["0.47","80"]]}`)
		cl.processMessage(msg)

		ob, ok := c.Book(instrumentId)
		Expect(ok).To(BeTrue())
		bidPrice, ok := ob.BestBidPrice()
		Expect(ok).To(BeTrue())
		Expect(bidPrice.Decimal().String()).To(Equal("0.45"))

		quote, ok := c.LatestQuote(instrumentId)
		Expect(ok).To(BeTrue())
		Expect(quote.AskPrice.Decimal().String()).To(Equal("0.47"))
	})

	It("decodes a price_change event into a centered quote", func() {
		msg := []byte(`{"event_type":"price_change","market":"m1","asset_id":"0xdeadbeef","price":"0.52","sequence":2}`)
		cl.processMessage(msg)

		quote, ok := c.LatestQuote(instrumentId)
		Expect(ok).To(BeTrue())
		Expect(quote.BidPrice.Decimal().String()).To(Equal("0.52"))
		Expect(quote.AskPrice.Decimal().String()).To(Equal("0.52"))
	})

	It("decodes a last_trade_price event into a trade", func() {
		msg := []byte(`{"event_type":"last_trade_price","market":"m1","asset_id":"0xdeadbeef","price":"0.50","side":"BUY","sequence":3}`)
		cl.processMessage(msg)

		trade, ok := c.LatestTrade(instrumentId)
		Expect(ok).To(BeTrue())
		Expect(trade.Price.Decimal().String()).To(Equal("0.50"))
	})

	It("drops messages for an asset with no active subscription", func() {
		msg := []byte(`{"event_type":"last_trade_price","market":"m2","asset_id":"0xunknown","price":"1.00","sequence":1}`)
		cl.processMessage(msg)

		_, ok := c.LatestTrade(ident.NewInstrumentId("0xunknown", ident.NewVenue("POLYMARKET")))
		Expect(ok).To(BeFalse())
	})

	It("reports historical backfill as unsupported", func() {
		_, err := cl.RequestHistorical(data.SubscriptionKey{InstrumentId: instrumentId, Kind: data.KindTrade}, 0, 1)
		Expect(err).To(HaveOccurred())
	})
})
