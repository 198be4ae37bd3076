package book_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/pkg/book"
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
)

func px(s string) num.Price    { p, err := num.NewPriceFromString(s, 2); Expect(err).NotTo(HaveOccurred()); return p }
func qty(s string) num.Quantity { q, err := num.NewQuantityFromString(s, 4); Expect(err).NotTo(HaveOccurred()); return q }

func newBook(t enum.BookType) *book.OrderBook {
	instrumentId := ident.NewInstrumentId("BTCUSDT", ident.NewVenue("BINANCE"))
	return book.New(instrumentId, t)
}

var _ = Describe("OrderBook", func() {
	Context("L2 ladder", func() {
		It("tracks best bid/ask after adds", func() {
			b := newBook(enum.BookTypeL2)
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideBid, Price: px("100.00"), Size: qty("1.0"), Sequence: 1, TsEvent: 1})).To(Succeed())
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideBid, Price: px("99.50"), Size: qty("2.0"), Sequence: 2, TsEvent: 2})).To(Succeed())
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideAsk, Price: px("100.50"), Size: qty("1.5"), Sequence: 3, TsEvent: 3})).To(Succeed())

			bid, ok := b.BestBidPrice()
			Expect(ok).To(BeTrue())
			Expect(bid.String()).To(Equal("100.00"))

			ask, ok := b.BestAskPrice()
			Expect(ok).To(BeTrue())
			Expect(ask.String()).To(Equal("100.50"))

			spread, ok := b.Spread()
			Expect(ok).To(BeTrue())
			Expect(spread.String()).To(Equal("0.50"))
		})

		It("replaces a level's size on update and removes it at zero", func() {
			b := newBook(enum.BookTypeL2)
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideBid, Price: px("100.00"), Size: qty("1.0"), Sequence: 1, TsEvent: 1})).To(Succeed())
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionUpdate, Side: enum.BookSideBid, Price: px("100.00"), Size: qty("3.0"), Sequence: 2, TsEvent: 2})).To(Succeed())
			size, ok := b.BestBidSize()
			Expect(ok).To(BeTrue())
			Expect(size.String()).To(Equal("3.0000"))

			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionUpdate, Side: enum.BookSideBid, Price: px("100.00"), Size: qty("0"), Sequence: 3, TsEvent: 3})).To(Succeed())
			_, ok = b.BestBidPrice()
			Expect(ok).To(BeFalse())
		})

		It("flags a crossed book without auto-correcting it", func() {
			b := newBook(enum.BookTypeL2)
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideBid, Price: px("101.00"), Size: qty("1.0"), Sequence: 1, TsEvent: 1})).To(Succeed())
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideAsk, Price: px("100.00"), Size: qty("1.0"), Sequence: 2, TsEvent: 2})).To(Succeed())

			issues := b.CheckIntegrity()
			Expect(issues).To(HaveLen(1))
			Expect(issues[0].Kind).To(Equal("crossed"))

			bid, _ := b.BestBidPrice()
			Expect(bid.String()).To(Equal("101.00"))
		})

		It("applies a batch of deltas atomically, rolling back on failure", func() {
			b := newBook(enum.BookTypeL2)
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideBid, Price: px("100.00"), Size: qty("1.0"), Sequence: 1, TsEvent: 1})).To(Succeed())

			err := b.ApplyDeltas([]book.Delta{
				{Action: enum.BookActionAdd, Side: enum.BookSideBid, Price: px("99.00"), Size: qty("1.0"), Sequence: 2, TsEvent: 2},
				{Action: enum.BookActionDelete, Side: enum.BookSideBid, Price: px("50.00"), Size: qty("1.0"), Sequence: 3, TsEvent: 3},
			})
			Expect(err).To(HaveOccurred())

			levels := b.Levels(enum.BookSideBid, 0)
			Expect(levels).To(HaveLen(1))
			Expect(levels[0].Price.String()).To(Equal("100.00"))
		})
	})

	Context("L1 quotes", func() {
		It("replaces top of book on ApplyQuote", func() {
			b := newBook(enum.BookTypeL1)
			Expect(b.ApplyQuote(book.Quote{BidPrice: px("100.00"), AskPrice: px("100.10"), BidSize: qty("1.0"), AskSize: qty("1.0"), Sequence: 1, TsEvent: 1})).To(Succeed())
			mid, ok := b.Midpoint()
			Expect(ok).To(BeTrue())
			Expect(mid.String()).To(Equal("100.05"))

			Expect(b.ApplyQuote(book.Quote{BidPrice: px("100.02"), AskPrice: px("100.08"), BidSize: qty("1.0"), AskSize: qty("1.0"), Sequence: 2, TsEvent: 2})).To(Succeed())
			bid, _ := b.BestBidPrice()
			Expect(bid.String()).To(Equal("100.02"))
		})

		It("rejects ApplyQuote on a non-L1 book", func() {
			b := newBook(enum.BookTypeL2)
			err := b.ApplyQuote(book.Quote{})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Depth10 snapshots", func() {
		It("replaces the full top-of-book with a snapshot", func() {
			b := newBook(enum.BookTypeL2)
			var d book.Depth10
			d.Bids[0] = book.DepthLevel{Price: px("100.00"), Size: qty("1.0")}
			d.Bids[1] = book.DepthLevel{Price: px("99.00"), Size: qty("2.0")}
			d.BidCount = 2
			d.Asks[0] = book.DepthLevel{Price: px("100.50"), Size: qty("1.0")}
			d.AskCount = 1
			d.Sequence = 5
			d.TsEvent = 5

			Expect(b.ApplyDepth10(d)).To(Succeed())
			Expect(b.Levels(enum.BookSideBid, 0)).To(HaveLen(2))
			bid, _ := b.BestBidPrice()
			Expect(bid.String()).To(Equal("100.00"))
		})
	})

	Context("L3 own-book tracking", func() {
		It("keeps own resting orders separate from market depth", func() {
			b := newBook(enum.BookTypeL3)
			b.EnableOwnBook()
			clientOrderId := ident.NewClientOrderId("O-1")

			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideBid, Price: px("100.00"), Size: qty("5.0"), OrderId: "market-order-1", Sequence: 1, TsEvent: 1})).To(Succeed())
			Expect(b.AddOwnOrder(clientOrderId, enum.SideBuy, px("100.00"), qty("1.0"), 2)).To(Succeed())

			size, ok := b.BestBidSize()
			Expect(ok).To(BeTrue())
			Expect(size.String()).To(Equal("5.0000"))

			own := b.OwnQuantityAt(enum.BookSideBid, px("100.00"))
			Expect(own.String()).To(Equal("1.0000"))

			Expect(b.DeleteOwnOrder(clientOrderId, enum.SideBuy, px("100.00"), qty("1.0"))).To(Succeed())
			Expect(b.OwnQuantityAt(enum.BookSideBid, px("100.00")).IsZero()).To(BeTrue())
		})

		It("rejects own-order operations when own-book tracking is not enabled", func() {
			b := newBook(enum.BookTypeL3)
			err := b.AddOwnOrder(ident.NewClientOrderId("O-1"), enum.SideBuy, px("100.00"), qty("1.0"), 1)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("fill simulation", func() {
		It("walks the opposite ladder without mutating the book", func() {
			b := newBook(enum.BookTypeL2)
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideAsk, Price: px("100.00"), Size: qty("1.0"), Sequence: 1, TsEvent: 1})).To(Succeed())
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideAsk, Price: px("100.50"), Size: qty("2.0"), Sequence: 2, TsEvent: 2})).To(Succeed())

			limit := px("100.40")
			fills := b.SimulateFills(enum.SideBuy, &limit, qty("2.0"))
			Expect(fills).To(HaveLen(1))
			Expect(fills[0].Price.String()).To(Equal("100.00"))
			Expect(fills[0].Size.String()).To(Equal("1.0000"))

			size, _ := b.BestAskSize()
			Expect(size.String()).To(Equal("1.0000"))
		})

		It("fills across multiple levels up to the requested quantity", func() {
			b := newBook(enum.BookTypeL2)
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideAsk, Price: px("100.00"), Size: qty("1.0"), Sequence: 1, TsEvent: 1})).To(Succeed())
			Expect(b.ApplyDelta(book.Delta{Action: enum.BookActionAdd, Side: enum.BookSideAsk, Price: px("100.50"), Size: qty("2.0"), Sequence: 2, TsEvent: 2})).To(Succeed())

			fills := b.SimulateFills(enum.SideBuy, nil, qty("2.5"))
			Expect(fills).To(HaveLen(2))
			Expect(fills[0].Size.String()).To(Equal("1.0000"))
			Expect(fills[1].Size.String()).To(Equal("1.5000"))
		})
	})
})
