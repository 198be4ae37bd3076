package position_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/position"
)

func px(s string) num.Price     { p, err := num.NewPriceFromString(s, 2); Expect(err).NotTo(HaveOccurred()); return p }
func qty(s string) num.Quantity { q, err := num.NewQuantityFromString(s, 4); Expect(err).NotTo(HaveOccurred()); return q }

var usdt = num.MustCurrency("USDT")
var one = qty("1.0")

func newFlatPosition() *position.Position {
	instrumentId := ident.NewInstrumentId("BTCUSDT", ident.NewVenue("BINANCE"))
	accountId := ident.NewAccountId("BINANCE", "001")
	return position.New(ident.NewPositionId("P-1"), instrumentId, accountId, one, usdt, false, 4)
}

func fill(side enum.Side, price num.Price, quantity num.Quantity, ts int64) position.Fill {
	return position.Fill{
		Side:          side,
		Price:         price,
		Quantity:      quantity,
		LiquiditySide: enum.LiquidityTaker,
		Commission:    num.NewMoneyRaw(0, usdt),
		TsEvent:       ts,
		OrderId:       ident.NewClientOrderId("O-1"),
	}
}

var _ = Describe("Position aggregator", func() {
	It("opens on the first fill", func() {
		p := newFlatPosition()
		_, err := p.ApplyFill(fill(enum.SideBuy, px("100.00"), qty("1.0"), 1), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Side).To(Equal(enum.PositionLong))
		Expect(p.SignedQty.String()).To(Equal("1.0000"))
		Expect(p.AvgPxOpen.String()).To(Equal("100.00"))
	})

	It("adds to the position and recomputes the weighted average open price", func() {
		p := newFlatPosition()
		_, err := p.ApplyFill(fill(enum.SideBuy, px("100.00"), qty("1.0"), 1), nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = p.ApplyFill(fill(enum.SideBuy, px("102.00"), qty("1.0"), 2), nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(p.SignedQty.String()).To(Equal("2.0000"))
		Expect(p.AvgPxOpen.String()).To(Equal("101.00"))
		Expect(p.PeakQty.String()).To(Equal("2.0000"))
	})

	It("reduces and realizes PnL on an opposite-direction fill, closing to flat", func() {
		p := newFlatPosition()
		_, err := p.ApplyFill(fill(enum.SideBuy, px("100.00"), qty("1.0"), 1), nil)
		Expect(err).NotTo(HaveOccurred())

		flip, err := p.ApplyFill(fill(enum.SideSell, px("110.00"), qty("1.0"), 2), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(flip).To(BeNil())

		Expect(p.IsFlat()).To(BeTrue())
		Expect(p.RealizedPnl.String()).To(Equal("10.000000 USDT"))
		Expect(p.TsClosed).NotTo(BeNil())
		Expect(*p.TsClosed).To(Equal(int64(2)))
	})

	It("realizes a loss on a short position when the market rises", func() {
		p := newFlatPosition()
		_, err := p.ApplyFill(fill(enum.SideSell, px("100.00"), qty("1.0"), 1), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Side).To(Equal(enum.PositionShort))

		_, err = p.ApplyFill(fill(enum.SideBuy, px("110.00"), qty("1.0"), 2), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.RealizedPnl.String()).To(Equal("-10.000000 USDT"))
	})

	It("flips atomically when the fill exceeds the current quantity", func() {
		p := newFlatPosition()
		_, err := p.ApplyFill(fill(enum.SideBuy, px("100.00"), qty("1.0"), 1), nil)
		Expect(err).NotTo(HaveOccurred())

		calls := 0
		newId := func() ident.PositionId {
			calls++
			return ident.NewPositionId("P-1F")
		}
		result, err := p.ApplyFill(fill(enum.SideSell, px("110.00"), qty("1.5"), 2), newId)
		Expect(err).NotTo(HaveOccurred())
		Expect(result).NotTo(BeNil())
		Expect(calls).To(Equal(1))

		Expect(result.Closed.IsFlat()).To(BeTrue())
		Expect(result.Closed.IsSealed()).To(BeTrue())
		Expect(result.Closed.RealizedPnl.String()).To(Equal("10.000000 USDT"))

		Expect(result.Opened.Side).To(Equal(enum.PositionShort))
		Expect(result.Opened.SignedQty.String()).To(Equal("-0.5000"))
		Expect(result.Opened.AvgPxOpen.String()).To(Equal("110.00"))
		Expect(result.Opened.Id.String()).To(Equal("P-1F"))
	})

	It("rejects further fills against a sealed position", func() {
		p := newFlatPosition()
		_, err := p.ApplyFill(fill(enum.SideBuy, px("100.00"), qty("1.0"), 1), nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = p.ApplyFill(fill(enum.SideSell, px("110.00"), qty("1.5"), 2), func() ident.PositionId { return ident.NewPositionId("P-1F") })
		Expect(err).NotTo(HaveOccurred())

		_, err = p.ApplyFill(fill(enum.SideBuy, px("100.00"), qty("0.1"), 3), nil)
		Expect(err).To(HaveOccurred())
	})

	It("computes unrealized PnL at a mark price", func() {
		p := newFlatPosition()
		_, err := p.ApplyFill(fill(enum.SideBuy, px("100.00"), qty("1.0"), 1), nil)
		Expect(err).NotTo(HaveOccurred())

		unrealized := p.UnrealizedPnl(px("105.00"))
		Expect(unrealized.String()).To(Equal("5.000000 USDT"))
	})
})
