package data_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/pkg/account"
	"github.com/gotradekernel/kernel/pkg/bus"
	"github.com/gotradekernel/kernel/pkg/cache"
	"github.com/gotradekernel/kernel/pkg/data"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/marketdata"
	"github.com/gotradekernel/kernel/pkg/num"
)

type fakeClient struct {
	subscribeCalls   int
	unsubscribeCalls int
	historical       []any
}

func (f *fakeClient) Subscribe(key data.SubscriptionKey) error   { f.subscribeCalls++; return nil }
func (f *fakeClient) Unsubscribe(key data.SubscriptionKey) error { f.unsubscribeCalls++; return nil }
func (f *fakeClient) RequestHistorical(key data.SubscriptionKey, from, to int64) ([]any, error) {
	return f.historical, nil
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

var _ = Describe("Data engine", func() {
	var (
		instrumentId ident.InstrumentId
		client       *fakeClient
		b            *bus.Bus
		c            *cache.Cache
		engine       *data.Engine
	)

	BeforeEach(func() {
		instrumentId = ident.NewInstrumentId("BTCUSDT", ident.NewVenue("BINANCE"))
		client = &fakeClient{}
		b = bus.New()
		c = cache.New()
		c.AddAccount(account.NewCashAccount(ident.NewAccountId("BINANCE", "001")))
		engine = data.New(client, b, c)
	})

	It("subscribes upstream once for N overlapping local subscriptions, unsubscribes on the last drop", func() {
		key := data.SubscriptionKey{InstrumentId: instrumentId, Kind: data.KindTrade}

		Expect(engine.Subscribe(key, false, 0, 0)).To(Succeed())
		Expect(engine.Subscribe(key, false, 0, 0)).To(Succeed())
		Expect(engine.Subscribe(key, false, 0, 0)).To(Succeed())
		Expect(client.subscribeCalls).To(Equal(1))

		Expect(engine.Unsubscribe(key)).To(Succeed())
		Expect(client.unsubscribeCalls).To(Equal(0))
		Expect(engine.Unsubscribe(key)).To(Succeed())
		Expect(engine.Unsubscribe(key)).To(Succeed())
		Expect(client.unsubscribeCalls).To(Equal(1))
	})

	It("drops duplicate and out-of-order trades by (ts_event, sequence)", func() {
		var received []marketdata.Trade
		b.Subscribe("data.trade."+instrumentId.String(), func(topic string, message any) {
			received = append(received, message.(marketdata.Trade))
		}, 0)

		engine.OnTrade(marketdata.Trade{InstrumentId: instrumentId, Price: price("100.00"), Size: qty("1"), TsEvent: 10, Sequence: 1})
		engine.OnTrade(marketdata.Trade{InstrumentId: instrumentId, Price: price("100.00"), Size: qty("1"), TsEvent: 10, Sequence: 1}) // duplicate
		engine.OnTrade(marketdata.Trade{InstrumentId: instrumentId, Price: price("99.00"), Size: qty("1"), TsEvent: 9, Sequence: 2})   // stale ts_event

		Expect(received).To(HaveLen(1))
	})

	It("stitches a backfilled history ahead of the live stream without reprocessing overlap", func() {
		client.historical = []any{
			marketdata.Trade{InstrumentId: instrumentId, Price: price("100.00"), Size: qty("1"), TsEvent: 1, Sequence: 1},
			marketdata.Trade{InstrumentId: instrumentId, Price: price("101.00"), Size: qty("1"), TsEvent: 2, Sequence: 2},
		}
		key := data.SubscriptionKey{InstrumentId: instrumentId, Kind: data.KindTrade}
		Expect(engine.Subscribe(key, true, 0, 2)).To(Succeed())

		var received []marketdata.Trade
		b.Subscribe("data.trade."+instrumentId.String(), func(topic string, message any) {
			received = append(received, message.(marketdata.Trade))
		}, 0)

		// Overlaps with the last backfilled event; must be dropped.
		engine.OnTrade(marketdata.Trade{InstrumentId: instrumentId, Price: price("101.00"), Size: qty("1"), TsEvent: 2, Sequence: 2})
		engine.OnTrade(marketdata.Trade{InstrumentId: instrumentId, Price: price("102.00"), Size: qty("1"), TsEvent: 3, Sequence: 3})

		Expect(received).To(HaveLen(1))
		Expect(received[0].Price.String()).To(Equal("102.00"))
	})

	It("closes a time bar on the trade that crosses its boundary, carrying OHLCV from the prior trades", func() {
		key := data.SubscriptionKey{
			InstrumentId: instrumentId,
			Kind:         data.KindBar,
			BarSpec:      marketdata.BarSpecification{Aggregation: marketdata.BarAggregationTime, Step: 60},
		}
		Expect(engine.Subscribe(key, false, 0, 0)).To(Succeed())

		var bars []marketdata.Bar
		b.Subscribe("data.bar.>", func(topic string, message any) {
			bars = append(bars, message.(marketdata.Bar))
		}, 0)

		engine.OnTrade(marketdata.Trade{InstrumentId: instrumentId, Price: price("100.00"), Size: qty("1"), TsEvent: 5, Sequence: 1})
		engine.OnTrade(marketdata.Trade{InstrumentId: instrumentId, Price: price("105.00"), Size: qty("1"), TsEvent: 30, Sequence: 2})
		engine.OnTrade(marketdata.Trade{InstrumentId: instrumentId, Price: price("95.00"), Size: qty("1"), TsEvent: 61, Sequence: 3}) // crosses the 60ns boundary

		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Open.String()).To(Equal("100.00"))
		Expect(bars[0].High.String()).To(Equal("105.00"))
		Expect(bars[0].Low.String()).To(Equal("100.00"))
		Expect(bars[0].Close.String()).To(Equal("105.00"))
		Expect(bars[0].Volume.String()).To(Equal("2.000000"))

		stored := c.Bars(instrumentId, key.BarSpec)
		Expect(stored).To(HaveLen(1))
	})

	It("closes a tick bar after the configured trade count", func() {
		key := data.SubscriptionKey{
			InstrumentId: instrumentId,
			Kind:         data.KindBar,
			BarSpec:      marketdata.BarSpecification{Aggregation: marketdata.BarAggregationTick, Step: 3},
		}
		Expect(engine.Subscribe(key, false, 0, 0)).To(Succeed())

		var bars []marketdata.Bar
		b.Subscribe("data.bar.>", func(topic string, message any) {
			bars = append(bars, message.(marketdata.Bar))
		}, 0)

		engine.OnTrade(marketdata.Trade{InstrumentId: instrumentId, Price: price("100.00"), Size: qty("1"), TsEvent: 1, Sequence: 1})
		engine.OnTrade(marketdata.Trade{InstrumentId: instrumentId, Price: price("101.00"), Size: qty("1"), TsEvent: 2, Sequence: 2})
		Expect(bars).To(BeEmpty())
		engine.OnTrade(marketdata.Trade{InstrumentId: instrumentId, Price: price("102.00"), Size: qty("1"), TsEvent: 3, Sequence: 3})

		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Volume.String()).To(Equal("3.000000"))
	})
})
