package bus_test

import (
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/pkg/bus"
)

var _ = Describe("Bus", func() {
	var b *bus.Bus

	BeforeEach(func() {
		b = bus.New()
	})

	It("matches a single-segment wildcard", func() {
		var got []string
		b.Subscribe("data.quote.*.BINANCE", func(topic string, message any) {
			got = append(got, topic)
		}, 0)

		Expect(b.Publish("data.quote.BTCUSDT.BINANCE", nil)).To(Succeed())
		Expect(b.Publish("data.quote.ETHUSDT.BINANCE", nil)).To(Succeed())
		Expect(b.Publish("data.quote.BTCUSDT.COINBASE", nil)).To(Succeed())

		Expect(got).To(Equal([]string{"data.quote.BTCUSDT.BINANCE", "data.quote.ETHUSDT.BINANCE"}))
	})

	It("matches a trailing multi-segment wildcard", func() {
		count := 0
		b.Subscribe("data.>", func(topic string, message any) { count++ }, 0)

		Expect(b.Publish("data.quote.BTCUSDT.BINANCE", nil)).To(Succeed())
		Expect(b.Publish("data.trade.BTCUSDT.BINANCE", nil)).To(Succeed())
		Expect(b.Publish("orders.accepted", nil)).To(Succeed())

		Expect(count).To(Equal(2))
	})

	It("delivers in descending priority, then subscribe order", func() {
		var order []string
		b.Subscribe("x", func(topic string, message any) { order = append(order, "low") }, 0)
		b.Subscribe("x", func(topic string, message any) { order = append(order, "high-1") }, 10)
		b.Subscribe("x", func(topic string, message any) { order = append(order, "high-2") }, 10)

		Expect(b.Publish("x", nil)).To(Succeed())
		Expect(order).To(Equal([]string{"high-1", "high-2", "low"}))
	})

	It("stops delivering to an unsubscribed handler", func() {
		fired := false
		id := b.Subscribe("x", func(topic string, message any) { fired = true }, 0)
		b.Unsubscribe(id)

		Expect(b.Publish("x", nil)).To(Succeed())
		Expect(fired).To(BeFalse())
	})

	It("rejects a re-entrant publish of the same topic", func() {
		var inner error
		b.Subscribe("x", func(topic string, message any) {
			inner = b.Publish("x", nil)
		}, 0)

		Expect(b.Publish("x", nil)).To(Succeed())
		Expect(inner).To(HaveOccurred())
	})

	It("routes a response back to the requester via correlation id", func() {
		b.RegisterEndpoint("echo", func(correlationId uuid.UUID, payload any) {
			b.Respond(correlationId, payload, nil)
		})

		var got any
		_, err := b.Request("echo", "ping", 0, 1000, func(response any, respErr error) {
			got = response
			Expect(respErr).NotTo(HaveOccurred())
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal("ping"))
	})

	It("times out a request with no response", func() {
		b.RegisterEndpoint("silent", func(correlationId uuid.UUID, payload any) {})

		var gotErr error
		_, err := b.Request("silent", nil, 0, 100, func(response any, respErr error) {
			gotErr = respErr
		})
		Expect(err).NotTo(HaveOccurred())

		b.ExpirePendingRequests(50)
		Expect(gotErr).To(BeNil())

		b.ExpirePendingRequests(150)
		Expect(gotErr).To(Equal(bus.ErrRequestTimeout))
	})

	It("errors on a request to an unregistered endpoint", func() {
		_, err := b.Request("nope", nil, 0, 100, func(response any, respErr error) {})
		Expect(err).To(HaveOccurred())
	})
})
