package notify

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/pkg/bus"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
	"github.com/gotradekernel/kernel/pkg/order"
	"github.com/gotradekernel/kernel/pkg/position"
)

type fakeSender struct {
	sent []string
}

func (f *fakeSender) Send(text string, markdown bool) error {
	f.sent = append(f.sent, text)
	return nil
}

var _ = Describe("notify.Notifier", func() {
	var (
		b   *bus.Bus
		snd *fakeSender
		n   *Notifier
	)

	BeforeEach(func() {
		b = bus.New()
		snd = &fakeSender{}
		n = newWithSender(snd, b)
		n.Start()
	})

	AfterEach(func() {
		n.Stop()
	})

	It("forwards a denied order event with its reason", func() {
		ev := order.NewDeniedEvent(ident.NewClientOrderId("O-1"), "max open positions reached", 1)
		Expect(b.Publish("order.denied.O-1", ev)).To(Succeed())

		Expect(snd.sent).To(HaveLen(1))
		Expect(snd.sent[0]).To(ContainSubstring("DENIED"))
		Expect(snd.sent[0]).To(ContainSubstring("max open positions reached"))
	})

	It("forwards a position update", func() {
		id := ident.NewPositionId("P-1")
		instrumentId := ident.NewInstrumentId("0xabc", ident.NewVenue("POLYMARKET"))
		accountId := ident.NewAccountId("POLYMARKET", "A-1")
		multiplier := num.NewQuantityRaw(1, 0)
		p := position.New(id, instrumentId, accountId, multiplier, num.MustCurrency("USD"), false, 2)

		Expect(b.Publish("position.updated.0xabc.POLYMARKET", p)).To(Succeed())
		Expect(snd.sent).To(HaveLen(1))
		Expect(snd.sent[0]).To(ContainSubstring("POSITION"))
	})

	It("does nothing and does not error on an unrecognized payload", func() {
		Expect(b.Publish("order.unknown.O-2", "not an order")).To(Succeed())
		Expect(snd.sent).To(BeEmpty())
	})

	It("Stop unsubscribes so further publishes are not forwarded", func() {
		n.Stop()
		ev := order.NewDeniedEvent(ident.NewClientOrderId("O-3"), "stopped", 1)
		Expect(b.Publish("order.denied.O-3", ev)).To(Succeed())
		Expect(snd.sent).To(BeEmpty())
	})
})
