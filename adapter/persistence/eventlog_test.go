package persistence_test

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/adapter/persistence"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/order"
)

var _ = Describe("persistence.EventLog", func() {
	BeforeEach(func() {
		os.Unsetenv("DATABASE_URL")
	})

	It("runs disabled without DATABASE_URL, and every call is a silent no-op", func() {
		el, err := persistence.NewEventLog()
		Expect(err).NotTo(HaveOccurred())
		Expect(el.IsEnabled()).To(BeFalse())

		ev := order.NewDeniedEvent(ident.NewClientOrderId("O-1"), "no client registered", 1)
		Expect(el.Append(ev)).To(Succeed())

		entries, err := el.RecentForOrder("O-1", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())

		Expect(el.Close()).To(Succeed())
	})
})
