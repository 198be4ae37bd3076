package persistence_test

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gotradekernel/kernel/adapter/persistence"
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/execution"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
)

var _ = Describe("persistence.SnapshotStore", func() {
	var (
		store *persistence.SnapshotStore
		venue ident.Venue
	)

	BeforeEach(func() {
		dsn := filepath.Join(GinkgoT().TempDir(), "snapshots.db")
		var err error
		store, err = persistence.NewSnapshotStore(dsn)
		Expect(err).NotTo(HaveOccurred())
		venue = ident.NewVenue("POLYMARKET")
	})

	It("round-trips a mass status snapshot including fixed-point fields", func() {
		instrumentId := ident.NewInstrumentId("0xdeadbeef", venue)
		price, err := num.NewPriceFromString("0.55", 2)
		Expect(err).NotTo(HaveOccurred())
		qty, err := num.NewQuantityFromString("10", 6)
		Expect(err).NotTo(HaveOccurred())

		status := execution.MassStatus{
			VenueOrders: []execution.VenueOrderReport{{
				VenueOrderId: ident.NewVenueOrderId("V-1"),
				InstrumentId: instrumentId,
				Side:         enum.SideBuy,
				Quantity:     qty,
				Price:        &price,
				Status:       enum.OrderStatusAccepted,
				TsEvent:      1,
			}},
		}

		takenAt := time.Unix(0, 1).UTC()
		Expect(store.SaveSnapshot(venue, status, takenAt)).To(Succeed())

		got, gotTakenAt, err := store.LatestSnapshot(venue)
		Expect(err).NotTo(HaveOccurred())
		Expect(gotTakenAt.Equal(takenAt)).To(BeTrue())
		Expect(got.VenueOrders).To(HaveLen(1))
		Expect(got.VenueOrders[0].Quantity.String()).To(Equal("10.000000"))
		Expect(got.VenueOrders[0].Price.Decimal().String()).To(Equal("0.55"))
	})

	It("returns snapshots taken since a cutoff in order", func() {
		first := time.Unix(0, 1).UTC()
		second := time.Unix(0, 2).UTC()
		Expect(store.SaveSnapshot(venue, execution.MassStatus{}, first)).To(Succeed())
		Expect(store.SaveSnapshot(venue, execution.MassStatus{}, second)).To(Succeed())

		rows, err := store.SnapshotsSince(venue, first)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(2))
		Expect(rows[0].TakenAt.Equal(first)).To(BeTrue())
		Expect(rows[1].TakenAt.Equal(second)).To(BeTrue())
	})
})
