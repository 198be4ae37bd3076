package book

import (
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
)

// ownBook tracks the engine's own resting orders in a ladder parallel to
// the public market depth. It is always L3: every own order retains its
// identity, since the execution engine needs to find and cancel/modify
// it later by client order id.
type ownBook struct {
	bids *ladder
	asks *ladder
}

func newOwnBook() *ownBook {
	return &ownBook{bids: newLadder(enum.BookSideBid), asks: newLadder(enum.BookSideAsk)}
}

// EnableOwnBook turns on own-order tracking for this book. It is a no-op
// if already enabled.
func (b *OrderBook) EnableOwnBook() {
	if b.own == nil {
		b.own = newOwnBook()
	}
}

func (b *OrderBook) OwnBookEnabled() bool { return b.own != nil }

func (b *OrderBook) ownLadder(side enum.BookSide) *ladder {
	if side == enum.BookSideBid {
		return b.own.bids
	}
	return b.own.asks
}

func (b *OrderBook) requireOwnBook() error {
	if b.own == nil {
		return kernerr.New(kernerr.InvariantViolation, "book: own-book tracking is not enabled for %s", b.InstrumentId.String())
	}
	return nil
}

// AddOwnOrder registers a resting own order, keyed by clientOrderId.
func (b *OrderBook) AddOwnOrder(clientOrderId ident.ClientOrderId, side enum.Side, price num.Price, size num.Quantity, tsEvent int64) error {
	if err := b.requireOwnBook(); err != nil {
		return err
	}
	bookSide := enum.SideToBookSide(side)
	return b.ownLadder(bookSide).add(enum.BookTypeL3, BookOrder{
		OrderId:      clientOrderId.String(),
		Side:         bookSide,
		Price:        price,
		Size:         size,
		TsLastUpdate: tsEvent,
	})
}

// UpdateOwnOrder adjusts a resting own order's price/size (e.g. on a venue
// modify ack).
func (b *OrderBook) UpdateOwnOrder(clientOrderId ident.ClientOrderId, side enum.Side, price num.Price, size num.Quantity, tsEvent int64) error {
	if err := b.requireOwnBook(); err != nil {
		return err
	}
	return b.ownLadder(enum.SideToBookSide(side)).update(enum.BookTypeL3, clientOrderId.String(), price, size, tsEvent)
}

// DeleteOwnOrder removes a resting own order (cancel, fill, or expiry).
func (b *OrderBook) DeleteOwnOrder(clientOrderId ident.ClientOrderId, side enum.Side, price num.Price, size num.Quantity) error {
	if err := b.requireOwnBook(); err != nil {
		return err
	}
	return b.ownLadder(enum.SideToBookSide(side)).delete(enum.BookTypeL3, clientOrderId.String(), price, size)
}

// OwnQuantityAt returns the engine's own resting size at price on side,
// zero if none. Used by the risk/execution layers to net own orders out of
// public depth before sizing decisions.
func (b *OrderBook) OwnQuantityAt(side enum.BookSide, price num.Price) num.Quantity {
	if b.own == nil {
		return num.Quantity{}
	}
	idx, exists := b.ownLadder(side).find(price)
	if !exists {
		return num.Quantity{}
	}
	return b.ownLadder(side).levels[idx].Size
}

// OwnOrders returns every resting own order on side, best-price-first.
func (b *OrderBook) OwnOrders(side enum.BookSide) []BookOrder {
	if b.own == nil {
		return nil
	}
	var out []BookOrder
	for _, lvl := range b.ownLadder(side).levels(0) {
		out = append(out, lvl.Orders...)
	}
	return out
}
