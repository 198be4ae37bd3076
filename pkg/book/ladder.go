package book

import (
	"sort"

	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
)

// PriceLevel is one price tier of a ladder, exposed read-only via Levels.
type PriceLevel struct {
	Price num.Price
	Size  num.Quantity // aggregate size across all orders at this price
	Orders []BookOrder // FIFO time priority; len==1 synthetic entry for L2
}

// ladder holds one side of an order book as a slice of price-levels kept
// sorted best-first: descending price for bids, ascending for asks. A
// slice is sufficient fidelity for the depths involved (<=L3 full book per
// instrument) and keeps mutation logic simple to reason about by hand,
// which matters since this kernel is never exercised by the Go toolchain
// before review.
type ladder struct {
	side   enum.BookSide
	levels []*PriceLevel
}

func newLadder(side enum.BookSide) *ladder {
	return &ladder{side: side}
}

// better reports whether price a ranks ahead of price b on this ladder.
func (l *ladder) better(a, b num.Price) bool {
	if l.side == enum.BookSideBid {
		return a.Greater(b)
	}
	return a.Less(b)
}

// find returns the index of price's level and whether it exists, using the
// ladder's ranking order for binary search.
func (l *ladder) find(price num.Price) (int, bool) {
	n := len(l.levels)
	idx := sort.Search(n, func(i int) bool {
		// first index whose price is NOT strictly better than price,
		// i.e. price >= levels[i].Price (bids) or price <= (asks).
		return !l.better(l.levels[i].Price, price)
	})
	if idx < n && l.levels[idx].Price.Equal(price) {
		return idx, true
	}
	return idx, false
}

func (l *ladder) add(bookType enum.BookType, order BookOrder) error {
	if order.Size.IsZero() {
		return kernerr.New(kernerr.InvalidInput, "book: add with zero size")
	}
	idx, exists := l.find(order.Price)
	if !exists {
		lvl := &PriceLevel{Price: order.Price, Size: order.Size, Orders: []BookOrder{order}}
		l.levels = append(l.levels, nil)
		copy(l.levels[idx+1:], l.levels[idx:])
		l.levels[idx] = lvl
		return nil
	}
	lvl := l.levels[idx]
	if bookType == enum.BookTypeL3 {
		for _, o := range lvl.Orders {
			if o.OrderId == order.OrderId {
				return kernerr.New(kernerr.InvalidInput, "book: order %q already resting", order.OrderId)
			}
		}
	}
	lvl.Orders = append(lvl.Orders, order)
	lvl.Size = lvl.Size.Add(order.Size)
	return nil
}

func (l *ladder) update(bookType enum.BookType, orderId string, price num.Price, size num.Quantity, tsEvent int64) error {
	if bookType == enum.BookTypeL3 {
		for _, lvl := range l.levels {
			for i, o := range lvl.Orders {
				if o.OrderId != orderId {
					continue
				}
				if !o.Price.Equal(price) {
					// price change: remove from old level, re-add at new.
					if err := l.removeOrderAt(lvl, i); err != nil {
						return err
					}
					return l.add(bookType, BookOrder{OrderId: orderId, Side: l.side, Price: price, Size: size, TsLastUpdate: tsEvent})
				}
				lvl.Size = lvl.Size.Sub(o.Size).Add(size)
				lvl.Orders[i].Size = size
				lvl.Orders[i].TsLastUpdate = tsEvent
				return nil
			}
		}
		return kernerr.New(kernerr.InvalidInput, "book: update of unknown order %q", orderId)
	}
	// L2: a level is a single synthetic aggregate order keyed by price.
	idx, exists := l.find(price)
	if !exists {
		if size.IsZero() {
			return nil
		}
		return l.add(bookType, BookOrder{Side: l.side, Price: price, Size: size, TsLastUpdate: tsEvent})
	}
	if size.IsZero() {
		l.levels = append(l.levels[:idx], l.levels[idx+1:]...)
		return nil
	}
	lvl := l.levels[idx]
	lvl.Size = size
	lvl.Orders = []BookOrder{{Side: l.side, Price: price, Size: size, TsLastUpdate: tsEvent}}
	return nil
}

// removeOrderAt removes the order at index i within lvl, deleting the
// level itself if it becomes empty.
func (l *ladder) removeOrderAt(lvl *PriceLevel, i int) error {
	removed := lvl.Orders[i]
	lvl.Orders = append(lvl.Orders[:i], lvl.Orders[i+1:]...)
	lvl.Size = lvl.Size.Sub(removed.Size)
	if len(lvl.Orders) == 0 {
		idx, exists := l.find(lvl.Price)
		if exists {
			l.levels = append(l.levels[:idx], l.levels[idx+1:]...)
		}
	}
	return nil
}

func (l *ladder) delete(bookType enum.BookType, orderId string, price num.Price, size num.Quantity) error {
	idx, exists := l.find(price)
	if !exists {
		return kernerr.New(kernerr.InvalidInput, "book: delete at unknown price level %s", price.String())
	}
	lvl := l.levels[idx]
	if bookType == enum.BookTypeL3 {
		for i, o := range lvl.Orders {
			if o.OrderId == orderId {
				return l.removeOrderAt(lvl, i)
			}
		}
		return kernerr.New(kernerr.InvalidInput, "book: delete of unknown order %q", orderId)
	}
	// L2: size must match the level's remaining size to remove it outright;
	// a smaller size reduces the level instead.
	if lvl.Size.Greater(size) {
		remaining := lvl.Size.Sub(size)
		lvl.Size = remaining
		lvl.Orders = []BookOrder{{Side: l.side, Price: lvl.Price, Size: remaining, TsLastUpdate: lvl.Orders[0].TsLastUpdate}}
		return nil
	}
	l.levels = append(l.levels[:idx], l.levels[idx+1:]...)
	return nil
}

func (l *ladder) bestPrice() (num.Price, bool) {
	if len(l.levels) == 0 {
		return num.Price{}, false
	}
	return l.levels[0].Price, true
}

func (l *ladder) bestSize() (num.Quantity, bool) {
	if len(l.levels) == 0 {
		return num.Quantity{}, false
	}
	return l.levels[0].Size, true
}

func (l *ladder) levels(depth int) []*PriceLevel {
	if depth <= 0 || depth > len(l.levels) {
		depth = len(l.levels)
	}
	out := make([]*PriceLevel, depth)
	copy(out, l.levels[:depth])
	return out
}

func (l *ladder) clone() *ladder {
	clone := &ladder{side: l.side, levels: make([]*PriceLevel, len(l.levels))}
	for i, lvl := range l.levels {
		orders := make([]BookOrder, len(lvl.Orders))
		copy(orders, lvl.Orders)
		clone.levels[i] = &PriceLevel{Price: lvl.Price, Size: lvl.Size, Orders: orders}
	}
	return clone
}
