// Package book implements the per-instrument L1/L2/L3 order book: price-
// ordered ladders, delta/depth/quote ingestion, integrity checking, and
// fill simulation against the aggregated or own-order ladder.
package book

import (
	"github.com/shopspring/decimal"

	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/num"
)

var twoDecimal = decimal.NewFromInt(2)

// BookOrder is one resting order. L2 books synthesize a single zero-id
// BookOrder per price level representing the aggregated size; L3 books
// track real order identity and FIFO priority.
type BookOrder struct {
	OrderId      string
	Side         enum.BookSide
	Price        num.Price
	Size         num.Quantity
	TsLastUpdate int64
}

// Delta is a single add/update/delete/clear mutation.
type Delta struct {
	Action   enum.BookAction
	Side     enum.BookSide
	Price    num.Price
	Size     num.Quantity
	OrderId  string // required for L3 update/delete; ignored for L2
	Flags    uint8
	Sequence uint64
	TsEvent  int64
}

// DepthLevel is one side of a Depth10 snapshot entry.
type DepthLevel struct {
	Price num.Price
	Size  num.Quantity
}

// Depth10 replaces the top-10 bids and asks with a snapshot.
type Depth10 struct {
	Bids     [10]DepthLevel
	Asks     [10]DepthLevel
	BidCount int // number of populated entries in Bids, <=10
	AskCount int
	Sequence uint64
	TsEvent  int64
}

// Quote is a top-of-book replacement, valid only for L1 books.
type Quote struct {
	BidPrice num.Price
	AskPrice num.Price
	BidSize  num.Quantity
	AskSize  num.Quantity
	Sequence uint64
	TsEvent  int64
}

// Fill is one simulated execution produced by SimulateFills.
type Fill struct {
	Price num.Price
	Size  num.Quantity
}

// IntegrityIssue is a non-fatal condition surfaced by CheckIntegrity;
// the caller decides whether/how to publish it.
type IntegrityIssue struct {
	Kind     string
	Message  string
	Sequence uint64
}

// OrderBook maintains bid/ask ladders for one instrument.
type OrderBook struct {
	InstrumentId ident.InstrumentId
	Type         enum.BookType
	TsLast       int64
	Sequence     uint64
	Count        uint64

	bids *ladder
	asks *ladder

	own *ownBook // non-nil only when EnableOwnBook has been called
}

func New(instrumentId ident.InstrumentId, bookType enum.BookType) *OrderBook {
	return &OrderBook{
		InstrumentId: instrumentId,
		Type:         bookType,
		bids:         newLadder(enum.BookSideBid),
		asks:         newLadder(enum.BookSideAsk),
	}
}

func (b *OrderBook) ladder(side enum.BookSide) *ladder {
	if side == enum.BookSideBid {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) touch(sequence uint64, tsEvent int64) {
	if sequence > b.Sequence {
		b.Sequence = sequence
	}
	if tsEvent > b.TsLast {
		b.TsLast = tsEvent
	}
	b.Count++
}

// ApplyDelta applies a single mutation.
func (b *OrderBook) ApplyDelta(d Delta) error {
	if err := b.applyOne(d); err != nil {
		return err
	}
	b.touch(d.Sequence, d.TsEvent)
	return nil
}

// ApplyDeltas applies a batch atomically: all succeed or none are applied.
func (b *OrderBook) ApplyDeltas(deltas []Delta) error {
	if len(deltas) == 0 {
		return nil
	}
	snapshot := b.clone()
	for _, d := range deltas {
		if err := b.applyOne(d); err != nil {
			b.restore(snapshot)
			return err
		}
	}
	last := deltas[len(deltas)-1]
	b.touch(last.Sequence, last.TsEvent)
	return nil
}

func (b *OrderBook) applyOne(d Delta) error {
	switch d.Action {
	case enum.BookActionAdd:
		return b.ladder(d.Side).add(b.Type, BookOrder{OrderId: d.OrderId, Side: d.Side, Price: d.Price, Size: d.Size, TsLastUpdate: d.TsEvent})
	case enum.BookActionUpdate:
		return b.ladder(d.Side).update(b.Type, d.OrderId, d.Price, d.Size, d.TsEvent)
	case enum.BookActionDelete:
		return b.ladder(d.Side).delete(b.Type, d.OrderId, d.Price, d.Size)
	case enum.BookActionClear:
		switch d.Side {
		case enum.BookSideBid:
			b.ClearBids()
		case enum.BookSideAsk:
			b.ClearAsks()
		}
		return nil
	default:
		return kernerr.New(kernerr.InvalidInput, "book: unknown delta action %d", d.Action)
	}
}

// ApplyDepth10 replaces the top-10 bids and asks with a snapshot.
func (b *OrderBook) ApplyDepth10(d Depth10) error {
	if b.Type == enum.BookTypeL3 {
		return kernerr.New(kernerr.InvalidInput, "book: depth10 snapshots are not valid for L3 books")
	}
	newBids := newLadder(enum.BookSideBid)
	for i := 0; i < d.BidCount; i++ {
		lvl := d.Bids[i]
		if err := newBids.add(b.Type, BookOrder{Side: enum.BookSideBid, Price: lvl.Price, Size: lvl.Size, TsLastUpdate: d.TsEvent}); err != nil {
			return err
		}
	}
	newAsks := newLadder(enum.BookSideAsk)
	for i := 0; i < d.AskCount; i++ {
		lvl := d.Asks[i]
		if err := newAsks.add(b.Type, BookOrder{Side: enum.BookSideAsk, Price: lvl.Price, Size: lvl.Size, TsLastUpdate: d.TsEvent}); err != nil {
			return err
		}
	}
	b.bids = newBids
	b.asks = newAsks
	b.touch(d.Sequence, d.TsEvent)
	return nil
}

// ApplyQuote replaces top-of-book; valid only for L1 books.
func (b *OrderBook) ApplyQuote(q Quote) error {
	if b.Type != enum.BookTypeL1 {
		return kernerr.New(kernerr.InvalidInput, "book: ApplyQuote is only valid for L1 books")
	}
	b.bids = newLadder(enum.BookSideBid)
	if !q.BidSize.IsZero() {
		_ = b.bids.add(b.Type, BookOrder{Side: enum.BookSideBid, Price: q.BidPrice, Size: q.BidSize, TsLastUpdate: q.TsEvent})
	}
	b.asks = newLadder(enum.BookSideAsk)
	if !q.AskSize.IsZero() {
		_ = b.asks.add(b.Type, BookOrder{Side: enum.BookSideAsk, Price: q.AskPrice, Size: q.AskSize, TsLastUpdate: q.TsEvent})
	}
	b.touch(q.Sequence, q.TsEvent)
	return nil
}

func (b *OrderBook) Add(order BookOrder) error    { return b.ladder(order.Side).add(b.Type, order) }
func (b *OrderBook) Update(order BookOrder) error { return b.ladder(order.Side).update(b.Type, order.OrderId, order.Price, order.Size, order.TsLastUpdate) }
func (b *OrderBook) Delete(side enum.BookSide, orderId string, price num.Price, size num.Quantity) error {
	return b.ladder(side).delete(b.Type, orderId, price, size)
}

func (b *OrderBook) ClearBids() { b.bids = newLadder(enum.BookSideBid) }
func (b *OrderBook) ClearAsks() { b.asks = newLadder(enum.BookSideAsk) }
func (b *OrderBook) Clear()     { b.ClearBids(); b.ClearAsks() }

func (b *OrderBook) BestBidPrice() (num.Price, bool) { return b.bids.bestPrice() }
func (b *OrderBook) BestAskPrice() (num.Price, bool) { return b.asks.bestPrice() }
func (b *OrderBook) BestBidSize() (num.Quantity, bool) { return b.bids.bestSize() }
func (b *OrderBook) BestAskSize() (num.Quantity, bool) { return b.asks.bestSize() }

// Spread returns ask-bid, or false if either side is empty.
func (b *OrderBook) Spread() (num.Price, bool) {
	bid, okBid := b.BestBidPrice()
	ask, okAsk := b.BestAskPrice()
	if !okBid || !okAsk {
		return num.Price{}, false
	}
	return ask.Sub(bid), true
}

// Midpoint returns (bid+ask)/2 computed in decimal space, rounded to the
// book's price precision (taken from the best bid).
func (b *OrderBook) Midpoint() (num.Price, bool) {
	bid, okBid := b.BestBidPrice()
	ask, okAsk := b.BestAskPrice()
	if !okBid || !okAsk {
		return num.Price{}, false
	}
	mid := bid.Decimal().Add(ask.Decimal()).DivRound(twoDecimal, int32(bid.Precision())+2)
	return num.PriceFromDecimal(mid, bid.Precision()), true
}

// Levels returns up to depth price levels on side, best-first.
func (b *OrderBook) Levels(side enum.BookSide, depth int) []*PriceLevel {
	return b.ladder(side).levels(depth)
}

// CheckIntegrity reports crossed-book and similar non-fatal conditions.
// A crossed book is flagged but never auto-corrected; it never mutates
// the book.
func (b *OrderBook) CheckIntegrity() []IntegrityIssue {
	var issues []IntegrityIssue
	bid, okBid := b.BestBidPrice()
	ask, okAsk := b.BestAskPrice()
	if okBid && okAsk && !bid.Less(ask) {
		issues = append(issues, IntegrityIssue{
			Kind:     "crossed",
			Message:  "best bid >= best ask",
			Sequence: b.Sequence,
		})
	}
	return issues
}

// clone/restore give ApplyDeltas atomic batch semantics without needing a
// full ladder deep-copy library: ladders are cheap, small structures.
type snapshot struct {
	bids *ladder
	asks *ladder
}

func (b *OrderBook) clone() snapshot {
	return snapshot{bids: b.bids.clone(), asks: b.asks.clone()}
}

func (b *OrderBook) restore(s snapshot) {
	b.bids = s.bids
	b.asks = s.asks
}
