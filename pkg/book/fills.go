package book

import (
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/num"
)

// SimulateFills walks the opposite side's ladder (best price first) and
// returns the fills an order of the given side, optional limit price, and
// quantity would receive against the book's current depth. It does not
// mutate the book; callers use it to price hypothetical marketable
// orders before submission.
func (b *OrderBook) SimulateFills(side enum.Side, limitPrice *num.Price, quantity num.Quantity) []Fill {
	opposite := b.ladder(enum.SideToBookSide(side.Opposite()))
	var fills []Fill
	remaining := quantity
	for _, lvl := range opposite.levels(0) {
		if remaining.IsZero() {
			break
		}
		if limitPrice != nil && !marketable(side, *limitPrice, lvl.Price) {
			break
		}
		take := remaining.Min(lvl.Size)
		if take.IsZero() {
			continue
		}
		fills = append(fills, Fill{Price: lvl.Price, Size: take})
		remaining = remaining.Sub(take)
	}
	return fills
}

// marketable reports whether a resting price satisfies an aggressor's
// limit: a buy accepts any ask at or below its limit, a sell accepts any
// bid at or above its limit.
func marketable(side enum.Side, limit, resting num.Price) bool {
	if side == enum.SideBuy {
		return resting.LessEq(limit)
	}
	return resting.GreaterEq(limit)
}
