package ident

import (
	"fmt"
	"sync"
	"time"
)

// ClientOrderIdGenerator assigns deterministic, monotonically increasing
// client order ids tagged "O-YYYYMMDD-HHMMSS-TRADER-STRATEGY-N".
type ClientOrderIdGenerator struct {
	mu       sync.Mutex
	trader   TraderId
	strategy StrategyId
	count    uint64
	nowNs    func() int64
}

func NewClientOrderIdGenerator(trader TraderId, strategy StrategyId, initialCount uint64, nowNs func() int64) *ClientOrderIdGenerator {
	return &ClientOrderIdGenerator{trader: trader, strategy: strategy, count: initialCount, nowNs: nowNs}
}

func (g *ClientOrderIdGenerator) SetCount(count uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count = count
}

func (g *ClientOrderIdGenerator) Reset() { g.SetCount(0) }

func (g *ClientOrderIdGenerator) Count() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Generate returns the next client order id.
func (g *ClientOrderIdGenerator) Generate() ClientOrderId {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
	tag := datetimeTag(g.nowNs())
	return NewClientOrderId(fmt.Sprintf("O-%s-%s-%s-%d", tag, g.trader.String(), g.strategy.String(), g.count))
}

func datetimeTag(nowNs int64) string {
	t := time.Unix(0, nowNs).UTC()
	return fmt.Sprintf("%04d%02d%02d-%02d%02d%02d", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// PositionIdGenerator assigns position ids scoped to an instrument, with
// a trailing "F" suffix minted for the residual position opened by a
// flip.
type PositionIdGenerator struct {
	mu     sync.Mutex
	counts map[InstrumentId]uint64
}

func NewPositionIdGenerator() *PositionIdGenerator {
	return &PositionIdGenerator{counts: make(map[InstrumentId]uint64)}
}

// Generate returns the next position id for instrument; flip set true
// appends the "F" flip marker.
func (g *PositionIdGenerator) Generate(instrument InstrumentId, flip bool) PositionId {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts[instrument]++
	suffix := ""
	if flip {
		suffix = "F"
	}
	return NewPositionId(fmt.Sprintf("P-%s-%d%s", instrument.String(), g.counts[instrument], suffix))
}

func (g *PositionIdGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts = make(map[InstrumentId]uint64)
}
