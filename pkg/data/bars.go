package data

import (
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/marketdata"
	"github.com/gotradekernel/kernel/pkg/num"
)

// barBuilder accumulates one bar series from the trade stream. A bar
// closes the instant the event that crosses its boundary arrives; the
// crossing event itself opens the next bar, so backtests and live
// replay of the same trades produce identical bars.
type barBuilder struct {
	instrumentId ident.InstrumentId
	spec         marketdata.BarSpecification

	open        bool
	bar         marketdata.Bar
	ticksSeen   int64
	volumeAccum num.Quantity
	boundary    int64 // next close boundary, Time aggregation only
}

func newBarBuilder(instrumentId ident.InstrumentId, spec marketdata.BarSpecification) *barBuilder {
	return &barBuilder{instrumentId: instrumentId, spec: spec}
}

func (bb *barBuilder) startBar(t marketdata.Trade) {
	bb.open = true
	bb.bar = marketdata.Bar{
		InstrumentId: bb.instrumentId,
		Spec:         bb.spec,
		Open:         t.Price,
		High:         t.Price,
		Low:          t.Price,
		Close:        t.Price,
		Volume:       t.Size,
	}
	bb.ticksSeen = 1
	bb.volumeAccum = t.Size
	if bb.spec.Aggregation == marketdata.BarAggregationTime {
		bb.boundary = floorToStep(t.TsEvent, bb.spec.Step) + bb.spec.Step
	}
}

func (bb *barBuilder) extendBar(t marketdata.Trade) {
	if t.Price.Greater(bb.bar.High) {
		bb.bar.High = t.Price
	}
	if t.Price.Less(bb.bar.Low) {
		bb.bar.Low = t.Price
	}
	bb.bar.Close = t.Price
	bb.bar.Volume = bb.bar.Volume.Add(t.Size)
	bb.ticksSeen++
	bb.volumeAccum = bb.volumeAccum.Add(t.Size)
}

func floorToStep(ts, step int64) int64 {
	if step <= 0 {
		return ts
	}
	r := ts % step
	if r < 0 {
		r += step
	}
	return ts - r
}

// onTrade feeds one trade into the series, returning the just-closed bar
// (and true) if this trade crossed the series' boundary.
func (bb *barBuilder) onTrade(t marketdata.Trade) (marketdata.Bar, bool) {
	if !bb.open {
		bb.startBar(t)
		return marketdata.Bar{}, false
	}

	switch bb.spec.Aggregation {
	case marketdata.BarAggregationTime:
		if t.TsEvent < bb.boundary {
			bb.extendBar(t)
			return marketdata.Bar{}, false
		}
		closed := bb.bar
		closed.TsEvent = bb.boundary
		closed.TsInit = t.TsInit
		bb.startBar(t)
		return closed, true

	case marketdata.BarAggregationTick:
		bb.extendBar(t)
		if bb.ticksSeen < bb.spec.Step {
			return marketdata.Bar{}, false
		}
		closed := bb.bar
		closed.TsEvent = t.TsEvent
		closed.TsInit = t.TsInit
		bb.open = false
		return closed, true

	case marketdata.BarAggregationVolume:
		bb.extendBar(t)
		threshold := num.NewQuantityRaw(bb.spec.Step, t.Size.Precision())
		if bb.volumeAccum.Less(threshold) {
			return marketdata.Bar{}, false
		}
		closed := bb.bar
		closed.TsEvent = t.TsEvent
		closed.TsInit = t.TsInit
		bb.open = false
		return closed, true

	default:
		return marketdata.Bar{}, false
	}
}
