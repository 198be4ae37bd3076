// Package marketdata holds the instrument-tagged data types the cache
// stores as "latest" snapshots and the data engine synthesizes via
// aggregation: quotes, trades, and bars.
package marketdata

import (
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/num"
)

// Quote is a top-of-book snapshot tagged with its instrument, distinct
// from book.Quote (an ingestion delta a book applies to itself).
type Quote struct {
	InstrumentId ident.InstrumentId
	BidPrice     num.Price
	AskPrice     num.Price
	BidSize      num.Quantity
	AskSize      num.Quantity
	TsEvent      int64
	TsInit       int64
	Sequence     uint64
}

// Trade is one executed trade on the venue (not necessarily the engine's
// own), used to drive tick/volume bars and the cache's latest-trade slot.
type Trade struct {
	InstrumentId  ident.InstrumentId
	TradeId       ident.TradeId
	Price         num.Price
	Size          num.Quantity
	AggressorSide enum.AggressorSide
	TsEvent       int64
	TsInit        int64
	Sequence      uint64
}

// BarAggregation names what dimension a bar closes on.
type BarAggregation int

const (
	BarAggregationTime BarAggregation = iota
	BarAggregationTick
	BarAggregationVolume
)

// BarSpecification names one bar series: Step time-nanoseconds for Time
// aggregation, trade count for Tick, or raw quantity threshold for Volume.
type BarSpecification struct {
	Aggregation BarAggregation
	Step        int64
}

func (s BarSpecification) String() string {
	switch s.Aggregation {
	case BarAggregationTick:
		return "TICK"
	case BarAggregationVolume:
		return "VOLUME"
	default:
		return "TIME"
	}
}

// Bar is one closed OHLCV bar: partially-filled bars are not emitted,
// only ever constructed once fully closed.
type Bar struct {
	InstrumentId ident.InstrumentId
	Spec         BarSpecification
	Open         num.Price
	High         num.Price
	Low          num.Price
	Close        num.Price
	Volume       num.Quantity
	TsEvent      int64
	TsInit       int64
}
