package dataclient

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/gotradekernel/kernel/pkg/book"
	"github.com/gotradekernel/kernel/pkg/enum"
	"github.com/gotradekernel/kernel/pkg/ident"
	"github.com/gotradekernel/kernel/pkg/kernerr"
	"github.com/gotradekernel/kernel/pkg/marketdata"
	"github.com/gotradekernel/kernel/pkg/num"
)

// wsMessage mirrors the venue's WebSocket payload shape, grounded on
// feeds/polymarket_ws.go's WSMessage.
type wsMessage struct {
	EventType string          `json:"event_type"`
	Market    string          `json:"market"`
	Asset     string          `json:"asset_id"`
	Price     string          `json:"price"`
	Side      string          `json:"side"`
	Bids      [][2]string     `json:"bids"`
	Asks      [][2]string     `json:"asks"`
	Sequence  uint64          `json:"sequence"`
}

func (cl *Client) processMessage(data []byte) {
	var msgs []wsMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		var single wsMessage
		if err := json.Unmarshal(data, &single); err != nil {
			log.Debug().Err(err).Msg("dataclient: dropped unparseable message")
			return
		}
		msgs = []wsMessage{single}
	}

	for _, msg := range msgs {
		switch msg.EventType {
		case "book":
			cl.handleBookUpdate(msg)
		case "price_change":
			cl.handlePriceChange(msg)
		case "last_trade_price":
			cl.handleTradePrice(msg)
		default:
			log.Debug().Str("event_type", msg.EventType).Msg("dataclient: unrecognized event type dropped")
		}
	}
}

// handleBookUpdate decodes a full depth snapshot into book.Delta values
// and applies them to the instrument's order book in the shared cache.
// This goes straight at the cache rather than through the data engine,
// since the data engine exposes no book-delta hook of its own, only
// OnQuote/OnTrade.
func (cl *Client) handleBookUpdate(msg wsMessage) {
	instrumentId, ok := cl.instrumentForAsset(msg.Asset)
	if !ok {
		return
	}
	inst, ok := cl.cache.Instrument(instrumentId)
	if !ok {
		return
	}
	common := inst.Common()
	tsEvent := time.Now().UnixNano()

	ob := cl.cache.EnsureBook(instrumentId, enum.BookTypeL2)
	ob.ClearBids()
	ob.ClearAsks()

	deltas := make([]book.Delta, 0, len(msg.Bids)+len(msg.Asks))
	deltas = append(deltas, decodeLevels(msg.Bids, enum.BookSideBid, common.PricePrecision, common.SizePrecision, msg.Sequence, tsEvent)...)
	deltas = append(deltas, decodeLevels(msg.Asks, enum.BookSideAsk, common.PricePrecision, common.SizePrecision, msg.Sequence, tsEvent)...)

	if err := ob.ApplyDeltas(deltas); err != nil {
		log.Warn().Err(err).Str("instrument_id", instrumentId.String()).Msg("dataclient: book delta application failed")
		return
	}

	_ = cl.bus.Publish("data.book."+instrumentId.String(), ob)

	for _, issue := range ob.CheckIntegrity() {
		warning := kernerr.New(kernerr.IntegrityWarning, "%s: %s", issue.Kind, issue.Message).WithSequence(issue.Sequence)
		log.Warn().Str("instrument_id", instrumentId.String()).Str("kind", issue.Kind).Msg("dataclient: " + issue.Message)
		_ = cl.bus.Publish("integrity.book.crossed."+instrumentId.String(), warning)
	}

	bidPrice, hasBid := ob.BestBidPrice()
	askPrice, hasAsk := ob.BestAskPrice()
	if !hasBid || !hasAsk {
		return
	}
	bidSize, _ := ob.BestBidSize()
	askSize, _ := ob.BestAskSize()

	if cl.engine != nil {
		cl.engine.OnQuote(marketdata.Quote{
			InstrumentId: instrumentId,
			BidPrice:     bidPrice,
			AskPrice:     askPrice,
			BidSize:      bidSize,
			AskSize:      askSize,
			TsEvent:      tsEvent,
			TsInit:       tsEvent,
			Sequence:     msg.Sequence,
		})
	}
}

func decodeLevels(levels [][2]string, side enum.BookSide, pricePrecision, sizePrecision uint8, sequence uint64, tsEvent int64) []book.Delta {
	deltas := make([]book.Delta, 0, len(levels))
	for _, lvl := range levels {
		priceDec, err := decimal.NewFromString(lvl[0])
		if err != nil {
			continue
		}
		sizeDec, err := decimal.NewFromString(lvl[1])
		if err != nil {
			continue
		}
		deltas = append(deltas, book.Delta{
			Action:   enum.BookActionAdd,
			Side:     side,
			Price:    num.PriceFromDecimal(priceDec, pricePrecision),
			Size:     num.QuantityFromDecimal(sizeDec, sizePrecision),
			Sequence: sequence,
			TsEvent:  tsEvent,
		})
	}
	return deltas
}

// handlePriceChange decodes a top-of-book price update into a
// marketdata.Quote centered on the reported mid price, since the
// venue's price_change event carries only a single price field.
func (cl *Client) handlePriceChange(msg wsMessage) {
	instrumentId, ok := cl.instrumentForAsset(msg.Asset)
	if !ok || cl.engine == nil {
		return
	}
	inst, ok := cl.cache.Instrument(instrumentId)
	if !ok {
		return
	}
	common := inst.Common()

	priceDec, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return
	}
	tsEvent := time.Now().UnixNano()
	mid := num.PriceFromDecimal(priceDec, common.PricePrecision)

	cl.engine.OnQuote(marketdata.Quote{
		InstrumentId: instrumentId,
		BidPrice:     mid,
		AskPrice:     mid,
		BidSize:      num.NewQuantityRaw(0, common.SizePrecision),
		AskSize:      num.NewQuantityRaw(0, common.SizePrecision),
		TsEvent:      tsEvent,
		TsInit:       tsEvent,
		Sequence:     msg.Sequence,
	})
}

// handleTradePrice decodes a last-trade-price event into a
// marketdata.Trade and feeds it to the data engine, which drives bar
// aggregation.
func (cl *Client) handleTradePrice(msg wsMessage) {
	instrumentId, ok := cl.instrumentForAsset(msg.Asset)
	if !ok || cl.engine == nil {
		return
	}
	inst, ok := cl.cache.Instrument(instrumentId)
	if !ok {
		return
	}
	common := inst.Common()

	priceDec, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return
	}
	tsEvent := time.Now().UnixNano()

	aggressor := enum.AggressorNoAggressor
	switch msg.Side {
	case "BUY":
		aggressor = enum.AggressorBuyer
	case "SELL":
		aggressor = enum.AggressorSeller
	}

	cl.engine.OnTrade(marketdata.Trade{
		InstrumentId:  instrumentId,
		TradeId:       ident.NewTradeId(msg.Market + "-" + msg.Price),
		Price:         num.PriceFromDecimal(priceDec, common.PricePrecision),
		Size:          num.NewQuantityRaw(0, common.SizePrecision),
		AggressorSide: aggressor,
		TsEvent:       tsEvent,
		TsInit:        tsEvent,
		Sequence:      msg.Sequence,
	})
}
